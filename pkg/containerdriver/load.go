package containerdriver

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
)

func openForLoad(path string) (*os.File, error) {
	return os.Open(path)
}

// loadStreamLine is the shape of one line of the engine's streamed JSON
// response to an image-load request.
type loadStreamLine struct {
	Stream string `json:"stream"`
}

// parseLoadedReference scans the engine's streamed response for the
// "Loaded image: <ref>" line and returns <ref> trimmed.
func parseLoadedReference(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	var lastRef string
	for scanner.Scan() {
		var line loadStreamLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		msg := strings.TrimSpace(line.Stream)
		for _, prefix := range []string{"Loaded image:", "Loaded image ID:"} {
			if strings.HasPrefix(msg, prefix) {
				lastRef = strings.TrimSpace(strings.TrimPrefix(msg, prefix))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lastRef == "" {
		return "", errNoLoadedReference
	}
	return lastRef, nil
}

var errNoLoadedReference = errors.New("engine response did not report a loaded image reference")
