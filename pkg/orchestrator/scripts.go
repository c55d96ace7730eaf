package orchestrator

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/duckclient/duck-cli/pkg/log"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ScriptWarning is a non-fatal finding from NormalizeScriptPermissions,
// e.g. a BOM-marked script (spec §4.6.6).
type ScriptWarning struct {
	Path    string
	Message string
}

// NormalizeScriptPermissions walks config/ and script(s)/ under root
// for *.sh files and ensures they are executable, per spec §4.6.6. On
// Windows it first normalizes CRLF line endings to LF (keeping a .bak
// of the original) before attempting to set the executable bit via
// Git-Bash, WSL, or a direct chmod, in that order; any one succeeding
// is sufficient. A UTF-8 BOM is reported as a warning, never fixed
// automatically. fs abstracts the walk and chmod so tests can exercise
// the logic against an in-memory tree; the Windows fallback path still
// shells out against real paths since it spawns external processes.
func NormalizeScriptPermissions(fs afero.Fs, root string) ([]ScriptWarning, error) {
	logger := log.WithComponent("orchestrator")
	scripts, err := findShellScripts(fs, root)
	if err != nil {
		return nil, err
	}

	var warnings []ScriptWarning
	for _, path := range scripts {
		if hasBOM(fs, path) {
			warnings = append(warnings, ScriptWarning{Path: path, Message: "file has a UTF-8 BOM; strip it with a text editor"})
		}

		if runtime.GOOS == "windows" {
			if err := normalizeLineEndings(path); err != nil {
				logger.Warn().Str("path", path).Err(err).Msg("failed to normalize line endings")
			}
			if err := makeExecutableWindows(path); err != nil {
				warnings = append(warnings, ScriptWarning{Path: path, Message: "could not set executable bit via Git-Bash, WSL, or chmod"})
			}
			continue
		}

		if err := makeExecutableUnix(fs, path); err != nil {
			warnings = append(warnings, ScriptWarning{Path: path, Message: "chmod +x failed: " + err.Error()})
		}
	}
	return warnings, nil
}

func findShellScripts(fs afero.Fs, root string) ([]string, error) {
	var out []string
	for _, sub := range []string{"config", "script", "scripts"} {
		dir := filepath.Join(root, sub)
		info, err := fs.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && strings.HasSuffix(path, ".sh") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasBOM(fs afero.Fs, path string) bool {
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 3)
	n, _ := f.Read(buf)
	return n == 3 && bytes.Equal(buf, utf8BOM)
}

func makeExecutableUnix(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode()
	if mode&0o111 == 0o111 {
		return nil
	}
	return fs.Chmod(path, mode|0o111)
}

func normalizeLineEndings(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.Contains(data, []byte("\r\n")) {
		return nil
	}
	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return err
	}
	converted := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return os.WriteFile(path, converted, 0o644)
}

// makeExecutableWindows tries Git-Bash, then WSL, then a direct chmod;
// the first to succeed wins.
func makeExecutableWindows(path string) error {
	for _, candidate := range []string{
		`C:\Program Files\Git\bin\bash.exe`,
		`C:\Program Files (x86)\Git\bin\bash.exe`,
	} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if exec.Command(candidate, "-c", "chmod +x '"+path+"'").Run() == nil {
			return nil
		}
	}

	if wslPath, ok := toWSLPath(path); ok {
		if exec.Command("wsl", "chmod", "+x", wslPath).Run() == nil {
			return nil
		}
	}

	if exec.Command("chmod", "+x", path).Run() == nil {
		return nil
	}
	return os.ErrPermission
}

func toWSLPath(windowsPath string) (string, bool) {
	if len(windowsPath) < 2 || windowsPath[1] != ':' {
		return "", false
	}
	drive := strings.ToLower(string(windowsPath[0]))
	rest := strings.ReplaceAll(windowsPath[2:], `\`, "/")
	return "/mnt/" + drive + rest, true
}
