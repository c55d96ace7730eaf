package downloader

import (
	"encoding/json"
	"os"
	"time"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

func sidecarPath(targetPath string) string {
	return targetPath + ".download"
}

func loadSidecar(targetPath string) (*types.DownloadSidecar, bool, error) {
	raw, err := os.ReadFile(sidecarPath(targetPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, storage.Wrap(storage.KindIo, "downloader.loadSidecar", err)
	}
	var sc types.DownloadSidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, false, storage.Wrap(storage.KindSchema, "downloader.loadSidecar", err)
	}
	return &sc, true, nil
}

func saveSidecar(targetPath string, sc types.DownloadSidecar) error {
	sc.LastUpdate = time.Now().UTC()
	raw, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return storage.Wrap(storage.KindCustom, "downloader.saveSidecar", err)
	}
	if err := os.WriteFile(sidecarPath(targetPath), raw, 0o644); err != nil {
		return storage.Wrap(storage.KindIo, "downloader.saveSidecar", err)
	}
	return nil
}

func deleteSidecar(targetPath string) error {
	if err := os.Remove(sidecarPath(targetPath)); err != nil && !os.IsNotExist(err) {
		return storage.Wrap(storage.KindIo, "downloader.deleteSidecar", err)
	}
	return nil
}
