package downloader

import (
	"os"
	"path/filepath"

	"github.com/duckclient/duck-cli/pkg/types"
)

// CacheEntry describes one version/kind directory under
// cacheDuckData/download (spec.md §6's filesystem layout): the bundle
// file itself, if present, and its sidecar's resume state, if the
// download is incomplete.
type CacheEntry struct {
	Version   string
	Kind      string // "full" or "patch"
	Path      string
	SizeBytes int64
	Sidecar   *types.DownloadSidecar
}

// InspectCacheDir walks cacheRoot (cacheDuckData/download) and reports
// one CacheEntry per <version>/<kind>/docker.zip found, whether
// complete or partially downloaded.
func InspectCacheDir(cacheRoot string) ([]CacheEntry, error) {
	var entries []CacheEntry

	versions, err := os.ReadDir(cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, v := range versions {
		if !v.IsDir() {
			continue
		}
		kinds, err := os.ReadDir(filepath.Join(cacheRoot, v.Name()))
		if err != nil {
			continue
		}
		for _, k := range kinds {
			if !k.IsDir() {
				continue
			}
			dir := filepath.Join(cacheRoot, v.Name(), k.Name())
			files, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() || filepath.Ext(f.Name()) == ".download" {
					continue
				}
				path := filepath.Join(dir, f.Name())
				info, err := f.Info()
				if err != nil {
					continue
				}
				entry := CacheEntry{Version: v.Name(), Kind: k.Name(), Path: path, SizeBytes: info.Size()}
				if sc, ok, _ := loadSidecar(path); ok {
					entry.Sidecar = sc
				}
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

// RemoveCacheEntry deletes a cached bundle and its sidecar, if any.
func RemoveCacheEntry(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return deleteSidecar(path)
}
