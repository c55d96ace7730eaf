package orchestrator

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// largeFileThreshold is the size above which extractBundle reports
// per-file progress (spec §4.6.2).
const largeFileThreshold = 10 * 1024 * 1024

// ExtractProgressFunc is called once per file in the bundle larger than
// largeFileThreshold, after that file finishes extracting.
type ExtractProgressFunc func(name string, size int64)

// ExtractBundle unpacks a ZIP bundle into workDir. If the archive's
// top-level contains a docker/ root (detected by the presence of a
// docker-compose.yml under it), that root's contents are extracted
// under workDir/docker and workDir is returned; otherwise the whole
// archive is extracted under workDir/docker and that path is returned.
// Entries named "." or starting with "__MACOSX" are skipped.
func ExtractBundle(zipPath, workDir string, progress ExtractProgressFunc) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", storage.Wrap(storage.KindIo, "orchestrator.ExtractBundle", err)
	}
	defer r.Close()

	dockerRoot := detectDockerRoot(r.File)
	destRoot := filepath.Join(workDir, "docker")
	stripPrefix := ""
	if dockerRoot != "" {
		destRoot = workDir
		stripPrefix = dockerRoot
	}

	for _, f := range r.File {
		if shouldSkipEntry(f.Name) {
			continue
		}
		rel := f.Name
		if stripPrefix != "" {
			if rel == stripPrefix {
				continue
			}
			if !strings.HasPrefix(rel, stripPrefix+"/") {
				continue
			}
			rel = strings.TrimPrefix(rel, stripPrefix+"/")
			if rel == "" {
				continue
			}
		}

		target := filepath.Join(workDir, "docker", filepath.FromSlash(rel))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", storage.Wrap(storage.KindIo, "orchestrator.ExtractBundle", err)
			}
			continue
		}

		if err := extractFileEntry(f, target); err != nil {
			return "", storage.Wrap(storage.KindIo, "orchestrator.ExtractBundle", err)
		}
		if progress != nil && int64(f.UncompressedSize64) > largeFileThreshold {
			progress(rel, int64(f.UncompressedSize64))
		}
	}

	return destRoot, nil
}

func detectDockerRoot(files []*zip.File) string {
	for _, f := range files {
		base := filepath.Base(f.Name)
		if base != "docker-compose.yml" && base != "docker-compose.yaml" {
			continue
		}
		dir := filepath.ToSlash(filepath.Dir(f.Name))
		if dir == "." {
			continue
		}
		if filepath.Base(dir) == "docker" {
			return dir
		}
	}
	return ""
}

func shouldSkipEntry(name string) bool {
	base := filepath.Base(name)
	if base == "." || base == ".." {
		return true
	}
	if strings.HasPrefix(base, "__MACOSX") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == "__MACOSX" {
			return true
		}
	}
	return false
}

func extractFileEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
