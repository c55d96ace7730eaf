package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// imageEngine is the narrow capability LoadAndRetagImages needs from
// pkg/containerdriver.Driver.
type imageEngine interface {
	LoadImage(ctx context.Context, tarPath string) (string, error)
	RetagImage(ctx context.Context, source, target string) error
	ImageExists(ctx context.Context, ref string) (bool, error)
}

// LoadedImage records the outcome of loading and retagging one tarball.
type LoadedImage struct {
	File        string
	LoadedRef   string
	RetaggedRef string
	Retagged    bool
}

// LoadAndRetagImages loads every *-<hostArch>.tar under imagesDir via
// the engine, then strips the architecture suffix from the loaded
// reference's tag and retags it, provided the engine confirms the
// untagged source still exists (spec §4.6.3).
func LoadAndRetagImages(ctx context.Context, eng imageEngine, imagesDir, hostArch string) ([]LoadedImage, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, storage.Wrap(storage.KindIo, "orchestrator.LoadAndRetagImages", err)
	}

	logger := log.WithComponent("orchestrator")
	suffix := "-" + hostArch + ".tar"

	var out []LoadedImage
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		path := filepath.Join(imagesDir, e.Name())
		ref, err := eng.LoadImage(ctx, path)
		if err != nil {
			return out, storage.Wrap(storage.KindDockerEngine, "orchestrator.LoadAndRetagImages", err)
		}

		li := LoadedImage{File: e.Name(), LoadedRef: ref}
		target := stripArchSuffix(ref)
		if target != ref {
			exists, err := eng.ImageExists(ctx, ref)
			if err != nil {
				logger.Warn().Str("image", ref).Err(err).Msg("could not verify source image before retagging")
			} else if exists {
				if err := eng.RetagImage(ctx, ref, target); err != nil {
					logger.Warn().Str("from", ref).Str("to", target).Err(err).Msg("retag failed")
				} else {
					li.RetaggedRef = target
					li.Retagged = true
				}
			}
		}
		out = append(out, li)
	}
	return out, nil
}
