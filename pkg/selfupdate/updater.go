package selfupdate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/downloader"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// downloaderHandle is the narrow capability Updater needs from
// pkg/downloader.
type downloaderHandle interface {
	Download(ctx context.Context, req downloader.Request, onProgress downloader.ProgressFunc) error
}

// Updater wires the release index, the resumable downloader, and the
// platform binary swap into one self-update cycle.
type Updater struct {
	index      *IndexClient
	dl         downloaderHandle
	cacheDir   string
	namePrefix string
	logger     zerolog.Logger
}

// NewUpdater builds an Updater. cacheDir is where the downloaded binary is
// staged before the swap (e.g. "./cacheDuckData/download/self").
func NewUpdater(index *IndexClient, dl downloaderHandle, cacheDir, namePrefix string) *Updater {
	return &Updater{index: index, dl: dl, cacheDir: cacheDir, namePrefix: namePrefix, logger: log.WithComponent("selfupdate")}
}

// Result summarizes one self-update attempt.
type Result struct {
	Applied    bool
	FromVersion string
	ToVersion   string
}

// CheckAndApply queries the release index, and if a newer version (or
// force) is available, downloads the matching asset and swaps the
// running executable at exePath.
func (u *Updater) CheckAndApply(ctx context.Context, currentVersion, exePath string, force bool) (Result, error) {
	idx, err := u.index.QueryLatest(ctx)
	if err != nil {
		return Result{}, err
	}

	if !force && !HasUpdate(currentVersion, idx.Version) {
		return Result{Applied: false, FromVersion: currentVersion, ToVersion: idx.Version}, nil
	}

	platform, arch := CurrentPlatformArch()
	asset, err := SelectAsset(idx.Assets, u.namePrefix, platform, arch)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(u.cacheDir, 0o755); err != nil {
		return Result{}, storage.Wrap(storage.KindIo, "selfupdate.CheckAndApply", err)
	}
	stagedPath := filepath.Join(u.cacheDir, asset.Name)

	if err := u.dl.Download(ctx, downloader.Request{
		URL:          asset.URL,
		TargetPath:   stagedPath,
		Version:      idx.Version,
		ExpectedSize: asset.Size,
		ExpectedHash: asset.Hash,
	}, nil); err != nil {
		return Result{}, err
	}

	if err := ApplyBinarySwap(stagedPath, exePath); err != nil {
		return Result{}, err
	}

	return Result{Applied: true, FromVersion: currentVersion, ToVersion: idx.Version}, nil
}
