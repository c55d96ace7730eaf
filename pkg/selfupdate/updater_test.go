package selfupdate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/downloader"
)

type fakeDownloader struct {
	calls   int
	content string
}

func (f *fakeDownloader) Download(ctx context.Context, req downloader.Request, onProgress downloader.ProgressFunc) error {
	f.calls++
	return os.WriteFile(req.TargetPath, []byte(f.content), 0o644)
}

func TestCheckAndApplySkipsWhenAlreadyCurrent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("swap exercised via the unix path only in this suite")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReleaseIndex{Version: "1.0.0"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dl := &fakeDownloader{}
	u := NewUpdater(New(srv.URL), dl, t.TempDir(), "duckctl")

	result, err := u.CheckAndApply(context.Background(), "1.0.0", filepath.Join(t.TempDir(), "duckctl"), false)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Zero(t, dl.calls)
}

func TestCheckAndApplyDownloadsAndSwapsOnNewerVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("swap exercised via the unix path only in this suite")
	}
	platform, arch := CurrentPlatformArch()
	assetName := "duckctl-" + platform + "-" + arch

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReleaseIndex{
			Version: "2.0.0",
			Assets:  []ReleaseAsset{{Name: assetName, URL: "https://example.com/" + assetName}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	exePath := filepath.Join(dir, "duckctl")
	require.NoError(t, os.WriteFile(exePath, []byte("old"), 0o755))

	dl := &fakeDownloader{content: "new binary"}
	u := NewUpdater(New(srv.URL), dl, t.TempDir(), "duckctl")

	result, err := u.CheckAndApply(context.Background(), "1.0.0", exePath, false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 1, dl.calls)

	got, err := os.ReadFile(exePath)
	require.NoError(t, err)
	assert.Equal(t, "new binary", string(got))
}
