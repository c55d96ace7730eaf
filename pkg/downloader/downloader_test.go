package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/types"
)

func rangeServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/d.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)
			return
		}
		if rh := r.Header.Get("Range"); rh != "" {
			var start int
			fmt.Sscanf(rh, "bytes=%d-", &start)
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(data)-1, len(data)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(data[start:])
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
	return httptest.NewServer(mux)
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func TestFreshDownloadVerifiesHashAndRemovesSidecar(t *testing.T) {
	data := make([]byte, 2<<20)
	_, _ = rand.Read(data)
	srv := rangeServer(t, data)
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "docker.zip")

	d := New()
	var lastStatus types.DownloadProgressStatus
	err := d.Download(context.Background(), Request{
		URL: srv.URL + "/d.bin", TargetPath: target, ExpectedHash: sha256Hex(data), Version: "1.0.0",
	}, func(p types.DownloadProgress) { lastStatus = p.Status })
	require.NoError(t, err)
	assert.Equal(t, types.ProgressCompleted, lastStatus)

	_, err = os.Stat(sidecarPath(target))
	assert.True(t, os.IsNotExist(err))
}

func TestResumePartialFileProducesIdenticalBytes(t *testing.T) {
	data := make([]byte, 5<<20)
	_, _ = rand.Read(data)
	srv := rangeServer(t, data)
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "docker.zip")

	splitPoint := 2 << 20
	require.NoError(t, os.WriteFile(target, data[:splitPoint], 0o644))
	require.NoError(t, saveSidecar(target, types.DownloadSidecar{
		URL: srv.URL + "/d.bin", ExpectedSize: int64(len(data)), Version: "1.0.0",
	}))

	d := New()
	d.ResumeThresholdBytes = 1 << 10
	err := d.Download(context.Background(), Request{
		URL: srv.URL + "/d.bin", TargetPath: target, ExpectedHash: sha256Hex(data),
		Version: "1.0.0", ExpectedSize: int64(len(data)),
	}, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestHashMismatchKeepsFileAndSidecarForDiagnostics(t *testing.T) {
	data := []byte("hello world")
	srv := rangeServer(t, data)
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "docker.zip")

	d := New()
	err := d.Download(context.Background(), Request{
		URL: srv.URL + "/d.bin", TargetPath: target, ExpectedHash: strings.Repeat("0", 64), Version: "1.0.0",
	}, nil)
	require.Error(t, err)

	_, statErr := os.Stat(target)
	assert.NoError(t, statErr)
	_, sidecarErr := os.Stat(sidecarPath(target))
	assert.NoError(t, sidecarErr)
}

func TestZeroByteDownloadSucceedsWithNoSidecar(t *testing.T) {
	var data []byte
	srv := rangeServer(t, data)
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "empty.bin")

	d := New()
	err := d.Download(context.Background(), Request{
		URL: srv.URL + "/d.bin", TargetPath: target, ExpectedHash: sha256Hex(data), Version: "1.0.0",
	}, nil)
	require.NoError(t, err)

	_, err = os.Stat(sidecarPath(target))
	assert.True(t, os.IsNotExist(err))
}
