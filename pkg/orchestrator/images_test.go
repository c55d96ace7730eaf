package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageEngine struct {
	loaded  map[string]string // tarPath -> loaded ref
	exists  map[string]bool
	tagErr  error
	tagged  map[string]string
}

func (f *fakeImageEngine) LoadImage(ctx context.Context, tarPath string) (string, error) {
	return f.loaded[tarPath], nil
}

func (f *fakeImageEngine) RetagImage(ctx context.Context, source, target string) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	if f.tagged == nil {
		f.tagged = map[string]string{}
	}
	f.tagged[source] = target
	return nil
}

func (f *fakeImageEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	return f.exists[ref], nil
}

func TestLoadAndRetagImagesRetagsOnlyArchMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	amd64Tar := filepath.Join(dir, "web-amd64.tar")
	arm64Tar := filepath.Join(dir, "worker-arm64.tar")
	require.NoError(t, os.WriteFile(amd64Tar, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(arm64Tar, []byte("x"), 0o644))

	eng := &fakeImageEngine{
		loaded: map[string]string{amd64Tar: "example/web:latest-amd64"},
		exists: map[string]bool{"example/web:latest-amd64": true},
	}

	out, err := LoadAndRetagImages(context.Background(), eng, dir, "amd64")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "web-amd64.tar", out[0].File)
	assert.True(t, out[0].Retagged)
	assert.Equal(t, "example/web:latest", out[0].RetaggedRef)
	assert.Equal(t, "example/web:latest", eng.tagged["example/web:latest-amd64"])
}

func TestLoadAndRetagImagesSkipsRetagWhenSourceMissing(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "web-amd64.tar")
	require.NoError(t, os.WriteFile(tarPath, []byte("x"), 0o644))

	eng := &fakeImageEngine{
		loaded: map[string]string{tarPath: "example/web:latest-amd64"},
		exists: map[string]bool{}, // not present
	}

	out, err := LoadAndRetagImages(context.Background(), eng, dir, "amd64")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Retagged)
	assert.Empty(t, eng.tagged)
}
