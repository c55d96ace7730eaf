package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

type fakeStack struct {
	stopped bool
	running []string
	calls   []string
}

func (f *fakeStack) IsFullyStopped(ctx context.Context) (bool, []string, error) {
	return f.stopped, f.running, nil
}

func (f *fakeStack) StopServices(ctx context.Context) error {
	f.calls = append(f.calls, "stop")
	f.stopped = true
	return nil
}

func (f *fakeStack) StartServices(ctx context.Context) error {
	f.calls = append(f.calls, "start")
	return nil
}

func newTestStore(t *testing.T) *storage.Handle {
	t.Helper()
	a, err := storage.NewMemoryActor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a.Handle()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestCreateRefusesWhenStackRunning(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "appdata")
	writeTree(t, src, map[string]string{"a.txt": "hello"})

	store := newTestStore(t)
	stack := &fakeStack{stopped: false, running: []string{"web-1"}}
	e := New(store, stack, filepath.Join(dir, "backups"))

	_, err := e.Create(context.Background(), CreateRequest{
		BackupType: types.BackupTypeManual, ServiceVersion: "1.0.0", SourceDirs: []string{src},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConflict)

	list, err := store.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 0)
}

func TestCreateRejectsEmptySourceList(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t)
	stack := &fakeStack{stopped: true}
	e := New(store, stack, filepath.Join(dir, "backups"))

	_, err := e.Create(context.Background(), CreateRequest{BackupType: types.BackupTypeManual, ServiceVersion: "1.0.0"})
	require.Error(t, err)
}

func TestBackupThenRestoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "appdata")
	writeTree(t, src, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "world",
	})

	store := newTestStore(t)
	stack := &fakeStack{stopped: true}
	e := New(store, stack, filepath.Join(dir, "backups"))

	rec, err := e.Create(context.Background(), CreateRequest{
		BackupType: types.BackupTypeManual, ServiceVersion: "1.0.0", SourceDirs: []string{src},
	})
	require.NoError(t, err)
	assert.Equal(t, types.BackupStatusCompleted, rec.Status)
	require.NoError(t, Verify(rec.FilePath))

	target := filepath.Join(dir, "restored")
	err = e.Restore(context.Background(), RestoreRequest{BackupID: rec.ID, TargetDir: target})
	require.NoError(t, err)
	assert.Equal(t, []string{"stop", "start"}, stack.calls)

	gotA, err := os.ReadFile(filepath.Join(target, "appdata", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(gotA))

	gotB, err := os.ReadFile(filepath.Join(target, "appdata", "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(gotB))
}

func TestRestoreRequiresForceOverwriteOnExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "appdata")
	writeTree(t, src, map[string]string{"a.txt": "hello"})

	store := newTestStore(t)
	stack := &fakeStack{stopped: true}
	e := New(store, stack, filepath.Join(dir, "backups"))

	rec, err := e.Create(context.Background(), CreateRequest{
		BackupType: types.BackupTypeManual, ServiceVersion: "1.0.0", SourceDirs: []string{src},
	})
	require.NoError(t, err)

	target := filepath.Join(dir, "restored")
	require.NoError(t, os.MkdirAll(target, 0o755))

	err = e.Restore(context.Background(), RestoreRequest{BackupID: rec.ID, TargetDir: target})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConflict)

	err = e.Restore(context.Background(), RestoreRequest{BackupID: rec.ID, TargetDir: target, ForceOverwrite: true})
	require.NoError(t, err)
}

func TestMigrateStorageDirectoryMovesFilesAndUpdatesPaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "appdata")
	writeTree(t, src, map[string]string{"a.txt": "hello"})

	store := newTestStore(t)
	stack := &fakeStack{stopped: true}
	oldRoot := filepath.Join(dir, "backups")
	e := New(store, stack, oldRoot)

	rec, err := e.Create(context.Background(), CreateRequest{
		BackupType: types.BackupTypeManual, ServiceVersion: "1.0.0", SourceDirs: []string{src},
	})
	require.NoError(t, err)

	newRoot := filepath.Join(dir, "new-backups")
	require.NoError(t, e.MigrateStorageDirectory(context.Background(), newRoot))

	updated, err := store.GetBackup(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, filepath.Dir(updated.FilePath) == newRoot)
	_, statErr := os.Stat(updated.FilePath)
	assert.NoError(t, statErr)
}
