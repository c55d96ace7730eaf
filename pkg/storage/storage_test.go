package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/types"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	a, err := NewMemoryActor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a.Handle()
}

func TestSplitStatementsSkipsCommentsAndRespectsQuotes(t *testing.T) {
	script := `
-- a comment only statement
CREATE TABLE t (a VARCHAR DEFAULT 'x;y');
   ;
CREATE TABLE u (b VARCHAR);
`
	stmts := splitStatements(script)
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "'x;y'")
	assert.Contains(t, stmts[1], "CREATE TABLE u")
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	_, ok, err := h.GetConfig(ctx, "client_uuid")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.SetConfig(ctx, "client_uuid", `"abc-123"`))
	v, ok, err := h.GetConfig(ctx, "client_uuid")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"abc-123"`, v)

	require.NoError(t, h.SetConfig(ctx, "client_uuid", `"def-456"`))
	v, ok, err = h.GetConfig(ctx, "client_uuid")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"def-456"`, v)
}

func TestBackupRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	id, err := h.CreateBackupRecord(ctx, "/data/backups/b1.tar.gz", "1.2.0", types.BackupTypeManual, types.BackupStatusCompleted)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := h.GetBackup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/data/backups/b1.tar.gz", got.FilePath)
	assert.Equal(t, types.BackupTypeManual, got.BackupType)

	require.NoError(t, h.UpdateBackupFilePath(ctx, id, "/new/root/b1.tar.gz"))
	got, err = h.GetBackup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/new/root/b1.tar.gz", got.FilePath)

	list, err := h.ListBackups(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, h.DeleteBackupRecord(ctx, id))
	_, err = h.GetBackup(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduledTaskSinglePendingPerType(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	t1 := time.Now().Add(time.Hour)
	id1, err := h.CreateScheduledTask(ctx, types.TaskTypeServiceUpgrade, "1.3.0", t1, "")
	require.NoError(t, err)

	t2 := time.Now().Add(2 * time.Hour)
	id2, err := h.CreateScheduledTask(ctx, types.TaskTypeServiceUpgrade, "1.4.0", t2, "")
	require.NoError(t, err)

	pending, err := h.GetPendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)
	assert.Equal(t, "1.4.0", pending[0].TargetVersion)

	// the first task was transitioned to Cancelled, not deleted.
	byType, err := h.GetPendingTaskByType(ctx, types.TaskTypeServiceUpgrade)
	require.NoError(t, err)
	require.NotNil(t, byType)
	assert.Equal(t, id2, byType.ID)
	_ = id1
}

func TestUpdateTaskStatusLeavesPendingThenCompletes(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	id, err := h.CreateScheduledTask(ctx, types.TaskTypeServiceUpgrade, "1.5.0", time.Now(), "")
	require.NoError(t, err)

	require.NoError(t, h.UpdateTaskStatus(ctx, id, types.TaskStatusInProgress, ""))
	pending, err := h.GetPendingTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 0)

	require.NoError(t, h.UpdateTaskStatus(ctx, id, types.TaskStatusCompleted, "done"))
}

func TestDownloadTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	id, err := h.CreateDownloadTask(ctx, "docker.zip", "https://example.test/d.zip", "/cache/d.zip", 1024)
	require.NoError(t, err)

	require.NoError(t, h.UpdateDownloadTaskStatus(ctx, id, types.DownloadStatusDownloading, 512, ""))
	task, err := h.GetDownloadTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.DownloadStatusDownloading, task.Status)
	assert.Equal(t, int64(512), task.DownloadedSize)

	require.NoError(t, h.CompleteDownloadTask(ctx, id, "deadbeef", 1024.0, 500))
	task, err = h.GetDownloadTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.DownloadStatusCompleted, task.Status)
	assert.Equal(t, "deadbeef", task.FileHash)
}

func TestGetBackupNotFound(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	_, err := h.GetBackup(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
