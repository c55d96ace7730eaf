package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/backup"
	"github.com/duckclient/duck-cli/pkg/config"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

type fakeStack struct {
	stopped    bool
	stopErr    error
	startErr   error
	stopCalls  int
	startCalls int
}

func (f *fakeStack) IsFullyStopped(ctx context.Context) (bool, []string, error) {
	if f.stopped {
		return true, nil, nil
	}
	return false, []string{"web"}, nil
}

func (f *fakeStack) StopServices(ctx context.Context) error {
	f.stopCalls++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = true
	return nil
}

func (f *fakeStack) StartServices(ctx context.Context) error {
	f.startCalls++
	return f.startErr
}

type fakeBackups struct {
	createErr error
	calls     int
	lastReq   backup.CreateRequest
}

func (f *fakeBackups) Create(ctx context.Context, req backup.CreateRequest) (types.BackupRecord, error) {
	f.calls++
	f.lastReq = req
	if f.createErr != nil {
		return types.BackupRecord{}, f.createErr
	}
	return types.BackupRecord{ID: 7, ServiceVersion: req.ServiceVersion}, nil
}

func newTestConfig(t *testing.T) *config.Manager {
	t.Helper()
	a, err := storage.NewMemoryActor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return config.New(a.Handle(), "")
}

func TestRunNowStopsAndRestartsWhenStackRunning(t *testing.T) {
	cfg := newTestConfig(t)
	stack := &fakeStack{}
	backups := &fakeBackups{}
	s := NewAutoBackupScheduler(cfg, stack, backups, []string{"/data"}, func() string { return "1.2.3" })

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, stack.stopCalls)
	assert.Equal(t, 1, backups.calls)
	assert.Equal(t, "1.2.3", backups.lastReq.ServiceVersion)
}

func TestRunNowSkipsStopWhenAlreadyStopped(t *testing.T) {
	cfg := newTestConfig(t)
	stack := &fakeStack{stopped: true}
	backups := &fakeBackups{}
	s := NewAutoBackupScheduler(cfg, stack, backups, []string{"/data"}, func() string { return "1.2.3" })

	require.NoError(t, s.RunNow(context.Background()))
	assert.Zero(t, stack.stopCalls)
	assert.Equal(t, 1, backups.calls)
}

func TestRunNowRestartsEvenWhenBackupFails(t *testing.T) {
	cfg := newTestConfig(t)
	stack := &fakeStack{}
	backups := &fakeBackups{createErr: assertError("disk full")}
	s := NewAutoBackupScheduler(cfg, stack, backups, []string{"/data"}, func() string { return "1.2.3" })

	err := s.RunNow(context.Background())
	require.Error(t, err)

	// the stack this run stopped is restarted despite the backup
	// failure, and the failure streak is recorded.
	assert.Equal(t, 1, stack.startCalls)
	got, cfgErr := cfg.GetAutoBackupConfig(context.Background())
	require.NoError(t, cfgErr)
	assert.Equal(t, 1, got.ConsecutiveFailures)
}

func TestRunNowRecordsSuccessResetsFailureStreak(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	require.NoError(t, cfg.RecordBackupResult(ctx, time.Now(), false))

	stack := &fakeStack{stopped: true}
	backups := &fakeBackups{}
	s := NewAutoBackupScheduler(cfg, stack, backups, []string{"/data"}, func() string { return "1.0.0" })

	require.NoError(t, s.RunNow(ctx))
	got, err := cfg.GetAutoBackupConfig(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.ConsecutiveFailures)
	assert.NotNil(t, got.LastBackupAt)
}

type stubError string

func (e stubError) Error() string { return string(e) }

func assertError(msg string) error { return stubError(msg) }
