package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/storage"
)

func newTestManager(t *testing.T, mirrorPath string) *Manager {
	t.Helper()
	a, err := storage.NewMemoryActor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return New(a.Handle(), mirrorPath)
}

func TestGetAutoBackupConfigDefaultsWhenUnset(t *testing.T) {
	m := newTestManager(t, "")
	cfg, err := m.GetAutoBackupConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, defaultCronExpression, cfg.CronExpression)
	assert.Equal(t, defaultMaxFailures, cfg.MaxFailures)
	assert.Nil(t, cfg.LastBackupAt)
	assert.Zero(t, cfg.ConsecutiveFailures)
}

func TestSetAutoBackupCronRejectsWrongFieldCount(t *testing.T) {
	m := newTestManager(t, "")
	err := m.SetAutoBackupCron(context.Background(), "* * *")
	require.Error(t, err)
}

func TestSetAutoBackupCronRejectsEmptyField(t *testing.T) {
	m := newTestManager(t, "")
	err := m.SetAutoBackupCron(context.Background(), "*  * * * *")
	require.Error(t, err)
}

func TestSetAutoBackupCronPersistsValidExpression(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")
	require.NoError(t, m.SetAutoBackupCron(ctx, "30 3 * * *"))
	cfg, err := m.GetAutoBackupConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "30 3 * * *", cfg.CronExpression)
}

func TestRecordBackupResultResetsStreakOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")
	require.NoError(t, m.RecordBackupResult(ctx, time.Now(), false))
	require.NoError(t, m.RecordBackupResult(ctx, time.Now(), false))
	cfg, err := m.GetAutoBackupConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ConsecutiveFailures)

	require.NoError(t, m.RecordBackupResult(ctx, time.Now(), true))
	cfg, err = m.GetAutoBackupConfig(ctx)
	require.NoError(t, err)
	assert.Zero(t, cfg.ConsecutiveFailures)
	assert.NotNil(t, cfg.LastBackupAt)
}

func TestMirrorWritesConfigToml(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mirrorPath := filepath.Join(dir, "config.toml")
	m := newTestManager(t, mirrorPath)

	require.NoError(t, m.SetAutoBackupEnabled(ctx, false))

	b, err := os.ReadFile(mirrorPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "enabled = false")
}

func TestValidateCronExpressionAcceptsStandardForm(t *testing.T) {
	assert.NoError(t, ValidateCronExpression("0 2 * * *"))
	assert.NoError(t, ValidateCronExpression("*/5 * * * *"))
}
