package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
)

const (
	keyAutoBackupEnabled             = "auto_backup.enabled"
	keyAutoBackupCron                = "auto_backup.cron_expression"
	keyAutoBackupLastBackupAt        = "auto_backup.last_backup_at"
	keyAutoBackupConsecutiveFailures = "auto_backup.consecutive_failures"
	keyAutoBackupMaxFailures         = "auto_backup.max_failures"
)

const (
	defaultCronExpression = "0 2 * * *"
	defaultMaxFailures     = 3
)

// AutoBackupConfig is the persisted configuration consulted by
// pkg/scheduler.AutoBackupScheduler on every trigger (spec §4.7).
type AutoBackupConfig struct {
	Enabled             bool
	CronExpression      string
	LastBackupAt        *time.Time
	ConsecutiveFailures int
	MaxFailures         int
}

// autoBackupMirror is the shape written to config.toml; field names are
// intentionally the TOML-friendly lowercase form rather than Go's
// exported AutoBackupConfig names.
type autoBackupMirror struct {
	Enabled             bool   `toml:"enabled"`
	CronExpression      string `toml:"cron_expression"`
	LastBackupAt        string `toml:"last_backup_at,omitempty"`
	ConsecutiveFailures int    `toml:"consecutive_failures"`
	MaxFailures         int    `toml:"max_failures"`
}

// Manager reads and writes typed config values, mirroring the
// auto-backup section into a config.toml file after every mutation
// when MirrorPath is non-empty.
type Manager struct {
	store      *storage.Handle
	mirrorPath string
	logger     zerolog.Logger
}

// New builds a Manager. mirrorPath may be empty to disable the
// config.toml mirror entirely.
func New(store *storage.Handle, mirrorPath string) *Manager {
	return &Manager{store: store, mirrorPath: mirrorPath, logger: log.WithComponent("config")}
}

// GetAutoBackupConfig returns the current auto-backup settings,
// defaulting unset keys the way the original config manager does.
func (m *Manager) GetAutoBackupConfig(ctx context.Context) (AutoBackupConfig, error) {
	cfg := AutoBackupConfig{Enabled: true, CronExpression: defaultCronExpression, MaxFailures: defaultMaxFailures}

	if v, ok, err := m.getString(ctx, keyAutoBackupEnabled); err != nil {
		return cfg, err
	} else if ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v, ok, err := m.getString(ctx, keyAutoBackupCron); err != nil {
		return cfg, err
	} else if ok && v != "" {
		cfg.CronExpression = v
	}
	if v, ok, err := m.getString(ctx, keyAutoBackupLastBackupAt); err != nil {
		return cfg, err
	} else if ok && v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			cfg.LastBackupAt = &t
		}
	}
	if v, ok, err := m.getString(ctx, keyAutoBackupConsecutiveFailures); err != nil {
		return cfg, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConsecutiveFailures = n
		}
	}
	if v, ok, err := m.getString(ctx, keyAutoBackupMaxFailures); err != nil {
		return cfg, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFailures = n
		}
	}
	return cfg, nil
}

// SetAutoBackupEnabled toggles the scheduler on or off.
func (m *Manager) SetAutoBackupEnabled(ctx context.Context, enabled bool) error {
	if err := m.setString(ctx, keyAutoBackupEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	return m.mirror(ctx)
}

// SetAutoBackupCron validates and stores a new five-field cron
// expression (spec §4.7).
func (m *Manager) SetAutoBackupCron(ctx context.Context, expr string) error {
	if err := ValidateCronExpression(expr); err != nil {
		return err
	}
	if err := m.setString(ctx, keyAutoBackupCron, expr); err != nil {
		return err
	}
	return m.mirror(ctx)
}

// RecordBackupResult updates last_backup_at and consecutive_failures
// after a scheduler-driven backup attempt (spec §4.7): success resets
// the streak to 0, failure increments it.
func (m *Manager) RecordBackupResult(ctx context.Context, at time.Time, success bool) error {
	if err := m.setString(ctx, keyAutoBackupLastBackupAt, at.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if success {
		if err := m.setString(ctx, keyAutoBackupConsecutiveFailures, "0"); err != nil {
			return err
		}
	} else {
		cfg, err := m.GetAutoBackupConfig(ctx)
		if err != nil {
			return err
		}
		if err := m.setString(ctx, keyAutoBackupConsecutiveFailures, strconv.Itoa(cfg.ConsecutiveFailures+1)); err != nil {
			return err
		}
	}
	return m.mirror(ctx)
}

// ValidateCronExpression enforces the five-field min/hour/dom/mon/dow
// form, rejecting empty fields (spec §4.7).
func ValidateCronExpression(expr string) error {
	fields := strings.Split(expr, " ")
	for i, f := range fields {
		if f == "" {
			return storage.Wrap(storage.KindConflict, "config.ValidateCronExpression",
				fmt.Errorf("field %d of %q is empty", i, expr))
		}
	}
	if len(fields) != 5 {
		return storage.Wrap(storage.KindConflict, "config.ValidateCronExpression",
			fmt.Errorf("expected 5 fields (min hour dom mon dow), got %d in %q", len(fields), expr))
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return storage.Wrap(storage.KindConflict, "config.ValidateCronExpression", err)
	}
	return nil
}

func (m *Manager) getString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := m.store.GetConfig(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	var s string
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		return "", false, storage.Wrap(storage.KindSchema, "config.getString", err)
	}
	return s, true, nil
}

func (m *Manager) setString(ctx context.Context, key, value string) error {
	b, err := json.Marshal(value)
	if err != nil {
		return storage.Wrap(storage.KindCustom, "config.setString", err)
	}
	return m.store.SetConfig(ctx, key, string(b))
}

// mirror regenerates config.toml from the current auto-backup config.
// Best-effort: a mirror write failure is logged, not propagated, since
// app_config is the source of truth and the toml file is read-only
// documentation for operators.
func (m *Manager) mirror(ctx context.Context) error {
	if m.mirrorPath == "" {
		return nil
	}
	cfg, err := m.GetAutoBackupConfig(ctx)
	if err != nil {
		return err
	}
	out := autoBackupMirror{
		Enabled:             cfg.Enabled,
		CronExpression:      cfg.CronExpression,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
		MaxFailures:         cfg.MaxFailures,
	}
	if cfg.LastBackupAt != nil {
		out.LastBackupAt = cfg.LastBackupAt.Format(time.RFC3339)
	}

	b, err := toml.Marshal(struct {
		AutoBackup autoBackupMirror `toml:"auto_backup"`
	}{AutoBackup: out})
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to marshal config.toml mirror")
		return nil
	}
	if err := writeFileAtomic(m.mirrorPath, b); err != nil {
		m.logger.Warn().Err(err).Str("path", m.mirrorPath).Msg("failed to write config.toml mirror")
	}
	return nil
}

// writeFileAtomic writes to a temp file alongside path and renames it
// into place, avoiding a reader ever observing a half-written mirror.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
