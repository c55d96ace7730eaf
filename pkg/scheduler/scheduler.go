package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/backup"
	"github.com/duckclient/duck-cli/pkg/config"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/types"
)

// backupCreator is the narrow capability AutoBackupScheduler needs from
// the backup engine.
type backupCreator interface {
	Create(ctx context.Context, req backup.CreateRequest) (types.BackupRecord, error)
}

// AutoBackupScheduler runs the configured auto-backup cron (spec §4.7)
// on an internal tick, following the teacher's ticker+stopCh loop
// shape (the original container Scheduler.run).
type AutoBackupScheduler struct {
	cfg      *config.Manager
	stack    backup.StackController
	backups  backupCreator
	dataDirs []string
	version  func() string

	logger zerolog.Logger
	mu     sync.Mutex
	stopCh chan struct{}
}

// NewAutoBackupScheduler builds a scheduler. version returns the
// currently-installed service version at call time, used to tag each
// backup's ServiceVersion.
func NewAutoBackupScheduler(cfg *config.Manager, stack backup.StackController, backups backupCreator, dataDirs []string, version func() string) *AutoBackupScheduler {
	return &AutoBackupScheduler{
		cfg:      cfg,
		stack:    stack,
		backups:  backups,
		dataDirs: dataDirs,
		version:  version,
		logger:   log.WithComponent("auto-backup-scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (s *AutoBackupScheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop ends the polling loop. Does not wait for an in-flight RunNow.
func (s *AutoBackupScheduler) Stop() {
	close(s.stopCh)
}

// run polls once a minute and fires RunNow when the configured cron
// expression is due. Missed ticks (e.g. process was down) are not
// replayed; the next due check simply fires at the next minute.
func (s *AutoBackupScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun time.Time
	for {
		select {
		case now := <-ticker.C:
			if s.due(ctx, now, &lastRun) {
				lastRun = now
				if err := s.RunNow(ctx); err != nil {
					s.logger.Error().Err(err).Msg("auto-backup run failed")
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *AutoBackupScheduler) due(ctx context.Context, now time.Time, lastRun *time.Time) bool {
	cfg, err := s.cfg.GetAutoBackupConfig(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load auto-backup config")
		return false
	}
	if !cfg.Enabled {
		return false
	}
	sched, err := cron.ParseStandard(cfg.CronExpression)
	if err != nil {
		s.logger.Error().Err(err).Str("cron", cfg.CronExpression).Msg("invalid cron expression, skipping tick")
		return false
	}
	base := *lastRun
	if base.IsZero() {
		base = now.Add(-time.Minute)
	}
	return !sched.Next(base).After(now)
}

// RunNow executes one backup cycle immediately (spec §4.7's explicit
// "run now" entry point), independent of the cron schedule: if the
// stack is running it is stopped, backed up, and restarted regardless
// of backup outcome; if already stopped, the backup runs directly.
func (s *AutoBackupScheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped, _, err := s.stack.IsFullyStopped(ctx)
	if err != nil {
		_ = s.cfg.RecordBackupResult(ctx, time.Now(), false)
		return err
	}

	stoppedByUs := false
	if !stopped {
		if err := s.stack.StopServices(ctx); err != nil {
			_ = s.cfg.RecordBackupResult(ctx, time.Now(), false)
			return err
		}
		stoppedByUs = true
	}

	_, backupErr := s.backups.Create(ctx, backup.CreateRequest{
		BackupType:     types.BackupTypeManual,
		ServiceVersion: s.version(),
		SourceDirs:     s.dataDirs,
	})

	if stoppedByUs {
		if err := s.stack.StartServices(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to restart stack after auto-backup")
		}
	}

	success := backupErr == nil
	if err := s.cfg.RecordBackupResult(ctx, time.Now(), success); err != nil {
		s.logger.Error().Err(err).Msg("failed to record auto-backup result")
	}
	return backupErr
}
