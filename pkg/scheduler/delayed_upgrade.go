package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/lock"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/orchestrator"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// DeploymentRunner is the narrow capability DelayedUpgradeScheduler
// needs from the deployment orchestrator.
type DeploymentRunner interface {
	Run(ctx context.Context, req orchestrator.UpgradeRequest) types.UpgradeResult
}

var unitDurations = map[string]time.Duration{
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
}

// pendingRun tracks the single in-flight wait goroutine so a later
// ScheduleDelayedDeploy or Resume call can supersede it cleanly: the
// storage layer already cancels the previous task's row
// (CreateScheduledTask's Pending -> Cancelled rewrite), but without
// this the superseded goroutine would still fire its timer, stomp that
// Cancelled row back to InProgress, and run a second deployment
// concurrently with the new one.
type pendingRun struct {
	taskID int64
	cancel context.CancelFunc
}

// DelayedUpgradeScheduler persists a single pending delayed-deploy task
// (spec §4.7) and runs it on its own goroutine once the delay elapses.
type DelayedUpgradeScheduler struct {
	store   *storage.Handle
	runner  DeploymentRunner
	workDir string
	logger  zerolog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}

	mu      sync.Mutex
	current *pendingRun
}

// NewDelayedUpgradeScheduler builds a scheduler whose deployment runs
// are serialized against any other orchestrator invocation in workDir
// via the same advisory lock runDeployment acquires (spec §5: "two
// orchestrator instances must not run concurrently").
func NewDelayedUpgradeScheduler(store *storage.Handle, runner DeploymentRunner, workDir string) *DelayedUpgradeScheduler {
	return &DelayedUpgradeScheduler{
		store:   store,
		runner:  runner,
		workDir: workDir,
		logger:  log.WithComponent("delayed-upgrade-scheduler"),
		stopCh:  make(chan struct{}),
	}
}

// ScheduleDelayedDeploy computes scheduled_at = now + amount*unit,
// persists a Pending ScheduledTask (cancelling any existing Pending
// task of the same type per the storage-layer invariant: at most one
// pending task per task_type), and starts the wait goroutine.
func (s *DelayedUpgradeScheduler) ScheduleDelayedDeploy(ctx context.Context, amount int, unit, targetVersion string) (types.ScheduledTask, error) {
	perUnit, ok := unitDurations[unit]
	if !ok {
		return types.ScheduledTask{}, storage.Wrap(storage.KindConflict, "scheduler.ScheduleDelayedDeploy",
			fmt.Errorf("unknown unit %q, want minutes|hours|days", unit))
	}
	if amount <= 0 {
		return types.ScheduledTask{}, storage.Wrap(storage.KindConflict, "scheduler.ScheduleDelayedDeploy",
			fmt.Errorf("amount must be positive, got %d", amount))
	}

	scheduledAt := time.Now().Add(time.Duration(amount) * perUnit)

	id, err := s.store.CreateScheduledTask(ctx, types.TaskTypeServiceUpgrade, targetVersion, scheduledAt, "")
	if err != nil {
		return types.ScheduledTask{}, err
	}

	task := types.ScheduledTask{
		ID:            id,
		TaskType:      types.TaskTypeServiceUpgrade,
		TargetVersion: targetVersion,
		ScheduledAt:   scheduledAt,
		Status:        types.TaskStatusPending,
	}

	s.startRun(task)

	return task, nil
}

// Resume restarts the wait goroutine for a task left Pending across a
// process restart (e.g. the process crashed before scheduledAt).
func (s *DelayedUpgradeScheduler) Resume(ctx context.Context) error {
	task, err := s.store.GetPendingTaskByType(ctx, types.TaskTypeServiceUpgrade)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}
	s.startRun(*task)
	return nil
}

// startRun cancels whatever wait goroutine is currently tracked as
// pending (if any) and launches a fresh one for task, recording its
// cancel func so a later call can supersede it in turn.
func (s *DelayedUpgradeScheduler) startRun(task types.ScheduledTask) {
	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = &pendingRun{taskID: task.ID, cancel: cancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.waitAndRun(runCtx, task)
}

// stillCurrent reports whether taskID is still the tracked pending run,
// i.e. it was not superseded by a later ScheduleDelayedDeploy/Resume
// call while this goroutine was sleeping.
func (s *DelayedUpgradeScheduler) stillCurrent(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.taskID == taskID
}

func (s *DelayedUpgradeScheduler) clearIfCurrent(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.taskID == taskID {
		s.current = nil
	}
}

// Stop signals every in-flight wait to abandon its sleep and returns
// once they have all exited; a task still Pending in storage is picked
// back up by the next Resume call.
func (s *DelayedUpgradeScheduler) Stop() {
	close(s.stopCh)
	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *DelayedUpgradeScheduler) waitAndRun(ctx context.Context, task types.ScheduledTask) {
	defer s.wg.Done()
	defer s.clearIfCurrent(task.ID)

	timer := time.NewTimer(time.Until(task.ScheduledAt))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return // superseded by a later schedule
	case <-s.stopCh:
		return
	}

	// The timer and the cancel/stop signal can both become ready at
	// once; re-check before touching the lock or the DB row.
	if ctx.Err() != nil || !s.stillCurrent(task.ID) {
		return
	}

	runCtx := context.Background()

	l := lock.New(s.workDir)
	acquired, err := l.TryLock()
	if err != nil {
		s.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to acquire deployment lock for delayed task")
		if uerr := s.store.UpdateTaskStatus(runCtx, task.ID, types.TaskStatusFailed, err.Error()); uerr != nil {
			s.logger.Error().Err(uerr).Int64("task_id", task.ID).Msg("failed to mark delayed task failed")
		}
		return
	}
	if !acquired {
		s.logger.Warn().Int64("task_id", task.ID).Msg("deployment lock held by another duckctl invocation; leaving delayed task pending for the next Resume")
		return
	}
	defer l.Unlock()

	if err := s.store.UpdateTaskStatus(runCtx, task.ID, types.TaskStatusInProgress, ""); err != nil {
		s.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark delayed task in progress")
	}

	result := s.runner.Run(runCtx, orchestrator.UpgradeRequest{CurrentVersion: "", Force: true})

	if result.Success {
		if err := s.store.UpdateTaskStatus(runCtx, task.ID, types.TaskStatusCompleted, ""); err != nil {
			s.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark delayed task completed")
		}
		return
	}
	if err := s.store.UpdateTaskStatus(runCtx, task.ID, types.TaskStatusFailed, result.Error); err != nil {
		s.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark delayed task failed")
	}
}
