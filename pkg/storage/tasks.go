package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/duckclient/duck-cli/pkg/types"
)

// CreateScheduledTask inserts a new Pending task of taskType, first
// cancelling any existing Pending task of the same type within the same
// transaction, enforcing the invariant that at most one Pending task
// exists per task_type (spec §3, Testable Properties).
func (h *Handle) CreateScheduledTask(ctx context.Context, taskType types.TaskType, targetVersion string, scheduledAt time.Time, details string) (int64, error) {
	return send[int64](ctx, h.requests, "CreateScheduledTask", func(db *sql.DB) (any, error) {
		tx, err := db.Begin()
		if err != nil {
			return nil, Wrap(KindIo, "CreateScheduledTask", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(
			`UPDATE scheduled_tasks SET status = ? WHERE task_type = ? AND status = ?`,
			string(types.TaskStatusCancelled), string(taskType), string(types.TaskStatusPending),
		); err != nil {
			return nil, Wrap(KindIo, "CreateScheduledTask", err)
		}

		row := tx.QueryRow(
			`INSERT INTO scheduled_tasks (task_type, target_version, scheduled_at, status, details) VALUES (?, ?, ?, ?, ?) RETURNING id`,
			string(taskType), targetVersion, scheduledAt, string(types.TaskStatusPending), details,
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			return nil, Wrap(KindIo, "CreateScheduledTask", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, Wrap(KindIo, "CreateScheduledTask", err)
		}
		return id, nil
	})
}

// GetPendingTasks returns all tasks currently in Pending status.
func (h *Handle) GetPendingTasks(ctx context.Context) ([]types.ScheduledTask, error) {
	return send[[]types.ScheduledTask](ctx, h.requests, "GetPendingTasks", func(db *sql.DB) (any, error) {
		rows, err := db.Query(
			`SELECT id, task_type, target_version, scheduled_at, status, details, created_at, completed_at FROM scheduled_tasks WHERE status = ?`,
			string(types.TaskStatusPending),
		)
		if err != nil {
			return nil, Wrap(KindIo, "GetPendingTasks", err)
		}
		defer rows.Close()
		return scanScheduledTasks(rows)
	})
}

// GetPendingTaskByType returns the single Pending task of taskType, if any.
func (h *Handle) GetPendingTaskByType(ctx context.Context, taskType types.TaskType) (*types.ScheduledTask, error) {
	return send[*types.ScheduledTask](ctx, h.requests, "GetPendingTaskByType", func(db *sql.DB) (any, error) {
		row := db.QueryRow(
			`SELECT id, task_type, target_version, scheduled_at, status, details, created_at, completed_at FROM scheduled_tasks WHERE status = ? AND task_type = ?`,
			string(types.TaskStatusPending), string(taskType),
		)
		var t types.ScheduledTask
		var tt, st string
		var completedAt sql.NullTime
		switch err := row.Scan(&t.ID, &tt, &t.TargetVersion, &t.ScheduledAt, &st, &t.Details, &t.CreatedAt, &completedAt); err {
		case nil:
			t.TaskType = types.TaskType(tt)
			t.Status = types.TaskStatus(st)
			if completedAt.Valid {
				t.CompletedAt = &completedAt.Time
			}
			return &t, nil
		case sql.ErrNoRows:
			return (*types.ScheduledTask)(nil), nil
		default:
			return nil, Wrap(KindIo, "GetPendingTaskByType", err)
		}
	})
}

// UpdateTaskStatus transitions a scheduled task's status, optionally
// replacing its details and stamping completed_at for terminal states.
func (h *Handle) UpdateTaskStatus(ctx context.Context, id int64, status types.TaskStatus, details string) error {
	_, err := send[struct{}](ctx, h.requests, "UpdateTaskStatus", func(db *sql.DB) (any, error) {
		terminal := status == types.TaskStatusCompleted || status == types.TaskStatusFailed || status == types.TaskStatusCancelled
		var err error
		var res sql.Result
		if terminal {
			res, err = db.Exec(
				`UPDATE scheduled_tasks SET status = ?, details = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
				string(status), details, id,
			)
		} else {
			res, err = db.Exec(
				`UPDATE scheduled_tasks SET status = ?, details = ? WHERE id = ?`,
				string(status), details, id,
			)
		}
		if err != nil {
			return nil, Wrap(KindIo, "UpdateTaskStatus", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, Wrap(KindNotFound, "UpdateTaskStatus", sql.ErrNoRows)
		}
		return struct{}{}, nil
	})
	return err
}

// CancelPendingTasks cancels every Pending task of taskType, used when
// the caller wants to clear a slot without immediately scheduling a
// replacement.
func (h *Handle) CancelPendingTasks(ctx context.Context, taskType types.TaskType) error {
	_, err := send[struct{}](ctx, h.requests, "CancelPendingTasks", func(db *sql.DB) (any, error) {
		_, err := db.Exec(
			`UPDATE scheduled_tasks SET status = ? WHERE task_type = ? AND status = ?`,
			string(types.TaskStatusCancelled), string(taskType), string(types.TaskStatusPending),
		)
		if err != nil {
			return nil, Wrap(KindIo, "CancelPendingTasks", err)
		}
		return struct{}{}, nil
	})
	return err
}

func scanScheduledTasks(rows *sql.Rows) ([]types.ScheduledTask, error) {
	var out []types.ScheduledTask
	for rows.Next() {
		var t types.ScheduledTask
		var tt, st string
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &tt, &t.TargetVersion, &t.ScheduledAt, &st, &t.Details, &t.CreatedAt, &completedAt); err != nil {
			return nil, Wrap(KindIo, "scanScheduledTasks", err)
		}
		t.TaskType = types.TaskType(tt)
		t.Status = types.TaskStatus(st)
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
