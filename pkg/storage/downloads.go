package storage

import (
	"context"
	"database/sql"

	"github.com/duckclient/duck-cli/pkg/types"
)

// CreateDownloadTask inserts a new download task row in Pending status.
func (h *Handle) CreateDownloadTask(ctx context.Context, taskName, url, targetPath string, totalSize int64) (int64, error) {
	return send[int64](ctx, h.requests, "CreateDownloadTask", func(db *sql.DB) (any, error) {
		row := db.QueryRow(
			`INSERT INTO download_tasks (task_name, url, total_size, target_path, status) VALUES (?, ?, ?, ?, ?) RETURNING id`,
			taskName, url, totalSize, targetPath, string(types.DownloadStatusPending),
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			return nil, Wrap(KindIo, "CreateDownloadTask", err)
		}
		return id, nil
	})
}

// UpdateDownloadTaskStatus updates progress and status for a download
// in flight.
func (h *Handle) UpdateDownloadTaskStatus(ctx context.Context, id int64, status types.DownloadStatus, downloadedSize int64, errMsg string) error {
	_, err := send[struct{}](ctx, h.requests, "UpdateDownloadTaskStatus", func(db *sql.DB) (any, error) {
		res, err := db.Exec(
			`UPDATE download_tasks SET status = ?, downloaded_size = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), downloadedSize, errMsg, id,
		)
		if err != nil {
			return nil, Wrap(KindIo, "UpdateDownloadTaskStatus", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, Wrap(KindNotFound, "UpdateDownloadTaskStatus", sql.ErrNoRows)
		}
		return struct{}{}, nil
	})
	return err
}

// CompleteDownloadTask marks a download as Completed, recording its
// final hash, average speed, and duration.
func (h *Handle) CompleteDownloadTask(ctx context.Context, id int64, fileHash string, avgSpeed float64, durationMS int64) error {
	_, err := send[struct{}](ctx, h.requests, "CompleteDownloadTask", func(db *sql.DB) (any, error) {
		res, err := db.Exec(
			`UPDATE download_tasks SET status = ?, file_hash = ?, avg_speed = ?, duration_ms = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(types.DownloadStatusCompleted), fileHash, avgSpeed, durationMS, id,
		)
		if err != nil {
			return nil, Wrap(KindIo, "CompleteDownloadTask", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, Wrap(KindNotFound, "CompleteDownloadTask", sql.ErrNoRows)
		}
		return struct{}{}, nil
	})
	return err
}

// GetDownloadTask resolves a single download task by ID.
func (h *Handle) GetDownloadTask(ctx context.Context, id int64) (types.DownloadTask, error) {
	return send[types.DownloadTask](ctx, h.requests, "GetDownloadTask", func(db *sql.DB) (any, error) {
		row := db.QueryRow(
			`SELECT id, task_name, url, total_size, downloaded_size, target_path, file_hash, status, avg_speed, duration_ms, error_message, created_at, updated_at FROM download_tasks WHERE id = ?`,
			id,
		)
		var t types.DownloadTask
		var st string
		var fileHash, errMsg sql.NullString
		var avgSpeed sql.NullFloat64
		var durationMS sql.NullInt64
		switch err := row.Scan(&t.ID, &t.TaskName, &t.URL, &t.TotalSize, &t.DownloadedSize, &t.TargetPath, &fileHash, &st, &avgSpeed, &durationMS, &errMsg, &t.CreatedAt, &t.UpdatedAt); err {
		case nil:
			t.Status = types.DownloadStatus(st)
			t.FileHash = fileHash.String
			t.ErrorMessage = errMsg.String
			t.AvgSpeed = avgSpeed.Float64
			t.DurationMS = durationMS.Int64
			return t, nil
		case sql.ErrNoRows:
			return nil, Wrap(KindNotFound, "GetDownloadTask", sql.ErrNoRows)
		default:
			return nil, Wrap(KindIo, "GetDownloadTask", err)
		}
	})
}
