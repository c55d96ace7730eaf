package storage

import (
	"context"
	"database/sql"

	"github.com/duckclient/duck-cli/pkg/types"
)

// CreateBackupRecord inserts a new backup row and returns its generated ID.
func (h *Handle) CreateBackupRecord(ctx context.Context, filePath, serviceVersion string, backupType types.BackupType, status types.BackupStatus) (int64, error) {
	return send[int64](ctx, h.requests, "CreateBackupRecord", func(db *sql.DB) (any, error) {
		row := db.QueryRow(
			`INSERT INTO backups (file_path, service_version, backup_type, status) VALUES (?, ?, ?, ?) RETURNING id`,
			filePath, serviceVersion, string(backupType), string(status),
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			return nil, Wrap(KindIo, "CreateBackupRecord", err)
		}
		return id, nil
	})
}

// ListBackups returns all backup records, most recent first.
func (h *Handle) ListBackups(ctx context.Context) ([]types.BackupRecord, error) {
	return send[[]types.BackupRecord](ctx, h.requests, "ListBackups", func(db *sql.DB) (any, error) {
		rows, err := db.Query(`SELECT id, file_path, service_version, backup_type, status, created_at FROM backups ORDER BY created_at DESC`)
		if err != nil {
			return nil, Wrap(KindIo, "ListBackups", err)
		}
		defer rows.Close()

		var out []types.BackupRecord
		for rows.Next() {
			var b types.BackupRecord
			var bt, st string
			if err := rows.Scan(&b.ID, &b.FilePath, &b.ServiceVersion, &bt, &st, &b.CreatedAt); err != nil {
				return nil, Wrap(KindIo, "ListBackups", err)
			}
			b.BackupType = types.BackupType(bt)
			b.Status = types.BackupStatus(st)
			out = append(out, b)
		}
		return out, rows.Err()
	})
}

// GetBackup resolves a single backup record by ID.
func (h *Handle) GetBackup(ctx context.Context, id int64) (types.BackupRecord, error) {
	return send[types.BackupRecord](ctx, h.requests, "GetBackup", func(db *sql.DB) (any, error) {
		row := db.QueryRow(`SELECT id, file_path, service_version, backup_type, status, created_at FROM backups WHERE id = ?`, id)
		var b types.BackupRecord
		var bt, st string
		switch err := row.Scan(&b.ID, &b.FilePath, &b.ServiceVersion, &bt, &st, &b.CreatedAt); err {
		case nil:
			b.BackupType = types.BackupType(bt)
			b.Status = types.BackupStatus(st)
			return b, nil
		case sql.ErrNoRows:
			return nil, Wrap(KindNotFound, "GetBackup", sql.ErrNoRows)
		default:
			return nil, Wrap(KindIo, "GetBackup", err)
		}
	})
}

// DeleteBackupRecord removes a backup record explicitly (the spec notes
// backup records are "deleted explicitly by user" only).
func (h *Handle) DeleteBackupRecord(ctx context.Context, id int64) error {
	_, err := send[struct{}](ctx, h.requests, "DeleteBackupRecord", func(db *sql.DB) (any, error) {
		res, err := db.Exec(`DELETE FROM backups WHERE id = ?`, id)
		if err != nil {
			return nil, Wrap(KindIo, "DeleteBackupRecord", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, Wrap(KindNotFound, "DeleteBackupRecord", sql.ErrNoRows)
		}
		return struct{}{}, nil
	})
	return err
}

// UpdateBackupFilePath rewrites a backup record's file_path, used when
// migrating the backup storage directory.
func (h *Handle) UpdateBackupFilePath(ctx context.Context, id int64, newPath string) error {
	_, err := send[struct{}](ctx, h.requests, "UpdateBackupFilePath", func(db *sql.DB) (any, error) {
		res, err := db.Exec(`UPDATE backups SET file_path = ? WHERE id = ?`, newPath, id)
		if err != nil {
			return nil, Wrap(KindIo, "UpdateBackupFilePath", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, Wrap(KindNotFound, "UpdateBackupFilePath", sql.ErrNoRows)
		}
		return struct{}{}, nil
	})
	return err
}
