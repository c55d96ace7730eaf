/*
Package backup implements the cold backup/restore engine (C4): tar+gzip
archive creation over a set of source directories, restore into a
target directory, archive verification, and backup-storage-directory
migration. Create is gated by the container driver's "stack fully
stopped" precondition; Restore stops the stack itself before unpacking
(spec §4.4).
*/
package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// StackController is the narrow capability the backup engine needs
// from the container driver: stop/start the stack and confirm it is
// fully stopped. Modeled as an interface per spec §9 so tests can
// supply an in-memory fake instead of a real engine.
type StackController interface {
	IsFullyStopped(ctx context.Context) (bool, []string, error)
	StopServices(ctx context.Context) error
	StartServices(ctx context.Context) error
}

// Engine creates, restores, and verifies backup archives, and records
// them via a storage.Handle.
type Engine struct {
	store     *storage.Handle
	stack     StackController
	backupDir string
}

func New(store *storage.Handle, stack StackController, backupDir string) *Engine {
	return &Engine{store: store, stack: stack, backupDir: backupDir}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	BackupType            types.BackupType
	ServiceVersion        string
	SourceDirs            []string
	CompressionLevel      int // 0 = gzip.DefaultCompression
}

// Create enforces the "stack fully stopped" precondition, writes a
// gzip-compressed tar archive of SourceDirs, and records the result.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (types.BackupRecord, error) {
	if len(req.SourceDirs) == 0 {
		return types.BackupRecord{}, storage.Wrap(storage.KindConflict, "backup.Create", fmt.Errorf("no source directories given"))
	}
	for _, d := range req.SourceDirs {
		if _, err := os.Stat(d); err != nil {
			return types.BackupRecord{}, storage.Wrap(storage.KindNotFound, "backup.Create", fmt.Errorf("source dir %s: %w", d, err))
		}
	}

	stopped, running, err := e.stack.IsFullyStopped(ctx)
	if err != nil {
		return types.BackupRecord{}, err
	}
	if !stopped {
		return types.BackupRecord{}, storage.Wrap(storage.KindConflict, "backup.Create",
			fmt.Errorf("refusing to back up: containers still running: %v (stop the stack first)", running))
	}

	fileName := fmt.Sprintf("backup_%s_v%s_%s.tar.gz", req.BackupType, req.ServiceVersion, time.Now().UTC().Format("2006-01-02_15-04-05"))
	archivePath := filepath.Join(e.backupDir, fileName)

	if err := os.MkdirAll(e.backupDir, 0o755); err != nil {
		return types.BackupRecord{}, storage.Wrap(storage.KindIo, "backup.Create", err)
	}

	writeErr := writeArchive(archivePath, req.SourceDirs, req.CompressionLevel)
	status := types.BackupStatusCompleted
	if writeErr != nil {
		status = types.BackupStatusFailed
	}

	id, recErr := e.store.CreateBackupRecord(ctx, archivePath, req.ServiceVersion, req.BackupType, status)
	if recErr != nil {
		return types.BackupRecord{}, recErr
	}
	if writeErr != nil {
		return types.BackupRecord{}, storage.Wrap(storage.KindIo, "backup.Create", writeErr)
	}

	return e.store.GetBackup(ctx, id)
}

// RestoreRequest is the input to Restore.
type RestoreRequest struct {
	BackupID       int64
	TargetDir      string
	ForceOverwrite bool
}

// Restore stops the stack, unpacks the archive into TargetDir (removing
// any existing content there, which requires ForceOverwrite), and
// restarts the stack.
func (e *Engine) Restore(ctx context.Context, req RestoreRequest) error {
	rec, err := e.store.GetBackup(ctx, req.BackupID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(rec.FilePath); err != nil {
		return storage.Wrap(storage.KindNotFound, "backup.Restore", fmt.Errorf("archive %s: %w", rec.FilePath, err))
	}

	_, statErr := os.Stat(req.TargetDir)
	targetExists := statErr == nil
	if targetExists && !req.ForceOverwrite {
		return storage.Wrap(storage.KindConflict, "backup.Restore", fmt.Errorf("%s exists; pass force_overwrite", req.TargetDir))
	}

	if err := e.stack.StopServices(ctx); err != nil {
		return err
	}

	if targetExists {
		if err := os.RemoveAll(req.TargetDir); err != nil {
			return storage.Wrap(storage.KindIo, "backup.Restore", err)
		}
	}

	if err := extractArchive(rec.FilePath, req.TargetDir); err != nil {
		return storage.Wrap(storage.KindIo, "backup.Restore", err)
	}

	return e.stack.StartServices(ctx)
}

// Verify walks the archive's entries and succeeds iff enumeration
// completes without error.
func Verify(archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return storage.Wrap(storage.KindNotFound, "backup.Verify", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return storage.Wrap(storage.KindIo, "backup.Verify", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		_, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return storage.Wrap(storage.KindIo, "backup.Verify", err)
		}
	}
}

// MigrateStorageDirectory moves every backup file to newRoot, updating
// the database record's path. File renames use the OS rename where
// possible, falling back to copy+delete across devices.
func (e *Engine) MigrateStorageDirectory(ctx context.Context, newRoot string) error {
	backups, err := e.store.ListBackups(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return storage.Wrap(storage.KindIo, "backup.MigrateStorageDirectory", err)
	}

	for _, b := range backups {
		newPath := filepath.Join(newRoot, filepath.Base(b.FilePath))
		if err := moveFile(b.FilePath, newPath); err != nil {
			return storage.Wrap(storage.KindIo, "backup.MigrateStorageDirectory", fmt.Errorf("backup %d: %w", b.ID, err))
		}
		if err := e.store.UpdateBackupFilePath(ctx, b.ID, newPath); err != nil {
			return err
		}
	}
	e.backupDir = newRoot
	return nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// cross-device fallback: copy then delete.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
