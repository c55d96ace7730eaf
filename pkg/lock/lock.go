/*
Package lock implements the advisory working-directory lock named by
spec.md §5: "two orchestrator instances must not run concurrently
(enforced by advisory lock on the working directory; if the lock-based
approach is unavailable, the app pins orchestrator creation to a single
task)". No example repo in the pack carries a flock-style library (the
closest is the teacher's raft leader-election, a distributed rather than
single-host mechanism), so this is a stdlib os.File plus a platform
Flock implementation, with an in-process sync.Mutex as the documented
fallback for platforms where file locking isn't wired (see DESIGN.md).
*/
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// processMu is the in-process fallback named in spec.md §5: within one
// duckctl process, it is always held alongside the file lock, so a
// platform where the file lock is a no-op still serializes concurrent
// goroutines inside that single process.
var processMu sync.Mutex

// FileLock guards a working directory against a second concurrent
// orchestrator run, file-local per lock.Path.
type FileLock struct {
	path string
	f    *os.File
}

// New builds a FileLock at "<workDir>/.orchestrator.lock".
func New(workDir string) *FileLock {
	return &FileLock{path: filepath.Join(workDir, ".orchestrator.lock")}
}

// TryLock attempts to acquire the lock, returning false (not an error)
// when another process already holds it. The file-lock attempt does not
// block; on platforms where the file lock is a no-op, TryLock instead
// waits on the in-process mutex until it is free.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, storage.Wrap(storage.KindIo, "lock.TryLock", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, storage.Wrap(storage.KindIo, "lock.TryLock", err)
	}

	ok, err := tryFlock(f)
	if err != nil {
		_ = f.Close()
		return false, storage.Wrap(storage.KindIo, "lock.TryLock", err)
	}
	if !ok {
		_ = f.Close()
		return false, nil
	}

	processMu.Lock()
	l.f = f
	_ = f.Truncate(0)
	_, _ = f.WriteString(fmt.Sprintf("%d\n", os.Getpid()))
	return true, nil
}

// Unlock releases the lock. Safe to call on a FileLock that never
// acquired (no-op).
func (l *FileLock) Unlock() error {
	if l.f == nil {
		return nil
	}
	defer processMu.Unlock()
	err := unlockFlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return storage.Wrap(storage.KindIo, "lock.Unlock", err)
	}
	if closeErr != nil {
		return storage.Wrap(storage.KindIo, "lock.Unlock", closeErr)
	}
	return nil
}
