package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for caller-side handling and structured
// logging. It is shared by every component (downloader, API client,
// container driver, orchestrator) rather than duplicated per package,
// since the error taxonomy is a single cross-cutting concern.
type Kind string

const (
	KindIo           Kind = "Io"
	KindSchema       Kind = "Schema"
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindNetwork      Kind = "Network"
	KindHttpStatus   Kind = "HttpStatus"
	KindHashMismatch Kind = "HashMismatch"
	KindApi          Kind = "Api"
	KindAuth         Kind = "Auth"
	KindDockerEngine Kind = "DockerEngine"
	KindServiceState Kind = "ServiceState"
	KindTimeout      Kind = "Timeout"
	KindCancelled    Kind = "Cancelled"
	KindCustom       Kind = "Custom"
)

// Error wraps an underlying cause with a Kind and the operation that
// produced it, so callers can both format a user-facing message and
// errors.Is/errors.As against a Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, storage.ErrNotFound)-style kind checks by
// matching the Kind carried by a sentinel target.
func (e *Error) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == Kind(k)
	}
	return false
}

type kindSentinel Kind

func (k kindSentinel) Error() string { return string(k) }

// Sentinels usable with errors.Is, e.g. errors.Is(err, storage.ErrNotFound).
var (
	ErrNotFound     error = kindSentinel(KindNotFound)
	ErrConflict     error = kindSentinel(KindConflict)
	ErrIo           error = kindSentinel(KindIo)
	ErrSchema       error = kindSentinel(KindSchema)
	ErrNetwork      error = kindSentinel(KindNetwork)
	ErrHttpStatus   error = kindSentinel(KindHttpStatus)
	ErrHashMismatch error = kindSentinel(KindHashMismatch)
	ErrApi          error = kindSentinel(KindApi)
	ErrAuth         error = kindSentinel(KindAuth)
	ErrDockerEngine error = kindSentinel(KindDockerEngine)
	ErrServiceState error = kindSentinel(KindServiceState)
	ErrTimeout      error = kindSentinel(KindTimeout)
	ErrCancelled    error = kindSentinel(KindCancelled)
)

// Wrap builds a *Error of the given kind for op, wrapping err.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsRetryable reports whether err looks like a transient lock/busy
// condition worth a bounded backoff retry at the persistence-actor
// boundary, per spec: retryable errors retry with backoff (<=3
// attempts, 100ms*2^n).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Kind == KindConflict || se.Kind == KindTimeout {
			return true
		}
	}
	msg := err.Error()
	for _, sub := range []string{"database is locked", "busy", "conflicting lock", "could not set lock"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
