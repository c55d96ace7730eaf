package storage

import (
	"context"
	_ "embed"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/cenkalti/backoff/v4"

	"github.com/duckclient/duck-cli/pkg/log"
)

//go:embed schema.sql
var schemaScript string

// request is one message sent to the actor's queue. exec runs inside
// the actor goroutine against the single *sql.DB handle; reply carries
// back whatever exec returns. This is the Go-idiomatic shape of the
// original system's db/actor.rs: instead of one enum variant per
// operation matched in a giant switch, each Handle method builds its
// own closure and the actor simply runs whatever it is handed, one at
// a time, off a buffered channel.
type request struct {
	op    string
	exec  func(*sql.DB) (any, error)
	reply chan response
}

type response struct {
	val any
	err error
}

// Actor owns the single *sql.DB connection to the embedded database and
// serializes every operation through one goroutine, since the engine is
// not designed for concurrent writers from multiple handles (spec
// §4.1). Handle is the cheaply clonable client-side reference other
// components hold.
type Actor struct {
	db       *sql.DB
	requests chan request
	done     chan struct{}
}

const requestQueueDepth = 64

// NewActor opens (creating if absent) a DuckDB file at path, runs the
// schema script, and starts the actor's serving goroutine.
func NewActor(path string) (*Actor, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, Wrap(KindIo, "storage.NewActor", err)
	}
	db.SetMaxOpenConns(1)
	return newActorFromDB(db)
}

// NewMemoryActor opens an in-memory DuckDB database, used by tests and
// by any caller that does not need persistence across process restarts.
func NewMemoryActor() (*Actor, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, Wrap(KindIo, "storage.NewMemoryActor", err)
	}
	db.SetMaxOpenConns(1)
	return newActorFromDB(db)
}

func newActorFromDB(db *sql.DB) (*Actor, error) {
	a := &Actor{
		db:       db,
		requests: make(chan request, requestQueueDepth),
		done:     make(chan struct{}),
	}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	go a.run()
	return a, nil
}

func (a *Actor) initSchema() error {
	for _, stmt := range splitStatements(schemaScript) {
		if _, err := a.db.Exec(stmt); err != nil {
			return Wrap(KindSchema, "storage.initSchema", fmt.Errorf("%s: %w", stmt, err))
		}
	}
	return nil
}

// run is the actor's single serving loop: one request at a time, in
// arrival order, until the queue is closed by Close.
func (a *Actor) run() {
	defer close(a.done)
	for req := range a.requests {
		val, err := a.executeWithRetry(req)
		req.reply <- response{val: val, err: err}
	}
}

// executeWithRetry runs a request at most 3 times, with exponential
// backoff (100ms*2^n) between attempts, when the underlying error looks
// like a transient lock/busy condition, per spec §4.1/§7.
func (a *Actor) executeWithRetry(req request) (any, error) {
	var val any
	op := func() error {
		v, err := req.exec(a.db)
		if err != nil {
			val = nil
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		val = v
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bounded := backoff.WithMaxRetries(bo, 2)

	if err := backoff.Retry(op, bounded); err != nil {
		log.WithComponent("storage").Warn().Str("op", req.op).Err(err).Msg("db operation failed")
		return nil, err
	}
	return val, nil
}

// Close stops accepting new requests and waits for the actor goroutine
// to drain, then closes the underlying connection.
func (a *Actor) Close() error {
	close(a.requests)
	<-a.done
	return a.db.Close()
}

// Handle returns a cheaply clonable client-side handle to the actor.
// Handles hold only the send side of the request channel, mirroring
// the original "DB handle is a send-side of the actor's message
// channel" design note (spec §9).
func (a *Actor) Handle() *Handle {
	return &Handle{requests: a.requests}
}

// send dispatches req and blocks for its reply, honoring ctx
// cancellation on both send and receive.
func send[T any](ctx context.Context, requests chan request, op string, exec func(*sql.DB) (any, error)) (T, error) {
	var zero T
	reply := make(chan response, 1)
	req := request{op: op, exec: exec, reply: reply}

	select {
	case requests <- req:
	case <-ctx.Done():
		return zero, Wrap(KindCancelled, op, ctx.Err())
	}

	select {
	case r := <-reply:
		if r.err != nil {
			return zero, r.err
		}
		if r.val == nil {
			return zero, nil
		}
		v, ok := r.val.(T)
		if !ok {
			return zero, Wrap(KindCustom, op, fmt.Errorf("unexpected reply type %T", r.val))
		}
		return v, nil
	case <-ctx.Done():
		return zero, Wrap(KindCancelled, op, ctx.Err())
	}
}
