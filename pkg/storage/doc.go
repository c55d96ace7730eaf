/*
Package storage implements duckctl's persistence actor (C1): a single
goroutine owning the one *sql.DB connection to an embedded DuckDB
database, serving config, backup, scheduled-task, and download-task
operations sent to it as request messages over a buffered channel.

# Why an actor

DuckDB, like the embedded analytic database this design is modeled on,
is not built for concurrent writers from multiple connections against
one file. Rather than guard every call site with a mutex, a single
goroutine (Actor.run) owns the *sql.DB exclusively and every other
component talks to it through a Handle, a cheap copy of the send side
of the request channel. Requests are served strictly in arrival order;
each carries its own one-shot reply channel.

# Schema

schema.sql is embedded at build time and split into individual
statements by splitStatements, a tokenizer that respects quoted strings
and brace-balanced literals so a ';' inside either is not mistaken for
a statement boundary. It runs on every Actor start; every statement is
IF NOT EXISTS, so re-running it against an already-initialized database
is a no-op.

# Errors

Error and Kind implement the cross-cutting error taxonomy used by every
component in this repository, not just storage: Io, Schema, NotFound,
Conflict, Network, HttpStatus, HashMismatch, Api, Auth, DockerEngine,
ServiceState, Timeout, Cancelled, Custom. Retryable errors (lock/busy)
are retried with exponential backoff, bounded at 3 attempts.
*/
package storage
