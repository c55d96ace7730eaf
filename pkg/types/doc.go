/*
Package types defines the domain model shared by every duckctl component:
client identity, backup/scheduled/download task records, the download
sidecar document, the remote service manifest shape, compose port
tuples, and the deployment orchestrator's state machine types.

None of these types carry behavior beyond small predicates (Registered);
persistence, parsing, and state transitions live in the packages that
consume them (pkg/storage, pkg/compose, pkg/orchestrator, ...).
*/
package types
