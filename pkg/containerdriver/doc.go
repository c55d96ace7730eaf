/*
Package containerdriver implements the container driver contract (C5,
spec §4.5) over a live Docker engine: status, start/stop/restart,
image load, and logs, plus the readiness-wait poll that start_services
blocks on. The status/load paths talk to the engine directly over
github.com/docker/docker/client; lifecycle commands (up/down/restart)
shell out to the docker compose CLI in the project's working directory,
the same os/exec pattern the teacher uses in pkg/embedded to drive an
external binary instead of reimplementing its wire protocol.
*/
package containerdriver
