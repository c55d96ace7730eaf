/*
Package containerdriver is the thin contract over a running Docker
engine and its compose project (spec §4.5): status queries, start/stop,
image load, and logs. Status and image load/retag go straight over the
engine's local socket via github.com/docker/docker/client; compose
lifecycle (up/down/restart) and logs shell out to the docker compose CLI the
same way the teacher's pkg/embedded shells out to an external binary
rather than reimplementing its protocol.
*/
package containerdriver

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/compose"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// engine is the narrow subset of *client.Client the driver needs,
// capability-scoped so tests can supply a fake engine instead of
// requiring a live Docker daemon (spec §9's polymorphism note).
type engine interface {
	Ping(ctx context.Context) (system.Ping, error)
	ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error)
	ImageLoad(ctx context.Context, input io.Reader, opts image.LoadOptions) (image.LoadResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImageInspect(ctx context.Context, ref string) (image.InspectResponse, error)
	Close() error
}

// ServiceRuntimeStatus mirrors types.ServiceRuntimeStatus without
// importing pkg/types, keeping this package's public surface
// self-contained; callers convert at the boundary.
type ServiceRuntimeStatus string

const (
	StatusRunning ServiceRuntimeStatus = "Running"
	StatusStopped ServiceRuntimeStatus = "Stopped"
	StatusUnknown ServiceRuntimeStatus = "Unknown"
)

// ServiceStatus is one compose-declared or ad-hoc container's observed state.
type ServiceStatus struct {
	Name   string
	Status ServiceRuntimeStatus
	Image  string
	Ports  []string
}

// Driver drives a single compose project's lifecycle and inspects the
// Docker engine it runs under.
type Driver struct {
	cli           engine
	composeFile   string
	workDir       string
	logger        zerolog.Logger
	readyInterval time.Duration
	readyTimeout  time.Duration
}

// DefaultReadyInterval and DefaultReadyTimeout govern the readiness
// poll after start_services (spec §4.5).
const (
	DefaultReadyInterval = 2 * time.Second
	DefaultReadyTimeout  = 2 * time.Minute
)

// New constructs a Driver for the compose project rooted at workDir
// with compose file composeFile (absolute or workDir-relative), talking
// to the engine over its default local socket.
func New(workDir, composeFile string) (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, storage.Wrap(storage.KindDockerEngine, "containerdriver.New", err)
	}
	return newWithEngine(cli, workDir, composeFile), nil
}

// newWithEngine builds a Driver against an arbitrary engine
// implementation, letting tests supply a fake in place of a live daemon.
func newWithEngine(cli engine, workDir, composeFile string) *Driver {
	return &Driver{
		cli:           cli,
		composeFile:   composeFile,
		workDir:       workDir,
		logger:        log.WithComponent("containerdriver"),
		readyInterval: DefaultReadyInterval,
		readyTimeout:  DefaultReadyTimeout,
	}
}

// Close releases the underlying engine client.
func (d *Driver) Close() error {
	return d.cli.Close()
}

// CheckDockerStatus confirms engine reachability with a single ping.
// Every ping failure is returned as a DockerEngine error; an
// unreachable socket or daemon is not told apart from other failures.
func (d *Driver) CheckDockerStatus(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return storage.Wrap(storage.KindDockerEngine, "containerdriver.CheckDockerStatus", err)
	}
	return nil
}

func (d *Driver) runCompose(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"compose", "-f", d.composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", full...)
	cmd.Dir = d.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		d.logger.Error().Str("args", strings.Join(full, " ")).Err(err).Bytes("output", out).Msg("docker compose command failed")
		return string(out), storage.Wrap(storage.KindDockerEngine, "containerdriver.runCompose", err)
	}
	return string(out), nil
}

// StartServices runs `docker compose up -d` and waits for readiness
// (spec §4.5).
func (d *Driver) StartServices(ctx context.Context) error {
	if _, err := d.runCompose(ctx, "up", "-d"); err != nil {
		return err
	}
	return d.WaitReady(ctx, d.readyInterval, d.readyTimeout)
}

// StopServices runs `docker compose down`.
func (d *Driver) StopServices(ctx context.Context) error {
	_, err := d.runCompose(ctx, "down")
	return err
}

// RestartServices runs `docker compose restart`.
func (d *Driver) RestartServices(ctx context.Context) error {
	_, err := d.runCompose(ctx, "restart")
	return err
}

// RestartService runs `docker compose restart <name>`.
func (d *Driver) RestartService(ctx context.Context, name string) error {
	_, err := d.runCompose(ctx, "restart", name)
	return err
}

// GetLogs returns logs for a single service (or the whole project when
// service is empty), optionally limited to the last tail lines.
func (d *Driver) GetLogs(ctx context.Context, service string, tail int) (string, error) {
	args := []string{"logs", "--no-color"}
	if tail > 0 {
		args = append(args, "--tail", fmt.Sprintf("%d", tail))
	}
	if service != "" {
		args = append(args, service)
	}
	return d.runCompose(ctx, args...)
}

// IsFullyStopped implements pkg/backup.StackController: it reports
// whether every declared service is Stopped, and which ones are not.
func (d *Driver) IsFullyStopped(ctx context.Context) (bool, []string, error) {
	statuses, err := d.GetServicesStatus(ctx)
	if err != nil {
		return false, nil, err
	}
	var running []string
	for _, s := range statuses {
		if s.Status != StatusStopped {
			running = append(running, s.Name)
		}
	}
	return len(running) == 0, running, nil
}

func (d *Driver) loadComposeFile() (compose.File, compose.Environment, error) {
	f, err := compose.Load(d.composeFile)
	if err != nil {
		return compose.File{}, compose.Environment{}, err
	}
	env, err := compose.LoadEnvironment(d.composeFile)
	if err != nil {
		return compose.File{}, compose.Environment{}, err
	}
	return f, env, nil
}
