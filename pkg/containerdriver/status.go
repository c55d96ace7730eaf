package containerdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// GetServicesStatus reports the runtime status of every service
// declared in the compose file. A declared service with no matching
// container is reported Stopped (spec §4.5).
func (d *Driver) GetServicesStatus(ctx context.Context) ([]ServiceStatus, error) {
	f, env, err := d.loadComposeFile()
	if err != nil {
		return nil, err
	}

	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, storage.Wrap(storage.KindDockerEngine, "containerdriver.GetServicesStatus", err)
	}

	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	out := make([]ServiceStatus, 0, len(names))
	for _, name := range names {
		svc := f.Services[name]
		c := matchContainer(containers, name)
		status := ServiceStatus{Name: name, Image: env.Expand(svc.Image)}
		if c == nil {
			status.Status = StatusStopped
			out = append(out, status)
			continue
		}
		status.Status = runtimeStatusOf(c.State)
		status.Ports = formatPorts(c.Ports)
		if status.Image == "" {
			status.Image = c.Image
		}
		out = append(out, status)
	}
	return out, nil
}

// GetAllContainersStatus includes containers not declared in the
// compose file at all (spec §4.5).
func (d *Driver) GetAllContainersStatus(ctx context.Context) ([]ServiceStatus, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, storage.Wrap(storage.KindDockerEngine, "containerdriver.GetAllContainersStatus", err)
	}
	out := make([]ServiceStatus, 0, len(containers))
	for _, c := range containers {
		out = append(out, ServiceStatus{
			Name:   containerDisplayName(c),
			Status: runtimeStatusOf(c.State),
			Image:  c.Image,
			Ports:  formatPorts(c.Ports),
		})
	}
	return out, nil
}

// CheckServicesHealth returns an error listing every declared service
// that is not Running (spec §4.5).
func (d *Driver) CheckServicesHealth(ctx context.Context) error {
	statuses, err := d.GetServicesStatus(ctx)
	if err != nil {
		return err
	}
	var unhealthy []string
	for _, s := range statuses {
		if s.Status != StatusRunning {
			unhealthy = append(unhealthy, fmt.Sprintf("%s=%s", s.Name, s.Status))
		}
	}
	if len(unhealthy) > 0 {
		return storage.Wrap(storage.KindServiceState, "containerdriver.CheckServicesHealth",
			fmt.Errorf("unhealthy services: %s", strings.Join(unhealthy, ", ")))
	}
	return nil
}

// LoadImage performs the docker-load equivalent, returning the image
// reference as reported by the engine.
func (d *Driver) LoadImage(ctx context.Context, tarPath string) (string, error) {
	f, err := openForLoad(tarPath)
	if err != nil {
		return "", storage.Wrap(storage.KindIo, "containerdriver.LoadImage", err)
	}
	defer f.Close()

	resp, err := d.cli.ImageLoad(ctx, f, image.LoadOptions{})
	if err != nil {
		return "", storage.Wrap(storage.KindDockerEngine, "containerdriver.LoadImage", err)
	}
	defer resp.Body.Close()

	ref, err := parseLoadedReference(resp.Body)
	if err != nil {
		return "", storage.Wrap(storage.KindDockerEngine, "containerdriver.LoadImage", err)
	}
	return ref, nil
}

// RetagImage applies target as a new tag for source, leaving source in
// place (spec §4.6.3's "apply the new tag").
func (d *Driver) RetagImage(ctx context.Context, source, target string) error {
	if err := d.cli.ImageTag(ctx, source, target); err != nil {
		return storage.Wrap(storage.KindDockerEngine, "containerdriver.RetagImage", err)
	}
	return nil
}

// ImageExists reports whether the engine has an image matching ref.
func (d *Driver) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, err := d.cli.ImageInspect(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, storage.Wrap(storage.KindDockerEngine, "containerdriver.ImageExists", err)
	}
	return true, nil
}

func matchContainer(containers []container.Summary, service string) *container.Summary {
	for i := range containers {
		for _, n := range containers[i].Names {
			if ServiceNameMatches(n, service) {
				return &containers[i]
			}
		}
	}
	return nil
}

// ServiceNameMatches reports whether containerName names an instance
// of service, accepting both a bare name and a docker-compose-assigned
// name (compose v2 "<project>-<service>-<index>", compose v1
// "<project>_<service>_<index>"). Exported so callers outside this
// package (orchestrator's port-conflict arbitration) can recognize a
// live container as "the declared service" the same way
// GetServicesStatus does, instead of only matching an exact name.
func ServiceNameMatches(containerName, service string) bool {
	trimmed := strings.TrimPrefix(containerName, "/")
	if trimmed == service {
		return true
	}
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '_' })
	for _, p := range parts {
		if p == service {
			return true
		}
	}
	return false
}

func containerDisplayName(c container.Summary) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	return c.ID[:min(12, len(c.ID))]
}

func runtimeStatusOf(state string) ServiceRuntimeStatus {
	switch state {
	case "running":
		return StatusRunning
	case "exited", "dead", "created", "paused":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

func formatPorts(ports []container.Port) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.PublicPort == 0 {
			out = append(out, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
			continue
		}
		out = append(out, fmt.Sprintf("%d:%d/%s", p.PublicPort, p.PrivatePort, p.Type))
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
