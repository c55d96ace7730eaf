package compose

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// File is the subset of a compose file's shape this package parses.
type File struct {
	Services map[string]Service `yaml:"services"`
}

// Service is the subset of a compose service definition needed by the
// orchestrator.
type Service struct {
	Image       string   `yaml:"image"`
	Restart     string   `yaml:"restart"`
	Ports       []string `yaml:"ports"`
	Volumes     []string `yaml:"volumes"`
	ContainerName string `yaml:"container_name"`
}

// Load reads and parses the compose file at path.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, storage.Wrap(storage.KindIo, "compose.Load", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, storage.Wrap(storage.KindSchema, "compose.Load", err)
	}
	return f, nil
}

// LoadEnvironment loads the .env file alongside composePath, if present.
func LoadEnvironment(composePath string) (Environment, error) {
	envPath := filepath.Join(filepath.Dir(composePath), ".env")
	dotenv, err := ParseEnvFile(envPath)
	if err != nil {
		return Environment{}, err
	}
	return NewEnvironment(dotenv), nil
}

// RestartAlwaysLike reports whether a restart policy is always or
// unless-stopped, the two policies spec §4.5's readiness wait treats a
// long-lived service as needing.
func RestartAlwaysLike(restart string) bool {
	switch restart {
	case "always", "unless-stopped":
		return true
	default:
		return false
	}
}

// ParsePorts expands and parses every service's `ports:` entries into
// canonical ComposePort tuples (spec §4.6.5). Re-parsing the same
// compose+env input yields the same tuples in the same order (spec §8,
// "stable across re-parses").
func ParsePorts(f File, env Environment) ([]types.ComposePort, error) {
	var out []types.ComposePort
	names := sortedServiceNames(f)
	for _, name := range names {
		svc := f.Services[name]
		for _, raw := range svc.Ports {
			expanded := env.Expand(raw)
			p, err := parsePortEntry(expanded, name)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func sortedServiceNames(f File) []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parsePortEntry parses a single compose ports entry of the form
// "host:container", "host:container/proto", or a bare "container"
// (ephemeral host port, represented as host_port=0).
func parsePortEntry(entry, service string) (types.ComposePort, error) {
	proto := "tcp"
	body := entry
	if idx := strings.LastIndex(entry, "/"); idx >= 0 {
		body, proto = entry[:idx], entry[idx+1:]
	}

	parts := strings.Split(body, ":")
	var hostStr, containerStr string
	switch len(parts) {
	case 1:
		containerStr = parts[0]
	case 2:
		hostStr, containerStr = parts[0], parts[1]
	default:
		// host-ip:host-port:container-port
		hostStr, containerStr = parts[len(parts)-2], parts[len(parts)-1]
	}

	containerPort, err := strconv.Atoi(strings.TrimSpace(containerStr))
	if err != nil {
		return types.ComposePort{}, storage.Wrap(storage.KindSchema, "compose.parsePortEntry", err)
	}
	hostPort := 0
	if hostStr != "" {
		hostPort, err = strconv.Atoi(strings.TrimSpace(hostStr))
		if err != nil {
			return types.ComposePort{}, storage.Wrap(storage.KindSchema, "compose.parsePortEntry", err)
		}
	}

	return types.ComposePort{
		HostPort: hostPort, ContainerPort: containerPort, Protocol: proto, ServiceName: service,
	}, nil
}

// BindMount is a parsed host-relative volume entry whose host side
// begins with "./".
type BindMount struct {
	ServiceName string
	HostPath    string // relative, e.g. "./data/mysql"
	ContainerPath string
}

// ParseRelativeBindMounts returns every service volume entry whose host
// side is a relative "./..." path, per spec §4.6.8.
func ParseRelativeBindMounts(f File, env Environment) []BindMount {
	var out []BindMount
	for _, name := range sortedServiceNames(f) {
		svc := f.Services[name]
		for _, raw := range svc.Volumes {
			expanded := env.Expand(raw)
			parts := strings.SplitN(expanded, ":", 3)
			if len(parts) < 2 {
				continue
			}
			host := parts[0]
			if !strings.HasPrefix(host, "./") {
				continue
			}
			out = append(out, BindMount{ServiceName: name, HostPath: host, ContainerPath: parts[1]})
		}
	}
	return out
}
