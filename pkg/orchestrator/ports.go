package orchestrator

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/duckclient/duck-cli/pkg/containerdriver"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// ContainerLister is the narrow capability CheckPortConflicts needs
// from pkg/containerdriver.Driver to tell a same-service restart apart
// from a true conflict.
type ContainerLister interface {
	GetAllContainersStatus(ctx context.Context) ([]ServiceStatus, error)
}

// ServiceStatus is the subset of containerdriver.ServiceStatus that
// CheckPortConflicts reads, kept as its own type so tests can supply a
// ContainerLister without a live driver.
type ServiceStatus struct {
	Name  string
	Ports []string
}

// PortConflict describes one host port already bound by something
// other than the service that's about to claim it.
type PortConflict struct {
	Port    int
	Service string
}

// CheckPortConflicts attempts to bind every declared host port on both
// 0.0.0.0 and 127.0.0.1. A port whose 127.0.0.1 bind fails is in use; if
// only 0.0.0.0 fails, that's a privilege restriction, logged as a warning
// and treated as available. An in-use port is excused when the engine's
// live container list shows the conflict is just the same service
// restarting; otherwise it is a hard conflict (spec §4.6.7).
func CheckPortConflicts(ctx context.Context, lister ContainerLister, ports []PortToCheck) ([]PortConflict, error) {
	logger := log.WithComponent("orchestrator")
	var conflicts []PortConflict

	for _, p := range ports {
		inUse, privilegeRestricted := probePort(p.HostPort)
		if privilegeRestricted {
			logger.Warn().Int("port", p.HostPort).Msg("could not bind 0.0.0.0 (privilege restriction); treating port as available")
			continue
		}
		if !inUse {
			continue
		}

		excused, err := isExcusedBySameService(ctx, lister, p)
		if err != nil {
			return nil, err
		}
		if excused {
			continue
		}
		conflicts = append(conflicts, PortConflict{Port: p.HostPort, Service: p.ServiceName})
	}
	return conflicts, nil
}

// PortToCheck is one declared host port awaiting a preflight bind test.
type PortToCheck struct {
	HostPort    int
	ServiceName string
}

// probePort returns (inUse, privilegeRestricted). inUse is true whenever
// the 127.0.0.1 bind fails, whatever the 0.0.0.0 result; privilegeRestricted
// is true when only the 0.0.0.0 bind failed.
func probePort(port int) (inUse, privilegeRestricted bool) {
	wildcardOK := tryBind("0.0.0.0", port)
	loopbackOK := tryBind("127.0.0.1", port)
	if wildcardOK && loopbackOK {
		return false, false
	}
	if !wildcardOK && loopbackOK {
		return false, true
	}
	return true, false
}

func tryBind(host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

func isExcusedBySameService(ctx context.Context, lister ContainerLister, p PortToCheck) (bool, error) {
	statuses, err := lister.GetAllContainersStatus(ctx)
	if err != nil {
		return false, storage.Wrap(storage.KindDockerEngine, "orchestrator.CheckPortConflicts", err)
	}
	portStr := strconv.Itoa(p.HostPort) + ":"
	for _, s := range statuses {
		if !containerdriver.ServiceNameMatches(s.Name, p.ServiceName) {
			continue
		}
		for _, bound := range s.Ports {
			if len(bound) >= len(portStr) && bound[:len(portStr)] == portStr {
				return true, nil
			}
		}
	}
	return false, nil
}

// RemediationMessage formats user-facing guidance for a hard port conflict.
func RemediationMessage(c PortConflict) string {
	return fmt.Sprintf("port %d is already in use by something other than %q; stop the conflicting process or change the mapped host port", c.Port, c.Service)
}
