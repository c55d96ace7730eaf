package orchestrator

import (
	"context"
	"os"

	"github.com/spf13/afero"

	"github.com/duckclient/duck-cli/pkg/compose"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// PreflightReport summarizes everything verified before a deployment
// attempts to touch the stack (spec §4.6.1).
type PreflightReport struct {
	HostArch       string
	ComposeFile    string
	ImagesDir      string
	Ports          []types.ComposePort
	ScriptWarnings []ScriptWarning
	PortConflicts  []PortConflict
}

// Preflight verifies the working directory layout, detects host
// architecture, parses compose ports/env, normalizes script
// permissions under config/ and script(s)/, checks for port conflicts
// against the live engine, and materializes data directory parents
// (spec §4.6.1).
func (o *Orchestrator) Preflight(ctx context.Context) (PreflightReport, error) {
	report := PreflightReport{HostArch: HostArch(), ComposeFile: o.composeFile, ImagesDir: o.imagesDir}

	for _, path := range []string{o.workDir, o.composeFile, o.imagesDir} {
		if _, err := os.Stat(path); err != nil {
			return report, storage.Wrap(storage.KindIo, "orchestrator.Preflight", err)
		}
	}

	f, env, err := o.loadCompose()
	if err != nil {
		return report, err
	}

	ports, err := compose.ParsePorts(f, env)
	if err != nil {
		return report, err
	}
	report.Ports = ports

	warnings, err := NormalizeScriptPermissions(afero.NewOsFs(), o.dockerRoot)
	if err != nil {
		return report, err
	}
	report.ScriptWarnings = warnings

	var toCheck []PortToCheck
	for _, p := range ports {
		if p.HostPort == 0 {
			continue
		}
		toCheck = append(toCheck, PortToCheck{HostPort: p.HostPort, ServiceName: p.ServiceName})
	}
	conflicts, err := CheckPortConflicts(ctx, driverContainerLister{o.driver}, toCheck)
	if err != nil {
		return report, err
	}
	report.PortConflicts = conflicts

	if err := MaterializeDataDirectories(afero.NewOsFs(), o.dockerRoot, f, env); err != nil {
		return report, err
	}

	return report, nil
}

func (o *Orchestrator) loadCompose() (compose.File, compose.Environment, error) {
	f, err := compose.Load(o.composeFile)
	if err != nil {
		return compose.File{}, compose.Environment{}, err
	}
	env, err := compose.LoadEnvironment(o.composeFile)
	if err != nil {
		return compose.File{}, compose.Environment{}, err
	}
	return f, env, nil
}

// driverContainerLister adapts driverHandle's richer ServiceStatus to
// this package's narrower ServiceStatus, matching the ContainerLister
// interface without duplicating containerdriver's richer type.
type driverContainerLister struct {
	driver driverHandle
}

func (d driverContainerLister) GetAllContainersStatus(ctx context.Context) ([]ServiceStatus, error) {
	statuses, err := d.driver.GetAllContainersStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ServiceStatus{Name: s.Name, Ports: s.Ports})
	}
	return out, nil
}
