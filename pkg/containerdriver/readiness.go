package containerdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/duckclient/duck-cli/pkg/compose"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// WaitReady polls GetServicesStatus at interval until every declared
// service satisfies one of spec §4.5's ready conditions, or timeout
// elapses:
//
//   - Running: ready.
//   - Stopped, and the service's compose restart policy is not
//     always/unless-stopped: ready (a completed one-shot).
//   - Stopped, and the restart policy is always/unless-stopped: failure.
//   - Unknown: still pending.
func (d *Driver) WaitReady(ctx context.Context, interval, timeout time.Duration) error {
	f, _, err := d.loadComposeFile()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ready, failed, err := d.evaluateReadiness(ctx, f)
		if err != nil {
			return err
		}
		if failed != "" {
			return storage.Wrap(storage.KindServiceState, "containerdriver.WaitReady",
				fmt.Errorf("service %q stopped unexpectedly", failed))
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return storage.Wrap(storage.KindTimeout, "containerdriver.WaitReady",
				fmt.Errorf("services not ready after %s", timeout))
		}
		select {
		case <-ctx.Done():
			return storage.Wrap(storage.KindCancelled, "containerdriver.WaitReady", ctx.Err())
		case <-ticker.C:
		}
	}
}

// evaluateReadiness returns (allReady, failedServiceName, error).
func (d *Driver) evaluateReadiness(ctx context.Context, f compose.File) (bool, string, error) {
	statuses, err := d.GetServicesStatus(ctx)
	if err != nil {
		return false, "", err
	}

	allReady := true
	for _, s := range statuses {
		switch s.Status {
		case StatusRunning:
			continue
		case StatusStopped:
			restart := f.Services[s.Name].Restart
			if compose.RestartAlwaysLike(restart) {
				return false, s.Name, nil
			}
			continue // completed one-shot, counts as ready
		case StatusUnknown:
			allReady = false
		}
	}
	return allReady, "", nil
}
