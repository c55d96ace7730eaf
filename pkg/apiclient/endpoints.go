package apiclient

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// Announcement is one entry of the announcements feed.
type Announcement struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Announcements fetches announcements created since the given cursor
// (opaque to this client; passed through verbatim).
func (c *Client) Announcements(ctx context.Context, since string) ([]Announcement, error) {
	var out []Announcement
	resp, err := c.doAuthed(ctx, "Announcements", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("since", since).SetResult(&out).Get("/api/v1/clients/announcements")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, storage.Wrap(storage.KindApi, "Announcements", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return out, nil
}

// CheckVersion queries whether a newer docker-service version is
// available, returning the manifest describing it.
func (c *Client) CheckVersion(ctx context.Context) (types.ServiceManifest, error) {
	var out types.ServiceManifest
	resp, err := c.doAuthed(ctx, "CheckVersion", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/api/v1/docker/checkVersion")
	})
	if err != nil {
		return types.ServiceManifest{}, err
	}
	if resp.IsError() {
		return types.ServiceManifest{}, storage.Wrap(storage.KindApi, "CheckVersion", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return out, nil
}

// UpdateVersionList returns the full history of published versions.
func (c *Client) UpdateVersionList(ctx context.Context) ([]types.ServiceManifest, error) {
	var out []types.ServiceManifest
	resp, err := c.doAuthed(ctx, "UpdateVersionList", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/api/v1/docker/updateVersionList")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, storage.Wrap(storage.KindApi, "UpdateVersionList", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return out, nil
}

// LatestFullPackage fetches the manifest for the latest full bundle.
func (c *Client) LatestFullPackage(ctx context.Context) (types.ServiceManifest, error) {
	var out types.ServiceManifest
	resp, err := c.doAuthed(ctx, "LatestFullPackage", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/api/v1/clients/downloads/docker/services/full/latest")
	})
	if err != nil {
		return types.ServiceManifest{}, err
	}
	if resp.IsError() {
		return types.ServiceManifest{}, storage.Wrap(storage.KindApi, "LatestFullPackage", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return out, nil
}

// ReportUpgradeHistory tells the server about an upgrade attempt for a
// managed service. Best-effort: a non-2xx response logs a warning and
// returns nil so it never breaks a primary flow (spec §4.2).
func (c *Client) ReportUpgradeHistory(ctx context.Context, service string, body any) error {
	return c.bestEffortPost(ctx, "ReportUpgradeHistory", fmt.Sprintf("/api/v1/clients/services/%s/upgrade-history", service), body)
}

// ReportSelfUpgradeHistory tells the server about a self-update attempt
// of the CLI binary. Best-effort, same as ReportUpgradeHistory.
func (c *Client) ReportSelfUpgradeHistory(ctx context.Context, body any) error {
	return c.bestEffortPost(ctx, "ReportSelfUpgradeHistory", "/api/v1/clients/self-upgrade-history", body)
}

// ReportTelemetry sends a best-effort telemetry payload.
func (c *Client) ReportTelemetry(ctx context.Context, body any) error {
	return c.bestEffortPost(ctx, "ReportTelemetry", "/api/v1/clients/telemetry", body)
}

func (c *Client) bestEffortPost(ctx context.Context, op, path string, body any) error {
	resp, err := c.doAuthed(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(body).Post(path)
	})
	if err != nil {
		log.WithComponent("apiclient").Warn().Str("op", op).Err(err).Msg("best-effort report failed")
		return nil
	}
	if resp.IsError() {
		log.WithComponent("apiclient").Warn().Str("op", op).Int("status", resp.StatusCode()).Msg("best-effort report rejected")
	}
	return nil
}
