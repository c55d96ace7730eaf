/*
Package apiclient implements the stateless HTTP client (C2) that talks
to the remote manifest server: a base URL plus an endpoint table, the
client identity carried in the X-Client-ID header, and a single
auto-registration retry on 401 (spec §4.2).
*/
package apiclient

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-resty/resty/v2"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// IdentitySource is the narrow capability the client needs from
// pkg/identity: read the current identity, and persist a newly assigned
// server client ID.
type IdentitySource interface {
	Load(ctx context.Context) (types.Identity, error)
	SetServerClientID(ctx context.Context, serverClientID string) error
}

// Client wraps a resty client with the manifest server's base URL and
// the current client identity.
type Client struct {
	http     *resty.Client
	identity IdentitySource
}

// New builds a Client targeting baseURL.
func New(baseURL string, identity IdentitySource) *Client {
	h := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Client{http: h, identity: identity}
}

// RegisterResponse is the body returned by the registration endpoint.
type RegisterResponse struct {
	ClientID string `json:"client_id"`
}

// Register posts this machine's OS/arch and stores the returned
// client_id via the identity source.
func (c *Client) Register(ctx context.Context) (string, error) {
	var out RegisterResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"os": runtime.GOOS, "arch": runtime.GOARCH}).
		SetResult(&out).
		Post("/api/v1/clients/register")
	if err != nil {
		return "", storage.Wrap(storage.KindNetwork, "apiclient.Register", err)
	}
	if resp.IsError() {
		return "", storage.Wrap(storage.KindApi, "apiclient.Register", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if err := c.identity.SetServerClientID(ctx, out.ClientID); err != nil {
		return "", err
	}
	return out.ClientID, nil
}

// authedRequest builds a request carrying X-Client-ID for the current
// identity. Registration itself never goes through this path.
func (c *Client) authedRequest(ctx context.Context) (*resty.Request, error) {
	id, err := c.identity.Load(ctx)
	if err != nil {
		return nil, err
	}
	clientID := id.ServerClientID
	if clientID == "" {
		clientID = id.LocalUUID
	}
	return c.http.R().SetContext(ctx).SetHeader("X-Client-ID", clientID), nil
}

// doAuthed executes fn against a freshly built authenticated request,
// and on a 401 response performs exactly one registration + retry
// cycle, per spec §4.2. A failed registration or a second 401 surfaces
// an Auth error.
func (c *Client) doAuthed(ctx context.Context, op string, fn func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := fn(req)
	if err != nil {
		return nil, storage.Wrap(storage.KindNetwork, op, err)
	}
	if resp.StatusCode() != 401 {
		return resp, nil
	}

	if _, regErr := c.Register(ctx); regErr != nil {
		return nil, storage.Wrap(storage.KindAuth, op, regErr)
	}

	req2, err := c.authedRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp2, err := fn(req2)
	if err != nil {
		return nil, storage.Wrap(storage.KindNetwork, op, err)
	}
	if resp2.StatusCode() == 401 {
		return nil, storage.Wrap(storage.KindAuth, op, fmt.Errorf("401 after re-registration"))
	}
	return resp2, nil
}
