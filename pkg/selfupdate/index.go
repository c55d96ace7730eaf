package selfupdate

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// ReleaseAsset is one downloadable artifact of a release.
type ReleaseAsset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Hash string `json:"sha256"`
}

// ReleaseIndex is the response shape for the release-index endpoint:
// the latest semver tag plus every platform/arch asset built for it.
type ReleaseIndex struct {
	Version string         `json:"version"`
	Assets  []ReleaseAsset `json:"assets"`
}

// IndexClient queries a release index server over HTTP, the same
// resty-based shape as pkg/apiclient.Client, but unauthenticated and
// talking to a distinct server: the binary release channel, not the
// managed-service manifest server.
type IndexClient struct {
	http *resty.Client
}

// New builds an IndexClient targeting baseURL (e.g.
// "https://releases.example.com").
func New(baseURL string) *IndexClient {
	h := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	return &IndexClient{http: h}
}

// QueryLatest fetches the current release index.
func (c *IndexClient) QueryLatest(ctx context.Context) (ReleaseIndex, error) {
	var out ReleaseIndex
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/releases/latest")
	if err != nil {
		return ReleaseIndex{}, storage.Wrap(storage.KindNetwork, "selfupdate.QueryLatest", err)
	}
	if resp.IsError() {
		return ReleaseIndex{}, storage.Wrap(storage.KindApi, "selfupdate.QueryLatest", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return out, nil
}
