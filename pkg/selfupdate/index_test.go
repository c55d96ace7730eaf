package selfupdate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLatestReturnsReleaseIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ReleaseIndex{
			Version: "2.0.0",
			Assets: []ReleaseAsset{
				{Name: "duckctl-linux-amd64", URL: "https://example.com/duckctl-linux-amd64", Size: 100, Hash: "abc"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	idx, err := c.QueryLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", idx.Version)
	require.Len(t, idx.Assets, 1)
	assert.Equal(t, "duckctl-linux-amd64", idx.Assets[0].Name)
}

func TestQueryLatestSurfacesServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.QueryLatest(context.Background())
	require.Error(t, err)
}
