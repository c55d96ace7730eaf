package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/types"
)

// fakeIdentity is a minimal IdentitySource for tests, avoiding a
// dependency on pkg/storage/pkg/identity.
type fakeIdentity struct {
	localUUID string
	serverID  atomic.Value
}

func newFakeIdentity(localUUID string) *fakeIdentity {
	f := &fakeIdentity{localUUID: localUUID}
	f.serverID.Store("")
	return f
}

func (f *fakeIdentity) Load(ctx context.Context) (types.Identity, error) {
	return types.Identity{LocalUUID: f.localUUID, ServerClientID: f.serverID.Load().(string)}, nil
}

func (f *fakeIdentity) SetServerClientID(ctx context.Context, serverClientID string) error {
	f.serverID.Store(serverClientID)
	return nil
}

func TestRegisterAndAutoRetryOn401(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/clients/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RegisterResponse{ClientID: "srv-99"})
	})
	mux.HandleFunc("/api/v1/docker/checkVersion", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "1.2.0"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ident := newFakeIdentity("local-abc")
	c := New(srv.URL, ident)

	manifest, err := c.CheckVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", manifest.Version)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "srv-99", ident.serverID.Load())
}

func TestSecondUnauthorizedSurfacesAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/clients/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/v1/docker/checkVersion", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ident := newFakeIdentity("local-abc")
	c := New(srv.URL, ident)

	_, err := c.CheckVersion(context.Background())
	require.Error(t, err)
}

func TestBestEffortReportNeverFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/clients/telemetry", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ident := newFakeIdentity("local-abc")
	c := New(srv.URL, ident)

	err := c.ReportTelemetry(context.Background(), map[string]string{"event": "ping"})
	assert.NoError(t, err)
}
