package containerdriver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	pingErr    error
	containers []container.Summary
	listErr    error
}

func (f *fakeEngine) Ping(ctx context.Context) (system.Ping, error) {
	return system.Ping{}, f.pingErr
}

func (f *fakeEngine) ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error) {
	return f.containers, f.listErr
}

func (f *fakeEngine) ImageLoad(ctx context.Context, input io.Reader, opts image.LoadOptions) (image.LoadResponse, error) {
	return image.LoadResponse{Body: io.NopCloser(nil)}, nil
}

func (f *fakeEngine) ImageTag(ctx context.Context, source, target string) error {
	return nil
}

func (f *fakeEngine) ImageInspect(ctx context.Context, ref string) (image.InspectResponse, error) {
	return image.InspectResponse{}, nil
}

func (f *fakeEngine) Close() error { return nil }

const testCompose = `
services:
  web:
    image: example/web:latest
    restart: unless-stopped
    ports:
      - "8080:8080"
  migrator:
    image: example/migrator:latest
    restart: "no"
`

func writeComposeFile(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(testCompose), 0o644))
	return dir, path
}

func TestCheckDockerStatusSurfacesPingFailure(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{pingErr: assert.AnError}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	err := d.CheckDockerStatus(context.Background())
	require.Error(t, err)
}

func TestGetServicesStatusReportsDeclaredServiceWithoutContainerAsStopped(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "running", Image: "example/web:latest"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	statuses, err := d.GetServicesStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]ServiceStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.Equal(t, StatusRunning, byName["web"].Status)
	assert.Equal(t, StatusStopped, byName["migrator"].Status)
}

func TestIsFullyStoppedReportsRunningServiceNames(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "running"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	stopped, running, err := d.IsFullyStopped(context.Background())
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, []string{"web"}, running)
}

func TestWaitReadyFailsWhenAlwaysRestartServiceIsStopped(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "exited"},
		{Names: []string{"/myproj-migrator-1"}, State: "exited"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	err := d.WaitReady(context.Background(), 10*time.Millisecond, time.Second)
	require.Error(t, err)
}

func TestWaitReadySucceedsWhenOneShotServiceExitedAndLongLivedIsRunning(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "running"},
		{Names: []string{"/myproj-migrator-1"}, State: "exited"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	err := d.WaitReady(context.Background(), 10*time.Millisecond, time.Second)
	require.NoError(t, err)
}

func TestWaitReadyTimesOutOnUnknownStatus(t *testing.T) {
	_, composePath := writeComposeFile(t)
	// "restarting" is a state this driver treats as Unknown (still
	// pending), so readiness never resolves before the deadline.
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "running"},
		{Names: []string{"/myproj-migrator-1"}, State: "restarting"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	err := d.WaitReady(context.Background(), 5*time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
}

func TestCheckServicesHealthListsNonRunningServices(t *testing.T) {
	_, composePath := writeComposeFile(t)
	eng := &fakeEngine{containers: []container.Summary{
		{Names: []string{"/myproj-web-1"}, State: "exited"},
	}}
	d := newWithEngine(eng, filepath.Dir(composePath), composePath)

	err := d.CheckServicesHealth(context.Background())
	require.Error(t, err)
}

func TestParseLoadedReferenceExtractsImageName(t *testing.T) {
	body := `{"stream":"Loaded image: example/web:latest\n"}`
	ref, err := parseLoadedReference(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "example/web:latest", ref)
}

func TestParseLoadedReferenceErrorsWhenNoReferenceLine(t *testing.T) {
	body := `{"stream":"unrelated output\n"}`
	_, err := parseLoadedReference(strings.NewReader(body))
	require.Error(t, err)
}

func TestServiceNameMatchesComposeNamingPatterns(t *testing.T) {
	cases := []struct {
		containerName, service string
		want                   bool
	}{
		{"/frontend", "frontend", true},
		{"/myproject-frontend-1", "frontend", true},
		{"/myproject_frontend_1", "frontend", true},
		{"myproject-frontend-1", "frontend", true},
		{"/myproject-backend-1", "frontend", false},
		{"/frontend-worker-1", "front", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ServiceNameMatches(c.containerName, c.service), "containerName=%q service=%q", c.containerName, c.service)
	}
}
