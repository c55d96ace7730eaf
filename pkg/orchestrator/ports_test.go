package orchestrator

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	statuses []ServiceStatus
}

func (f fakeLister) GetAllContainersStatus(ctx context.Context) ([]ServiceStatus, error) {
	return f.statuses, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestCheckPortConflictsReportsTrueConflict(t *testing.T) {
	port := freePort(t)
	ln, err := net.Listen("tcp", "0.0.0.0:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer ln.Close()

	conflicts, err := CheckPortConflicts(context.Background(), fakeLister{}, []PortToCheck{{HostPort: port, ServiceName: "web"}})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, port, conflicts[0].Port)
	assert.Equal(t, "web", conflicts[0].Service)
}

func TestCheckPortConflictsExcusesSameServiceRestart(t *testing.T) {
	port := freePort(t)
	ln, err := net.Listen("tcp", "0.0.0.0:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer ln.Close()

	lister := fakeLister{statuses: []ServiceStatus{
		{Name: "web", Ports: []string{strconv.Itoa(port) + ":8080/tcp"}},
	}}

	conflicts, err := CheckPortConflicts(context.Background(), lister, []PortToCheck{{HostPort: port, ServiceName: "web"}})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckPortConflictsExcusesSameServiceRestartWithComposeContainerName(t *testing.T) {
	port := freePort(t)
	ln, err := net.Listen("tcp", "0.0.0.0:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer ln.Close()

	// Real docker-compose v2 naming: "<project>-<service>-<index>",
	// never the bare service name.
	lister := fakeLister{statuses: []ServiceStatus{
		{Name: "myproject-frontend-1", Ports: []string{strconv.Itoa(port) + ":8080/tcp"}},
	}}

	conflicts, err := CheckPortConflicts(context.Background(), lister, []PortToCheck{{HostPort: port, ServiceName: "frontend"}})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckPortConflictsAllowsFreePort(t *testing.T) {
	port := freePort(t)
	conflicts, err := CheckPortConflicts(context.Background(), fakeLister{}, []PortToCheck{{HostPort: port, ServiceName: "web"}})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestRemediationMessageNamesPortAndService(t *testing.T) {
	msg := RemediationMessage(PortConflict{Port: 8080, Service: "web"})
	assert.Contains(t, msg, "8080")
	assert.Contains(t, msg, "web")
}
