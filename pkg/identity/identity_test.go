package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	a, err := storage.NewMemoryActor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return New(a.Handle())
}

func TestBootstrapGeneratesUUIDOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	id1, err := m.Bootstrap(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id1.LocalUUID)
	assert.False(t, id1.Registered())

	id2, err := m.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1.LocalUUID, id2.LocalUUID)
}

func TestSetServerClientIDReplacesValue(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Bootstrap(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SetServerClientID(ctx, "srv-1"))
	id, err := m.Load(ctx)
	require.NoError(t, err)
	assert.True(t, id.Registered())
	assert.Equal(t, "srv-1", id.ServerClientID)

	require.NoError(t, m.SetServerClientID(ctx, "srv-2"))
	id, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "srv-2", id.ServerClientID)
}
