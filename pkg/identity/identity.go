/*
Package identity bootstraps and persists the client's process-wide
identity (pkg/types.Identity) on top of the persistence actor (pkg/storage).

local_uuid is generated once, on first run, and never changes.
server_client_id is empty until the API client registers with the
manifest server; it is the only field a later re-registration cycle may
replace (spec §3).
*/
package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

const (
	keyClientUUID     = "client_uuid"
	keyClientID       = "client_id"
	keyClientCreatedAt = "client_created_at"
)

// Manager owns reads and writes of the client identity against a
// storage.Handle.
type Manager struct {
	store *storage.Handle
}

func New(store *storage.Handle) *Manager {
	return &Manager{store: store}
}

// Bootstrap loads the identity, generating and persisting local_uuid on
// first run. It is safe to call on every process start.
func (m *Manager) Bootstrap(ctx context.Context) (types.Identity, error) {
	id, err := m.Load(ctx)
	if err != nil {
		return types.Identity{}, err
	}
	if id.LocalUUID != "" {
		return id, nil
	}

	id.LocalUUID = uuid.NewString()
	id.CreatedAt = time.Now().UTC()

	if err := m.setJSON(ctx, keyClientUUID, id.LocalUUID); err != nil {
		return types.Identity{}, err
	}
	if err := m.setJSON(ctx, keyClientCreatedAt, id.CreatedAt.Format(time.RFC3339)); err != nil {
		return types.Identity{}, err
	}
	return id, nil
}

// Load reads whatever identity fields are currently persisted, without
// generating anything.
func (m *Manager) Load(ctx context.Context) (types.Identity, error) {
	var id types.Identity

	if v, ok, err := m.getJSON(ctx, keyClientUUID); err != nil {
		return id, err
	} else if ok {
		id.LocalUUID = v
	}

	if v, ok, err := m.getJSON(ctx, keyClientID); err != nil {
		return id, err
	} else if ok {
		id.ServerClientID = v
	}

	if v, ok, err := m.getJSON(ctx, keyClientCreatedAt); err != nil {
		return id, err
	} else if ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			id.CreatedAt = t
		}
	}

	return id, nil
}

// SetServerClientID persists the server-assigned client ID, replacing
// any previous value — the one field that may change, via a
// re-registration cycle (spec §3).
func (m *Manager) SetServerClientID(ctx context.Context, serverClientID string) error {
	return m.setJSON(ctx, keyClientID, serverClientID)
}

func (m *Manager) setJSON(ctx context.Context, key, value string) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return storage.Wrap(storage.KindCustom, "identity.setJSON", err)
	}
	return m.store.SetConfig(ctx, key, string(enc))
}

func (m *Manager) getJSON(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := m.store.GetConfig(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", false, storage.Wrap(storage.KindSchema, "identity.getJSON", err)
	}
	return v, true, nil
}
