package storage

import (
	"context"
	"database/sql"
)

// Handle is a cheaply clonable client-side reference to an Actor's
// request queue. Every other component holds a Handle, never the
// *sql.DB itself.
type Handle struct {
	requests chan request
}

// GetConfig returns the stored value for key, or ("", false) if unset.
func (h *Handle) GetConfig(ctx context.Context, key string) (string, bool, error) {
	type result struct {
		val string
		ok  bool
	}
	r, err := send[result](ctx, h.requests, "GetConfig", func(db *sql.DB) (any, error) {
		row := db.QueryRow(`SELECT config_value FROM app_config WHERE config_key = ?`, key)
		var v string
		switch err := row.Scan(&v); err {
		case nil:
			return result{val: v, ok: true}, nil
		case sql.ErrNoRows:
			return result{}, nil
		default:
			return nil, Wrap(KindIo, "GetConfig", err)
		}
	})
	if err != nil {
		return "", false, err
	}
	return r.val, r.ok, nil
}

// SetConfig upserts key=value (value is expected to already be
// JSON-encoded by the caller per spec §3).
func (h *Handle) SetConfig(ctx context.Context, key, value string) error {
	_, err := send[struct{}](ctx, h.requests, "SetConfig", func(db *sql.DB) (any, error) {
		res, err := db.Exec(`UPDATE app_config SET config_value = ?, updated_at = CURRENT_TIMESTAMP WHERE config_key = ?`, value, key)
		if err != nil {
			return nil, Wrap(KindIo, "SetConfig", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, Wrap(KindIo, "SetConfig", err)
		}
		if n == 0 {
			if _, err := db.Exec(`INSERT INTO app_config (config_key, config_value) VALUES (?, ?)`, key, value); err != nil {
				return nil, Wrap(KindIo, "SetConfig", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}
