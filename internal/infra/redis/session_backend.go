package redis

import (
	"context"
	"encoding/json"
	"time"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/storage"
)

var _ storage.Backend = (*SessionBackend)(nil)

// SessionBackend stores the session blob under a single key. The key TTL is
// bumped on every save so redis drops idle sessions on its own; the store
// still performs the authoritative expiry check on load.
type SessionBackend struct {
	client *Client
	key    string
	ttl    time.Duration
}

func NewSessionBackend(client *Client, key string, ttl time.Duration) *SessionBackend {
	return &SessionBackend{client: client, key: key, ttl: ttl}
}

func (b *SessionBackend) Load(ctx context.Context) (*model.SessionData, error) {
	raw, err := b.client.Get(ctx, b.key)
	if IsNil(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var data model.SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (b *SessionBackend) Save(ctx context.Context, data *model.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// grace period past the logical TTL; the store deletes on expiry anyway
	return b.client.Set(ctx, b.key, raw, b.ttl*2)
}

func (b *SessionBackend) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key)
}
