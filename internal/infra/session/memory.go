package session

import (
	"context"
	"sync"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/storage"
)

var _ storage.Backend = (*MemoryBackend)(nil)

// MemoryBackend holds the session blob in process memory. It is the default
// backend and matches the original's per-device ephemerality. Copies are made
// on both Load and Save so callers never alias the stored value.
type MemoryBackend struct {
	mu   sync.Mutex
	data *model.SessionData
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(ctx context.Context) (*model.SessionData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, domain.ErrNotFound
	}
	return b.data.Clone(), nil
}

func (b *MemoryBackend) Save(ctx context.Context, data *model.SessionData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data.Clone()
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}
