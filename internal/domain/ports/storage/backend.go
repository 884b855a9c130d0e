package storage

import (
	"context"

	"wellness-companion/internal/domain/model"
)

// Backend persists the single session blob under a fixed key. Load returns
// domain.ErrNotFound when nothing is stored.
type Backend interface {
	Load(ctx context.Context) (*model.SessionData, error)
	Save(ctx context.Context, data *model.SessionData) error
	Delete(ctx context.Context) error
}
