package storage

import (
	"context"

	"wellness-companion/internal/domain/model"
)

// SessionStore is the single source of truth for conversation state. All
// reads that feed a decision (context capture in particular) must be taken
// immediately before the mutation they gate.
type SessionStore interface {
	// Get returns the current session, or nil when absent or expired.
	// An expired session is deleted as a side effect of the check.
	Get(ctx context.Context) (*model.SessionData, error)
	// GetOrCreate returns the existing valid session or creates a new one.
	GetOrCreate(ctx context.Context) (*model.SessionData, error)

	// AddMessage appends a message with a fresh unique id and the current
	// timestamp, persists, and returns the created message.
	AddMessage(ctx context.Context, role model.Role, content, audioURL string) (*model.Message, error)
	// CompleteMessage fills in a placeholder's content. No-op on unknown ids.
	CompleteMessage(ctx context.Context, id, content string) error
	// UpdateMessage replaces content and marks the message edited.
	// No-op on unknown ids.
	UpdateMessage(ctx context.Context, id, content string) error
	// UpdateMessageAudioURL attaches a playable reference. No-op on unknown ids.
	UpdateMessageAudioURL(ctx context.Context, id, url string) error
	// RemoveMessage deletes a single message (used to discard a failed
	// assistant placeholder).
	RemoveMessage(ctx context.Context, id string) error

	GetMessage(ctx context.Context, id string) (*model.Message, error)
	Messages(ctx context.Context) ([]model.Message, error)
	// ConversationContext projects the messages present at the moment of the
	// read; never cached.
	ConversationContext(ctx context.Context) ([]model.ContextMessage, error)

	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, patch model.SettingsPatch) error

	// Clear deletes all persisted session state; the next access creates a
	// fresh session with a new id.
	Clear(ctx context.Context) error
}
