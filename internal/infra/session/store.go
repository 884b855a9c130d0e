// Package session implements the single-session conversation store over an
// injected storage backend. One session exists per device; it is created
// lazily, discarded when idle past its TTL, and persisted as a whole on every
// mutation.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/storage"
	"wellness-companion/internal/infra/metrics"
)

// Compile-time check
var _ storage.SessionStore = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	backend  storage.Backend
	ttl      time.Duration
	defaults model.Settings
	log      *zerolog.Logger

	now          func() time.Time
	newSessionID func() string
	entropy      *ulid.MonotonicEntropy
}

func NewStore(backend storage.Backend, ttl time.Duration, defaults model.Settings, logger *zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		backend:      backend,
		ttl:          ttl,
		defaults:     defaults,
		log:          logger,
		now:          time.Now,
		newSessionID: uuid.NewString,
		entropy:      ulid.Monotonic(rand.Reader, 0),
	}
}

// newMessageID returns a ULID: unique and ordered with insertion.
// Callers must hold s.mu (the monotonic reader is not safe concurrently).
func (s *Store) newMessageID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *Store) Get(ctx context.Context) (*model.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx)
}

// getLocked loads the current session, deleting it when expired.
func (s *Store) getLocked(ctx context.Context) (*model.SessionData, error) {
	data, err := s.backend.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data.Expired(s.now(), s.ttl) {
		s.log.Debug().Str("session_id", data.ID).Msg("session expired, discarding")
		metrics.IncSessionsExpired()
		if err := s.backend.Delete(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return data, nil
}

func (s *Store) GetOrCreate(ctx context.Context) (*model.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(ctx)
}

func (s *Store) getOrCreateLocked(ctx context.Context) (*model.SessionData, error) {
	data, err := s.getLocked(ctx)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	data = model.NewSessionData(s.newSessionID(), s.now(), s.defaults)
	if err := s.backend.Save(ctx, data); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", data.ID).Msg("session created")
	metrics.IncSessionsCreated()
	return data, nil
}

// mutate applies fn to the current (or a freshly created) session, refreshes
// UpdatedAt, and persists.
func (s *Store) mutate(ctx context.Context, fn func(*model.SessionData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getOrCreateLocked(ctx)
	if err != nil {
		return err
	}
	fn(data)
	data.Touch(s.now())
	return s.backend.Save(ctx, data)
}

func (s *Store) AddMessage(ctx context.Context, role model.Role, content, audioURL string) (*model.Message, error) {
	var created model.Message
	err := s.mutate(ctx, func(data *model.SessionData) {
		created = model.Message{
			ID:        s.newMessageID(),
			Role:      role,
			Content:   content,
			Timestamp: s.now(),
			AudioURL:  audioURL,
		}
		data.Messages = append(data.Messages, created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) CompleteMessage(ctx context.Context, id, content string) error {
	return s.mutate(ctx, func(data *model.SessionData) {
		if m := data.FindMessage(id); m != nil {
			m.Content = content
		}
	})
}

func (s *Store) UpdateMessage(ctx context.Context, id, content string) error {
	return s.mutate(ctx, func(data *model.SessionData) {
		if m := data.FindMessage(id); m != nil {
			m.Content = content
			m.IsEdited = true
		}
	})
}

func (s *Store) UpdateMessageAudioURL(ctx context.Context, id, url string) error {
	return s.mutate(ctx, func(data *model.SessionData) {
		if m := data.FindMessage(id); m != nil {
			m.AudioURL = url
		}
	})
}

func (s *Store) RemoveMessage(ctx context.Context, id string) error {
	return s.mutate(ctx, func(data *model.SessionData) {
		data.RemoveMessage(id)
	})
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getLocked(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	m := data.FindMessage(id)
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) Messages(ctx context.Context) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getLocked(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []model.Message{}, nil
	}
	out := make([]model.Message, len(data.Messages))
	copy(out, data.Messages)
	return out, nil
}

func (s *Store) ConversationContext(ctx context.Context) ([]model.ContextMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getLocked(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []model.ContextMessage{}, nil
	}
	return data.Context(), nil
}

func (s *Store) Settings(ctx context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getOrCreateLocked(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	return data.Settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, patch model.SettingsPatch) error {
	return s.mutate(ctx, func(data *model.SessionData) {
		data.Settings.Apply(patch)
	})
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info().Msg("session cleared")
	return s.backend.Delete(ctx)
}
