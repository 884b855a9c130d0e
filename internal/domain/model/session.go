package model

import (
	"time"
)

const (
	MinPlaybackSpeed = 0.5
	MaxPlaybackSpeed = 2.0
)

// Settings holds per-session user preferences.
type Settings struct {
	VoiceID       string  `json:"voiceId"`
	PlaybackSpeed float64 `json:"playbackSpeed"`
	AutoPlay      bool    `json:"autoPlay"`
}

func DefaultSettings(voiceID string) Settings {
	return Settings{VoiceID: voiceID, PlaybackSpeed: 1.0, AutoPlay: false}
}

// SettingsPatch shallow-merges into Settings; nil fields are left untouched.
type SettingsPatch struct {
	VoiceID       *string  `json:"voiceId,omitempty"`
	PlaybackSpeed *float64 `json:"playbackSpeed,omitempty"`
	AutoPlay      *bool    `json:"autoPlay,omitempty"`
}

// Apply merges the patch. Playback speed is clamped to [0.5, 2.0].
func (s *Settings) Apply(p SettingsPatch) {
	if p.VoiceID != nil {
		s.VoiceID = *p.VoiceID
	}
	if p.PlaybackSpeed != nil {
		speed := *p.PlaybackSpeed
		if speed < MinPlaybackSpeed {
			speed = MinPlaybackSpeed
		}
		if speed > MaxPlaybackSpeed {
			speed = MaxPlaybackSpeed
		}
		s.PlaybackSpeed = speed
	}
	if p.AutoPlay != nil {
		s.AutoPlay = *p.AutoPlay
	}
}

// SessionData is the aggregate root for one conversation. Exactly one session
// exists per device at a time; it is persisted as a single keyed blob.
type SessionData struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Settings  Settings  `json:"settings"`
}

func NewSessionData(id string, now time.Time, settings Settings) *SessionData {
	return &SessionData{
		ID:        id,
		Messages:  make([]Message, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
		Settings:  settings,
	}
}

// Expired reports whether the session has been idle longer than ttl.
func (s *SessionData) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.UpdatedAt) > ttl
}

// Touch refreshes UpdatedAt. Called on every persisted mutation.
func (s *SessionData) Touch(now time.Time) {
	s.UpdatedAt = now
}

// FindMessage returns a pointer into Messages, or nil when id is unknown.
func (s *SessionData) FindMessage(id string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}

// RemoveMessage deletes the message with the given id, preserving order.
func (s *SessionData) RemoveMessage(id string) bool {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// Context projects Messages into the history payload for generation,
// preserving insertion order.
func (s *SessionData) Context() []ContextMessage {
	out := make([]ContextMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, ContextMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Clone returns a deep copy so callers can hand sessions across goroutine
// boundaries without aliasing the stored slice.
func (s *SessionData) Clone() *SessionData {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
