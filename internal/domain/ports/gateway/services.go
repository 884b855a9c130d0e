// Package gateway declares the client-side service contracts the
// conversation orchestrator depends on. The concrete implementation talks to
// the gateway server over HTTP; tests substitute in-memory fakes.
package gateway

import (
	"context"
	"time"

	"wellness-companion/internal/domain/model"
)

// TranscriptionResult mirrors the transcribe endpoint response.
type TranscriptionResult struct {
	Transcription string `json:"transcription"`
	Language      string `json:"language"`
}

// GenerationResult mirrors the generate endpoint response.
type GenerationResult struct {
	ID         string            `json:"id"`
	OutputText string            `json:"outputText"`
	TokensUsed int               `json:"tokensUsed"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SynthesisResult mirrors the tts endpoint response. AudioURL is an opaque
// playable reference (a data URL in practice); Duration is seconds.
type SynthesisResult struct {
	AudioURL string  `json:"audioUrl"`
	Duration float64 `json:"duration"`
}

// Feedback is a fire-and-forget user verdict on the conversation.
type Feedback struct {
	Verdict      string    `json:"feedback"` // "positive" | "negative"
	SessionID    string    `json:"sessionId"`
	MessageCount int       `json:"messageCount"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	URL          string    `json:"url,omitempty"`
}

type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, sessionID string) (*TranscriptionResult, error)
}

type GenerationService interface {
	// Generate sends the new user text together with the conversation history
	// captured before the turn started. History must not include the in-flight
	// user message or any unfilled assistant placeholder.
	Generate(ctx context.Context, userText, sessionID string, history []model.ContextMessage) (*GenerationResult, error)
}

type SynthesisService interface {
	Synthesize(ctx context.Context, text, voiceID, format string) (*SynthesisResult, error)
}

// FeedbackService is best-effort; implementations must never block the
// primary conversation flow on failure.
type FeedbackService interface {
	Submit(ctx context.Context, fb Feedback) error
}
