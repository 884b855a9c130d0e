// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/gateway"
	"wellness-companion/internal/domain/ports/storage"
	"wellness-companion/internal/infra/logging"
	"wellness-companion/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// TurnInput is the original input of a conversation turn, kept inside a
// TurnError so a failed turn can be resubmitted unchanged.
type TurnInput struct {
	Text     string
	Audio    []byte
	MIMEType string
}

// Voice reports whether the turn started from an audio recording.
func (in TurnInput) Voice() bool { return len(in.Audio) > 0 }

// TurnError is the only error shape a conversation turn surfaces for vendor
// failures. It carries the original input for resubmission and, when an
// assistant placeholder had already been created, the id of the message that
// was rolled back.
type TurnError struct {
	Kind      domain.VendorErrorKind
	Message   string
	Input     TurnInput
	MessageID string
	cause     error
}

func (e *TurnError) Error() string { return string(e.Kind) + ": " + e.Message }

func (e *TurnError) Unwrap() error { return e.cause }

func newTurnError(err error, input TurnInput, messageID string) *TurnError {
	te := &TurnError{Kind: domain.KindGeneration, Message: "request failed", Input: input, MessageID: messageID, cause: err}
	if ve, ok := domain.AsVendorError(err); ok {
		te.Kind = ve.Kind
		te.Message = ve.Message
	}
	return te
}

type ConversationUseCase interface {
	// SendText runs a full text turn: persist the user message, generate a
	// reply into an assistant placeholder, optionally synthesize speech.
	// On vendor failure it returns a *TurnError and the placeholder is gone.
	SendText(ctx context.Context, text string) (*model.Message, error)
	// SendVoice transcribes the recording first, then runs the text turn.
	// If transcription fails no message is created at all.
	SendVoice(ctx context.Context, audio []byte, mimeType string) (*model.Message, error)
	// Retry resubmits the input carried by a failed turn.
	Retry(ctx context.Context, input TurnInput) (*model.Message, error)

	// Play returns a playable audio reference for an assistant message,
	// synthesizing on first use and reusing the stored reference after.
	Play(ctx context.Context, messageID string) (string, error)

	Messages(ctx context.Context) ([]model.Message, error)
	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, patch model.SettingsPatch) error

	// NewSession discards all conversation state and starts a fresh session.
	NewSession(ctx context.Context) (*model.SessionData, error)
	// Feedback submits a verdict; failures are logged and swallowed.
	Feedback(ctx context.Context, verdict string) error
}

type conversationUC struct {
	store     storage.SessionStore
	stt       gateway.TranscriptionService
	llm       gateway.GenerationService
	tts       gateway.SynthesisService
	feedback  gateway.FeedbackService
	ttsFormat string
	log       *zerolog.Logger

	mu   sync.Mutex
	busy bool
}

func NewConversationUseCase(
	store storage.SessionStore,
	stt gateway.TranscriptionService,
	llm gateway.GenerationService,
	tts gateway.SynthesisService,
	feedback gateway.FeedbackService,
	ttsFormat string,
	logger *zerolog.Logger,
) *conversationUC {
	return &conversationUC{
		store:     store,
		stt:       stt,
		llm:       llm,
		tts:       tts,
		feedback:  feedback,
		ttsFormat: ttsFormat,
		log:       logger,
	}
}

// beginTurn enforces a single in-flight turn.
func (c *conversationUC) beginTurn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return domain.ErrTurnInFlight
	}
	c.busy = true
	return nil
}

func (c *conversationUC) endTurn() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *conversationUC) SendText(ctx context.Context, text string) (*model.Message, error) {
	if err := c.beginTurn(); err != nil {
		return nil, err
	}
	defer c.endTurn()
	return c.textTurn(ctx, TurnInput{Text: text})
}

func (c *conversationUC) SendVoice(ctx context.Context, audio []byte, mimeType string) (*model.Message, error) {
	if err := c.beginTurn(); err != nil {
		return nil, err
	}
	defer c.endTurn()
	return c.voiceTurn(ctx, TurnInput{Audio: audio, MIMEType: mimeType})
}

func (c *conversationUC) Retry(ctx context.Context, input TurnInput) (*model.Message, error) {
	if err := c.beginTurn(); err != nil {
		return nil, err
	}
	defer c.endTurn()
	if input.Voice() {
		return c.voiceTurn(ctx, input)
	}
	return c.textTurn(ctx, input)
}

func (c *conversationUC) voiceTurn(ctx context.Context, input TurnInput) (*model.Message, error) {
	session, err := c.store.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSessionID(ctx, session.ID)

	start := time.Now()
	result, err := c.stt.Transcribe(ctx, input.Audio, input.MIMEType, session.ID)
	metrics.ObserveVendorCall("stt", start, err)
	if err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("transcription failed")
		return nil, newTurnError(err, input, "")
	}
	text := strings.TrimSpace(result.Transcription)
	if text == "" {
		return nil, domain.ErrInvalidArgument
	}

	input.Text = text
	return c.textTurn(ctx, input)
}

func (c *conversationUC) textTurn(ctx context.Context, input TurnInput) (*model.Message, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, domain.ErrInvalidArgument
	}
	input.Text = text

	session, err := c.store.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSessionID(ctx, session.ID)

	// History snapshot before the turn touches the session, so neither the
	// new user message nor the empty placeholder leaks into the prompt.
	history, err := c.store.ConversationContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.store.AddMessage(ctx, model.RoleUser, text, ""); err != nil {
		return nil, err
	}
	placeholder, err := c.store.AddMessage(ctx, model.RoleAssistant, "", "")
	if err != nil {
		return nil, err
	}
	ctx = logging.WithMessageID(ctx, placeholder.ID)

	start := time.Now()
	gen, err := c.llm.Generate(ctx, text, session.ID, history)
	metrics.ObserveVendorCall("llm", start, err)
	if err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("generation failed, rolling back placeholder")
		if rmErr := c.store.RemoveMessage(ctx, placeholder.ID); rmErr != nil {
			logging.With(ctx, c.log).Error().Err(rmErr).Msg("placeholder rollback failed")
		}
		return nil, newTurnError(err, input, placeholder.ID)
	}

	// The session could have been cleared while the vendor call was running.
	current, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ID != session.ID || current.FindMessage(placeholder.ID) == nil {
		logging.With(ctx, c.log).Info().Msg("session changed mid-turn, dropping stale reply")
		return nil, domain.ErrSessionExpired
	}

	if err := c.store.CompleteMessage(ctx, placeholder.ID, gen.OutputText); err != nil {
		return nil, err
	}

	settings, err := c.store.Settings(ctx)
	if err == nil && settings.AutoPlay {
		if _, playErr := c.playMessage(ctx, placeholder.ID); playErr != nil {
			// Playback is an enhancement; the reply already stands.
			logging.With(ctx, c.log).Warn().Err(playErr).Msg("autoplay synthesis failed")
		}
	}

	return c.store.GetMessage(ctx, placeholder.ID)
}

func (c *conversationUC) Play(ctx context.Context, messageID string) (string, error) {
	return c.playMessage(ctx, messageID)
}

func (c *conversationUC) playMessage(ctx context.Context, messageID string) (string, error) {
	msg, err := c.store.GetMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", domain.ErrNotFound
	}
	if msg.AudioURL != "" {
		metrics.IncSynthesisCacheHits()
		return msg.AudioURL, nil
	}
	if msg.Content == "" {
		return "", domain.ErrInvalidArgument
	}

	settings, err := c.store.Settings(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	result, err := c.tts.Synthesize(ctx, msg.Content, settings.VoiceID, c.ttsFormat)
	metrics.ObserveVendorCall("tts", start, err)
	if err != nil {
		return "", newTurnError(err, TurnInput{}, messageID)
	}
	if err := c.store.UpdateMessageAudioURL(ctx, messageID, result.AudioURL); err != nil {
		return "", err
	}
	return result.AudioURL, nil
}

func (c *conversationUC) Messages(ctx context.Context) ([]model.Message, error) {
	return c.store.Messages(ctx)
}

func (c *conversationUC) Settings(ctx context.Context) (model.Settings, error) {
	return c.store.Settings(ctx)
}

func (c *conversationUC) UpdateSettings(ctx context.Context, patch model.SettingsPatch) error {
	return c.store.UpdateSettings(ctx, patch)
}

func (c *conversationUC) NewSession(ctx context.Context) (*model.SessionData, error) {
	if err := c.store.Clear(ctx); err != nil {
		return nil, err
	}
	return c.store.GetOrCreate(ctx)
}

func (c *conversationUC) Feedback(ctx context.Context, verdict string) error {
	if verdict != "positive" && verdict != "negative" {
		return domain.ErrInvalidArgument
	}
	session, err := c.store.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	fb := gateway.Feedback{
		Verdict:      verdict,
		SessionID:    session.ID,
		MessageCount: len(session.Messages),
		Timestamp:    time.Now().UTC(),
	}
	if err := c.feedback.Submit(ctx, fb); err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("feedback submission failed")
	}
	return nil
}
