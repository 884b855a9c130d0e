// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/gateway"
)

type mockTranscription struct {
	result *gateway.TranscriptionResult
	err    error
	calls  int
	audio  []byte
}

func (m *mockTranscription) Transcribe(_ context.Context, audio []byte, _, _ string) (*gateway.TranscriptionResult, error) {
	m.calls++
	m.audio = audio
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type generateCall struct {
	UserText  string
	SessionID string
	History   []model.ContextMessage
}

type mockGeneration struct {
	result *gateway.GenerationResult
	err    error
	calls  []generateCall
	// hook runs inside Generate, before returning; tests use it to clear
	// the session mid-turn.
	hook func()
}

func (m *mockGeneration) Generate(_ context.Context, userText, sessionID string, history []model.ContextMessage) (*gateway.GenerationResult, error) {
	m.calls = append(m.calls, generateCall{UserText: userText, SessionID: sessionID, History: history})
	if m.hook != nil {
		m.hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type synthesizeCall struct {
	Text    string
	VoiceID string
	Format  string
}

type mockSynthesis struct {
	result *gateway.SynthesisResult
	err    error
	calls  []synthesizeCall
}

func (m *mockSynthesis) Synthesize(_ context.Context, text, voiceID, format string) (*gateway.SynthesisResult, error) {
	m.calls = append(m.calls, synthesizeCall{Text: text, VoiceID: voiceID, Format: format})
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockFeedback struct {
	err       error
	submitted []gateway.Feedback
}

func (m *mockFeedback) Submit(_ context.Context, fb gateway.Feedback) error {
	m.submitted = append(m.submitted, fb)
	return m.err
}

func generationFailure(msg string) error {
	return domain.NewGenerationError(msg, errors.New("upstream failure"))
}
