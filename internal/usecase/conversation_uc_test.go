// File: internal/usecase/conversation_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/gateway"
	"wellness-companion/internal/infra/session"
)

type ucFixture struct {
	uc    *conversationUC
	store *session.Store
	stt   *mockTranscription
	llm   *mockGeneration
	tts   *mockSynthesis
	fb    *mockFeedback
}

func newFixture(t *testing.T) *ucFixture {
	t.Helper()
	logger := zerolog.Nop()
	store := session.NewStore(session.NewMemoryBackend(), time.Hour, model.DefaultSettings("voice-default"), &logger)
	stt := &mockTranscription{result: &gateway.TranscriptionResult{Transcription: "I feel overwhelmed", Language: "en-US"}}
	llm := &mockGeneration{result: &gateway.GenerationResult{
		ID:         "gen-1",
		OutputText: "That sounds heavy. I'm here with you.",
		TokensUsed: 42,
	}}
	tts := &mockSynthesis{result: &gateway.SynthesisResult{AudioURL: "data:audio/mpeg;base64,AAAA", Duration: 2.5}}
	fb := &mockFeedback{}
	uc := NewConversationUseCase(store, stt, llm, tts, fb, "mp3_44100_128", &logger)
	return &ucFixture{uc: uc, store: store, stt: stt, llm: llm, tts: tts, fb: fb}
}

func TestSendTextFullTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.uc.SendText(ctx, "I feel overwhelmed")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if reply.Role != model.RoleAssistant {
		t.Errorf("reply role = %q", reply.Role)
	}
	if reply.Content != "That sounds heavy. I'm here with you." {
		t.Errorf("reply content = %q", reply.Content)
	}
	if reply.AudioURL != "" {
		t.Errorf("autoplay off, AudioURL = %q", reply.AudioURL)
	}

	msgs, err := f.store.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "I feel overwhelmed" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].ID != reply.ID {
		t.Errorf("stored reply id %q != returned %q", msgs[1].ID, reply.ID)
	}

	if len(f.llm.calls) != 1 {
		t.Fatalf("generate calls = %d", len(f.llm.calls))
	}
	call := f.llm.calls[0]
	if call.UserText != "I feel overwhelmed" {
		t.Errorf("userText = %q", call.UserText)
	}
	if len(call.History) != 0 {
		t.Errorf("first turn history = %d messages, want 0", len(call.History))
	}
	if len(f.tts.calls) != 0 {
		t.Errorf("synthesize called %d times with autoplay off", len(f.tts.calls))
	}
}

func TestSendTextHistoryExcludesInFlightMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.uc.SendText(ctx, "first message"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := f.uc.SendText(ctx, "second message"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	history := f.llm.calls[1].History
	if len(history) != 2 {
		t.Fatalf("turn 2 history = %d messages, want 2", len(history))
	}
	if history[0].Content != "first message" || history[0].Role != model.RoleUser {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != model.RoleAssistant || history[1].Content == "" {
		t.Errorf("history[1] = %+v", history[1])
	}
	for _, h := range history {
		if h.Content == "second message" {
			t.Error("in-flight user message leaked into history")
		}
	}
}

func TestSendTextGenerationFailureRollsBackPlaceholder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.err = generationFailure("generation failed")

	_, err := f.uc.SendText(ctx, "I feel overwhelmed")
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TurnError", err)
	}
	if te.Kind != domain.KindGeneration {
		t.Errorf("kind = %q", te.Kind)
	}
	if te.Input.Text != "I feel overwhelmed" {
		t.Errorf("input = %+v", te.Input)
	}

	msgs, _ := f.store.Messages(ctx)
	if len(msgs) != 1 {
		t.Fatalf("messages after rollback = %d, want 1 (the user message)", len(msgs))
	}
	if msgs[0].Role != model.RoleUser {
		t.Errorf("surviving message role = %q", msgs[0].Role)
	}

	// Resubmit the carried input once the vendor is back up.
	f.llm.err = nil
	reply, err := f.uc.Retry(ctx, te.Input)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if reply.Content == "" {
		t.Error("retry produced empty reply")
	}
	msgs, _ = f.store.Messages(ctx)
	if len(msgs) != 3 {
		t.Errorf("messages after retry = %d, want 3", len(msgs))
	}
}

func TestSendVoiceTranscriptionFailureCreatesNoMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stt.err = domain.NewTranscriptionError("transcription failed", errors.New("503"))

	_, err := f.uc.SendVoice(ctx, []byte("audio"), "audio/webm")
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TurnError", err)
	}
	if te.Kind != domain.KindTranscription {
		t.Errorf("kind = %q", te.Kind)
	}
	if !te.Input.Voice() {
		t.Error("turn input lost the audio payload")
	}

	msgs, _ := f.store.Messages(ctx)
	if len(msgs) != 0 {
		t.Errorf("messages = %d, want none after transcription failure", len(msgs))
	}
	if len(f.llm.calls) != 0 {
		t.Errorf("generate called after transcription failure")
	}
}

func TestSendVoiceUsesTranscript(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.uc.SendVoice(ctx, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("SendVoice: %v", err)
	}
	if reply.Role != model.RoleAssistant {
		t.Errorf("reply role = %q", reply.Role)
	}
	if f.llm.calls[0].UserText != "I feel overwhelmed" {
		t.Errorf("generate userText = %q, want the transcript", f.llm.calls[0].UserText)
	}
	msgs, _ := f.store.Messages(ctx)
	if msgs[0].Content != "I feel overwhelmed" {
		t.Errorf("user message content = %q", msgs[0].Content)
	}
}

func TestAutoPlaySynthesizesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	on := true
	if err := f.uc.UpdateSettings(ctx, model.SettingsPatch{AutoPlay: &on}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	reply, err := f.uc.SendText(ctx, "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if reply.AudioURL == "" {
		t.Fatal("autoplay did not attach an audio url")
	}
	if len(f.tts.calls) != 1 {
		t.Fatalf("synthesize calls = %d, want 1", len(f.tts.calls))
	}
	if f.tts.calls[0].VoiceID != "voice-default" {
		t.Errorf("voice = %q", f.tts.calls[0].VoiceID)
	}

	// Second play reuses the stored url.
	url, err := f.uc.Play(ctx, reply.ID)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if url != reply.AudioURL {
		t.Errorf("cached url = %q, want %q", url, reply.AudioURL)
	}
	if len(f.tts.calls) != 1 {
		t.Errorf("synthesize calls after cached play = %d, want still 1", len(f.tts.calls))
	}
}

func TestAutoPlayFailureKeepsReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	on := true
	_ = f.uc.UpdateSettings(ctx, model.SettingsPatch{AutoPlay: &on})
	f.tts.err = domain.NewTTSError("speech synthesis failed", errors.New("502"))

	reply, err := f.uc.SendText(ctx, "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if reply.Content == "" {
		t.Error("reply lost despite synthesis failure")
	}
	if reply.AudioURL != "" {
		t.Errorf("AudioURL = %q after synthesis failure", reply.AudioURL)
	}
}

func TestPlayFailureCarriesMessageID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.uc.SendText(ctx, "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	f.tts.err = domain.NewTTSError("speech synthesis failed", errors.New("502"))

	_, err = f.uc.Play(ctx, reply.ID)
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TurnError", err)
	}
	if te.Kind != domain.KindTTS {
		t.Errorf("kind = %q", te.Kind)
	}
	if te.MessageID != reply.ID {
		t.Errorf("message id = %q, want %q", te.MessageID, reply.ID)
	}
	if m, _ := f.store.GetMessage(ctx, reply.ID); m.AudioURL != "" {
		t.Errorf("AudioURL = %q after failed synthesis", m.AudioURL)
	}
}

func TestPlayUsesCurrentVoiceSetting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.uc.SendText(ctx, "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	v2 := "voice-2"
	if err := f.uc.UpdateSettings(ctx, model.SettingsPatch{VoiceID: &v2}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if _, err := f.uc.Play(ctx, reply.ID); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if f.tts.calls[0].VoiceID != "voice-2" {
		t.Errorf("voice = %q, want updated voice-2", f.tts.calls[0].VoiceID)
	}
	if f.tts.calls[0].Format != "mp3_44100_128" {
		t.Errorf("format = %q", f.tts.calls[0].Format)
	}
}

func TestStaleReplyDroppedAfterMidTurnClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.hook = func() {
		if err := f.store.Clear(ctx); err != nil {
			t.Errorf("Clear: %v", err)
		}
	}

	_, err := f.uc.SendText(ctx, "hello")
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}

	msgs, _ := f.store.Messages(ctx)
	for _, m := range msgs {
		if m.Content == f.llm.result.OutputText {
			t.Error("stale reply applied to the new session")
		}
	}
}

func TestNewSessionStartsFresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.uc.SendText(ctx, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	before, _ := f.store.Get(ctx)

	fresh, err := f.uc.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if fresh.ID == before.ID {
		t.Error("session id unchanged after NewSession")
	}
	if len(fresh.Messages) != 0 {
		t.Errorf("fresh session has %d messages", len(fresh.Messages))
	}
}

func TestFeedbackBestEffort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.uc.SendText(ctx, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if err := f.uc.Feedback(ctx, "positive"); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if len(f.fb.submitted) != 1 {
		t.Fatalf("submitted = %d", len(f.fb.submitted))
	}
	got := f.fb.submitted[0]
	if got.Verdict != "positive" || got.MessageCount != 2 {
		t.Errorf("feedback = %+v", got)
	}

	// Submission failure must not surface.
	f.fb.err = errors.New("gateway down")
	if err := f.uc.Feedback(ctx, "negative"); err != nil {
		t.Errorf("Feedback with failing service: %v", err)
	}

	if err := f.uc.Feedback(ctx, "shrug"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("invalid verdict error = %v", err)
	}
}

func TestSingleTurnInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inner := make(chan error, 1)
	release := make(chan struct{})
	f.llm.hook = func() {
		_, err := f.uc.SendText(ctx, "second")
		inner <- err
		<-release
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := f.uc.SendText(ctx, "first"); err != nil {
			t.Errorf("outer turn: %v", err)
		}
	}()

	if err := <-inner; !errors.Is(err, domain.ErrTurnInFlight) {
		t.Errorf("overlapping turn error = %v, want ErrTurnInFlight", err)
	}
	close(release)
	<-done
}

func TestSendTextRejectsBlankInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.uc.SendText(ctx, "   "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("blank input error = %v", err)
	}
	if len(f.llm.calls) != 0 {
		t.Error("generate called for blank input")
	}
}
