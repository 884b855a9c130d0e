// Package apiclient implements the gateway service ports over HTTP. All
// calls except feedback route through the retrying client; feedback is
// best-effort and sent once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/gateway"
	"wellness-companion/internal/infra/httpclient"
)

// Compile-time checks
var (
	_ gateway.TranscriptionService = (*Client)(nil)
	_ gateway.GenerationService    = (*Client)(nil)
	_ gateway.SynthesisService     = (*Client)(nil)
	_ gateway.FeedbackService      = (*Client)(nil)
)

type Client struct {
	base             string
	http             *httpclient.Client
	plain            *http.Client // feedback only
	promptTemplateID string
	log              *zerolog.Logger
}

func New(baseURL string, rc *httpclient.Client, promptTemplateID string, logger *zerolog.Logger) *Client {
	return &Client{
		base:             strings.TrimRight(baseURL, "/"),
		http:             rc,
		plain:            &http.Client{Timeout: 10 * time.Second},
		promptTemplateID: promptTemplateID,
		log:              logger,
	}
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType, sessionID string) (*gateway.TranscriptionResult, error) {
	newReq := func(ctx context.Context) (*http.Request, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("audioFile", audioFilename(mimeType))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(audio); err != nil {
			return nil, err
		}
		if err := mw.WriteField("sessionId", sessionID); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/speech/transcribe", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}

	var out gateway.TranscriptionResult
	if err := c.call(ctx, newReq, &out); err != nil {
		return nil, domain.NewTranscriptionError(messageFrom(err, "transcription failed"), err)
	}
	return &out, nil
}

func (c *Client) Generate(ctx context.Context, userText, sessionID string, history []model.ContextMessage) (*gateway.GenerationResult, error) {
	if history == nil {
		history = []model.ContextMessage{}
	}
	body := map[string]any{
		"promptTemplateId": c.promptTemplateID,
		"promptVariables": map[string]any{
			"userText":  userText,
			"sessionId": sessionID,
			"context":   history,
		},
		"sessionId": sessionID,
	}

	var out gateway.GenerationResult
	if err := c.call(ctx, c.jsonPost("/api/chat/generate", body), &out); err != nil {
		return nil, domain.NewGenerationError(messageFrom(err, "generation failed"), err)
	}
	return &out, nil
}

func (c *Client) Synthesize(ctx context.Context, text, voiceID, format string) (*gateway.SynthesisResult, error) {
	body := map[string]any{
		"text":    text,
		"voiceId": voiceID,
		"format":  format,
	}

	var out gateway.SynthesisResult
	if err := c.call(ctx, c.jsonPost("/api/voice/tts", body), &out); err != nil {
		return nil, domain.NewTTSError(messageFrom(err, "speech synthesis failed"), err)
	}
	return &out, nil
}

// Submit sends feedback once, without retry. Failures are reported to the
// caller, which is expected to log and move on.
func (c *Client) Submit(ctx context.Context, fb gateway.Feedback) error {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}
	raw, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/feedback", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("feedback rejected: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) jsonPost(path string, body any) httpclient.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

func (c *Client) call(ctx context.Context, newReq httpclient.RequestFunc, out any) error {
	resp, err := c.http.Do(ctx, newReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// messageFrom prefers the server-supplied error body over the fallback.
func messageFrom(err error, fallback string) string {
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

func audioFilename(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return "recording.webm"
	case "audio/wav":
		return "recording.wav"
	case "audio/ogg":
		return "recording.ogg"
	case "audio/m4a", "audio/x-m4a":
		return "recording.m4a"
	default:
		return "recording.mp3"
	}
}
