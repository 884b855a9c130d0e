package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wellness-companion/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.SpeechToText = (*DeepgramAdapter)(nil)

// DeepgramAdapter implements adapter.SpeechToText against Deepgram's
// prerecorded listen API. Audio is sent raw with its content type;
// Authorization uses the "Token <key>" scheme.
type DeepgramAdapter struct {
	apiKey   string
	endpoint string // e.g., https://api.deepgram.com/v1/listen
	model    string
	client   *http.Client
}

func NewDeepgramAdapter(apiKey, endpoint, model string) (*DeepgramAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram api key empty")
	}
	if endpoint == "" {
		endpoint = "https://api.deepgram.com/v1/listen"
	}
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramAdapter{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (d *DeepgramAdapter) Transcribe(ctx context.Context, audio []byte, mimeType string) (*adapter.Transcription, error) {
	if len(audio) == 0 {
		return nil, errors.New("empty audio payload")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	q.Set("detect_language", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("deepgram http %d", resp.StatusCode)
	}

	var payload struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
				DetectedLanguage string `json:"detected_language"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Results.Channels) == 0 || len(payload.Results.Channels[0].Alternatives) == 0 {
		return nil, errors.New("no transcript in response")
	}

	ch := payload.Results.Channels[0]
	lang := ch.DetectedLanguage
	if lang == "" {
		lang = "en-US"
	}
	return &adapter.Transcription{
		Text:     ch.Alternatives[0].Transcript,
		Language: lang,
	}, nil
}
