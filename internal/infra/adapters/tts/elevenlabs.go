package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wellness-companion/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.SpeechSynthesizer = (*ElevenLabsAdapter)(nil)

// ElevenLabsAdapter implements adapter.SpeechSynthesizer against the
// ElevenLabs text-to-speech API. The voice id is a path segment; auth uses
// the xi-api-key header.
type ElevenLabsAdapter struct {
	apiKey   string
	endpoint string // e.g., https://api.elevenlabs.io/v1/text-to-speech
	modelID  string
	client   *http.Client
}

func NewElevenLabsAdapter(apiKey, endpoint, modelID string) (*ElevenLabsAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs api key empty")
	}
	if endpoint == "" {
		endpoint = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsAdapter{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		modelID:  modelID,
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (e *ElevenLabsAdapter) Synthesize(ctx context.Context, text, voiceID, format string) (*adapter.Audio, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}
	if voiceID == "" {
		return nil, errors.New("empty voice id")
	}

	reqBody := struct {
		Text    string `json:"text"`
		ModelID string `json:"model_id"`
	}{Text: text, ModelID: e.modelID}

	b, _ := json.Marshal(reqBody)
	target := e.endpoint + "/" + voiceID
	if format != "" {
		target += "?output_format=" + format
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elevenlabs http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio response")
	}
	return &adapter.Audio{Data: data, MIMEType: "audio/mpeg"}, nil
}

// DataURL encodes synthesized audio as an opaque playable reference.
func DataURL(a *adapter.Audio) string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// EstimateDuration derives playback seconds from the payload size and the
// bitrate encoded in the format name (e.g. mp3_44100_128 is 128 kbps).
// Unknown formats assume 128 kbps.
func EstimateDuration(nbytes int, format string) float64 {
	kbps := 128
	if parts := strings.Split(format, "_"); len(parts) == 3 {
		if v, err := strconv.Atoi(parts[2]); err == nil && v > 0 {
			kbps = v
		}
	}
	bytesPerSecond := float64(kbps) * 1000 / 8
	return float64(nbytes) / bytesPerSecond
}
