package web

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/infra/adapters/llm"
	"wellness-companion/internal/infra/adapters/tts"
	"wellness-companion/internal/infra/logging"
	"wellness-companion/internal/infra/metrics"
)

var allowedAudioTypes = map[string]bool{
	"audio/webm":  true,
	"audio/wav":   true,
	"audio/mp3":   true,
	"audio/mpeg":  true,
	"audio/ogg":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or oversized multipart body")
		return
	}

	file, header, err := r.FormFile("audioFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audioFile is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}
	if !allowedAudioTypes[mimeType] {
		writeError(w, http.StatusBadRequest, "unsupported audio type")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}

	ctx := logging.WithSessionID(r.Context(), sessionID)
	start := time.Now()
	result, err := s.stt.Transcribe(ctx, audio, mimeType)
	metrics.ObserveVendorCall("stt", start, err)
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("transcription failed")
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transcription": result.Text,
		"language":      result.Language,
	})
}

type generateRequest struct {
	PromptTemplateID string `json:"promptTemplateId"`
	PromptVariables  struct {
		UserText  string                 `json:"userText"`
		SessionID string                 `json:"sessionId"`
		Context   []model.ContextMessage `json:"context"`
	} `json:"promptVariables"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PromptTemplateID == "" || req.SessionID == "" || req.PromptVariables.UserText == "" {
		writeError(w, http.StatusBadRequest, "promptTemplateId, promptVariables.userText and sessionId are required")
		return
	}

	systemPrompt, err := llm.ResolveTemplate(req.PromptTemplateID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	messages := llm.BuildMessages(systemPrompt, req.PromptVariables.UserText, req.PromptVariables.Context)

	ctx := logging.WithSessionID(r.Context(), req.SessionID)
	start := time.Now()
	gen, err := s.llm.Generate(ctx, messages)
	metrics.ObserveVendorCall("llm", start, err)
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("generation failed")
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         gen.ID,
		"outputText": gen.Text,
		"tokensUsed": gen.Usage.TotalTokens,
		"metadata": map[string]string{
			"model": gen.Model,
		},
	})
}

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Format  string `json:"format"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" || req.VoiceID == "" {
		writeError(w, http.StatusBadRequest, "text and voiceId are required")
		return
	}
	if req.Format == "" {
		req.Format = s.cfg.TTS.Format
	}

	start := time.Now()
	audio, err := s.tts.Synthesize(r.Context(), req.Text, req.VoiceID, req.Format)
	metrics.ObserveVendorCall("tts", start, err)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("speech synthesis failed")
		writeError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"audioUrl": tts.DataURL(audio),
		"duration": tts.EstimateDuration(len(audio.Data), req.Format),
	})
}

type feedbackRequest struct {
	Feedback     string `json:"feedback"`
	SessionID    string `json:"sessionId"`
	MessageCount int    `json:"messageCount"`
	Timestamp    string `json:"timestamp,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
	URL          string `json:"url,omitempty"`
}

// handleFeedback records the verdict in the logs only; there is no
// server-side persistence anywhere in this system.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Feedback != "positive" && req.Feedback != "negative" {
		writeError(w, http.StatusBadRequest, "feedback must be positive or negative")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	logging.With(r.Context(), s.log).Info().
		Str("feedback", req.Feedback).
		Str("session_id", req.SessionID).
		Int("message_count", req.MessageCount).
		Str("user_agent", req.UserAgent).
		Msg("feedback received")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "feedback recorded",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
