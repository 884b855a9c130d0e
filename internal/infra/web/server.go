// Package web exposes the gateway endpoints the conversation client talks
// to: transcription, generation, speech synthesis and feedback. Handlers
// validate, forward to the vendor adapters, and normalize responses; no
// state is kept server-side.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wellness-companion/internal/config"
	"wellness-companion/internal/domain/ports/adapter"
)

type Server struct {
	cfg *config.Config
	stt adapter.SpeechToText
	llm adapter.TextGenerator
	tts adapter.SpeechSynthesizer
	log *zerolog.Logger
}

func NewServer(cfg *config.Config, stt adapter.SpeechToText, llm adapter.TextGenerator, tts adapter.SpeechSynthesizer, logger *zerolog.Logger) *Server {
	return &Server{cfg: cfg, stt: stt, llm: llm, tts: tts, log: logger}
}

// Router builds the chi router with all middleware and routes attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.log))
	r.Use(traceID)
	r.Use(requestLog(s.log))
	r.Use(cors(s.cfg.Server.AllowedOrigins))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Post("/api/speech/transcribe", s.handleTranscribe)
	r.Post("/api/chat/generate", s.handleGenerate)
	r.Post("/api/voice/tts", s.handleTTS)
	r.Post("/api/feedback", s.handleFeedback)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
