// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wellness-companion/internal/config"
	"wellness-companion/internal/domain/ports/adapter"
	llmAdapters "wellness-companion/internal/infra/adapters/llm"
	sttAdapters "wellness-companion/internal/infra/adapters/stt"
	ttsAdapters "wellness-companion/internal/infra/adapters/tts"
	"wellness-companion/internal/infra/logging"
	"wellness-companion/internal/infra/metrics"
	"wellness-companion/internal/infra/web"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Speech to text ----
	stt, err := sttAdapters.NewDeepgramAdapter(cfg.STT.DeepgramKey, cfg.STT.Endpoint, cfg.STT.Model)
	if err != nil {
		log.Fatalf("deepgram adapter: %v", err)
	}

	// ---- Text generation (OpenAI -> Gemini) ----
	var llm adapter.TextGenerator
	if cfg.AI.OpenAIKey != "" {
		llm, err = llmAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generation adapter: OpenAI")
	} else if cfg.AI.GeminiKey != "" {
		llm, err = llmAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generation adapter: Gemini")
	} else {
		log.Fatalf("no generation provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}

	// ---- Speech synthesis ----
	tts, err := ttsAdapters.NewElevenLabsAdapter(cfg.TTS.ElevenLabsKey, cfg.TTS.Endpoint, cfg.TTS.ModelID)
	if err != nil {
		log.Fatalf("elevenlabs adapter: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           web.NewServer(cfg, stt, llm, tts, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
