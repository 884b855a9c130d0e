// File: cmd/chat/main.go
//
// Interactive conversation client. Talks to a running gateway (cmd/app)
// and keeps all session state locally, the way the browser client does.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"wellness-companion/internal/config"
	"wellness-companion/internal/domain"
	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/storage"
	"wellness-companion/internal/infra/apiclient"
	"wellness-companion/internal/infra/httpclient"
	"wellness-companion/internal/infra/logging"
	"wellness-companion/internal/infra/metrics"
	red "wellness-companion/internal/infra/redis"
	"wellness-companion/internal/infra/session"
	"wellness-companion/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", true, "enable developer mode (console logging, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Session storage (memory by default, redis to survive restarts) ----
	var backend storage.Backend
	switch cfg.Session.Backend {
	case "", "memory":
		backend = session.NewMemoryBackend()
	case "redis":
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		backend = red.NewSessionBackend(client, cfg.Session.StorageKey, cfg.Session.TTL)
	default:
		log.Fatalf("unknown session backend %q", cfg.Session.Backend)
	}
	store := session.NewStore(backend, cfg.Session.TTL, model.DefaultSettings(cfg.TTS.DefaultVoiceID), logger)

	// ---- Gateway client with retry ----
	policy := httpclient.Policy{
		MaxRetries: cfg.Client.Retry.MaxRetries,
		BaseDelay:  cfg.Client.Retry.BaseDelay,
		MaxDelay:   cfg.Client.Retry.MaxDelay,
	}
	rc := httpclient.New(&http.Client{Timeout: 60 * time.Second}, policy)
	api := apiclient.New(cfg.Client.BaseURL, rc, cfg.AI.PromptTemplate, logger)

	uc := usecase.NewConversationUseCase(store, api, api, api, api, cfg.TTS.Format, logger)

	fmt.Println("wellness companion. Type a message, or /help for commands.")
	repl(ctx, uc)
}

func repl(ctx context.Context, uc usecase.ConversationUseCase) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lastFailed *usecase.TurnInput

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, uc, line, &lastFailed); quit {
				return
			}
			continue
		}

		reply, err := uc.SendText(ctx, line)
		lastFailed = reportTurn(reply, err)
	}
}

func command(ctx context.Context, uc usecase.ConversationUseCase, line string, lastFailed **usecase.TurnInput) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`  /new              start a fresh session
  /voice <file>     send an audio recording
  /play <n>         synthesize and print audio for the n-th last assistant reply (default 1)
  /retry            resubmit the last failed turn
  /voiceid <id>     change the synthesis voice
  /autoplay on|off  synthesize every reply automatically
  /feedback <positive|negative>
  /quit`)

	case "/new":
		s, err := uc.NewSession(ctx)
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Println("new session", s.ID)

	case "/voice":
		if len(fields) < 2 {
			fmt.Println("usage: /voice <file>")
			break
		}
		audio, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		reply, err := uc.SendVoice(ctx, audio, mimeTypeFor(fields[1]))
		*lastFailed = reportTurn(reply, err)

	case "/play":
		msgs, err := uc.Messages(ctx)
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		back := 1
		if len(fields) > 1 {
			fmt.Sscanf(fields[1], "%d", &back)
		}
		id := nthAssistantID(msgs, back)
		if id == "" {
			fmt.Println("no assistant reply to play")
			break
		}
		url, err := uc.Play(ctx, id)
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Println("audio:", truncate(url, 80))

	case "/retry":
		if *lastFailed == nil {
			fmt.Println("nothing to retry")
			break
		}
		reply, err := uc.Retry(ctx, **lastFailed)
		*lastFailed = reportTurn(reply, err)

	case "/voiceid":
		if len(fields) < 2 {
			fmt.Println("usage: /voiceid <id>")
			break
		}
		v := fields[1]
		if err := uc.UpdateSettings(ctx, model.SettingsPatch{VoiceID: &v}); err != nil {
			fmt.Println("error:", err)
		}

	case "/autoplay":
		on := len(fields) > 1 && fields[1] == "on"
		if err := uc.UpdateSettings(ctx, model.SettingsPatch{AutoPlay: &on}); err != nil {
			fmt.Println("error:", err)
		}

	case "/feedback":
		if len(fields) < 2 {
			fmt.Println("usage: /feedback <positive|negative>")
			break
		}
		if err := uc.Feedback(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
		} else {
			fmt.Println("thanks for the feedback")
		}

	default:
		fmt.Println("unknown command, try /help")
	}
	return false
}

// reportTurn prints the outcome and returns the input to resubmit when the
// turn failed with a retryable vendor error.
func reportTurn(reply *model.Message, err error) *usecase.TurnInput {
	if err == nil {
		fmt.Println(reply.Content)
		if reply.AudioURL != "" {
			fmt.Println("audio:", truncate(reply.AudioURL, 80))
		}
		return nil
	}
	var te *usecase.TurnError
	if errors.As(err, &te) {
		fmt.Printf("%s (use /retry to resubmit)\n", te.Message)
		in := te.Input
		return &in
	}
	if errors.Is(err, domain.ErrTurnInFlight) {
		fmt.Println("still working on the previous message")
		return nil
	}
	fmt.Println("error:", err)
	return nil
}

func nthAssistantID(msgs []model.Message, back int) string {
	if back < 1 {
		back = 1
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && msgs[i].Content != "" {
			back--
			if back == 0 {
				return msgs[i].ID
			}
		}
	}
	return ""
}

func mimeTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(path, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(path, ".m4a"):
		return "audio/m4a"
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mp3"
	default:
		return "audio/webm"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
