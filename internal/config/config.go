// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS; empty means "*"
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

type ClientConfig struct {
	BaseURL string      `yaml:"base_url"`
	Retry   RetryConfig `yaml:"retry"`
}

type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	Backend    string        `yaml:"backend"` // memory | redis
	StorageKey string        `yaml:"storage_key"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	PromptTemplate  string `yaml:"prompt_template"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type STTConfig struct {
	DeepgramKey string `yaml:"deepgram_key"`
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
}

type TTSConfig struct {
	ElevenLabsKey  string `yaml:"elevenlabs_key"`
	Endpoint       string `yaml:"endpoint"`
	ModelID        string `yaml:"model_id"`
	DefaultVoiceID string `yaml:"default_voice_id"`
	Format         string `yaml:"format"`
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	AI      AIConfig      `yaml:"ai"`
	STT     STTConfig     `yaml:"stt"`
	TTS     TTSConfig     `yaml:"tts"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 50 << 20 // 50MB audio upload cap
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = "http://localhost:8080"
	}
	if cfg.Client.Retry.MaxRetries < 0 {
		cfg.Client.Retry.MaxRetries = 0
	}
	if cfg.Client.Retry.MaxRetries == 0 && cfg.Client.Retry.BaseDelay == 0 {
		cfg.Client.Retry.MaxRetries = 3
	}
	if cfg.Client.Retry.BaseDelay <= 0 {
		cfg.Client.Retry.BaseDelay = time.Second
	}
	if cfg.Client.Retry.MaxDelay <= 0 {
		cfg.Client.Retry.MaxDelay = 10 * time.Second
	}
	cfg.Session.TTL = normalizeTTL(cfg.Session.TTL)
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.StorageKey == "" {
		cfg.Session.StorageKey = "wellness_chat_session"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.PromptTemplate == "" {
		cfg.AI.PromptTemplate = "wellness-support-v1"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 1024
	}
	if cfg.STT.Endpoint == "" {
		cfg.STT.Endpoint = "https://api.deepgram.com/v1/listen"
	}
	if cfg.STT.Model == "" {
		cfg.STT.Model = "nova-2"
	}
	if cfg.TTS.Endpoint == "" {
		cfg.TTS.Endpoint = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if cfg.TTS.ModelID == "" {
		cfg.TTS.ModelID = "eleven_multilingual_v2"
	}
	if cfg.TTS.DefaultVoiceID == "" {
		cfg.TTS.DefaultVoiceID = "EXAVITQu4vr4xnSDxMaL"
	}
	if cfg.TTS.Format == "" {
		cfg.TTS.Format = "mp3_44100_128"
	}
}

func (cfg *Config) validate() error {
	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", cfg.Session.Backend)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
