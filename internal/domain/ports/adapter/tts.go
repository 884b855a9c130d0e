package adapter

import "context"

// Audio is raw synthesized speech as returned by a TTS vendor.
type Audio struct {
	Data     []byte
	MIMEType string
}

// SpeechSynthesizer is the port for text-to-speech vendors.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, format string) (*Audio, error)
}
