package adapter

import "context"

// Transcription is the normalized speech-to-text result.
type Transcription struct {
	Text     string
	Language string
}

// SpeechToText is the port for transcription vendors.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcription, error)
}
