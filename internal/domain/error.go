package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSessionExpired  = errors.New("session has expired")
	ErrTurnInFlight    = errors.New("a conversation turn is already in flight")
)

// VendorErrorKind discriminates which vendor stage a failure came from.
type VendorErrorKind string

const (
	KindTranscription VendorErrorKind = "transcription"
	KindGeneration    VendorErrorKind = "generation"
	KindTTS           VendorErrorKind = "tts"
)

// VendorError is the tagged error variant for failures of the three vendor
// stages. Message carries the server-supplied text when available, otherwise
// a generic fallback.
type VendorError struct {
	Kind    VendorErrorKind
	Message string
	cause   error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *VendorError) Unwrap() error { return e.cause }

func NewTranscriptionError(message string, cause error) *VendorError {
	return &VendorError{Kind: KindTranscription, Message: message, cause: cause}
}

func NewGenerationError(message string, cause error) *VendorError {
	return &VendorError{Kind: KindGeneration, Message: message, cause: cause}
}

func NewTTSError(message string, cause error) *VendorError {
	return &VendorError{Kind: KindTTS, Message: message, cause: cause}
}

// AsVendorError unwraps err into a *VendorError when one is in the chain.
func AsVendorError(err error) (*VendorError, bool) {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
