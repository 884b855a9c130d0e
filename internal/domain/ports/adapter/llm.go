package adapter

import (
	"context"

	"wellness-companion/internal/domain/model"
)

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generation is the normalized text-generation result.
type Generation struct {
	ID    string
	Text  string
	Model string
	Usage Usage
}

// TextGenerator is the port for LLM vendors. The message slice is the fully
// assembled prompt: system instruction first, then history, then the new
// user message.
type TextGenerator interface {
	Generate(ctx context.Context, messages []model.ContextMessage) (*Generation, error)
}
