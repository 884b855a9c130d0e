package llm

import (
	"github.com/pkoukk/tiktoken-go"

	"wellness-companion/internal/domain/model"
)

// promptTokens estimates prompt tokens locally for providers that omit usage
// in their response. Best-effort: unknown models fall back to cl100k_base,
// and 0 is returned when no encoding is available at all.
func promptTokens(modelName string, messages []model.ContextMessage) int {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	total := 0
	for _, m := range messages {
		// +4 approximates the per-message framing overhead of chat formats
		total += len(enc.Encode(m.Content, nil, nil)) + 4
	}
	return total
}
