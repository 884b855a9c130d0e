package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, modelName string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: modelName, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, messages []model.ContextMessage) (*adapter.Generation, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini: no messages")
	}
	last := messages[len(messages)-1]
	if last.Role != model.RoleUser {
		return nil, errors.New("gemini: last message must be from user")
	}
	history := toGenAIHistory(messages[:len(messages)-1])

	chat, err := g.client.Chats.Create(
		ctx,
		g.model,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		history,
	)
	if err != nil {
		return nil, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return nil, err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		return nil, errors.New("gemini: empty candidate text")
	}

	usage := adapter.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = promptTokens(g.model, messages)
		usage.TotalTokens = usage.PromptTokens
	}

	return &adapter.Generation{
		ID:    uuid.NewString(),
		Text:  text,
		Model: g.model,
		Usage: usage,
	}, nil
}

func toGenAIHistory(msgs []model.ContextMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(string(m.Role)) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// Gemini has no separate system role in history; carry the
			// instruction as a user message.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
