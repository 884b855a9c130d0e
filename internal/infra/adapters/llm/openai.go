package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"wellness-companion/internal/domain/model"
	"wellness-companion/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.TextGenerator using the Chat Completions API.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, modelName string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  modelName,
	}, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, messages []model.ContextMessage) (*adapter.Generation, error) {
	if len(messages) == 0 {
		return nil, errors.New("openai: no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("no choice content")
	}

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = promptTokens(o.model, messages)
		usage.TotalTokens = usage.PromptTokens
	}

	return &adapter.Generation{
		ID:    resp.ID,
		Text:  resp.Choices[0].Message.Content,
		Model: o.model,
		Usage: usage,
	}, nil
}
