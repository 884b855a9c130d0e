package llm

import (
	"fmt"

	"wellness-companion/internal/domain/model"
)

// DefaultTemplateID is the fixed template identifier sent by the client.
const DefaultTemplateID = "wellness-support-v1"

const wellnessSystemPrompt = `You are a warm, supportive mental-wellness companion. ` +
	`Listen closely, reflect what the person is feeling, and respond with empathy in a ` +
	`few short sentences. Never diagnose, never prescribe, and gently suggest reaching ` +
	`out to a professional when someone describes a crisis. Keep a calm, encouraging tone.`

var templates = map[string]string{
	DefaultTemplateID: wellnessSystemPrompt,
}

// RoleSystem is only ever produced by template assembly; session messages
// carry user/assistant roles exclusively.
const RoleSystem model.Role = "system"

// ResolveTemplate maps a template id to its system prompt.
func ResolveTemplate(id string) (string, error) {
	prompt, ok := templates[id]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", id)
	}
	return prompt, nil
}

// BuildMessages assembles the full prompt: system instruction, history in
// order, then the new user text last.
func BuildMessages(systemPrompt, userText string, history []model.ContextMessage) []model.ContextMessage {
	out := make([]model.ContextMessage, 0, len(history)+2)
	out = append(out, model.ContextMessage{Role: RoleSystem, Content: systemPrompt})
	out = append(out, history...)
	out = append(out, model.ContextMessage{Role: model.RoleUser, Content: userText})
	return out
}
