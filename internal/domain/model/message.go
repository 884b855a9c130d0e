package model

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn entry in a conversation session. Content is filled in
// after generation completes for assistant placeholders; AudioURL is attached
// once speech synthesis has run for the message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	AudioURL  string    `json:"audioUrl,omitempty"`
	IsEdited  bool      `json:"isEdited,omitempty"`
}

// ContextMessage is the read-only projection of a Message sent to the
// generation vendor as conversation history.
type ContextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
