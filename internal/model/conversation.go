// Package model defines the conversation and message types the session
// store persists.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a titled, timestamped session holding an ordered list of
// messages and the name of the generative model it ran against.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Metadata  Metadata  `json:"metadata"`
	Messages  []Message `json:"messages,omitempty"`
}

// NewConversation creates an empty conversation with a fresh id and both
// timestamps set to now.
func NewConversation(modelName, title string, metadata Metadata) *Conversation {
	if metadata == nil {
		metadata = Metadata{}
	}
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		ModelName: modelName,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}
}

func (c *Conversation) addMessage(role Role, content string) *Message {
	m := NewMessage(c.ID, role, content)
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = m.CreatedAt
	return &c.Messages[len(c.Messages)-1]
}

// AddSystemMessage appends a system turn and refreshes UpdatedAt.
func (c *Conversation) AddSystemMessage(content string) *Message {
	return c.addMessage(RoleSystem, content)
}

// AddUserMessage appends a user turn and refreshes UpdatedAt.
func (c *Conversation) AddUserMessage(content string) *Message {
	return c.addMessage(RoleUser, content)
}

// AddAssistantMessage appends an assistant turn and refreshes UpdatedAt.
func (c *Conversation) AddAssistantMessage(content string) *Message {
	return c.addMessage(RoleAssistant, content)
}

// LastMessage returns the most recent message, or nil when there is none.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
