package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("llama3", "Test", Metadata{"topic": "go"})

	require.NotEmpty(t, conv.ID)
	require.Equal(t, "llama3", conv.ModelName)
	require.Equal(t, "Test", conv.Title)
	require.Equal(t, Metadata{"topic": "go"}, conv.Metadata)
	require.False(t, conv.CreatedAt.IsZero())
	require.Equal(t, conv.CreatedAt, conv.UpdatedAt)
	require.Empty(t, conv.Messages)
}

func TestNewConversation_NilMetadata(t *testing.T) {
	conv := NewConversation("llama3", "Test", nil)
	require.NotNil(t, conv.Metadata)
}

func TestConversation_AddMessages(t *testing.T) {
	conv := NewConversation("llama3", "Test", nil)

	conv.AddSystemMessage("You are a helpful tutor.")
	conv.AddUserMessage("Hello")
	last := conv.AddAssistantMessage("Hi! How can I help?")

	require.Len(t, conv.Messages, 3)
	require.Equal(t, RoleSystem, conv.Messages[0].Role)
	require.Equal(t, RoleUser, conv.Messages[1].Role)
	require.Equal(t, RoleAssistant, conv.Messages[2].Role)

	for _, m := range conv.Messages {
		require.NotEmpty(t, m.ID)
		require.Equal(t, conv.ID, m.ConversationID)
		require.False(t, m.CreatedAt.IsZero())
	}

	require.Equal(t, last.CreatedAt, conv.UpdatedAt, "adding a message refreshes UpdatedAt")
}

func TestConversation_LastMessage(t *testing.T) {
	conv := NewConversation("llama3", "Test", nil)
	require.Nil(t, conv.LastMessage())

	conv.AddUserMessage("Hello")
	conv.AddAssistantMessage("Hi! How can I help?")

	last := conv.LastMessage()
	require.NotNil(t, last)
	require.Equal(t, "Hi! How can I help?", last.Content)
	require.Equal(t, RoleAssistant, last.Role)
}

func TestNewMessage(t *testing.T) {
	m := NewMessage("conv-1", RoleUser, "Hello")

	require.NotEmpty(t, m.ID)
	require.Equal(t, "conv-1", m.ConversationID)
	require.Equal(t, RoleUser, m.Role)
	require.Equal(t, "Hello", m.Content)
	require.NotNil(t, m.Metadata)
}
