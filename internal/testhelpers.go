package internal

import (
	"fmt"
	"time"
)

// CreateTestSession creates a test session with a short sample conversation
func CreateTestSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:    id,
		Title: "Test Conversation",
		Messages: []Message{
			{
				Role:      RoleUser,
				Content:   "Hello, how are you?",
				Timestamp: now,
			},
			{
				Role:      RoleAssistant,
				Content:   "I'm doing well, thank you!",
				Timestamp: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Title:     fmt.Sprintf("Session %s", id),
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
