package internal

import (
	"strings"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a session. Messages are immutable
// once created.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a persisted conversation thread with ordered messages
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSessionTitle is the placeholder title assigned to a session until
// a real title is derived from its content or set by the user.
const DefaultSessionTitle = "New Chat"

// titleRuneLimit caps auto-generated titles at a readable length
const titleRuneLimit = 20

// IsEmpty reports whether the session has no messages yet
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// IsUntitled reports whether the session still carries the placeholder title
func (s *Session) IsUntitled() bool {
	return s.Title == DefaultSessionTitle
}

// Clone returns a deep copy of the session so callers can hand it out
// without exposing shared message slices.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// GenerateSessionTitle derives a title from the first user message in the
// given messages: trimmed and truncated to a short prefix with an
// ellipsis. Truncation is rune-based so multi-byte content never gets cut
// mid-character. Falls back to the placeholder title when no usable user
// message exists.
func GenerateSessionTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		title := strings.TrimSpace(m.Content)
		if title == "" {
			break
		}
		runes := []rune(title)
		if len(runes) > titleRuneLimit {
			return string(runes[:titleRuneLimit]) + "..."
		}
		return title
	}
	return DefaultSessionTitle
}

// defaultContextWindow is the number of recent non-system messages sent to
// the model on each turn.
const defaultContextWindow = 40

// SelectContextMessages picks the messages to send with a completion
// request: every system message, then the most recent windowSize
// non-system messages in chronological order. A windowSize of zero or
// less selects the default window.
func SelectContextMessages(messages []Message, windowSize int) []Message {
	if windowSize <= 0 {
		windowSize = defaultContextWindow
	}

	var result []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			result = append(result, m)
		}
	}

	var recent []Message
	for i := len(messages) - 1; i >= 0 && len(recent) < windowSize; i-- {
		if messages[i].Role != RoleSystem {
			recent = append(recent, messages[i])
		}
	}
	for i := len(recent) - 1; i >= 0; i-- {
		result = append(result, recent[i])
	}

	return result
}
