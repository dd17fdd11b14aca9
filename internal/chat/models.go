// Package chat persists trainer conversations and arbitrates concurrent
// turns per user.
package chat

import (
	"time"
)

// MessageType distinguishes who authored a message.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
)

// IsValid validates a MessageType.
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeUser, MessageTypeAssistant:
		return true
	default:
		return false
	}
}

// Conversation is one trainer conversation session.
type Conversation struct {
	ID             int
	PlatformUserID string
	Title          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message is a single message in a conversation. ErrorMessage is set on
// assistant messages that report a failed turn so the transcript stays
// honest about what happened.
type Message struct {
	ID             int
	ConversationID int
	MessageType    MessageType
	Content        string
	ErrorMessage   *string
	CreatedAt      time.Time
}
