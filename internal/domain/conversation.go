package domain

import "time"

// SenderType identifies who wrote a message.
type SenderType string

const (
	SenderTypeUser SenderType = "USER"
	SenderTypeBot  SenderType = "BOT"
)

// Conversation is one chat session between a widget visitor and a chatbot.
type Conversation struct {
	ID        string
	ChatbotID string
	Title     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single turn inside a conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderType     SenderType
	Content        string
	CreatedAt      time.Time
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return NewDomainError(ErrCodeValidation, "message cannot be nil")
	}
	if m.ConversationID == "" {
		return NewDomainError(ErrCodeValidation, "message ConversationID is required")
	}
	if m.Content == "" {
		return NewDomainError(ErrCodeValidation, "message Content is required")
	}
	if !isValidSenderType(m.SenderType) {
		return ErrInvalidSenderType
	}
	return nil
}

func isValidSenderType(s SenderType) bool {
	switch s {
	case SenderTypeUser, SenderTypeBot:
		return true
	}
	return false
}
