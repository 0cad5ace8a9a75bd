package domain

import "time"

// DefaultDirective seeds a newly created chatbot's system prompt.
const DefaultDirective = `# Objective: You are an exceptional customer support representative. Your objective is to answer questions and provide resources about the business this chatbot represents. Answer questions efficiently and include key links. If a question is not clear, ask follow-up questions.
# Style: Your communication style should be friendly and professional. Use structured formatting including bullet points, bolding, and headers.
# Other Rules: For any user question, ALWAYS consult your knowledge source, even if you think you know the answer. If a user asks questions beyond the scope of your objective, kindly redirect to something you can help with instead.`

// Chatbot is a tenant-owned bot configuration. Every stored chunk and every
// search is scoped to exactly one chatbot.
type Chatbot struct {
	ID          string
	WorkspaceID string
	Name        string
	Directive   string
	Model       string
	Temperature float32
	MaxTokens   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewChatbot creates a Chatbot with the default directive and model parameters.
func NewChatbot(id, workspaceID, name, model string, now time.Time) *Chatbot {
	return &Chatbot{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		Directive:   DefaultDirective,
		Model:       model,
		Temperature: 0.7,
		MaxTokens:   1024,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidateChatbot validates a Chatbot instance
func ValidateChatbot(c *Chatbot) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chatbot cannot be nil")
	}
	if c.ID == "" {
		return NewDomainError(ErrCodeValidation, "chatbot ID is required")
	}
	if c.WorkspaceID == "" {
		return NewDomainError(ErrCodeValidation, "chatbot WorkspaceID is required")
	}
	if c.Name == "" {
		return NewDomainError(ErrCodeValidation, "chatbot Name is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return NewDomainError(ErrCodeValidation, "chatbot Temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return NewDomainError(ErrCodeValidation, "chatbot MaxTokens cannot be negative")
	}
	return nil
}
