package domain

import "time"

// KnowledgeBaseType classifies what a knowledge base was built from.
type KnowledgeBaseType string

const (
	KnowledgeBaseTypeDoc KnowledgeBaseType = "DOC"
	KnowledgeBaseTypeFAQ KnowledgeBaseType = "FAQ"
	KnowledgeBaseTypeWeb KnowledgeBaseType = "WEB"
)

// KnowledgeBase is a named collection of documents scoped to one chatbot.
type KnowledgeBase struct {
	ID        string
	ChatbotID string
	Name      string
	Type      KnowledgeBaseType
	IndexName string
	CreatedAt time.Time
}

// Document is one ingested source (a file, a table batch, or a webpage)
// inside a knowledge base. Its chunks live in the vector store.
type Document struct {
	ID              string
	KnowledgeBaseID string
	Source          string
	Content         string
	Metadata        map[string]any
	CreatedAt       time.Time
}

// KnowledgeBaseStats aggregates chunk and document counts for one knowledge
// base.
type KnowledgeBaseStats struct {
	KnowledgeBaseID string
	TotalChunks     int64
	DocumentCount   int64
}

// ValidateKnowledgeBase validates a KnowledgeBase instance
func ValidateKnowledgeBase(kb *KnowledgeBase) error {
	if kb == nil {
		return NewDomainError(ErrCodeValidation, "knowledge base cannot be nil")
	}
	if kb.ID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge base ID is required")
	}
	if kb.ChatbotID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge base ChatbotID is required")
	}
	if kb.Name == "" {
		return NewDomainError(ErrCodeValidation, "knowledge base Name is required")
	}
	if !isValidKnowledgeBaseType(kb.Type) {
		return ErrInvalidKnowledgeBaseType
	}
	return nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}
	if d.KnowledgeBaseID == "" {
		return NewDomainError(ErrCodeValidation, "document KnowledgeBaseID is required")
	}
	if d.Source == "" {
		return NewDomainError(ErrCodeValidation, "document Source is required")
	}
	return nil
}

func isValidKnowledgeBaseType(t KnowledgeBaseType) bool {
	switch t {
	case KnowledgeBaseTypeDoc, KnowledgeBaseTypeFAQ, KnowledgeBaseTypeWeb:
		return true
	}
	return false
}
