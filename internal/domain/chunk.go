package domain

import "time"

// Chunk is the atomic retrievable unit: a bounded text segment of a document
// with its embedding and the tenant tags every search filters on.
type Chunk struct {
	ID              string
	DocumentID      string
	KnowledgeBaseID string
	ChatbotID       string
	ChunkIndex      int
	Content         string
	Embedding       []float32
	Metadata        map[string]any
	CreatedAt       time.Time
}

// SearchResult is a transient search hit. Score is a similarity measure,
// higher is more relevant, comparable across knowledge bases within one query.
type SearchResult struct {
	DocumentID      string
	KnowledgeBaseID string
	ChatbotID       string
	ChunkIndex      int
	Content         string
	Metadata        map[string]any
	Score           float32
}

// ValidateChunk validates a Chunk before it is written to the vector store.
// dimensions is the store-wide embedding width; a mismatch is a hard error.
func ValidateChunk(c *Chunk, dimensions int) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chunk cannot be nil")
	}
	if c.DocumentID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "chunk DocumentID is required", ErrMissingRequiredField)
	}
	if c.KnowledgeBaseID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "chunk KnowledgeBaseID is required", ErrMissingRequiredField)
	}
	if c.ChatbotID == "" {
		return ErrMissingChatbotScope
	}
	if c.ChunkIndex < 0 {
		return NewDomainError(ErrCodeValidation, "chunk ChunkIndex cannot be negative")
	}
	if c.Content == "" {
		return NewDomainError(ErrCodeValidation, "chunk Content cannot be empty")
	}
	if dimensions > 0 && len(c.Embedding) != dimensions {
		return ErrEmbeddingDimension
	}
	return nil
}
