package service

import (
	"context"
	"errors"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/telemetry"
)

// KnowledgeAdminRepository defines the repository interface for knowledge base administration
type KnowledgeAdminRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBase, error)
	ListDocuments(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error)
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Delete(ctx context.Context, id string) error
}

// ChunkAdminRepository covers chunk-level deletes and aggregates.
type ChunkAdminRepository interface {
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	DeleteByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error)
	DeleteByChatbot(ctx context.Context, chatbotID string) (int64, error)
	Stats(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBaseStats, error)
}

// KnowledgeBaseWithDocuments pairs a knowledge base with its documents for
// listing endpoints.
type KnowledgeBaseWithDocuments struct {
	KnowledgeBase *domain.KnowledgeBase
	Documents     []*domain.Document
}

// KnowledgeService handles listing, stats, and scoped deletion of ingested
// knowledge.
type KnowledgeService struct {
	kbRepo    KnowledgeAdminRepository
	chunkRepo ChunkAdminRepository
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(kbRepo KnowledgeAdminRepository, chunkRepo ChunkAdminRepository) *KnowledgeService {
	return &KnowledgeService{kbRepo: kbRepo, chunkRepo: chunkRepo}
}

// ListByChatbot returns the chatbot's knowledge bases with their documents.
func (s *KnowledgeService) ListByChatbot(ctx context.Context, chatbotID string) ([]*KnowledgeBaseWithDocuments, error) {
	if chatbotID == "" {
		return nil, domain.ErrMissingChatbotScope
	}

	bases, err := s.kbRepo.ListByChatbot(ctx, chatbotID)
	if err != nil {
		return nil, err
	}

	out := make([]*KnowledgeBaseWithDocuments, 0, len(bases))
	for _, kb := range bases {
		docs, err := s.kbRepo.ListDocuments(ctx, kb.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &KnowledgeBaseWithDocuments{KnowledgeBase: kb, Documents: docs})
	}
	return out, nil
}

// GetKnowledgeBase returns one knowledge base by ID.
func (s *KnowledgeService) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	return s.kbRepo.GetByID(ctx, id)
}

// GetDocument returns one document by ID.
func (s *KnowledgeService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.kbRepo.GetDocument(ctx, documentID)
}

// Stats returns per-knowledge-base chunk and document counts.
func (s *KnowledgeService) Stats(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBaseStats, error) {
	if chatbotID == "" {
		return nil, domain.ErrMissingChatbotScope
	}
	return s.chunkRepo.Stats(ctx, chatbotID)
}

// DeleteDocument removes one document and its chunks, returning how many
// chunks were deleted. Deleting a document that does not exist is a no-op
// that reports zero removed chunks.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeleteDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	if _, err := s.kbRepo.GetDocument(ctx, documentID); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return 0, nil
		}
		return 0, err
	}
	deleted, err := s.chunkRepo.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if err := s.kbRepo.DeleteDocument(ctx, documentID); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// DeleteKnowledgeBase removes a knowledge base, its documents, and its
// chunks, returning how many chunks were deleted. Deleting a knowledge base
// that does not exist is a no-op that reports zero removed chunks.
func (s *KnowledgeService) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeleteKnowledgeBase", telemetry.SpanAttributes{
		KnowledgeBaseID: knowledgeBaseID,
		Operation:       "delete",
	})
	defer span.End()

	if _, err := s.kbRepo.GetByID(ctx, knowledgeBaseID); err != nil {
		if errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
			return 0, nil
		}
		return 0, err
	}
	deleted, err := s.chunkRepo.DeleteByKnowledgeBase(ctx, knowledgeBaseID)
	if err != nil {
		return 0, err
	}
	if err := s.kbRepo.Delete(ctx, knowledgeBaseID); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// PurgeChatbotKnowledge removes every chunk belonging to a chatbot. Used
// when the chatbot itself is deleted.
func (s *KnowledgeService) PurgeChatbotKnowledge(ctx context.Context, chatbotID string) (int64, error) {
	if chatbotID == "" {
		return 0, domain.ErrMissingChatbotScope
	}
	return s.chunkRepo.DeleteByChatbot(ctx, chatbotID)
}
