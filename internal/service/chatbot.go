package service

import (
	"context"
	"errors"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/telemetry"
)

// ChatbotAdminRepository defines the repository interface for chatbot administration
type ChatbotAdminRepository interface {
	Create(ctx context.Context, c *domain.Chatbot) error
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error)
	Update(ctx context.Context, c *domain.Chatbot) error
	Delete(ctx context.Context, id string) error
}

// KnowledgePurger removes all of a chatbot's chunks from the vector store.
type KnowledgePurger interface {
	PurgeChatbotKnowledge(ctx context.Context, chatbotID string) (int64, error)
}

// CreateChatbotInput represents the input for creating a chatbot.
type CreateChatbotInput struct {
	WorkspaceID string
	Name        string
	Directive   string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// UpdateChatbotInput represents the input for updating a chatbot. Nil fields
// are left unchanged.
type UpdateChatbotInput struct {
	ChatbotID   string
	Name        string
	Directive   string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// ChatbotService handles business logic for chatbots.
type ChatbotService struct {
	repo         ChatbotAdminRepository
	purger       KnowledgePurger
	defaultModel string
	uuidGen      UUIDGenerator
}

// NewChatbotService creates a new ChatbotService instance
func NewChatbotService(repo ChatbotAdminRepository, purger KnowledgePurger, defaultModel string) *ChatbotService {
	return &ChatbotService{
		repo:         repo,
		purger:       purger,
		defaultModel: defaultModel,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// Create creates a chatbot with the default directive unless one is given.
func (s *ChatbotService) Create(ctx context.Context, input CreateChatbotInput) (*domain.Chatbot, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatbotService.Create", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		Operation:   "create",
	})
	defer span.End()

	model := input.Model
	if model == "" {
		model = s.defaultModel
	}

	chatbot := domain.NewChatbot(s.uuidGen.NewString(), input.WorkspaceID, input.Name, model, time.Now().UTC())
	if input.Directive != "" {
		chatbot.Directive = input.Directive
	}
	if input.Temperature != nil {
		chatbot.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		chatbot.MaxTokens = *input.MaxTokens
	}

	if err := domain.ValidateChatbot(chatbot); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, chatbot); err != nil {
		return nil, err
	}
	return chatbot, nil
}

// GetByID retrieves a chatbot by ID.
func (s *ChatbotService) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByWorkspace retrieves all chatbots in a workspace.
func (s *ChatbotService) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

// Update applies the non-nil fields of input to the chatbot.
func (s *ChatbotService) Update(ctx context.Context, input UpdateChatbotInput) (*domain.Chatbot, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatbotService.Update", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: "update",
	})
	defer span.End()

	chatbot, err := s.repo.GetByID(ctx, input.ChatbotID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		chatbot.Name = input.Name
	}
	if input.Directive != "" {
		chatbot.Directive = input.Directive
	}
	if input.Model != "" {
		chatbot.Model = input.Model
	}
	if input.Temperature != nil {
		chatbot.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		chatbot.MaxTokens = *input.MaxTokens
	}
	chatbot.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateChatbot(chatbot); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, chatbot); err != nil {
		return nil, err
	}
	return chatbot, nil
}

// Delete removes a chatbot and everything ingested for it. The vector store
// is purged first so a failed row delete never leaves unreachable chunks
// that belong to no chatbot. Deleting a chatbot that does not exist is a
// no-op that reports zero removed chunks.
func (s *ChatbotService) Delete(ctx context.Context, id string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatbotService.Delete", telemetry.SpanAttributes{
		ChatbotID: id,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrChatbotNotFound) {
			return 0, nil
		}
		return 0, err
	}

	purged, err := s.purger.PurgeChatbotKnowledge(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return purged, err
	}
	return purged, nil
}
