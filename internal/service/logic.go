package service

import (
	"context"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/telemetry"
)

// LogicRepositoryInterface defines the repository interface for chatbot logics
type LogicRepositoryInterface interface {
	Create(ctx context.Context, l *domain.Logic) error
	GetByID(ctx context.Context, id string) (*domain.Logic, error)
	ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.Logic, error)
	Update(ctx context.Context, l *domain.Logic) error
	Delete(ctx context.Context, id string) error
}

// CreateLogicInput represents the input for creating a logic. Exactly one of
// the config variants must be set, matching Type.
type CreateLogicInput struct {
	ChatbotID   string
	Name        string
	Description string
	Type        domain.LogicType
	TriggerType domain.TriggerType
	Keywords    []string
	IsActive    bool
	Position    int

	LeadCollection  *domain.LeadCollectionConfig
	LinkButton      *domain.LinkButtonConfig
	MeetingSchedule *domain.MeetingScheduleConfig
}

// UpdateLogicInput represents the input for updating a logic. Zero-valued
// fields are left unchanged; a new config variant replaces the old one and
// must still match the logic's type.
type UpdateLogicInput struct {
	LogicID     string
	Name        string
	Description string
	TriggerType domain.TriggerType
	Keywords    []string
	IsActive    *bool
	Position    *int

	LeadCollection  *domain.LeadCollectionConfig
	LinkButton      *domain.LinkButtonConfig
	MeetingSchedule *domain.MeetingScheduleConfig
}

// LogicService handles business logic for chatbot logics.
type LogicService struct {
	repo    LogicRepositoryInterface
	uuidGen UUIDGenerator
}

// NewLogicService creates a new LogicService instance
func NewLogicService(repo LogicRepositoryInterface) *LogicService {
	return &LogicService{
		repo:    repo,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// Create creates a logic after validating its tagged-union config.
func (s *LogicService) Create(ctx context.Context, input CreateLogicInput) (*domain.Logic, error) {
	ctx, span := telemetry.StartSpan(ctx, "LogicService.Create", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	logic := &domain.Logic{
		ID:              s.uuidGen.NewString(),
		ChatbotID:       input.ChatbotID,
		Name:            input.Name,
		Description:     input.Description,
		Type:            input.Type,
		TriggerType:     input.TriggerType,
		Keywords:        input.Keywords,
		IsActive:        input.IsActive,
		Position:        input.Position,
		LeadCollection:  input.LeadCollection,
		LinkButton:      input.LinkButton,
		MeetingSchedule: input.MeetingSchedule,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := domain.ValidateLogic(logic); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, logic); err != nil {
		return nil, err
	}
	return logic, nil
}

// GetByID retrieves a logic by ID.
func (s *LogicService) GetByID(ctx context.Context, id string) (*domain.Logic, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByChatbot retrieves all logics of a chatbot ordered by position.
func (s *LogicService) ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.Logic, error) {
	return s.repo.ListByChatbot(ctx, chatbotID)
}

// Update applies the set fields of input to the logic and revalidates the
// config variant against the logic's type.
func (s *LogicService) Update(ctx context.Context, input UpdateLogicInput) (*domain.Logic, error) {
	ctx, span := telemetry.StartSpan(ctx, "LogicService.Update", telemetry.SpanAttributes{
		Operation: "update",
	})
	defer span.End()

	logic, err := s.repo.GetByID(ctx, input.LogicID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		logic.Name = input.Name
	}
	if input.Description != "" {
		logic.Description = input.Description
	}
	if input.TriggerType != "" {
		logic.TriggerType = input.TriggerType
	}
	if input.Keywords != nil {
		logic.Keywords = input.Keywords
	}
	if input.IsActive != nil {
		logic.IsActive = *input.IsActive
	}
	if input.Position != nil {
		logic.Position = *input.Position
	}
	if input.LeadCollection != nil {
		logic.LeadCollection = input.LeadCollection
	}
	if input.LinkButton != nil {
		logic.LinkButton = input.LinkButton
	}
	if input.MeetingSchedule != nil {
		logic.MeetingSchedule = input.MeetingSchedule
	}
	logic.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateLogic(logic); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, logic); err != nil {
		return nil, err
	}
	return logic, nil
}

// Delete removes a logic.
func (s *LogicService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
