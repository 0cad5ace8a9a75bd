package service

import (
	"context"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/openai"
	"github.com/beaconchat/beacon/internal/telemetry"
	"github.com/google/uuid"
)

// ChatbotRepositoryInterface defines the repository interface for chatbot persistence
type ChatbotRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
}

// ConversationRepositoryInterface defines the repository interface for conversation persistence
type ConversationRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	CreateMessage(ctx context.Context, m *domain.Message) error
	Touch(ctx context.Context, conversationID string, at time.Time) error
}

// ContextBuilder assembles the retrieval-augmented prompt for a chat turn.
type ContextBuilder interface {
	BuildContext(ctx context.Context, chatbot *domain.Chatbot, conversationID, systemPrompt, input string) (*RAGContext, error)
}

// TextGenerator produces a completion for an assembled prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, params openai.ModelParams) (string, error)
}

// ChatInput represents the input for one chat turn.
type ChatInput struct {
	ChatbotID      string
	ConversationID string
	Input          string
	// Optional per-request overrides of the chatbot's defaults.
	SystemPrompt string
	Model        string
	Temperature  *float32
	MaxTokens    *int
}

// ChatSource describes one retrieved chunk that informed the answer.
type ChatSource struct {
	DocumentID string         `json:"document_id"`
	Score      float32        `json:"score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ChatOutput carries the generated answer plus its retrieval provenance.
type ChatOutput struct {
	Message  string
	Sources  []ChatSource
	Degraded bool
}

// ChatService runs chat turns: retrieve context, generate an answer, persist
// the exchange.
type ChatService struct {
	chatbotRepo ChatbotRepositoryInterface
	contexts    ContextBuilder
	generator   TextGenerator
	txRunner    TxRunner
}

// NewChatService creates a new ChatService instance
func NewChatService(
	chatbotRepo ChatbotRepositoryInterface,
	contexts ContextBuilder,
	generator TextGenerator,
	txRunner TxRunner,
) *ChatService {
	return &ChatService{
		chatbotRepo: chatbotRepo,
		contexts:    contexts,
		generator:   generator,
		txRunner:    txRunner,
	}
}

// Chat answers one user input for a chatbot. When a conversation ID is
// given, the user message and the bot reply are persisted atomically; a chat
// without a conversation is stateless.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	if input.Input == "" {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: "input is required",
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Chat", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: "chat",
	})
	defer span.End()

	chatbot, err := s.chatbotRepo.GetByID(ctx, input.ChatbotID)
	if err != nil {
		return nil, err
	}

	rc, err := s.contexts.BuildContext(ctx, chatbot, input.ConversationID, input.SystemPrompt, input.Input)
	if err != nil {
		return nil, err
	}

	params := openai.ModelParams{
		Model:       chatbot.Model,
		Temperature: chatbot.Temperature,
		MaxTokens:   chatbot.MaxTokens,
	}
	if input.Model != "" {
		params.Model = input.Model
	}
	if input.Temperature != nil {
		params.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		params.MaxTokens = *input.MaxTokens
	}

	answer, err := s.generator.GenerateText(ctx, rc.Prompt, params)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if input.ConversationID != "" {
		if err := s.persistTurn(ctx, input.ConversationID, input.Input, answer); err != nil {
			return nil, err
		}
	}

	sources := make([]ChatSource, len(rc.Sources))
	for i, src := range rc.Sources {
		sources[i] = ChatSource{
			DocumentID: src.DocumentID,
			Score:      src.Score,
			Metadata:   src.Metadata,
		}
	}

	return &ChatOutput{Message: answer, Sources: sources, Degraded: rc.Degraded}, nil
}

// persistTurn writes both sides of the exchange and bumps the conversation
// timestamp in one transaction, so history never shows half a turn.
func (s *ChatService) persistTurn(ctx context.Context, conversationID, userInput, botAnswer string) error {
	now := time.Now().UTC()
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		conversations := repos.Conversations()

		userMsg := &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderType:     domain.SenderTypeUser,
			Content:        userInput,
			CreatedAt:      now,
		}
		if err := domain.ValidateMessage(userMsg); err != nil {
			return err
		}
		if err := conversations.CreateMessage(ctx, userMsg); err != nil {
			return err
		}

		// Bot reply sits a tick after the user message so history ordering
		// never depends on UUID tie-breaking.
		botMsg := &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderType:     domain.SenderTypeBot,
			Content:        botAnswer,
			CreatedAt:      now.Add(time.Microsecond),
		}
		if err := domain.ValidateMessage(botMsg); err != nil {
			return err
		}
		if err := conversations.CreateMessage(ctx, botMsg); err != nil {
			return err
		}

		return conversations.Touch(ctx, conversationID, now)
	})
}
