package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ChatServiceInterface interface {
	Chat(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

type ConversationCreator interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
}

type ChatHandler struct {
	svc           ChatServiceInterface
	conversations ConversationCreator
	chatbots      ChatbotGetter
}

func NewChatHandler(svc ChatServiceInterface, conversations ConversationCreator, chatbots ChatbotGetter) *ChatHandler {
	return &ChatHandler{svc: svc, conversations: conversations, chatbots: chatbots}
}

type ChatRequest struct {
	Input          string   `json:"input"`
	ConversationID string   `json:"conversation_id,omitempty"`
	SystemPrompt   string   `json:"system_prompt,omitempty"`
	Model          string   `json:"model,omitempty"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Message        string               `json:"message"`
	ConversationID string               `json:"conversation_id"`
	Sources        []service.ChatSource `json:"sources,omitempty"`
	Degraded       bool                 `json:"degraded,omitempty"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		api.Error(w, http.StatusBadRequest, "input is required")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		now := time.Now().UTC()
		conversation := &domain.Conversation{
			ID:        uuid.NewString(),
			ChatbotID: chatbotID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.conversations.Create(r.Context(), conversation); err != nil {
			api.HandleError(w, err)
			return
		}
		conversationID = conversation.ID
	} else {
		conversation, err := h.conversations.GetByID(r.Context(), conversationID)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		if conversation.ChatbotID != chatbotID {
			api.HandleError(w, domain.ErrConversationNotFound)
			return
		}
	}

	out, err := h.svc.Chat(r.Context(), service.ChatInput{
		ChatbotID:      chatbotID,
		ConversationID: conversationID,
		Input:          req.Input,
		SystemPrompt:   req.SystemPrompt,
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ChatResponse{
		Message:        out.Message,
		ConversationID: conversationID,
		Sources:        out.Sources,
		Degraded:       out.Degraded,
	})
}
