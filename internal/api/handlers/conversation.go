package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/pagination"
	"github.com/beaconchat/beacon/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ConversationRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByChatbotWithCursor(ctx context.Context, chatbotID string, cursor *pagination.Cursor, limit int) (*repository.ConversationPageResult, error)
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
}

type ConversationHandler struct {
	repo     ConversationRepositoryInterface
	chatbots ChatbotGetter
}

func NewConversationHandler(repo ConversationRepositoryInterface, chatbots ChatbotGetter) *ConversationHandler {
	return &ConversationHandler{repo: repo, chatbots: chatbots}
}

type ConversationResponse struct {
	ID        string `json:"id"`
	ChatbotID string `json:"chatbot_id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type MessageResponse struct {
	ID         string `json:"id"`
	SenderType string `json:"sender_type"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	result, err := h.repo.ListByChatbotWithCursor(r.Context(), chatbotID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ConversationResponse, len(result.Items))
	for i, c := range result.Items {
		items[i] = &ConversationResponse{
			ID:        c.ID,
			ChatbotID: c.ChatbotID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
			UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	api.Success(w, http.StatusOK, map[string]any{
		"items":    items,
		"cursor":   result.NextCursor,
		"has_more": result.HasMore,
	})
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	// A conversation on another tenant's chatbot reads as not found.
	conv, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if _, err := requireChatbot(r.Context(), h.chatbots, conv.ChatbotID); err != nil {
		api.HandleError(w, domain.ErrConversationNotFound)
		return
	}

	messages, err := h.repo.ListMessages(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		resp[i] = &MessageResponse{
			ID:         m.ID,
			SenderType: string(m.SenderType),
			Content:    m.Content,
			CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	api.Success(w, http.StatusOK, resp)
}
