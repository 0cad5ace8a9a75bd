package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/api/middleware"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatbotService interface {
	Create(ctx context.Context, input service.CreateChatbotInput) (*domain.Chatbot, error)
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error)
	Update(ctx context.Context, input service.UpdateChatbotInput) (*domain.Chatbot, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type ChatbotHandler struct {
	svc ChatbotService
}

func NewChatbotHandler(svc ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{svc: svc}
}

type CreateChatbotRequest struct {
	Name        string   `json:"name"`
	Directive   string   `json:"directive,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type UpdateChatbotRequest struct {
	Name        string   `json:"name,omitempty"`
	Directive   string   `json:"directive,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type ChatbotResponse struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	Name        string  `json:"name"`
	Directive   string  `json:"directive"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func chatbotToResponse(c *domain.Chatbot) *ChatbotResponse {
	return &ChatbotResponse{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		Name:        c.Name,
		Directive:   c.Directive,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// requireChatbot loads a chatbot and checks it belongs to the caller's
// workspace. Foreign chatbots read as not found so tenants cannot be probed.
func requireChatbot(ctx context.Context, getter interface {
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
}, chatbotID string) (*domain.Chatbot, error) {
	chatbot, err := getter.GetByID(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	if workspaceID := middleware.GetWorkspaceID(ctx); workspaceID != "" && chatbot.WorkspaceID != workspaceID {
		return nil, domain.ErrChatbotNotFound
	}
	return chatbot, nil
}

func (h *ChatbotHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	chatbot, err := h.svc.Create(r.Context(), service.CreateChatbotInput{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Directive:   req.Directive,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chatbotToResponse(chatbot))
}

func (h *ChatbotHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := middleware.GetWorkspaceID(r.Context())
	if workspaceID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	chatbots, err := h.svc.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*ChatbotResponse, len(chatbots))
	for i, c := range chatbots {
		resp[i] = chatbotToResponse(c)
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *ChatbotHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatbot, err := requireChatbot(r.Context(), h.svc, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, chatbotToResponse(chatbot))
}

func (h *ChatbotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.svc, id); err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chatbot, err := h.svc.Update(r.Context(), service.UpdateChatbotInput{
		ChatbotID:   id,
		Name:        req.Name,
		Directive:   req.Directive,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chatbotToResponse(chatbot))
}

func (h *ChatbotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.svc, id); err != nil {
		api.HandleError(w, err)
		return
	}

	removed, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{
		"id":             id,
		"removed_chunks": removed,
	})
}
