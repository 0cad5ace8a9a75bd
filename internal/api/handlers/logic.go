package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/go-chi/chi/v5"
)

type LogicServiceInterface interface {
	Create(ctx context.Context, input service.CreateLogicInput) (*domain.Logic, error)
	GetByID(ctx context.Context, id string) (*domain.Logic, error)
	ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.Logic, error)
	Update(ctx context.Context, input service.UpdateLogicInput) (*domain.Logic, error)
	Delete(ctx context.Context, id string) error
}

type LogicHandler struct {
	svc      LogicServiceInterface
	chatbots ChatbotGetter
}

func NewLogicHandler(svc LogicServiceInterface, chatbots ChatbotGetter) *LogicHandler {
	return &LogicHandler{svc: svc, chatbots: chatbots}
}

type LogicConfigRequest struct {
	LeadCollection  *domain.LeadCollectionConfig  `json:"lead_collection,omitempty"`
	LinkButton      *domain.LinkButtonConfig      `json:"link_button,omitempty"`
	MeetingSchedule *domain.MeetingScheduleConfig `json:"meeting_schedule,omitempty"`
}

type CreateLogicRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	TriggerType string   `json:"trigger_type"`
	Keywords    []string `json:"keywords,omitempty"`
	IsActive    bool     `json:"is_active"`
	Position    int      `json:"position,omitempty"`
	LogicConfigRequest
}

type UpdateLogicRequest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	TriggerType string   `json:"trigger_type,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
	Position    *int     `json:"position,omitempty"`
	LogicConfigRequest
}

type LogicResponse struct {
	ID          string   `json:"id"`
	ChatbotID   string   `json:"chatbot_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	TriggerType string   `json:"trigger_type"`
	Keywords    []string `json:"keywords,omitempty"`
	IsActive    bool     `json:"is_active"`
	Position    int      `json:"position"`

	LeadCollection  *domain.LeadCollectionConfig  `json:"lead_collection,omitempty"`
	LinkButton      *domain.LinkButtonConfig      `json:"link_button,omitempty"`
	MeetingSchedule *domain.MeetingScheduleConfig `json:"meeting_schedule,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func logicToResponse(l *domain.Logic) *LogicResponse {
	return &LogicResponse{
		ID:              l.ID,
		ChatbotID:       l.ChatbotID,
		Name:            l.Name,
		Description:     l.Description,
		Type:            string(l.Type),
		TriggerType:     string(l.TriggerType),
		Keywords:        l.Keywords,
		IsActive:        l.IsActive,
		Position:        l.Position,
		LeadCollection:  l.LeadCollection,
		LinkButton:      l.LinkButton,
		MeetingSchedule: l.MeetingSchedule,
		CreatedAt:       l.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       l.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *LogicHandler) Create(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateLogicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	logic, err := h.svc.Create(r.Context(), service.CreateLogicInput{
		ChatbotID:       chatbotID,
		Name:            req.Name,
		Description:     req.Description,
		Type:            domain.LogicType(req.Type),
		TriggerType:     domain.TriggerType(req.TriggerType),
		Keywords:        req.Keywords,
		IsActive:        req.IsActive,
		Position:        req.Position,
		LeadCollection:  req.LeadCollection,
		LinkButton:      req.LinkButton,
		MeetingSchedule: req.MeetingSchedule,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, logicToResponse(logic))
}

func (h *LogicHandler) List(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	logics, err := h.svc.ListByChatbot(r.Context(), chatbotID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*LogicResponse, len(logics))
	for i, l := range logics {
		resp[i] = logicToResponse(l)
	}
	api.Success(w, http.StatusOK, resp)
}

// requireLogic loads a logic and checks its chatbot belongs to the caller's
// workspace. Foreign logics read as not found.
func (h *LogicHandler) requireLogic(ctx context.Context, id string) (*domain.Logic, error) {
	logic, err := h.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireChatbot(ctx, h.chatbots, logic.ChatbotID); err != nil {
		return nil, domain.ErrLogicNotFound
	}
	return logic, nil
}

func (h *LogicHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	if _, err := h.requireLogic(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateLogicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	logic, err := h.svc.Update(r.Context(), service.UpdateLogicInput{
		LogicID:         id,
		Name:            req.Name,
		Description:     req.Description,
		TriggerType:     domain.TriggerType(req.TriggerType),
		Keywords:        req.Keywords,
		IsActive:        req.IsActive,
		Position:        req.Position,
		LeadCollection:  req.LeadCollection,
		LinkButton:      req.LinkButton,
		MeetingSchedule: req.MeetingSchedule,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, logicToResponse(logic))
}

func (h *LogicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	if _, err := h.requireLogic(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
