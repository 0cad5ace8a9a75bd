package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestServiceInterface interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error)
}

type KnowledgeServiceInterface interface {
	ListByChatbot(ctx context.Context, chatbotID string) ([]*service.KnowledgeBaseWithDocuments, error)
	Stats(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBaseStats, error)
	GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error)
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
}

type ChatbotGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
}

type KnowledgeHandler struct {
	ingest   IngestServiceInterface
	svc      KnowledgeServiceInterface
	chatbots ChatbotGetter
}

func NewKnowledgeHandler(ingest IngestServiceInterface, svc KnowledgeServiceInterface, chatbots ChatbotGetter) *KnowledgeHandler {
	return &KnowledgeHandler{ingest: ingest, svc: svc, chatbots: chatbots}
}

type IngestSourceRequest struct {
	Name string `json:"name,omitempty"`
	// Data is base64-encoded file or table bytes.
	Data          []byte `json:"data,omitempty"`
	URL           string `json:"url,omitempty"`
	CrawlSubpages bool   `json:"crawl_subpages,omitempty"`
}

type IngestRequest struct {
	Type    string                `json:"type"`
	Name    string                `json:"name,omitempty"`
	Sources []IngestSourceRequest `json:"sources"`
}

type IngestResponse struct {
	KnowledgeBaseID string                  `json:"knowledge_base_id"`
	Name            string                  `json:"name"`
	Type            string                  `json:"type"`
	Results         []*service.SourceResult `json:"results"`
}

type DocumentResponse struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

type KnowledgeBaseResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Type      string              `json:"type"`
	IndexName string              `json:"index_name"`
	CreatedAt string              `json:"created_at"`
	Documents []*DocumentResponse `json:"documents"`
}

type KnowledgeBaseStatsResponse struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	TotalChunks     int64  `json:"total_chunks"`
	DocumentCount   int64  `json:"document_count"`
}

func (h *KnowledgeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := service.SourceKind(req.Type)
	switch kind {
	case service.SourceKindFile, service.SourceKindTable, service.SourceKindWebpage:
	default:
		api.Error(w, http.StatusBadRequest, "invalid source type")
		return
	}
	if len(req.Sources) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one source is required")
		return
	}

	sources := make([]service.Source, len(req.Sources))
	for i, src := range req.Sources {
		sources[i] = service.Source{
			Name:          src.Name,
			Data:          src.Data,
			URL:           src.URL,
			CrawlSubpages: src.CrawlSubpages,
		}
	}

	out, err := h.ingest.Ingest(r.Context(), service.IngestInput{
		ChatbotID: chatbotID,
		Name:      req.Name,
		Kind:      kind,
		Sources:   sources,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &IngestResponse{
		KnowledgeBaseID: out.KnowledgeBase.ID,
		Name:            out.KnowledgeBase.Name,
		Type:            string(out.KnowledgeBase.Type),
		Results:         out.Results,
	})
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	bases, err := h.svc.ListByChatbot(r.Context(), chatbotID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*KnowledgeBaseResponse, len(bases))
	for i, kb := range bases {
		docs := make([]*DocumentResponse, len(kb.Documents))
		for j, d := range kb.Documents {
			docs[j] = &DocumentResponse{
				ID:        d.ID,
				Source:    d.Source,
				Metadata:  d.Metadata,
				CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
			}
		}
		resp[i] = &KnowledgeBaseResponse{
			ID:        kb.KnowledgeBase.ID,
			Name:      kb.KnowledgeBase.Name,
			Type:      string(kb.KnowledgeBase.Type),
			IndexName: kb.KnowledgeBase.IndexName,
			CreatedAt: kb.KnowledgeBase.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Documents: docs,
		}
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "id")
	if _, err := requireChatbot(r.Context(), h.chatbots, chatbotID); err != nil {
		api.HandleError(w, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), chatbotID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*KnowledgeBaseStatsResponse, len(stats))
	for i, s := range stats {
		resp[i] = &KnowledgeBaseStatsResponse{
			KnowledgeBaseID: s.KnowledgeBaseID,
			TotalChunks:     s.TotalChunks,
			DocumentCount:   s.DocumentCount,
		}
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) DeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	// Resolve the owning chatbot before deleting. A knowledge base in
	// another tenant's workspace reads as not found; one that does not
	// exist at all falls through to the no-op delete.
	kb, err := h.svc.GetKnowledgeBase(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrKnowledgeBaseNotFound):
	case err != nil:
		api.HandleError(w, err)
		return
	default:
		if _, err := requireChatbot(r.Context(), h.chatbots, kb.ChatbotID); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	removed, err := h.svc.DeleteKnowledgeBase(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{
		"id":             id,
		"removed_chunks": removed,
	})
}

func (h *KnowledgeHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
	case err != nil:
		api.HandleError(w, err)
		return
	default:
		kb, err := h.svc.GetKnowledgeBase(r.Context(), doc.KnowledgeBaseID)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		if _, err := requireChatbot(r.Context(), h.chatbots, kb.ChatbotID); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	removed, err := h.svc.DeleteDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{
		"id":             id,
		"removed_chunks": removed,
	})
}
