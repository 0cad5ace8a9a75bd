package server

import (
	"net/http"

	"github.com/beaconchat/beacon/internal/api"
	"github.com/beaconchat/beacon/internal/api/handlers"
	"github.com/beaconchat/beacon/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator       middleware.AuthValidator
	ChatbotHandler      *handlers.ChatbotHandler
	KnowledgeHandler    *handlers.KnowledgeHandler
	ChatHandler         *handlers.ChatHandler
	LogicHandler        *handlers.LogicHandler
	ConversationHandler *handlers.ConversationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/chatbots", func(r chi.Router) {
			r.Post("/", cfg.ChatbotHandler.Create)
			r.Get("/", cfg.ChatbotHandler.List)
			r.Get("/{id}", cfg.ChatbotHandler.Get)
			r.Patch("/{id}", cfg.ChatbotHandler.Update)
			r.Delete("/{id}", cfg.ChatbotHandler.Delete)

			r.Post("/{id}/knowledge", cfg.KnowledgeHandler.Ingest)
			r.Get("/{id}/knowledge", cfg.KnowledgeHandler.List)
			r.Get("/{id}/knowledge/stats", cfg.KnowledgeHandler.Stats)

			r.Post("/{id}/chat", cfg.ChatHandler.Chat)

			r.Post("/{id}/logic", cfg.LogicHandler.Create)
			r.Get("/{id}/logic", cfg.LogicHandler.List)

			r.Get("/{id}/conversations", cfg.ConversationHandler.List)
		})

		r.Delete("/knowledge/{id}", cfg.KnowledgeHandler.DeleteKnowledgeBase)
		r.Delete("/documents/{id}", cfg.KnowledgeHandler.DeleteDocument)

		r.Put("/logic/{id}", cfg.LogicHandler.Update)
		r.Delete("/logic/{id}", cfg.LogicHandler.Delete)

		r.Get("/conversations/{id}/messages", cfg.ConversationHandler.ListMessages)
	})

	return r
}
