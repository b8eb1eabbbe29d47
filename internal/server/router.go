package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/api/handlers"
	"github.com/echolens/echolens/internal/api/middleware"
)

type RouterConfig struct {
	APIToken        string
	CollectHandler  *handlers.CollectHandler
	ContentHandler  *handlers.ContentHandler
	PatternsHandler *handlers.PatternsHandler
	UsageHandler    *handlers.UsageHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Post("/collect", cfg.CollectHandler.Collect)
		r.Get("/adapters/health", cfg.CollectHandler.AdapterHealth)

		r.Post("/ingest", cfg.ContentHandler.Ingest)
		r.Post("/query", cfg.ContentHandler.Query)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", cfg.ContentHandler.List)
			r.Get("/{id}", cfg.ContentHandler.Get)
			r.Delete("/{id}", cfg.ContentHandler.Delete)
		})

		r.Post("/patterns", cfg.PatternsHandler.Detect)

		r.Get("/usage", cfg.UsageHandler.Get)
		r.Post("/usage/reset", cfg.UsageHandler.Reset)
	})

	return r
}
