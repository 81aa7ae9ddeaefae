package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/micscribe/internal/presenter"
	"github.com/yegors/micscribe/pkg/logger"
)

// Router is the control API router
type Router struct {
	handler        *Handler
	middleware     *Middleware
	allowedOrigins []string
}

// NewRouter creates a new control API router
func NewRouter(rec Recorder, view *presenter.View, allowedOrigins []string, logger *logger.Logger) *Router {
	return &Router{
		handler:        NewHandler(rec, view, logger),
		middleware:     NewMiddleware(logger),
		allowedOrigins: allowedOrigins,
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.allowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/status", r.handler.GetStatus)
		router.Get("/transcript", r.handler.GetTranscript)
		router.Get("/view", r.handler.GetView)

		router.Post("/toggle", r.handler.Toggle)
		router.Post("/clear", r.handler.Clear)
		router.Post("/copy", r.handler.Copy)
		router.Post("/download", r.handler.Download)

		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
