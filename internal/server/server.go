package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/micscribe/internal/api"
	"github.com/yegors/micscribe/internal/config"
	"github.com/yegors/micscribe/pkg/logger"
)

// Server is the transcription service listener
type Server struct {
	hub        *Hub
	middleware *api.Middleware
	httpServer *http.Server
	logger     *logger.Logger
}

// New creates a server that hands takes to transcriber
func New(cfg config.ServerConfig, transcriber Transcriber, logger *logger.Logger) *Server {
	s := &Server{
		hub:        NewHub(transcriber, cfg.MaxPayloadBytes(), logger),
		middleware: api.NewMiddleware(logger),
		logger:     logger.Named("server"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the service routes
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(s.middleware.RequestID)
	router.Use(s.middleware.Logger)
	router.Use(s.middleware.Recoverer)

	router.Handle("/ws", s.hub)
	router.Get("/health", s.health)

	return router
}

// Start begins accepting connections in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting transcription server", logger.String("address", listener.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logger.Error(err))
		}
	}()

	return nil
}

// Stop closes the listener and every client connection
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping transcription server")

	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	return err
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"connections": s.hub.Connections(),
	})
}
