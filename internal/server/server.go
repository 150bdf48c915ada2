// Package server exposes uploads, search and analytics over HTTP. The
// wire layer stays thin: it decodes parameters, delegates to the
// services, and maps their errors onto status codes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/masterrlv/log-2/internal/config"
	"github.com/masterrlv/log-2/internal/middleware"
	"github.com/masterrlv/log-2/internal/search"
	"github.com/masterrlv/log-2/internal/uploads"
)

// Server is the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	uploads    *uploads.Service
	search     *search.Service
}

// New creates the API server with routing, CORS and request logging
// wired in.
func New(cfg config.ServerConfig, uploadSvc *uploads.Service, searchSvc *search.Service) *Server {
	router := mux.NewRouter()

	s := &Server{
		router:  router,
		uploads: uploadSvc,
		search:  searchSvc,
	}
	s.setupRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      middleware.LoggingMiddleware(corsHandler.Handler(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(mux.MiddlewareFunc(middleware.AuthMiddleware))

	api.HandleFunc("/uploads", s.handleSubmitUpload).Methods(http.MethodPost)
	api.HandleFunc("/uploads", s.handleListUploads).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}", s.handleGetUpload).Methods(http.MethodGet)

	api.HandleFunc("/search/logs", s.handleSearchLogs).Methods(http.MethodGet)
	api.HandleFunc("/analytics/time-series", s.handleTimeSeries).Methods(http.MethodGet)
	api.HandleFunc("/analytics/distribution", s.handleDistribution).Methods(http.MethodGet)
	api.HandleFunc("/analytics/top-errors", s.handleTopErrors).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// ListenAndServe blocks serving requests until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
