// Package api provides the HTTP API server and handlers for the Marginalia application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/sse"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// apiVersion reported in the OpenAPI document and health endpoint.
const apiVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st store.Store, services *Services, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	// The server lives on a home network and is consumed by companion
	// apps from arbitrary origins, so CORS stays permissive.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig(cfg.Server.Name+" API", apiVersion)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:      st,
		services:   services,
		sseHandler: sseHandler,
		router:     router,
		api:        api,
		logger:     logger,
	}

	s.registerHealthRoutes()
	s.registerUploadRoutes()
	s.registerBookRoutes()
	s.registerHighlightRoutes()
	s.registerTagRoutes()
	s.registerFlashcardRoutes()

	// Raw (non-huma) endpoints: binary cover data and the event stream.
	router.Get("/api/v1/books/{id}/cover", s.handleGetBookCover)
	router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
