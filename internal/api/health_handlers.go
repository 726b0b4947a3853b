package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health and library counts",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// HealthResponse contains server health data.
type HealthResponse struct {
	Status     string `json:"status" doc:"Server status"`
	Version    string `json:"version" doc:"API version"`
	Books      int    `json:"books" doc:"Number of books in the library"`
	Highlights int    `json:"highlights" doc:"Number of active highlights"`
}

// HealthOutput wraps the health response for huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	books, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, err
	}
	highlights, err := s.store.CountHighlights(ctx)
	if err != nil {
		return nil, err
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     "healthy",
			Version:    apiVersion,
			Books:      books,
			Highlights: highlights,
		},
	}, nil
}
