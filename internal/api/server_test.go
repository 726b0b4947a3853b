package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia-server/internal/config"
	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
	"github.com/marginalia-app/marginalia-server/internal/service"
	"github.com/marginalia-app/marginalia-server/internal/sse"
	"github.com/marginalia-app/marginalia-server/internal/store/sqlite"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sseManager := sse.NewManager(logger)
	engine := reconcile.NewEngine(st, logger)

	services := &Services{
		Upload:    service.NewUploadService(engine, nil, sseManager, logger),
		Book:      service.NewBookService(st, logger),
		Highlight: service.NewHighlightService(st, sseManager, logger),
		Tag:       service.NewTagService(st, sseManager, logger),
		Flashcard: service.NewFlashcardService(st, logger),
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Name: "Test Server"},
	}

	s := NewServer(cfg, st, services, sse.NewHandler(sseManager, logger), logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// uploadDune posts the canonical one-highlight batch and returns the response.
func (ts *testServer) uploadDune(t *testing.T) testEnvelope[UploadResponse] {
	t.Helper()

	resp := ts.api.Post("/api/v1/uploads", map[string]any{
		"book": map[string]any{"title": "Dune", "author": "Herbert"},
		"chapters": []map[string]any{
			{
				"name": "Ch1",
				"highlights": []map[string]any{
					{"text": "Fear is the mind-killer", "datetime": time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)},
				},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, "upload failed: %s", resp.Body.String())

	var envelope testEnvelope[UploadResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope
}

// firstHighlight walks the book tree and returns the only highlight.
func (ts *testServer) firstHighlight(t *testing.T, bookID string) *domain.Highlight {
	t.Helper()

	resp := ts.api.Get("/api/v1/books/" + bookID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[*domain.Book]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Chapters)
	require.NotEmpty(t, envelope.Data.Chapters[0].Highlights)
	return envelope.Data.Chapters[0].Highlights[0]
}
