// Package service provides the business logic layer for the highlight library.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
	"github.com/marginalia-app/marginalia-server/internal/sse"
)

// coverFetchTimeout bounds the post-upload cover fetch. The upload response
// has already been sent by then, so a slow source only delays the cover.
const coverFetchTimeout = time.Minute

// CoverFetcher fetches and stores a cover for a book. Satisfied by
// CoverService; kept as an interface so upload tests can stub it out.
type CoverFetcher interface {
	FetchForBook(ctx context.Context, bookID, isbn string) error
}

// UploadService accepts highlight batches from reading devices and runs
// them through the reconciliation engine.
type UploadService struct {
	engine *reconcile.Engine
	covers CoverFetcher
	events *sse.Manager
	logger *slog.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(engine *reconcile.Engine, covers CoverFetcher, events *sse.Manager, logger *slog.Logger) *UploadService {
	return &UploadService{
		engine: engine,
		covers: covers,
		events: events,
		logger: logger,
	}
}

// Upload reconciles one batch. The batch commits atomically; on success any
// pending cover fetch runs in the background so a flaky cover source can
// never fail an already-committed upload.
func (s *UploadService) Upload(ctx context.Context, batch *domain.UploadBatch) (*reconcile.Result, error) {
	// Correlation ID for tracing one upload across engine and cover logs.
	uploadID := uuid.NewString()

	s.logger.Info("upload received",
		"upload_id", uploadID,
		"title", batch.Book.Title,
		"chapters", len(batch.Chapters),
	)

	result, err := s.engine.Reconcile(ctx, batch)
	if err != nil {
		s.logger.Warn("upload rejected",
			"upload_id", uploadID,
			"error", err,
		)
		return nil, err
	}

	if s.events != nil {
		s.events.Emit(sse.NewUploadCompletedEvent(result))
	}

	if fetch := result.CoverFetch; fetch != nil && s.covers != nil {
		go s.fetchCover(uploadID, fetch)
	}

	s.logger.Info("upload reconciled",
		"upload_id", uploadID,
		"book_id", result.BookID,
		"created", result.Created,
		"skipped", result.Skipped,
	)

	return result, nil
}

// fetchCover runs the deferred cover fetch. It uses a background context
// because the request that scheduled it has already completed.
func (s *UploadService) fetchCover(uploadID string, fetch *reconcile.CoverFetch) {
	ctx, cancel := context.WithTimeout(context.Background(), coverFetchTimeout)
	defer cancel()

	if err := s.covers.FetchForBook(ctx, fetch.BookID, fetch.ISBN); err != nil {
		// Cover failures are logged, never surfaced to the uploader.
		s.logger.Warn("cover fetch failed",
			"upload_id", uploadID,
			"book_id", fetch.BookID,
			"isbn", fetch.ISBN,
			"error", err,
		)
	}
}
