package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/media/covers"
	"github.com/marginalia-app/marginalia-server/internal/media/images"
	"github.com/marginalia-app/marginalia-server/internal/metadata/openlibrary"
	"github.com/marginalia-app/marginalia-server/internal/sse"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// CoverService resolves and stores cover art from Open Library.
type CoverService struct {
	client     *openlibrary.Client
	downloader *covers.Downloader
	storage    *images.Storage
	store      store.Store
	events     *sse.Manager
	logger     *slog.Logger
	enabled    bool
}

// NewCoverService creates a new cover service.
func NewCoverService(
	client *openlibrary.Client,
	coverStorage *images.Storage,
	st store.Store,
	events *sse.Manager,
	enabled bool,
	logger *slog.Logger,
) *CoverService {
	return &CoverService{
		client:     client,
		downloader: covers.NewDownloader(coverStorage, logger),
		storage:    coverStorage,
		store:      st,
		events:     events,
		logger:     logger,
		enabled:    enabled,
	}
}

// FetchForBook looks up a cover by ISBN, downloads it, and records it on
// the book. Books that already have a cover are left alone.
func (s *CoverService) FetchForBook(ctx context.Context, bookID, isbn string) error {
	if !s.enabled {
		s.logger.Debug("cover fetching disabled, skipping", "book_id", bookID)
		return nil
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if book.Cover != nil {
		return nil
	}

	url, err := s.client.CoverURL(ctx, isbn)
	if err != nil {
		return fmt.Errorf("resolve cover url: %w", err)
	}

	result, err := s.downloader.Download(ctx, bookID, url)
	if err != nil {
		if errors.Is(err, covers.ErrNotFound) {
			s.logger.Info("no cover available",
				"book_id", bookID,
				"isbn", isbn,
			)
			return nil
		}
		return fmt.Errorf("download cover: %w", err)
	}

	cover := &domain.CoverInfo{
		Path:     result.Path,
		Format:   result.Format,
		Size:     result.Size,
		BlurHash: result.BlurHash,
	}

	if err := s.store.SetBookCover(ctx, bookID, cover); err != nil {
		return fmt.Errorf("record cover: %w", err)
	}

	if s.events != nil {
		s.events.Emit(sse.NewBookCoverUpdatedEvent(bookID, cover))
	}

	return nil
}

// CoverPath returns the filesystem path of a book's stored cover image.
// Returns store.ErrNotFound when the book has no cover on disk.
func (s *CoverService) CoverPath(ctx context.Context, bookID string) (string, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}
	if book.Cover == nil || !s.storage.Exists(bookID) {
		return "", store.ErrNotFound.WithMessage("book has no cover")
	}
	return s.storage.Path(bookID), nil
}
