package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/sse"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// HighlightService handles user actions on individual highlights.
type HighlightService struct {
	store  store.Store
	events *sse.Manager
	logger *slog.Logger
}

// NewHighlightService creates a new highlight service.
func NewHighlightService(st store.Store, events *sse.Manager, logger *slog.Logger) *HighlightService {
	return &HighlightService{
		store:  st,
		events: events,
		logger: logger,
	}
}

// GetHighlight retrieves a highlight by ID, with its tag IDs attached.
func (s *HighlightService) GetHighlight(ctx context.Context, id string) (*domain.Highlight, error) {
	h, err := s.store.GetHighlight(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, h)
}

// ListForChapter returns a chapter's highlights, tombstones excluded
// unless includeDeleted is set.
func (s *HighlightService) ListForChapter(ctx context.Context, chapterID string, includeDeleted bool) ([]*domain.Highlight, error) {
	if _, err := s.store.GetChapter(ctx, chapterID); err != nil {
		return nil, err
	}
	return s.store.ListHighlightsForChapter(ctx, chapterID, includeDeleted)
}

// HighlightUpdate carries the editable fields of a highlight. Nil fields
// are left unchanged. The text itself is immutable; editing it would
// detach the highlight from its dedup key.
type HighlightUpdate struct {
	Note       *string
	Page       *int
	Bookmarked *bool
}

// UpdateHighlight applies a partial update to a highlight's annotations.
func (s *HighlightService) UpdateHighlight(ctx context.Context, id string, update HighlightUpdate) (*domain.Highlight, error) {
	h, err := s.store.GetHighlight(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Note != nil {
		h.Note = *update.Note
	}
	if update.Page != nil {
		h.Page = *update.Page
	}
	if update.Bookmarked != nil {
		h.Bookmarked = *update.Bookmarked
	}

	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, err
	}

	h, err = s.withTags(ctx, h)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Emit(sse.NewHighlightUpdatedEvent(h))
	}

	return h, nil
}

// DeleteHighlight tombstones a highlight. The row stays behind with its
// dedup key so re-uploading the same export cannot bring it back.
func (s *HighlightService) DeleteHighlight(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteHighlight(ctx, id, time.Now().UTC()); err != nil {
		return err
	}

	s.logger.Info("highlight deleted", "highlight_id", id)

	if s.events != nil {
		s.events.Emit(sse.NewHighlightDeletedEvent(id))
	}

	return nil
}

// RestoreHighlight clears a highlight's tombstone. This is the only path
// that brings a deleted highlight back; uploads never do.
func (s *HighlightService) RestoreHighlight(ctx context.Context, id string) (*domain.Highlight, error) {
	if err := s.store.RestoreHighlight(ctx, id); err != nil {
		return nil, err
	}

	h, err := s.GetHighlight(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("highlight restored", "highlight_id", id)

	if s.events != nil {
		s.events.Emit(sse.NewHighlightRestoredEvent(h))
	}

	return h, nil
}

// PurgeHighlight permanently removes a tombstoned highlight. After a
// purge the dedup key is free again, so the next upload of the same
// passage re-creates it.
func (s *HighlightService) PurgeHighlight(ctx context.Context, id string) error {
	if err := s.store.PurgeHighlight(ctx, id); err != nil {
		return err
	}

	s.logger.Info("highlight purged", "highlight_id", id)
	return nil
}

// withTags loads the highlight's tag IDs onto the struct.
func (s *HighlightService) withTags(ctx context.Context, h *domain.Highlight) (*domain.Highlight, error) {
	tagIDs, err := s.store.GetTagIDsForHighlight(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	h.TagIDs = tagIDs
	return h, nil
}
