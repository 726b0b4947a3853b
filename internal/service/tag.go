package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/errors"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/sse"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// tagCreate carries user-supplied tag fields for validation.
type tagCreate struct {
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// TagService manages tags and their attachment to highlights.
type TagService struct {
	store  store.Store
	events *sse.Manager
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(st store.Store, events *sse.Manager, logger *slog.Logger) *TagService {
	return &TagService{
		store:  st,
		events: events,
		logger: logger,
	}
}

// CreateTag creates a tag from a display name. Names are slugified, so
// "Deep Work" and "deep work" are the same tag.
func (s *TagService) CreateTag(ctx context.Context, name, color string) (*domain.Tag, error) {
	slug := normalize.Slugify(name)
	if slug == "" {
		return nil, errors.Validation("tag name must contain at least one letter or digit")
	}
	if err := validate.Validate(tagCreate{Color: color}); err != nil {
		return nil, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		ID:        tagID,
		Slug:      slug,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTag(ctx, t); err != nil {
		if err == store.ErrAlreadyExists {
			return nil, errors.AlreadyExists(fmt.Sprintf("tag %q already exists", slug))
		}
		return nil, err
	}

	if s.events != nil {
		s.events.Emit(sse.NewTagCreatedEvent(t))
	}

	return t, nil
}

// GetTag retrieves a tag by ID.
func (s *TagService) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	return s.store.GetTagByID(ctx, tagID)
}

// ListTags returns all tags ordered by slug.
func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// DeleteTag removes a tag and detaches it from every highlight.
func (s *TagService) DeleteTag(ctx context.Context, tagID string) error {
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return err
	}
	s.logger.Info("tag deleted", "tag_id", tagID)
	return nil
}

// TagHighlight attaches a tag to a highlight by display name, creating
// the tag on first use. Tombstoned highlights cannot be tagged.
func (s *TagService) TagHighlight(ctx context.Context, highlightID, name string) (*domain.Tag, error) {
	slug := normalize.Slugify(name)
	if slug == "" {
		return nil, errors.Validation("tag name must contain at least one letter or digit")
	}

	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	if h.Deleted() {
		return nil, errors.Conflict("cannot tag a deleted highlight")
	}

	t, created, err := s.store.FindOrCreateTagBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddTagToHighlight(ctx, highlightID, t.ID); err != nil {
		return nil, err
	}

	if created && s.events != nil {
		s.events.Emit(sse.NewTagCreatedEvent(t))
	}

	return t, nil
}

// UntagHighlight detaches a tag from a highlight. Idempotent.
func (s *TagService) UntagHighlight(ctx context.Context, highlightID, tagID string) error {
	return s.store.RemoveTagFromHighlight(ctx, highlightID, tagID)
}

// ListHighlightsForTag returns the active highlights carrying a tag.
func (s *TagService) ListHighlightsForTag(ctx context.Context, tagID string) ([]*domain.Highlight, error) {
	if _, err := s.store.GetTagByID(ctx, tagID); err != nil {
		return nil, err
	}
	return s.store.ListHighlightsForTag(ctx, tagID)
}
