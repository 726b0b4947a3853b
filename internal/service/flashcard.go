package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/errors"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// initialReviewInterval is the interval assigned to a new card and to a
// card after a failed review.
const initialReviewInterval = 1 // day

// FlashcardService manages spaced-repetition cards built from highlights.
type FlashcardService struct {
	store  store.Store
	logger *slog.Logger
}

// NewFlashcardService creates a new flashcard service.
func NewFlashcardService(st store.Store, logger *slog.Logger) *FlashcardService {
	return &FlashcardService{
		store:  st,
		logger: logger,
	}
}

// CreateFromHighlight creates a card from a highlight. Front and back
// default to the highlight text and note; either can be overridden. The
// card copies the text, so later highlight edits don't rewrite it.
func (s *FlashcardService) CreateFromHighlight(ctx context.Context, highlightID, front, back string) (*domain.Flashcard, error) {
	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	if h.Deleted() {
		return nil, errors.Conflict("cannot create a flashcard from a deleted highlight")
	}

	if front == "" {
		front = h.Text
	}
	if back == "" {
		back = h.Note
	}
	if back == "" {
		return nil, errors.Validation("flashcard back is empty: add a note to the highlight or supply one")
	}

	cardID, err := id.Generate("card")
	if err != nil {
		return nil, fmt.Errorf("generate flashcard id: %w", err)
	}

	now := time.Now().UTC()
	card := &domain.Flashcard{
		ID:           cardID,
		HighlightID:  highlightID,
		Front:        front,
		Back:         back,
		IntervalDays: initialReviewInterval,
		DueAt:        now.AddDate(0, 0, initialReviewInterval),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateFlashcard(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("flashcard created",
		"flashcard_id", card.ID,
		"highlight_id", highlightID,
	)

	return card, nil
}

// GetFlashcard retrieves a card by ID.
func (s *FlashcardService) GetFlashcard(ctx context.Context, cardID string) (*domain.Flashcard, error) {
	return s.store.GetFlashcard(ctx, cardID)
}

// UpdateFlashcard edits a card's front and back text.
func (s *FlashcardService) UpdateFlashcard(ctx context.Context, cardID, front, back string) (*domain.Flashcard, error) {
	if front == "" || back == "" {
		return nil, errors.Validation("flashcard front and back cannot be empty")
	}

	card, err := s.store.GetFlashcard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	card.Front = front
	card.Back = back

	if err := s.store.UpdateFlashcard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteFlashcard removes a card. The underlying highlight is untouched.
func (s *FlashcardService) DeleteFlashcard(ctx context.Context, cardID string) error {
	return s.store.DeleteFlashcard(ctx, cardID)
}

// ListForHighlight returns the cards built from one highlight.
func (s *FlashcardService) ListForHighlight(ctx context.Context, highlightID string) ([]*domain.Flashcard, error) {
	if _, err := s.store.GetHighlight(ctx, highlightID); err != nil {
		return nil, err
	}
	return s.store.ListFlashcardsForHighlight(ctx, highlightID)
}

// ListDue returns cards due for review, oldest first.
func (s *FlashcardService) ListDue(ctx context.Context, limit int) ([]*domain.Flashcard, error) {
	return s.store.ListDueFlashcards(ctx, time.Now().UTC(), limit)
}

// Review records a review outcome. A successful review doubles the
// interval; a failed one resets it to one day.
func (s *FlashcardService) Review(ctx context.Context, cardID string, success bool) (*domain.Flashcard, error) {
	card, err := s.store.GetFlashcard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if success {
		card.IntervalDays *= 2
	} else {
		card.IntervalDays = initialReviewInterval
	}
	card.DueAt = now.AddDate(0, 0, card.IntervalDays)
	card.ReviewedAt = &now

	if err := s.store.UpdateFlashcard(ctx, card); err != nil {
		return nil, err
	}

	return card, nil
}
