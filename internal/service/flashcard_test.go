package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashcardService_CreateFromHighlight(t *testing.T) {
	st := setupTestStore(t)
	hlSvc := NewHighlightService(st, nil, testLogger())
	svc := NewFlashcardService(st, testLogger())
	ctx := context.Background()

	h := seedHighlightViaUpload(t, st)

	// No note, no override: nothing to put on the back.
	_, err := svc.CreateFromHighlight(ctx, h.ID, "", "")
	assert.Error(t, err)

	note := "Litany against fear"
	_, err = hlSvc.UpdateHighlight(ctx, h.ID, HighlightUpdate{Note: &note})
	require.NoError(t, err)

	card, err := svc.CreateFromHighlight(ctx, h.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, h.Text, card.Front)
	assert.Equal(t, note, card.Back)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Nil(t, card.ReviewedAt)
}

func TestFlashcardService_CreateWithOverrides(t *testing.T) {
	st := setupTestStore(t)
	svc := NewFlashcardService(st, testLogger())
	ctx := context.Background()

	h := seedHighlightViaUpload(t, st)

	card, err := svc.CreateFromHighlight(ctx, h.ID, "What is the mind-killer?", "Fear")
	require.NoError(t, err)
	assert.Equal(t, "What is the mind-killer?", card.Front)
	assert.Equal(t, "Fear", card.Back)
}

func TestFlashcardService_Review(t *testing.T) {
	st := setupTestStore(t)
	svc := NewFlashcardService(st, testLogger())
	ctx := context.Background()

	h := seedHighlightViaUpload(t, st)
	card, err := svc.CreateFromHighlight(ctx, h.ID, "front", "back")
	require.NoError(t, err)

	// Two successful reviews: 1 -> 2 -> 4 days.
	card, err = svc.Review(ctx, card.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, card.IntervalDays)
	require.NotNil(t, card.ReviewedAt)

	card, err = svc.Review(ctx, card.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 4, card.IntervalDays)

	// A failed review resets the schedule.
	card, err = svc.Review(ctx, card.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, card.IntervalDays)
	assert.True(t, card.DueAt.After(time.Now()))
}

func TestFlashcardService_ListDue(t *testing.T) {
	st := setupTestStore(t)
	svc := NewFlashcardService(st, testLogger())
	ctx := context.Background()

	h := seedHighlightViaUpload(t, st)
	card, err := svc.CreateFromHighlight(ctx, h.ID, "front", "back")
	require.NoError(t, err)

	// Freshly created card is due tomorrow, not today.
	due, err := svc.ListDue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Force it due by backdating.
	card.DueAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.UpdateFlashcard(ctx, card))

	due, err = svc.ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, card.ID, due[0].ID)
}
