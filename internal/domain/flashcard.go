package domain

import "time"

// Flashcard turns a highlight into a spaced-repetition card. The front
// defaults to the highlight text and the back to the user's note, but
// both are editable copies so later highlight edits don't rewrite cards.
type Flashcard struct {
	ID          string `json:"id"`
	HighlightID string `json:"highlight_id"`
	Front       string `json:"front"`
	Back        string `json:"back"`

	// Review scheduling: a doubling interval starting at one day.
	// A failed review resets the interval.
	IntervalDays int        `json:"interval_days"`
	DueAt        time.Time  `json:"due_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
