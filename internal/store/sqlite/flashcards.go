package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// flashcardColumns is the ordered list of columns selected in flashcard queries.
// Must match the scan order in scanFlashcard.
const flashcardColumns = `id, highlight_id, front, back, interval_days, due_at, reviewed_at, created_at, updated_at`

// scanFlashcard scans a sql.Row (or sql.Rows via its Scan method) into a domain.Flashcard.
func scanFlashcard(scanner interface{ Scan(dest ...any) error }) (*domain.Flashcard, error) {
	var f domain.Flashcard

	var (
		dueAt      string
		reviewedAt sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&f.ID,
		&f.HighlightID,
		&f.Front,
		&f.Back,
		&f.IntervalDays,
		&dueAt,
		&reviewedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.DueAt, err = parseTime(dueAt)
	if err != nil {
		return nil, err
	}
	f.ReviewedAt, err = parseNullableTime(reviewedAt)
	if err != nil {
		return nil, err
	}
	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// CreateFlashcard inserts a new flashcard.
func (s *Store) CreateFlashcard(ctx context.Context, f *domain.Flashcard) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flashcards (id, highlight_id, front, back, interval_days, due_at, reviewed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.HighlightID,
		f.Front,
		f.Back,
		f.IntervalDays,
		formatTime(f.DueAt),
		nullTimeString(f.ReviewedAt),
		formatTime(f.CreatedAt),
		formatTime(f.UpdatedAt),
	)
	return mapInsertErr(err)
}

// GetFlashcard retrieves a flashcard by its ID.
// Returns store.ErrNotFound if the flashcard does not exist.
func (s *Store) GetFlashcard(ctx context.Context, id string) (*domain.Flashcard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE id = ?`, id)

	f, err := scanFlashcard(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFlashcard updates a flashcard's content and review schedule.
// Returns store.ErrNotFound if the flashcard does not exist.
func (s *Store) UpdateFlashcard(ctx context.Context, f *domain.Flashcard) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE flashcards SET front = ?, back = ?, interval_days = ?, due_at = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ?`,
		f.Front,
		f.Back,
		f.IntervalDays,
		formatTime(f.DueAt),
		nullTimeString(f.ReviewedAt),
		formatTime(f.UpdatedAt),
		f.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteFlashcard removes a flashcard.
// Returns store.ErrNotFound if the flashcard does not exist.
func (s *Store) DeleteFlashcard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListFlashcardsForHighlight returns the flashcards made from a highlight.
func (s *Store) ListFlashcardsForHighlight(ctx context.Context, highlightID string) ([]*domain.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE highlight_id = ? ORDER BY created_at ASC`, highlightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFlashcards(rows)
}

// ListDueFlashcards returns flashcards due for review at or before now,
// oldest due first. Limit <= 0 means no limit.
func (s *Store) ListDueFlashcards(ctx context.Context, now time.Time, limit int) ([]*domain.Flashcard, error) {
	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE due_at <= ? ORDER BY due_at ASC`
	args := []any{formatTime(now)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFlashcards(rows)
}

func collectFlashcards(rows *sql.Rows) ([]*domain.Flashcard, error) {
	var cards []*domain.Flashcard
	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cards == nil {
		cards = []*domain.Flashcard{}
	}

	return cards, nil
}
