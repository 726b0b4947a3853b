package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// highlightColumns is the ordered list of columns selected in highlight queries.
// Must match the scan order in scanHighlight.
const highlightColumns = `id, chapter_id, text, dedup_key, note, page, source_time, bookmarked, created_at, updated_at, deleted_at`

// prefixedHighlightColumns qualifies highlightColumns with a table alias for joins.
func prefixedHighlightColumns(alias string) string {
	cols := strings.Split(highlightColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// scanHighlight scans a sql.Row (or sql.Rows via its Scan method) into a domain.Highlight.
// TagIDs are left nil; the caller loads them when needed.
func scanHighlight(scanner interface{ Scan(dest ...any) error }) (*domain.Highlight, error) {
	var h domain.Highlight

	var (
		note       sql.NullString
		page       sql.NullInt64
		sourceTime sql.NullString
		bookmarked int
		createdAt  string
		updatedAt  string
		deletedAt  sql.NullString
	)

	err := scanner.Scan(
		&h.ID,
		&h.ChapterID,
		&h.Text,
		&h.DedupKey,
		&note,
		&page,
		&sourceTime,
		&bookmarked,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	h.Note = note.String
	h.Page = int(page.Int64)
	h.Bookmarked = bookmarked != 0

	h.SourceTime, err = parseNullableTime(sourceTime)
	if err != nil {
		return nil, err
	}
	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	h.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// insertHighlight runs the highlight INSERT against any execer (db or tx).
func insertHighlight(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, h *domain.Highlight) error {
	bookmarked := 0
	if h.Bookmarked {
		bookmarked = 1
	}

	_, err := execer.ExecContext(ctx, `
		INSERT INTO highlights (id, chapter_id, text, dedup_key, note, page, source_time, bookmarked, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.ChapterID,
		h.Text,
		h.DedupKey,
		nullString(h.Note),
		nullInt(h.Page),
		nullTimeString(h.SourceTime),
		bookmarked,
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
		nullTimeString(h.DeletedAt),
	)
	return mapInsertErr(err)
}

func listChapterHighlights(ctx context.Context, querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, chapterID string, includeDeleted bool) ([]*domain.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights WHERE chapter_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY source_time ASC, created_at ASC`

	rows, err := querier.QueryContext(ctx, query, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highlights []*domain.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if highlights == nil {
		highlights = []*domain.Highlight{}
	}

	return highlights, nil
}

// GetHighlight retrieves a highlight by its ID, tombstoned rows included.
// Returns store.ErrNotFound if the highlight does not exist.
func (s *Store) GetHighlight(ctx context.Context, id string) (*domain.Highlight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id)

	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHighlightsForChapter returns a chapter's highlights in reading order.
// Tombstoned rows are included only when includeDeleted is set.
func (s *Store) ListHighlightsForChapter(ctx context.Context, chapterID string, includeDeleted bool) ([]*domain.Highlight, error) {
	return listChapterHighlights(ctx, s.db, chapterID, includeDeleted)
}

// UpdateHighlight updates a highlight's user-editable fields (note, page, bookmarked).
// Text and dedup key are immutable after creation.
// Returns store.ErrNotFound if the highlight does not exist.
func (s *Store) UpdateHighlight(ctx context.Context, h *domain.Highlight) error {
	bookmarked := 0
	if h.Bookmarked {
		bookmarked = 1
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights SET note = ?, page = ?, bookmarked = ?, updated_at = ?
		WHERE id = ?`,
		nullString(h.Note),
		nullInt(h.Page),
		bookmarked,
		formatTime(h.UpdatedAt),
		h.ID,
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

// SoftDeleteHighlight tombstones a highlight. The row stays behind so its
// dedup key remains reserved against recreation by future uploads.
// Already-deleted highlights are left untouched (idempotent).
// Returns store.ErrNotFound if the highlight does not exist.
func (s *Store) SoftDeleteHighlight(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatTime(at),
		formatTime(at),
		id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing row from already-deleted row.
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM highlights WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// RestoreHighlight lifts a highlight's tombstone. This is the explicit user
// action that re-activates a deleted highlight; uploads never do this.
// Returns store.ErrNotFound if the highlight does not exist.
func (s *Store) RestoreHighlight(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights SET deleted_at = NULL, updated_at = ?
		WHERE id = ?`,
		formatTime(time.Now().UTC()),
		id,
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

// PurgeHighlight hard-deletes a highlight row, releasing its dedup key.
// Only valid for tombstoned rows; purging an active highlight is rejected.
func (s *Store) PurgeHighlight(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM highlights WHERE id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM highlights WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return store.ErrInvalidInput.WithMessage("highlight is not deleted")
	}
	return nil
}

// CountHighlights returns the number of active highlights.
func (s *Store) CountHighlights(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM highlights WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count highlights: %w", err)
	}
	return n, nil
}
