package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// chapterColumns is the ordered list of columns selected in chapter queries.
// Must match the scan order in scanChapter.
const chapterColumns = `id, book_id, name, sort_order, created_at, updated_at`

// scanChapter scans a sql.Row (or sql.Rows via its Scan method) into a domain.Chapter.
// Highlights are left nil; the caller loads them when needed.
func scanChapter(scanner interface{ Scan(dest ...any) error }) (*domain.Chapter, error) {
	var ch domain.Chapter

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&ch.ID,
		&ch.BookID,
		&ch.Name,
		&ch.SortOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ch.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	ch.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &ch, nil
}

// insertChapter runs the chapter INSERT against any execer (db or tx).
func insertChapter(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, ch *domain.Chapter) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO chapters (id, book_id, name, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID,
		ch.BookID,
		ch.Name,
		ch.SortOrder,
		formatTime(ch.CreatedAt),
		formatTime(ch.UpdatedAt),
	)
	return mapInsertErr(err)
}

func getChapterByName(ctx context.Context, querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, bookID, name string) (*domain.Chapter, error) {
	row := querier.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? AND name = ?`, bookID, name)

	ch, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// GetChapter retrieves a chapter by its ID.
// Returns store.ErrNotFound if the chapter does not exist.
func (s *Store) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)

	ch, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// ListChaptersForBook returns all chapters of a book in upload order.
func (s *Store) ListChaptersForBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? ORDER BY sort_order ASC, name ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*domain.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if chapters == nil {
		chapters = []*domain.Chapter{}
	}

	return chapters, nil
}

// RenameChapter updates a chapter's name.
// Returns store.ErrNotFound if the chapter does not exist and
// store.ErrAlreadyExists if the book already has a chapter with that name.
func (s *Store) RenameChapter(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chapters SET name = ?, updated_at = ? WHERE id = ?`,
		name,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return mapInsertErr(err)
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
