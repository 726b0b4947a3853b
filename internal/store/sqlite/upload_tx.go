package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// uploadTx implements store.UploadTx over one SQLite transaction.
// Every read inside reconciliation goes through the same transaction as the
// writes, so a failed batch rolls back without leaving hierarchy rows behind.
type uploadTx struct {
	tx *sql.Tx
}

// BeginUpload opens the transactional unit of work for one upload.
func (s *Store) BeginUpload(ctx context.Context) (store.UploadTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upload tx: %w", err)
	}
	return &uploadTx{tx: tx}, nil
}

func (u *uploadTx) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return getBookByISBN(ctx, u.tx, isbn)
}

func (u *uploadTx) GetBookByTitleAuthor(ctx context.Context, title, author string) (*domain.Book, error) {
	return getBookByTitleAuthor(ctx, u.tx, title, author)
}

func (u *uploadTx) CreateBook(ctx context.Context, b *domain.Book) error {
	return insertBook(ctx, u.tx, b)
}

func (u *uploadTx) GetChapterByName(ctx context.Context, bookID, name string) (*domain.Chapter, error) {
	return getChapterByName(ctx, u.tx, bookID, name)
}

func (u *uploadTx) CountChaptersForBook(ctx context.Context, bookID string) (int, error) {
	var n int
	err := u.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chapters WHERE book_id = ?`, bookID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chapters: %w", err)
	}
	return n, nil
}

func (u *uploadTx) CreateChapter(ctx context.Context, ch *domain.Chapter) error {
	return insertChapter(ctx, u.tx, ch)
}

func (u *uploadTx) ListChapterHighlights(ctx context.Context, chapterID string) ([]*domain.Highlight, error) {
	return listChapterHighlights(ctx, u.tx, chapterID, true)
}

func (u *uploadTx) CreateHighlight(ctx context.Context, h *domain.Highlight) error {
	return insertHighlight(ctx, u.tx, h)
}

func (u *uploadTx) Commit() error {
	return u.tx.Commit()
}

func (u *uploadTx) Rollback() error {
	return u.tx.Rollback()
}
