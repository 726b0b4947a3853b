package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, isbn, cover_path, cover_format, cover_size, cover_blurhash, created_at, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
// Chapters are left nil; the caller loads them when needed.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		isbn          sql.NullString
		coverPath     sql.NullString
		coverFormat   sql.NullString
		coverSize     sql.NullInt64
		coverBlurHash sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&isbn,
		&coverPath,
		&coverFormat,
		&coverSize,
		&coverBlurHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ISBN = isbn.String
	if coverPath.Valid {
		b.Cover = &domain.CoverInfo{
			Path:     coverPath.String,
			Format:   coverFormat.String,
			Size:     coverSize.Int64,
			BlurHash: coverBlurHash.String,
		}
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// insertBook runs the book INSERT against any execer (db or tx).
func insertBook(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, b *domain.Book) error {
	var (
		coverPath     sql.NullString
		coverFormat   sql.NullString
		coverSize     sql.NullInt64
		coverBlurHash sql.NullString
	)
	if b.Cover != nil {
		coverPath = nullString(b.Cover.Path)
		coverFormat = nullString(b.Cover.Format)
		coverSize = sql.NullInt64{Int64: b.Cover.Size, Valid: b.Cover.Size != 0}
		coverBlurHash = nullString(b.Cover.BlurHash)
	}

	_, err := execer.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, cover_path, cover_format, cover_size, cover_blurhash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Title,
		b.Author,
		nullString(b.ISBN),
		coverPath,
		coverFormat,
		coverSize,
		coverBlurHash,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	return mapInsertErr(err)
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists on a duplicate identity key (ISBN or title+author).
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	return insertBook(ctx, s.db, b)
}

// GetBook retrieves a book by its ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookByISBN retrieves a book by its external identifier.
// Returns store.ErrNotFound if no book carries that ISBN.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return getBookByISBN(ctx, s.db, isbn)
}

// GetBookByTitleAuthor retrieves a book by its exact (title, author) identity.
// Returns store.ErrNotFound if no such book exists.
func (s *Store) GetBookByTitleAuthor(ctx context.Context, title, author string) (*domain.Book, error) {
	return getBookByTitleAuthor(ctx, s.db, title, author)
}

func getBookByISBN(ctx context.Context, querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, isbn string) (*domain.Book, error) {
	row := querier.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func getBookByTitleAuthor(ctx context.Context, querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, title, author string) (*domain.Book, error) {
	row := querier.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title = ? AND author = ?`, title, author)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookTree retrieves a book with its chapters and their active highlights,
// ordered for display. Tombstoned highlights are excluded.
func (s *Store) GetBookTree(ctx context.Context, id string) (*domain.Book, error) {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	chapters, err := s.ListChaptersForBook(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, ch := range chapters {
		highlights, err := s.ListHighlightsForChapter(ctx, ch.ID, false)
		if err != nil {
			return nil, err
		}
		ch.Highlights = highlights
	}
	b.Chapters = chapters

	return b, nil
}

// UpdateBook updates a book's mutable fields (title, author, isbn).
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET title = ?, author = ?, isbn = ?, updated_at = ?
		WHERE id = ?`,
		b.Title,
		b.Author,
		nullString(b.ISBN),
		formatTime(b.UpdatedAt),
		b.ID,
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

// SetBookCover records the downloaded cover for a book.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) SetBookCover(ctx context.Context, bookID string, cover *domain.CoverInfo) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET cover_path = ?, cover_format = ?, cover_size = ?, cover_blurhash = ?, updated_at = ?
		WHERE id = ?`,
		nullString(cover.Path),
		nullString(cover.Format),
		sql.NullInt64{Int64: cover.Size, Valid: cover.Size != 0},
		nullString(cover.BlurHash),
		formatTime(time.Now().UTC()),
		bookID,
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

// ListBooks returns books ordered by title, paginated with an opaque cursor.
func (s *Store) ListBooks(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	params.Validate()

	afterID, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, store.ErrInvalidInput.WithCause(err)
	}

	// Fetch one extra row to detect whether more pages exist.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?`,
		afterID,
		params.Limit+1,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &store.PaginatedResult[*domain.Book]{}
	if len(books) > params.Limit {
		books = books[:params.Limit]
		result.HasMore = true
		result.NextCursor = store.EncodeCursor(books[len(books)-1].ID)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	result.Items = books

	return result, nil
}

// CountBooks returns the total number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}
