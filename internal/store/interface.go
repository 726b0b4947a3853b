// Package store defines the persistence interface for the Marginalia server.
package store

import (
	"context"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	GetBookByTitleAuthor(ctx context.Context, title, author string) (*domain.Book, error)
	GetBookTree(ctx context.Context, id string) (*domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	SetBookCover(ctx context.Context, bookID string, cover *domain.CoverInfo) error
	ListBooks(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Book], error)
	CountBooks(ctx context.Context) (int, error)

	// Chapters
	GetChapter(ctx context.Context, id string) (*domain.Chapter, error)
	ListChaptersForBook(ctx context.Context, bookID string) ([]*domain.Chapter, error)
	RenameChapter(ctx context.Context, id, name string) error

	// Highlights
	GetHighlight(ctx context.Context, id string) (*domain.Highlight, error)
	ListHighlightsForChapter(ctx context.Context, chapterID string, includeDeleted bool) ([]*domain.Highlight, error)
	UpdateHighlight(ctx context.Context, h *domain.Highlight) error
	SoftDeleteHighlight(ctx context.Context, id string, at time.Time) error
	RestoreHighlight(ctx context.Context, id string) error
	PurgeHighlight(ctx context.Context, id string) error
	CountHighlights(ctx context.Context) (int, error)

	// Tags
	CreateTag(ctx context.Context, t *domain.Tag) error
	GetTagByID(ctx context.Context, id string) (*domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	FindOrCreateTagBySlug(ctx context.Context, slug string) (*domain.Tag, bool, error)
	DeleteTag(ctx context.Context, id string) error
	AddTagToHighlight(ctx context.Context, highlightID, tagID string) error
	RemoveTagFromHighlight(ctx context.Context, highlightID, tagID string) error
	GetTagIDsForHighlight(ctx context.Context, highlightID string) ([]string, error)
	ListHighlightsForTag(ctx context.Context, tagID string) ([]*domain.Highlight, error)

	// Flashcards
	CreateFlashcard(ctx context.Context, f *domain.Flashcard) error
	GetFlashcard(ctx context.Context, id string) (*domain.Flashcard, error)
	UpdateFlashcard(ctx context.Context, f *domain.Flashcard) error
	DeleteFlashcard(ctx context.Context, id string) error
	ListFlashcardsForHighlight(ctx context.Context, highlightID string) ([]*domain.Flashcard, error)
	ListDueFlashcards(ctx context.Context, now time.Time, limit int) ([]*domain.Flashcard, error)

	// Uploads
	BeginUpload(ctx context.Context) (UploadTx, error)
}

// UploadTx is the transactional unit of work for one upload reconciliation.
// All reads and writes inside an upload go through one transaction so the
// batch either fully commits or leaves no trace.
//
// Create methods return ErrAlreadyExists on a unique-constraint violation;
// callers recover by refetching the winning row instead of failing the upload.
type UploadTx interface {
	GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	GetBookByTitleAuthor(ctx context.Context, title, author string) (*domain.Book, error)
	CreateBook(ctx context.Context, book *domain.Book) error

	GetChapterByName(ctx context.Context, bookID, name string) (*domain.Chapter, error)
	CountChaptersForBook(ctx context.Context, bookID string) (int, error)
	CreateChapter(ctx context.Context, ch *domain.Chapter) error

	// ListChapterHighlights returns every highlight row for the chapter,
	// tombstoned rows included.
	ListChapterHighlights(ctx context.Context, chapterID string) ([]*domain.Highlight, error)
	CreateHighlight(ctx context.Context, h *domain.Highlight) error

	Commit() error
	Rollback() error
}
