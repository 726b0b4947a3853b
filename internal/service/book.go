package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/errors"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/store"
	"github.com/marginalia-app/marginalia-server/internal/validation"
)

// validate checks user-supplied metadata across the service layer.
var validate = validation.New()

// bookUpdate carries user edits to book metadata for validation.
type bookUpdate struct {
	Title  string `json:"title" validate:"required,max=500"`
	Author string `json:"author" validate:"max=500"`
	ISBN   string `json:"isbn" validate:"omitempty,isbn"`
}

// BookService orchestrates book and chapter operations.
type BookService struct {
	store  store.Store
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(st store.Store, logger *slog.Logger) *BookService {
	return &BookService{
		store:  st,
		logger: logger,
	}
}

// ListBooks returns a paginated list of books.
func (s *BookService) ListBooks(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	params.Validate()
	return s.store.ListBooks(ctx, params)
}

// GetBook retrieves a single book by ID.
func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.store.GetBook(ctx, id)
}

// GetBookTree retrieves a book with its chapters and their active highlights.
func (s *BookService) GetBookTree(ctx context.Context, id string) (*domain.Book, error) {
	return s.store.GetBookTree(ctx, id)
}

// UpdateBook applies user edits to a book's metadata. Title and author
// cannot be blanked because they identify the book to future uploads.
func (s *BookService) UpdateBook(ctx context.Context, id, title, author, isbn string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)
	if title == "" {
		return nil, errors.Validation("title cannot be empty")
	}
	if err := validate.Validate(bookUpdate{Title: title, Author: author, ISBN: isbn}); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Title = title
	book.Author = author
	book.ISBN = isbn

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.Info("book updated",
		"book_id", book.ID,
		"title", book.Title,
	)

	return book, nil
}

// ListChapters returns a book's chapters in reading order.
func (s *BookService) ListChapters(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	// Surface a not-found for the book itself rather than an empty list.
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.ListChaptersForBook(ctx, bookID)
}

// RenameChapter changes a chapter's display name. Highlights keep their
// dedup keys, so renaming never affects reconciliation of past uploads.
func (s *BookService) RenameChapter(ctx context.Context, chapterID, name string) (*domain.Chapter, error) {
	name = normalize.HighlightText(name)
	if name == "" {
		return nil, errors.Validation("chapter name cannot be empty")
	}

	if err := s.store.RenameChapter(ctx, chapterID, name); err != nil {
		return nil, err
	}

	return s.store.GetChapter(ctx, chapterID)
}
