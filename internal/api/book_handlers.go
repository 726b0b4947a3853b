package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a paginated list of books in the library",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with its chapters and active highlights",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Edits a book's title, author, or ISBN",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookChapters",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/chapters",
		Summary:     "List chapters",
		Description: "Returns a book's chapters in reading order",
		Tags:        []string{"Books"},
	}, s.handleListBookChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameChapter",
		Method:      http.MethodPatch,
		Path:        "/api/v1/chapters/{id}",
		Summary:     "Rename chapter",
		Description: "Changes a chapter's display name",
		Tags:        []string{"Books"},
	}, s.handleRenameChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "listChapterHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/chapters/{id}/highlights",
		Summary:     "List chapter highlights",
		Description: "Returns a chapter's highlights, optionally including deleted ones",
		Tags:        []string{"Books"},
	}, s.handleListChapterHighlights)
}

// === DTOs ===

// ListBooksInput contains pagination parameters for listing books.
type ListBooksInput struct {
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor string `query:"cursor" doc:"Opaque pagination cursor from a previous response"`
}

// ListBooksResponse contains one page of books.
type ListBooksResponse struct {
	Books      []*domain.Book `json:"books" doc:"Books on this page"`
	Total      int            `json:"total" doc:"Total books in the library"`
	NextCursor string         `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool           `json:"has_more" doc:"Whether more pages exist"`
}

// ListBooksOutput wraps the book list for huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// GetBookInput contains parameters for fetching one book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book for huma.
type BookOutput struct {
	Body *domain.Book
}

// UpdateBookRequest is the request body for editing a book.
type UpdateBookRequest struct {
	Title  string `json:"title" minLength:"1" maxLength:"500" doc:"Book title"`
	Author string `json:"author,omitempty" maxLength:"500" doc:"Book author"`
	ISBN   string `json:"isbn,omitempty" maxLength:"20" doc:"ISBN"`
}

// UpdateBookInput wraps the update book request for huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body UpdateBookRequest
}

// ListChaptersOutput wraps a chapter list for huma.
type ListChaptersOutput struct {
	Body struct {
		Chapters []*domain.Chapter `json:"chapters" doc:"Chapters in reading order"`
	}
}

// RenameChapterInput wraps the rename request for huma.
type RenameChapterInput struct {
	ID   string `path:"id" doc:"Chapter ID"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"500" doc:"New chapter name"`
	}
}

// ChapterOutput wraps a single chapter for huma.
type ChapterOutput struct {
	Body *domain.Chapter
}

// ListChapterHighlightsInput contains parameters for listing a chapter's highlights.
type ListChapterHighlightsInput struct {
	ID             string `path:"id" doc:"Chapter ID"`
	IncludeDeleted bool   `query:"include_deleted" doc:"Include tombstoned highlights"`
}

// ListHighlightsOutput wraps a highlight list for huma.
type ListHighlightsOutput struct {
	Body struct {
		Highlights []*domain.Highlight `json:"highlights" doc:"Highlights"`
	}
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	result, err := s.services.Book.ListBooks(ctx, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}

	return &ListBooksOutput{
		Body: ListBooksResponse{
			Books:      result.Items,
			Total:      result.Total,
			NextCursor: result.NextCursor,
			HasMore:    result.HasMore,
		},
	}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBookTree(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Book.UpdateBook(ctx, input.ID, input.Body.Title, input.Body.Author, input.Body.ISBN)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListBookChapters(ctx context.Context, input *GetBookInput) (*ListChaptersOutput, error) {
	chapters, err := s.services.Book.ListChapters(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListChaptersOutput{}
	out.Body.Chapters = chapters
	return out, nil
}

func (s *Server) handleRenameChapter(ctx context.Context, input *RenameChapterInput) (*ChapterOutput, error) {
	chapter, err := s.services.Book.RenameChapter(ctx, input.ID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ChapterOutput{Body: chapter}, nil
}

func (s *Server) handleListChapterHighlights(ctx context.Context, input *ListChapterHighlightsInput) (*ListHighlightsOutput, error) {
	highlights, err := s.services.Highlight.ListForChapter(ctx, input.ID, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	out := &ListHighlightsOutput{}
	out.Body.Highlights = highlights
	return out, nil
}

// handleGetBookCover serves the stored cover image as raw bytes. Kept
// outside huma because the response is a file, not JSON.
func (s *Server) handleGetBookCover(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		http.Error(w, "book ID is required", http.StatusBadRequest)
		return
	}

	path, err := s.services.Cover.CoverPath(r.Context(), bookID)
	if err != nil {
		http.Error(w, "cover not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
