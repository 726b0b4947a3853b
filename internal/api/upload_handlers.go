package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerUploadRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "uploadHighlights",
		Method:      http.MethodPost,
		Path:        "/api/v1/uploads",
		Summary:     "Upload highlights",
		Description: "Accepts a batch of highlights from a reading device and merges it into the library. Safe to repeat: already-known highlights are skipped.",
		Tags:        []string{"Uploads"},
	}, s.handleUpload)
}

// === DTOs ===

// UploadBookRequest identifies the book a batch belongs to.
type UploadBookRequest struct {
	Title  string `json:"title" minLength:"1" maxLength:"500" doc:"Book title"`
	Author string `json:"author,omitempty" maxLength:"500" doc:"Book author"`
	ISBN   string `json:"isbn,omitempty" maxLength:"20" doc:"ISBN, used for identity matching and cover lookup"`
}

// UploadHighlightRequest is one highlight within a chapter.
type UploadHighlightRequest struct {
	Text     string     `json:"text" minLength:"1" doc:"Highlighted passage"`
	Note     string     `json:"note,omitempty" doc:"Reader's note"`
	Page     int        `json:"page,omitempty" minimum:"0" doc:"Page number on the device"`
	Datetime *time.Time `json:"datetime,omitempty" doc:"When the device recorded the highlight"`
}

// UploadChapterRequest groups highlights under one chapter name.
type UploadChapterRequest struct {
	Name       string                   `json:"name,omitempty" maxLength:"500" doc:"Chapter name; empty is filed under Unknown Chapter"`
	Highlights []UploadHighlightRequest `json:"highlights" doc:"Highlights in this chapter"`
}

// UploadRequest is the full batch payload.
type UploadRequest struct {
	Book     UploadBookRequest      `json:"book" doc:"Book identity"`
	Chapters []UploadChapterRequest `json:"chapters" doc:"Chapters with highlights"`
}

// UploadInput wraps the upload request for huma.
type UploadInput struct {
	Body UploadRequest
}

// UploadResponse reports what the merge did.
type UploadResponse struct {
	BookID  string `json:"book_id" doc:"ID of the matched or created book"`
	Created int    `json:"created" doc:"Highlights newly created"`
	Skipped int    `json:"skipped" doc:"Highlights already present or tombstoned"`
}

// UploadOutput wraps the upload response for huma.
type UploadOutput struct {
	Body UploadResponse
}

// === Handlers ===

func (s *Server) handleUpload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	batch := &domain.UploadBatch{
		Book: domain.UploadBook{
			Title:  input.Body.Book.Title,
			Author: input.Body.Book.Author,
			ISBN:   input.Body.Book.ISBN,
		},
	}
	for _, ch := range input.Body.Chapters {
		chapter := domain.UploadChapter{Name: ch.Name}
		for _, h := range ch.Highlights {
			chapter.Highlights = append(chapter.Highlights, domain.UploadHighlight{
				Text:       h.Text,
				Note:       h.Note,
				Page:       h.Page,
				SourceTime: h.Datetime,
			})
		}
		batch.Chapters = append(batch.Chapters, chapter)
	}

	result, err := s.services.Upload.Upload(ctx, batch)
	if err != nil {
		return nil, err
	}

	return &UploadOutput{
		Body: UploadResponse{
			BookID:  result.BookID,
			Created: result.Created,
			Skipped: result.Skipped,
		},
	}, nil
}
