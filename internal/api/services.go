package api

import (
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Upload    *service.UploadService
	Book      *service.BookService
	Highlight *service.HighlightService
	Tag       *service.TagService
	Flashcard *service.FlashcardService
	Cover     *service.CoverService
}
