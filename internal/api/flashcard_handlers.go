package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerFlashcardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createFlashcard",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/flashcards",
		Summary:     "Create flashcard",
		Description: "Creates a spaced-repetition card from a highlight. Front defaults to the highlight text, back to the note.",
		Tags:        []string{"Flashcards"},
	}, s.handleCreateFlashcard)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHighlightFlashcards",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}/flashcards",
		Summary:     "List highlight flashcards",
		Description: "Returns the cards built from one highlight",
		Tags:        []string{"Flashcards"},
	}, s.handleListHighlightFlashcards)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDueFlashcards",
		Method:      http.MethodGet,
		Path:        "/api/v1/flashcards/due",
		Summary:     "List due flashcards",
		Description: "Returns cards due for review, oldest first",
		Tags:        []string{"Flashcards"},
	}, s.handleListDueFlashcards)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFlashcard",
		Method:      http.MethodGet,
		Path:        "/api/v1/flashcards/{id}",
		Summary:     "Get flashcard",
		Description: "Returns a flashcard by ID",
		Tags:        []string{"Flashcards"},
	}, s.handleGetFlashcard)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateFlashcard",
		Method:      http.MethodPatch,
		Path:        "/api/v1/flashcards/{id}",
		Summary:     "Update flashcard",
		Description: "Edits a card's front and back text",
		Tags:        []string{"Flashcards"},
	}, s.handleUpdateFlashcard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteFlashcard",
		Method:      http.MethodDelete,
		Path:        "/api/v1/flashcards/{id}",
		Summary:     "Delete flashcard",
		Description: "Removes a card. The highlight stays.",
		Tags:        []string{"Flashcards"},
	}, s.handleDeleteFlashcard)

	huma.Register(s.api, huma.Operation{
		OperationID: "reviewFlashcard",
		Method:      http.MethodPost,
		Path:        "/api/v1/flashcards/{id}/review",
		Summary:     "Review flashcard",
		Description: "Records a review. Success doubles the interval; failure resets it to one day.",
		Tags:        []string{"Flashcards"},
	}, s.handleReviewFlashcard)
}

// === DTOs ===

// CreateFlashcardRequest is the request body for creating a card.
type CreateFlashcardRequest struct {
	Front string `json:"front,omitempty" doc:"Front text; defaults to the highlight text"`
	Back  string `json:"back,omitempty" doc:"Back text; defaults to the highlight note"`
}

// CreateFlashcardInput wraps the create flashcard request for huma.
type CreateFlashcardInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body CreateFlashcardRequest
}

// FlashcardOutput wraps a single flashcard for huma.
type FlashcardOutput struct {
	Body *domain.Flashcard
}

// FlashcardIDInput contains a flashcard ID path parameter.
type FlashcardIDInput struct {
	ID string `path:"id" doc:"Flashcard ID"`
}

// ListFlashcardsOutput wraps a flashcard list for huma.
type ListFlashcardsOutput struct {
	Body struct {
		Flashcards []*domain.Flashcard `json:"flashcards" doc:"Flashcards"`
	}
}

// ListDueFlashcardsInput contains parameters for the due list.
type ListDueFlashcardsInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum cards to return"`
}

// UpdateFlashcardInput wraps the update request for huma.
type UpdateFlashcardInput struct {
	ID   string `path:"id" doc:"Flashcard ID"`
	Body struct {
		Front string `json:"front" minLength:"1" doc:"Front text"`
		Back  string `json:"back" minLength:"1" doc:"Back text"`
	}
}

// ReviewFlashcardInput wraps the review request for huma.
type ReviewFlashcardInput struct {
	ID   string `path:"id" doc:"Flashcard ID"`
	Body struct {
		Success bool `json:"success" doc:"Whether the card was recalled"`
	}
}

// === Handlers ===

func (s *Server) handleCreateFlashcard(ctx context.Context, input *CreateFlashcardInput) (*FlashcardOutput, error) {
	card, err := s.services.Flashcard.CreateFromHighlight(ctx, input.ID, input.Body.Front, input.Body.Back)
	if err != nil {
		return nil, err
	}
	return &FlashcardOutput{Body: card}, nil
}

func (s *Server) handleListHighlightFlashcards(ctx context.Context, input *HighlightIDInput) (*ListFlashcardsOutput, error) {
	cards, err := s.services.Flashcard.ListForHighlight(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListFlashcardsOutput{}
	out.Body.Flashcards = cards
	return out, nil
}

func (s *Server) handleListDueFlashcards(ctx context.Context, input *ListDueFlashcardsInput) (*ListFlashcardsOutput, error) {
	cards, err := s.services.Flashcard.ListDue(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &ListFlashcardsOutput{}
	out.Body.Flashcards = cards
	return out, nil
}

func (s *Server) handleGetFlashcard(ctx context.Context, input *FlashcardIDInput) (*FlashcardOutput, error) {
	card, err := s.services.Flashcard.GetFlashcard(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &FlashcardOutput{Body: card}, nil
}

func (s *Server) handleUpdateFlashcard(ctx context.Context, input *UpdateFlashcardInput) (*FlashcardOutput, error) {
	card, err := s.services.Flashcard.UpdateFlashcard(ctx, input.ID, input.Body.Front, input.Body.Back)
	if err != nil {
		return nil, err
	}
	return &FlashcardOutput{Body: card}, nil
}

func (s *Server) handleDeleteFlashcard(ctx context.Context, input *FlashcardIDInput) (*MessageOutput, error) {
	if err := s.services.Flashcard.DeleteFlashcard(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Flashcard deleted"}}, nil
}

func (s *Server) handleReviewFlashcard(ctx context.Context, input *ReviewFlashcardInput) (*FlashcardOutput, error) {
	card, err := s.services.Flashcard.Review(ctx, input.ID, input.Body.Success)
	if err != nil {
		return nil, err
	}
	return &FlashcardOutput{Body: card}, nil
}
