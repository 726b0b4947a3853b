package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

func (s *Server) registerHighlightRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlight",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Get highlight",
		Description: "Returns a highlight by ID",
		Tags:        []string{"Highlights"},
	}, s.handleGetHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateHighlight",
		Method:      http.MethodPatch,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Update highlight",
		Description: "Edits a highlight's note, page, or bookmark flag. The text itself cannot change.",
		Tags:        []string{"Highlights"},
	}, s.handleUpdateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Delete highlight",
		Description: "Soft-deletes a highlight. Deleted highlights stay hidden even if the same passage is uploaded again.",
		Tags:        []string{"Highlights"},
	}, s.handleDeleteHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/restore",
		Summary:     "Restore highlight",
		Description: "Brings a deleted highlight back",
		Tags:        []string{"Highlights"},
	}, s.handleRestoreHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "purgeHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}/permanent",
		Summary:     "Purge highlight",
		Description: "Permanently removes a deleted highlight. The next upload of the same passage will re-create it.",
		Tags:        []string{"Highlights"},
	}, s.handlePurgeHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "tagHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/tags",
		Summary:     "Tag highlight",
		Description: "Attaches a tag by name, creating the tag on first use",
		Tags:        []string{"Highlights"},
	}, s.handleTagHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "untagHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}/tags/{tagID}",
		Summary:     "Untag highlight",
		Description: "Detaches a tag from a highlight",
		Tags:        []string{"Highlights"},
	}, s.handleUntagHighlight)
}

// === DTOs ===

// HighlightIDInput contains a highlight ID path parameter.
type HighlightIDInput struct {
	ID string `path:"id" doc:"Highlight ID"`
}

// HighlightOutput wraps a single highlight for huma.
type HighlightOutput struct {
	Body *domain.Highlight
}

// UpdateHighlightRequest is the request body for editing a highlight.
// Omitted fields are left unchanged.
type UpdateHighlightRequest struct {
	Note       *string `json:"note,omitempty" doc:"Reader's note"`
	Page       *int    `json:"page,omitempty" minimum:"0" doc:"Page number"`
	Bookmarked *bool   `json:"bookmarked,omitempty" doc:"Bookmark flag"`
}

// UpdateHighlightInput wraps the update request for huma.
type UpdateHighlightInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body UpdateHighlightRequest
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}

// TagHighlightInput wraps the tag-by-name request for huma.
type TagHighlightInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"50" doc:"Tag name"`
	}
}

// TagOutput wraps a single tag for huma.
type TagOutput struct {
	Body *domain.Tag
}

// UntagHighlightInput contains parameters for detaching a tag.
type UntagHighlightInput struct {
	ID    string `path:"id" doc:"Highlight ID"`
	TagID string `path:"tagID" doc:"Tag ID"`
}

// === Handlers ===

func (s *Server) handleGetHighlight(ctx context.Context, input *HighlightIDInput) (*HighlightOutput, error) {
	h, err := s.services.Highlight.GetHighlight(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: h}, nil
}

func (s *Server) handleUpdateHighlight(ctx context.Context, input *UpdateHighlightInput) (*HighlightOutput, error) {
	h, err := s.services.Highlight.UpdateHighlight(ctx, input.ID, service.HighlightUpdate{
		Note:       input.Body.Note,
		Page:       input.Body.Page,
		Bookmarked: input.Body.Bookmarked,
	})
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: h}, nil
}

func (s *Server) handleDeleteHighlight(ctx context.Context, input *HighlightIDInput) (*MessageOutput, error) {
	if err := s.services.Highlight.DeleteHighlight(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight deleted"}}, nil
}

func (s *Server) handleRestoreHighlight(ctx context.Context, input *HighlightIDInput) (*HighlightOutput, error) {
	h, err := s.services.Highlight.RestoreHighlight(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: h}, nil
}

func (s *Server) handlePurgeHighlight(ctx context.Context, input *HighlightIDInput) (*MessageOutput, error) {
	if err := s.services.Highlight.PurgeHighlight(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight permanently removed"}}, nil
}

func (s *Server) handleTagHighlight(ctx context.Context, input *TagHighlightInput) (*TagOutput, error) {
	t, err := s.services.Tag.TagHighlight(ctx, input.ID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleUntagHighlight(ctx context.Context, input *UntagHighlightInput) (*MessageOutput, error) {
	if err := s.services.Tag.UntagHighlight(ctx, input.ID, input.TagID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Tag removed"}}, nil
}
