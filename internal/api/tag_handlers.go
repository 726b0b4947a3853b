package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all tags ordered by slug",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a new tag from a display name",
		Tags:        []string{"Tags"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Deletes a tag and detaches it from all highlights",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/highlights",
		Summary:     "Get tag highlights",
		Description: "Returns the active highlights carrying this tag",
		Tags:        []string{"Tags"},
	}, s.handleGetTagHighlights)
}

// === DTOs ===

// ListTagsOutput wraps the tag list for huma.
type ListTagsOutput struct {
	Body struct {
		Tags []*domain.Tag `json:"tags" doc:"All tags"`
	}
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name  string `json:"name" minLength:"1" maxLength:"50" doc:"Tag name"`
	Color string `json:"color,omitempty" maxLength:"20" doc:"Display color"`
}

// CreateTagInput wraps the create tag request for huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagIDInput contains a tag ID path parameter.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListTagsOutput{}
	out.Body.Tags = tags
	return out, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	t, err := s.services.Tag.CreateTag(ctx, input.Body.Name, input.Body.Color)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	t, err := s.services.Tag.GetTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: t}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*MessageOutput, error) {
	if err := s.services.Tag.DeleteTag(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Tag deleted"}}, nil
}

func (s *Server) handleGetTagHighlights(ctx context.Context, input *TagIDInput) (*ListHighlightsOutput, error) {
	highlights, err := s.services.Tag.ListHighlightsForTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListHighlightsOutput{}
	out.Body.Highlights = highlights
	return out, nil
}
