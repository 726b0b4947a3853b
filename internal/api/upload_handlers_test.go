package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_CreatesThenSkips(t *testing.T) {
	ts := setupTestServer(t)

	first := ts.uploadDune(t)
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.Data.BookID)
	assert.Equal(t, 1, first.Data.Created)
	assert.Equal(t, 0, first.Data.Skipped)

	second := ts.uploadDune(t)
	assert.Equal(t, 0, second.Data.Created)
	assert.Equal(t, 1, second.Data.Skipped)
	assert.Equal(t, first.Data.BookID, second.Data.BookID)
}

func TestUpload_MissingTitleRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/uploads", map[string]any{
		"book": map[string]any{"author": "Nobody"},
		"chapters": []map[string]any{
			{"highlights": []map[string]any{{"text": "orphan"}}},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestUpload_EmptyChapterNameGetsUnknownChapter(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/uploads", map[string]any{
		"book": map[string]any{"title": "No Chapters Here"},
		"chapters": []map[string]any{
			{"highlights": []map[string]any{{"text": "floating passage"}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[UploadResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, 1, envelope.Data.Created)

	chaptersResp := ts.api.Get("/api/v1/books/" + envelope.Data.BookID + "/chapters")
	require.Equal(t, http.StatusOK, chaptersResp.Code)
	assert.Contains(t, chaptersResp.Body.String(), "Unknown Chapter")
}
