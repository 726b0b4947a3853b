// Package sse provides server-sent events for live library updates.
package sse

import (
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
)

// EventType identifies the kind of change an event describes.
type EventType string

// Event types broadcast to connected clients.
const (
	EventHeartbeat         EventType = "heartbeat"
	EventUploadCompleted   EventType = "upload.completed"
	EventBookCoverUpdated  EventType = "book.cover_updated"
	EventHighlightUpdated  EventType = "highlight.updated"
	EventHighlightDeleted  EventType = "highlight.deleted"
	EventHighlightRestored EventType = "highlight.restored"
	EventTagCreated        EventType = "tag.created"
)

// Event is one change notification.
type Event struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"book_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeartbeatEvent creates a keep-alive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadCompletedEvent announces a reconciled upload.
func NewUploadCompletedEvent(result *reconcile.Result) Event {
	return Event{
		Type:      EventUploadCompleted,
		BookID:    result.BookID,
		Payload:   result,
		Timestamp: time.Now().UTC(),
	}
}

// NewBookCoverUpdatedEvent announces a freshly fetched cover.
func NewBookCoverUpdatedEvent(bookID string, cover *domain.CoverInfo) Event {
	return Event{
		Type:      EventBookCoverUpdated,
		BookID:    bookID,
		Payload:   cover,
		Timestamp: time.Now().UTC(),
	}
}

// NewHighlightUpdatedEvent announces an edited highlight.
func NewHighlightUpdatedEvent(h *domain.Highlight) Event {
	return Event{
		Type:      EventHighlightUpdated,
		Payload:   h,
		Timestamp: time.Now().UTC(),
	}
}

// NewHighlightDeletedEvent announces a tombstoned highlight.
func NewHighlightDeletedEvent(highlightID string) Event {
	return Event{
		Type:      EventHighlightDeleted,
		Payload:   map[string]string{"highlight_id": highlightID},
		Timestamp: time.Now().UTC(),
	}
}

// NewHighlightRestoredEvent announces an explicitly restored highlight.
func NewHighlightRestoredEvent(h *domain.Highlight) Event {
	return Event{
		Type:      EventHighlightRestored,
		Payload:   h,
		Timestamp: time.Now().UTC(),
	}
}

// NewTagCreatedEvent announces a new tag.
func NewTagCreatedEvent(t *domain.Tag) Event {
	return Event{
		Type:      EventTagCreated,
		Payload:   t,
		Timestamp: time.Now().UTC(),
	}
}
