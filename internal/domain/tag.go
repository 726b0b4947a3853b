package domain

import "time"

// Tag is a user-defined label attached to highlights. Tags are global
// (no per-user ownership in a single-user server) and identified by a
// normalized slug.
type Tag struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
