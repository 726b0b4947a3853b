package domain

import "time"

// Highlight is one quoted passage from a book, owned by exactly one
// chapter. Rows are created by the reconciliation engine and mutated
// only by direct user actions (note edits, bookmarking, soft delete).
type Highlight struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`

	// Text is the passage as stored. DedupKey is derived from the
	// normalized text, the chapter, and the source datetime; it is
	// computed once at insert and never recomputed.
	Text     string `json:"text"`
	DedupKey string `json:"-"`

	// Note and Page are user/device extras that do not participate in
	// identity: notes are added after the fact and pages shift between
	// device firmware versions.
	Note string `json:"note,omitempty"`
	Page int    `json:"page,omitempty"`

	// SourceTime is the "datetime" the reading device recorded for the
	// highlight. Nil when the export omits it.
	SourceTime *time.Time `json:"source_time,omitempty"`

	Bookmarked bool `json:"bookmarked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is the tombstone. A tombstoned highlight keeps its
	// dedup key reserved so re-uploads of the same export cannot
	// resurrect it.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	TagIDs []string `json:"tag_ids,omitempty"`
}

// Deleted reports whether the highlight is tombstoned.
func (h *Highlight) Deleted() bool {
	return h.DeletedAt != nil
}
