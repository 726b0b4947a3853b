// Package domain contains the core entities for the Marginalia server.
package domain

import "time"

// Book is a work the user has highlighted on a reading device.
// Identity is the ISBN when the device supplies one, otherwise the
// (title, author) pair. Books are created lazily by the first upload
// that references them and are never deleted by reconciliation.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Cover is set by the side-effect dispatcher after a successful
	// Open Library fetch. Nil until then.
	Cover *CoverInfo `json:"cover,omitempty"`

	// Chapters are loaded on detail reads, not on list reads.
	Chapters []*Chapter `json:"chapters,omitempty"`
}

// CoverInfo describes a stored cover image for a book.
type CoverInfo struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	BlurHash string `json:"blur_hash,omitempty"`
}

// Chapter groups highlights within a book. Identity is
// (book_id, name); chapters are created the first time an upload
// references a name not yet seen for the book.
type Chapter struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Highlights []*Highlight `json:"highlights,omitempty"`
}

// UnknownChapterName is the synthetic chapter used when a device
// export carries highlights with no chapter concept.
const UnknownChapterName = "Unknown Chapter"
