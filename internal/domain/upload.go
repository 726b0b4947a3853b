package domain

import "time"

// UploadBatch is a device export for one book: a descriptor plus the
// chapters and highlights currently on the device. Device exports are
// cumulative snapshots, not deltas — every sync re-sends everything,
// which is why reconciliation has to be idempotent.
type UploadBatch struct {
	Book     UploadBook      `json:"book"`
	Chapters []UploadChapter `json:"chapters"`
}

// UploadBook is the book descriptor carried by an upload.
type UploadBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn,omitempty"`
}

// UploadChapter is one chapter block in an upload, in device order.
type UploadChapter struct {
	Name       string            `json:"name"`
	Highlights []UploadHighlight `json:"highlights"`
}

// UploadHighlight is one highlight as exported by the device.
type UploadHighlight struct {
	Text       string     `json:"text"`
	Note       string     `json:"note,omitempty"`
	Page       int        `json:"page,omitempty"`
	SourceTime *time.Time `json:"datetime,omitempty"`
}
