// Package reconcile merges highlight upload batches into persistent storage
// without duplicating rows or resurrecting highlights the user has deleted.
package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/normalize"
)

// noDatetime is the key bucket for highlights whose export carried no
// source timestamp. A distinct sentinel keeps them from colliding with
// highlights that genuinely share text, which a fixed epoch default would.
const noDatetime = "no-datetime"

// DedupKey computes the deterministic fingerprint of a highlight:
// sha256 over (chapter id, normalized text, source datetime).
//
// These are the three fields a reading device reproduces verbatim on every
// re-export. Page and note are deliberately excluded — notes are added
// server-side after the fact and would defeat matching on re-sync.
func DedupKey(chapterID, text string, sourceTime *time.Time) string {
	ts := noDatetime
	if sourceTime != nil {
		ts = sourceTime.UTC().Format(time.RFC3339Nano)
	}

	h := sha256.New()
	h.Write([]byte(chapterID))
	h.Write([]byte{0})
	h.Write([]byte(normalize.HighlightText(text)))
	h.Write([]byte{0})
	h.Write([]byte(ts))
	return hex.EncodeToString(h.Sum(nil))
}
