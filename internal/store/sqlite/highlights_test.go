package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

func TestSoftDeleteAndRestoreHighlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch := seedChapter(t, s, b.ID, "Ch1")
	h := seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")

	if err := s.SoftDeleteHighlight(ctx, h.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := s.GetHighlight(ctx, h.ID)
	if err != nil {
		t.Fatalf("get highlight: %v", err)
	}
	if !got.Deleted() {
		t.Error("expected highlight to be tombstoned")
	}

	// Deleting again is a no-op, not an error.
	if err := s.SoftDeleteHighlight(ctx, h.ID, time.Now().UTC()); err != nil {
		t.Fatalf("second soft delete: %v", err)
	}

	// Active listing must hide the tombstone; full listing must keep it.
	active, err := s.ListHighlightsForChapter(ctx, ch.ID, false)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected 0 active highlights, got %d", len(active))
	}
	all, err := s.ListHighlightsForChapter(ctx, ch.ID, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 row including tombstones, got %d", len(all))
	}

	if err := s.RestoreHighlight(ctx, h.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err = s.GetHighlight(ctx, h.ID)
	if err != nil {
		t.Fatalf("get after restore: %v", err)
	}
	if got.Deleted() {
		t.Error("expected highlight to be active after restore")
	}
}

func TestSoftDeleteHighlightNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.SoftDeleteHighlight(context.Background(), "hl-missing", time.Now().UTC())
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeHighlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch := seedChapter(t, s, b.ID, "Ch1")
	h := seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")

	// Purging an active highlight is rejected.
	if err := s.PurgeHighlight(ctx, h.ID); err == nil {
		t.Fatal("expected error purging active highlight")
	}

	if err := s.SoftDeleteHighlight(ctx, h.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := s.PurgeHighlight(ctx, h.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	if _, err := s.GetHighlight(ctx, h.ID); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}

	// The dedup key is released: an insert with the same key succeeds.
	seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")
}

func TestDedupKeyUniquePerChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch1 := seedChapter(t, s, b.ID, "Ch1")
	ch2 := seedChapter(t, s, b.ID, "Ch2")

	seedHighlight(t, s, ch1.ID, "Fear is the mind-killer", "key-1")

	// Same key in the same chapter violates the unique index.
	now := time.Now().UTC()
	dup := &domain.Highlight{
		ID:        id.MustGenerate("hl"),
		ChapterID: ch1.ID,
		Text:      "Fear is the mind-killer",
		DedupKey:  "key-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertHighlight(ctx, s.db, dup); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Same key in a different chapter is fine.
	seedHighlight(t, s, ch2.ID, "Fear is the mind-killer", "key-1")
}

func TestTombstoneReservesDedupKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch := seedChapter(t, s, b.ID, "Ch1")
	h := seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")

	if err := s.SoftDeleteHighlight(ctx, h.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// The unique index spans tombstones, so the key stays reserved even at
	// the storage level, below the reconciliation engine's own check.
	now := time.Now().UTC()
	replacement := &domain.Highlight{
		ID:        id.MustGenerate("hl"),
		ChapterID: ch.ID,
		Text:      "Fear is the mind-killer",
		DedupKey:  "key-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertHighlight(ctx, s.db, replacement); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists behind tombstone, got %v", err)
	}
}

func TestUpdateHighlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch := seedChapter(t, s, b.ID, "Ch1")
	h := seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")

	h.Note = "Litany against fear"
	h.Page = 12
	h.Bookmarked = true
	h.UpdatedAt = time.Now().UTC()
	if err := s.UpdateHighlight(ctx, h); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetHighlight(ctx, h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Note != "Litany against fear" || got.Page != 12 || !got.Bookmarked {
		t.Errorf("unexpected highlight: %+v", got)
	}
}
