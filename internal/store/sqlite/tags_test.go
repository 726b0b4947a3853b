package sqlite

import (
	"context"
	"testing"

	"github.com/marginalia-app/marginalia-server/internal/store"
)

func TestFindOrCreateTagBySlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, created, err := s.FindOrCreateTagBySlug(ctx, "philosophy")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if !created {
		t.Error("expected created=true on first call")
	}

	again, created, err := s.FindOrCreateTagBySlug(ctx, "philosophy")
	if err != nil {
		t.Fatalf("second find or create: %v", err)
	}
	if created {
		t.Error("expected created=false on second call")
	}
	if again.ID != tag.ID {
		t.Errorf("expected same tag, got %s and %s", tag.ID, again.ID)
	}
}

func TestTagHighlightAssociations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch := seedChapter(t, s, b.ID, "Ch1")
	h := seedHighlight(t, s, ch.ID, "Fear is the mind-killer", "key-1")

	tag, _, err := s.FindOrCreateTagBySlug(ctx, "fear")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	if err := s.AddTagToHighlight(ctx, h.ID, tag.ID); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	// Idempotent.
	if err := s.AddTagToHighlight(ctx, h.ID, tag.ID); err != nil {
		t.Fatalf("re-add tag: %v", err)
	}

	ids, err := s.GetTagIDsForHighlight(ctx, h.ID)
	if err != nil {
		t.Fatalf("get tag ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != tag.ID {
		t.Errorf("unexpected tag ids: %v", ids)
	}

	highlights, err := s.ListHighlightsForTag(ctx, tag.ID)
	if err != nil {
		t.Fatalf("list highlights for tag: %v", err)
	}
	if len(highlights) != 1 || highlights[0].ID != h.ID {
		t.Errorf("unexpected highlights: %v", highlights)
	}

	if err := s.RemoveTagFromHighlight(ctx, h.ID, tag.ID); err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	ids, err = s.GetTagIDsForHighlight(ctx, h.ID)
	if err != nil {
		t.Fatalf("get tag ids after remove: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no tags, got %v", ids)
	}
}

func TestDeleteTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, _, err := s.FindOrCreateTagBySlug(ctx, "doomed")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	if err := s.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	if _, err := s.GetTagByID(ctx, tag.ID); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTag(ctx, tag.ID); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}
