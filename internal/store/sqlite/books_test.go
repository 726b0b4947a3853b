package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

func TestCreateAndGetBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "9780441013593")

	got, err := s.GetBook(ctx, b.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Title != "Dune" || got.Author != "Herbert" || got.ISBN != "9780441013593" {
		t.Errorf("unexpected book: %+v", got)
	}
	if got.Cover != nil {
		t.Errorf("expected nil cover, got %+v", got.Cover)
	}
}

func TestGetBookNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBook(context.Background(), "book-missing")
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBookDuplicateTitleAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedBook(t, s, "Dune", "Herbert", "")

	now := time.Now().UTC()
	dup := &domain.Book{
		ID:        id.MustGenerate("book"),
		Title:     "Dune",
		Author:    "Herbert",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateBook(ctx, dup); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedBook(t, s, "Dune", "Herbert", "9780441013593")

	now := time.Now().UTC()
	dup := &domain.Book{
		ID:        id.MustGenerate("book"),
		Title:     "Dune (Reissue)",
		Author:    "Frank Herbert",
		ISBN:      "9780441013593",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateBook(ctx, dup); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestBooksWithoutISBNDoNotCollide(t *testing.T) {
	s := newTestStore(t)

	// The partial unique index must ignore NULL/empty ISBNs.
	seedBook(t, s, "Dune", "Herbert", "")
	seedBook(t, s, "Hyperion", "Simmons", "")
}

func TestGetBookByIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "9780441013593")

	byISBN, err := s.GetBookByISBN(ctx, "9780441013593")
	if err != nil {
		t.Fatalf("get by isbn: %v", err)
	}
	if byISBN.ID != b.ID {
		t.Errorf("expected %s, got %s", b.ID, byISBN.ID)
	}

	byTitle, err := s.GetBookByTitleAuthor(ctx, "Dune", "Herbert")
	if err != nil {
		t.Fatalf("get by title/author: %v", err)
	}
	if byTitle.ID != b.ID {
		t.Errorf("expected %s, got %s", b.ID, byTitle.ID)
	}

	if _, err := s.GetBookByTitleAuthor(ctx, "Dune", "Someone Else"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for wrong author, got %v", err)
	}
}

func TestSetBookCover(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")

	cover := &domain.CoverInfo{
		Path:     "/covers/" + b.ID + ".jpg",
		Format:   "jpeg",
		Size:     12345,
		BlurHash: "LEHV6nWB2yk8pyo0adR*.7kCMdnj",
	}
	if err := s.SetBookCover(ctx, b.ID, cover); err != nil {
		t.Fatalf("set cover: %v", err)
	}

	got, err := s.GetBook(ctx, b.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Cover == nil {
		t.Fatal("expected cover to be set")
	}
	if got.Cover.Path != cover.Path || got.Cover.BlurHash != cover.BlurHash {
		t.Errorf("unexpected cover: %+v", got.Cover)
	}

	if err := s.SetBookCover(ctx, "book-missing", cover); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBookTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := seedBook(t, s, "Dune", "Herbert", "")
	ch1 := seedChapter(t, s, b.ID, "Ch1")
	ch2 := seedChapter(t, s, b.ID, "Ch2")

	seedHighlight(t, s, ch1.ID, "Fear is the mind-killer", "key-1")
	deleted := seedHighlight(t, s, ch1.ID, "I must not fear", "key-2")
	seedHighlight(t, s, ch2.ID, "The sleeper must awaken", "key-3")

	if err := s.SoftDeleteHighlight(ctx, deleted.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	tree, err := s.GetBookTree(ctx, b.ID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(tree.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(tree.Chapters))
	}
	// Tombstoned highlight must not appear in the display tree.
	if len(tree.Chapters[0].Highlights) != 1 {
		t.Errorf("expected 1 active highlight in Ch1, got %d", len(tree.Chapters[0].Highlights))
	}
	if len(tree.Chapters[1].Highlights) != 1 {
		t.Errorf("expected 1 highlight in Ch2, got %d", len(tree.Chapters[1].Highlights))
	}
}

func TestListBooksPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C", "D", "E"} {
		seedBook(t, s, title, "Author", "")
	}

	page1, err := s.ListBooks(ctx, store.PaginationParams{Limit: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1.Items) != 2 || !page1.HasMore {
		t.Fatalf("expected 2 items with more, got %d (hasMore=%v)", len(page1.Items), page1.HasMore)
	}

	seen := map[string]bool{}
	for _, b := range page1.Items {
		seen[b.ID] = true
	}

	cursor := page1.NextCursor
	total := len(page1.Items)
	for cursor != "" {
		page, err := s.ListBooks(ctx, store.PaginationParams{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("list next page: %v", err)
		}
		for _, b := range page.Items {
			if seen[b.ID] {
				t.Errorf("book %s returned twice", b.ID)
			}
			seen[b.ID] = true
		}
		total += len(page.Items)
		cursor = page.NextCursor
	}

	if total != 5 {
		t.Errorf("expected 5 books across pages, got %d", total)
	}

	n, err := s.CountBooks(ctx)
	if err != nil {
		t.Fatalf("count books: %v", err)
	}
	if n != 5 {
		t.Errorf("expected count 5, got %d", n)
	}
}
