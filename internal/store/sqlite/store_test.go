package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedBook creates a book directly for tests that need one.
func seedBook(t *testing.T, s *Store, title, author, isbn string) *domain.Book {
	t.Helper()
	now := time.Now().UTC()
	b := &domain.Book{
		ID:        id.MustGenerate("book"),
		Title:     title,
		Author:    author,
		ISBN:      isbn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateBook(context.Background(), b); err != nil {
		t.Fatalf("create book: %v", err)
	}
	return b
}

// seedChapter creates a chapter for tests that need one.
func seedChapter(t *testing.T, s *Store, bookID, name string) *domain.Chapter {
	t.Helper()
	now := time.Now().UTC()
	ch := &domain.Chapter{
		ID:        id.MustGenerate("ch"),
		BookID:    bookID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertChapter(context.Background(), s.db, ch); err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	return ch
}

// seedHighlight creates an active highlight for tests that need one.
func seedHighlight(t *testing.T, s *Store, chapterID, text, key string) *domain.Highlight {
	t.Helper()
	now := time.Now().UTC()
	h := &domain.Highlight{
		ID:        id.MustGenerate("hl"),
		ChapterID: chapterID,
		Text:      text,
		DedupKey:  key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertHighlight(context.Background(), s.db, h); err != nil {
		t.Fatalf("create highlight: %v", err)
	}
	return h
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{"books", "chapters", "highlights", "tags", "highlight_tags", "flashcards"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("close re-opened store: %v", err)
	}
}
