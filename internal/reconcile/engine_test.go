package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
	"github.com/marginalia-app/marginalia-server/internal/store/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	st, err := sqlite.Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewEngine(st, logger), st
}

func duneBatch() *domain.UploadBatch {
	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	return &domain.UploadBatch{
		Book: domain.UploadBook{Title: "Dune", Author: "Herbert"},
		Chapters: []domain.UploadChapter{
			{
				Name: "Ch1",
				Highlights: []domain.UploadHighlight{
					{Text: "Fear is the mind-killer", SourceTime: &ts},
				},
			},
		},
	}
}

// End-to-end example: same batch twice -> {1,0} then {0,1}, one row stored.
func TestReconcileIdempotent(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Reconcile(ctx, duneBatch())
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if first.Created != 1 || first.Skipped != 0 {
		t.Errorf("first upload: created=%d skipped=%d, want 1/0", first.Created, first.Skipped)
	}

	second, err := e.Reconcile(ctx, duneBatch())
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Created != 0 || second.Skipped != 1 {
		t.Errorf("second upload: created=%d skipped=%d, want 0/1", second.Created, second.Skipped)
	}
	if second.BookID != first.BookID {
		t.Errorf("book identity not stable: %s vs %s", first.BookID, second.BookID)
	}

	n, err := st.CountHighlights(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 highlight row, got %d", n)
	}
}

func TestReconcileNormalizedTextMatches(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Reconcile(ctx, duneBatch()); err != nil {
		t.Fatalf("first upload: %v", err)
	}

	// The device re-exports the same highlight with different formatting.
	messy := duneBatch()
	messy.Chapters[0].Highlights[0].Text = "  Fear is\r\nthe  mind-killer "
	res, err := e.Reconcile(ctx, messy)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if res.Created != 0 || res.Skipped != 1 {
		t.Errorf("reformatted duplicate not matched: created=%d skipped=%d", res.Created, res.Skipped)
	}

	n, _ := st.CountHighlights(ctx)
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestReconcileTombstonePermanence(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Reconcile(ctx, duneBatch())
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	book, err := st.GetBookTree(ctx, first.BookID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	hl := book.Chapters[0].Highlights[0]
	if err := st.SoftDeleteHighlight(ctx, hl.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// Device re-sends the full snapshot, deleted highlight included.
	res, err := e.Reconcile(ctx, duneBatch())
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if res.Created != 0 || res.Restored != 0 {
		t.Errorf("tombstoned highlight resurrected: %+v", res)
	}
	if res.Skipped != 1 {
		t.Errorf("expected 1 skip, got %d", res.Skipped)
	}

	// Storage still shows exactly one row with that key, tombstoned.
	rows, err := st.ListHighlightsForChapter(ctx, hl.ChapterID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Deleted() {
		t.Error("expected the row to stay tombstoned")
	}
}

func TestReconcileChapterScoping(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	batch := &domain.UploadBatch{
		Book: domain.UploadBook{Title: "Dune", Author: "Herbert"},
		Chapters: []domain.UploadChapter{
			{Name: "Ch1", Highlights: []domain.UploadHighlight{{Text: "Fear is the mind-killer", SourceTime: &ts}}},
			{Name: "Ch2", Highlights: []domain.UploadHighlight{{Text: "Fear is the mind-killer", SourceTime: &ts}}},
		},
	}

	res, err := e.Reconcile(ctx, batch)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 {
		t.Errorf("identical text in two chapters must both be new: %+v", res)
	}

	n, _ := st.CountHighlights(ctx)
	if n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestReconcileDuplicateWithinBatch(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	batch := duneBatch()
	batch.Chapters[0].Highlights = append(batch.Chapters[0].Highlights,
		domain.UploadHighlight{Text: "Fear is the mind-killer", SourceTime: &ts})

	res, err := e.Reconcile(ctx, batch)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Created != 1 || res.Skipped != 1 {
		t.Errorf("in-batch duplicate not caught: %+v", res)
	}

	n, _ := st.CountHighlights(ctx)
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestReconcileUnknownChapter(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	batch := duneBatch()
	batch.Chapters[0].Name = ""

	res, err := e.Reconcile(ctx, batch)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	chapters, err := st.ListChaptersForBook(ctx, res.BookID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != domain.UnknownChapterName {
		t.Errorf("expected synthetic unknown chapter, got %+v", chapters)
	}
}

func TestReconcileValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Reconcile(ctx, nil); err == nil {
		t.Error("expected error for nil batch")
	}

	noTitle := duneBatch()
	noTitle.Book.Title = "   "
	if _, err := e.Reconcile(ctx, noTitle); err == nil {
		t.Error("expected error for missing title")
	}

	noText := duneBatch()
	noText.Chapters[0].Highlights[0].Text = " \r\n "
	if _, err := e.Reconcile(ctx, noText); err == nil {
		t.Error("expected error for empty highlight text")
	}
}

func TestReconcileCoverFetchHook(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	// No ISBN: no hook.
	res, err := e.Reconcile(ctx, duneBatch())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.CoverFetch != nil {
		t.Errorf("expected no cover fetch without ISBN, got %+v", res.CoverFetch)
	}

	// With ISBN and no cover yet: hook requested, post-commit.
	withISBN := duneBatch()
	withISBN.Book.Title = "Hyperion"
	withISBN.Book.Author = "Simmons"
	withISBN.Book.ISBN = "9780553283686"
	res, err = e.Reconcile(ctx, withISBN)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.CoverFetch == nil {
		t.Fatal("expected cover fetch hook")
	}
	if res.CoverFetch.BookID != res.BookID || res.CoverFetch.ISBN != "9780553283686" {
		t.Errorf("unexpected hook: %+v", res.CoverFetch)
	}
}

// failingTx wraps a real UploadTx and fails the Nth highlight insert,
// simulating a persistence failure mid-batch.
type failingTx struct {
	store.UploadTx
	failAt  int
	inserts int
}

var errInduced = errors.New("induced persistence failure")

func (f *failingTx) CreateHighlight(ctx context.Context, h *domain.Highlight) error {
	f.inserts++
	if f.inserts == f.failAt {
		return errInduced
	}
	return f.UploadTx.CreateHighlight(ctx, h)
}

// failingStore passes through to a real store but hands out failing transactions.
type failingStore struct {
	store.Store
	failAt int
}

func (f *failingStore) BeginUpload(ctx context.Context) (store.UploadTx, error) {
	tx, err := f.Store.BeginUpload(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{UploadTx: tx, failAt: f.failAt}, nil
}

func TestReconcilePartialFailureAtomicity(t *testing.T) {
	_, st := newTestEngine(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Fail after the 3rd of 5 inserts.
	e := NewEngine(&failingStore{Store: st, failAt: 4}, logger)

	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	batch := &domain.UploadBatch{
		Book: domain.UploadBook{Title: "Dune", Author: "Herbert"},
		Chapters: []domain.UploadChapter{{
			Name: "Ch1",
			Highlights: []domain.UploadHighlight{
				{Text: "one", SourceTime: &ts},
				{Text: "two", SourceTime: &ts},
				{Text: "three", SourceTime: &ts},
				{Text: "four", SourceTime: &ts},
				{Text: "five", SourceTime: &ts},
			},
		}},
	}

	if _, err := e.Reconcile(ctx, batch); !errors.Is(err, errInduced) {
		t.Fatalf("expected induced failure, got %v", err)
	}

	// Nothing from the upload survives: no book, no chapter, no highlights.
	if _, err := st.GetBookByTitleAuthor(ctx, "Dune", "Herbert"); err != store.ErrNotFound {
		t.Errorf("expected no book after rollback, got %v", err)
	}
	n, err := st.CountHighlights(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 highlights after rollback, got %d", n)
	}

	// The same batch fully applies on retry against a healthy engine.
	healthy := NewEngine(st, logger)
	res, err := healthy.Reconcile(ctx, batch)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Created != 5 {
		t.Errorf("expected 5 created on retry, got %d", res.Created)
	}
}

func TestReconcileConcurrentIdenticalUploads(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.Reconcile(ctx, duneBatch())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	// Exactly one hierarchy, counts summing to one create total.
	if results[0].BookID != results[1].BookID {
		t.Errorf("two book rows created: %s vs %s", results[0].BookID, results[1].BookID)
	}
	if got := results[0].Created + results[1].Created; got != 1 {
		t.Errorf("expected 1 create across both uploads, got %d", got)
	}

	chapters, err := st.ListChaptersForBook(ctx, results[0].BookID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 1 {
		t.Errorf("expected 1 chapter, got %d", len(chapters))
	}
	n, _ := st.CountHighlights(ctx)
	if n != 1 {
		t.Errorf("expected 1 highlight, got %d", n)
	}
}
