package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/errors"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// Result reports what one upload did.
type Result struct {
	BookID string `json:"book_id"`

	Created int `json:"created"`
	Skipped int `json:"skipped"`
	// Restored is always zero for uploads: tombstoned matches are skipped,
	// never revived. Restoration is a separate explicit user action. The
	// field exists so callers report a uniform shape for both paths.
	Restored int `json:"restored"`

	// CoverFetch is a post-commit side effect for the caller to dispatch
	// after the transaction has committed. Nil when the book already has a
	// cover or the upload carried no ISBN.
	CoverFetch *CoverFetch `json:"-"`
}

// CoverFetch asks for cover art to be fetched for a book. It is produced by
// Reconcile but executed by the caller, strictly after commit, so a failed
// or slow fetch can never roll back or block the upload it came from.
type CoverFetch struct {
	BookID string
	ISBN   string
}

// Engine merges upload batches into the store. One Reconcile call is one
// transaction: it fully commits or has no effect.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(st store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
	}
}

// Reconcile merges one upload batch.
//
// It resolves the book and each chapter (find-or-create), classifies every
// incoming highlight against the chapter's existing rows, inserts the new
// ones, and commits — all inside a single transaction. Duplicates and
// tombstoned matches are counted and skipped without writes.
func (e *Engine) Reconcile(ctx context.Context, batch *domain.UploadBatch) (*Result, error) {
	if err := validateBatch(batch); err != nil {
		return nil, err
	}

	tx, err := e.store.BeginUpload(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upload: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	book, err := e.resolveBook(ctx, tx, batch.Book)
	if err != nil {
		return nil, err
	}

	result := &Result{BookID: book.ID}
	tombstoned := 0

	for _, block := range batch.Chapters {
		ch, err := e.resolveChapter(ctx, tx, book.ID, block.Name)
		if err != nil {
			return nil, err
		}

		existing, err := tx.ListChapterHighlights(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("load highlights for chapter %s: %w", ch.ID, err)
		}
		idx := BuildIndex(existing)

		for _, uh := range block.Highlights {
			key := DedupKey(ch.ID, uh.Text, uh.SourceTime)

			decision, _ := idx.Classify(key)
			switch decision {
			case DecisionDuplicate:
				result.Skipped++
				continue
			case DecisionTombstoned:
				// Terminal, not restorative: the user deleted this
				// highlight and cumulative re-exports don't undo that.
				result.Skipped++
				tombstoned++
				continue
			case DecisionNew:
			}

			h, err := newHighlight(ch.ID, key, uh)
			if err != nil {
				return nil, err
			}
			if err := tx.CreateHighlight(ctx, h); err != nil {
				if err == store.ErrAlreadyExists {
					// A concurrent upload won the race to this key.
					// The row exists, which is all the caller wanted.
					result.Skipped++
					idx.Add(key, "")
					continue
				}
				return nil, fmt.Errorf("insert highlight: %w", err)
			}
			idx.Add(key, h.ID)
			result.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upload: %w", err)
	}

	if book.Cover == nil && book.ISBN != "" {
		result.CoverFetch = &CoverFetch{BookID: book.ID, ISBN: book.ISBN}
	}

	e.logger.Info("upload reconciled",
		"book_id", book.ID,
		"created", result.Created,
		"skipped", result.Skipped,
		"tombstoned", tombstoned,
	)

	return result, nil
}

// resolveBook finds the batch's target book by ISBN first, then by exact
// (title, author), creating it when neither matches. A concurrent creation
// racing ours loses the insert and refetches the winner's row.
func (e *Engine) resolveBook(ctx context.Context, tx store.UploadTx, desc domain.UploadBook) (*domain.Book, error) {
	if desc.ISBN != "" {
		book, err := tx.GetBookByISBN(ctx, desc.ISBN)
		if err == nil {
			return book, nil
		}
		if err != store.ErrNotFound {
			return nil, fmt.Errorf("lookup book by isbn: %w", err)
		}
	}

	book, err := tx.GetBookByTitleAuthor(ctx, desc.Title, desc.Author)
	if err == nil {
		return book, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("lookup book by title/author: %w", err)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book id: %w", err)
	}
	now := time.Now().UTC()
	book = &domain.Book{
		ID:        bookID,
		Title:     desc.Title,
		Author:    desc.Author,
		ISBN:      desc.ISBN,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := tx.CreateBook(ctx, book); err != nil {
		if err == store.ErrAlreadyExists {
			return e.refetchBook(ctx, tx, desc)
		}
		return nil, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

// refetchBook re-queries after losing a creation race.
func (e *Engine) refetchBook(ctx context.Context, tx store.UploadTx, desc domain.UploadBook) (*domain.Book, error) {
	if desc.ISBN != "" {
		book, err := tx.GetBookByISBN(ctx, desc.ISBN)
		if err == nil {
			return book, nil
		}
		if err != store.ErrNotFound {
			return nil, fmt.Errorf("refetch book by isbn: %w", err)
		}
	}
	book, err := tx.GetBookByTitleAuthor(ctx, desc.Title, desc.Author)
	if err != nil {
		return nil, fmt.Errorf("refetch book by title/author: %w", err)
	}
	return book, nil
}

// resolveChapter finds or creates the chapter for one upload block.
// An empty chapter name maps to the synthetic unknown chapter, for sources
// that have no chapter concept.
func (e *Engine) resolveChapter(ctx context.Context, tx store.UploadTx, bookID, name string) (*domain.Chapter, error) {
	name = normalize.HighlightText(name)
	if name == "" {
		name = domain.UnknownChapterName
	}

	ch, err := tx.GetChapterByName(ctx, bookID, name)
	if err == nil {
		return ch, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("lookup chapter: %w", err)
	}

	sortOrder, err := tx.CountChaptersForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	chapterID, err := id.Generate("ch")
	if err != nil {
		return nil, fmt.Errorf("generate chapter id: %w", err)
	}
	now := time.Now().UTC()
	ch = &domain.Chapter{
		ID:        chapterID,
		BookID:    bookID,
		Name:      name,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := tx.CreateChapter(ctx, ch); err != nil {
		if err == store.ErrAlreadyExists {
			// Lost the race; use the winner's row.
			return tx.GetChapterByName(ctx, bookID, name)
		}
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	return ch, nil
}

// newHighlight builds the row for a NEW candidate.
func newHighlight(chapterID, dedupKey string, uh domain.UploadHighlight) (*domain.Highlight, error) {
	highlightID, err := id.Generate("hl")
	if err != nil {
		return nil, fmt.Errorf("generate highlight id: %w", err)
	}
	now := time.Now().UTC()
	return &domain.Highlight{
		ID:         highlightID,
		ChapterID:  chapterID,
		Text:       normalize.HighlightText(uh.Text),
		DedupKey:   dedupKey,
		Note:       uh.Note,
		Page:       uh.Page,
		SourceTime: uh.SourceTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// validateBatch rejects malformed uploads before any transaction is opened.
func validateBatch(batch *domain.UploadBatch) error {
	if batch == nil {
		return errors.Validation("upload batch is required")
	}
	if normalize.HighlightText(batch.Book.Title) == "" {
		return errors.Validation("book title is required")
	}
	for i, block := range batch.Chapters {
		for j, uh := range block.Highlights {
			if normalize.HighlightText(uh.Text) == "" {
				return errors.Validationf("chapter %d highlight %d: text is required", i, j)
			}
		}
	}
	return nil
}
