package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia-server/internal/reconcile"
)

func TestBookService_UpdateBook(t *testing.T) {
	st := setupTestStore(t)
	svc := NewBookService(st, testLogger())
	ctx := context.Background()

	engine := reconcile.NewEngine(st, testLogger())
	result, err := engine.Reconcile(ctx, testBatch(""))
	require.NoError(t, err)

	book, err := svc.UpdateBook(ctx, result.BookID, "Dune", "Frank Herbert", "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, "9780441013593", book.ISBN)
}

func TestBookService_UpdateBookRejectsBadInput(t *testing.T) {
	st := setupTestStore(t)
	svc := NewBookService(st, testLogger())
	ctx := context.Background()

	engine := reconcile.NewEngine(st, testLogger())
	result, err := engine.Reconcile(ctx, testBatch(""))
	require.NoError(t, err)

	_, err = svc.UpdateBook(ctx, result.BookID, "   ", "Herbert", "")
	assert.Error(t, err)

	_, err = svc.UpdateBook(ctx, result.BookID, "Dune", "Herbert", "not-an-isbn")
	assert.Error(t, err)
}

func TestBookService_RenameChapter(t *testing.T) {
	st := setupTestStore(t)
	svc := NewBookService(st, testLogger())
	ctx := context.Background()

	engine := reconcile.NewEngine(st, testLogger())
	result, err := engine.Reconcile(ctx, testBatch(""))
	require.NoError(t, err)

	chapters, err := st.ListChaptersForBook(ctx, result.BookID)
	require.NoError(t, err)
	require.Len(t, chapters, 1)

	ch, err := svc.RenameChapter(ctx, chapters[0].ID, "  Chapter One  ")
	require.NoError(t, err)
	assert.Equal(t, "Chapter One", ch.Name)

	_, err = svc.RenameChapter(ctx, chapters[0].ID, "   ")
	assert.Error(t, err)
}
