package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/reconcile"
	"github.com/marginalia-app/marginalia-server/internal/store"
	"github.com/marginalia-app/marginalia-server/internal/store/sqlite"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingFetcher captures FetchForBook calls for assertions.
type recordingFetcher struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newRecordingFetcher() *recordingFetcher {
	return &recordingFetcher{done: make(chan struct{}, 1)}
}

func (f *recordingFetcher) FetchForBook(_ context.Context, bookID, isbn string) error {
	f.mu.Lock()
	f.calls = append(f.calls, bookID+"/"+isbn)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *recordingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testBatch(isbn string) *domain.UploadBatch {
	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	return &domain.UploadBatch{
		Book: domain.UploadBook{Title: "Dune", Author: "Herbert", ISBN: isbn},
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

func TestUploadService_Upload(t *testing.T) {
	st := setupTestStore(t)
	logger := testLogger()
	engine := reconcile.NewEngine(st, logger)
	svc := NewUploadService(engine, nil, nil, logger)

	result, err := svc.Upload(context.Background(), testBatch(""))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)

	again, err := svc.Upload(context.Background(), testBatch(""))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.Skipped)
}

func TestUploadService_DispatchesCoverFetch(t *testing.T) {
	st := setupTestStore(t)
	logger := testLogger()
	engine := reconcile.NewEngine(st, logger)
	fetcher := newRecordingFetcher()
	svc := NewUploadService(engine, fetcher, nil, logger)

	result, err := svc.Upload(context.Background(), testBatch("9780441013593"))
	require.NoError(t, err)
	require.NotNil(t, result.CoverFetch)

	select {
	case <-fetcher.done:
	case <-time.After(5 * time.Second):
		t.Fatal("cover fetch was never dispatched")
	}
	assert.Equal(t, 1, fetcher.callCount())
}

func TestUploadService_NoCoverFetchWithoutISBN(t *testing.T) {
	st := setupTestStore(t)
	logger := testLogger()
	engine := reconcile.NewEngine(st, logger)
	fetcher := newRecordingFetcher()
	svc := NewUploadService(engine, fetcher, nil, logger)

	result, err := svc.Upload(context.Background(), testBatch(""))
	require.NoError(t, err)
	assert.Nil(t, result.CoverFetch)

	select {
	case <-fetcher.done:
		t.Fatal("cover fetch dispatched for a book without an ISBN")
	case <-time.After(100 * time.Millisecond):
	}
}
