// Package covers provides cover image downloading and processing.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/media/images"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	// downloadTimeout is the maximum time for a cover download.
	downloadTimeout = 30 * time.Second
)

// ErrNotFound indicates the source has no cover for the requested book.
var ErrNotFound = errors.New("cover not found")

// DownloadResult describes a stored cover.
type DownloadResult struct {
	Path     string // Filesystem path of the stored cover
	Format   string // Decoded image format ("jpeg", "png", ...)
	Size     int64  // File size in bytes
	BlurHash string // Placeholder hash, empty if computation failed
}

// Downloader fetches cover images and stores them on disk.
type Downloader struct {
	httpClient *http.Client
	storage    *images.Storage
	logger     *slog.Logger
}

// NewDownloader creates a new cover downloader.
func NewDownloader(storage *images.Storage, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		storage: storage,
		logger:  logger,
	}
}

// Download fetches a cover from the URL and stores it for the given book ID.
// Returns ErrNotFound when the source has no image at that URL.
func (d *Downloader) Download(ctx context.Context, bookID, url string) (*DownloadResult, error) {
	if url == "" {
		return nil, errors.New("empty cover URL")
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	// Read with size limit.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	format, err := images.DecodeFormat(data)
	if err != nil {
		return nil, fmt.Errorf("not a usable image: %w", err)
	}

	if err := d.storage.Save(bookID, data); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	result := &DownloadResult{
		Path:   d.storage.Path(bookID),
		Format: format,
		Size:   int64(len(data)),
	}

	// Placeholder hash is best effort; a cover without one still renders.
	hash, err := images.ComputeBlurHash(data)
	if err != nil {
		d.logger.Warn("failed to compute blurhash",
			"book_id", bookID,
			"error", err,
		)
	} else {
		result.BlurHash = hash
	}

	d.logger.Info("downloaded cover",
		"book_id", bookID,
		"format", result.Format,
		"size", result.Size,
	)

	return result, nil
}
