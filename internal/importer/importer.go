// Package importer watches a drop directory for exported highlight files
// and feeds them through the upload pipeline. Users point their e-reader
// sync tool (or a plain file copy) at the directory; anything that lands
// there as a .json export gets imported automatically.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/service"
)

// settleDelay is how long a file must stop changing before it is read.
// Sync tools write exports incrementally; importing mid-write would
// parse a truncated file.
const settleDelay = 2 * time.Second

// suffixes appended to processed files so they are not re-imported.
const (
	importedSuffix = ".imported"
	failedSuffix   = ".failed"
)

// Importer watches one directory for highlight export files.
type Importer struct {
	watchPath string
	uploads   *service.UploadService
	logger    *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates an importer for the given drop directory. The directory
// is created if it does not exist.
func New(watchPath string, uploads *service.UploadService, logger *slog.Logger) (*Importer, error) {
	if err := os.MkdirAll(watchPath, 0o755); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(watchPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", watchPath, err)
	}

	return &Importer{
		watchPath: watchPath,
		uploads:   uploads,
		logger:    logger,
		watcher:   watcher,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Start imports any exports already sitting in the directory, then
// blocks processing filesystem events until the context is cancelled.
func (i *Importer) Start(ctx context.Context) error {
	i.logger.Info("importer watching drop directory", "path", i.watchPath)

	i.importExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-i.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && isExportFile(event.Name) {
				i.scheduleImport(ctx, event.Name)
			}

		case err, ok := <-i.watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn("importer watch error", "error", err)
		}
	}
}

// Stop releases the filesystem watcher and cancels pending imports.
func (i *Importer) Stop() error {
	i.mu.Lock()
	for path, timer := range i.pending {
		timer.Stop()
		delete(i.pending, path)
	}
	i.mu.Unlock()

	return i.watcher.Close()
}

// importExisting processes exports left behind from a previous run.
func (i *Importer) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(i.watchPath)
	if err != nil {
		i.logger.Warn("failed to read drop directory", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isExportFile(entry.Name()) {
			continue
		}
		i.importFile(ctx, filepath.Join(i.watchPath, entry.Name()))
	}
}

// scheduleImport debounces a file event: each write resets the timer so
// the file is only read once it stops changing.
func (i *Importer) scheduleImport(ctx context.Context, path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if timer, ok := i.pending[path]; ok {
		timer.Stop()
	}
	i.pending[path] = time.AfterFunc(settleDelay, func() {
		i.mu.Lock()
		delete(i.pending, path)
		i.mu.Unlock()

		i.importFile(ctx, path)
	})
}

// importFile parses one export and runs it through the upload service.
// The file is renamed afterwards so it is never imported twice; a
// parse or reconcile failure keeps the file around under a .failed
// name for inspection.
func (i *Importer) importFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		i.logger.Warn("failed to read export", "path", path, "error", err)
		return
	}

	var batch domain.UploadBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		i.logger.Warn("export is not a valid highlight file",
			"path", path,
			"error", err,
		)
		i.markProcessed(path, failedSuffix)
		return
	}

	result, err := i.uploads.Upload(ctx, &batch)
	if err != nil {
		i.logger.Warn("export import failed",
			"path", path,
			"error", err,
		)
		i.markProcessed(path, failedSuffix)
		return
	}

	i.logger.Info("export imported",
		"path", path,
		"book_id", result.BookID,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	i.markProcessed(path, importedSuffix)
}

// markProcessed renames the file so the watcher ignores it from now on.
func (i *Importer) markProcessed(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		i.logger.Warn("failed to rename processed export", "path", path, "error", err)
	}
}

// isExportFile reports whether the path looks like an unprocessed export.
func isExportFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
