// Package images provides cover image processing and storage.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages cover image filesystem operations.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a new Storage instance rooted at basePath
// (e.g., ~/Marginalia/data/covers). The directory is created if missing.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// Save stores image data for a book.
// Filename format: {bookID}.jpg.
func (s *Storage) Save(bookID string, imgData []byte) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}
	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(bookID), imgData, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

// Get retrieves image data for a book.
func (s *Storage) Get(bookID string) ([]byte, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(bookID))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists reports whether a cover file is stored for the book.
func (s *Storage) Exists(bookID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(bookID))
	return err == nil
}

// Delete removes a book's cover file. Missing files are not an error.
func (s *Storage) Delete(bookID string) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(bookID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Path returns the filesystem path for a book's cover.
func (s *Storage) Path(bookID string) string {
	return filepath.Join(s.basePath, bookID+".jpg")
}
