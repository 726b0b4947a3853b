package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, slug, color, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		color     sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Slug,
		&color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Color = color.String

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag into the database.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, slug, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Slug,
		nullString(t.Color),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	return mapInsertErr(err)
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagBySlug retrieves a tag by its slug.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags ordered by slug.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY slug ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}

	return tags, nil
}

// FindOrCreateTagBySlug finds an existing tag by slug or creates a new one.
// Returns (tag, created, error) where created is true if a new tag was made.
func (s *Store) FindOrCreateTagBySlug(ctx context.Context, slug string) (*domain.Tag, bool, error) {
	// Try to find existing tag first.
	existing, err := s.GetTagBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	// Tag doesn't exist, create it.
	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		ID:        tagID,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if err == store.ErrAlreadyExists {
			// Race condition: another goroutine created it.
			existing, err := s.GetTagBySlug(ctx, slug)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// DeleteTag removes a tag and its highlight associations.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddTagToHighlight attaches a tag to a highlight. Idempotent.
func (s *Store) AddTagToHighlight(ctx context.Context, highlightID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO highlight_tags (highlight_id, tag_id, created_at)
		VALUES (?, ?, ?)`,
		highlightID,
		tagID,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("insert highlight_tag: %w", err)
	}
	return nil
}

// RemoveTagFromHighlight detaches a tag from a highlight. Idempotent.
func (s *Store) RemoveTagFromHighlight(ctx context.Context, highlightID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM highlight_tags WHERE highlight_id = ? AND tag_id = ?`,
		highlightID, tagID)
	if err != nil {
		return fmt.Errorf("delete highlight_tag: %w", err)
	}
	return nil
}

// GetTagIDsForHighlight returns the tag IDs attached to a highlight.
func (s *Store) GetTagIDsForHighlight(ctx context.Context, highlightID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id FROM highlight_tags WHERE highlight_id = ?`, highlightID)
	if err != nil {
		return nil, fmt.Errorf("query highlight_tags: %w", err)
	}
	defer rows.Close()

	var tagIDs []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("scan highlight_tag: %w", err)
		}
		tagIDs = append(tagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tagIDs, nil
}

// ListHighlightsForTag returns the active highlights carrying a tag.
func (s *Store) ListHighlightsForTag(ctx context.Context, tagID string) ([]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedHighlightColumns("h")+`
		FROM highlights h
		JOIN highlight_tags ht ON ht.highlight_id = h.id
		WHERE ht.tag_id = ? AND h.deleted_at IS NULL
		ORDER BY h.created_at ASC`, tagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highlights []*domain.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if highlights == nil {
		highlights = []*domain.Highlight{}
	}

	return highlights, nil
}
