package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, key, name, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Key,
		&t.Name,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

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

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID int64) (*domain.Tag, error) {
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

// GetTagByKey retrieves a tag by its lowercase join key.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByKey(ctx context.Context, key string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE key = ?`, key)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags ordered by key.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY key ASC`)
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

// GetTagsForBookmark returns all tags attached to a bookmark, ordered by key.
func (s *Store) GetTagsForBookmark(ctx context.Context, bookmarkID int64) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.key, t.name, t.created_at, t.updated_at
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE bt.bookmark_id = ?
		ORDER BY t.key ASC`, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("query bookmark tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark tag: %w", err)
		}
		tags = append(tags, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tags, nil
}

// TagCounts returns every tag appearing on at least one bookmark in the
// scope, with its bookmark count computed within that same scope.
// Results are ordered by key.
func (s *Store) TagCounts(ctx context.Context, scope store.Scope) ([]domain.TagCount, error) {
	where, args := scopeConditions(scope, true)

	query := `
		SELECT t.id, t.key, t.name, t.created_at, t.updated_at, COUNT(*)
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		JOIN bookmarks b ON b.id = bt.bookmark_id
		WHERE ` + where + `
		GROUP BY t.id
		ORDER BY t.key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.TagCount
	for rows.Next() {
		var (
			tc        domain.TagCount
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&tc.ID, &tc.Key, &tc.Name, &createdAt, &updatedAt, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		tc.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		tc.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return counts, nil
}

// OrphanTagCount returns the number of tags with no bookmark references.
// Orphans are deleted during reconciliation, so a non-zero count normally
// indicates an interrupted write.
func (s *Store) OrphanTagCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM tags t
		WHERE NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.tag_id = t.id)`).Scan(&count)
	return count, err
}

// findOrCreateTagTx looks a tag up by key inside tx, creating it with the
// submitted casing when absent. A concurrent insert between the lookup and
// the INSERT surfaces as store.ErrConflict for the caller to retry.
func findOrCreateTagTx(ctx context.Context, tx *sql.Tx, key, name string) (*domain.Tag, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE key = ?`, key)

	t, err := scanTag(row)
	if err == nil {
		// Attach the existing tag without changing its case.
		return t, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tags (key, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		key,
		name,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict.WithMessage(
				fmt.Sprintf("tag %q created concurrently", name)).WithCause(err)
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("tag insert id: %w", err)
	}

	return &domain.Tag{
		ID:        id,
		Key:       key,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// updateTagNameTx rewrites a shared tag's display name. Last writer wins
// globally; every bookmark carrying the tag sees the new casing.
func updateTagNameTx(ctx context.Context, tx *sql.Tx, tagID int64, name string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tags SET name = ?, updated_at = ? WHERE id = ?`,
		name,
		formatTime(time.Now().UTC()),
		tagID,
	)
	if err != nil {
		return fmt.Errorf("update tag name: %w", err)
	}
	return nil
}

// deleteOrphanTagsTx deletes each listed tag that has no bookmark
// references left. Idempotent; tags that regained a reference are kept.
func deleteOrphanTagsTx(ctx context.Context, tx *sql.Tx, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(tagIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(tagIDs))
	for i, id := range tagIDs {
		args[i] = id
	}

	_, err := tx.ExecContext(ctx, `
		DELETE FROM tags
		WHERE id IN (`+placeholders+`)
		AND NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.tag_id = tags.id)`,
		args...)
	if err != nil {
		return fmt.Errorf("delete orphan tags: %w", err)
	}
	return nil
}
