package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// bookmarkColumns is the ordered list of columns selected in bookmark queries.
// Must match the scan order in scanBookmark.
const bookmarkColumns = `id, title, uri, visibility, created_at, updated_at`

// scanBookmark scans a sql.Row (or sql.Rows via its Scan method) into a domain.Bookmark.
// Tags are left empty; the caller attaches them.
func scanBookmark(scanner interface{ Scan(dest ...any) error }) (*domain.Bookmark, error) {
	var b domain.Bookmark

	var (
		visibility int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.URI,
		&visibility,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Visibility = domain.Visibility(visibility)

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// scopeConditions builds the WHERE clause for a catalog scope against a
// bookmarks table aliased b. The tag filter is a fold of one EXISTS
// constraint per required tag, so a bookmark must carry every one of them.
// withLevel controls whether an exact-level restriction is applied; facet
// count queries drop it to count the levels the viewer could switch to.
func scopeConditions(scope store.Scope, withLevel bool) (string, []any) {
	conds := []string{"b.visibility <= ?"}
	args := []any{int(scope.MaxVisibility)}

	if withLevel && scope.Visibility != nil {
		conds = append(conds, "b.visibility = ?")
		args = append(args, int(*scope.Visibility))
	}

	for _, tagID := range scope.TagIDs {
		conds = append(conds,
			"EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = ?)")
		args = append(args, tagID)
	}

	if scope.Untagged {
		conds = append(conds,
			"NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id)")
	}

	return strings.Join(conds, " AND "), args
}

// CreateBookmark inserts a new bookmark with its tag set (key to display
// name) in one transaction, so a failed reconciliation leaves no row behind.
// Assigns the bookmark's ID, timestamps, and final tags. Returns
// store.ErrAlreadyExists on a duplicate URI.
func (s *Store) CreateBookmark(ctx context.Context, b *domain.Bookmark, desired map[string]string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookmarks (title, uri, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.Title,
		b.URI,
		int(b.Visibility),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("uri has already been bookmarked")
		}
		return fmt.Errorf("insert bookmark: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("bookmark insert id: %w", err)
	}

	tags, err := reconcileTagsTx(ctx, tx, id, desired)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Tags = tags
	return nil
}

// GetBookmark retrieves a bookmark by ID with its tags attached.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id)

	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Tags, err = s.GetTagsForBookmark(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookmarkByURI retrieves a bookmark by its URI with its tags attached.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetBookmarkByURI(ctx context.Context, uri string) (*domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE uri = ?`, uri)

	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Tags, err = s.GetTagsForBookmark(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBookmark rewrites a bookmark's title, URI, and visibility and
// reconciles its tag set, all in one transaction: either the whole save
// lands or none of it does. Returns store.ErrNotFound if the bookmark does
// not exist and store.ErrAlreadyExists when the new URI collides with
// another bookmark.
func (s *Store) UpdateBookmark(ctx context.Context, b *domain.Bookmark, desired map[string]string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bookmarks SET title = ?, uri = ?, visibility = ?, updated_at = ?
		WHERE id = ?`,
		b.Title,
		b.URI,
		int(b.Visibility),
		formatTime(now),
		b.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("uri has already been bookmarked")
		}
		return fmt.Errorf("update bookmark: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	tags, err := reconcileTagsTx(ctx, tx, b.ID, desired)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	b.UpdatedAt = now
	b.Tags = tags
	return nil
}

// DeleteBookmark removes a bookmark, detaching all its tags and deleting
// any that are left orphaned, in a single transaction.
func (s *Store) DeleteBookmark(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := reconcileTagsTx(ctx, tx, id, nil); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

// CountBookmarks returns the number of bookmarks matching the scope.
func (s *Store) CountBookmarks(ctx context.Context, scope store.Scope) (int, error) {
	where, args := scopeConditions(scope, true)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks b WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return count, nil
}

// ListBookmarks returns the bookmarks matching the scope, ordered by
// created_at descending with ascending id as the tie-break, with tags
// attached. limit <= 0 means no limit.
func (s *Store) ListBookmarks(ctx context.Context, scope store.Scope, limit, offset int) ([]*domain.Bookmark, error) {
	where, args := scopeConditions(scope, true)

	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks b WHERE ` + where +
		` ORDER BY b.created_at DESC, b.id ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*domain.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if err := s.attachTags(ctx, bookmarks); err != nil {
		return nil, err
	}

	if bookmarks == nil {
		bookmarks = []*domain.Bookmark{}
	}
	return bookmarks, nil
}

// attachTags loads the tags for a page of bookmarks in one query.
func (s *Store) attachTags(ctx context.Context, bookmarks []*domain.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Bookmark, len(bookmarks))
	placeholders := make([]string, len(bookmarks))
	args := make([]any, len(bookmarks))
	for i, b := range bookmarks {
		byID[b.ID] = b
		placeholders[i] = "?"
		args[i] = b.ID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.id, t.key, t.name, t.created_at, t.updated_at
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY t.key ASC`, args...)
	if err != nil {
		return fmt.Errorf("query page tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookmarkID int64
			t          domain.Tag
			createdAt  string
			updatedAt  string
		)
		if err := rows.Scan(&bookmarkID, &t.ID, &t.Key, &t.Name, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scan page tag: %w", err)
		}
		t.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return err
		}
		t.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return err
		}
		if b, ok := byID[bookmarkID]; ok {
			b.Tags = append(b.Tags, t)
		}
	}
	return rows.Err()
}

// VisibilityCounts returns the bookmark count per visibility level within
// the scope, ignoring any exact-level restriction, so the counts describe
// the base set the level filter narrows.
func (s *Store) VisibilityCounts(ctx context.Context, scope store.Scope) (map[domain.Visibility]int, error) {
	where, args := scopeConditions(scope, false)

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.visibility, COUNT(*)
		FROM bookmarks b
		WHERE `+where+`
		GROUP BY b.visibility`, args...)
	if err != nil {
		return nil, fmt.Errorf("query visibility counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Visibility]int)
	for rows.Next() {
		var (
			level int
			count int
		)
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan visibility count: %w", err)
		}
		counts[domain.Visibility(level)] = count
	}
	return counts, rows.Err()
}

// UntaggedCount returns the number of bookmarks in the scope with no tags.
// With a tag filter in the scope this is always zero.
func (s *Store) UntaggedCount(ctx context.Context, scope store.Scope) (int, error) {
	scope.Untagged = true
	return s.CountBookmarks(ctx, scope)
}

// ReconcileTags applies the desired tag set (key to display name) to a
// bookmark in one transaction: kept tags get their shared display name
// updated when the casing changed, missing tags are looked up by key or
// created with the submitted casing, removed tags are detached and deleted
// when orphaned. Returns the bookmark's final tag set ordered by key.
//
// A concurrent insert of the same new key surfaces as store.ErrConflict;
// the service retries the write once before giving up. Two reconciliations that each
// drop the last reference to a tag can both see zero references and both
// issue the orphan delete; the delete is idempotent, so this is harmless
// unless a third writer re-attaches the tag at the same instant. That
// remaining race is accepted: closing it would need a second independent
// transaction outside this write path.
func (s *Store) ReconcileTags(ctx context.Context, bookmarkID int64, desired map[string]string) ([]domain.Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tags, err := reconcileTagsTx(ctx, tx, bookmarkID, desired)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reconcile: %w", err)
	}

	s.logger.Debug("reconciled tags", "bookmark_id", bookmarkID, "tags", len(tags))
	return tags, nil
}

// reconcileTagsTx is the transactional body of ReconcileTags, shared with
// the bookmark create, update, and delete transactions (deletion reconciles
// to the empty set first).
func reconcileTagsTx(ctx context.Context, tx *sql.Tx, bookmarkID int64, desired map[string]string) ([]domain.Tag, error) {
	current, err := currentTagsTx(ctx, tx, bookmarkID)
	if err != nil {
		return nil, err
	}

	var (
		final     []domain.Tag
		removeIDs []int64
	)

	currentKeys := make(map[string]bool, len(current))
	for _, t := range current {
		currentKeys[t.Key] = true

		name, keep := desired[t.Key]
		if !keep {
			removeIDs = append(removeIDs, t.ID)
			continue
		}

		// Update the shared display name in place when the casing
		// changed. Last writer wins across all bookmarks.
		if t.Name != name {
			if err := updateTagNameTx(ctx, tx, t.ID, name); err != nil {
				return nil, err
			}
			t.Name = name
		}
		final = append(final, t)
	}

	now := formatTime(time.Now().UTC())
	for key, name := range desired {
		if currentKeys[key] {
			continue
		}

		t, err := findOrCreateTagTx(ctx, tx, key, name)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			bookmarkID, t.ID, now,
		); err != nil {
			return nil, fmt.Errorf("insert bookmark_tag: %w", err)
		}
		final = append(final, *t)
	}

	if len(removeIDs) > 0 {
		placeholders := strings.Repeat("?,", len(removeIDs))
		placeholders = placeholders[:len(placeholders)-1]

		args := make([]any, 0, len(removeIDs)+1)
		args = append(args, bookmarkID)
		for _, id := range removeIDs {
			args = append(args, id)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM bookmark_tags
			WHERE bookmark_id = ? AND tag_id IN (`+placeholders+`)`,
			args...,
		); err != nil {
			return nil, fmt.Errorf("delete bookmark_tags: %w", err)
		}

		if err := deleteOrphanTagsTx(ctx, tx, removeIDs); err != nil {
			return nil, err
		}
	}

	sortTagsByKey(final)
	return final, nil
}

// currentTagsTx returns the bookmark's tags inside the transaction.
func currentTagsTx(ctx context.Context, tx *sql.Tx, bookmarkID int64) ([]domain.Tag, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT t.id, t.key, t.name, t.created_at, t.updated_at
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE bt.bookmark_id = ?`, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("query current tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan current tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// sortTagsByKey orders tags by their join key.
func sortTagsByKey(tags []domain.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Key < tags[j].Key
	})
}
