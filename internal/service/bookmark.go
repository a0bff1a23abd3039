// Package service provides the business logic layer for the bookmark catalog.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/lock"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// BookmarkService orchestrates bookmark writes: validation, the URI
// uniqueness rule, and tag reconciliation.
type BookmarkService struct {
	store     *sqlite.Store
	validator *validation.Validator
	locks     *lock.KeyedMutex
	cfg       config.CatalogConfig
	logger    *slog.Logger
}

// NewBookmarkService creates a new bookmark service.
func NewBookmarkService(store *sqlite.Store, validator *validation.Validator, cfg config.CatalogConfig, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{
		store:     store,
		validator: validator,
		locks:     lock.NewKeyedMutex(),
		cfg:       cfg,
		logger:    logger,
	}
}

// BookmarkInput is the writable surface of a bookmark. TagsString is the
// whitespace-separated tag list; reconciliation diffs it against the
// bookmark's current tags.
type BookmarkInput struct {
	Title      string
	URI        string
	Visibility string
	TagsString string
}

// Create validates the input and stores the bookmark with its tags in a
// single transaction.
func (s *BookmarkService) Create(ctx context.Context, in BookmarkInput) (*domain.Bookmark, error) {
	visibility, desired, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	// No lock here: the bookmark has no ID until the insert commits, so
	// nothing else can be writing to it yet.
	b := &domain.Bookmark{
		Title:      strings.TrimSpace(in.Title),
		URI:        in.URI,
		Visibility: visibility,
	}
	err = s.saveWithRetry(func() error {
		return s.store.CreateBookmark(ctx, b, desired)
	})
	if err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string][]string{
				"uri": {"has already been bookmarked"},
			})
		}
		return nil, err
	}

	s.logger.Info("bookmark created", "bookmark_id", b.ID, "tags", len(b.Tags))
	return b, nil
}

// Update validates the input and applies it to an existing bookmark,
// reconciling its tags against the submitted tags string. The row change
// and the tag reconciliation commit together or not at all.
func (s *BookmarkService) Update(ctx context.Context, id int64, in BookmarkInput) (*domain.Bookmark, error) {
	visibility, desired, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	b, err := s.store.GetBookmark(ctx, id)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bookmark %d not found", id)
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}

	b.Title = strings.TrimSpace(in.Title)
	b.URI = in.URI
	b.Visibility = visibility
	err = s.saveWithRetry(func() error {
		return s.store.UpdateBookmark(ctx, b, desired)
	})
	if err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string][]string{
				"uri": {"has already been bookmarked"},
			})
		}
		return nil, err
	}

	return b, nil
}

// Delete removes a bookmark. Tags left without any bookmark are garbage
// collected in the same transaction.
func (s *BookmarkService) Delete(ctx context.Context, id int64) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	if err := s.store.DeleteBookmark(ctx, id); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("bookmark %d not found", id)
		}
		return fmt.Errorf("delete bookmark: %w", err)
	}

	s.logger.Info("bookmark deleted", "bookmark_id", id)
	return nil
}

// Get returns a bookmark the viewer is cleared to see. Bookmarks above the
// viewer's clearance are reported as not found, never as forbidden.
func (s *BookmarkService) Get(ctx context.Context, viewer domain.Viewer, id int64) (*domain.Bookmark, error) {
	b, err := s.store.GetBookmark(ctx, id)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bookmark %d not found", id)
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	if !viewer.CanSee(b.Visibility) {
		return nil, domainerrors.NotFoundf("bookmark %d not found", id)
	}
	return b, nil
}

// saveWithRetry runs a bookmark write once more when a concurrent tag
// creation aborted the transaction with store.ErrConflict. The rollback
// leaves no partial state, so the retry starts clean; one retry resolves
// the common case where the other writer has committed.
func (s *BookmarkService) saveWithRetry(save func() error) error {
	err := save()
	if domainerrors.Is(err, store.ErrConflict) {
		s.logger.Warn("tag created concurrently, retrying save")
		err = save()
	}
	if err != nil {
		if domainerrors.Is(err, store.ErrConflict) {
			return domainerrors.Conflict("tags changed concurrently, retry the request")
		}
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}

// validateInput checks the whole input and aggregates every problem into a
// single validation error, so a submission with three bad tags reports all
// three.
func (s *BookmarkService) validateInput(in BookmarkInput) (domain.Visibility, map[string]string, error) {
	details := make(map[string][]string)

	candidate := domain.Bookmark{Title: strings.TrimSpace(in.Title), URI: in.URI}
	for field, msgs := range s.validator.FieldErrors(candidate) {
		details[field] = append(details[field], msgs...)
	}

	if msg := s.blockedSchemeError(in.URI); msg != "" {
		details["uri"] = append(details["uri"], msg)
	}

	visibility := domain.VisibilityPublic
	if in.Visibility != "" {
		v, err := domain.ParseVisibility(in.Visibility)
		if err != nil {
			details["visibility"] = append(details["visibility"], err.Error())
		} else {
			visibility = v
		}
	}

	desired := domain.ParseTagsString(in.TagsString)
	if len(desired) > s.cfg.MaxTags {
		details["tags_string"] = append(details["tags_string"],
			fmt.Sprintf("limit reached (maximum is %d tags)", s.cfg.MaxTags))
	} else {
		for _, name := range sortedTagNames(desired) {
			if !domain.ValidTagName(name) {
				details["tags_string"] = append(details["tags_string"],
					fmt.Sprintf("%q is not a valid tag name", name))
			}
		}
	}

	if len(details) > 0 {
		return 0, nil, domainerrors.ValidationWithDetails("validation failed", details)
	}
	return visibility, desired, nil
}

// blockedSchemeError returns a message when the URI uses a blocked scheme,
// or "" when it is acceptable. Parse failures are left to the uri format
// validation.
func (s *BookmarkService) blockedSchemeError(rawURI string) string {
	u, err := url.Parse(rawURI)
	if err != nil || u.Scheme == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	for _, blocked := range s.cfg.BlockedSchemes {
		if scheme == blocked {
			return fmt.Sprintf("scheme %q is not allowed", scheme)
		}
	}
	return ""
}

func sortedTagNames(desired map[string]string) []string {
	keys := make([]string, 0, len(desired))
	for k := range desired {
		keys = append(keys, k)
	}
	// Deterministic error ordering for multi-tag failures.
	sort.Strings(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = desired[k]
	}
	return names
}
