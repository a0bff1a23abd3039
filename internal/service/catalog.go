package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/filter"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
)

// CatalogService plans catalog pages: it parses and validates filter
// parameters, canonicalizes them, and assembles the bookmark list with its
// facets.
type CatalogService struct {
	store  *sqlite.Store
	cfg    config.CatalogConfig
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store *sqlite.Store, cfg config.CatalogConfig, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// CatalogPage is one assembled catalog view: the bookmarks on the page and
// every refinement facet the viewer may follow from here.
type CatalogPage struct {
	Bookmarks []*domain.Bookmark
	Facets    []filter.Facet

	// SelectedTags are the display names of the filter's tags in natural
	// sort order, for the page heading.
	SelectedTags []string

	Filter    filter.Filter
	Page      int
	PageCount int
	Total     int
}

// Plan resolves raw filter parameters into a catalog page. A non-nil
// Redirect means the request was understood but non-canonical or stale,
// and must be re-issued at the returned location; page and redirect are
// never both set.
//
// Canonicalization precedes execution: a redirect decision never depends
// on query results except for the empty-result and past-the-end checks.
func (s *CatalogService) Plan(ctx context.Context, viewer domain.Viewer, params filter.Params) (*CatalogPage, *filter.Redirect, error) {
	f, err := s.parseFilter(viewer, params)
	if err != nil {
		return nil, nil, err
	}

	if canonical := f.TagsParam(); canonical != params.Tags {
		return nil, &filter.Redirect{Filter: f, Page: normalizePage(params.Page)}, nil
	}
	if params.Page < 0 {
		return nil, &filter.Redirect{Filter: f}, nil
	}

	scope := store.Scope{
		MaxVisibility: viewer.Clearance,
		Visibility:    f.Visibility,
		TagIDs:        f.TagIDs,
		Untagged:      f.Untagged,
	}

	total, err := s.store.CountBookmarks(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("count bookmarks: %w", err)
	}

	// A filter that matches nothing has gone stale (tags deleted, the
	// last untagged bookmark tagged). Send the viewer back to the root
	// rather than render an empty page.
	if total == 0 && !f.IsZero() {
		s.logger.Debug("filter matches nothing, redirecting to root",
			"tags", params.Tags, "untagged", f.Untagged)
		return nil, &filter.Redirect{}, nil
	}

	pageCount := (total + s.cfg.PageSize - 1) / s.cfg.PageSize
	if pageCount < 1 {
		pageCount = 1
	}

	page := params.Page
	if page > pageCount {
		return nil, &filter.Redirect{Filter: f, Page: normalizePage(pageCount)}, nil
	}
	if page == 1 {
		// The first page never carries a page parameter.
		return nil, &filter.Redirect{Filter: f}, nil
	}
	if page == 0 {
		page = 1
	}

	bookmarks, err := s.store.ListBookmarks(ctx, scope, s.cfg.PageSize, (page-1)*s.cfg.PageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("list bookmarks: %w", err)
	}

	facets, selected, err := s.buildFacets(ctx, viewer, f, scope)
	if err != nil {
		return nil, nil, err
	}

	return &CatalogPage{
		Bookmarks:    bookmarks,
		Facets:       facets,
		SelectedTags: selected,
		Filter:       f,
		Page:         page,
		PageCount:    pageCount,
		Total:        total,
	}, nil, nil
}

// parseFilter turns raw parameters into a Filter, rejecting combinations
// the catalog does not serve.
func (s *CatalogService) parseFilter(viewer domain.Viewer, params filter.Params) (filter.Filter, error) {
	var f filter.Filter

	ids, err := filter.ParseTagIDs(params.Tags)
	if err != nil {
		return f, domainerrors.FilterInvalid(err.Error())
	}
	if len(ids) > 0 && params.Untagged {
		return f, domainerrors.FilterInvalid("tags and untagged cannot be combined")
	}
	if len(ids) > s.cfg.MaxTags {
		return f, domainerrors.FilterInvalidf("too many tags in filter (maximum is %d tags)", s.cfg.MaxTags)
	}

	f.TagIDs = ids
	f.Untagged = params.Untagged

	if params.Visibility != "" {
		if !viewer.SignedIn {
			return f, domainerrors.FilterInvalid("visibility filtering requires signing in")
		}
		level, err := domain.ParseVisibility(params.Visibility)
		if err != nil {
			return f, domainerrors.FilterInvalid(err.Error())
		}
		if !viewer.CanSee(level) {
			return f, domainerrors.FilterInvalid("visibility filtering requires signing in")
		}
		f.Visibility = &level
	}

	return f, nil
}

// buildFacets assembles the refinement links for the current result set.
//
// Tag facets come from the tag counts within the full scope, so only tags
// that would narrow (or widen, when selected) the current set appear.
// Visibility facets: while a level is selected only that level's facet is
// shown, since every other level has a zero count under the exact-level
// restriction; its toggle drops the restriction. With no level selected
// they appear only when the scoped set spans more than one level, because
// selecting the single present level would not change the results. Guests
// never see them.
func (s *CatalogService) buildFacets(ctx context.Context, viewer domain.Viewer, f filter.Filter, scope store.Scope) ([]filter.Facet, []string, error) {
	tagCounts, err := s.store.TagCounts(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("tag counts: %w", err)
	}

	var facets []filter.Facet
	var selected []string
	for _, tc := range tagCounts {
		facet := filter.TagFacet{Tag: tc.Tag, Matches: tc.Count, Current: f, MaxTags: s.cfg.MaxTags}
		facets = append(facets, facet)
		if facet.IsSelected() {
			selected = append(selected, tc.Name)
		}
	}
	filter.SortNatural(selected)

	untaggedCount, err := s.store.UntaggedCount(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("untagged count: %w", err)
	}
	if untaggedCount > 0 || f.Untagged {
		facets = append(facets, filter.UntaggedFacet{Matches: untaggedCount, Current: f})
	}

	if viewer.SignedIn {
		levelCounts, err := s.store.VisibilityCounts(ctx, scope.WithoutVisibility())
		if err != nil {
			return nil, nil, fmt.Errorf("visibility counts: %w", err)
		}
		switch {
		case f.Visibility != nil:
			facets = append(facets, filter.VisibilityFacet{
				Level:   *f.Visibility,
				Matches: levelCounts[*f.Visibility],
				Current: f,
			})
		case len(levelCounts) > 1:
			for _, level := range domain.Visibilities {
				if !viewer.CanSee(level) {
					continue
				}
				if count := levelCounts[level]; count > 0 {
					facets = append(facets, filter.VisibilityFacet{Level: level, Matches: count, Current: f})
				}
			}
		}
	}

	return facets, selected, nil
}

// normalizePage maps page one to the absent parameter.
func normalizePage(page int) int {
	if page <= 1 {
		return 0
	}
	return page
}
