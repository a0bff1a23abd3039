package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/filter"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

var owner = domain.Viewer{SignedIn: true, Clearance: domain.VisibilitySecret}

// setupCatalogTest creates catalog and bookmark services over one store.
func setupCatalogTest(t *testing.T, cfg config.CatalogConfig) (*CatalogService, *BookmarkService) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalogService(s, cfg, logger), NewBookmarkService(s, validation.New(), cfg, logger)
}

func mustCreate(t *testing.T, svc *BookmarkService, title, uri, visibility, tags string) *domain.Bookmark {
	t.Helper()
	b, err := svc.Create(context.Background(), BookmarkInput{
		Title:      title,
		URI:        uri,
		Visibility: visibility,
		TagsString: tags,
	})
	require.NoError(t, err)
	return b
}

// mustPlan asserts the request renders a page without redirecting.
func mustPlan(t *testing.T, catalog *CatalogService, viewer domain.Viewer, params filter.Params) *CatalogPage {
	t.Helper()
	page, redirect, err := catalog.Plan(context.Background(), viewer, params)
	require.NoError(t, err)
	require.Nil(t, redirect, "unexpected redirect")
	require.NotNil(t, page)
	return page
}

func facetLabels(page *CatalogPage) []string {
	labels := make([]string, len(page.Facets))
	for i, f := range page.Facets {
		labels[i] = f.Label()
	}
	return labels
}

func TestPlanUnfilteredCatalog(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	mustCreate(t, bookmarks, "Public", "https://example.com/pub", "public", "go")
	mustCreate(t, bookmarks, "Private", "https://example.com/priv", "private", "go")

	page := mustPlan(t, catalog, owner, filter.Params{})
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Bookmarks, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.PageCount)
}

func TestPlanGuestSeesOnlyPublic(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	mustCreate(t, bookmarks, "Public", "https://example.com/pub", "public", "go")
	mustCreate(t, bookmarks, "Private", "https://example.com/priv", "private", "go")

	page := mustPlan(t, catalog, domain.Guest(), filter.Params{})
	assert.Equal(t, 1, page.Total)

	// Guests never see visibility facets, and tag counts only cover what
	// they are cleared for.
	assert.NotContains(t, facetLabels(page), filter.PublicLabel)
	assert.NotContains(t, facetLabels(page), filter.PrivateLabel)
	for _, f := range page.Facets {
		if f.Label() == "go" {
			assert.Equal(t, 1, f.Count())
		}
	}
}

func TestPlanFiltersByTags(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	both := mustCreate(t, bookmarks, "Both", "https://example.com/1", "public", "go sqlite")
	mustCreate(t, bookmarks, "Only go", "https://example.com/2", "public", "go")

	goID := both.Tags[0].ID
	sqliteID := both.Tags[1].ID
	params := filter.Params{Tags: filter.CanonicalTagIDs([]int64{goID, sqliteID})}

	page := mustPlan(t, catalog, domain.Guest(), params)
	require.Len(t, page.Bookmarks, 1)
	assert.Equal(t, both.ID, page.Bookmarks[0].ID)
	assert.Equal(t, []string{"go", "sqlite"}, page.SelectedTags)
}

func TestPlanRedirectsNonCanonicalTags(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	b := mustCreate(t, bookmarks, "One", "https://example.com/1", "public", "alpha beta")
	lo, hi := b.Tags[0].ID, b.Tags[1].ID
	if lo > hi {
		lo, hi = hi, lo
	}

	raw := fmt.Sprintf("%d,%d", hi, lo)
	_, redirect, err := catalog.Plan(context.Background(), domain.Guest(), filter.Params{Tags: raw, Page: 3})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.Equal(t, fmt.Sprintf("%d,%d", lo, hi), redirect.Filter.TagsParam())
	assert.Equal(t, 3, redirect.Page, "page survives canonicalization")
}

func TestPlanRedirectsDuplicateTags(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	b := mustCreate(t, bookmarks, "One", "https://example.com/1", "public", "go")
	id := b.Tags[0].ID

	_, redirect, err := catalog.Plan(context.Background(), domain.Guest(),
		filter.Params{Tags: fmt.Sprintf("%d,%d", id, id)})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.Equal(t, fmt.Sprintf("%d", id), redirect.Filter.TagsParam())
}

func TestPlanRejectsInvalidFilters(t *testing.T) {
	catalog, _ := setupCatalogTest(t, testCatalogConfig())
	ctx := context.Background()

	_, _, err := catalog.Plan(ctx, domain.Guest(), filter.Params{Tags: "1,x"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrFilterInvalid))

	_, _, err = catalog.Plan(ctx, domain.Guest(), filter.Params{Tags: "1", Untagged: true})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrFilterInvalid))

	// Guests may not filter by visibility at all, not even public.
	_, _, err = catalog.Plan(ctx, domain.Guest(), filter.Params{Visibility: "public"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrFilterInvalid))

	_, _, err = catalog.Plan(ctx, owner, filter.Params{Visibility: "sneaky"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrFilterInvalid))
}

func TestPlanRejectsOverlongTagFilter(t *testing.T) {
	cfg := testCatalogConfig()
	cfg.MaxTags = 2
	catalog, _ := setupCatalogTest(t, cfg)

	_, _, err := catalog.Plan(context.Background(), domain.Guest(), filter.Params{Tags: "1,2,3"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrFilterInvalid))
}

// A filter that matches nothing redirects to the catalog root instead of
// rendering an empty page.
func TestPlanRedirectsStaleFilterToRoot(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	mustCreate(t, bookmarks, "One", "https://example.com/1", "public", "go")

	_, redirect, err := catalog.Plan(context.Background(), domain.Guest(), filter.Params{Tags: "424242"})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.True(t, redirect.Filter.IsZero())
	assert.Zero(t, redirect.Page)
}

func TestPlanUntagged(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	mustCreate(t, bookmarks, "Tagged", "https://example.com/1", "public", "go")
	bare := mustCreate(t, bookmarks, "Bare", "https://example.com/2", "public", "")

	page := mustPlan(t, catalog, domain.Guest(), filter.Params{Untagged: true})
	require.Len(t, page.Bookmarks, 1)
	assert.Equal(t, bare.ID, page.Bookmarks[0].ID)

	// The untagged facet is present and selected.
	var found bool
	for _, f := range page.Facets {
		if f.Label() == filter.UntaggedLabel {
			found = true
			assert.True(t, f.IsSelected())
			assert.Equal(t, 1, f.Count())
		}
	}
	assert.True(t, found, "untagged facet missing")
}

func TestPlanVisibilityFacetCounts(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())
	for i := 0; i < 3; i++ {
		mustCreate(t, bookmarks, "Public", fmt.Sprintf("https://example.com/pub/%d", i), "public", "")
	}
	for i := 0; i < 2; i++ {
		mustCreate(t, bookmarks, "Private", fmt.Sprintf("https://example.com/priv/%d", i), "private", "")
	}

	// With no level selected, every present level is offered with its
	// scoped count.
	page := mustPlan(t, catalog, owner, filter.Params{})

	counts := make(map[string]int)
	for _, f := range page.Facets {
		counts[f.Label()] = f.Count()
	}
	assert.Equal(t, 3, counts[filter.PublicLabel])
	assert.Equal(t, 2, counts[filter.PrivateLabel])
}

// While a level is selected only its own facet appears; every other level
// has a zero count under the exact-level restriction.
func TestPlanSelectedVisibilityHidesOtherLevels(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())
	mustCreate(t, bookmarks, "Public", "https://example.com/pub", "public", "")
	mustCreate(t, bookmarks, "Private", "https://example.com/priv", "private", "")

	page := mustPlan(t, catalog, owner, filter.Params{Visibility: "public"})
	assert.Equal(t, 1, page.Total)
	assert.NotContains(t, facetLabels(page), filter.PrivateLabel)
	require.Contains(t, facetLabels(page), filter.PublicLabel)
	for _, f := range page.Facets {
		if f.Label() == filter.PublicLabel {
			assert.True(t, f.IsSelected())
			assert.Equal(t, 1, f.Count())
			assert.Equal(t, filter.ToggleAnyVisibility, f.Toggle().Kind)
		}
	}
}

// A selected level can always be deselected, even when it is the only
// level the catalog holds.
func TestPlanSelectedVisibilityFacetAlwaysShown(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())
	for i := 0; i < 3; i++ {
		mustCreate(t, bookmarks, "Private", fmt.Sprintf("https://example.com/priv/%d", i), "private", "")
	}

	page := mustPlan(t, catalog, owner, filter.Params{Visibility: "private"})
	require.Contains(t, facetLabels(page), filter.PrivateLabel)
	for _, f := range page.Facets {
		if f.Label() == filter.PrivateLabel {
			assert.True(t, f.IsSelected())
			assert.Equal(t, 3, f.Count())
			assert.Equal(t, filter.ToggleAnyVisibility, f.Toggle().Kind)
		}
	}
}

// With every bookmark at one level there is nothing to refine, so no
// visibility facets are offered.
func TestPlanVisibilityFacetsNeedTwoLevels(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())

	mustCreate(t, bookmarks, "One", "https://example.com/1", "public", "")
	mustCreate(t, bookmarks, "Two", "https://example.com/2", "public", "")

	page := mustPlan(t, catalog, owner, filter.Params{})
	assert.NotContains(t, facetLabels(page), filter.PublicLabel)
	assert.NotContains(t, facetLabels(page), filter.PrivateLabel)
}

func TestPlanPagination(t *testing.T) {
	cfg := testCatalogConfig()
	cfg.PageSize = 2
	catalog, bookmarks := setupCatalogTest(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustCreate(t, bookmarks, "Bookmark", fmt.Sprintf("https://example.com/%d", i), "public", "")
	}

	page := mustPlan(t, catalog, domain.Guest(), filter.Params{Page: 3})
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Bookmarks, 1)

	// An explicit page=1 is redundant; the canonical URL omits it.
	_, redirect, err := catalog.Plan(ctx, domain.Guest(), filter.Params{Page: 1})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.Zero(t, redirect.Page)

	// Past the end clamps to the last page.
	_, redirect, err = catalog.Plan(ctx, domain.Guest(), filter.Params{Page: 9})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.Equal(t, 3, redirect.Page)

	// A negative page is nonsense; it canonicalizes to the first page.
	_, redirect, err = catalog.Plan(ctx, domain.Guest(), filter.Params{Page: -5})
	require.NoError(t, err)
	require.NotNil(t, redirect)
	assert.Zero(t, redirect.Page)
}

// Facet toggles from a rendered page always lead to canonical filters, so
// following one never bounces through a redirect.
func TestPlanFacetTogglesAreCanonical(t *testing.T) {
	catalog, bookmarks := setupCatalogTest(t, testCatalogConfig())
	ctx := context.Background()

	mustCreate(t, bookmarks, "One", "https://example.com/1", "public", "alpha beta gamma")

	page := mustPlan(t, catalog, domain.Guest(), filter.Params{})
	for _, f := range page.Facets {
		next := f.Toggle().Filter
		params := filter.Params{Tags: next.TagsParam(), Untagged: next.Untagged}

		_, redirect, err := catalog.Plan(ctx, domain.Guest(), params)
		require.NoError(t, err)
		assert.Nil(t, redirect, "toggle for %s led to a redirect", f.Label())
	}
}
