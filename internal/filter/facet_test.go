package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func tagFacet(id int64, name string, current Filter) TagFacet {
	return TagFacet{
		Tag:     domain.Tag{ID: id, Key: domain.MakeTagKey(name), Name: name},
		Matches: 1,
		Current: current,
		MaxTags: 100,
	}
}

func TestTagFacetStartsSearch(t *testing.T) {
	f := tagFacet(7, "Go", Filter{})

	assert.False(t, f.IsSelected())
	toggle := f.Toggle()
	assert.Equal(t, ToggleNew, toggle.Kind)
	assert.Equal(t, []int64{7}, toggle.Filter.TagIDs)
}

func TestTagFacetNarrowsSearch(t *testing.T) {
	f := tagFacet(7, "Go", Filter{TagIDs: []int64{3}})

	toggle := f.Toggle()
	assert.Equal(t, ToggleAdd, toggle.Kind)
	assert.Equal(t, []int64{3, 7}, toggle.Filter.TagIDs)
}

func TestTagFacetRemovesFromSearch(t *testing.T) {
	f := tagFacet(7, "Go", Filter{TagIDs: []int64{3, 7}})

	assert.True(t, f.IsSelected())
	toggle := f.Toggle()
	assert.Equal(t, ToggleRemove, toggle.Kind)
	assert.Equal(t, []int64{3}, toggle.Filter.TagIDs)
}

// Deselecting the only tag leads back to the whole catalog.
func TestTagFacetLastRemovalClearsSearch(t *testing.T) {
	f := tagFacet(7, "Go", Filter{TagIDs: []int64{7}})

	toggle := f.Toggle()
	assert.Equal(t, ToggleAll, toggle.Kind)
	assert.True(t, toggle.Filter.IsZero())
}

// At the tag limit, the add link degrades to a link to the unfiltered
// catalog rather than an over-limit filter.
func TestTagFacetDegradesAtLimit(t *testing.T) {
	current := Filter{}
	for id := int64(1); id <= 3; id++ {
		current = current.WithTag(id)
	}
	f := tagFacet(99, "overflow", current)
	f.MaxTags = 3

	toggle := f.Toggle()
	assert.Equal(t, ToggleNone, toggle.Kind)
	assert.True(t, toggle.Filter.IsZero())
}

func TestTagFacetKeepsVisibility(t *testing.T) {
	private := domain.VisibilityPrivate
	f := tagFacet(7, "Go", Filter{Visibility: &private})

	toggle := f.Toggle()
	assert.Equal(t, ToggleNew, toggle.Kind)
	assert.Equal(t, &private, toggle.Filter.Visibility)
}

func TestUntaggedFacetToggle(t *testing.T) {
	f := UntaggedFacet{Matches: 4, Current: Filter{}}

	assert.Equal(t, UntaggedLabel, f.Label())
	assert.False(t, f.IsSelected())

	toggle := f.Toggle()
	assert.Equal(t, ToggleUntagged, toggle.Kind)
	assert.True(t, toggle.Filter.Untagged)

	selected := UntaggedFacet{Matches: 4, Current: toggle.Filter}
	assert.True(t, selected.IsSelected())
	back := selected.Toggle()
	assert.Equal(t, ToggleAll, back.Kind)
	assert.True(t, back.Filter.IsZero())
}

func TestVisibilityFacetToggle(t *testing.T) {
	current := Filter{TagIDs: []int64{3}}
	f := VisibilityFacet{Level: domain.VisibilityPrivate, Matches: 2, Current: current}

	assert.Equal(t, PrivateLabel, f.Label())
	assert.False(t, f.IsSelected())

	toggle := f.Toggle()
	assert.Equal(t, TogglePrivate, toggle.Kind)
	assert.Equal(t, []int64{3}, toggle.Filter.TagIDs, "tag restriction survives")
	assert.Equal(t, domain.VisibilityPrivate, *toggle.Filter.Visibility)

	selected := VisibilityFacet{Level: domain.VisibilityPrivate, Matches: 2, Current: toggle.Filter}
	assert.True(t, selected.IsSelected())
	back := selected.Toggle()
	assert.Equal(t, ToggleAnyVisibility, back.Kind)
	assert.Nil(t, back.Filter.Visibility)
	assert.Equal(t, []int64{3}, back.Filter.TagIDs)
}

func TestFacetDescriptions(t *testing.T) {
	assert.Equal(t, `Search by tag "Go"`, tagFacet(7, "Go", Filter{}).Description())
	assert.Equal(t, `Add tag "Go" to search`, tagFacet(7, "Go", Filter{TagIDs: []int64{3}}).Description())
	assert.Equal(t, `Remove tag "Go" from search`, tagFacet(7, "Go", Filter{TagIDs: []int64{3, 7}}).Description())
	assert.Equal(t, "All bookmarks", tagFacet(7, "Go", Filter{TagIDs: []int64{7}}).Description())
	assert.Equal(t, "Untagged bookmarks", UntaggedFacet{Current: Filter{}}.Description())
	assert.Equal(t, "Private bookmarks only",
		VisibilityFacet{Level: domain.VisibilityPrivate, Current: Filter{}}.Description())
}

// The deselect link for a visibility level names what deselecting brings
// back: the counterpart level while a tag or untagged filter remains, the
// whole catalog otherwise.
func TestVisibilityFacetDeselectDescriptions(t *testing.T) {
	public := domain.VisibilityPublic
	private := domain.VisibilityPrivate
	secret := domain.VisibilitySecret

	assert.Equal(t, "All bookmarks",
		VisibilityFacet{Level: public, Current: Filter{Visibility: &public}}.Description())
	assert.Equal(t, "Include private bookmarks",
		VisibilityFacet{Level: public, Current: Filter{TagIDs: []int64{3}, Visibility: &public}}.Description())
	assert.Equal(t, "Include public bookmarks",
		VisibilityFacet{Level: private, Current: Filter{Untagged: true, Visibility: &private}}.Description())
	assert.Equal(t, "Include bookmarks of any visibility",
		VisibilityFacet{Level: secret, Current: Filter{TagIDs: []int64{3}, Visibility: &secret}}.Description())
}
