package filter

import (
	"fmt"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// Labels for the synthetic facets. Tag facets use the tag's display name.
const (
	UntaggedLabel = "∅"
	PublicLabel   = "🔓"
	PrivateLabel  = "🔒"
	SecretLabel   = "🔐"
)

// A Facet is one refinement link on a catalog page: a label, the number of
// bookmarks the refined filter would match, whether it is part of the
// current filter, and the toggle that selects or deselects it.
type Facet interface {
	Label() string
	Count() int
	IsSelected() bool
	Toggle() Toggle
	// Description is a short human title for the toggle link.
	Description() string
}

// TagFacet refines the catalog by one tag. MaxTags caps how many tags a
// filter may combine; a toggle that would exceed it degrades to ToggleNone.
type TagFacet struct {
	Tag     domain.Tag
	Matches int
	Current Filter
	MaxTags int
}

func (f TagFacet) Label() string    { return f.Tag.Name }
func (f TagFacet) Count() int       { return f.Matches }
func (f TagFacet) IsSelected() bool { return f.Current.HasTag(f.Tag.ID) }

func (f TagFacet) Toggle() Toggle {
	if f.IsSelected() {
		next := f.Current.WithoutTag(f.Tag.ID)
		if !next.HasTags() {
			return Toggle{Kind: ToggleAll, Filter: next}
		}
		return Toggle{Kind: ToggleRemove, Filter: next}
	}

	next := f.Current.WithTag(f.Tag.ID)
	switch {
	case len(next.TagIDs) > f.MaxTags:
		return Toggle{Kind: ToggleNone, Filter: Filter{}}
	case len(next.TagIDs) > 1:
		return Toggle{Kind: ToggleAdd, Filter: next}
	default:
		return Toggle{Kind: ToggleNew, Filter: next}
	}
}

func (f TagFacet) Description() string {
	switch f.Toggle().Kind {
	case ToggleRemove:
		return fmt.Sprintf("Remove tag %q from search", f.Tag.Name)
	case ToggleAll, ToggleNone:
		return "All bookmarks"
	case ToggleAdd:
		return fmt.Sprintf("Add tag %q to search", f.Tag.Name)
	default:
		return fmt.Sprintf("Search by tag %q", f.Tag.Name)
	}
}

// UntaggedFacet restricts the catalog to bookmarks with no tags.
type UntaggedFacet struct {
	Matches int
	Current Filter
}

func (f UntaggedFacet) Label() string    { return UntaggedLabel }
func (f UntaggedFacet) Count() int       { return f.Matches }
func (f UntaggedFacet) IsSelected() bool { return f.Current.Untagged }

func (f UntaggedFacet) Toggle() Toggle {
	if f.IsSelected() {
		return Toggle{Kind: ToggleAll, Filter: Filter{Visibility: f.Current.Visibility}}
	}
	return Toggle{Kind: ToggleUntagged, Filter: Filter{Untagged: true, Visibility: f.Current.Visibility}}
}

func (f UntaggedFacet) Description() string {
	if f.IsSelected() {
		return "All bookmarks"
	}
	return "Untagged bookmarks"
}

// VisibilityFacet restricts the catalog to bookmarks at exactly one
// visibility level. Deselecting keeps the rest of the filter intact.
type VisibilityFacet struct {
	Level   domain.Visibility
	Matches int
	Current Filter
}

func (f VisibilityFacet) Label() string {
	switch f.Level {
	case domain.VisibilityPublic:
		return PublicLabel
	case domain.VisibilityPrivate:
		return PrivateLabel
	default:
		return SecretLabel
	}
}

func (f VisibilityFacet) Count() int { return f.Matches }

func (f VisibilityFacet) IsSelected() bool {
	return f.Current.Visibility != nil && *f.Current.Visibility == f.Level
}

func (f VisibilityFacet) Toggle() Toggle {
	next := Filter{TagIDs: f.Current.TagIDs, Untagged: f.Current.Untagged}
	if f.IsSelected() {
		return Toggle{Kind: ToggleAnyVisibility, Filter: next}
	}

	level := f.Level
	next.Visibility = &level
	switch level {
	case domain.VisibilityPublic:
		return Toggle{Kind: TogglePublic, Filter: next}
	case domain.VisibilityPrivate:
		return Toggle{Kind: TogglePrivate, Filter: next}
	default:
		return Toggle{Kind: ToggleSecret, Filter: next}
	}
}

// Description titles the deselect link by what it brings back: the level's
// counterpart when a tag or untagged filter stays in place, the whole
// catalog otherwise.
func (f VisibilityFacet) Description() string {
	if !f.IsSelected() {
		return fmt.Sprintf("%s bookmarks only", titleCase(f.Level.String()))
	}
	if !f.Current.HasTags() && !f.Current.Untagged {
		return "All bookmarks"
	}
	switch f.Level {
	case domain.VisibilityPublic:
		return "Include private bookmarks"
	case domain.VisibilityPrivate:
		return "Include public bookmarks"
	default:
		return "Include bookmarks of any visibility"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
