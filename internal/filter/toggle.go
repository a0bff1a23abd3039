package filter

import "fmt"

// ToggleKind classifies what following a facet link does to the filter.
type ToggleKind int

const (
	// ToggleNew starts a tag search from an unfiltered catalog.
	ToggleNew ToggleKind = iota
	// ToggleAdd narrows an existing tag search by one more tag.
	ToggleAdd
	// ToggleRemove drops one tag from a multi-tag search.
	ToggleRemove
	// ToggleAll clears the tag or untagged restriction entirely.
	ToggleAll
	// ToggleNone leads back to the unfiltered catalog because the tag
	// limit would be exceeded; it clears every restriction.
	ToggleNone
	// ToggleUntagged restricts the catalog to bookmarks with no tags.
	ToggleUntagged
	// TogglePublic, TogglePrivate and ToggleSecret restrict to one
	// visibility level.
	TogglePublic
	TogglePrivate
	ToggleSecret
	// ToggleAnyVisibility drops the visibility restriction.
	ToggleAnyVisibility
)

func (k ToggleKind) String() string {
	switch k {
	case ToggleNew:
		return "new"
	case ToggleAdd:
		return "add"
	case ToggleRemove:
		return "remove"
	case ToggleAll:
		return "all"
	case ToggleNone:
		return "none"
	case ToggleUntagged:
		return "untagged"
	case TogglePublic:
		return "public"
	case TogglePrivate:
		return "private"
	case ToggleSecret:
		return "secret"
	case ToggleAnyVisibility:
		return "any_visibility"
	default:
		return fmt.Sprintf("ToggleKind(%d)", int(k))
	}
}

// Toggle is the resolved effect of following a facet link: the filter the
// link leads to and how that transition is classified.
type Toggle struct {
	Kind   ToggleKind
	Filter Filter
}
