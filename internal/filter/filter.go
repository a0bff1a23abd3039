// Package filter models catalog filters: the tag/untagged/visibility
// restrictions a viewer can apply, their one canonical string form, and
// the facet toggles that move between filters.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// Filter is a parsed catalog filter. TagIDs carry AND semantics: a bookmark
// matches only when it has every listed tag. A non-empty tag list and
// Untagged are mutually exclusive; ParseParams rejects the combination.
type Filter struct {
	TagIDs     []int64
	Untagged   bool
	Visibility *domain.Visibility
}

// Params are the raw request parameters a filter is parsed from.
// Page zero means the parameter was absent.
type Params struct {
	Tags       string // comma-separated tag ids, "" for none
	Untagged   bool
	Visibility string // "", "public", "private", or "secret"
	Page       int
}

// IsZero reports whether the filter has no restrictions at all.
func (f Filter) IsZero() bool {
	return len(f.TagIDs) == 0 && !f.Untagged && f.Visibility == nil
}

// HasTags reports whether the filter requires any tags.
func (f Filter) HasTags() bool {
	return len(f.TagIDs) > 0
}

// HasTag reports whether the filter requires the given tag.
func (f Filter) HasTag(id int64) bool {
	for _, t := range f.TagIDs {
		if t == id {
			return true
		}
	}
	return false
}

// WithTag returns a copy of the filter that also requires the given tag.
// Any untagged restriction is dropped; the two cannot combine.
func (f Filter) WithTag(id int64) Filter {
	if f.HasTag(id) {
		return f
	}
	tagIDs := make([]int64, 0, len(f.TagIDs)+1)
	tagIDs = append(tagIDs, f.TagIDs...)
	tagIDs = append(tagIDs, id)
	return Filter{TagIDs: tagIDs, Visibility: f.Visibility}
}

// WithoutTag returns a copy of the filter that no longer requires the tag.
func (f Filter) WithoutTag(id int64) Filter {
	var tagIDs []int64
	for _, t := range f.TagIDs {
		if t != id {
			tagIDs = append(tagIDs, t)
		}
	}
	return Filter{TagIDs: tagIDs, Untagged: f.Untagged, Visibility: f.Visibility}
}

// TagsParam returns the canonical tag parameter for the filter: the ids in
// natural sort order, comma-joined. Empty when no tags are required.
func (f Filter) TagsParam() string {
	return CanonicalTagIDs(f.TagIDs)
}

// ParseTagIDs parses a raw comma-separated tag id parameter. Duplicates are
// collapsed. The result keeps the parameter's order; compare TagsParam
// against the raw input to detect non-canonical requests.
func ParseTagIDs(param string) ([]int64, error) {
	if param == "" {
		return nil, nil
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, part := range strings.Split(param, ",") {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tag id %q", part)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CanonicalTagIDs returns the canonical comma-joined form of a tag id set:
// natural sort order, so id 10 comes after id 2, not between 1 and 2.
func CanonicalTagIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	SortNatural(parts)
	return strings.Join(parts, ",")
}

// Redirect tells the transport layer to redirect to the canonical URL for
// a filter instead of rendering. Page zero means the page parameter is
// omitted (the first page never carries one).
type Redirect struct {
	Filter Filter
	Page   int
}
