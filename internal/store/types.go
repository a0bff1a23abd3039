package store

import "github.com/shelfmark/shelfmark-server/internal/domain"

// Scope describes the restrictions applied to a catalog query.
// The zero value matches every public bookmark.
type Scope struct {
	// MaxVisibility is the viewer's clearance; bookmarks above it are
	// never matched, whatever else the scope says.
	MaxVisibility domain.Visibility

	// Visibility, when set, restricts the scope to exactly that level.
	Visibility *domain.Visibility

	// TagIDs restricts the scope to bookmarks carrying every listed tag.
	TagIDs []int64

	// Untagged restricts the scope to bookmarks with no tags at all.
	// Mutually exclusive with TagIDs; enforced by the caller.
	Untagged bool
}

// WithVisibility returns a copy of the scope restricted to exactly level.
func (s Scope) WithVisibility(level domain.Visibility) Scope {
	s.Visibility = &level
	return s
}

// WithoutVisibility returns a copy of the scope with any exact-level
// restriction removed. The clearance bound stays.
func (s Scope) WithoutVisibility() Scope {
	s.Visibility = nil
	return s
}
