package domain

import "fmt"

// Visibility is the access level of a bookmark.
// Levels are ordered: public < private < secret.
type Visibility int

const (
	VisibilityPublic  Visibility = 0
	VisibilityPrivate Visibility = 1
	VisibilitySecret  Visibility = 2
)

// Visibilities lists all levels in ascending order of restriction.
var Visibilities = []Visibility{VisibilityPublic, VisibilityPrivate, VisibilitySecret}

// String returns the lowercase name of the visibility level.
func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityPrivate:
		return "private"
	case VisibilitySecret:
		return "secret"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// Valid reports whether v is one of the enumerated levels.
func (v Visibility) Valid() bool {
	return v >= VisibilityPublic && v <= VisibilitySecret
}

// ParseVisibility converts a string to a Visibility level.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "public":
		return VisibilityPublic, nil
	case "private":
		return VisibilityPrivate, nil
	case "secret":
		return VisibilitySecret, nil
	default:
		return 0, fmt.Errorf("unknown visibility %q", s)
	}
}

// Viewer is the per-request identity used for visibility scoping.
// Clearance is the most restrictive level the viewer may see; each
// level also grants access to every level below it.
type Viewer struct {
	SignedIn  bool
	Clearance Visibility
}

// Guest returns the viewer for unauthenticated requests.
// Guests see public bookmarks only.
func Guest() Viewer {
	return Viewer{SignedIn: false, Clearance: VisibilityPublic}
}

// CanSee reports whether the viewer may see bookmarks at the given level.
func (v Viewer) CanSee(level Visibility) bool {
	return level <= v.Clearance
}
