package domain

import (
	"sort"
	"strings"
	"time"
)

// Field length limits for bookmarks.
const (
	MaxTitleLength = 255
	MaxURILength   = 4096
)

// Bookmark is a stored URI with a title, a visibility level, and a set of
// shared tags. The bookmark owns its membership links to tags; the tags
// themselves are shared across the catalog.
type Bookmark struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title" validate:"required,max=255"`
	URI        string     `json:"uri" validate:"required,max=4096,uri"`
	Visibility Visibility `json:"visibility"`
	Tags       []Tag      `json:"tags,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TagsString returns the external serialization of the bookmark's tags:
// display names sorted case-insensitively, joined by single spaces.
func (b *Bookmark) TagsString() string {
	names := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		names[i] = t.Name
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return strings.Join(names, " ")
}

// HasTag reports whether the bookmark carries a tag with the given key.
func (b *Bookmark) HasTag(key string) bool {
	for _, t := range b.Tags {
		if t.Key == key {
			return true
		}
	}
	return false
}

// ParseTagsString splits a submitted tag list on whitespace and returns the
// desired set as a map of key to display name. When two words collide on the
// same key, the casing of the last occurrence wins.
func ParseTagsString(tagsString string) map[string]string {
	desired := make(map[string]string)
	for _, name := range strings.Fields(tagsString) {
		desired[MakeTagKey(name)] = name
	}
	return desired
}
