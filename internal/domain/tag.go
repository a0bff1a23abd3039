package domain

import (
	"regexp"
	"strings"
	"time"
)

// Tag is a shared catalog tag. Key is the stable join key (always the
// lowercase form of Name); Name is whichever casing was most recently
// written by any bookmark carrying the tag.
type Tag struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// tagNamePattern matches valid tag names. Whitespace never appears in a
// name because submissions are split on whitespace first.
var tagNamePattern = regexp.MustCompile(`^[A-Za-z0-9_+&.-]+$`)

// MakeTagKey returns the join key for a tag name.
func MakeTagKey(name string) string {
	return strings.ToLower(name)
}

// ValidTagName reports whether name is an acceptable tag name.
func ValidTagName(name string) bool {
	return tagNamePattern.MatchString(name)
}

// TagCount pairs a tag with its bookmark count within some query scope.
type TagCount struct {
	Tag
	Count int `json:"count"`
}
