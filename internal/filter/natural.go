package filter

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// naturalCollator returns a collator that compares embedded numeric runs
// by value instead of byte order. Collators are not safe for concurrent
// use, so callers get a fresh one.
func naturalCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

// SortNatural sorts strings in natural order: "2" before "10".
func SortNatural(ss []string) {
	naturalCollator().SortStrings(ss)
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	return naturalCollator().CompareString(a, b) < 0
}
