// Package main inspects a Shelfmark catalog database and prints summary
// statistics: bookmarks per visibility level, tag reference counts, and
// any orphaned tags (which reconciliation should have garbage collected).
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Shelfmark/catalog.db")
	}

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	scope := store.Scope{MaxVisibility: domain.VisibilitySecret}

	fmt.Println("=== Catalog Inspection ===")
	fmt.Println()

	total, err := s.CountBookmarks(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to count bookmarks: %v", err)
	}
	fmt.Printf("Bookmarks: %d\n", total)

	levels, err := s.VisibilityCounts(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to count visibility levels: %v", err)
	}
	for _, level := range domain.Visibilities {
		fmt.Printf("  %-8s %d\n", level, levels[level])
	}

	untagged, err := s.UntaggedCount(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to count untagged bookmarks: %v", err)
	}
	fmt.Printf("  %-8s %d\n", "untagged", untagged)
	fmt.Println()

	tagCounts, err := s.TagCounts(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to count tags: %v", err)
	}
	fmt.Printf("Tags: %d\n", len(tagCounts))
	for _, tc := range tagCounts {
		fmt.Printf("  %-24s %d bookmark(s)\n", tc.Name, tc.Count)
	}
	fmt.Println()

	orphans, err := s.OrphanTagCount(ctx)
	if err != nil {
		log.Fatalf("Failed to count orphan tags: %v", err)
	}
	fmt.Printf("Orphan tags: %d", orphans)
	if orphans > 0 {
		fmt.Print("  (reconciliation should have removed these)")
	}
	fmt.Println()
}
