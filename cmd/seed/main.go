// Package main provides a tool to seed the catalog with demo bookmarks.
//
// This creates a spread of tagged, untagged, public, private, and secret
// bookmarks to exercise catalog filtering and facet counts.
//
// Usage:
//
//	DATABASE_PATH=~/Shelfmark/catalog.db go run ./cmd/seed
//	go run ./cmd/seed --wipe  # Delete existing bookmarks first
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

var wipe = flag.Bool("wipe", false, "Delete existing bookmarks before seeding")

type seedBookmark struct {
	title      string
	uri        string
	visibility string
	tags       string
}

var seedBookmarks = []seedBookmark{
	{"Go standard library", "https://pkg.go.dev/std", "public", "go stdlib reference"},
	{"SQLite query planner", "https://sqlite.org/optoverview.html", "public", "sqlite databases"},
	{"Effective Go", "https://go.dev/doc/effective_go", "public", "go reference"},
	{"Tailscale blog", "https://tailscale.com/blog", "public", "networking go"},
	{"Wireguard paper", "https://www.wireguard.com/papers/wireguard.pdf", "public", "networking papers"},
	{"Personal finance sheet", "https://docs.example.com/finance", "private", "finance"},
	{"Team retro notes", "https://notes.example.com/retro", "private", "work"},
	{"Job application draft", "https://docs.example.com/application", "secret", "work"},
	{"Raft visualization", "https://thesecretlivesofdata.com/raft/", "public", "databases papers"},
	{"Plain text accounting", "https://plaintextaccounting.org", "public", ""},
	{"Read it later pile", "https://example.com/someday", "private", ""},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Shelfmark/catalog.db")
	}

	fmt.Printf("Opening catalog at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{}
	cfg.Catalog.MaxTags = 100
	cfg.Catalog.PageSize = 50

	bookmarks := service.NewBookmarkService(s, validation.New(), cfg.Catalog, logger)

	if *wipe {
		wipeBookmarks(ctx, s, bookmarks)
	}

	created := 0
	for _, sb := range seedBookmarks {
		_, err := bookmarks.Create(ctx, service.BookmarkInput{
			Title:      sb.title,
			URI:        sb.uri,
			Visibility: sb.visibility,
			TagsString: sb.tags,
		})
		if err != nil {
			fmt.Printf("  skip %q: %v\n", sb.title, err)
			continue
		}
		created++
	}

	fmt.Printf("Seeded %d bookmarks\n", created)
}

func wipeBookmarks(ctx context.Context, s *sqlite.Store, bookmarks *service.BookmarkService) {
	existing, err := s.ListBookmarks(ctx, allScope(), 0, 0)
	if err != nil {
		log.Fatalf("Failed to list bookmarks: %v", err)
	}
	for _, b := range existing {
		if err := bookmarks.Delete(ctx, b.ID); err != nil {
			log.Fatalf("Failed to delete bookmark %d: %v", b.ID, err)
		}
	}
	fmt.Printf("Wiped %d bookmarks\n", len(existing))
}

// allScope matches every bookmark regardless of visibility.
func allScope() store.Scope {
	return store.Scope{MaxVisibility: domain.VisibilitySecret}
}
