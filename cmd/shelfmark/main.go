// Package main provides the Shelfmark catalog command line interface.
//
// It plans a catalog page for the given filter and prints the bookmarks
// and facets, the same assembly a front end would render.
//
// Usage:
//
//	shelfmark                          # unfiltered catalog, first page
//	shelfmark -tags 2,10 -page 3       # bookmarks carrying tags 2 and 10
//	shelfmark -untagged                # bookmarks with no tags
//	shelfmark -signed-in -visibility private
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/di"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/filter"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

var (
	tags       = flag.String("tags", "", "Comma-separated tag ids to filter by")
	untagged   = flag.Bool("untagged", false, "Only bookmarks with no tags")
	visibility = flag.String("visibility", "", "Only one visibility level (public, private, secret)")
	page       = flag.Int("page", 0, "Page number")
	signedIn   = flag.Bool("signed-in", false, "Browse with full clearance instead of as a guest")
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	catalog := do.MustInvoke[*service.CatalogService](injector)

	viewer := domain.Guest()
	if *signedIn {
		viewer = domain.Viewer{SignedIn: true, Clearance: domain.VisibilitySecret}
	}

	params := filter.Params{
		Tags:       *tags,
		Untagged:   *untagged,
		Visibility: *visibility,
		Page:       *page,
	}

	ctx := context.Background()
	if err := run(ctx, catalog, viewer, params); err != nil {
		log.Error("Catalog query failed", "error", err)
		os.Exit(1)
	}

	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}

// run plans pages until the filter settles on its canonical form, following
// at most a few redirects the way a browser would.
func run(ctx context.Context, catalog *service.CatalogService, viewer domain.Viewer, params filter.Params) error {
	for i := 0; i < 4; i++ {
		page, redirect, err := catalog.Plan(ctx, viewer, params)
		if err != nil {
			return err
		}
		if redirect != nil {
			params = filter.Params{
				Tags:       redirect.Filter.TagsParam(),
				Untagged:   redirect.Filter.Untagged,
				Visibility: visibilityParam(redirect.Filter),
				Page:       redirect.Page,
			}
			fmt.Printf("-> redirected to %s\n", describeParams(params))
			continue
		}
		render(page)
		return nil
	}
	return fmt.Errorf("redirect loop for %s", describeParams(params))
}

func render(page *service.CatalogPage) {
	if len(page.SelectedTags) > 0 {
		fmt.Printf("Tagged: %v\n", page.SelectedTags)
	}
	fmt.Printf("Page %d of %d (%d bookmarks)\n\n", page.Page, page.PageCount, page.Total)

	for _, b := range page.Bookmarks {
		fmt.Printf("  [%d] %s  %s\n", b.ID, b.Title, b.URI)
		if tagsString := b.TagsString(); tagsString != "" {
			fmt.Printf("      tags: %s\n", tagsString)
		}
	}
	fmt.Println()

	for _, f := range page.Facets {
		marker := " "
		if f.IsSelected() {
			marker = "*"
		}
		fmt.Printf("  %s %-16s %4d  %s\n", marker, f.Label(), f.Count(), f.Description())
	}
}

func visibilityParam(f filter.Filter) string {
	if f.Visibility == nil {
		return ""
	}
	return f.Visibility.String()
}

func describeParams(p filter.Params) string {
	s := "/"
	if p.Tags != "" {
		s += "tags/" + p.Tags
	} else if p.Untagged {
		s += "untagged"
	}
	sep := "?"
	if p.Visibility != "" {
		s += sep + "visibility=" + p.Visibility
		sep = "&"
	}
	if p.Page > 1 {
		s += sep + fmt.Sprintf("page=%d", p.Page)
	}
	return s
}
