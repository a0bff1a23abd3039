package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// makeBookmark inserts a bookmark with the given tags and returns it.
func makeBookmark(t *testing.T, s *Store, title, uri string, visibility domain.Visibility, tagsString string) *domain.Bookmark {
	t.Helper()
	ctx := context.Background()

	b := &domain.Bookmark{Title: title, URI: uri, Visibility: visibility}
	if err := s.CreateBookmark(ctx, b, domain.ParseTagsString(tagsString)); err != nil {
		t.Fatalf("create bookmark %q: %v", title, err)
	}
	return b
}

// allScope matches every bookmark in the store.
func allScope() store.Scope {
	return store.Scope{MaxVisibility: domain.VisibilitySecret}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountBookmarks(ctx, allScope())
	if err != nil {
		t.Fatalf("count bookmarks: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty store, got %d bookmarks", count)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	got, err := parseTime(formatTime(ts))
	if err != nil {
		t.Fatalf("parse formatted time: %v", err)
	}
	if !got.Equal(ts) {
		t.Errorf("round trip changed time: got %v, want %v", got, ts)
	}
}

// Stored timestamps must order as text the same way they order as times,
// including within the same second.
func TestTimeTextOrdering(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Nanosecond),
		base.Add(100 * time.Millisecond),
		base.Add(time.Second),
	}
	for i := 1; i < len(times); i++ {
		a, b := formatTime(times[i-1]), formatTime(times[i])
		if a >= b {
			t.Errorf("formatted %v >= %v but times are ascending", a, b)
		}
	}
}
