package releasecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"musicscan/internal/discogs"
)

func TestStoreAndLookupSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "releases.json")
	cache := New(path, 0, nil)

	release := discogs.Release{ID: 249504, Title: "Never Gonna Give You Up", Year: 1987, Country: "UK"}
	if err := cache.Store(release); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	reloaded := New(path, 0, nil)
	got, ok := reloaded.Lookup(249504)
	if !ok {
		t.Fatal("expected release after reload")
	}
	if got.Title != release.Title || got.Year != 1987 {
		t.Fatalf("unexpected release %#v", got)
	}
	if reloaded.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", reloaded.Count())
	}
}

func TestLookupHonoursTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releases.json")
	stale := `[{"release":{"id":5,"title":"Old"},"cached_at":"2001-01-01T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(stale), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	if _, ok := New(path, 24*time.Hour, nil).Lookup(5); ok {
		t.Fatal("expected stale entry to be ignored")
	}
	if _, ok := New(path, 0, nil).Lookup(5); !ok {
		t.Fatal("expected entry without ttl")
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	cache := New("", 0, nil)
	if cache.Enabled() {
		t.Fatal("expected disabled cache")
	}
	if err := cache.Store(discogs.Release{ID: 1}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if _, ok := cache.Lookup(1); ok {
		t.Fatal("disabled cache must not return entries")
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releases.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	cache := New(path, 0, nil)
	if cache.Count() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Count())
	}
	if err := cache.Store(discogs.Release{ID: 2, Title: "Fresh"}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
}

func TestStoreRejectsInvalidID(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "r.json"), 0, nil)
	if err := cache.Store(discogs.Release{}); err == nil {
		t.Fatal("expected error for zero id")
	}
}
