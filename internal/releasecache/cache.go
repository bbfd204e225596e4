package releasecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"musicscan/internal/discogs"
	"musicscan/internal/logging"
)

// Entry is a cached release and when it was fetched.
type Entry struct {
	Release  discogs.Release `json:"release"`
	CachedAt time.Time       `json:"cached_at"`
}

// Cache provides thread-safe access to the release cache file.
type Cache struct {
	path    string
	ttl     time.Duration
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[int64]Entry
}

// New creates a cache backed by path. Entries older than ttl are ignored on
// lookup; a zero ttl keeps entries forever.
func New(path string, ttl time.Duration, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "releasecache")

	c := &Cache{
		path:    path,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[int64]Entry),
	}
	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load release cache", "releasecache_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "delete the cache file if it is corrupt"),
			logging.String(logging.FieldImpact, "release details will be fetched from Discogs again"))
	}
	return c
}

// Enabled reports whether the cache persists anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.path != ""
}

// Lookup returns a fresh cached release.
func (c *Cache) Lookup(releaseID int64) (discogs.Release, bool) {
	if !c.Enabled() || releaseID <= 0 {
		return discogs.Release{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[releaseID]
	if !ok {
		return discogs.Release{}, false
	}
	if c.ttl > 0 && time.Since(entry.CachedAt) > c.ttl {
		return discogs.Release{}, false
	}
	return entry.Release, true
}

// Store adds or replaces a release and persists the cache.
func (c *Cache) Store(release discogs.Release) error {
	if release.ID <= 0 {
		return errors.New("release id must be positive")
	}
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[release.ID] = Entry{Release: release, CachedAt: time.Now().UTC()}
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached release details",
		logging.Int64("release_id", release.ID),
		logging.String("title", release.Title))
	return nil
}

// Count returns the number of cached releases.
func (c *Cache) Count() int {
	if !c.Enabled() {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range entries {
		if entry.Release.ID > 0 {
			c.entries[entry.Release.ID] = entry
		}
	}

	c.logger.Debug("loaded release cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache via a temp file and rename. Caller holds mu.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Release.ID < entries[j].Release.ID
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
