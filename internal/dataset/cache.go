package dataset

import (
	"sync"
	"time"

	"github.com/spf13/afero"

	"sgjobs/internal/storage"
	"sgjobs/internal/table"
)

// Cache holds loaded tables keyed by path. An entry is reused only while the
// file's modification time and size are unchanged.
type Cache struct {
	fs   afero.Fs
	opts Options

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	table   *table.Table
	stats   Stats
}

// NewCache creates an empty cache that loads with opts.
func NewCache(fs afero.Fs, opts Options) *Cache {
	return &Cache{
		fs:      fs,
		opts:    opts,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the table at path, loading it when it is not cached or the file
// has changed. Callers get their own copy.
func (c *Cache) Get(path string) (*table.Table, Stats, error) {
	info, err := storage.StatFile(c.fs, path)
	if err != nil {
		c.Invalidate(path)
		return nil, Stats{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.table.Clone(), e.stats, nil
	}

	t, stats, err := Load(c.fs, path, c.opts)
	if err != nil {
		return nil, Stats{}, err
	}

	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), table: t, stats: stats}

	return t.Clone(), stats, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, path)
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
