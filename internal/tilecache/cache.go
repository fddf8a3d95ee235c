// Package tilecache implements the two-tier TileCache (spec.md §3
// "TileCache"): an in-memory LRU in front of plain-file disk spillover,
// grounded on original_source's include/server/cache.hpp and on the
// github.com/hashicorp/golang-lru/v2 usage pattern from
// NERVsystems-osmmcp's route/geocode caches.
package tilecache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// Cache is the shared, process-wide tile store. One LRU covers every
// stylesheet; TileIdentifier already carries the stylesheet name, so it is
// the cache key directly. A single mutex guards both the LRU and the disk
// spillover it triggers on eviction — the original allows disk I/O to
// happen under this lock (spec.md §5 "disk I/O allowed under lock").
type Cache struct {
	mu sync.Mutex

	lru      *lru.Cache[tileid.TileIdentifier, []byte]
	diskPath string
	keepZoom uint8
	logger   *slog.Logger
}

// New creates a Cache holding up to capacity tiles in memory. Tiles
// evicted from memory are written to diskPath only when their zoom is at
// or below keepZoom (spec.md §6 cache_keep_tile_zoom); eviction of tiles
// above that zoom is silent, matching original_source's Cache::drop.
func New(capacity int, diskPath string, keepZoom uint8, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{diskPath: diskPath, keepZoom: keepZoom, logger: logger}

	l, err := lru.NewWithEvict[tileid.TileIdentifier, []byte](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("tilecache: %w", err)
	}
	c.lru = l
	return c, nil
}

// onEvict runs with mu already held (golang-lru invokes the callback
// synchronously from Add/Remove).
func (c *Cache) onEvict(key tileid.TileIdentifier, value []byte) {
	if c.diskPath == "" || int(key.Z) > int(c.keepZoom) {
		c.logger.Debug("tile evicted without disk spill", "tile", key.String(), "zoom_gate", c.keepZoom)
		return
	}
	path := c.diskFilePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Warn("tilecache: mkdir failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, value, 0o644); err != nil {
		c.logger.Warn("tilecache: disk spill failed", "path", path, "error", err)
	}
}

// Get returns a rendered tile's bytes, first checking memory, then falling
// back to disk (and repopulating memory on a disk hit).
func (c *Cache) Get(tid tileid.TileIdentifier) ([]byte, bool) {
	c.mu.Lock()
	if v, ok := c.lru.Get(tid); ok {
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	if c.diskPath == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.diskFilePath(tid))
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	c.lru.Add(tid, data)
	c.mu.Unlock()
	return data, true
}

// Put stores a freshly rendered tile in memory; it may trigger onEvict for
// whatever tile falls off the LRU's tail.
func (c *Cache) Put(tid tileid.TileIdentifier, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(tid, data)
}

// DeleteTiles purges every in-memory and on-disk tile for one stylesheet
// (spec.md §3 deleteTiles, invoked on stylesheet reload).
func (c *Cache) DeleteTiles(style string) error {
	c.mu.Lock()
	for _, k := range c.lru.Keys() {
		if k.Stylesheet == style {
			c.lru.Remove(k)
		}
	}
	c.mu.Unlock()

	if c.diskPath == "" {
		return nil
	}
	dir := filepath.Join(c.diskPath, sanitizeStyleDir(style))
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) diskFilePath(tid tileid.TileIdentifier) string {
	filename := fmt.Sprintf("%d-%d-%d.%s", tid.Z, tid.X, tid.Y, tid.Format.String())
	return filepath.Join(c.diskPath, sanitizeStyleDir(tid.Stylesheet), filename)
}

// sanitizeStyleDir turns a stylesheet name (a URL-style path, possibly
// nested, possibly the ".fallback" sentinel) into a safe single relative
// directory component chain.
func sanitizeStyleDir(style string) string {
	s := strings.TrimPrefix(style, "/")
	if s == "" {
		s = "_root"
	}
	return filepath.FromSlash(s)
}

// Len reports the number of tiles currently held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
