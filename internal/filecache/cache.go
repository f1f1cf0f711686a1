// Package filecache is a bounded on-disk byte cache. Entries are JSON
// envelopes named by a hash of their key, evicted least-recently-used
// once the file count limit is reached.
package filecache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// DefaultMaxFiles bounds the cache directory.
const DefaultMaxFiles = 100

// Config controls cache placement and bounds.
type Config struct {
	Dir string
	// MaxFiles caps the number of entries; zero keeps the default.
	MaxFiles int
	// Meta is folded into every key, separating otherwise identical
	// caches (for example per game collection).
	Meta   map[string]string
	Logger pslog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	dir  string
	max  int
	meta map[string]string
	log  pslog.Logger

	mu    sync.Mutex
	atime map[string]time.Time
}

type envelope struct {
	Key     string            `json:"key"`
	Data    []byte            `json:"data"`
	Created float64           `json:"created_time"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// New opens the cache directory, creating it when missing, and indexes
// existing entries by their modification time.
func New(cfg Config) (*Cache, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	max := cfg.MaxFiles
	if max <= 0 {
		max = DefaultMaxFiles
	}
	log := cfg.Logger
	if log != nil {
		log = log.With("cache_dir", cfg.Dir)
	}
	c := &Cache{
		dir:   cfg.Dir,
		max:   max,
		meta:  cfg.Meta,
		log:   log,
		atime: make(map[string]time.Time),
	}
	c.loadExisting()
	return c, nil
}

func (c *Cache) loadExisting() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		c.atime[strings.TrimSuffix(name, ".json")] = info.ModTime()
	}
	if c.log != nil {
		c.log.Debug("cache indexed", "entries", len(c.atime))
	}
}

func (c *Cache) merge(meta map[string]string) map[string]string {
	if len(meta) == 0 && len(c.meta) == 0 {
		return nil
	}
	merged := make(map[string]string, len(c.meta)+len(meta))
	for k, v := range c.meta {
		merged[k] = v
	}
	for k, v := range meta {
		merged[k] = v
	}
	return merged
}

// cacheKey combines the logical key with sorted metadata so the same key
// under different metadata stays distinct.
func (c *Cache) cacheKey(key string, meta map[string]string) string {
	merged := c.merge(meta)
	if len(merged) == 0 {
		return key
	}
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+merged[name])
	}
	return key + "|meta:" + strings.Join(pairs, "&")
}

func safeKey(cacheKey string) string {
	sum := md5.Sum([]byte(cacheKey))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) pathFor(safe string) string {
	return filepath.Join(c.dir, safe+".json")
}

// Add stores data under key, evicting the least recently used entries
// when the cache is full.
func (c *Cache) Add(key string, data []byte, meta map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()

	now := time.Now()
	env := envelope{
		Key:     key,
		Data:    data,
		Created: float64(now.UnixNano()) / 1e9,
		Meta:    c.merge(meta),
	}
	encoded, err := json.Marshal(env)
	if err != nil {
		return err
	}
	safe := safeKey(c.cacheKey(key, meta))
	path := c.pathFor(safe)
	tmp, err := os.CreateTemp(c.dir, "cache-*.json")
	if err != nil {
		if c.log != nil {
			c.log.Warn("cache write failed", "key", key, "err", err)
		}
		return err
	}
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if c.log != nil {
			c.log.Warn("cache write failed", "key", key, "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		if c.log != nil {
			c.log.Warn("cache write failed", "key", key, "err", err)
		}
		return err
	}
	c.atime[safe] = now
	if c.log != nil {
		c.log.Trace("cache add ok", "key", key, "bytes", len(data))
	}
	return nil
}

// Get retrieves data by key, refreshing its recency on a hit.
func (c *Cache) Get(key string, meta map[string]string) ([]byte, bool) {
	safe := safeKey(c.cacheKey(key, meta))
	path := c.pathFor(safe)
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(encoded, &env); err != nil {
		if c.log != nil {
			c.log.Warn("cache entry unreadable", "key", key, "err", err)
		}
		return nil, false
	}
	now := time.Now()
	c.mu.Lock()
	c.atime[safe] = now
	c.mu.Unlock()
	_ = os.Chtimes(path, now, now)
	return env.Data, true
}

// Exists reports whether key is cached.
func (c *Cache) Exists(key string, meta map[string]string) bool {
	_, err := os.Stat(c.pathFor(safeKey(c.cacheKey(key, meta))))
	return err == nil
}

// Remove deletes a cached entry. It reports whether one was present.
func (c *Cache) Remove(key string, meta map[string]string) bool {
	safe := safeKey(c.cacheKey(key, meta))
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.pathFor(safe)); err != nil {
		return false
	}
	delete(c.atime, safe)
	return true
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return err
		}
	}
	c.atime = make(map[string]time.Time)
	return nil
}

// Keys lists the logical keys of readable entries.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	safes := make([]string, 0, len(c.atime))
	for safe := range c.atime {
		safes = append(safes, safe)
	}
	c.mu.Unlock()
	keys := make([]string, 0, len(safes))
	for _, safe := range safes {
		encoded, err := os.ReadFile(c.pathFor(safe))
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(encoded, &env); err != nil {
			continue
		}
		keys = append(keys, env.Key)
	}
	sort.Strings(keys)
	return keys
}

// Size sums the stored payload bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	safes := make([]string, 0, len(c.atime))
	for safe := range c.atime {
		safes = append(safes, safe)
	}
	c.mu.Unlock()
	var total int64
	for _, safe := range safes {
		encoded, err := os.ReadFile(c.pathFor(safe))
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(encoded, &env); err != nil {
			continue
		}
		total += int64(len(env.Data))
	}
	return total
}

// evictLocked removes the oldest entries until there is room for one
// more. Caller holds the mutex.
func (c *Cache) evictLocked() {
	for len(c.atime) >= c.max {
		oldestKey := ""
		var oldest time.Time
		for safe, at := range c.atime {
			if oldestKey == "" || at.Before(oldest) {
				oldestKey = safe
				oldest = at
			}
		}
		if oldestKey == "" {
			return
		}
		_ = os.Remove(c.pathFor(oldestKey))
		delete(c.atime, oldestKey)
		if c.log != nil {
			c.log.Trace("cache evicted", "entry", oldestKey)
		}
	}
}
