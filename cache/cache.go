// Package cache implements ContentCache (spec.md §4.3): a two-tier cache
// (in-memory plus an optional disk tier) for the results of code generation
// and type mapping, keyed by a typed content hash of their inputs rather
// than caller-supplied names.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAge is how long an entry stays fresh before TTL eviction.
	DefaultMaxAge = 7 * 24 * time.Hour

	// DefaultMaxEntries bounds the in-memory entry count.
	DefaultMaxEntries = 1000

	// DefaultMaxSize bounds the aggregate size (bytes) of cached payloads.
	DefaultMaxSize = 100 * 1024 * 1024
)

// Metadata tracks bookkeeping for one entry, separate from its payload so
// Stats can report on it without touching Data.
type Metadata struct {
	Size         int64
	HitCount     int64
	LastAccessed time.Time
	ComputeTime  time.Duration
}

// Entry is one cached value (spec.md §3 "Cache entry").
type Entry struct {
	Key          string
	Data         []byte
	Timestamp    time.Time
	Version      string
	Dependencies []string
	Metadata     Metadata
}

func (e *Entry) fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.Timestamp) < maxAge
}

// Config controls cache policy (spec.md §4.3 "Policies").
type Config struct {
	// BaseDir enables the disk tier when non-empty. Empty means
	// memory-only.
	BaseDir string

	// Prefix names this cache's filename family and key namespace, e.g.
	// "ir" or "codegen".
	Prefix string

	MaxAge     time.Duration
	MaxEntries int
	MaxSize    int64

	Logger zerolog.Logger
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return cfg
}

// Cache is a ContentCache instance. The zero value is not usable; construct
// with New.
type Cache struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*Entry
	disk    *diskTier
}

// New constructs a Cache under cfg. When cfg.BaseDir is set, the disk tier
// is loaded immediately: every fresh on-disk entry is admitted, stale ones
// are left on disk untouched (spec.md §4.3 "On-disk load at startup"). Disk
// load failures are logged as warnings and never prevent construction
// (spec.md §4.3 "Failure").
func New(cfg Config) *Cache {
	c := &Cache{
		config:  cfg.withDefaults(),
		entries: make(map[string]*Entry),
	}
	if c.config.BaseDir != "" {
		c.disk = newDiskTier(c.config.BaseDir, c.config.Prefix, c.config.Logger)
		c.loadFromDisk()
	}
	return c
}

func (c *Cache) loadFromDisk() {
	loaded, err := c.disk.loadAll()
	if err != nil {
		c.config.Logger.Warn().Err(err).Msg("cache: disk load failed, continuing memory-only")
		return
	}
	now := time.Now()
	for _, e := range loaded {
		if e.fresh(now, c.config.MaxAge) {
			c.entries[e.Key] = e
		}
	}
}

// Get returns the entry for key, or (nil, false) on a miss or stale entry.
// A hit bumps HitCount and LastAccessed.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.fresh(time.Now(), c.config.MaxAge) {
		c.removeLocked(key)
		return nil, false
	}
	e.Metadata.HitCount++
	e.Metadata.LastAccessed = time.Now()
	return e, true
}

// SetOptions carries the optional fields Set accepts alongside key and data.
type SetOptions struct {
	Dependencies []string
	ComputeTime  time.Duration
	Version      string
}

// Set stores data under key, evicting as needed to satisfy capacity limits,
// then writes through to the disk tier if one is configured.
func (c *Cache) Set(key string, data []byte, opts SetOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e := &Entry{
		Key:          key,
		Data:         data,
		Timestamp:    now,
		Version:      opts.Version,
		Dependencies: append([]string(nil), opts.Dependencies...),
		Metadata: Metadata{
			Size:         int64(len(data)),
			LastAccessed: now,
			ComputeTime:  opts.ComputeTime,
		},
	}
	c.entries[key] = e
	c.evictLocked()

	if c.disk != nil {
		if err := c.disk.save(e); err != nil {
			c.config.Logger.Warn().Err(err).Str("key", key).Msg("cache: disk write failed")
		}
	}
}

// evictLocked applies TTL eviction then LRU eviction until both capacity
// limits are satisfied (spec.md §4.3 "Eviction order: first TTL-expire;
// then LRU by lastAccessed"). Caller must hold c.mu.
func (c *Cache) evictLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if !e.fresh(now, c.config.MaxAge) {
			c.removeLocked(key)
		}
	}

	for c.overCapacityLocked() {
		oldestKey := ""
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.Metadata.LastAccessed.Before(oldest) {
				oldestKey = key
				oldest = e.Metadata.LastAccessed
			}
		}
		if oldestKey == "" {
			return
		}
		c.removeLocked(oldestKey)
	}
}

func (c *Cache) overCapacityLocked() bool {
	if len(c.entries) > c.config.MaxEntries {
		return true
	}
	var total int64
	for _, e := range c.entries {
		total += e.Metadata.Size
	}
	return total > c.config.MaxSize
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	if c.disk != nil {
		if err := c.disk.remove(key); err != nil {
			c.config.Logger.Warn().Err(err).Str("key", key).Msg("cache: disk remove failed")
		}
	}
}

// InvalidateByDependency removes every entry (in both tiers) whose
// dependency set contains dep, returning the count removed (spec.md §4.3).
// Grounded on the dependency-collection pattern in
// generator/resolve.go's collectDeps: walk, test membership, accumulate.
func (c *Cache) InvalidateByDependency(dep string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for key, e := range c.entries {
		for _, d := range e.Dependencies {
			if d == dep {
				removed = append(removed, key)
				break
			}
		}
	}
	for _, key := range removed {
		c.removeLocked(key)
	}
	return len(removed)
}

// Clear removes every entry from both tiers.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	if c.disk != nil {
		if err := c.disk.clear(); err != nil {
			c.config.Logger.Warn().Err(err).Msg("cache: disk clear failed")
		}
	}
}

// Stats summarizes current cache occupancy.
type Stats struct {
	EntryCount  int
	TotalSize   int64
	TotalHits   int64
	OldestEntry time.Time
}

// Stats reports current occupancy (spec.md §4.3 contract: "stats()").
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := c.entries[k]
		s.EntryCount++
		s.TotalSize += e.Metadata.Size
		s.TotalHits += e.Metadata.HitCount
		if s.OldestEntry.IsZero() || e.Timestamp.Before(s.OldestEntry) {
			s.OldestEntry = e.Timestamp
		}
	}
	return s
}
