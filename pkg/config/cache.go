// Package config loads and caches the anonymizer's file-based
// configuration: deny and allow lists and custom regex patterns, in a
// default scope at the configuration root and in per-profile
// subdirectories. Cached values are validated against file modification
// times, so an unchanged file is never parsed twice, and a changed one is
// picked up on the next read without any restart.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/profile"
)

// Resource names one configuration file kind. The value is the on-disk
// file name.
type Resource string

// The three resource kinds of a scope.
const (
	ResourceBlocklist Resource = "blocklist.txt"
	ResourceGrantlist Resource = "grantlist.txt"
	ResourcePatterns  Resource = "regex_patterns.json"
)

var resources = []Resource{ResourceBlocklist, ResourceGrantlist, ResourcePatterns}

// DefaultPatternScore applies to regex pattern entries that do not carry
// their own score.
const DefaultPatternScore = 0.85

// PatternSpec is one entry of a regex_patterns.json label group.
type PatternSpec struct {
	Name    string  `json:"name"`
	Pattern string  `json:"pattern"`
	Score   float64 `json:"score"`
}

type cacheKey struct {
	resource Resource
	profile  string // "" is the default scope
}

// entry is one cached resource value. The value is valid while mtime
// equals the file's current modification time; a zero mtime records that
// the file was absent, which is a valid empty value.
type entry struct {
	mtime    time.Time
	list     []string
	patterns map[string][]PatternSpec
}

// Cache is the mtime-validated configuration cache. It is safe for
// concurrent use; reads of fresh entries take only a stat call and a
// read-locked map lookup. Returned slices and maps are shared and must be
// treated as read-only.
type Cache struct {
	root     string
	logger   *slog.Logger
	readFile func(string) ([]byte, error)

	mu      sync.RWMutex
	entries map[cacheKey]entry
	group   singleflight.Group

	hookMu sync.Mutex
	hook   func(profile string)
}

// CacheOption adjusts a Cache at construction.
type CacheOption func(*Cache)

// WithReadFile replaces the file reader, letting tests count or stub
// reads. Stat calls still hit the real filesystem.
func WithReadFile(fn func(string) ([]byte, error)) CacheOption {
	return func(c *Cache) { c.readFile = fn }
}

// NewCache builds a Cache over the configuration root directory.
func NewCache(root string, logger *slog.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		root:     root,
		logger:   logger,
		readFile: os.ReadFile,
		entries:  make(map[cacheKey]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the configuration root directory.
func (c *Cache) Root() string { return c.root }

// SetChangeHook installs the callback invoked after an invalidation, with
// the affected profile name or "" for the default scope. The registry
// layer uses it to drop built registries.
func (c *Cache) SetChangeHook(fn func(profile string)) {
	c.hookMu.Lock()
	c.hook = fn
	c.hookMu.Unlock()
}

func (c *Cache) fireHook(prof string) {
	c.hookMu.Lock()
	fn := c.hook
	c.hookMu.Unlock()
	if fn != nil {
		fn(prof)
	}
}

// Blocklist returns the deny-list phrases of the given profile scope,
// lower-cased, in file order. An empty profile name selects the default
// scope.
func (c *Cache) Blocklist(prof string) []string {
	return c.get(ResourceBlocklist, prof).list
}

// Grantlist returns the allow-list phrases of the given profile scope.
func (c *Cache) Grantlist(prof string) []string {
	return c.get(ResourceGrantlist, prof).list
}

// RegexPatterns returns the custom pattern groups of the given profile
// scope, keyed by label.
func (c *Cache) RegexPatterns(prof string) map[string][]PatternSpec {
	return c.get(ResourcePatterns, prof).patterns
}

// HasConfig reports whether any of the scope's three resource files exists
// on disk.
func (c *Cache) HasConfig(prof string) bool {
	for _, res := range resources {
		if !c.get(res, prof).mtime.IsZero() {
			return true
		}
	}
	return false
}

// NotifyPathChanged invalidates the cache entries affected by a change to
// the given file. A path directly under the root invalidates the matching
// default-scope resource; a path inside a profile directory invalidates
// every resource of that profile. Paths outside the root, unknown root
// files and deeper nesting are ignored.
func (c *Cache) NotifyPathChanged(path string) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch len(parts) {
	case 1:
		res, ok := resourceFromName(parts[0])
		if !ok {
			return
		}
		c.invalidate(cacheKey{res, ""})
		c.logger.Debug("Invalidated default configuration", "resource", string(res))
		c.fireHook("")
	case 2:
		prof := parts[0]
		if _, err := profile.Validate(prof); err != nil {
			return
		}
		for _, res := range resources {
			c.invalidate(cacheKey{res, prof})
		}
		c.logger.Debug("Invalidated profile configuration", "profile", prof)
		c.fireHook(prof)
	}
}

// InvalidateAll clears every cache entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]entry)
	c.mu.Unlock()
}

func (c *Cache) invalidate(k cacheKey) {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

func resourceFromName(name string) (Resource, bool) {
	for _, res := range resources {
		if name == string(res) {
			return res, true
		}
	}
	return "", false
}

func (c *Cache) path(res Resource, prof string) string {
	if prof == "" {
		return filepath.Join(c.root, string(res))
	}
	return filepath.Join(c.root, prof, string(res))
}

// get returns the current value of one resource, re-reading the file only
// when the cached modification time no longer matches the disk.
func (c *Cache) get(res Resource, prof string) entry {
	if prof != "" {
		if _, err := profile.Validate(prof); err != nil {
			return entry{}
		}
	}
	path := c.path(res, prof)
	k := cacheKey{res, prof}

	mtime := statMtime(path)
	c.mu.RLock()
	e, hit := c.entries[k]
	c.mu.RUnlock()
	if hit && e.mtime.Equal(mtime) {
		return e
	}

	// Concurrent misses for the same key collapse into one load. A racing
	// write between the stat above and the load is caught on the next read.
	v, _, _ := c.group.Do(prof+"|"+string(res), func() (any, error) {
		return c.load(res, path), nil
	})
	loaded := v.(entry)
	c.mu.Lock()
	c.entries[k] = loaded
	c.mu.Unlock()
	return loaded
}

func (c *Cache) load(res Resource, path string) entry {
	e := entry{mtime: statMtime(path)}
	if e.mtime.IsZero() {
		if res == ResourcePatterns {
			e.patterns = map[string][]PatternSpec{}
		}
		return e
	}

	data, err := c.readFile(path)
	if err != nil {
		c.logger.Warn("Reading configuration file failed, treating as empty",
			"path", path, "error", err)
		if res == ResourcePatterns {
			e.patterns = map[string][]PatternSpec{}
		}
		return e
	}

	if res == ResourcePatterns {
		e.patterns = parsePatterns(c.logger, path, data)
	} else {
		e.list = parseList(data)
	}
	return e
}

// parseList reads one phrase per line, lower-cased. Blank lines and lines
// starting with '#' are skipped.
func parseList(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return out
}

// parsePatterns decodes a label-to-pattern-group mapping. A file that does
// not decode is logged and treated as empty; entries without a score get
// DefaultPatternScore.
func parsePatterns(logger *slog.Logger, path string, data []byte) map[string][]PatternSpec {
	var raw map[string][]PatternSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("Malformed regex pattern file, treating as empty",
			"path", path, "error", err)
		return map[string][]PatternSpec{}
	}
	for label, specs := range raw {
		for i := range specs {
			if specs[i].Score == 0 {
				specs[i].Score = DefaultPatternScore
			}
		}
		raw[label] = specs
	}
	if raw == nil {
		raw = map[string][]PatternSpec{}
	}
	return raw
}

func statMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
