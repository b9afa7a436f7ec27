// Package cache persists API responses keyed by app id, with a small LRU in
// front of the disk files so repeated status polls stay cheap.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const memEntries = 256

type entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// StatusCache stores raw response payloads with the time they were fetched.
// Reads check memory first, then disk. All failures degrade to a cache miss.
type StatusCache struct {
	dir string
	mem *lru.Cache[string, entry]
	log *zap.Logger
}

func New(dir string, log *zap.Logger) (*StatusCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	mem, err := lru.New[string, entry](memEntries)
	if err != nil {
		return nil, err
	}
	return &StatusCache{dir: dir, mem: mem, log: log}, nil
}

func (c *StatusCache) path(key string) string {
	return filepath.Join(c.dir, "status_"+key+".json")
}

// Put stores a payload under key with the current time.
func (c *StatusCache) Put(key string, data []byte) {
	e := entry{Timestamp: time.Now(), Data: append(json.RawMessage(nil), data...)}
	c.mem.Add(key, e)

	blob, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		c.log.Warn("marshaling cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path(key), blob, 0644); err != nil {
		c.log.Warn("writing cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Get returns the cached payload and its fetch time.
func (c *StatusCache) Get(key string) ([]byte, time.Time, bool) {
	if e, ok := c.mem.Get(key); ok {
		return e.Data, e.Timestamp, true
	}

	blob, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, time.Time{}, false
	}
	var e entry
	if err := json.Unmarshal(blob, &e); err != nil {
		c.log.Debug("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, false
	}
	c.mem.Add(key, e)
	return e.Data, e.Timestamp, true
}

// IsValid reports whether a cached payload exists and is younger than maxAge.
func (c *StatusCache) IsValid(key string, maxAge time.Duration) bool {
	_, ts, ok := c.Get(key)
	return ok && time.Since(ts) < maxAge
}

// Clear removes every cached entry, memory and disk.
func (c *StatusCache) Clear() error {
	c.mem.Purge()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
			return err
		}
	}
	return nil
}
