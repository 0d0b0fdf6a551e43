// Package cache stores parsed framework documents on disk, keyed by a
// hash of the document path and content, and counts hits and misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spboyer/promptaudit/internal/framework"
)

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a document cache backed by JSON files. The zero directory
// disables disk storage but keeps the in-memory layer.
type Cache struct {
	dir string
	mu  sync.Mutex
	mem map[string]*framework.Document

	hits   atomic.Int64
	misses atomic.Int64
}

var _ framework.DocumentCache = (*Cache)(nil)

// New creates a new cache instance with the specified directory
func New(dir string) *Cache {
	return &Cache{dir: dir, mem: map[string]*framework.Document{}}
}

// Key hashes a document path and its content.
func Key(path, content string) string {
	h := sha256.New()
	_ = writeString(h, path)
	_ = writeString(h, content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached document for path and content.
func (c *Cache) Get(path, content string) (*framework.Document, bool) {
	key := Key(path, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if doc, ok := c.mem[key]; ok {
		c.hits.Add(1)
		return doc, true
	}
	if c.dir != "" {
		data, err := os.ReadFile(c.cachePath(key))
		if err == nil {
			var doc framework.Document
			if json.Unmarshal(data, &doc) == nil {
				c.mem[key] = &doc
				c.hits.Add(1)
				return &doc, true
			}
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores doc in memory and, when a directory is configured, on disk.
func (c *Cache) Put(doc *framework.Document) error {
	key := Key(doc.Path, doc.Content)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem[key] = doc
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := os.WriteFile(c.cachePath(key), data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Clear removes all cached documents. It refuses to delete a directory
// holding anything other than .json entries.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.mem)
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return errors.New("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return errors.New("cache directory contains non-cache files - refusing to delete for safety")
		}
	}
	return os.RemoveAll(c.dir)
}

func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// writeString appends a null delimiter so adjacent fields cannot collide.
func writeString(w io.Writer, s string) error {
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
