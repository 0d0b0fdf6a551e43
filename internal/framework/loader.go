package framework

import (
	"log/slog"
	"os"
)

// DocumentCache stores parsed documents keyed by path and content.
type DocumentCache interface {
	Get(path, content string) (*Document, bool)
	Put(doc *Document) error
}

// Loader reads and parses documents, consulting an optional cache.
type Loader struct {
	cache DocumentCache
}

func NewLoader(cache DocumentCache) *Loader {
	return &Loader{cache: cache}
}

// Load reads path and returns its parsed Document.
func (l *Loader) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if l.cache != nil {
		if doc, ok := l.cache.Get(path, content); ok {
			return doc, nil
		}
	}
	doc := ParseDocument(path, content)
	if l.cache != nil {
		if err := l.cache.Put(doc); err != nil {
			slog.Warn("caching document", "path", path, "error", err)
		}
	}
	return doc, nil
}
