package source

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pfrederiksen/afl-stats/internal/logger"
)

// Cache keeps fetched documents on disk and serves them on later runs
// without touching the wrapped source.
type Cache struct {
	next Source
	dir  string
}

// NewCache wraps next with an on-disk cache rooted at dir.
func NewCache(next Source, dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{next: next, dir: dir}, nil
}

func (c *Cache) path(id string) string {
	h := sha1.New()
	h.Write([]byte(id))
	return filepath.Join(c.dir, fmt.Sprintf("%x.html", h.Sum(nil)))
}

// Fetch implements Source.
func (c *Cache) Fetch(ctx context.Context, id string) (*Document, error) {
	path := c.path(id)
	if info, err := os.Stat(path); err == nil {
		body, err := os.ReadFile(path)
		if err == nil {
			logger.IncrCounter("source.cache.hit")
			return &Document{ID: id, Body: body, FetchedAt: info.ModTime().UTC()}, nil
		}
	}

	doc, err := c.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, doc.Body, 0644); err != nil {
		logger.Warn("Failed to cache document", logger.Fields{"id": id, "path": path, "error": err.Error()})
	}
	logger.IncrCounter("source.cache.miss")
	return doc, nil
}
