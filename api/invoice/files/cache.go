package files

import (
	"context"
	"sync"
	"time"

	"InvoiceDesk/internal/objectstore"
)

// cacheTTL bounds how stale the uploaded-files listing may get between
// explicit invalidations.
const cacheTTL = 30 * time.Second

// Cache holds the per-user uploaded-files listing so the workspace view
// does not hit object storage on every request. Deletion and submission
// invalidate it; anything else ages out via the TTL.
type Cache struct {
	objects objectstore.Storage

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	files     []objectstore.ObjectInfo
	fetchedAt time.Time
}

func NewCache(objects objectstore.Storage) *Cache {
	return &Cache{
		objects: objects,
		entries: make(map[string]cacheEntry),
	}
}

// List returns the user's uploaded files, from cache when fresh.
func (c *Cache) List(ctx context.Context, userID string) ([]objectstore.ObjectInfo, error) {
	c.mu.Lock()
	entry, ok := c.entries[userID]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return append([]objectstore.ObjectInfo(nil), entry.files...), nil
	}
	return c.Refresh(ctx, userID)
}

// Refresh re-reads the listing from object storage and replaces the
// cached entry wholesale.
func (c *Cache) Refresh(ctx context.Context, userID string) ([]objectstore.ObjectInfo, error) {
	files, err := c.objects.List(ctx, objectstore.InvoiceFilePrefix(userID))
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []objectstore.ObjectInfo{}
	}
	c.mu.Lock()
	c.entries[userID] = cacheEntry{files: files, fetchedAt: time.Now()}
	c.mu.Unlock()
	return append([]objectstore.ObjectInfo(nil), files...), nil
}

// Invalidate drops the user's cached listing so the next List re-reads
// storage.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
