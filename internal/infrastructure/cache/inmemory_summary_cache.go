package cache

import (
	"context"
	"sync"
	"time"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// summaryEntry holds a cached summary with its expiration
type summaryEntry struct {
	summary   billing.StorageUsageSummary
	expiresAt time.Time
}

// InMemorySummaryCache implements SummaryCache using an in-memory map.
// Suitable for single-instance deployments and testing. State is not shared
// across processes, so invalidations from a sibling instance are invisible;
// the TTL bounds the resulting staleness.
type InMemorySummaryCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]summaryEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySummaryCache creates a new in-memory summary cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySummaryCache() *InMemorySummaryCache {
	c := &InMemorySummaryCache{
		entries:  make(map[uuid.UUID]summaryEntry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// GetStorageSummary returns the cached summary for an organization.
// Expired entries are reported as misses.
func (c *InMemorySummaryCache) GetStorageSummary(ctx context.Context, organizationID uuid.UUID) (*billing.StorageUsageSummary, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[organizationID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}

	// Copy so callers cannot mutate the cached value
	summary := e.summary
	return &summary, true, nil
}

// SetStorageSummary stores a summary with the given TTL
func (c *InMemorySummaryCache) SetStorageSummary(ctx context.Context, summary *billing.StorageUsageSummary, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[summary.OrganizationID] = summaryEntry{
		summary:   *summary,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// InvalidateOrganization drops the cached summary for an organization
func (c *InMemorySummaryCache) InvalidateOrganization(ctx context.Context, organizationID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, organizationID)
	return nil
}

// Close stops the cleanup goroutine and releases the map
func (c *InMemorySummaryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()

		c.mu.Lock()
		c.entries = make(map[uuid.UUID]summaryEntry)
		c.mu.Unlock()
	})
	return nil
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemorySummaryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanupLoop periodically removes expired entries
func (c *InMemorySummaryCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *InMemorySummaryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Ensure InMemorySummaryCache implements SummaryCache
var _ billing.SummaryCache = (*InMemorySummaryCache)(nil)
