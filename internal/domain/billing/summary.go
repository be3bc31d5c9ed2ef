package billing

import (
	"context"
	"time"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// StorageUsageSummary is the read model served to reporting callers. It is a
// point-in-time snapshot and may be served from cache; enforcement decisions
// never consume it.
type StorageUsageSummary struct {
	OrganizationID    uuid.UUID     `json:"organization_id"`
	Tier              identity.Tier `json:"tier"`
	StorageUsedBytes  int64         `json:"storage_used_bytes"`
	StorageLimitBytes *int64        `json:"storage_limit_bytes"`
	RemainingBytes    *int64        `json:"remaining_bytes"`
	PercentageUsed    float64       `json:"percentage_used"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// SummaryCache caches storage usage summaries on the reporting path.
// Implementations must treat a cache miss and a cache failure the same way
// from the caller's perspective: the caller recomputes from the database.
type SummaryCache interface {
	// GetStorageSummary returns the cached summary for an organization.
	// The second return value reports whether the entry was present.
	GetStorageSummary(ctx context.Context, organizationID uuid.UUID) (*StorageUsageSummary, bool, error)

	// SetStorageSummary stores a summary with the given TTL
	SetStorageSummary(ctx context.Context, summary *StorageUsageSummary, ttl time.Duration) error

	// InvalidateOrganization drops any cached summary for an organization.
	// Called after commits and reconciliation so reporting reads converge.
	InvalidateOrganization(ctx context.Context, organizationID uuid.UUID) error

	// Close releases any resources held by the cache
	Close() error
}
