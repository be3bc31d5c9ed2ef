package billing

import (
	"context"
	"time"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanRepository defines persistence operations for subscription plans
type PlanRepository interface {
	// FindByID retrieves a plan by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SubscriptionPlan, error)

	// FindByTier retrieves the active plans for a tier
	FindByTier(ctx context.Context, tier identity.Tier) ([]*SubscriptionPlan, error)

	// Save persists a new plan
	Save(ctx context.Context, plan *SubscriptionPlan) error

	// Update updates an existing plan
	Update(ctx context.Context, plan *SubscriptionPlan) error
}

// UsageLimitsRepository defines persistence operations for the per-organization
// counter rows. Implementations must serialize the Apply* operations for the
// same organization with a row-level exclusive lock inside a single
// transaction; concurrent commits for different organizations must not
// contend with each other.
type UsageLimitsRepository interface {
	// FindByOrganization retrieves the counter row for an organization.
	// Returns shared.ErrNotFound when the row was never created.
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*UsageLimits, error)

	// ApplyStorageDelta atomically applies a signed byte delta to the
	// storage counter (lock, read, floor at zero, write) and returns the
	// new value. Creates the row with max(0, delta) if absent.
	ApplyStorageDelta(ctx context.Context, organizationID uuid.UUID, deltaBytes int64) (int64, error)

	// ApplyTokenDelta atomically adds tokens to the period counter under
	// the same locking discipline and returns the new value. Creates the
	// row if absent.
	ApplyTokenDelta(ctx context.Context, organizationID uuid.UUID, tokens int64) (int64, error)

	// OverwriteStorageUsed upserts the storage counter to an absolute
	// value, replacing whatever was cached. Used only by reconciliation.
	OverwriteStorageUsed(ctx context.Context, organizationID uuid.UUID, bytes int64) error
}

// UsageEventFilter defines filtering options for usage event queries
type UsageEventFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Feature   string
	Provider  string
	Model     string
	UserID    *uuid.UUID
	Page      int
	PageSize  int
}

// DefaultUsageEventFilter returns a filter with default values
func DefaultUsageEventFilter() UsageEventFilter {
	return UsageEventFilter{
		Page:     1,
		PageSize: 100,
	}
}

// UsageEventRepository defines persistence operations for the append-only
// usage event log
type UsageEventRepository interface {
	// Save persists a usage event. When the event carries a RequestID and
	// a row with that key already exists, the write is a no-op: at most
	// one row per request_id is ever persisted.
	Save(ctx context.Context, event *UsageEvent) error

	// FindByID retrieves a usage event by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*UsageEvent, error)

	// FindByRequestID retrieves a usage event by its idempotency key
	FindByRequestID(ctx context.Context, requestID string) (*UsageEvent, error)

	// FindByOrganization retrieves events for an organization
	FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter UsageEventFilter) ([]*UsageEvent, error)

	// SumTokens returns total input+output tokens recorded for an
	// organization in a time range
	SumTokens(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (int64, error)

	// SumCost returns total cost recorded for an organization in a time range
	SumCost(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (decimal.Decimal, error)
}
