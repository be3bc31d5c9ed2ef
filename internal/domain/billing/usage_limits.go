package billing

import (
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UsageLimits is the persisted counter row for an organization: one row per
// tenant holding the running storage and token counters plus optional
// per-organization limit overrides.
//
// The counters are accounting caches, not ground truth. StorageUsedBytes may
// drift from the sum of active document sizes until reconciled; the limits
// stored here are denormalized and the resolved LimitSet stays authoritative
// for enforcement. Rows are created lazily on first commit and are never
// deleted by the accounting subsystem.
//
// All mutation goes through UsageLimitsRepository under a row-level lock;
// nothing else writes these counters.
type UsageLimits struct {
	shared.BaseEntity
	OrganizationID       uuid.UUID
	StorageUsedBytes     int64
	StorageLimitBytes    *int64 // nil = resolve from plan/tier
	TokensUsedThisPeriod int64
	MonthlyTokenLimit    *int64 // nil = resolve from plan; absent there too = unlimited
}

// NewUsageLimits creates a zeroed counter row for an organization
func NewUsageLimits(organizationID uuid.UUID) (*UsageLimits, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	return &UsageLimits{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
	}, nil
}

// ApplyStorageDelta applies a signed byte delta with a zero floor and
// returns the new counter value. Negative results clamp to zero: a delete
// racing a reconcile must never drive the counter negative.
func (u *UsageLimits) ApplyStorageDelta(deltaBytes int64) int64 {
	next := u.StorageUsedBytes + deltaBytes
	if next < 0 {
		next = 0
	}
	u.StorageUsedBytes = next
	u.Touch()
	return next
}

// AddTokens increments the period token counter and returns the new value.
// Token usage is monotonic within a period; the counter only grows until
// the external period reset.
func (u *UsageLimits) AddTokens(tokens int64) int64 {
	if tokens < 0 {
		tokens = 0
	}
	u.TokensUsedThisPeriod += tokens
	u.Touch()
	return u.TokensUsedThisPeriod
}

// EffectiveTokenLimit returns the per-row override when set, otherwise the
// resolved plan cap. nil means unlimited.
func (u *UsageLimits) EffectiveTokenLimit(resolved LimitSet) *int64 {
	if u.MonthlyTokenLimit != nil {
		return u.MonthlyTokenLimit
	}
	return resolved.MonthlyTokenLimit
}
