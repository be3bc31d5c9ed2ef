package billing

import (
	"math"

	"github.com/biz2bricks/backend/internal/domain/identity"
)

// Storage tier limits in bytes. These are the built-in fallbacks used when
// an organization's plan carries no explicit storage cap.
const (
	tierFreeStorageBytes     = 100 << 20  // 100 MB
	tierStarterStorageBytes  = 1 << 30    // 1 GB
	tierProStorageBytes      = 10 << 30   // 10 GB
	tierBusinessStorageBytes = 100 << 30  // 100 GB
)

// TierStorageDefault returns the built-in storage cap for a tier. Unknown
// tiers get the most conservative (free) default.
func TierStorageDefault(tier identity.Tier) int64 {
	switch tier {
	case identity.TierStarter:
		return tierStarterStorageBytes
	case identity.TierPro:
		return tierProStorageBytes
	case identity.TierBusiness:
		return tierBusinessStorageBytes
	default:
		return tierFreeStorageBytes
	}
}

// LimitSet is the resolved, effective set of caps for an organization.
// A nil limit means unlimited.
type LimitSet struct {
	StorageLimitBytes *int64
	MonthlyTokenLimit *int64
	Tier              identity.Tier
}

// ResolveLimitSet combines a plan-level override with the built-in tier
// defaults. Precedence: explicit plan limit > tier default. The token cap
// comes only from the plan; tiers carry no built-in token ceiling.
// It never fails: an unresolvable tier falls back to the free defaults.
func ResolveLimitSet(tier identity.Tier, plan *SubscriptionPlan) LimitSet {
	if !tier.IsValid() {
		tier = identity.TierFree
	}

	set := LimitSet{Tier: tier}

	if plan != nil && plan.StorageLimitBytes != nil {
		set.StorageLimitBytes = plan.StorageLimitBytes
	} else {
		def := TierStorageDefault(tier)
		set.StorageLimitBytes = &def
	}

	if plan != nil && plan.MonthlyTokenLimit != nil {
		set.MonthlyTokenLimit = plan.MonthlyTokenLimit
	}

	return set
}

// UsagePercent returns used/limit as a percentage rounded to two decimals.
// A zero limit reports 100% rather than dividing by zero. Values above 100
// are preserved so callers can see overshoot.
func UsagePercent(used, limit int64) float64 {
	if limit == 0 {
		return 100.0
	}
	if used < 0 {
		used = 0
	}
	pct := float64(used) / float64(limit) * 100
	return math.Round(pct*100) / 100
}

// StorageCheckResult is the decision object returned by a storage limit
// check. A nil LimitBytes means the organization is unlimited.
type StorageCheckResult struct {
	Allowed        bool          `json:"allowed"`
	CurrentBytes   int64         `json:"current_bytes"`
	LimitBytes     *int64        `json:"limit_bytes"`
	RemainingBytes *int64        `json:"remaining_bytes"`
	PercentageUsed float64       `json:"percentage_used"`
	Tier           identity.Tier `json:"tier"`
}

// NewStorageCheckResult evaluates whether additionalBytes can be stored on
// top of currentBytes under the given limit set.
func NewStorageCheckResult(currentBytes, additionalBytes int64, limits LimitSet) StorageCheckResult {
	result := StorageCheckResult{
		CurrentBytes: currentBytes,
		LimitBytes:   limits.StorageLimitBytes,
		Tier:         limits.Tier,
	}

	if limits.StorageLimitBytes == nil {
		result.Allowed = true
		result.PercentageUsed = 0
		return result
	}

	limit := *limits.StorageLimitBytes
	result.Allowed = currentBytes+additionalBytes <= limit
	remaining := limit - currentBytes
	if remaining < 0 {
		remaining = 0
	}
	result.RemainingBytes = &remaining
	result.PercentageUsed = UsagePercent(currentBytes, limit)
	return result
}

// DeniedStorageCheck is the uniform denial returned when the organization
// cannot be resolved at all. Quota unknown means deny by default.
func DeniedStorageCheck() StorageCheckResult {
	zero := int64(0)
	return StorageCheckResult{
		Allowed:        false,
		CurrentBytes:   0,
		LimitBytes:     &zero,
		RemainingBytes: &zero,
		PercentageUsed: 100.0,
		Tier:           identity.TierUnknown,
	}
}

// TokenCheckResult is the decision object returned by a token limit check.
// A nil MonthlyLimit means the organization is unlimited this period.
type TokenCheckResult struct {
	Allowed              bool    `json:"allowed"`
	TokensUsedThisPeriod int64   `json:"tokens_used_this_period"`
	MonthlyLimit         *int64  `json:"monthly_limit"`
	RemainingTokens      *int64  `json:"remaining_tokens"`
	PercentageUsed       float64 `json:"percentage_used"`
}

// NewTokenCheckResult evaluates whether estimatedTokens can be spent on top
// of tokensUsed under the given monthly limit. A nil limit always allows.
func NewTokenCheckResult(tokensUsed, estimatedTokens int64, monthlyLimit *int64) TokenCheckResult {
	result := TokenCheckResult{
		TokensUsedThisPeriod: tokensUsed,
		MonthlyLimit:         monthlyLimit,
	}

	if monthlyLimit == nil {
		result.Allowed = true
		result.PercentageUsed = 0
		return result
	}

	limit := *monthlyLimit
	result.Allowed = tokensUsed+estimatedTokens <= limit
	remaining := limit - tokensUsed
	if remaining < 0 {
		remaining = 0
	}
	result.RemainingTokens = &remaining
	result.PercentageUsed = UsagePercent(tokensUsed, limit)
	return result
}

// UnlimitedTokenCheck is returned for organizations that have no counter
// row: quota tracking was never initialized for the tenant, which is not
// the same as the quota being exhausted.
func UnlimitedTokenCheck() TokenCheckResult {
	return TokenCheckResult{
		Allowed:              true,
		TokensUsedThisPeriod: 0,
		MonthlyLimit:         nil,
		RemainingTokens:      nil,
		PercentageUsed:       0,
	}
}
