package billing

import (
	"testing"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierStorageDefault(t *testing.T) {
	assert.Equal(t, int64(100<<20), TierStorageDefault(identity.TierFree))
	assert.Equal(t, int64(1<<30), TierStorageDefault(identity.TierStarter))
	assert.Equal(t, int64(10<<30), TierStorageDefault(identity.TierPro))
	assert.Equal(t, int64(100<<30), TierStorageDefault(identity.TierBusiness))

	t.Run("unknown tier gets the most conservative default", func(t *testing.T) {
		assert.Equal(t, int64(100<<20), TierStorageDefault(identity.Tier("nonsense")))
	})
}

func TestResolveLimitSet(t *testing.T) {
	t.Run("tier default when no plan", func(t *testing.T) {
		set := ResolveLimitSet(identity.TierPro, nil)

		require.NotNil(t, set.StorageLimitBytes)
		assert.Equal(t, int64(10<<30), *set.StorageLimitBytes)
		assert.Nil(t, set.MonthlyTokenLimit)
		assert.Equal(t, identity.TierPro, set.Tier)
	})

	t.Run("explicit plan limit wins over tier default", func(t *testing.T) {
		plan, err := NewSubscriptionPlan("Pro Plus", identity.TierPro)
		require.NoError(t, err)
		plan.WithStorageLimit(25 << 30).WithTokenLimit(2_000_000)

		set := ResolveLimitSet(identity.TierPro, plan)

		require.NotNil(t, set.StorageLimitBytes)
		assert.Equal(t, int64(25<<30), *set.StorageLimitBytes)
		require.NotNil(t, set.MonthlyTokenLimit)
		assert.Equal(t, int64(2_000_000), *set.MonthlyTokenLimit)
	})

	t.Run("plan without storage cap falls back to tier default", func(t *testing.T) {
		plan, err := NewSubscriptionPlan("Starter", identity.TierStarter)
		require.NoError(t, err)

		set := ResolveLimitSet(identity.TierStarter, plan)

		require.NotNil(t, set.StorageLimitBytes)
		assert.Equal(t, int64(1<<30), *set.StorageLimitBytes)
		assert.Nil(t, set.MonthlyTokenLimit)
	})

	t.Run("unresolvable tier falls back to free defaults", func(t *testing.T) {
		set := ResolveLimitSet(identity.Tier(""), nil)

		assert.Equal(t, identity.TierFree, set.Tier)
		require.NotNil(t, set.StorageLimitBytes)
		assert.Equal(t, int64(100<<20), *set.StorageLimitBytes)
	})
}

func TestUsagePercent(t *testing.T) {
	assert.Equal(t, 80.0, UsagePercent(80, 100))
	assert.Equal(t, 102.0, UsagePercent(510_000, 500_000))
	assert.Equal(t, 33.33, UsagePercent(1, 3))

	t.Run("zero limit reports full without dividing by zero", func(t *testing.T) {
		assert.Equal(t, 100.0, UsagePercent(0, 0))
		assert.Equal(t, 100.0, UsagePercent(42, 0))
	})

	t.Run("negative usage clamps to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, UsagePercent(-10, 100))
	})
}

func TestNewStorageCheckResult(t *testing.T) {
	limit := int64(1_000_000)
	limits := LimitSet{StorageLimitBytes: &limit, Tier: identity.TierStarter}

	t.Run("allows when the delta fits", func(t *testing.T) {
		result := NewStorageCheckResult(900_000, 50_000, limits)

		assert.True(t, result.Allowed)
		assert.Equal(t, int64(900_000), result.CurrentBytes)
		require.NotNil(t, result.RemainingBytes)
		assert.Equal(t, int64(100_000), *result.RemainingBytes)
		assert.Equal(t, 90.0, result.PercentageUsed)
		assert.Equal(t, identity.TierStarter, result.Tier)
	})

	t.Run("denies when the delta exceeds the cap", func(t *testing.T) {
		result := NewStorageCheckResult(900_000, 200_000, limits)

		assert.False(t, result.Allowed)
		require.NotNil(t, result.RemainingBytes)
		assert.Equal(t, int64(100_000), *result.RemainingBytes)
	})

	t.Run("nil limit always allows", func(t *testing.T) {
		result := NewStorageCheckResult(1<<40, 1<<40, LimitSet{Tier: identity.TierBusiness})

		assert.True(t, result.Allowed)
		assert.Nil(t, result.LimitBytes)
		assert.Nil(t, result.RemainingBytes)
		assert.Equal(t, 0.0, result.PercentageUsed)
	})

	t.Run("over-cap usage floors remaining at zero", func(t *testing.T) {
		result := NewStorageCheckResult(1_200_000, 0, limits)

		assert.False(t, result.Allowed)
		require.NotNil(t, result.RemainingBytes)
		assert.Equal(t, int64(0), *result.RemainingBytes)
		assert.Equal(t, 120.0, result.PercentageUsed)
	})
}

func TestDeniedStorageCheck(t *testing.T) {
	result := DeniedStorageCheck()

	assert.False(t, result.Allowed)
	assert.Equal(t, identity.TierUnknown, result.Tier)
	require.NotNil(t, result.LimitBytes)
	assert.Equal(t, int64(0), *result.LimitBytes)
	assert.Equal(t, 100.0, result.PercentageUsed)
}

func TestNewTokenCheckResult(t *testing.T) {
	limit := int64(500_000)

	t.Run("allows within the monthly limit", func(t *testing.T) {
		result := NewTokenCheckResult(450_000, 40_000, &limit)

		assert.True(t, result.Allowed)
		require.NotNil(t, result.RemainingTokens)
		assert.Equal(t, int64(50_000), *result.RemainingTokens)
		assert.Equal(t, 90.0, result.PercentageUsed)
	})

	t.Run("denies past the monthly limit", func(t *testing.T) {
		result := NewTokenCheckResult(510_000, 0, &limit)

		assert.False(t, result.Allowed)
		assert.Equal(t, 102.0, result.PercentageUsed)
		require.NotNil(t, result.RemainingTokens)
		assert.Equal(t, int64(0), *result.RemainingTokens)
	})

	t.Run("nil limit always allows", func(t *testing.T) {
		result := NewTokenCheckResult(1_000_000_000, 1_000_000, nil)

		assert.True(t, result.Allowed)
		assert.Nil(t, result.RemainingTokens)
		assert.Equal(t, 0.0, result.PercentageUsed)
	})
}
