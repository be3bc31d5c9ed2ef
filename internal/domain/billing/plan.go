package billing

import (
	"strings"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionPlan is a sellable bundle of limits assignable to an
// organization. A plan may override individual tier defaults; limits left
// nil fall through to the tier table (storage) or mean unlimited (tokens).
type SubscriptionPlan struct {
	shared.BaseEntity
	Name              string          `gorm:"type:varchar(100);not null"`
	Tier              identity.Tier   `gorm:"type:varchar(50);not null;index"`
	Description       string          `gorm:"type:text"`
	StorageLimitBytes *int64          `gorm:""` // nil = use tier default
	MonthlyTokenLimit *int64          `gorm:""` // nil = unlimited
	MonthlyPriceUSD   decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	IsActive          bool            `gorm:"not null;default:true"`
	SortOrder         int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// NewSubscriptionPlan creates a new plan for a tier
func NewSubscriptionPlan(name string, tier identity.Tier) (*SubscriptionPlan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan name cannot be empty")
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_TIER", "Unknown tier: "+string(tier))
	}

	return &SubscriptionPlan{
		BaseEntity:      shared.NewBaseEntity(),
		Name:            name,
		Tier:            tier,
		MonthlyPriceUSD: decimal.Zero,
		IsActive:        true,
	}, nil
}

// WithStorageLimit sets an explicit storage cap in bytes
func (p *SubscriptionPlan) WithStorageLimit(bytes int64) *SubscriptionPlan {
	if bytes >= 0 {
		p.StorageLimitBytes = &bytes
	}
	return p
}

// WithTokenLimit sets an explicit monthly token cap
func (p *SubscriptionPlan) WithTokenLimit(tokens int64) *SubscriptionPlan {
	if tokens >= 0 {
		p.MonthlyTokenLimit = &tokens
	}
	return p
}

// WithMonthlyPrice sets the display price
func (p *SubscriptionPlan) WithMonthlyPrice(price decimal.Decimal) *SubscriptionPlan {
	p.MonthlyPriceUSD = price
	return p
}

// Deactivate soft-deletes the plan
func (p *SubscriptionPlan) Deactivate() {
	p.IsActive = false
	p.Touch()
}
