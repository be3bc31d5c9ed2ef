package identity

import (
	"strings"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SubscriptionStatus represents the billing state of an organization
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
)

// Tier represents the named limit bundle an organization belongs to.
// An explicit subscription plan can override individual tier limits.
type Tier string

const (
	TierFree     Tier = "free"
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is a known tier
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierStarter, TierPro, TierBusiness:
		return true
	}
	return false
}

// TierUnknown is the sentinel tier reported when an organization cannot be
// resolved. It never appears on a persisted organization.
const TierUnknown Tier = "unknown"

// Organization represents a tenant in the multi-tenant system.
// It is the isolation and billing unit; all documents, users, and usage
// counters are scoped to an organization.
type Organization struct {
	shared.BaseEntity
	Name               string             `gorm:"type:varchar(255);not null;uniqueIndex"`
	Domain             string             `gorm:"type:varchar(255)"`
	Tier               Tier               `gorm:"type:varchar(50);not null;default:'free'"`
	PlanID             *uuid.UUID         `gorm:"type:uuid;index"` // Optional subscription plan override
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Settings           string             `gorm:"type:jsonb;not null;default:'{}'"`
	IsActive           bool               `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates a new organization with required fields
func NewOrganization(name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Organization name cannot be empty")
	}
	if len(name) > 255 {
		return nil, shared.NewDomainError("INVALID_NAME", "Organization name is too long")
	}

	return &Organization{
		BaseEntity:         shared.NewBaseEntity(),
		Name:               name,
		Tier:               TierFree,
		SubscriptionStatus: SubscriptionStatusActive,
		Settings:           "{}",
		IsActive:           true,
	}, nil
}

// ChangeTier moves the organization to a different tier
func (o *Organization) ChangeTier(tier Tier) error {
	if !tier.IsValid() {
		return shared.NewDomainError("INVALID_TIER", "Unknown tier: "+string(tier))
	}
	o.Tier = tier
	o.Touch()
	return nil
}

// AssignPlan attaches a subscription plan to the organization
func (o *Organization) AssignPlan(planID uuid.UUID) {
	o.PlanID = &planID
	o.Touch()
}

// ClearPlan detaches any subscription plan, falling back to tier defaults
func (o *Organization) ClearPlan() {
	o.PlanID = nil
	o.Touch()
}

// SetSubscriptionStatus updates the billing state
func (o *Organization) SetSubscriptionStatus(status SubscriptionStatus) {
	o.SubscriptionStatus = status
	o.Touch()
}

// Deactivate marks the organization inactive
func (o *Organization) Deactivate() {
	o.IsActive = false
	o.Touch()
}

// Activate marks the organization active
func (o *Organization) Activate() {
	o.IsActive = true
	o.Touch()
}
