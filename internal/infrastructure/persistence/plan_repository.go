package persistence

import (
	"context"
	"errors"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPlanRepository implements billing.PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID retrieves a plan by its ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionPlan, error) {
	var plan billing.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindByTier retrieves the active plans for a tier
func (r *GormPlanRepository) FindByTier(ctx context.Context, tier identity.Tier) ([]*billing.SubscriptionPlan, error) {
	var plans []*billing.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("tier = ?", string(tier)).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// Save persists a new plan
func (r *GormPlanRepository) Save(ctx context.Context, plan *billing.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// Update updates an existing plan
func (r *GormPlanRepository) Update(ctx context.Context, plan *billing.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// Ensure GormPlanRepository implements the interface
var _ billing.PlanRepository = (*GormPlanRepository)(nil)
