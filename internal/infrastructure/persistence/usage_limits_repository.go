package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageLimitsModel is the GORM model for per-organization usage counters
type UsageLimitsModel struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	StorageUsedBytes     int64     `gorm:"not null"`
	StorageLimitBytes    *int64
	TokensUsedThisPeriod int64 `gorm:"not null"`
	MonthlyTokenLimit    *int64
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageLimitsModel) TableName() string {
	return "usage_limits"
}

// ToEntity converts the model to a domain entity
func (m *UsageLimitsModel) ToEntity() *billing.UsageLimits {
	return &billing.UsageLimits{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OrganizationID:       m.OrganizationID,
		StorageUsedBytes:     m.StorageUsedBytes,
		StorageLimitBytes:    m.StorageLimitBytes,
		TokensUsedThisPeriod: m.TokensUsedThisPeriod,
		MonthlyTokenLimit:    m.MonthlyTokenLimit,
	}
}

// UsageLimitsModelFromEntity creates a model from a domain entity
func UsageLimitsModelFromEntity(e *billing.UsageLimits) *UsageLimitsModel {
	return &UsageLimitsModel{
		ID:                   e.ID,
		OrganizationID:       e.OrganizationID,
		StorageUsedBytes:     e.StorageUsedBytes,
		StorageLimitBytes:    e.StorageLimitBytes,
		TokensUsedThisPeriod: e.TokensUsedThisPeriod,
		MonthlyTokenLimit:    e.MonthlyTokenLimit,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// GormUsageLimitsRepository implements billing.UsageLimitsRepository.
// All counter mutations run inside a transaction that takes a row-level
// exclusive lock (SELECT ... FOR UPDATE) on the organization's row, so
// concurrent commits for the same organization serialize while different
// organizations proceed independently.
type GormUsageLimitsRepository struct {
	db *gorm.DB
}

// NewGormUsageLimitsRepository creates a new GormUsageLimitsRepository
func NewGormUsageLimitsRepository(db *gorm.DB) *GormUsageLimitsRepository {
	return &GormUsageLimitsRepository{db: db}
}

// FindByOrganization retrieves the counter row for an organization
func (r *GormUsageLimitsRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*billing.UsageLimits, error) {
	var model UsageLimitsModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ApplyStorageDelta atomically applies a signed byte delta to the storage
// counter and returns the new value. The row is created lazily on first
// commit; negative results clamp to zero.
func (r *GormUsageLimitsRepository) ApplyStorageDelta(ctx context.Context, organizationID uuid.UUID, deltaBytes int64) (int64, error) {
	var newValue int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := r.lockOrCreateRow(tx, organizationID)
		if err != nil {
			return err
		}

		entity := model.ToEntity()
		newValue = entity.ApplyStorageDelta(deltaBytes)

		return tx.Model(&UsageLimitsModel{}).
			Where("organization_id = ?", organizationID).
			Updates(map[string]interface{}{
				"storage_used_bytes": newValue,
				"updated_at":         time.Now(),
			}).Error
	})
	if err != nil {
		return 0, mapLockWaitError(ctx, err)
	}
	return newValue, nil
}

// ApplyTokenDelta atomically adds tokens to the period counter and returns
// the new value. The row is created lazily on first commit.
func (r *GormUsageLimitsRepository) ApplyTokenDelta(ctx context.Context, organizationID uuid.UUID, tokens int64) (int64, error) {
	var newValue int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := r.lockOrCreateRow(tx, organizationID)
		if err != nil {
			return err
		}

		entity := model.ToEntity()
		newValue = entity.AddTokens(tokens)

		return tx.Model(&UsageLimitsModel{}).
			Where("organization_id = ?", organizationID).
			Updates(map[string]interface{}{
				"tokens_used_this_period": newValue,
				"updated_at":              time.Now(),
			}).Error
	})
	if err != nil {
		return 0, mapLockWaitError(ctx, err)
	}
	return newValue, nil
}

// OverwriteStorageUsed upserts the storage counter to an absolute value,
// replacing whatever was cached. Used only by reconciliation.
func (r *GormUsageLimitsRepository) OverwriteStorageUsed(ctx context.Context, organizationID uuid.UUID, bytes int64) error {
	if bytes < 0 {
		bytes = 0
	}

	entity, err := billing.NewUsageLimits(organizationID)
	if err != nil {
		return err
	}
	entity.StorageUsedBytes = bytes
	model := UsageLimitsModelFromEntity(entity)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"storage_used_bytes",
			"updated_at",
		}),
	}).Create(model).Error
}

// mapLockWaitError translates a context expiry during the locked counter
// transaction into the domain's lock timeout error. The caller bounds the
// row-lock wait with a context deadline; the driver surfaces the expiry in
// driver-specific ways, so the context is consulted as well.
func mapLockWaitError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.ErrLockTimeout
	}
	return err
}

// lockOrCreateRow ensures the counter row exists and returns it locked
// FOR UPDATE within the given transaction.
func (r *GormUsageLimitsRepository) lockOrCreateRow(tx *gorm.DB, organizationID uuid.UUID) (*UsageLimitsModel, error) {
	var model UsageLimitsModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ?", organizationID).
		First(&model).Error
	if err == nil {
		return &model, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// First commit for this organization: insert a zeroed row, tolerating a
	// concurrent insert, then lock it.
	entity, err := billing.NewUsageLimits(organizationID)
	if err != nil {
		return nil, err
	}
	fresh := UsageLimitsModelFromEntity(entity)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		DoNothing: true,
	}).Create(fresh).Error; err != nil {
		return nil, err
	}

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ?", organizationID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// Ensure GormUsageLimitsRepository implements the interface
var _ billing.UsageLimitsRepository = (*GormUsageLimitsRepository)(nil)
