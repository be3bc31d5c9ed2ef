package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageEventModel is the GORM model for usage events
type UsageEventModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrganizationID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	UserID           *uuid.UUID      `gorm:"type:uuid"`
	RequestID        *string         `gorm:"type:varchar(255);uniqueIndex"`
	Feature          string          `gorm:"type:varchar(100);not null;index"`
	Provider         string          `gorm:"type:varchar(50)"`
	Model            string          `gorm:"type:varchar(100)"`
	InputTokens      int64           `gorm:"not null;default:0"`
	OutputTokens     int64           `gorm:"not null;default:0"`
	CachedTokens     int64           `gorm:"not null;default:0"`
	InputCost        decimal.Decimal `gorm:"type:numeric(12,6);not null;default:0"`
	OutputCost       decimal.Decimal `gorm:"type:numeric(12,6);not null;default:0"`
	ProcessingTimeMS *int64
	Metadata         []byte    `gorm:"type:jsonb;default:'{}'"`
	RecordedAt       time.Time `gorm:"not null;index"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageEventModel) TableName() string {
	return "usage_events"
}

// ToEntity converts the model to a domain entity
func (m *UsageEventModel) ToEntity() *billing.UsageEvent {
	var metadata billing.Metadata
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}
	if metadata == nil {
		metadata = make(billing.Metadata)
	}

	return &billing.UsageEvent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OrganizationID:   m.OrganizationID,
		UserID:           m.UserID,
		RequestID:        m.RequestID,
		Feature:          m.Feature,
		Provider:         m.Provider,
		Model:            m.Model,
		InputTokens:      m.InputTokens,
		OutputTokens:     m.OutputTokens,
		CachedTokens:     m.CachedTokens,
		InputCost:        m.InputCost,
		OutputCost:       m.OutputCost,
		ProcessingTimeMS: m.ProcessingTimeMS,
		Metadata:         metadata,
		RecordedAt:       m.RecordedAt,
	}
}

// UsageEventModelFromEntity creates a model from a domain entity
func UsageEventModelFromEntity(e *billing.UsageEvent) *UsageEventModel {
	var metadataBytes []byte
	if e.Metadata != nil {
		metadataBytes, _ = json.Marshal(e.Metadata)
	}

	return &UsageEventModel{
		ID:               e.ID,
		OrganizationID:   e.OrganizationID,
		UserID:           e.UserID,
		RequestID:        e.RequestID,
		Feature:          e.Feature,
		Provider:         e.Provider,
		Model:            e.Model,
		InputTokens:      e.InputTokens,
		OutputTokens:     e.OutputTokens,
		CachedTokens:     e.CachedTokens,
		InputCost:        e.InputCost,
		OutputCost:       e.OutputCost,
		ProcessingTimeMS: e.ProcessingTimeMS,
		Metadata:         metadataBytes,
		RecordedAt:       e.RecordedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// GormUsageEventRepository implements billing.UsageEventRepository
type GormUsageEventRepository struct {
	db *gorm.DB
}

// NewGormUsageEventRepository creates a new GormUsageEventRepository
func NewGormUsageEventRepository(db *gorm.DB) *GormUsageEventRepository {
	return &GormUsageEventRepository{db: db}
}

// Save persists a usage event. Events carrying a request ID are deduplicated
// on it: a second write with the same key is silently dropped.
func (r *GormUsageEventRepository) Save(ctx context.Context, event *billing.UsageEvent) error {
	model := UsageEventModelFromEntity(event)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}},
		DoNothing: true,
	}).Create(model).Error
}

// FindByID retrieves a usage event by its ID
func (r *GormUsageEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UsageEvent, error) {
	var model UsageEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByRequestID retrieves a usage event by its idempotency key
func (r *GormUsageEventRepository) FindByRequestID(ctx context.Context, requestID string) (*billing.UsageEvent, error) {
	var model UsageEventModel
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByOrganization retrieves events for an organization
func (r *GormUsageEventRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter billing.UsageEventFilter) ([]*billing.UsageEvent, error) {
	query := r.db.WithContext(ctx).
		Model(&UsageEventModel{}).
		Where("organization_id = ?", organizationID)

	if filter.StartTime != nil {
		query = query.Where("recorded_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("recorded_at < ?", *filter.EndTime)
	}
	if filter.Feature != "" {
		query = query.Where("feature = ?", filter.Feature)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Model != "" {
		query = query.Where("model = ?", filter.Model)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	query = query.Order("recorded_at DESC")

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var models []UsageEventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]*billing.UsageEvent, len(models))
	for i := range models {
		events[i] = models[i].ToEntity()
	}
	return events, nil
}

// SumTokens returns total input+output tokens recorded for an organization
// in a time range
func (r *GormUsageEventRepository) SumTokens(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&UsageEventModel{}).
		Where("organization_id = ?", organizationID).
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Select("COALESCE(SUM(input_tokens + output_tokens), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SumCost returns total cost recorded for an organization in a time range
func (r *GormUsageEventRepository) SumCost(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&UsageEventModel{}).
		Where("organization_id = ?", organizationID).
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Select("COALESCE(SUM(input_cost + output_cost), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Ensure GormUsageEventRepository implements the interface
var _ billing.UsageEventRepository = (*GormUsageEventRepository)(nil)
