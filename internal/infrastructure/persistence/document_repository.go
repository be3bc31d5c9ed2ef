package persistence

import (
	"context"
	"errors"

	"github.com/biz2bricks/backend/internal/domain/document"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByOrganization finds documents belonging to an organization
func (r *GormDocumentRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]*document.Document, error) {
	query := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Where("organization_id = ?", organizationID)

	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("filename ILIKE ? OR original_filename ILIKE ?", keyword, keyword)
	}

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if active, ok := filter.Filters["is_active"]; ok {
		query = query.Where("is_active = ?", active)
	}
	if folderID, ok := filter.Filters["folder_id"]; ok {
		query = query.Where("folder_id = ?", folderID)
	}

	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var docs []*document.Document
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// SumActiveSizes returns the total file size in bytes of all active documents
// for an organization. An organization with no documents sums to zero.
func (r *GormDocumentRepository) SumActiveSizes(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Save persists a new document
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update updates an existing document
func (r *GormDocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Delete removes a document record
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&document.Document{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormDocumentRepository implements the interface
var _ document.Repository = (*GormDocumentRepository)(nil)
