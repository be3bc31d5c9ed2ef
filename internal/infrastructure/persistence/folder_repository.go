package persistence

import (
	"context"
	"errors"

	"github.com/biz2bricks/backend/internal/domain/document"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFolderRepository implements document.FolderRepository using GORM
type GormFolderRepository struct {
	db *gorm.DB
}

// NewGormFolderRepository creates a new GormFolderRepository
func NewGormFolderRepository(db *gorm.DB) *GormFolderRepository {
	return &GormFolderRepository{db: db}
}

// FindByID finds a folder by its ID
func (r *GormFolderRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Folder, error) {
	var folder document.Folder
	if err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &folder, nil
}

// FindByOrganization finds folders belonging to an organization
func (r *GormFolderRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]*document.Folder, error) {
	query := r.db.WithContext(ctx).
		Model(&document.Folder{}).
		Where("organization_id = ?", organizationID)

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if parentID, ok := filter.Filters["parent_id"]; ok {
		query = query.Where("parent_id = ?", parentID)
	}

	orderBy := ValidateSortField(filter.OrderBy, FolderSortFields, "name")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var folders []*document.Folder
	if err := query.Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

// Save persists a new folder
func (r *GormFolderRepository) Save(ctx context.Context, folder *document.Folder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}

// Update updates an existing folder
func (r *GormFolderRepository) Update(ctx context.Context, folder *document.Folder) error {
	return r.db.WithContext(ctx).Save(folder).Error
}

// Delete removes a folder
func (r *GormFolderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&document.Folder{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormFolderRepository implements the interface
var _ document.FolderRepository = (*GormFolderRepository)(nil)
