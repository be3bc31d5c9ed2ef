package document

import (
	"context"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines persistence operations for documents
type Repository interface {
	// FindByID retrieves a document by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByOrganization retrieves documents belonging to an organization
	FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]*Document, error)

	// SumActiveSizes returns the total file size in bytes of all active
	// documents for an organization. This is the authoritative source of
	// truth for storage accounting.
	SumActiveSizes(ctx context.Context, organizationID uuid.UUID) (int64, error)

	// Save persists a new document
	Save(ctx context.Context, doc *Document) error

	// Update updates an existing document
	Update(ctx context.Context, doc *Document) error

	// Delete removes a document record
	Delete(ctx context.Context, id uuid.UUID) error
}

// FolderRepository defines persistence operations for folders
type FolderRepository interface {
	// FindByID retrieves a folder by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Folder, error)

	// FindByOrganization retrieves folders belonging to an organization
	FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]*Folder, error)

	// Save persists a new folder
	Save(ctx context.Context, folder *Folder) error

	// Update updates an existing folder
	Update(ctx context.Context, folder *Folder) error

	// Delete removes a folder
	Delete(ctx context.Context, id uuid.UUID) error
}
