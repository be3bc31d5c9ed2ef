package document

import (
	"strings"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Folder organizes documents in a hierarchy within an organization
type Folder struct {
	shared.BaseEntity
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentID       *uuid.UUID `gorm:"type:uuid;index"`
	Name           string     `gorm:"type:varchar(255);not null"`
	CreatedBy      uuid.UUID  `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (Folder) TableName() string {
	return "folders"
}

// NewFolder creates a new folder in an organization
func NewFolder(organizationID, createdBy uuid.UUID, name string) (*Folder, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Folder name cannot be empty")
	}

	return &Folder{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Name:           name,
		CreatedBy:      createdBy,
	}, nil
}

// Rename changes the folder name
func (f *Folder) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Folder name cannot be empty")
	}
	f.Name = name
	f.Touch()
	return nil
}

// MoveTo reparents the folder
func (f *Folder) MoveTo(parentID *uuid.UUID) {
	f.ParentID = parentID
	f.Touch()
}
