package document

import (
	"strings"
	"time"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the processing state of a document
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusParsed     Status = "parsed"
	StatusFailed     Status = "failed"
)

// IsValid returns true if the status is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusParsed, StatusFailed:
		return true
	}
	return false
}

// Document represents document metadata scoped to an organization.
// The file contents live in external object storage; this entity tracks
// only the descriptive record. FileSize on active documents is the ground
// truth for storage accounting.
type Document struct {
	shared.BaseEntity
	OrganizationID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_documents_org_active,priority:1"`
	FolderID         *uuid.UUID `gorm:"type:uuid;index"`
	Filename         string     `gorm:"type:varchar(255);not null"`
	OriginalFilename string     `gorm:"type:varchar(255);not null"`
	FileType         string     `gorm:"type:varchar(20);not null"`
	FileSize         int64      `gorm:"not null"`
	StoragePath      string     `gorm:"type:text;not null"`
	Status           Status     `gorm:"type:varchar(50);not null;default:'uploaded'"`
	UploadedBy       uuid.UUID  `gorm:"type:uuid;not null"`
	IsActive         bool       `gorm:"not null;default:true;index:idx_documents_org_active,priority:2"`
	FileHash         *string    `gorm:"type:varchar(64);uniqueIndex"` // SHA-256 content hash for deduplication
	ParsedPath       *string    `gorm:"type:text"`
	ParsedAt         *time.Time
	Metadata         string `gorm:"type:jsonb;not null;default:'{}'"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new document record
func NewDocument(organizationID, uploadedBy uuid.UUID, filename, fileType, storagePath string, fileSize int64) (*Document, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if uploadedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Uploader ID cannot be empty")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, shared.NewDomainError("INVALID_FILENAME", "Filename cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}
	if storagePath == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_PATH", "Storage path cannot be empty")
	}

	return &Document{
		BaseEntity:       shared.NewBaseEntity(),
		OrganizationID:   organizationID,
		Filename:         filename,
		OriginalFilename: filename,
		FileType:         fileType,
		FileSize:         fileSize,
		StoragePath:      storagePath,
		Status:           StatusUploaded,
		UploadedBy:       uploadedBy,
		IsActive:         true,
		Metadata:         "{}",
	}, nil
}

// MoveToFolder places the document in a folder
func (d *Document) MoveToFolder(folderID uuid.UUID) {
	d.FolderID = &folderID
	d.Touch()
}

// MarkParsed records a successful parse
func (d *Document) MarkParsed(parsedPath string, at time.Time) {
	d.Status = StatusParsed
	d.ParsedPath = &parsedPath
	d.ParsedAt = &at
	d.Touch()
}

// MarkFailed records a failed processing attempt
func (d *Document) MarkFailed() {
	d.Status = StatusFailed
	d.Touch()
}

// Deactivate soft-deletes the document. Deactivated documents no longer
// count toward the organization's storage usage.
func (d *Document) Deactivate() {
	d.IsActive = false
	d.Touch()
}

// SetFileHash records the content hash for deduplication
func (d *Document) SetFileHash(hash string) {
	d.FileHash = &hash
	d.Touch()
}
