package identity

import (
	"context"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrganizationRepository defines persistence operations for organizations
type OrganizationRepository interface {
	// FindByID retrieves an organization by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// FindByName retrieves an organization by its unique name
	FindByName(ctx context.Context, name string) (*Organization, error)

	// FindAll retrieves organizations matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]*Organization, error)

	// FindActiveIDs returns the IDs of all active organizations
	FindActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// Save persists a new organization
	Save(ctx context.Context, org *Organization) error

	// Update updates an existing organization
	Update(ctx context.Context, org *Organization) error

	// Delete removes an organization
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	// FindByID retrieves a user by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail retrieves a user by email address
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByOrganization retrieves users belonging to an organization
	FindByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]*User, error)

	// Save persists a new user
	Save(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// Delete removes a user
	Delete(ctx context.Context, id uuid.UUID) error
}
