package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/biz2bricks/backend/internal/domain/document"
	"github.com/biz2bricks/backend/internal/domain/shared"
)

func setupFolderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&document.Folder{})
	require.NoError(t, err)

	return db
}

func newTestFolder(t *testing.T, organizationID uuid.UUID, name string) *document.Folder {
	t.Helper()
	folder, err := document.NewFolder(organizationID, uuid.New(), name)
	require.NoError(t, err)
	return folder
}

func TestFolderRepository_SaveAndFind(t *testing.T) {
	db := setupFolderTestDB(t)
	repo := NewGormFolderRepository(db)
	ctx := context.Background()
	orgID := uuid.New()

	folder := newTestFolder(t, orgID, "Contracts")
	require.NoError(t, repo.Save(ctx, folder))

	found, err := repo.FindByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contracts", found.Name)
	assert.Equal(t, orgID, found.OrganizationID)
	assert.Nil(t, found.ParentID)
}

func TestFolderRepository_FindByIDNotFound(t *testing.T) {
	db := setupFolderTestDB(t)
	repo := NewGormFolderRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFolderRepository_FindByOrganization(t *testing.T) {
	db := setupFolderTestDB(t)
	repo := NewGormFolderRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	otherOrgID := uuid.New()

	root := newTestFolder(t, orgID, "Root")
	require.NoError(t, repo.Save(ctx, root))

	child := newTestFolder(t, orgID, "Invoices")
	child.MoveTo(&root.ID)
	require.NoError(t, repo.Save(ctx, child))

	require.NoError(t, repo.Save(ctx, newTestFolder(t, otherOrgID, "Elsewhere")))

	filter := shared.DefaultFilter()
	filter.OrderBy = "name"
	filter.OrderDir = "asc"

	folders, err := repo.FindByOrganization(ctx, orgID, filter)
	require.NoError(t, err)
	require.Len(t, folders, 2, "folders from other organizations must not leak")
	assert.Equal(t, "Invoices", folders[0].Name)
	assert.Equal(t, "Root", folders[1].Name)

	t.Run("filter by parent", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["parent_id"] = root.ID

		children, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, child.ID, children[0].ID)
	})
}

func TestFolderRepository_Update(t *testing.T) {
	db := setupFolderTestDB(t)
	repo := NewGormFolderRepository(db)
	ctx := context.Background()

	folder := newTestFolder(t, uuid.New(), "Drafts")
	require.NoError(t, repo.Save(ctx, folder))

	require.NoError(t, folder.Rename("Archive"))
	require.NoError(t, repo.Update(ctx, folder))

	found, err := repo.FindByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Archive", found.Name)
}

func TestFolderRepository_Delete(t *testing.T) {
	db := setupFolderTestDB(t)
	repo := NewGormFolderRepository(db)
	ctx := context.Background()

	folder := newTestFolder(t, uuid.New(), "Temp")
	require.NoError(t, repo.Save(ctx, folder))

	require.NoError(t, repo.Delete(ctx, folder.ID))

	_, err := repo.FindByID(ctx, folder.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, folder.ID), shared.ErrNotFound)
}
