package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/biz2bricks/backend/internal/domain/shared"
)

func setupOrganizationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&identity.Organization{})
	require.NoError(t, err)

	return db
}

func newTestOrganization(t *testing.T, name string) *identity.Organization {
	t.Helper()
	org, err := identity.NewOrganization(name)
	require.NoError(t, err)
	return org
}

func TestOrganizationRepository_SaveAndFind(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	t.Run("saves and retrieves an organization", func(t *testing.T) {
		org := newTestOrganization(t, "Acme Corp")
		require.NoError(t, repo.Save(ctx, org))

		found, err := repo.FindByID(ctx, org.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", found.Name)
		assert.Equal(t, identity.TierFree, found.Tier)
		assert.True(t, found.IsActive)
	})

	t.Run("returns ErrNotFound for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds by name case-insensitively", func(t *testing.T) {
		org := newTestOrganization(t, "Globex")
		require.NoError(t, repo.Save(ctx, org))

		found, err := repo.FindByName(ctx, "gLoBeX")
		require.NoError(t, err)
		assert.Equal(t, org.ID, found.ID)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		first := newTestOrganization(t, "Initech")
		require.NoError(t, repo.Save(ctx, first))

		dup := newTestOrganization(t, "Initech")
		assert.Error(t, repo.Save(ctx, dup))
	})
}

func TestOrganizationRepository_Update(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	org := newTestOrganization(t, "Umbrella")
	require.NoError(t, repo.Save(ctx, org))

	require.NoError(t, org.ChangeTier(identity.TierPro))
	planID := uuid.New()
	org.AssignPlan(planID)
	require.NoError(t, repo.Update(ctx, org))

	found, err := repo.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.TierPro, found.Tier)
	require.NotNil(t, found.PlanID)
	assert.Equal(t, planID, *found.PlanID)
}

func TestOrganizationRepository_FindActiveIDs(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	active1 := newTestOrganization(t, "Active One")
	active2 := newTestOrganization(t, "Active Two")
	inactive := newTestOrganization(t, "Shut Down")
	inactive.Deactivate()

	require.NoError(t, repo.Save(ctx, active1))
	require.NoError(t, repo.Save(ctx, active2))
	require.NoError(t, repo.Save(ctx, inactive))

	ids, err := repo.FindActiveIDs(ctx)
	require.NoError(t, err)

	assert.Len(t, ids, 2)
	assert.Contains(t, ids, active1.ID)
	assert.Contains(t, ids, active2.ID)
	assert.NotContains(t, ids, inactive.ID)
}

func TestOrganizationRepository_FindAll(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		require.NoError(t, repo.Save(ctx, newTestOrganization(t, name)))
	}

	t.Run("returns all with default filter", func(t *testing.T) {
		orgs, err := repo.FindAll(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, orgs, 3)
	})

	t.Run("orders by name ascending", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "name"
		filter.OrderDir = "asc"

		orgs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, orgs, 3)
		assert.Equal(t, "Alpha", orgs[0].Name)
		assert.Equal(t, "Gamma", orgs[2].Name)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2

		orgs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, orgs, 2)
	})

	t.Run("rejects unsafe sort fields", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "name; DROP TABLE organizations"

		// Falls back to the default sort field instead of failing
		orgs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, orgs, 3)
	})
}

func TestOrganizationRepository_Delete(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	t.Run("deletes an existing organization", func(t *testing.T) {
		org := newTestOrganization(t, "Doomed Inc")
		require.NoError(t, repo.Save(ctx, org))

		require.NoError(t, repo.Delete(ctx, org.ID))

		_, err := repo.FindByID(ctx, org.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns ErrNotFound for missing organization", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
