package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/domain/shared"
)

// UsageEventModelSQLite is a SQLite-compatible version of UsageEventModel for testing
type UsageEventModelSQLite struct {
	ID               string  `gorm:"primaryKey"`
	OrganizationID   string  `gorm:"index;not null"`
	UserID           *string
	RequestID        *string `gorm:"uniqueIndex"`
	Feature          string  `gorm:"not null;index"`
	Provider         string
	Model            string
	InputTokens      int64 `gorm:"not null;default:0"`
	OutputTokens     int64 `gorm:"not null;default:0"`
	CachedTokens     int64 `gorm:"not null;default:0"`
	InputCost        string `gorm:"not null;default:0"`
	OutputCost       string `gorm:"not null;default:0"`
	ProcessingTimeMS *int64
	Metadata         []byte
	RecordedAt       time.Time `gorm:"not null;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (UsageEventModelSQLite) TableName() string {
	return "usage_events"
}

func setupUsageEventTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&UsageEventModelSQLite{})
	require.NoError(t, err)

	return db
}

func newTestEvent(t *testing.T, orgID uuid.UUID) *billing.UsageEvent {
	t.Helper()
	event, err := billing.NewUsageEvent(orgID, "document_agent", "openai", "gpt-4o-mini", 1200, 350)
	require.NoError(t, err)
	return event
}

func TestUsageEventRepository_Save(t *testing.T) {
	db := setupUsageEventTestDB(t)
	repo := NewGormUsageEventRepository(db)
	ctx := context.Background()

	t.Run("saves an event without request ID", func(t *testing.T) {
		orgID := uuid.New()
		event := newTestEvent(t, orgID)

		err := repo.Save(ctx, event)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, orgID, found.OrganizationID)
		assert.Equal(t, "document_agent", found.Feature)
		assert.Equal(t, int64(1550), found.TotalTokens())
	})

	t.Run("saves events with costs and metadata", func(t *testing.T) {
		orgID := uuid.New()
		event := newTestEvent(t, orgID)
		event.WithCosts(decimal.NewFromFloat(0.003), decimal.NewFromFloat(0.012)).
			WithMetadata("document_name", "report.pdf")

		err := repo.Save(ctx, event)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "0.015", found.TotalCost().String())
		assert.Equal(t, "report.pdf", found.Metadata["document_name"])
	})

	t.Run("deduplicates on request ID", func(t *testing.T) {
		orgID := uuid.New()

		first := newTestEvent(t, orgID)
		first.WithRequestID("req-dup-1")
		require.NoError(t, repo.Save(ctx, first))

		// Retry with the same idempotency key is a silent no-op
		second := newTestEvent(t, orgID)
		second.WithRequestID("req-dup-1")
		second.InputTokens = 999
		require.NoError(t, repo.Save(ctx, second))

		found, err := repo.FindByRequestID(ctx, "req-dup-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, int64(1200), found.InputTokens)
	})

	t.Run("events without request ID never collide", func(t *testing.T) {
		orgID := uuid.New()

		require.NoError(t, repo.Save(ctx, newTestEvent(t, orgID)))
		require.NoError(t, repo.Save(ctx, newTestEvent(t, orgID)))

		events, err := repo.FindByOrganization(ctx, orgID, billing.DefaultUsageEventFilter())
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

func TestUsageEventRepository_FindByRequestID(t *testing.T) {
	db := setupUsageEventTestDB(t)
	repo := NewGormUsageEventRepository(db)
	ctx := context.Background()

	t.Run("returns ErrNotFound for unknown key", func(t *testing.T) {
		_, err := repo.FindByRequestID(ctx, "req-missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestUsageEventRepository_FindByOrganization(t *testing.T) {
	db := setupUsageEventTestDB(t)
	repo := NewGormUsageEventRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	otherOrgID := uuid.New()
	userID := uuid.New()

	seed := func(feature, provider string, recordedAt time.Time, uid *uuid.UUID) {
		event, err := billing.NewUsageEvent(orgID, feature, provider, "gpt-4o-mini", 100, 50)
		require.NoError(t, err)
		event.RecordedAt = recordedAt
		if uid != nil {
			event.WithUser(*uid)
		}
		require.NoError(t, repo.Save(ctx, event))
	}

	now := time.Now().UTC().Truncate(time.Second)
	seed("document_agent", "openai", now.Add(-48*time.Hour), nil)
	seed("document_agent", "openai", now.Add(-1*time.Hour), &userID)
	seed("rag_search", "google", now.Add(-30*time.Minute), nil)

	other := newTestEvent(t, otherOrgID)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("scopes to the organization", func(t *testing.T) {
		events, err := repo.FindByOrganization(ctx, orgID, billing.DefaultUsageEventFilter())
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("filters by feature", func(t *testing.T) {
		filter := billing.DefaultUsageEventFilter()
		filter.Feature = "rag_search"

		events, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "rag_search", events[0].Feature)
	})

	t.Run("filters by time range", func(t *testing.T) {
		start := now.Add(-2 * time.Hour)
		end := now
		filter := billing.DefaultUsageEventFilter()
		filter.StartTime = &start
		filter.EndTime = &end

		events, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("filters by user", func(t *testing.T) {
		filter := billing.DefaultUsageEventFilter()
		filter.UserID = &userID

		events, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].UserID)
		assert.Equal(t, userID, *events[0].UserID)
	})

	t.Run("orders newest first", func(t *testing.T) {
		events, err := repo.FindByOrganization(ctx, orgID, billing.DefaultUsageEventFilter())
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "rag_search", events[0].Feature)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := billing.DefaultUsageEventFilter()
		filter.PageSize = 2

		page1, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		assert.Len(t, page1, 2)

		filter.Page = 2
		page2, err := repo.FindByOrganization(ctx, orgID, filter)
		require.NoError(t, err)
		assert.Len(t, page2, 1)
	})
}

func TestUsageEventRepository_Sums(t *testing.T) {
	db := setupUsageEventTestDB(t)
	repo := NewGormUsageEventRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	periodStart := now.Add(-24 * time.Hour)
	periodEnd := now.Add(time.Hour)

	seed := func(input, output int64, inputCost, outputCost string, recordedAt time.Time) {
		event, err := billing.NewUsageEvent(orgID, "document_agent", "openai", "gpt-4o-mini", input, output)
		require.NoError(t, err)
		event.RecordedAt = recordedAt
		event.WithCosts(decimal.RequireFromString(inputCost), decimal.RequireFromString(outputCost))
		require.NoError(t, repo.Save(ctx, event))
	}

	seed(1000, 500, "0.010", "0.020", now.Add(-2*time.Hour))
	seed(2000, 1000, "0.005", "0.015", now.Add(-1*time.Hour))
	// Outside the window
	seed(9999, 9999, "1.000", "1.000", now.Add(-48*time.Hour))

	t.Run("sums tokens in range", func(t *testing.T) {
		total, err := repo.SumTokens(ctx, orgID, periodStart, periodEnd)
		require.NoError(t, err)
		assert.Equal(t, int64(4500), total)
	})

	t.Run("sums costs in range", func(t *testing.T) {
		total, err := repo.SumCost(ctx, orgID, periodStart, periodEnd)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("0.05")), "got %s", total)
	})

	t.Run("empty range sums to zero", func(t *testing.T) {
		total, err := repo.SumTokens(ctx, uuid.New(), periodStart, periodEnd)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)

		cost, err := repo.SumCost(ctx, uuid.New(), periodStart, periodEnd)
		require.NoError(t, err)
		assert.True(t, cost.IsZero())
	})
}
