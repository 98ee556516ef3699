package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronhq/creatorkit/modules/membership"
)

var tierCols = []string{
	"id", "creator_id", "name", "description", "price", "billing_interval",
	"capacity", "subscriber_count", "provider_price_ref", "active", "created_at", "updated_at",
}

func tierRow(tier membership.Tier) *pgxmock.Rows {
	return pgxmock.NewRows(tierCols).AddRow(
		tier.ID, tier.CreatorID, tier.Name, tier.Description, tier.Price,
		tier.BillingInterval, tier.Capacity, tier.SubscriberCount,
		tier.ProviderPriceRef, tier.Active, tier.CreatedAt, tier.UpdatedAt,
	)
}

func testTier() membership.Tier {
	return membership.Tier{
		ID:              uuid.New(),
		CreatorID:       uuid.New(),
		Name:            "Gold",
		Price:           decimal.RequireFromString("9.99"),
		BillingInterval: membership.IntervalMonthly,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func TestTierRegistryCreateTier(t *testing.T) {
	t.Run("rejects non-positive price", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		registry := membership.NewTierRegistry(pool)
		_, err = registry.CreateTier(context.Background(), membership.CreateTierParams{
			CreatorID:       uuid.New(),
			Name:            "Free",
			Price:           decimal.Zero,
			BillingInterval: membership.IntervalMonthly,
		})
		require.ErrorIs(t, err, membership.ErrInvalidTierPrice)
	})

	t.Run("rejects zero capacity", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		capacity := int32(0)
		registry := membership.NewTierRegistry(pool)
		_, err = registry.CreateTier(context.Background(), membership.CreateTierParams{
			CreatorID:       uuid.New(),
			Name:            "Gold",
			Price:           decimal.RequireFromString("5"),
			BillingInterval: membership.IntervalMonthly,
			Capacity:        &capacity,
		})
		require.ErrorIs(t, err, membership.ErrInvalidTierCapacity)
	})

	t.Run("rejects unknown interval", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		registry := membership.NewTierRegistry(pool)
		_, err = registry.CreateTier(context.Background(), membership.CreateTierParams{
			CreatorID:       uuid.New(),
			Name:            "Gold",
			Price:           decimal.RequireFromString("5"),
			BillingInterval: "weekly",
		})
		require.ErrorIs(t, err, membership.ErrInvalidInterval)
	})

	t.Run("persists and returns the row", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		tier := testTier()
		pool.ExpectQuery("INSERT INTO tiers").
			WithArgs(pgxmock.AnyArg(), tier.CreatorID, tier.Name, "",
				tier.Price, tier.BillingInterval, (*int32)(nil), "").
			WillReturnRows(tierRow(tier))

		registry := membership.NewTierRegistry(pool)
		created, err := registry.CreateTier(context.Background(), membership.CreateTierParams{
			CreatorID:       tier.CreatorID,
			Name:            tier.Name,
			Price:           tier.Price,
			BillingInterval: tier.BillingInterval,
		})
		require.NoError(t, err)
		assert.Equal(t, tier.ID, created.ID)
		assert.True(t, created.Price.Equal(tier.Price))
		require.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestTierRegistryUpdateTier(t *testing.T) {
	t.Run("capacity below subscriber count is rejected", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		capacity := int32(3)
		pool.ExpectQuery("UPDATE tiers").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "tiers_count_within_capacity"})

		registry := membership.NewTierRegistry(pool)
		_, err = registry.UpdateTier(context.Background(), uuid.New(), membership.UpdateTierParams{
			Capacity: &capacity,
		})
		require.ErrorIs(t, err, membership.ErrCapacityBelowCount)
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("missing tier yields not found", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectQuery("UPDATE tiers").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		registry := membership.NewTierRegistry(pool)
		name := "Renamed"
		_, err = registry.UpdateTier(context.Background(), uuid.New(), membership.UpdateTierParams{
			Name: &name,
		})
		require.ErrorIs(t, err, membership.ErrTierNotFound)
	})
}

func TestTierRegistryReserveSlot(t *testing.T) {
	tierID := uuid.New()

	t.Run("claims a slot", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectExec("UPDATE tiers").
			WithArgs(tierID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		registry := membership.NewTierRegistry(pool)
		require.NoError(t, registry.ReserveSlot(context.Background(), tierID))
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("full tier yields capacity error", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectExec("UPDATE tiers").
			WithArgs(tierID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		pool.ExpectQuery("SELECT EXISTS").
			WithArgs(tierID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		registry := membership.NewTierRegistry(pool)
		err = registry.ReserveSlot(context.Background(), tierID)
		require.ErrorIs(t, err, membership.ErrTierCapacityExceeded)
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("missing tier yields not found", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectExec("UPDATE tiers").
			WithArgs(tierID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		pool.ExpectQuery("SELECT EXISTS").
			WithArgs(tierID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		registry := membership.NewTierRegistry(pool)
		err = registry.ReserveSlot(context.Background(), tierID)
		require.ErrorIs(t, err, membership.ErrTierNotFound)
	})
}

func TestTierRegistryReleaseSlot(t *testing.T) {
	tierID := uuid.New()

	t.Run("releases a slot", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectExec("UPDATE tiers").
			WithArgs(tierID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		registry := membership.NewTierRegistry(pool)
		require.NoError(t, registry.ReleaseSlot(context.Background(), tierID))
	})

	t.Run("missing tier yields not found", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		pool.ExpectExec("UPDATE tiers").
			WithArgs(tierID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		registry := membership.NewTierRegistry(pool)
		require.ErrorIs(t, registry.ReleaseSlot(context.Background(), tierID), membership.ErrTierNotFound)
	})
}

func TestTierRegistryGetTier(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		pool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer pool.Close()

		tierID := uuid.New()
		pool.ExpectQuery("FROM tiers WHERE id").
			WithArgs(tierID).
			WillReturnError(pgx.ErrNoRows)

		registry := membership.NewTierRegistry(pool)
		_, err = registry.GetTier(context.Background(), tierID)
		require.ErrorIs(t, err, membership.ErrTierNotFound)
	})
}

func TestTierHasCapacityFor(t *testing.T) {
	capacity := int32(2)

	unlimited := membership.Tier{}
	assert.True(t, unlimited.HasCapacityFor())

	open := membership.Tier{Capacity: &capacity, SubscriberCount: 1}
	assert.True(t, open.HasCapacityFor())

	full := membership.Tier{Capacity: &capacity, SubscriberCount: 2}
	assert.False(t, full.HasCapacityFor())
}
