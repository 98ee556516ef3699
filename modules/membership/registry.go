package membership

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patronhq/creatorkit/pkg/pg"
)

// TierRegistry owns tier definitions and their subscriber counters.
type TierRegistry struct {
	db DBTX
}

// NewTierRegistry creates a registry bound to a pool or transaction.
func NewTierRegistry(db DBTX) *TierRegistry {
	return &TierRegistry{db: db}
}

// WithTx returns a registry bound to the given transaction.
func (r *TierRegistry) WithTx(tx DBTX) *TierRegistry {
	return &TierRegistry{db: tx}
}

// CreateTierParams carries the creator-supplied tier definition.
type CreateTierParams struct {
	CreatorID        uuid.UUID
	Name             string
	Description      string
	Price            decimal.Decimal
	BillingInterval  BillingInterval
	Capacity         *int32
	ProviderPriceRef string
}

const tierColumns = `id, creator_id, name, description, price, billing_interval,
	capacity, subscriber_count, provider_price_ref, active, created_at, updated_at`

// CreateTier validates and persists a new tier. New tiers start active with
// a zero subscriber count.
func (r *TierRegistry) CreateTier(ctx context.Context, params CreateTierParams) (*Tier, error) {
	if !params.Price.IsPositive() {
		return nil, ErrInvalidTierPrice
	}
	if !params.BillingInterval.Valid() {
		return nil, ErrInvalidInterval
	}
	if params.Capacity != nil && *params.Capacity <= 0 {
		return nil, ErrInvalidTierCapacity
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO tiers (id, creator_id, name, description, price, billing_interval, capacity, provider_price_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+tierColumns,
		uuid.New(), params.CreatorID, params.Name, params.Description,
		params.Price, params.BillingInterval, params.Capacity, params.ProviderPriceRef,
	)

	tier, err := scanTier(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create tier: %w", err)
	}
	return tier, nil
}

// UpdateTierParams carries the mutable tier fields. Nil pointers leave the
// column unchanged. Capacity changes never evict existing subscribers: a new
// capacity below the current subscriber count is rejected with
// ErrCapacityBelowCount, backed by the schema CHECK.
type UpdateTierParams struct {
	Name             *string
	Description      *string
	Price            *decimal.Decimal
	Capacity         *int32
	ClearCapacity    bool
	ProviderPriceRef *string
	Active           *bool
}

// UpdateTier applies a partial update to a tier.
func (r *TierRegistry) UpdateTier(ctx context.Context, tierID uuid.UUID, params UpdateTierParams) (*Tier, error) {
	if params.Price != nil && !params.Price.IsPositive() {
		return nil, ErrInvalidTierPrice
	}
	if params.Capacity != nil && *params.Capacity <= 0 {
		return nil, ErrInvalidTierCapacity
	}

	row := r.db.QueryRow(ctx, `
		UPDATE tiers SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			capacity = CASE WHEN $6 THEN NULL ELSE COALESCE($5, capacity) END,
			provider_price_ref = COALESCE($7, provider_price_ref),
			active = COALESCE($8, active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+tierColumns,
		tierID, params.Name, params.Description, params.Price,
		params.Capacity, params.ClearCapacity, params.ProviderPriceRef, params.Active,
	)

	tier, err := scanTier(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTierNotFound
		}
		if pg.IsCheckViolationError(err) {
			return nil, ErrCapacityBelowCount
		}
		return nil, fmt.Errorf("failed to update tier: %w", err)
	}
	return tier, nil
}

// DeactivateTier soft-deletes a tier: it stops accepting new subscriptions
// but existing ones keep billing. A tier that never had a subscriber is
// removed outright.
func (r *TierRegistry) DeactivateTier(ctx context.Context, tierID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM tiers
		WHERE id = $1
		  AND subscriber_count = 0
		  AND NOT EXISTS (SELECT 1 FROM subscriptions WHERE tier_id = $1)`,
		tierID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tier: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	tag, err = r.db.Exec(ctx,
		`UPDATE tiers SET active = false, updated_at = now() WHERE id = $1`, tierID)
	if err != nil {
		return fmt.Errorf("failed to deactivate tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTierNotFound
	}
	return nil
}

// GetTier loads a single tier by id.
func (r *TierRegistry) GetTier(ctx context.Context, tierID uuid.UUID) (*Tier, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id = $1`, tierID)

	tier, err := scanTier(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}
	return tier, nil
}

// ListByCreator returns all of a creator's tiers, newest first.
func (r *TierRegistry) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]Tier, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tierColumns+` FROM tiers WHERE creator_id = $1 ORDER BY created_at DESC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, *tier)
	}
	return tiers, rows.Err()
}

// ReserveSlot claims one capacity slot with a single conditional UPDATE, the
// authoritative capacity check. Zero rows affected means either the tier is
// gone or it is full; the follow-up existence check disambiguates.
func (r *TierRegistry) ReserveSlot(ctx context.Context, tierID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tiers
		SET subscriber_count = subscriber_count + 1, updated_at = now()
		WHERE id = $1 AND (capacity IS NULL OR subscriber_count < capacity)`,
		tierID,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve tier slot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tiers WHERE id = $1)`, tierID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check tier existence: %w", err)
	}
	if !exists {
		return ErrTierNotFound
	}
	return ErrTierCapacityExceeded
}

// ReleaseSlot returns one capacity slot, floor-clamped at zero so replayed
// releases can never drive the counter negative.
func (r *TierRegistry) ReleaseSlot(ctx context.Context, tierID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tiers
		SET subscriber_count = GREATEST(subscriber_count - 1, 0), updated_at = now()
		WHERE id = $1`,
		tierID,
	)
	if err != nil {
		return fmt.Errorf("failed to release tier slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTierNotFound
	}
	return nil
}

func scanTier(row interface{ Scan(...any) error }) (*Tier, error) {
	var t Tier
	err := row.Scan(
		&t.ID, &t.CreatorID, &t.Name, &t.Description, &t.Price, &t.BillingInterval,
		&t.Capacity, &t.SubscriberCount, &t.ProviderPriceRef, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
