package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patronhq/creatorkit/pkg/pg"
)

// SubscriptionStore persists subscription rows. All state transitions go
// through GetForUpdate/Update pairs inside a transaction; the partial unique
// index on (subscriber_id, creator_id) for current rows surfaces here as
// ErrAlreadySubscribed.
type SubscriptionStore struct {
	db DBTX
}

// NewSubscriptionStore creates a store bound to a pool or transaction.
func NewSubscriptionStore(db DBTX) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *SubscriptionStore) WithTx(tx DBTX) *SubscriptionStore {
	return &SubscriptionStore{db: tx}
}

const subscriptionColumns = `id, subscriber_id, creator_id, tier_id, status,
	COALESCE(provider_subscription_id, ''), COALESCE(provider_customer_id, ''),
	past_due, started_at, next_billing_at, ends_at, cancelled_at, created_at, updated_at`

// Create inserts a pending subscription row for a freshly started checkout.
func (s *SubscriptionStore) Create(ctx context.Context, sub *Subscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions
			(id, subscriber_id, creator_id, tier_id, status, provider_customer_id, started_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		sub.ID, sub.SubscriberID, sub.CreatorID, sub.TierID,
		sub.Status, sub.ProviderCustomerID, sub.StartedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadySubscribed
		}
		if pg.IsForeignKeyViolationError(err) {
			return ErrTierNotFound
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// Get loads a subscription by id.
func (s *SubscriptionStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.get(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
}

// GetForUpdate loads a subscription by id with a row lock, serializing
// concurrent transitions on the same row.
func (s *SubscriptionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.get(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
}

// GetByProviderRefForUpdate locks and loads the row correlated with a
// processor subscription reference.
func (s *SubscriptionStore) GetByProviderRefForUpdate(ctx context.Context, ref string) (*Subscription, error) {
	return s.get(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_subscription_id = $1 FOR UPDATE`,
		ref,
	)
}

// FindCurrent returns the subscriber's active or paused subscription with the
// creator, if any.
func (s *SubscriptionStore) FindCurrent(ctx context.Context, subscriberID, creatorID uuid.UUID) (*Subscription, error) {
	return s.get(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE subscriber_id = $1 AND creator_id = $2 AND status IN ('active', 'paused')`,
		subscriberID, creatorID,
	)
}

// Update persists the mutable fields of a previously locked row.
func (s *SubscriptionStore) Update(ctx context.Context, sub *Subscription) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions SET
			status = $2,
			provider_subscription_id = NULLIF($3, ''),
			provider_customer_id = NULLIF($4, ''),
			past_due = $5,
			next_billing_at = $6,
			ends_at = $7,
			cancelled_at = $8,
			updated_at = now()
		WHERE id = $1`,
		sub.ID, sub.Status, sub.ProviderSubscriptionID, sub.ProviderCustomerID,
		sub.PastDue, sub.NextBillingAt, sub.EndsAt, sub.CancelledAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ListBySubscriber returns all of a subscriber's subscriptions, newest first.
func (s *SubscriptionStore) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE subscriber_id = $1 ORDER BY created_at DESC`,
		subscriberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ListSubscribersByCreator returns the creator's current subscribers joined
// with their tiers, for the subscriber list and revenue aggregation.
func (s *SubscriptionStore) ListSubscribersByCreator(ctx context.Context, creatorID uuid.UUID) ([]SubscriberSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.subscriber_id, s.tier_id, t.name, t.price, t.billing_interval,
			s.status, s.past_due, s.started_at
		FROM subscriptions s
		JOIN tiers t ON t.id = s.tier_id
		WHERE s.creator_id = $1 AND s.status IN ('active', 'paused')
		ORDER BY s.started_at DESC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var summaries []SubscriberSummary
	for rows.Next() {
		var sum SubscriberSummary
		if err := rows.Scan(
			&sum.SubscriptionID, &sum.SubscriberID, &sum.TierID, &sum.TierName,
			&sum.Price, &sum.BillingInterval, &sum.Status, &sum.PastDue, &sum.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteAbandonedPending removes pending rows older than the checkout-session
// retention window that never received a completion event. Returns the number
// of rows swept.
func (s *SubscriptionStore) DeleteAbandonedPending(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE status = 'pending' AND created_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep pending subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *SubscriptionStore) get(ctx context.Context, query string, args ...any) (*Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.SubscriberID, &sub.CreatorID, &sub.TierID, &sub.Status,
		&sub.ProviderSubscriptionID, &sub.ProviderCustomerID, &sub.PastDue,
		&sub.StartedAt, &sub.NextBillingAt, &sub.EndsAt, &sub.CancelledAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
