package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the subscription lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// BillingInterval is the tier billing cadence.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// Valid reports whether the interval is one the engine bills on.
func (i BillingInterval) Valid() bool {
	return i == IntervalMonthly || i == IntervalYearly
}

// Tier is a creator-defined membership level. Capacity nil means unlimited;
// SubscriberCount is maintained by ReserveSlot/ReleaseSlot and never exceeds
// Capacity when one is set.
type Tier struct {
	ID               uuid.UUID       `json:"id"`
	CreatorID        uuid.UUID       `json:"creator_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	BillingInterval  BillingInterval `json:"billing_interval"`
	Capacity         *int32          `json:"capacity,omitempty"`
	SubscriberCount  int32           `json:"subscriber_count"`
	ProviderPriceRef string          `json:"provider_price_ref,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasCapacityFor reports whether the tier can take one more subscriber.
// This is an optimistic read; the authoritative check is the conditional
// UPDATE in ReserveSlot.
func (t Tier) HasCapacityFor() bool {
	return t.Capacity == nil || t.SubscriberCount < *t.Capacity
}

// Subscription is one subscriber's relationship to one tier.
type Subscription struct {
	ID                     uuid.UUID  `json:"id"`
	SubscriberID           uuid.UUID  `json:"subscriber_id"`
	CreatorID              uuid.UUID  `json:"creator_id"`
	TierID                 uuid.UUID  `json:"tier_id"`
	Status                 Status     `json:"status"`
	ProviderSubscriptionID string     `json:"-"`
	ProviderCustomerID     string     `json:"-"`
	PastDue                bool       `json:"past_due"`
	StartedAt              time.Time  `json:"started_at"`
	NextBillingAt          *time.Time `json:"next_billing_at,omitempty"`
	EndsAt                 *time.Time `json:"ends_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// SubscriberSummary is one row of the creator's subscriber list: the
// subscription joined with its tier, used for revenue aggregation.
type SubscriberSummary struct {
	SubscriptionID  uuid.UUID       `json:"subscription_id"`
	SubscriberID    uuid.UUID       `json:"subscriber_id"`
	TierID          uuid.UUID       `json:"tier_id"`
	TierName        string          `json:"tier_name"`
	Price           decimal.Decimal `json:"price"`
	BillingInterval BillingInterval `json:"billing_interval"`
	Status          Status          `json:"status"`
	PastDue         bool            `json:"past_due"`
	StartedAt       time.Time       `json:"started_at"`
}

// MonthlyRevenue normalizes the summary's price to a per-month figure so the
// creator view can sum mixed monthly/yearly tiers.
func (s SubscriberSummary) MonthlyRevenue() decimal.Decimal {
	if s.BillingInterval == IntervalYearly {
		return s.Price.Div(decimal.NewFromInt(12)).Round(2)
	}
	return s.Price
}
