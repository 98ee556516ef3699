package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/patronhq/creatorkit/modules/billing"
	"github.com/patronhq/creatorkit/pkg/logger"
)

// CheckoutConfig tunes the orchestrator.
type CheckoutConfig struct {
	SuccessURL string `env:"CHECKOUT_SUCCESS_URL"`
}

// Checkout starts hosted checkout sessions. It only performs optimistic
// prechecks and creates the pending row; the subscription becomes active
// exclusively through the checkout_completed event, never synchronously.
type Checkout struct {
	cfg      CheckoutConfig
	provider billing.Provider
	tiers    *TierRegistry
	subs     *SubscriptionStore
	log      *slog.Logger
	now      func() time.Time
}

// NewCheckout wires the checkout orchestrator.
func NewCheckout(cfg CheckoutConfig, provider billing.Provider, tiers *TierRegistry, subs *SubscriptionStore, log *slog.Logger) *Checkout {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Checkout{
		cfg:      cfg,
		provider: provider,
		tiers:    tiers,
		subs:     subs,
		log:      log,
		now:      time.Now,
	}
}

// StartCheckout validates preconditions, creates the provider session with
// correlation metadata, and persists the pending row. The capacity check
// here is optimistic; the authoritative reservation happens when the
// completion event arrives.
func (c *Checkout) StartCheckout(ctx context.Context, subscriberID, tierID uuid.UUID, email string) (*billing.CheckoutSession, error) {
	tier, err := c.tiers.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if !tier.Active {
		return nil, ErrTierInactive
	}
	if tier.CreatorID == subscriberID {
		return nil, ErrSelfSubscription
	}
	if !tier.HasCapacityFor() {
		return nil, ErrTierCapacityExceeded
	}

	if _, err := c.subs.FindCurrent(ctx, subscriberID, tier.CreatorID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	subscriptionID := uuid.New()
	session, err := c.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		PriceRef:   tier.ProviderPriceRef,
		Email:      email,
		SuccessURL: c.cfg.SuccessURL,
		Metadata: map[string]string{
			"subscription_id": subscriptionID.String(),
			"subscriber_id":   subscriberID.String(),
			"tier_id":         tier.ID.String(),
			"creator_id":      tier.CreatorID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	now := c.now()
	if err := c.subs.Create(ctx, &Subscription{
		ID:                 subscriptionID,
		SubscriberID:       subscriberID,
		CreatorID:          tier.CreatorID,
		TierID:             tier.ID,
		Status:             StatusPending,
		ProviderCustomerID: session.CustomerRef,
		StartedAt:          now,
	}); err != nil {
		// The session exists at the processor but has no local row; the
		// sweeper cannot help here, so surface the failure to the caller.
		return nil, err
	}

	c.log.InfoContext(ctx, "checkout started",
		logger.SubscriptionID(subscriptionID),
		logger.SubscriberID(subscriberID),
		logger.TierID(tier.ID))
	return session, nil
}
