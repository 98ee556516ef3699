package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/patronhq/creatorkit/modules/billing"
	"github.com/patronhq/creatorkit/pkg/logger"
)

// Reconciler applies processor events and user commands to subscription
// state. Every mutation runs in a single transaction holding a FOR UPDATE
// lock on the subscription row: ledger entry, status transition, tier
// counter change, and billing-date advance commit or roll back together.
type Reconciler struct {
	db     TxStarter
	tiers  *TierRegistry
	subs   *SubscriptionStore
	ledger *EventLedger
	log    *slog.Logger
	now    func() time.Time
}

// NewReconciler wires the reconciler. The registry, store, and ledger are
// rebound to each transaction via WithTx.
func NewReconciler(db TxStarter, tiers *TierRegistry, subs *SubscriptionStore, ledger *EventLedger, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		db:     db,
		tiers:  tiers,
		subs:   subs,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// Apply dispatches a normalized processor event to its handler. Events that
// target no known subscription, arrive on a terminal row, or request an
// impossible transition are absorbed as no-ops: they are recorded in the
// ledger and acknowledged, because redelivering them can never succeed.
func (r *Reconciler) Apply(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return r.checkoutCompleted(ctx, event)
	case billing.EventSubscriptionUpdated:
		return r.subscriptionUpdated(ctx, event)
	case billing.EventSubscriptionDeleted:
		return r.subscriptionDeleted(ctx, event)
	case billing.EventInvoicePaid:
		return r.invoicePaid(ctx, event)
	case billing.EventInvoiceFailed:
		return r.invoiceFailed(ctx, event)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, event.Type)
	}
}

// checkoutCompleted activates the pending row created at checkout start:
// attaches provider references, reserves a tier slot, and schedules the
// first renewal. Losing the capacity race marks the row expired and keeps
// the ledger entry so the redelivery is a clean no-op.
func (r *Reconciler) checkoutCompleted(ctx context.Context, event *billing.Event) error {
	var capacityErr error

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		applied, err := r.ledger.WithTx(tx).Record(ctx, event.ID, string(event.Type))
		if err != nil || !applied {
			return err
		}

		sub, err := r.lockEventRow(ctx, tx, event)
		if err != nil {
			return r.absorbMissing(ctx, err, event)
		}
		// Activation is exclusive to the pending row created at checkout
		// start. Anything else already holds (or permanently lost) its slot,
		// so a stray activation must not re-run the reservation.
		if sub.Status != StatusPending {
			r.logNoop(ctx, event, sub)
			return nil
		}

		tiers := r.tiers.WithTx(tx)
		tier, err := tiers.GetTier(ctx, sub.TierID)
		if err != nil {
			return err
		}

		subs := r.subs.WithTx(tx)
		now := r.now()

		if err := tiers.ReserveSlot(ctx, sub.TierID); err != nil {
			if !errors.Is(err, ErrTierCapacityExceeded) {
				return err
			}
			// The capacity race loser: the checkout was paid but the last
			// slot went to someone else. The row expires, the ledger entry
			// stays, and the caller surfaces the condition for refunding.
			sub.Status = StatusExpired
			sub.EndsAt = &now
			if err := subs.Update(ctx, sub); err != nil {
				return err
			}
			capacityErr = ErrTierCapacityExceeded
			return nil
		}

		next := NextBillingDate(now, tier.BillingInterval)
		sub.Status = StatusActive
		sub.ProviderSubscriptionID = event.SubscriptionRef
		if event.CustomerRef != "" {
			sub.ProviderCustomerID = event.CustomerRef
		}
		sub.PastDue = false
		sub.StartedAt = now
		sub.NextBillingAt = &next
		return subs.Update(ctx, sub)
	})
	if err != nil {
		return err
	}
	if capacityErr != nil {
		r.log.WarnContext(ctx, "checkout completed against a full tier",
			logger.EventID(event.ID))
		return capacityErr
	}
	return nil
}

// invoicePaid advances the billing anchor one interval and clears the
// at-risk marker. The advancement base is whichever is later, the current
// anchor or now, so delayed deliveries never schedule a charge in the past.
func (r *Reconciler) invoicePaid(ctx context.Context, event *billing.Event) error {
	return r.applyEvent(ctx, event, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		tier, err := r.tiers.WithTx(tx).GetTier(ctx, sub.TierID)
		if err != nil {
			return err
		}
		next := AdvanceBillingDate(sub.NextBillingAt, r.now(), tier.BillingInterval)
		sub.NextBillingAt = &next
		sub.PastDue = false
		return r.subs.WithTx(tx).Update(ctx, sub)
	})
}

// invoiceFailed marks the subscription at risk. Access continues; the
// processor's dunning flow decides the outcome and reports it as either a
// later invoice_paid or a subscription_updated/deleted.
func (r *Reconciler) invoiceFailed(ctx context.Context, event *billing.Event) error {
	return r.applyEvent(ctx, event, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		sub.PastDue = true
		return r.subs.WithTx(tx).Update(ctx, sub)
	})
}

// subscriptionDeleted is the processor-initiated termination: the row
// cancels immediately and its tier slot is released. A pending row expires
// instead, since it never held a slot.
func (r *Reconciler) subscriptionDeleted(ctx context.Context, event *billing.Event) error {
	return r.applyEvent(ctx, event, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		now := r.now()
		if sub.Status == StatusPending {
			sub.Status = StatusExpired
			sub.EndsAt = &now
			return r.subs.WithTx(tx).Update(ctx, sub)
		}

		sub.Status = StatusCancelled
		sub.CancelledAt = &now
		sub.EndsAt = &now
		if err := r.subs.WithTx(tx).Update(ctx, sub); err != nil {
			return err
		}
		return r.tiers.WithTx(tx).ReleaseSlot(ctx, sub.TierID)
	})
}

// subscriptionUpdated folds processor-reported status changes into local
// state. Delinquency terminates the subscription; pause/resume from the
// processor portal mirror the user commands.
func (r *Reconciler) subscriptionUpdated(ctx context.Context, event *billing.Event) error {
	return r.applyEvent(ctx, event, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		subs := r.subs.WithTx(tx)
		now := r.now()

		switch event.Status {
		case "past_due", "unpaid":
			sub.Status = StatusExpired
			sub.PastDue = true
			sub.EndsAt = &now
			if err := subs.Update(ctx, sub); err != nil {
				return err
			}
			return r.tiers.WithTx(tx).ReleaseSlot(ctx, sub.TierID)
		case "paused":
			if sub.Status == StatusPaused {
				return nil
			}
			if !CanTransition(sub.Status, StatusPaused) {
				r.logNoop(ctx, event, sub)
				return nil
			}
			sub.Status = StatusPaused
			return subs.Update(ctx, sub)
		case "active":
			switch sub.Status {
			case StatusActive:
				sub.PastDue = false
				return subs.Update(ctx, sub)
			case StatusPaused:
				sub.Status = StatusActive
				sub.PastDue = false
				return subs.Update(ctx, sub)
			default:
				// A pending row activates only through checkout completion,
				// which reserves the tier slot. An out-of-order update
				// arriving first must wait for that event.
				r.logNoop(ctx, event, sub)
				return nil
			}
		default:
			r.log.InfoContext(ctx, "subscription update with unmapped status ignored",
				logger.EventID(event.ID), slog.String("provider_status", event.Status))
			return nil
		}
	})
}

// Cancel is the user command: access runs until the paid period ends, the
// tier slot frees immediately. Cancelling an already-cancelled subscription
// is an idempotent success.
func (r *Reconciler) Cancel(ctx context.Context, subscriptionID uuid.UUID) error {
	return r.command(ctx, subscriptionID, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		if sub.Status == StatusCancelled {
			return nil
		}
		if !CanTransition(sub.Status, StatusCancelled) {
			return fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, sub.Status)
		}

		now := r.now()
		sub.Status = StatusCancelled
		sub.CancelledAt = &now
		if sub.NextBillingAt != nil && sub.NextBillingAt.After(now) {
			sub.EndsAt = sub.NextBillingAt
		} else {
			sub.EndsAt = &now
		}
		if err := r.subs.WithTx(tx).Update(ctx, sub); err != nil {
			return err
		}
		return r.tiers.WithTx(tx).ReleaseSlot(ctx, sub.TierID)
	})
}

// Pause suspends billing without freeing the tier slot.
func (r *Reconciler) Pause(ctx context.Context, subscriptionID uuid.UUID) error {
	return r.command(ctx, subscriptionID, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		if sub.Status == StatusPaused {
			return nil
		}
		if !CanTransition(sub.Status, StatusPaused) {
			return fmt.Errorf("%w: %s -> paused", ErrInvalidTransition, sub.Status)
		}
		sub.Status = StatusPaused
		return r.subs.WithTx(tx).Update(ctx, sub)
	})
}

// Resume reactivates a paused subscription. The slot was never released, so
// no counter change happens.
func (r *Reconciler) Resume(ctx context.Context, subscriptionID uuid.UUID) error {
	return r.command(ctx, subscriptionID, func(ctx context.Context, tx pgx.Tx, sub *Subscription) error {
		if sub.Status == StatusActive {
			return nil
		}
		if !CanTransition(sub.Status, StatusActive) {
			return fmt.Errorf("%w: %s -> active", ErrInvalidTransition, sub.Status)
		}
		sub.Status = StatusActive
		return r.subs.WithTx(tx).Update(ctx, sub)
	})
}

// applyEvent is the shared event path: transaction, ledger claim, row lock,
// terminal check, then the event-specific mutation.
func (r *Reconciler) applyEvent(ctx context.Context, event *billing.Event, fn func(context.Context, pgx.Tx, *Subscription) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		applied, err := r.ledger.WithTx(tx).Record(ctx, event.ID, string(event.Type))
		if err != nil || !applied {
			return err
		}

		sub, err := r.lockEventRow(ctx, tx, event)
		if err != nil {
			return r.absorbMissing(ctx, err, event)
		}
		if IsTerminal(sub.Status) {
			r.logNoop(ctx, event, sub)
			return nil
		}

		return fn(ctx, tx, sub)
	})
}

// command is the shared user-command path: transaction plus row lock, no
// ledger involvement.
func (r *Reconciler) command(ctx context.Context, subscriptionID uuid.UUID, fn func(context.Context, pgx.Tx, *Subscription) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		sub, err := r.subs.WithTx(tx).GetForUpdate(ctx, subscriptionID)
		if err != nil {
			return err
		}
		return fn(ctx, tx, sub)
	})
}

// lockEventRow locates the subscription an event refers to, preferring the
// subscription_id correlation metadata stamped at checkout time and falling
// back to the provider's subscription reference.
func (r *Reconciler) lockEventRow(ctx context.Context, tx pgx.Tx, event *billing.Event) (*Subscription, error) {
	subs := r.subs.WithTx(tx)

	if raw, ok := event.Metadata["subscription_id"]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad subscription_id %q", ErrMissingCorrelation, raw)
		}
		return subs.GetForUpdate(ctx, id)
	}

	if event.SubscriptionRef != "" {
		return subs.GetByProviderRefForUpdate(ctx, event.SubscriptionRef)
	}

	return nil, ErrMissingCorrelation
}

// absorbMissing turns events that cannot be correlated to a row into logged
// no-ops. The ledger entry commits with the no-op, so the processor's
// redelivery loop terminates.
func (r *Reconciler) absorbMissing(ctx context.Context, err error, event *billing.Event) error {
	if errors.Is(err, ErrSubscriptionNotFound) || errors.Is(err, ErrMissingCorrelation) {
		r.log.WarnContext(ctx, "event does not correlate to a subscription",
			logger.EventID(event.ID), logger.EventType(string(event.Type)), logger.Error(err))
		return nil
	}
	return err
}

func (r *Reconciler) logNoop(ctx context.Context, event *billing.Event, sub *Subscription) {
	r.log.InfoContext(ctx, "event absorbed as no-op",
		logger.EventID(event.ID),
		logger.EventType(string(event.Type)),
		logger.SubscriptionID(sub.ID),
		slog.String("status", string(sub.Status)))
}

func (r *Reconciler) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
