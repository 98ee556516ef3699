package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patronhq/creatorkit/modules/billing"
	"github.com/patronhq/creatorkit/pkg/logger"
)

// Gateway is the single entry point for processor webhooks. It verifies and
// normalizes the delivery through the billing provider, consults the
// best-effort duplicate cache, and hands the event to the reconciler.
//
// Acknowledgement contract: a nil return means the delivery is consumed and
// the processor must not retry; that covers successful application AND
// absorbed no-ops (unknown event types, rows already terminal, duplicates).
// ErrSignatureInvalid means the delivery is rejected outright. Any other
// error is transient and the processor should redeliver.
type Gateway struct {
	provider   billing.Provider
	reconciler *Reconciler
	dedupe     *DuplicateCache
	log        *slog.Logger
}

// NewGateway wires the webhook ingestion path. dedupe may be nil.
func NewGateway(provider billing.Provider, reconciler *Reconciler, dedupe *DuplicateCache, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Gateway{
		provider:   provider,
		reconciler: reconciler,
		dedupe:     dedupe,
		log:        log,
	}
}

// Receive processes one raw webhook delivery. The provider verifies the
// signature before any of the payload is deserialized.
func (g *Gateway) Receive(ctx context.Context, payload []byte, signature string) error {
	event, err := g.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			return err
		}
		// Signed but unparseable: retrying the same bytes cannot help.
		g.log.WarnContext(ctx, "discarding malformed signed delivery", logger.Error(err))
		return nil
	}

	if !event.Type.Known() {
		g.log.InfoContext(ctx, "ignoring event type outside the lifecycle set",
			logger.EventID(event.ID), logger.EventType(event.ProviderEvent))
		return nil
	}

	if g.dedupe.Seen(ctx, event.ID) {
		g.log.DebugContext(ctx, "duplicate delivery short-circuited by cache",
			logger.EventID(event.ID))
		return nil
	}

	if err := g.reconciler.Apply(ctx, event); err != nil {
		switch {
		case errors.Is(err, ErrTierCapacityExceeded):
			// Paid checkout lost the capacity race. The row is expired and
			// the event is ledgered; surface for alerting but acknowledge so
			// the processor stops redelivering.
			g.log.ErrorContext(ctx, "paid checkout exceeded tier capacity",
				logger.EventID(event.ID), logger.Error(err))
		case errors.Is(err, ErrUnknownEventType):
			g.log.WarnContext(ctx, "unhandled event type acknowledged",
				logger.EventID(event.ID), logger.EventType(string(event.Type)))
		default:
			return fmt.Errorf("failed to apply event %s: %w", event.ID, err)
		}
	}

	g.dedupe.Mark(ctx, event.ID)

	g.log.InfoContext(ctx, "event processed",
		logger.EventID(event.ID), logger.EventType(string(event.Type)))
	return nil
}
