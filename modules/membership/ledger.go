package membership

import (
	"context"
	"fmt"
)

// EventLedger is the append-only idempotency record for processor events.
// It must run inside the same transaction as the event's side effects: if
// the transaction rolls back, the ledger entry rolls back with it and the
// redelivery gets a clean retry.
type EventLedger struct {
	db DBTX
}

// NewEventLedger creates a ledger bound to a pool or transaction.
func NewEventLedger(db DBTX) *EventLedger {
	return &EventLedger{db: db}
}

// WithTx returns a ledger bound to the given transaction.
func (l *EventLedger) WithTx(tx DBTX) *EventLedger {
	return &EventLedger{db: tx}
}

// Record claims an event id. applied == false means the event was processed
// before and the caller must short-circuit with success, touching nothing.
func (l *EventLedger) Record(ctx context.Context, eventID, eventType string) (applied bool, err error) {
	tag, err := l.db.Exec(ctx, `
		INSERT INTO processed_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
