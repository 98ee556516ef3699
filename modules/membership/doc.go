// Package membership implements the subscription lifecycle and billing
// synchronization engine: the tier registry with capacity counters, the
// subscription store and state machine, the idempotent webhook-event
// gateway, the lifecycle reconciler, and the checkout orchestrator.
//
// All cross-request coordination lives in PostgreSQL: conditional updates
// guard tier capacity, SELECT ... FOR UPDATE linearizes per-subscription
// transitions, a partial unique index enforces one current subscription per
// (subscriber, creator) pair, and the processed_events primary key makes
// event application idempotent. Redis only short-circuits obvious duplicate
// webhook deliveries and is never a correctness dependency.
package membership
