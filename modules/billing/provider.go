package billing

import (
	"context"
	"time"
)

// EventType is the normalized payment-processor event type. Each provider
// implementation maps its own event names onto these.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventInvoicePaid         EventType = "invoice_paid"
	EventInvoiceFailed       EventType = "invoice_failed"
)

// Known returns true for event types the reconciler handles.
func (t EventType) Known() bool {
	switch t {
	case EventCheckoutCompleted, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventInvoicePaid, EventInvoiceFailed:
		return true
	}
	return false
}

// Event is a normalized webhook event from the payment processor.
type Event struct {
	ID              string            // processor's opaque event id, the idempotency key
	Type            EventType         // normalized event type
	ProviderEvent   string            // original provider event name
	SubscriptionRef string            // processor's subscription reference
	CustomerRef     string            // processor's customer reference
	Status          string            // processor-reported subscription status, if any
	Metadata        map[string]string // correlation metadata set at checkout time
	OccurredAt      time.Time
}

// CheckoutRequest contains data needed to create a hosted checkout session.
type CheckoutRequest struct {
	PriceRef   string            // processor's price identifier for the tier
	Email      string            // optional billing email
	SuccessURL string            // redirect after successful payment
	Metadata   map[string]string // correlation data echoed back in webhook events
}

// CheckoutSession represents a hosted checkout session at the processor.
type CheckoutSession struct {
	URL         string    // hosted checkout URL for the subscriber
	SessionRef  string    // processor's session identifier
	CustomerRef string    // processor's customer reference, when already assigned
	ExpiresAt   time.Time // session expiry; pending rows older than this get swept
}

// Provider abstracts the payment processor. The engine only needs two
// capabilities: starting a hosted checkout and turning a signed webhook
// payload into a normalized event. Signature verification MUST happen before
// any payload parsing so unverified data is never deserialized.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
