// Package billing abstracts the external payment processor behind the
// Provider interface: hosted checkout session creation and signed webhook
// parsing. Two implementations ship with the platform:
//
//   - PaddleProvider, built on the official Paddle SDK; and
//   - GenericProvider, for processors that expose a plain JSON API and sign
//     webhook deliveries with a timestamp-bound HMAC-SHA256 shared secret.
//
// Both verify the webhook signature before touching the payload, so the
// membership gateway never deserializes unauthenticated data. Events are
// normalized to the five lifecycle types the reconciler understands:
// checkout_completed, subscription_updated, subscription_deleted,
// invoice_paid, and invoice_failed.
package billing
