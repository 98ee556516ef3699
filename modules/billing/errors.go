package billing

import "errors"

var (
	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing: webhook secret is required")
	ErrInvalidEnvironment   = errors.New("billing: invalid provider environment")
	ErrSignatureInvalid     = errors.New("billing: webhook signature verification failed")
	ErrMalformedPayload     = errors.New("billing: malformed webhook payload")
	ErrMissingPriceRef      = errors.New("billing: price reference is required")
	ErrNoCheckoutURL        = errors.New("billing: no checkout URL returned from provider")
)
