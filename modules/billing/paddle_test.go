package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapPaddleEventType(t *testing.T) {
	tests := []struct {
		provider string
		want     EventType
	}{
		{"subscription.activated", EventCheckoutCompleted},
		{"subscription.updated", EventSubscriptionUpdated},
		{"subscription.past_due", EventSubscriptionUpdated},
		{"subscription.canceled", EventSubscriptionDeleted},
		{"transaction.completed", EventInvoicePaid},
		{"transaction.payment_failed", EventInvoiceFailed},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, mapPaddleEventType(tt.provider))
		})
	}

	t.Run("unmapped events keep the provider name", func(t *testing.T) {
		got := mapPaddleEventType("customer.created")
		assert.Equal(t, EventType("customer.created"), got)
		assert.False(t, got.Known())
	})
}

func TestNewPaddleProviderValidation(t *testing.T) {
	_, err := NewPaddleProvider(PaddleConfig{WebhookSecret: "whsec"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewPaddleProvider(PaddleConfig{APIKey: "key"})
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)

	_, err = NewPaddleProvider(PaddleConfig{APIKey: "key", WebhookSecret: "whsec", Environment: "staging"})
	assert.ErrorIs(t, err, ErrInvalidEnvironment)
}
