package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronhq/creatorkit/modules/billing"
)

func newTestProvider(t *testing.T, cfg billing.GenericConfig) *billing.GenericProvider {
	t.Helper()
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = "whsec_test"
	}
	if cfg.SignatureTTL == 0 {
		cfg.SignatureTTL = 5 * time.Minute
	}
	p, err := billing.NewGenericProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestGenericParseWebhook(t *testing.T) {
	secret := "whsec_test"
	provider := newTestProvider(t, billing.GenericConfig{WebhookSecret: secret})

	payload := []byte(`{
		"id": "evt_123",
		"type": "checkout_completed",
		"subscription_ref": "sub_abc",
		"customer_ref": "cus_def",
		"status": "active",
		"metadata": {"subscription_id": "0d4cdd8f-2f8d-4c4c-9f6a-0f2f2b5b9e21"},
		"occurred_at": "2026-08-01T12:00:00Z"
	}`)

	t.Run("valid event parses", func(t *testing.T) {
		sig := billing.SignPayload(secret, payload, time.Now())
		event, err := provider.ParseWebhook(context.Background(), payload, sig)
		require.NoError(t, err)

		assert.Equal(t, "evt_123", event.ID)
		assert.Equal(t, billing.EventCheckoutCompleted, event.Type)
		assert.Equal(t, "sub_abc", event.SubscriptionRef)
		assert.Equal(t, "cus_def", event.CustomerRef)
		assert.Equal(t, "active", event.Status)
		assert.Equal(t, "0d4cdd8f-2f8d-4c4c-9f6a-0f2f2b5b9e21", event.Metadata["subscription_id"])
	})

	t.Run("bad signature never parses payload", func(t *testing.T) {
		_, err := provider.ParseWebhook(context.Background(), payload, "t=1,v1=bad")
		require.ErrorIs(t, err, billing.ErrSignatureInvalid)
	})

	t.Run("signed but malformed payload rejected", func(t *testing.T) {
		junk := []byte(`{not json`)
		sig := billing.SignPayload(secret, junk, time.Now())
		_, err := provider.ParseWebhook(context.Background(), junk, sig)
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})

	t.Run("missing event id rejected", func(t *testing.T) {
		noID := []byte(`{"type":"invoice_paid"}`)
		sig := billing.SignPayload(secret, noID, time.Now())
		_, err := provider.ParseWebhook(context.Background(), noID, sig)
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})
}

func TestGenericCreateCheckoutSession(t *testing.T) {
	t.Run("creates session via API", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "price_gold_monthly", req["price_ref"])

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"url":          "https://pay.example.com/s/sess_1",
				"session_ref":  "sess_1",
				"customer_ref": "cus_1",
				"expires_at":   time.Now().Add(24 * time.Hour),
			})
		}))
		defer srv.Close()

		provider := newTestProvider(t, billing.GenericConfig{
			APIBaseURL: srv.URL,
			APIKey:     "sk_test",
		})

		session, err := provider.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{
			PriceRef: "price_gold_monthly",
			Metadata: map[string]string{"tier_id": "tier-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example.com/s/sess_1", session.URL)
		assert.Equal(t, "sess_1", session.SessionRef)
		assert.Equal(t, "cus_1", session.CustomerRef)
	})

	t.Run("missing price ref rejected", func(t *testing.T) {
		provider := newTestProvider(t, billing.GenericConfig{APIBaseURL: "http://x", APIKey: "k"})
		_, err := provider.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{})
		require.ErrorIs(t, err, billing.ErrMissingPriceRef)
	})

	t.Run("api error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		provider := newTestProvider(t, billing.GenericConfig{APIBaseURL: srv.URL, APIKey: "k"})
		_, err := provider.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{PriceRef: "price_1"})
		require.Error(t, err)
	})
}

func TestEventTypeKnown(t *testing.T) {
	known := []billing.EventType{
		billing.EventCheckoutCompleted,
		billing.EventSubscriptionUpdated,
		billing.EventSubscriptionDeleted,
		billing.EventInvoicePaid,
		billing.EventInvoiceFailed,
	}
	for _, et := range known {
		assert.True(t, et.Known(), string(et))
	}
	assert.False(t, billing.EventType("customer.created").Known())
}
