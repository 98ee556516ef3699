package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GenericConfig configures the shared-secret HMAC provider.
type GenericConfig struct {
	APIBaseURL    string        `env:"BILLING_API_BASE_URL"`
	APIKey        string        `env:"BILLING_API_KEY"`
	WebhookSecret string        `env:"BILLING_WEBHOOK_SECRET,required"`
	SignatureTTL  time.Duration `env:"BILLING_SIGNATURE_TTL" envDefault:"5m"`
}

// GenericProvider speaks to a processor that exposes a plain JSON API and
// signs its webhook deliveries with a shared-secret HMAC (see signature.go).
// The webhook payload is already shaped like our normalized Event.
type GenericProvider struct {
	cfg    GenericConfig
	client *http.Client
}

// NewGenericProvider creates a provider for shared-secret processors.
func NewGenericProvider(cfg GenericConfig) (*GenericProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &GenericProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type genericSessionRequest struct {
	PriceRef   string            `json:"price_ref"`
	Email      string            `json:"email,omitempty"`
	SuccessURL string            `json:"success_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type genericSessionResponse struct {
	URL         string    `json:"url"`
	SessionRef  string    `json:"session_ref"`
	CustomerRef string    `json:"customer_ref"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateCheckoutSession asks the processor's API for a hosted checkout session.
func (p *GenericProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceRef == "" {
		return nil, ErrMissingPriceRef
	}
	if p.cfg.APIBaseURL == "" || p.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(genericSessionRequest{
		PriceRef:   req.PriceRef,
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.APIBaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("checkout session request failed with status %d", resp.StatusCode)
	}

	var session genericSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		URL:         session.URL,
		SessionRef:  session.SessionRef,
		CustomerRef: session.CustomerRef,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

type genericEventPayload struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	SubscriptionRef string            `json:"subscription_ref"`
	CustomerRef     string            `json:"customer_ref"`
	Status          string            `json:"status,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

// ParseWebhook verifies the HMAC signature, then decodes the event payload.
func (p *GenericProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	if err := VerifySignature(p.cfg.WebhookSecret, payload, signature, p.cfg.SignatureTTL); err != nil {
		return nil, err
	}

	var raw genericEventPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrMalformedPayload)
	}

	metadata := raw.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &Event{
		ID:              raw.ID,
		Type:            EventType(raw.Type),
		ProviderEvent:   raw.Type,
		SubscriptionRef: raw.SubscriptionRef,
		CustomerRef:     raw.CustomerRef,
		Status:          raw.Status,
		Metadata:        metadata,
		OccurredAt:      raw.OccurredAt,
	}, nil
}
