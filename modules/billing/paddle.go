package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
// Correlation metadata travels as custom data and comes back on every
// subscription and transaction event.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceRef == "" {
		return nil, ErrMissingPriceRef
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceRef,
		Quantity: 1,
	})

	customData := paddle.CustomData{}
	for k, v := range req.Metadata {
		customData[k] = v
	}
	if req.Email != "" {
		customData["email"] = req.Email
	}

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	session := &CheckoutSession{
		URL:        *transaction.Checkout.URL,
		SessionRef: transaction.ID,
		// Paddle checkout links expire after 24 hours.
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if transaction.CustomerID != nil {
		session.CustomerRef = *transaction.CustomerID
	}
	return session, nil
}

// ParseWebhook verifies the Paddle signature and normalizes the event.
// Verification runs against the raw payload before any JSON parsing.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier works on http.Request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var paddleEvent struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt time.Time      `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if paddleEvent.EventID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrMalformedPayload)
	}

	event := &Event{
		ID:            paddleEvent.EventID,
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		OccurredAt:    paddleEvent.OccurredAt,
		Metadata:      map[string]string{},
	}

	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = status
	}
	if customerID, ok := paddleEvent.Data["customer_id"].(string); ok {
		event.CustomerRef = customerID
	}
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		for k, v := range customData {
			if s, ok := v.(string); ok {
				event.Metadata[k] = s
			}
		}
	}

	// Subscription events carry their own id; transaction events reference
	// the subscription they bill.
	if strings.HasPrefix(paddleEvent.EventType, "subscription.") {
		if subID, ok := paddleEvent.Data["id"].(string); ok {
			event.SubscriptionRef = subID
		}
	} else if subID, ok := paddleEvent.Data["subscription_id"].(string); ok {
		event.SubscriptionRef = subID
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event names to normalized types.
// Unmapped events keep their provider name so the gateway can log and ack them.
func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "subscription.activated":
		return EventCheckoutCompleted
	case "subscription.updated", "subscription.past_due":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "transaction.completed":
		return EventInvoicePaid
	case "transaction.payment_failed":
		return EventInvoiceFailed
	default:
		return EventType(paddleEvent)
	}
}
