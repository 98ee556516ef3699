package membership

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patronhq/creatorkit/modules/billing"
	"github.com/patronhq/creatorkit/pkg/jwt"
	"github.com/patronhq/creatorkit/pkg/logger"
	"github.com/patronhq/creatorkit/pkg/response"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// signatureHeaders are checked in order; the first non-empty value wins.
var signatureHeaders = []string{"Paddle-Signature", "Webhook-Signature"}

// Handler serves the membership HTTP endpoints.
type Handler struct {
	tiers    *TierRegistry
	subs     *SubscriptionStore
	checkout *Checkout
	engine   *Reconciler
	gateway  *Gateway
	log      *slog.Logger
}

// NewHandler wires the HTTP layer over the engine components.
func NewHandler(tiers *TierRegistry, subs *SubscriptionStore, checkout *Checkout, engine *Reconciler, gateway *Gateway, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		tiers:    tiers,
		subs:     subs,
		checkout: checkout,
		engine:   engine,
		gateway:  gateway,
		log:      log,
	}
}

// --- webhook ---

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "unreadable_body", "failed to read request body")
		return
	}

	var signature string
	for _, header := range signatureHeaders {
		if signature = r.Header.Get(header); signature != "" {
			break
		}
	}

	if err := h.gateway.Receive(r.Context(), payload, signature); err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			response.Error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
			return
		}
		// Transient failure: a 5xx tells the processor to redeliver.
		h.log.ErrorContext(r.Context(), "webhook processing failed", logger.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "temporarily_unavailable", "event could not be processed, retry later")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// --- tiers ---

type createTierRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Price            string `json:"price"`
	BillingInterval  string `json:"billing_interval"`
	Capacity         *int32 `json:"capacity"`
	ProviderPriceRef string `json:"provider_price_ref"`
}

func (h *Handler) handleCreateTier(w http.ResponseWriter, r *http.Request) {
	callerID, ok := jwt.CallerID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	var req createTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	details := map[string][]string{}
	if req.Name == "" {
		details["name"] = append(details["name"], "name is required")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		details["price"] = append(details["price"], "price must be a positive decimal")
	}
	if !BillingInterval(req.BillingInterval).Valid() {
		details["billing_interval"] = append(details["billing_interval"], "must be monthly or yearly")
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		details["capacity"] = append(details["capacity"], "capacity must be positive when set")
	}
	if len(details) > 0 {
		response.ValidationError(w, details)
		return
	}

	tier, err := h.tiers.CreateTier(r.Context(), CreateTierParams{
		CreatorID:        callerID,
		Name:             req.Name,
		Description:      req.Description,
		Price:            price,
		BillingInterval:  BillingInterval(req.BillingInterval),
		Capacity:         req.Capacity,
		ProviderPriceRef: req.ProviderPriceRef,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, tier)
}

type updateTierRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Price            *string `json:"price"`
	Capacity         *int32  `json:"capacity"`
	ClearCapacity    bool    `json:"clear_capacity"`
	ProviderPriceRef *string `json:"provider_price_ref"`
	Active           *bool   `json:"active"`
}

func (h *Handler) handleUpdateTier(w http.ResponseWriter, r *http.Request) {
	callerID, tierID, ok := h.tierRequest(w, r)
	if !ok {
		return
	}

	var req updateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	if !h.requireTierOwner(w, r, tierID, callerID) {
		return
	}

	params := UpdateTierParams{
		Name:             req.Name,
		Description:      req.Description,
		Capacity:         req.Capacity,
		ClearCapacity:    req.ClearCapacity,
		ProviderPriceRef: req.ProviderPriceRef,
		Active:           req.Active,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			response.ValidationError(w, map[string][]string{"price": {"price must be a decimal"}})
			return
		}
		params.Price = &price
	}

	tier, err := h.tiers.UpdateTier(r.Context(), tierID, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, tier)
}

func (h *Handler) handleDeleteTier(w http.ResponseWriter, r *http.Request) {
	callerID, tierID, ok := h.tierRequest(w, r)
	if !ok {
		return
	}
	if !h.requireTierOwner(w, r, tierID, callerID) {
		return
	}

	if err := h.tiers.DeactivateTier(r.Context(), tierID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) handleListTiers(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.URL.Query().Get("creator_id"))
	if err != nil {
		callerID, ok := jwt.CallerID(r.Context())
		if !ok {
			response.Error(w, http.StatusBadRequest, "invalid_creator_id", "creator_id query parameter is required")
			return
		}
		creatorID = callerID
	}

	tiers, err := h.tiers.ListByCreator(r.Context(), creatorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, tiers)
}

// --- subscriptions ---

type startCheckoutRequest struct {
	TierID string `json:"tier_id"`
	Email  string `json:"email"`
}

func (h *Handler) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	callerID, ok := jwt.CallerID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	var req startCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}
	tierID, err := uuid.Parse(req.TierID)
	if err != nil {
		response.ValidationError(w, map[string][]string{"tier_id": {"tier_id must be a uuid"}})
		return
	}

	session, err := h.checkout.StartCheckout(r.Context(), callerID, tierID, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListMySubscriptions(w http.ResponseWriter, r *http.Request) {
	callerID, ok := jwt.CallerID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	subs, err := h.subs.ListBySubscriber(r.Context(), callerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, subs)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.subscriptionCommand(w, r, h.engine.Cancel)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.subscriptionCommand(w, r, h.engine.Pause)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.subscriptionCommand(w, r, h.engine.Resume)
}

func (h *Handler) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := jwt.CallerID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	summaries, err := h.subs.ListSubscribersByCreator(r.Context(), callerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	monthly := decimal.Zero
	for _, s := range summaries {
		if s.Status == StatusActive {
			monthly = monthly.Add(s.MonthlyRevenue())
		}
	}

	response.JSONWithMeta(w, http.StatusOK, summaries, map[string]any{
		"count":           len(summaries),
		"monthly_revenue": monthly,
	})
}

// --- helpers ---

// subscriptionCommand runs a user lifecycle command after checking that the
// caller owns the subscription. Idempotent repeats return 200.
func (h *Handler) subscriptionCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, uuid.UUID) error) {
	callerID, ok := jwt.CallerID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}
	subscriptionID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_subscription_id", "subscription id must be a uuid")
		return
	}

	sub, err := h.subs.Get(r.Context(), subscriptionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if sub.SubscriberID != callerID {
		h.writeError(w, r, ErrNotSubscriptionOwner)
		return
	}

	if err := cmd(r.Context(), subscriptionID); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err = h.subs.Get(r.Context(), subscriptionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, sub)
}

func (h *Handler) tierRequest(w http.ResponseWriter, r *http.Request) (callerID, tierID uuid.UUID, ok bool) {
	callerID, found := jwt.CallerID(r.Context())
	if !found {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return uuid.Nil, uuid.Nil, false
	}
	tierID, err := uuid.Parse(chi.URLParam(r, "tierID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_tier_id", "tier id must be a uuid")
		return uuid.Nil, uuid.Nil, false
	}
	return callerID, tierID, true
}

func (h *Handler) requireTierOwner(w http.ResponseWriter, r *http.Request, tierID, callerID uuid.UUID) bool {
	tier, err := h.tiers.GetTier(r.Context(), tierID)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if tier.CreatorID != callerID {
		response.Error(w, http.StatusForbidden, "forbidden", "caller does not own this tier")
		return false
	}
	return true
}

// writeError maps domain errors onto the response envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTierNotFound), errors.Is(err, ErrSubscriptionNotFound):
		response.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrTierCapacityExceeded):
		response.Error(w, http.StatusConflict, "tier_full", "tier has reached its subscriber capacity")
	case errors.Is(err, ErrCapacityBelowCount):
		response.Error(w, http.StatusConflict, "capacity_below_count", err.Error())
	case errors.Is(err, ErrAlreadySubscribed):
		response.Error(w, http.StatusConflict, "already_subscribed", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, ErrTierInactive):
		response.Error(w, http.StatusConflict, "tier_inactive", err.Error())
	case errors.Is(err, ErrSelfSubscription):
		response.Error(w, http.StatusUnprocessableEntity, "self_subscription", err.Error())
	case errors.Is(err, ErrInvalidTierPrice), errors.Is(err, ErrInvalidTierCapacity), errors.Is(err, ErrInvalidInterval):
		response.Error(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrNotTierOwner), errors.Is(err, ErrNotSubscriptionOwner):
		response.Error(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed", logger.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "temporarily_unavailable", "the operation could not be completed, retry later")
	}
}
