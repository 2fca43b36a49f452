package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/keepcase/billing/internal/billing"
)

// Webhook payloads are bounded to the provider's documented maximum.
const maxWebhookBody = 64 * 1024

// CheckoutStarter starts a hosted checkout session.
type CheckoutStarter interface {
	Start(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error)
}

// PortalOpener opens a hosted billing-portal session.
type PortalOpener interface {
	Open(ctx context.Context, userID, originURL string) (*billing.PortalSession, error)
}

// WebhookHandler ingests a raw provider webhook delivery.
type WebhookHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

// Handler exposes the billing core over HTTP.
type Handler struct {
	checkout       CheckoutStarter
	portal         PortalOpener
	webhooks       WebhookHandler
	subs           billing.SubscriptionStore
	publishableKey string
	log            *slog.Logger
}

// NewHandler creates the billing HTTP handler. Panics on nil services.
func NewHandler(checkout CheckoutStarter, portal PortalOpener, webhooks WebhookHandler, subs billing.SubscriptionStore, publishableKey string, log *slog.Logger) *Handler {
	if checkout == nil || portal == nil || webhooks == nil || subs == nil {
		panic("api: all billing services are required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		checkout:       checkout,
		portal:         portal,
		webhooks:       webhooks,
		subs:           subs,
		publishableKey: publishableKey,
		log:            log,
	}
}

// Checkout handles POST /billing/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PriceID   string `json:"priceId"`
		UserID    string `json:"userId"`
		UserEmail string `json:"userEmail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.checkout.Start(r.Context(), billing.CheckoutRequest{
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		PriceID:   req.PriceID,
		OriginURL: r.Header.Get("Origin"),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Portal handles POST /billing/portal.
func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.portal.Open(r.Context(), req.UserID, r.Header.Get("Origin"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Webhook handles POST /billing/webhook, the provider event ingestion
// endpoint. Processing errors return 5xx so the provider redelivers.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.webhooks.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, billing.ErrWebhookVerificationFailed) {
			respondError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.log.ErrorContext(r.Context(), "webhook processing failed", "error", err)
		respondError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Subscription handles GET /billing/subscription. Users without a
// record get the default free-tier state rather than an error.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, billing.ErrMissingUserID.Error())
		return
	}

	sub, err := h.subs.Get(r.Context(), userID)
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		sub = &billing.Subscription{UserID: userID, Status: billing.StatusNone, Tier: billing.TierFree}
	} else if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	sub.UserID = userID
	respondJSON(w, http.StatusOK, sub)
}

// Config handles GET /billing/config, exposing the publishable key the
// client-side checkout integration needs.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"publishableKey": h.publishableKey})
}

// respondServiceError maps billing errors onto HTTP status codes.
// Internal detail is logged, never returned to the client.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, billing.ErrMissingPriceID),
		errors.Is(err, billing.ErrMissingUserID),
		errors.Is(err, billing.ErrMissingUserEmail):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrNoBillingAccount):
		respondError(w, http.StatusNotFound, billing.ErrNoBillingAccount.Error())
	default:
		h.log.ErrorContext(r.Context(), "billing request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
