package billing

import (
	"context"
	"log/slog"
	"strings"
)

// CheckoutRequest carries the inputs for starting a hosted checkout.
// OriginURL comes from the request's Origin header and may be empty.
type CheckoutRequest struct {
	UserID    string
	UserEmail string
	PriceID   string
	OriginURL string
}

// CheckoutService mints hosted checkout sessions for subscription
// purchases. Each call creates a fresh session by design; only the
// customer resolution underneath is idempotent.
type CheckoutService struct {
	resolver *CustomerResolver
	provider PaymentProvider
	baseURL  string
	log      *slog.Logger
}

// NewCheckoutService creates a checkout service. baseURL is the
// configured application base URL used when a request carries no
// Origin. Panics on nil dependencies.
func NewCheckoutService(resolver *CustomerResolver, provider PaymentProvider, baseURL string, log *slog.Logger) *CheckoutService {
	if resolver == nil {
		panic("billing: CustomerResolver is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CheckoutService{resolver: resolver, provider: provider, baseURL: baseURL, log: log}
}

// Start validates the request, resolves the customer id and creates a
// subscription-mode checkout session. Validation failures are returned
// before any store or provider call. The session and its embedded
// subscription are stamped with the application user id so the webhook
// processor can correlate the subscription-created event back to the
// user.
func (s *CheckoutService) Start(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	switch {
	case req.PriceID == "":
		return nil, ErrMissingPriceID
	case req.UserID == "":
		return nil, ErrMissingUserID
	case req.UserEmail == "":
		return nil, ErrMissingUserEmail
	}

	res, err := s.resolver.Resolve(ctx, req.UserID, req.UserEmail)
	if err != nil {
		return nil, err
	}
	if res.ViaFallback() {
		s.log.InfoContext(ctx, "checkout with customer resolved via provider fallback",
			"user_id", req.UserID, "customer_id", res.CustomerID)
	}

	base := redirectBase(req.OriginURL, s.baseURL)
	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		CustomerID:        res.CustomerID,
		PriceID:           req.PriceID,
		SuccessURL:        base + "/?success=true",
		CancelURL:         base + "/?canceled=true",
		ClientReferenceID: req.UserID,
		Metadata:          map[string]string{MetadataUserIDKey: req.UserID},
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// redirectBase picks the redirect target base: the request origin when
// present, the configured application URL otherwise.
func redirectBase(origin, fallback string) string {
	base := origin
	if base == "" {
		base = fallback
	}
	return strings.TrimSuffix(base, "/")
}
