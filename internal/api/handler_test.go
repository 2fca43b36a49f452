package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keepcase/billing/internal/api"
	"github.com/keepcase/billing/internal/billing"
)

// Mock implementations

type mockCheckout struct {
	mock.Mock
}

func (m *mockCheckout) Start(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

type mockPortal struct {
	mock.Mock
}

func (m *mockPortal) Open(ctx context.Context, userID, originURL string) (*billing.PortalSession, error) {
	args := m.Called(ctx, userID, originURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PortalSession), args.Error(1)
}

type mockWebhooks struct {
	mock.Mock
}

func (m *mockWebhooks) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

type mockSubscriptionStore struct {
	mock.Mock
}

func (m *mockSubscriptionStore) Get(ctx context.Context, userID string) (*billing.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionStore) Merge(ctx context.Context, userID string, fields map[string]any) error {
	args := m.Called(ctx, userID, fields)
	return args.Error(0)
}

type deps struct {
	checkout *mockCheckout
	portal   *mockPortal
	webhooks *mockWebhooks
	subs     *mockSubscriptionStore
}

func newTestRouter(t *testing.T) (http.Handler, deps) {
	t.Helper()
	d := deps{
		checkout: &mockCheckout{},
		portal:   &mockPortal{},
		webhooks: &mockWebhooks{},
		subs:     &mockSubscriptionStore{},
	}
	h := api.NewHandler(d.checkout, d.portal, d.webhooks, d.subs, "pk_test_123", nil)
	return api.NewRouter(h, nil), d
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()

	t.Run("returns the session on success", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.checkout.On("Start", mock.Anything, billing.CheckoutRequest{
			UserID:    "user-1",
			UserEmail: "user@example.com",
			PriceID:   "price_pro",
			OriginURL: "https://app.example.com",
		}).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/billing/checkout",
			strings.NewReader(`{"priceId":"price_pro","userId":"user-1","userEmail":"user@example.com"}`))
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "cs_1", body["sessionId"])
		assert.Equal(t, "https://checkout.stripe.com/cs_1", body["url"])
		d.checkout.AssertExpectations(t)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/billing/checkout", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		d.checkout.AssertNotCalled(t, "Start")
	})

	t.Run("validation errors map to 400 with the sentinel message", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.checkout.On("Start", mock.Anything, mock.Anything).Return(nil, billing.ErrMissingPriceID)

		req := httptest.NewRequest(http.MethodPost, "/billing/checkout",
			strings.NewReader(`{"userId":"user-1","userEmail":"user@example.com"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, billing.ErrMissingPriceID.Error(), body["error"])
	})

	t.Run("internal failures return a generic 500", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.checkout.On("Start", mock.Anything, mock.Anything).
			Return(nil, errors.New("stripe: connection reset"))

		req := httptest.NewRequest(http.MethodPost, "/billing/checkout",
			strings.NewReader(`{"priceId":"p","userId":"u","userEmail":"e@example.com"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.NotContains(t, body["error"], "stripe")
	})
}

func TestHandler_Portal(t *testing.T) {
	t.Parallel()

	t.Run("returns the portal url on success", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.portal.On("Open", mock.Anything, "user-1", "https://app.example.com").
			Return(&billing.PortalSession{URL: "https://billing.stripe.com/p/1"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/billing/portal",
			strings.NewReader(`{"userId":"user-1"}`))
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "https://billing.stripe.com/p/1", body["url"])
	})

	t.Run("no billing account maps to 404", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.portal.On("Open", mock.Anything, "user-1", "").
			Return(nil, billing.ErrNoBillingAccount)

		req := httptest.NewRequest(http.MethodPost, "/billing/portal",
			strings.NewReader(`{"userId":"user-1"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "no subscription found", body["error"])
	})
}

func TestHandler_Webhook(t *testing.T) {
	t.Parallel()

	t.Run("acknowledges processed events", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.webhooks.On("HandleEvent", mock.Anything, []byte(`{"id":"evt_1"}`), "t=1,v1=sig").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/billing/webhook",
			strings.NewReader(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=sig")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["received"])
		d.webhooks.AssertExpectations(t)
	})

	t.Run("invalid signature maps to 400", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.webhooks.On("HandleEvent", mock.Anything, mock.Anything, mock.Anything).
			Return(billing.ErrWebhookVerificationFailed)

		req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("processing failures return 500 so the provider redelivers", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.webhooks.On("HandleEvent", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("firestore unavailable"))

		req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_Subscription(t *testing.T) {
	t.Parallel()

	t.Run("requires a user id", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/billing/subscription", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		d.subs.AssertNotCalled(t, "Get")
	})

	t.Run("returns the stored record", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.subs.On("Get", mock.Anything, "user-1").Return(&billing.Subscription{
			UserID: "user-1",
			Status: billing.StatusActive,
			Tier:   billing.TierPro,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/billing/subscription?userId=user-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, "pro", body["tier"])
	})

	t.Run("missing record defaults to the free tier", func(t *testing.T) {
		t.Parallel()
		router, d := newTestRouter(t)
		d.subs.On("Get", mock.Anything, "user-1").Return(nil, billing.ErrSubscriptionNotFound)

		req := httptest.NewRequest(http.MethodGet, "/billing/subscription?userId=user-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "none", body["status"])
		assert.Equal(t, "free", body["tier"])
		assert.Equal(t, "user-1", body["userId"])
	})
}

func TestHandler_Config(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/billing/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "pk_test_123", body["publishableKey"])
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
