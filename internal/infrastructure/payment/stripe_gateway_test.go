package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
)

type fakeCheckout struct {
	created   []*stripe.CheckoutSessionParams
	sessions  map[string]*stripe.CheckoutSession
	newErr    error
	expireErr error
	calls     int
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{sessions: make(map[string]*stripe.CheckoutSession)}
}

func (f *fakeCheckout) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.calls++
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.created = append(f.created, params)
	s := &stripe.CheckoutSession{
		ID:        "cs_test_a1",
		URL:       "https://checkout.stripe.com/c/pay/cs_test_a1",
		ExpiresAt: *params.ExpiresAt,
		Status:    stripe.CheckoutSessionStatusOpen,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeCheckout) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.calls++
	s, ok := f.sessions[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: 404, Msg: "No such checkout session"}
	}
	return s, nil
}

func (f *fakeCheckout) Expire(id string, _ *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error) {
	f.calls++
	if f.expireErr != nil {
		return nil, f.expireErr
	}
	s := f.sessions[id]
	s.Status = stripe.CheckoutSessionStatusExpired
	return s, nil
}

var testPaymentConfig = config.PaymentConfig{
	SecretKey:  "sk_test_x",
	Currency:   "usd",
	BaseURL:    "https://library.example.com/",
	SessionTTL: 30 * time.Minute,
	Timeout:    time.Second,
}

func newTestGateway(api checkoutAPI) *StripeGateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := newStripeGateway(api, testPaymentConfig, config.BreakerConfig{
		MaxRequests:         1,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}, logger)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return g
}

func TestOpenSession_BuildsCheckoutParams(t *testing.T) {
	api := newFakeCheckout()
	g := newTestGateway(api)

	s, err := g.OpenSession(context.Background(), payment.SessionRequest{
		PaymentID:   3,
		BorrowingID: 12,
		Kind:        payment.KindRentalFee,
		Amount:      decimal.RequireFromString("42.009"),
		Title:       "Dune",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_a1", s.ID)
	assert.NotEmpty(t, s.URL)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), s.ExpiresAt)

	require.Len(t, api.created, 1)
	p := api.created[0]
	item := p.LineItems[0]
	assert.Equal(t, int64(4200), *item.PriceData.UnitAmount, "按最小货币单位截断")
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, "Dune", *item.PriceData.ProductData.Name)
	assert.Nil(t, item.PriceData.ProductData.Description)
	assert.Equal(t, "https://library.example.com/api/v1/borrowings/12/success?session_id={CHECKOUT_SESSION_ID}", *p.SuccessURL)
	assert.Equal(t, "https://library.example.com/api/v1/borrowings/12/cancel?session_id={CHECKOUT_SESSION_ID}", *p.CancelURL)
	assert.Equal(t, "3", p.Metadata["payment_id"])
	require.NotNil(t, p.IdempotencyKey)
	assert.NotEmpty(t, *p.IdempotencyKey)
}

func TestUnconfiguredGatewayIsUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testPaymentConfig
	cfg.SecretKey = ""
	g := NewStripeGateway(cfg, config.BreakerConfig{}, logger)

	_, err := g.OpenSession(context.Background(), payment.SessionRequest{Amount: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, payment.ErrUnavailable))
	_, err = g.IsPaid(context.Background(), "cs_x")
	assert.True(t, errors.Is(err, payment.ErrUnavailable))
	assert.True(t, errors.Is(g.ExpireSession(context.Background(), "cs_x"), payment.ErrUnavailable))
}

func TestBreakerOpensOnUpstreamFailures(t *testing.T) {
	api := newFakeCheckout()
	api.newErr = &stripe.Error{HTTPStatusCode: 503, Msg: "upstream"}
	g := newTestGateway(api)
	req := payment.SessionRequest{Amount: decimal.NewFromInt(5), Title: "Dune"}

	for i := 0; i < 2; i++ {
		_, err := g.OpenSession(context.Background(), req)
		assert.True(t, errors.Is(err, payment.ErrUnavailable))
	}
	require.Equal(t, 2, api.calls)

	// 熔断打开后不再访问上游
	_, err := g.OpenSession(context.Background(), req)
	assert.True(t, errors.Is(err, payment.ErrUnavailable))
	assert.Equal(t, 2, api.calls)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	api := newFakeCheckout()
	api.newErr = &stripe.Error{HTTPStatusCode: 400, Msg: "invalid amount"}
	g := newTestGateway(api)
	req := payment.SessionRequest{Amount: decimal.NewFromInt(5), Title: "Dune"}

	for i := 0; i < 3; i++ {
		_, err := g.OpenSession(context.Background(), req)
		require.Error(t, err)
		assert.False(t, errors.Is(err, payment.ErrUnavailable))
	}
	assert.Equal(t, 3, api.calls)
}

func TestIsPaidAndExpire(t *testing.T) {
	api := newFakeCheckout()
	g := newTestGateway(api)
	ctx := context.Background()

	s, err := g.OpenSession(ctx, payment.SessionRequest{Amount: decimal.NewFromInt(5), Title: "Dune"})
	require.NoError(t, err)

	paid, err := g.IsPaid(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	api.sessions[s.ID].PaymentStatus = stripe.CheckoutSessionPaymentStatusPaid
	paid, err = g.IsPaid(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, paid)

	_, err = g.IsPaid(ctx, "cs_missing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, payment.ErrUnavailable))

	require.NoError(t, g.ExpireSession(ctx, s.ID))
	assert.Equal(t, stripe.CheckoutSessionStatusExpired, api.sessions[s.ID].Status)

	// 已失效的会话再次失效视为成功
	api.expireErr = &stripe.Error{HTTPStatusCode: 400, Msg: "session is not open"}
	assert.NoError(t, g.ExpireSession(ctx, s.ID))
}
