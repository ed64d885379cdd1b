// Package payment Stripe Checkout 支付网关
//
// 所有网关调用都经过熔断器；熔断打开或未配置密钥时返回 payment.ErrUnavailable，
// 上层把它当作降级信号而不是失败。
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

const breakerName = "stripe"

// checkoutAPI Checkout Session 接口，*checkoutsession.Client 满足它
type checkoutAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

// StripeGateway 实现 payment.Gateway
type StripeGateway struct {
	sessions checkoutAPI // nil 表示未配置
	breaker  *circuitbreaker.CircuitBreaker
	cfg      config.PaymentConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ payment.Gateway = (*StripeGateway)(nil)

// NewStripeGateway 创建网关；SecretKey为空时网关始终不可用
func NewStripeGateway(cfg config.PaymentConfig, breakerCfg config.BreakerConfig, logger *slog.Logger) *StripeGateway {
	var sessions checkoutAPI
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		sessions = sc.CheckoutSessions
	} else {
		logger.Warn("payment gateway not configured, sessions will not be opened")
	}
	return newStripeGateway(sessions, cfg, breakerCfg, logger)
}

func newStripeGateway(sessions checkoutAPI, cfg config.PaymentConfig, breakerCfg config.BreakerConfig, logger *slog.Logger) *StripeGateway {
	trip := breakerCfg.ConsecutiveFailures
	if trip == 0 {
		trip = 3
	}
	cb := circuitbreaker.New(breakerName, circuitbreaker.Config{
		MaxRequests:  breakerCfg.MaxRequests,
		Interval:     breakerCfg.Interval,
		Timeout:      breakerCfg.Timeout,
		ReadyToTrip:  func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= trip },
		IsSuccessful: func(err error) bool { return err == nil || !isUpstreamFailure(err) },
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordBreakerState(name, int(to))
		},
	})

	return &StripeGateway{
		sessions: sessions,
		breaker:  cb,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// OpenSession 创建一次性Checkout Session
// 金额按最小货币单位截断，数量固定为1
func (g *StripeGateway) OpenSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if g.sessions == nil {
		return nil, payment.ErrUnavailable
	}

	expiresAt := g.now().Add(g.cfg.SessionTTL)
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.Title),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.cfg.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(payment.MinorUnits(req.Amount)),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(g.callbackURL(req.BorrowingID, "success")),
		CancelURL:         stripe.String(g.callbackURL(req.BorrowingID, "cancel")),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.BorrowingID), 10)),
	}
	params.AddMetadata("payment_id", strconv.FormatUint(uint64(req.PaymentID), 10))
	params.AddMetadata("kind", req.Kind.String())
	params.SetIdempotencyKey(uuid.NewString())

	var s *stripe.CheckoutSession
	err := g.call(ctx, func(callCtx context.Context) error {
		params.Context = callCtx
		var err error
		s, err = g.sessions.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.ExpiresAt > 0 {
		expiresAt = time.Unix(s.ExpiresAt, 0)
	}
	return &payment.Session{ID: s.ID, URL: s.URL, ExpiresAt: expiresAt.UTC()}, nil
}

// IsPaid 以网关侧的payment_status为准
func (g *StripeGateway) IsPaid(ctx context.Context, sessionID string) (bool, error) {
	if g.sessions == nil {
		return false, payment.ErrUnavailable
	}

	var s *stripe.CheckoutSession
	err := g.call(ctx, func(callCtx context.Context) error {
		var err error
		s, err = g.sessions.Get(sessionID, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: callCtx}})
		return err
	})
	if err != nil {
		return false, err
	}
	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// ExpireSession 已经不是open状态的会话视为成功
func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	if g.sessions == nil {
		return payment.ErrUnavailable
	}

	return g.call(ctx, func(callCtx context.Context) error {
		_, err := g.sessions.Expire(sessionID, &stripe.CheckoutSessionExpireParams{Params: stripe.Params{Context: callCtx}})
		if err == nil || isUpstreamFailure(err) {
			return err
		}
		s, getErr := g.sessions.Get(sessionID, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: callCtx}})
		if getErr == nil && s.Status != stripe.CheckoutSessionStatusOpen {
			return nil
		}
		return err
	})
}

// call 熔断保护 + 单次调用超时
func (g *StripeGateway) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	err := g.breaker.Execute(func() error { return fn(ctx) })
	switch {
	case err == nil:
		metrics.RecordBreakerRequest(breakerName, "success")
		return nil
	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		metrics.RecordBreakerRequest(breakerName, "rejected")
		return payment.ErrUnavailable.WithErr(err)
	case isUpstreamFailure(err):
		metrics.RecordBreakerRequest(breakerName, "failure")
		return payment.ErrUnavailable.WithErr(err)
	default:
		metrics.RecordBreakerRequest(breakerName, "failure")
		return fmt.Errorf("stripe: %w", err)
	}
}

func (g *StripeGateway) callbackURL(borrowingID uint, action string) string {
	// {CHECKOUT_SESSION_ID} 由Stripe替换为真实会话ID
	return fmt.Sprintf("%s/api/v1/borrowings/%d/%s?session_id={CHECKOUT_SESSION_ID}",
		strings.TrimRight(g.cfg.BaseURL, "/"), borrowingID, action)
}

// isUpstreamFailure 网络错误、超时、限流和5xx计入熔断；参数类4xx不计入
func isUpstreamFailure(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode >= http.StatusInternalServerError || se.HTTPStatusCode == http.StatusTooManyRequests
	}
	return true
}
