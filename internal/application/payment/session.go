package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/saga"
)

const defaultSessionTimeout = 15 * time.Second

// SessionBinder 在本地事务提交之后为支付记录开启网关会话
//
// 网关调用不能放进数据库事务：事务回滚撤销不了网关侧已创建的会话。
// 所以流程拆成两步Saga：
//  1. open-session   调网关开会话，补偿动作是让会话立即失效
//  2. attach-session 条件更新把会话写回记录，记录已被支付或改类型时失败并触发补偿
//
// 任何失败都不向上返回，记录保持无会话的PENDING，用户之后可以通过POST /payments重新发起
type SessionBinder struct {
	gateway payment.Gateway
	repo    payment.Repository
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionBinder 创建会话绑定器
func NewSessionBinder(gateway payment.Gateway, repo payment.Repository, logger *slog.Logger) *SessionBinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionBinder{
		gateway: gateway,
		repo:    repo,
		timeout: defaultSessionTimeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Bind 为记录开启会话并写回；成功时同时更新rec.Session
func (b *SessionBinder) Bind(ctx context.Context, rec *payment.Record, title string) {
	var opened *payment.Session

	s := saga.NewSaga(b.timeout, saga.WithLogger(b.logger), saga.WithName("payment-session"))
	s.AddStep("open-session",
		func(ctx context.Context) error {
			sess, err := b.gateway.OpenSession(ctx, payment.SessionRequest{
				PaymentID:   rec.ID,
				BorrowingID: rec.BorrowingID,
				Kind:        rec.Kind,
				Amount:      rec.AmountDue,
				Title:       title,
				Description: fmt.Sprintf("%s for borrowing #%d", rec.Kind, rec.BorrowingID),
			})
			if err != nil {
				return err
			}
			opened = sess
			return nil
		},
		func(ctx context.Context) error {
			if opened == nil {
				return nil
			}
			return b.gateway.ExpireSession(ctx, opened.ID)
		},
	)
	s.AddStep("attach-session",
		func(ctx context.Context) error {
			return b.repo.AttachSession(ctx, rec.ID, rec.Kind, *opened)
		},
		nil,
	)

	err := s.Execute(ctx)
	metrics.RecordSaga("payment-session", err)

	kind := rec.Kind.String()
	switch {
	case err == nil:
		_ = rec.AttachSession(*opened, b.now())
		metrics.RecordPaymentSession(kind, "opened")
	case errors.Is(err, payment.ErrUnavailable):
		metrics.RecordPaymentSession(kind, "unavailable")
		b.logger.WarnContext(ctx, "payment gateway unavailable, record kept without session",
			"payment_id", rec.ID,
			"borrowing_id", rec.BorrowingID,
			"kind", kind,
		)
	default:
		metrics.RecordPaymentSession(kind, "failed")
		b.logger.WarnContext(ctx, "open payment session failed",
			"payment_id", rec.ID,
			"borrowing_id", rec.BorrowingID,
			"kind", kind,
			"error", err,
		)
	}
}

// Expire 让被替换掉的旧会话失效，失败只记日志
func (b *SessionBinder) Expire(ctx context.Context, sess *payment.Session) {
	if sess == nil || sess.ID == "" {
		return
	}
	if err := b.gateway.ExpireSession(ctx, sess.ID); err != nil {
		b.logger.WarnContext(ctx, "expire replaced session failed",
			"session_id", sess.ID,
			"error", err,
		)
	}
}
