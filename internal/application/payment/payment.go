package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// TxManager 事务管理
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// =========================================
// 列表与详情
// =========================================

// ListPaymentsUseCase 支付记录列表，非管理员只能看到自己借阅下的记录
type ListPaymentsUseCase struct {
	payments payment.Repository
}

// NewListPaymentsUseCase 创建列表用例
func NewListPaymentsUseCase(payments payment.Repository) *ListPaymentsUseCase {
	return &ListPaymentsUseCase{payments: payments}
}

// ListPaymentsRequest 列表请求
type ListPaymentsRequest struct {
	UserID   uint
	IsStaff  bool
	Page     int
	PageSize int
}

// ListPaymentsResponse 列表响应
type ListPaymentsResponse struct {
	Payments []PaymentView
	Total    int64
	Page     int
	PageSize int
}

// Execute 执行查询
func (uc *ListPaymentsUseCase) Execute(ctx context.Context, req ListPaymentsRequest) (*ListPaymentsResponse, error) {
	params := payment.ListParams{Page: req.Page, PageSize: req.PageSize}
	if !req.IsStaff {
		owner := req.UserID
		params.OwnerID = &owner
	}

	records, total, err := uc.payments.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return &ListPaymentsResponse{
		Payments: NewPaymentViews(records),
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// GetPaymentUseCase 支付记录详情
type GetPaymentUseCase struct {
	payments   payment.Repository
	borrowings borrowing.Repository
}

// NewGetPaymentUseCase 创建详情用例
func NewGetPaymentUseCase(payments payment.Repository, borrowings borrowing.Repository) *GetPaymentUseCase {
	return &GetPaymentUseCase{payments: payments, borrowings: borrowings}
}

// GetPaymentRequest 详情请求
type GetPaymentRequest struct {
	ID      uint
	UserID  uint
	IsStaff bool
}

// Execute 他人的记录按不存在处理
func (uc *GetPaymentUseCase) Execute(ctx context.Context, req GetPaymentRequest) (*PaymentView, error) {
	rec, err := uc.payments.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if !req.IsStaff {
		b, err := uc.borrowings.FindByID(ctx, rec.BorrowingID)
		if err != nil {
			return nil, err
		}
		if !b.IsOwnedBy(req.UserID) {
			return nil, payment.ErrPaymentNotFound
		}
	}

	view := NewPaymentView(rec)
	return &view, nil
}

// =========================================
// 发起支付
// =========================================

// CreatePaymentUseCase 为借阅补开一笔待支付记录
// 典型场景：借阅时网关不可用，记录没有会话，用户稍后重新发起
type CreatePaymentUseCase struct {
	txManager  TxManager
	borrowings borrowing.Repository
	books      book.Repository
	payments   payment.Repository
	binder     *SessionBinder
	now        func() time.Time
}

// NewCreatePaymentUseCase 创建发起支付用例
func NewCreatePaymentUseCase(
	txManager TxManager,
	borrowings borrowing.Repository,
	books book.Repository,
	payments payment.Repository,
	binder *SessionBinder,
) *CreatePaymentUseCase {
	return &CreatePaymentUseCase{
		txManager:  txManager,
		borrowings: borrowings,
		books:      books,
		payments:   payments,
		binder:     binder,
		now:        time.Now,
	}
}

// CreatePaymentRequest 发起支付请求
type CreatePaymentRequest struct {
	UserID      uint
	BorrowingID uint
	Kind        payment.Kind
	Amount      decimal.Decimal
}

// Execute 只有借阅本人可以发起
func (uc *CreatePaymentUseCase) Execute(ctx context.Context, req CreatePaymentRequest) (*PaymentView, error) {
	now := uc.now()

	var (
		rec   *payment.Record
		title string
	)
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		b, err := uc.borrowings.FindByID(txCtx, req.BorrowingID)
		if err != nil {
			return err
		}
		if !b.IsOwnedBy(req.UserID) {
			return borrowing.ErrNotOwner
		}

		bk, err := uc.books.FindByID(txCtx, b.BookID)
		if err != nil {
			return err
		}
		title = bk.Title

		rec, err = payment.NewRecord(b.ID, req.Kind, req.Amount, now)
		if err != nil {
			return err
		}
		return uc.payments.Create(txCtx, rec)
	})
	if err != nil {
		return nil, err
	}

	uc.binder.Bind(ctx, rec, title)

	view := NewPaymentView(rec)
	return &view, nil
}

// =========================================
// 网关回调
// =========================================

// ConfirmPaymentUseCase 支付成功回调：核实后 PENDING -> PAID
// 重复回调是正常现象（用户刷新页面），已支付的记录直接返回
type ConfirmPaymentUseCase struct {
	txManager    TxManager
	payments     payment.Repository
	gateway      payment.Gateway
	notifier     notification.Notifier
	messageLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// NewConfirmPaymentUseCase 创建确认用例
func NewConfirmPaymentUseCase(
	txManager TxManager,
	payments payment.Repository,
	gateway payment.Gateway,
	notifier notification.Notifier,
	messageLimit int,
	logger *slog.Logger,
) *ConfirmPaymentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmPaymentUseCase{
		txManager:    txManager,
		payments:     payments,
		gateway:      gateway,
		notifier:     notifier,
		messageLimit: messageLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// ConfirmPaymentRequest 回调参数
type ConfirmPaymentRequest struct {
	BorrowingID uint
	SessionID   string
}

// ConfirmPaymentResponse 确认结果
type ConfirmPaymentResponse struct {
	Payment     PaymentView `json:"payment"`
	AlreadyPaid bool        `json:"already_paid"`
}

// Execute 执行确认
// 记录行锁在核实期间一直持有，并发的重复回调会排队，只有第一个会真正改状态
func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, req ConfirmPaymentRequest) (resp *ConfirmPaymentResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "payment.confirm")
	defer func() { tracing.End(span, err) }()

	if req.SessionID == "" {
		return nil, apperrors.ErrInvalidParams.WithField("session_id")
	}

	now := uc.now()
	var (
		rec     *payment.Record
		changed bool
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = uc.payments.LockBySessionID(txCtx, req.SessionID)
		if err != nil {
			return err
		}
		if rec.BorrowingID != req.BorrowingID {
			return payment.ErrSessionMismatch
		}
		if rec.IsPaid() {
			return nil
		}

		paid, err := uc.gateway.IsPaid(txCtx, req.SessionID)
		if err != nil {
			if errors.Is(err, payment.ErrUnavailable) {
				return err
			}
			return apperrors.ErrGatewayUnavailable.WithErr(err)
		}
		if !paid {
			return payment.ErrNotPaidYet
		}

		changed = rec.MarkPaid(now)
		return uc.payments.Update(txCtx, rec)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.RecordPaymentConfirmed()
		uc.logger.InfoContext(ctx, "payment confirmed",
			"payment_id", rec.ID,
			"borrowing_id", rec.BorrowingID,
			"kind", rec.Kind.String(),
		)
		notification.Send(ctx, uc.notifier, notification.KindPaymentConfirmed,
			notification.PaymentConfirmedText(rec.ID, rec.BorrowingID, rec.Kind.String(), rec.AmountDue),
			uc.messageLimit, now)
	}

	return &ConfirmPaymentResponse{
		Payment:     NewPaymentView(rec),
		AlreadyPaid: !changed,
	}, nil
}

// CancelPaymentUseCase 支付取消回调，不改变任何状态
type CancelPaymentUseCase struct {
	payments   payment.Repository
	sessionTTL time.Duration
}

// NewCancelPaymentUseCase 创建取消用例
func NewCancelPaymentUseCase(payments payment.Repository, sessionTTL time.Duration) *CancelPaymentUseCase {
	return &CancelPaymentUseCase{payments: payments, sessionTTL: sessionTTL}
}

// CancelPaymentResponse 取消结果
type CancelPaymentResponse struct {
	Message    string `json:"message"`
	SessionURL string `json:"session_url,omitempty"`
}

// Execute 提示用户会话有效期内仍可通过原链接继续支付
func (uc *CancelPaymentUseCase) Execute(ctx context.Context, req ConfirmPaymentRequest) (*CancelPaymentResponse, error) {
	if req.SessionID == "" {
		return nil, apperrors.ErrInvalidParams.WithField("session_id")
	}

	rec, err := uc.payments.FindBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if rec.BorrowingID != req.BorrowingID {
		return nil, payment.ErrSessionMismatch
	}

	resp := &CancelPaymentResponse{
		Message: "Payment can be completed later through the same link while the session is valid (" +
			uc.sessionTTL.String() + " from creation)",
	}
	if rec.HasSession() && !rec.IsPaid() {
		resp.SessionURL = rec.Session.URL
	}
	return resp, nil
}
