package borrowing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// ReturnBorrowingUseCase 还书用例
type ReturnBorrowingUseCase struct {
	txManager    TxManager
	ledger       *inventory.Ledger
	borrowings   borrowing.Repository
	payments     payment.Repository
	binder       *apppayment.SessionBinder
	notifier     notification.Notifier
	messageLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// NewReturnBorrowingUseCase 创建还书用例
func NewReturnBorrowingUseCase(
	txManager TxManager,
	ledger *inventory.Ledger,
	borrowings borrowing.Repository,
	payments payment.Repository,
	binder *apppayment.SessionBinder,
	notifier notification.Notifier,
	messageLimit int,
	logger *slog.Logger,
) *ReturnBorrowingUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReturnBorrowingUseCase{
		txManager:    txManager,
		ledger:       ledger,
		borrowings:   borrowings,
		payments:     payments,
		binder:       binder,
		notifier:     notifier,
		messageLimit: messageLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// ReturnBorrowingRequest 还书请求
type ReturnBorrowingRequest struct {
	BorrowingID      uint
	UserID           uint
	UserEmail        string
	ActualReturnDate *time.Time
}

// Execute 执行还书
//
// 事务内：锁借阅行 → 归属校验 → 已归还/日期校验 → 库存+1 → 写回借阅 → 逾期时处理罚金记录
// 提交后：作废被替换的旧会话 → 为罚金开新会话 → 通知
func (uc *ReturnBorrowingUseCase) Execute(ctx context.Context, req ReturnBorrowingRequest) (view *BorrowingView, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "borrowing.return")
	defer func() { tracing.End(span, err) }()

	now := uc.now()

	var (
		b          *borrowing.Borrowing
		bk         *book.Book
		fineRec    *payment.Record
		oldSession *payment.Session
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 锁住借阅行，并发的重复归还在这里排队，后到者会看到已归还
		var err error
		b, err = uc.borrowings.LockByID(txCtx, req.BorrowingID)
		if err != nil {
			return err
		}
		if !b.IsOwnedBy(req.UserID) {
			return borrowing.ErrNotOwner
		}

		// 2. 已归还 → AlreadyReturned；日期非法 → InvalidDate
		if err := b.Return(req.ActualReturnDate, now); err != nil {
			return err
		}

		// 3. 库存+1
		bk, err = uc.ledger.Release(txCtx, b.BookID)
		if err != nil {
			return err
		}
		if err := uc.borrowings.Update(txCtx, b); err != nil {
			return err
		}

		// 4. 逾期罚金
		if !b.IsOverdue() {
			return nil
		}
		fine := borrowing.Fine(bk.DailyFee, b.ExpectedReturnDate, *b.ActualReturnDate)
		fineRec, oldSession, err = uc.settleFine(txCtx, b.ID, fine, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	overdue := fineRec != nil
	if overdue {
		uc.binder.Expire(ctx, oldSession)
		uc.binder.Bind(ctx, fineRec, bk.Title)

		notification.Send(ctx, uc.notifier, notification.KindFineIncurred,
			notification.FineText(bk.Title, req.UserEmail, b.ExpectedReturnDate, fineRec.AmountDue),
			uc.messageLimit, now)
	}

	metrics.RecordBorrowingReturned(overdue, time.Since(start).Seconds())
	uc.logger.InfoContext(ctx, "borrowing returned",
		"borrowing_id", b.ID,
		"book_id", b.BookID,
		"overdue_days", b.OverdueDays(),
	)

	records, err := uc.payments.ListByBorrowings(ctx, []uint{b.ID})
	if err != nil {
		return nil, err
	}
	return newBorrowingView(b, bk, records[b.ID]), nil
}

// settleFine 最新一条记录仍是PENDING时原地改为罚金，否则新建一条FINE记录
// 已支付的记录永远不会被修改
func (uc *ReturnBorrowingUseCase) settleFine(ctx context.Context, borrowingID uint, fine decimal.Decimal, now time.Time) (*payment.Record, *payment.Session, error) {
	latest, err := uc.payments.LockLatestByBorrowing(ctx, borrowingID)
	if err != nil && !errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, nil, err
	}

	if latest != nil && !latest.IsPaid() {
		old, err := latest.RetagAsFine(fine, now)
		if err != nil {
			return nil, nil, err
		}
		if err := uc.payments.Update(ctx, latest); err != nil {
			return nil, nil, err
		}
		return latest, old, nil
	}

	rec, err := payment.NewRecord(borrowingID, payment.KindFine, fine, now)
	if err != nil {
		return nil, nil, err
	}
	if err := uc.payments.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	return rec, nil, nil
}
