package borrowing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// CreateBorrowingUseCase 借书用例
//
// 并发问题和下单扣库存一样：同一本书最后一册被多人同时借，
// 只能有一个成功。库存判断与扣减在同一事务内、基于行锁后的值完成。
type CreateBorrowingUseCase struct {
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

// NewCreateBorrowingUseCase 创建借书用例
func NewCreateBorrowingUseCase(
	txManager TxManager,
	ledger *inventory.Ledger,
	borrowings borrowing.Repository,
	payments payment.Repository,
	binder *apppayment.SessionBinder,
	notifier notification.Notifier,
	messageLimit int,
	logger *slog.Logger,
) *CreateBorrowingUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateBorrowingUseCase{
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

// CreateBorrowingRequest 借书请求
type CreateBorrowingRequest struct {
	UserID             uint   // 从JWT中提取
	UserEmail          string // 通知文本使用
	BookID             uint
	ExpectedReturnDate time.Time
}

// Execute 执行借书
//
//  1. 校验预计归还日（晚于今天）
//  2. 事务内：锁图书行 → 判断库存 → 扣减 → 写借阅 → 写租金记录(PENDING)
//  3. 提交后：开网关会话并写回记录（失败降级为无会话记录）
//  4. 通知入队
func (uc *CreateBorrowingUseCase) Execute(ctx context.Context, req CreateBorrowingRequest) (view *BorrowingView, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "borrowing.create")
	defer func() { tracing.End(span, err) }()

	now := uc.now()

	// 1. 日期校验放在事务之外，非法请求不占用行锁
	if err := borrowing.ValidateExpectedReturnDate(req.ExpectedReturnDate, now); err != nil {
		metrics.RecordBorrowingRejected("invalid_date")
		return nil, err
	}

	var (
		b   *borrowing.Borrowing
		bk  *book.Book
		rec *payment.Record
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 2. 扣减库存（SELECT ... FOR UPDATE）
		var err error
		bk, err = uc.ledger.Reserve(txCtx, req.BookID)
		if err != nil {
			return err
		}

		// 3. 创建借阅
		b, err = borrowing.New(req.UserID, req.BookID, req.ExpectedReturnDate, now)
		if err != nil {
			return err
		}
		if err := uc.borrowings.Create(txCtx, b); err != nil {
			return err
		}

		// 4. 租金 = 借阅天数 × 日租金，按锁定时的日租金计算
		fee := borrowing.RentalFee(bk.DailyFee, b.BorrowDate, b.ExpectedReturnDate)
		rec, err = payment.NewRecord(b.ID, payment.KindRentalFee, fee, now)
		if err != nil {
			return err
		}
		return uc.payments.Create(txCtx, rec)
	})
	if err != nil {
		if errors.Is(err, inventory.ErrOutOfStock) {
			metrics.RecordBorrowingRejected("out_of_stock")
		} else if apperrors.GetAppError(err).Code >= apperrors.ErrCodeInternal {
			metrics.RecordBorrowingRejected("internal")
		}
		return nil, err
	}

	// 5. 网关会话（事务已提交，库存与借阅不受网关结果影响）
	uc.binder.Bind(ctx, rec, bk.Title)

	// 6. 通知
	notification.Send(ctx, uc.notifier, notification.KindBorrowingCreated,
		notification.BorrowingCreatedText(bk.Title, req.UserEmail, b.ExpectedReturnDate),
		uc.messageLimit, now)

	metrics.RecordBorrowingCreated(time.Since(start).Seconds())
	uc.logger.InfoContext(ctx, "borrowing created",
		"borrowing_id", b.ID,
		"user_id", b.UserID,
		"book_id", b.BookID,
		"inventory_left", bk.Inventory,
	)

	return newBorrowingView(b, bk, []*payment.Record{rec}), nil
}
