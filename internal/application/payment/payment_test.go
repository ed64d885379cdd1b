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

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/testutil/memstore"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

const ownerID = uint(7)

type env struct {
	store  *memstore.Store
	gw     *memstore.Gateway
	notes  *memstore.Notifier
	binder *SessionBinder
}

func newEnv() *env {
	store := memstore.New()
	gw := memstore.NewGateway()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &env{
		store:  store,
		gw:     gw,
		notes:  &memstore.Notifier{},
		binder: NewSessionBinder(gw, store.Payments(), logger),
	}
}

// seed 准备一本书、一笔借阅和一条带会话的租金记录
func (e *env) seed(t *testing.T) (*borrowing.Borrowing, *payment.Record) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	bk, err := book.NewBook("Solaris", "Stanisław Lem", book.CoverSoft, 2, decimal.RequireFromString("1.20"))
	require.NoError(t, err)
	require.NoError(t, e.store.Books().Create(ctx, bk))

	b, err := borrowing.New(ownerID, bk.ID, now.AddDate(0, 0, 5), now)
	require.NoError(t, err)
	require.NoError(t, e.store.Borrowings().Create(ctx, b))

	rec, err := payment.NewRecord(b.ID, payment.KindRentalFee, decimal.RequireFromString("6.00"), now)
	require.NoError(t, err)
	require.NoError(t, e.store.Payments().Create(ctx, rec))

	e.binder.Bind(ctx, rec, bk.Title)
	require.True(t, rec.HasSession())
	return b, rec
}

func (e *env) confirmUseCase() *ConfirmPaymentUseCase {
	return NewConfirmPaymentUseCase(e.store, e.store.Payments(), e.gw, e.notes, 4096, nil)
}

func TestConfirm_FlipsToPaidOnce(t *testing.T) {
	e := newEnv()
	b, rec := e.seed(t)
	e.gw.Pay(rec.Session.ID)
	uc := e.confirmUseCase()

	req := ConfirmPaymentRequest{BorrowingID: b.ID, SessionID: rec.Session.ID}
	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyPaid)
	assert.Equal(t, "PAID", first.Payment.Status)

	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyPaid)
	assert.Equal(t, "PAID", second.Payment.Status)

	stored, err := e.store.Payments().FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())

	confirmed := e.notes.OfKind(notification.KindPaymentConfirmed)
	require.Len(t, confirmed, 1, "重复回调不重复通知")
	assert.Contains(t, confirmed[0].Text, "RENTAL_FEE")
}

func TestConfirm_Rejections(t *testing.T) {
	e := newEnv()
	b, rec := e.seed(t)
	uc := e.confirmUseCase()
	ctx := context.Background()

	_, err := uc.Execute(ctx, ConfirmPaymentRequest{BorrowingID: b.ID, SessionID: rec.Session.ID})
	assert.True(t, errors.Is(err, payment.ErrNotPaidYet), "网关未确认付款")

	_, err = uc.Execute(ctx, ConfirmPaymentRequest{BorrowingID: b.ID + 1, SessionID: rec.Session.ID})
	assert.True(t, errors.Is(err, payment.ErrSessionMismatch))

	_, err = uc.Execute(ctx, ConfirmPaymentRequest{BorrowingID: b.ID, SessionID: "cs_unknown"})
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))

	_, err = uc.Execute(ctx, ConfirmPaymentRequest{BorrowingID: b.ID})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParams))

	e.gw.Unavailable = true
	_, err = uc.Execute(ctx, ConfirmPaymentRequest{BorrowingID: b.ID, SessionID: rec.Session.ID})
	assert.True(t, errors.Is(err, apperrors.ErrGatewayUnavailable))

	stored, err := e.store.Payments().FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.Empty(t, e.notes.Events())
}

func TestCreatePayment_OwnerOnly(t *testing.T) {
	e := newEnv()
	b, _ := e.seed(t)
	uc := NewCreatePaymentUseCase(e.store, e.store.Borrowings(), e.store.Books(), e.store.Payments(), e.binder)

	_, err := uc.Execute(context.Background(), CreatePaymentRequest{
		UserID: ownerID + 1, BorrowingID: b.ID, Kind: payment.KindRentalFee, Amount: decimal.NewFromInt(6),
	})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	view, err := uc.Execute(context.Background(), CreatePaymentRequest{
		UserID: ownerID, BorrowingID: b.ID, Kind: payment.KindRentalFee, Amount: decimal.RequireFromString("6"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", view.Status)
	assert.Equal(t, "6.00", view.AmountDue)
	assert.NotEmpty(t, view.SessionURL)

	_, err = uc.Execute(context.Background(), CreatePaymentRequest{
		UserID: ownerID, BorrowingID: b.ID, Kind: payment.KindFine, Amount: decimal.NewFromInt(-1),
	})
	assert.True(t, errors.Is(err, payment.ErrNegativeAmount))
}

func TestListAndGet_ScopedToOwner(t *testing.T) {
	e := newEnv()
	_, rec := e.seed(t)
	ctx := context.Background()

	list := NewListPaymentsUseCase(e.store.Payments())
	mine, err := list.Execute(ctx, ListPaymentsRequest{UserID: ownerID, Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)

	others, err := list.Execute(ctx, ListPaymentsRequest{UserID: ownerID + 1, Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Zero(t, others.Total)

	staff, err := list.Execute(ctx, ListPaymentsRequest{UserID: 99, IsStaff: true, Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), staff.Total)

	get := NewGetPaymentUseCase(e.store.Payments(), e.store.Borrowings())
	_, err = get.Execute(ctx, GetPaymentRequest{ID: rec.ID, UserID: ownerID + 1})
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))

	view, err := get.Execute(ctx, GetPaymentRequest{ID: rec.ID, UserID: ownerID})
	require.NoError(t, err)
	assert.Equal(t, rec.Session.ID, view.SessionID)
}

func TestCancel_PointsBackToSession(t *testing.T) {
	e := newEnv()
	b, rec := e.seed(t)
	uc := NewCancelPaymentUseCase(e.store.Payments(), 30*time.Minute)

	resp, err := uc.Execute(context.Background(), ConfirmPaymentRequest{BorrowingID: b.ID, SessionID: rec.Session.ID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "later")
	assert.Equal(t, rec.Session.URL, resp.SessionURL)

	stored, err := e.store.Payments().FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, stored.Status)
}

func TestBind_StaleRecordCompensates(t *testing.T) {
	e := newEnv()
	b, rec := e.seed(t)
	ctx := context.Background()

	// 会话开启前记录已被改为罚金，条件更新不会命中
	fresh, err := payment.NewRecord(b.ID, payment.KindRentalFee, decimal.NewFromInt(1), time.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Payments().Create(ctx, fresh))
	stored, err := e.store.Payments().FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = stored.RetagAsFine(decimal.NewFromInt(4), time.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Payments().Update(ctx, stored))

	e.binder.Bind(ctx, fresh, "Solaris")

	assert.False(t, fresh.HasSession())
	assert.Equal(t, 2, e.gw.Opened())
	after, err := e.store.Payments().FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, after.HasSession())
	assert.True(t, e.gw.Expired("cs_test_2"), "未能写回的会话应被补偿失效")
	assert.False(t, e.gw.Expired(rec.Session.ID))
}
