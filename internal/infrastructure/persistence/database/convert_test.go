package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/payment"
)

func TestBorrowingModel_DatesNormalized(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	returned := time.Date(2026, 4, 2, 0, 0, 0, 0, shanghai)
	model := &BorrowingModel{
		ID:                 3,
		UserID:             1,
		BookID:             2,
		BorrowDate:         time.Date(2026, 3, 20, 0, 0, 0, 0, shanghai),
		ExpectedReturnDate: time.Date(2026, 3, 30, 0, 0, 0, 0, shanghai),
		ActualReturnDate:   &returned,
	}

	b := toBorrowingEntity(model)

	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), b.BorrowDate)
	require.NotNil(t, b.ActualReturnDate)
	assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), *b.ActualReturnDate)
	assert.Equal(t, borrowing.StateReturned, b.State())
	assert.Equal(t, 3, b.OverdueDays())
}

func TestPaymentModel_RoundTrip(t *testing.T) {
	exp := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	rec := &payment.Record{
		ID:          9,
		BorrowingID: 4,
		Kind:        payment.KindFine,
		Status:      payment.StatusPending,
		AmountDue:   decimal.RequireFromString("36.00"),
		Session:     &payment.Session{ID: "cs_1", URL: "https://checkout.example.com/cs_1", ExpiresAt: exp},
	}

	model := toPaymentModel(rec)
	require.NotNil(t, model.SessionID)
	assert.Equal(t, "cs_1", *model.SessionID)
	assert.Equal(t, 2, model.Kind)

	back := toPaymentEntity(model)
	assert.Equal(t, rec.Kind, back.Kind)
	assert.True(t, rec.AmountDue.Equal(back.AmountDue))
	require.True(t, back.HasSession())
	assert.Equal(t, exp, back.Session.ExpiresAt)
}

func TestPaymentModel_NoSession(t *testing.T) {
	model := toPaymentModel(&payment.Record{Kind: payment.KindRentalFee, Status: payment.StatusPending})
	assert.Nil(t, model.SessionID, "无会话时写NULL，不占用唯一索引")
	assert.False(t, toPaymentEntity(model).HasSession())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isDuplicateError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'users.email'")))
	assert.True(t, isForeignKeyError(fmt.Errorf("delete: %w", gorm.ErrForeignKeyViolated)))
	assert.True(t, isForeignKeyError(errors.New(`ERROR: update or delete on table "books" violates foreign key constraint (SQLSTATE 23503)`)))
	assert.False(t, isDuplicateError(nil))
	assert.False(t, isForeignKeyError(errors.New("connection refused")))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, offset(1, 5))
	assert.Equal(t, 10, offset(3, 5))
	assert.Equal(t, 0, offset(0, 5))
}
