package borrowing

import (
	"context"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/payment"
)

const dateLayout = "2006-01-02"

// TxManager 事务管理，由持久化层实现
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookSummary 借阅中内嵌的图书摘要
type BookSummary struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Cover    string `json:"cover"`
	DailyFee string `json:"daily_fee"`
}

// BorrowingView 借阅响应DTO
type BorrowingView struct {
	ID                 uint                     `json:"id"`
	UserID             uint                     `json:"user_id"`
	Book               BookSummary              `json:"book"`
	BorrowDate         string                   `json:"borrow_date"`
	ExpectedReturnDate string                   `json:"expected_return_date"`
	ActualReturnDate   *string                  `json:"actual_return_date"`
	Status             string                   `json:"status"`
	Payments           []apppayment.PaymentView `json:"payments"`
}

func newBookSummary(b *book.Book) BookSummary {
	return BookSummary{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Cover:    string(b.Cover),
		DailyFee: b.DailyFee.StringFixed(2),
	}
}

func newBorrowingView(b *borrowing.Borrowing, bk *book.Book, records []*payment.Record) *BorrowingView {
	v := &BorrowingView{
		ID:                 b.ID,
		UserID:             b.UserID,
		BorrowDate:         b.BorrowDate.Format(dateLayout),
		ExpectedReturnDate: b.ExpectedReturnDate.Format(dateLayout),
		Status:             string(b.State()),
		Payments:           apppayment.NewPaymentViews(records),
	}
	if bk != nil {
		v.Book = newBookSummary(bk)
	} else {
		v.Book = BookSummary{ID: b.BookID}
	}
	if b.ActualReturnDate != nil {
		s := b.ActualReturnDate.Format(dateLayout)
		v.ActualReturnDate = &s
	}
	return v
}
