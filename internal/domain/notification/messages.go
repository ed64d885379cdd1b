package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// BorrowingCreatedText 新借阅通知
func BorrowingCreatedText(title, userEmail string, expectedReturnDate time.Time) string {
	return fmt.Sprintf("%s was borrowed by the user %s. Expected return date %s",
		title, userEmail, expectedReturnDate.Format(dateLayout))
}

// FineText 逾期归还通知
func FineText(title, userEmail string, expectedReturnDate time.Time, fine decimal.Decimal) string {
	return BorrowingCreatedText(title, userEmail, expectedReturnDate) +
		fmt.Sprintf(". Unfortunately, you returned the book at the wrong time. Please pay the fine (%s)", fine.StringFixed(2))
}

// PaymentConfirmedText 付款确认通知
func PaymentConfirmedText(paymentID, borrowingID uint, kind string, amount decimal.Decimal) string {
	return fmt.Sprintf("Payment %d (%s, %s) for borrowing %d confirmed", paymentID, kind, amount.StringFixed(2), borrowingID)
}

// OverdueLine 逾期报告中的一行
type OverdueLine struct {
	BorrowingID        uint
	UserEmail          string
	BookTitle          string
	ExpectedReturnDate time.Time
}

// OverdueReportText 每日逾期报告
func OverdueReportText(lines []OverdueLine) string {
	if len(lines) == 0 {
		return "No borrowings overdue today!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overdue borrowings: %d\n", len(lines))
	for _, l := range lines {
		fmt.Fprintf(&b, "#%d %s: %s (due %s)\n", l.BorrowingID, l.UserEmail, l.BookTitle, l.ExpectedReturnDate.Format(dateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}
