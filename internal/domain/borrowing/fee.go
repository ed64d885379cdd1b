package borrowing

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineMultiplier 逾期罚金倍数
const FineMultiplier = 2

// RentalFee 租金 = 借阅天数 × 日租金
func RentalFee(dailyFee decimal.Decimal, borrowDate, expectedReturnDate time.Time) decimal.Decimal {
	days := DayCount(borrowDate, expectedReturnDate)
	if days < 0 {
		days = 0
	}
	return dailyFee.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// Fine 罚金 = 2 × 逾期天数 × 日租金；未逾期为0
func Fine(dailyFee decimal.Decimal, expectedReturnDate, actualReturnDate time.Time) decimal.Decimal {
	days := DayCount(expectedReturnDate, actualReturnDate)
	if days <= 0 {
		return decimal.Zero
	}
	return dailyFee.
		Mul(decimal.NewFromInt(int64(days))).
		Mul(decimal.NewFromInt(FineMultiplier)).
		Round(2)
}
