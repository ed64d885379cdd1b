package borrowing

import (
	"time"
)

// State 借阅状态，由ActualReturnDate是否为空推导，不单独存储
type State string

const (
	StateActive   State = "ACTIVE"
	StateReturned State = "RETURNED"
)

// Borrowing 借阅聚合根
// 1. BookID、UserID、BorrowDate 创建后不可变
// 2. ActualReturnDate 只能设置一次；设置后借阅关闭，RETURNED为终态
// 3. 借阅记录永不删除
type Borrowing struct {
	ID                 uint
	UserID             uint
	BookID             uint
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New 创建借阅，borrowDate取now所在日
func New(userID, bookID uint, expectedReturnDate, now time.Time) (*Borrowing, error) {
	if err := ValidateExpectedReturnDate(expectedReturnDate, now); err != nil {
		return nil, err
	}

	return &Borrowing{
		UserID:             userID,
		BookID:             bookID,
		BorrowDate:         DateOf(now),
		ExpectedReturnDate: DateOf(expectedReturnDate),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// State 当前状态
func (b *Borrowing) State() State {
	if b.ActualReturnDate != nil {
		return StateReturned
	}
	return StateActive
}

// IsActive 是否未归还
func (b *Borrowing) IsActive() bool {
	return b.ActualReturnDate == nil
}

// IsOwnedBy 是否属于该用户
func (b *Borrowing) IsOwnedBy(userID uint) bool {
	return b.UserID == userID
}

// Return 归还：ACTIVE -> RETURNED
// 先判断是否已归还，再校验日期
func (b *Borrowing) Return(actual *time.Time, now time.Time) error {
	if !b.IsActive() {
		return ErrAlreadyReturned
	}
	if err := ValidateActualReturnDate(actual, now); err != nil {
		return err
	}

	d := DateOf(*actual)
	b.ActualReturnDate = &d
	b.UpdatedAt = now
	return nil
}

// OverdueDays 逾期天数，未归还或未逾期为0
func (b *Borrowing) OverdueDays() int {
	if b.ActualReturnDate == nil {
		return 0
	}
	if days := DayCount(b.ExpectedReturnDate, *b.ActualReturnDate); days > 0 {
		return days
	}
	return 0
}

// IsOverdue 归还时是否逾期
func (b *Borrowing) IsOverdue() bool {
	return b.OverdueDays() > 0
}
