package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind 款项类型
type Kind int

const (
	KindRentalFee Kind = iota + 1
	KindFine
)

func (k Kind) String() string {
	switch k {
	case KindRentalFee:
		return "RENTAL_FEE"
	case KindFine:
		return "FINE"
	default:
		return "UNKNOWN"
	}
}

// ParseKind 解析款项类型
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RENTAL_FEE":
		return KindRentalFee, nil
	case "FINE":
		return KindFine, nil
	}
	return 0, ErrInvalidKind
}

// Status 支付状态
type Status int

const (
	StatusPending Status = iota + 1
	StatusPaid
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusPaid:
		return "PAID"
	default:
		return "UNKNOWN"
	}
}

// Session 网关会话引用，ID与URL总是成对出现
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// Record 支付记录：一笔待收款（租金或罚金）
// 1. AmountDue >= 0
// 2. 状态只能 PENDING -> PAID，且只能由网关回调确认触发
// 3. Session 在网关调用成功前为空
type Record struct {
	ID          uint
	BorrowingID uint
	Kind        Kind
	Status      Status
	AmountDue   decimal.Decimal
	Session     *Session
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRecord 创建PENDING状态的支付记录
func NewRecord(borrowingID uint, kind Kind, amount decimal.Decimal, now time.Time) (*Record, error) {
	if kind != KindRentalFee && kind != KindFine {
		return nil, ErrInvalidKind
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	return &Record{
		BorrowingID: borrowingID,
		Kind:        kind,
		Status:      StatusPending,
		AmountDue:   amount.Round(2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsPaid 是否已支付
func (r *Record) IsPaid() bool {
	return r.Status == StatusPaid
}

// HasSession 是否已关联网关会话
func (r *Record) HasSession() bool {
	return r.Session != nil && r.Session.ID != ""
}

// AttachSession 关联网关会话，已支付的记录不再接受新会话
func (r *Record) AttachSession(s Session, now time.Time) error {
	if r.IsPaid() {
		return ErrAlreadyPaid
	}
	r.Session = &s
	r.UpdatedAt = now
	return nil
}

// RetagAsFine 把待支付记录原地改为罚金：金额替换、旧会话作废、状态保持PENDING
// 返回被替换掉的旧会话（可能为nil），调用方在事务提交后将其置为过期
func (r *Record) RetagAsFine(fine decimal.Decimal, now time.Time) (*Session, error) {
	if r.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if fine.IsNegative() {
		return nil, ErrNegativeAmount
	}

	old := r.Session
	r.Kind = KindFine
	r.AmountDue = fine.Round(2)
	r.Session = nil
	r.UpdatedAt = now
	return old, nil
}

// MarkPaid PENDING -> PAID；已是PAID时返回false，不做任何修改
func (r *Record) MarkPaid(now time.Time) bool {
	if r.IsPaid() {
		return false
	}
	r.Status = StatusPaid
	r.UpdatedAt = now
	return true
}
