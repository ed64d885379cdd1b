package payment

import (
	"github.com/xiebiao/library/internal/domain/payment"
)

// PaymentView 支付记录响应DTO
type PaymentView struct {
	ID          uint   `json:"id"`
	BorrowingID uint   `json:"borrowing_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	AmountDue   string `json:"amount_due"`
	SessionID   string `json:"session_id,omitempty"`
	SessionURL  string `json:"session_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// NewPaymentView 实体转DTO
func NewPaymentView(r *payment.Record) PaymentView {
	v := PaymentView{
		ID:          r.ID,
		BorrowingID: r.BorrowingID,
		Kind:        r.Kind.String(),
		Status:      r.Status.String(),
		AmountDue:   r.AmountDue.StringFixed(2),
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if r.HasSession() {
		v.SessionID = r.Session.ID
		v.SessionURL = r.Session.URL
	}
	return v
}

// NewPaymentViews 批量转换，nil切片返回空切片
func NewPaymentViews(records []*payment.Record) []PaymentView {
	views := make([]PaymentView, 0, len(records))
	for _, r := range records {
		views = append(views, NewPaymentView(r))
	}
	return views
}
