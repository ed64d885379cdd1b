package dto

import "github.com/shopspring/decimal"

// CreatePaymentRequest 手动创建支付记录
type CreatePaymentRequest struct {
	BorrowingID uint             `json:"borrowing_id" binding:"required" example:"12"`
	Kind        string           `json:"kind" binding:"required" example:"FINE"`
	Amount      *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"10.00"`
}

// ListPaymentsQuery 支付列表
type ListPaymentsQuery struct {
	PageQuery
}
