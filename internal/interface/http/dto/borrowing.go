package dto

// CreateBorrowingRequest 借书
type CreateBorrowingRequest struct {
	Book               uint   `json:"book" binding:"required" example:"1"`
	ExpectedReturnDate string `json:"expected_return_date" binding:"required" example:"2026-03-08"`
}

// ReturnBorrowingRequest 还书，不传日期时按今天归还
type ReturnBorrowingRequest struct {
	ActualReturnDate string `json:"actual_return_date" example:"2026-03-08"`
}

// ListBorrowingsQuery 借阅列表
// user_id、is_active 只对管理员生效
type ListBorrowingsQuery struct {
	PageQuery
	UserID   *uint `form:"user_id" example:"7"`
	IsActive *bool `form:"is_active" example:"true"`
}

// SessionQuery 支付网关回跳参数
type SessionQuery struct {
	SessionID string `form:"session_id" binding:"required" example:"cs_test_a1b2"`
}
