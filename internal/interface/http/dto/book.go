package dto

import "github.com/shopspring/decimal"

// CreateBookRequest 新增图书
// daily_fee 支持数字或字符串（"1.50"），按两位小数保存
type CreateBookRequest struct {
	Title     string           `json:"title" binding:"required,max=255" example:"Dune"`
	Author    string           `json:"author" binding:"required,max=255" example:"Frank Herbert"`
	Cover     string           `json:"cover" binding:"required" example:"HARD"`
	Inventory *int             `json:"inventory" binding:"required" example:"3"`
	DailyFee  *decimal.Decimal `json:"daily_fee" binding:"required" swaggertype:"string" example:"1.50"`
}

// UpdateBookRequest 修改图书，未出现的字段保持不变
type UpdateBookRequest struct {
	Title     *string          `json:"title" binding:"omitempty,max=255"`
	Author    *string          `json:"author" binding:"omitempty,max=255"`
	Cover     *string          `json:"cover"`
	Inventory *int             `json:"inventory"`
	DailyFee  *decimal.Decimal `json:"daily_fee" swaggertype:"string"`
}

// ListBooksQuery 图书列表
type ListBooksQuery struct {
	PageQuery
	Keyword   string `form:"keyword" binding:"omitempty,max=100" example:"dune"`
	Available bool   `form:"available" example:"true"`
}
