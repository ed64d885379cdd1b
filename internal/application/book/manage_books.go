package book

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/library/internal/domain/book"
)

// BookView 图书响应DTO
type BookView struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Cover     string `json:"cover"`
	Inventory int    `json:"inventory"`
	DailyFee  string `json:"daily_fee"`
	CreatedAt string `json:"created_at"`
}

// NewBookView 实体转DTO，金额统一保留两位小数
func NewBookView(b *book.Book) BookView {
	return BookView{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Cover:     string(b.Cover),
		Inventory: b.Inventory,
		DailyFee:  b.DailyFee.StringFixed(2),
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// AddBookUseCase 新增图书（管理员）
type AddBookUseCase struct {
	bookService book.Service
}

// NewAddBookUseCase 创建新增用例
func NewAddBookUseCase(bookService book.Service) *AddBookUseCase {
	return &AddBookUseCase{bookService: bookService}
}

// AddBookRequest 新增请求DTO
type AddBookRequest struct {
	Title     string
	Author    string
	Cover     book.Cover
	Inventory int
	DailyFee  decimal.Decimal
}

// Execute 业务校验（金额、库存、封面）由领域层负责
func (uc *AddBookUseCase) Execute(ctx context.Context, req AddBookRequest) (*BookView, error) {
	b, err := uc.bookService.AddBook(ctx, req.Title, req.Author, req.Cover, req.Inventory, req.DailyFee)
	if err != nil {
		return nil, err
	}
	view := NewBookView(b)
	return &view, nil
}

// UpdateBookUseCase 修改图书（管理员），只修改请求中出现的字段
type UpdateBookUseCase struct {
	bookService book.Service
}

// NewUpdateBookUseCase 创建修改用例
func NewUpdateBookUseCase(bookService book.Service) *UpdateBookUseCase {
	return &UpdateBookUseCase{bookService: bookService}
}

// UpdateBookRequest 修改请求DTO
type UpdateBookRequest struct {
	ID      uint
	Changes book.Changes
}

// Execute 执行修改
func (uc *UpdateBookUseCase) Execute(ctx context.Context, req UpdateBookRequest) (*BookView, error) {
	b, err := uc.bookService.UpdateBook(ctx, req.ID, req.Changes)
	if err != nil {
		return nil, err
	}
	view := NewBookView(b)
	return &view, nil
}

// DeleteBookUseCase 删除图书（管理员）
// 被借阅记录引用的图书不能删除，返回BookInUse
type DeleteBookUseCase struct {
	bookService book.Service
}

// NewDeleteBookUseCase 创建删除用例
func NewDeleteBookUseCase(bookService book.Service) *DeleteBookUseCase {
	return &DeleteBookUseCase{bookService: bookService}
}

// Execute 执行删除
func (uc *DeleteBookUseCase) Execute(ctx context.Context, id uint) error {
	return uc.bookService.DeleteBook(ctx, id)
}
