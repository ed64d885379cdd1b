package borrowing

import (
	"context"
	"errors"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/payment"
)

// GetBorrowingUseCase 借阅详情
type GetBorrowingUseCase struct {
	borrowings borrowing.Repository
	books      book.Repository
	payments   payment.Repository
}

// NewGetBorrowingUseCase 创建详情用例
func NewGetBorrowingUseCase(borrowings borrowing.Repository, books book.Repository, payments payment.Repository) *GetBorrowingUseCase {
	return &GetBorrowingUseCase{borrowings: borrowings, books: books, payments: payments}
}

// GetBorrowingRequest 详情请求
type GetBorrowingRequest struct {
	ID      uint
	UserID  uint
	IsStaff bool
}

// Execute 非管理员查看他人借阅时按不存在处理
func (uc *GetBorrowingUseCase) Execute(ctx context.Context, req GetBorrowingRequest) (*BorrowingView, error) {
	b, err := uc.borrowings.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !req.IsStaff && !b.IsOwnedBy(req.UserID) {
		return nil, borrowing.ErrBorrowingNotFound
	}

	bk, err := uc.books.FindByID(ctx, b.BookID)
	if err != nil && !errors.Is(err, book.ErrBookNotFound) {
		return nil, err
	}

	records, err := uc.payments.ListByBorrowings(ctx, []uint{b.ID})
	if err != nil {
		return nil, err
	}
	return newBorrowingView(b, bk, records[b.ID]), nil
}

// ListBorrowingsUseCase 借阅列表
type ListBorrowingsUseCase struct {
	borrowings borrowing.Repository
	books      book.Repository
	payments   payment.Repository
}

// NewListBorrowingsUseCase 创建列表用例
func NewListBorrowingsUseCase(borrowings borrowing.Repository, books book.Repository, payments payment.Repository) *ListBorrowingsUseCase {
	return &ListBorrowingsUseCase{borrowings: borrowings, books: books, payments: payments}
}

// ListBorrowingsRequest 列表请求
// FilterUserID、IsActive 只对管理员生效
type ListBorrowingsRequest struct {
	UserID       uint
	IsStaff      bool
	FilterUserID *uint
	IsActive     *bool
	Page         int
	PageSize     int
}

// ListBorrowingsResponse 列表响应
type ListBorrowingsResponse struct {
	Borrowings []*BorrowingView
	Total      int64
	Page       int
	PageSize   int
}

// Execute 执行查询
func (uc *ListBorrowingsUseCase) Execute(ctx context.Context, req ListBorrowingsRequest) (*ListBorrowingsResponse, error) {
	params := borrowing.ListParams{Page: req.Page, PageSize: req.PageSize}
	if req.IsStaff {
		params.UserID = req.FilterUserID
		params.IsActive = req.IsActive
	} else {
		self := req.UserID
		params.UserID = &self
	}

	list, total, err := uc.borrowings.List(ctx, params)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	records, err := uc.payments.ListByBorrowings(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 一页最多100条，同一本书只查一次
	books := make(map[uint]*book.Book)
	views := make([]*BorrowingView, 0, len(list))
	for _, b := range list {
		bk, ok := books[b.BookID]
		if !ok {
			bk, err = uc.books.FindByID(ctx, b.BookID)
			if err != nil && !errors.Is(err, book.ErrBookNotFound) {
				return nil, err
			}
			books[b.BookID] = bk
		}
		views = append(views, newBorrowingView(b, bk, records[b.ID]))
	}

	return &ListBorrowingsResponse{
		Borrowings: views,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}
