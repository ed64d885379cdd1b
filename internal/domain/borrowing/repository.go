package borrowing

import (
	"context"
)

// Repository 借阅仓储接口
type Repository interface {
	Create(ctx context.Context, b *Borrowing) error

	// FindByID 不存在时返回ErrBorrowingNotFound
	FindByID(ctx context.Context, id uint) (*Borrowing, error)

	// LockByID SELECT ... FOR UPDATE，必须在事务内调用
	LockByID(ctx context.Context, id uint) (*Borrowing, error)

	// Update 只更新可变字段（actual_return_date、updated_at）
	Update(ctx context.Context, b *Borrowing) error

	List(ctx context.Context, params ListParams) ([]*Borrowing, int64, error)
}

// ListParams 列表过滤
// UserID/IsActive 为nil表示不过滤；非管理员的UserID由应用层强制设为本人
type ListParams struct {
	UserID   *uint
	IsActive *bool
	Page     int
	PageSize int
}
