package book

import (
	"context"
)

// Repository 图书仓储接口
type Repository interface {
	Create(ctx context.Context, book *Book) error

	// FindByID 不存在时返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// Update 保存除inventory以外的字段，库存只能经AdjustInventory修改
	Update(ctx context.Context, book *Book) error

	// Delete 删除图书；仍被借阅记录引用时返回ErrBookInUse
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID 悲观锁读取（SELECT ... FOR UPDATE），必须在事务内调用
	LockByID(ctx context.Context, id uint) (*Book, error)

	// AdjustInventory 原子地调整库存，delta为负时保证结果不小于0
	// 不足时返回inventory.ErrOutOfStock
	AdjustInventory(ctx context.Context, id uint, delta int) error
}

// ListParams 列表查询参数
type ListParams struct {
	Page      int
	PageSize  int
	Keyword   string // 匹配书名或作者
	Available bool   // 只看有库存的
}
