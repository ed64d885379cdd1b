package payment

import (
	"context"
)

// Repository 支付记录仓储
type Repository interface {
	Create(ctx context.Context, r *Record) error

	// FindByID 不存在时返回ErrPaymentNotFound
	FindByID(ctx context.Context, id uint) (*Record, error)

	FindBySessionID(ctx context.Context, sessionID string) (*Record, error)

	// LockBySessionID 按会话ID加锁读取，必须在事务内调用
	LockBySessionID(ctx context.Context, sessionID string) (*Record, error)

	// LockLatestByBorrowing 加锁读取借阅的最新一条记录，没有时返回ErrPaymentNotFound
	LockLatestByBorrowing(ctx context.Context, borrowingID uint) (*Record, error)

	ListByBorrowings(ctx context.Context, borrowingIDs []uint) (map[uint][]*Record, error)

	// List 分页查询；OwnerID非nil时只返回该用户借阅下的记录
	List(ctx context.Context, params ListParams) ([]*Record, int64, error)

	// Update 整行更新（类型、状态、金额、会话）
	Update(ctx context.Context, r *Record) error

	// AttachSession 条件更新：仅当记录仍为PENDING且类型为kind时写入会话
	// 未命中返回ErrStaleRecord
	AttachSession(ctx context.Context, id uint, kind Kind, s Session) error
}

// ListParams 列表过滤
type ListParams struct {
	OwnerID  *uint
	Page     int
	PageSize int
}
