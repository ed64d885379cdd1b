// Package inventory 图书库存台账
//
// 库存是唯一在并发请求间竞争的资源。Reserve/Release 必须在调用方开启的事务中执行：
// 先 SELECT ... FOR UPDATE 锁住图书行，再基于锁定后的值判断与扣减，
// 保证"是否缺货"的判断不会基于过期的读。
package inventory

import (
	"context"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrOutOfStock 没有可借副本
var ErrOutOfStock = apperrors.ErrOutOfStock.WithField("book")

// Store 台账依赖的图书存储能力，book.Repository 满足该接口
type Store interface {
	LockByID(ctx context.Context, id uint) (*book.Book, error)
	AdjustInventory(ctx context.Context, id uint, delta int) error
}

// Ledger 库存台账
type Ledger struct {
	store Store
}

// NewLedger 创建库存台账
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Reserve 借出一本：库存为0时返回ErrOutOfStock且不修改任何状态
// 返回扣减后的图书快照
func (l *Ledger) Reserve(ctx context.Context, bookID uint) (*book.Book, error) {
	b, err := l.store.LockByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !b.Available() {
		return nil, ErrOutOfStock
	}

	if err := l.store.AdjustInventory(ctx, bookID, -1); err != nil {
		return nil, err
	}
	b.Inventory--
	return b, nil
}

// Release 归还一本，无条件+1
// 每笔借阅只会调用一次，由借阅的"只能归还一次"规则保证
func (l *Ledger) Release(ctx context.Context, bookID uint) (*book.Book, error) {
	b, err := l.store.LockByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := l.store.AdjustInventory(ctx, bookID, 1); err != nil {
		return nil, err
	}
	b.Inventory++
	return b, nil
}
