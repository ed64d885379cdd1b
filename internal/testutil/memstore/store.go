// Package memstore 内存版仓储与事务管理，供用例层测试使用
//
// 事务语义：同一时刻只有一个事务在执行（相当于所有行共用一把锁），
// fn返回错误时恢复到事务开始前的快照。事务外的写操作同样要排队，
// 保证快照恢复不会覆盖事务外的写入。
package memstore

import (
	"context"
	"sync"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/domain/user"
)

type txKey struct{}

// Store 全部内存数据
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	books      map[uint]book.Book
	borrowings map[uint]borrowing.Borrowing
	payments   map[uint]payment.Record
	users      map[uint]user.User
	nextID     uint

	failures map[string]error
}

// New 创建空存储
func New() *Store {
	return &Store{
		books:      make(map[uint]book.Book),
		borrowings: make(map[uint]borrowing.Borrowing),
		payments:   make(map[uint]payment.Record),
		users:      make(map[uint]user.User),
		failures:   make(map[string]error),
	}
}

// FailOn 让名为op的操作（如"payment.Create"）此后一直返回err，err为nil时取消
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Transaction 实现事务管理接口
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write 执行写操作；事务外的写入先排队等待正在进行的事务结束
func (s *Store) write(ctx context.Context, op string, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[op]; err != nil {
		return err
	}
	return fn()
}

func (s *Store) read(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[op]; err != nil {
		return err
	}
	return fn()
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	books      map[uint]book.Book
	borrowings map[uint]borrowing.Borrowing
	payments   map[uint]payment.Record
	users      map[uint]user.User
	nextID     uint
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		books:      cloneMap(s.books),
		borrowings: cloneMap(s.borrowings),
		payments:   cloneMap(s.payments),
		users:      cloneMap(s.users),
		nextID:     s.nextID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = snap.books
	s.borrowings = snap.borrowings
	s.payments = snap.payments
	s.users = snap.users
	s.nextID = snap.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Books 图书仓储
func (s *Store) Books() book.Repository { return &bookRepo{s} }

// Borrowings 借阅仓储
func (s *Store) Borrowings() borrowing.Repository { return &borrowingRepo{s} }

// Payments 支付记录仓储
func (s *Store) Payments() payment.Repository { return &paymentRepo{s} }

// Users 用户仓储
func (s *Store) Users() user.Repository { return &userRepo{s} }

func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return items
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
