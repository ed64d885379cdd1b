package book

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Service 图书领域服务
// 权限（仅管理员可增删改）由接口层中间件负责，这里只管业务规则
type Service interface {
	AddBook(ctx context.Context, title, author string, cover Cover, inventory int, dailyFee decimal.Decimal) (*Book, error)
	GetBook(ctx context.Context, id uint) (*Book, error)
	UpdateBook(ctx context.Context, id uint, changes Changes) (*Book, error)
	DeleteBook(ctx context.Context, id uint) error
	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

// TxManager 事务管理，库存调整需要和行锁在同一个事务里
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type service struct {
	repo      Repository
	txManager TxManager
}

// NewService 创建图书领域服务
func NewService(repo Repository, txManager TxManager) Service {
	return &service{repo: repo, txManager: txManager}
}

func (s *service) AddBook(ctx context.Context, title, author string, cover Cover, inventory int, dailyFee decimal.Decimal) (*Book, error) {
	b, err := NewBook(title, author, cover, inventory, dailyFee)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBook(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateBook 修改图书
// 锁住图书行后再合并修改；Update不写inventory列，
// 盘点修改的库存按差值走AdjustInventory，不会覆盖并发借还留下的结果
func (s *service) UpdateBook(ctx context.Context, id uint, changes Changes) (*Book, error) {
	var updated *Book
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		b, err := s.repo.LockByID(txCtx, id)
		if err != nil {
			return err
		}
		current := b.Inventory
		if err := b.Apply(changes); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, b); err != nil {
			return err
		}
		if delta := b.Inventory - current; delta != 0 {
			if err := s.repo.AdjustInventory(txCtx, id, delta); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeleteBook(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListBooks 分页查询，页码与页大小由调用方规范化
func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	if params.Page < 1 {
		return nil, 0, apperrors.ErrInvalidParams.WithField("page")
	}
	return s.repo.List(ctx, params)
}
