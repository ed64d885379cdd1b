package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type borrowingRepository struct {
	db *gorm.DB
}

// NewBorrowingRepository 创建借阅仓储
func NewBorrowingRepository(db *gorm.DB) borrowing.Repository {
	return &borrowingRepository{db: db}
}

func (r *borrowingRepository) Create(ctx context.Context, b *borrowing.Borrowing) error {
	model := toBorrowingModel(b)
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(model).Error; err != nil {
		if isForeignKeyError(err) {
			return book.ErrBookNotFound
		}
		return apperrors.Wrap(err, "创建借阅失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *borrowingRepository) FindByID(ctx context.Context, id uint) (*borrowing.Borrowing, error) {
	return r.find(conn(ctx, r.db), id)
}

// LockByID 锁住借阅行，保证同一笔借阅的并发归还串行执行
func (r *borrowingRepository) LockByID(ctx context.Context, id uint) (*borrowing.Borrowing, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *borrowingRepository) find(db *gorm.DB, id uint) (*borrowing.Borrowing, error) {
	var model BorrowingModel
	if err := db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, borrowing.ErrBorrowingNotFound
		}
		return nil, apperrors.Wrap(err, "查询借阅失败")
	}
	return toBorrowingEntity(&model), nil
}

// Update 借书人、图书、借出日不可变，只写回归还日
func (r *borrowingRepository) Update(ctx context.Context, b *borrowing.Borrowing) error {
	result := conn(ctx, r.db).Model(&BorrowingModel{ID: b.ID}).Updates(map[string]interface{}{
		"actual_return_date": b.ActualReturnDate,
		"updated_at":         b.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新借阅失败")
	}
	if result.RowsAffected == 0 {
		return borrowing.ErrBorrowingNotFound
	}
	return nil
}

func (r *borrowingRepository) List(ctx context.Context, params borrowing.ListParams) ([]*borrowing.Borrowing, int64, error) {
	var (
		models []BorrowingModel
		total  int64
	)

	query := conn(ctx, r.db).Model(&BorrowingModel{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.IsActive != nil {
		if *params.IsActive {
			query = query.Where("actual_return_date IS NULL")
		} else {
			query = query.Where("actual_return_date IS NOT NULL")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅总数失败")
	}

	err := query.Order("id ASC").
		Limit(params.PageSize).
		Offset(offset(params.Page, params.PageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅列表失败")
	}

	list := make([]*borrowing.Borrowing, len(models))
	for i := range models {
		list[i] = toBorrowingEntity(&models[i])
	}
	return list, total, nil
}

func toBorrowingModel(b *borrowing.Borrowing) *BorrowingModel {
	return &BorrowingModel{
		ID:                 b.ID,
		UserID:             b.UserID,
		BookID:             b.BookID,
		BorrowDate:         b.BorrowDate,
		ExpectedReturnDate: b.ExpectedReturnDate,
		ActualReturnDate:   b.ActualReturnDate,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// toBorrowingEntity date列读回时带驱动的时区，统一截断为UTC日期
func toBorrowingEntity(model *BorrowingModel) *borrowing.Borrowing {
	b := &borrowing.Borrowing{
		ID:                 model.ID,
		UserID:             model.UserID,
		BookID:             model.BookID,
		BorrowDate:         borrowing.DateOf(model.BorrowDate),
		ExpectedReturnDate: borrowing.DateOf(model.ExpectedReturnDate),
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
	if model.ActualReturnDate != nil {
		d := borrowing.DateOf(*model.ActualReturnDate)
		b.ActualReturnDate = &d
	}
	return b
}
