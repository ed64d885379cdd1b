package user

import (
	"context"
)

// Repository 用户仓储接口
// 由infrastructure/persistence/mysql实现；找不到时返回 errors.ErrUserNotFound
type Repository interface {
	// Create 创建用户，邮箱重复时返回 errors.ErrEmailDuplicate
	Create(ctx context.Context, user *User) error

	FindByID(ctx context.Context, id uint) (*User, error)

	FindByEmail(ctx context.Context, email string) (*User, error)

	Update(ctx context.Context, user *User) error
}
