package user

import (
	"time"
)

// User 用户实体（聚合根）
// Password 保存bcrypt哈希；IsStaff 为管理员标记，决定能否管理图书、查看全部借阅与支付
type User struct {
	ID        uint
	Email     string
	Password  string
	Nickname  string
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户，hashedPassword必须已经bcrypt加密
func NewUser(email, hashedPassword, nickname string, isStaff bool) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Nickname:  nickname,
		IsStaff:   isStaff,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateNickname 更新昵称
func (u *User) UpdateNickname(nickname string) {
	u.Nickname = nickname
	u.UpdatedAt = time.Now()
}
