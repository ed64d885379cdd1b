package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateError 唯一键冲突
// 开启TranslateError后两种方言都会返回gorm.ErrDuplicatedKey，字符串匹配兜底
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "SQLSTATE 23505")
}

// isForeignKeyError 外键约束冲突（MySQL 1451 / PostgreSQL 23503）
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "foreign key constraint") || strings.Contains(msg, "SQLSTATE 23503")
}

func offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
