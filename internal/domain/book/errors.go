package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误
var (
	ErrBookNotFound = apperrors.ErrBookNotFound

	// ErrBookInUse 存在借阅记录的图书不能删除
	ErrBookInUse = apperrors.ErrBookInUse

	ErrInvalidFee       = apperrors.ErrInvalidFee.WithField("daily_fee")
	ErrInvalidInventory = apperrors.New(apperrors.ErrCodeInvalidParams, "库存不能为负数").WithField("inventory")
	ErrInvalidCover     = apperrors.New(apperrors.ErrCodeInvalidParams, "封面类型只能是HARD或SOFT").WithField("cover")
	ErrInvalidTitle     = apperrors.New(apperrors.ErrCodeInvalidParams, "书名不能为空且不超过255个字符").WithField("title")
	ErrInvalidAuthor    = apperrors.New(apperrors.ErrCodeInvalidParams, "作者不能为空且不超过255个字符").WithField("author")
)
