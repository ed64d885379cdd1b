package borrowing

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	FieldExpectedReturnDate = "expected_return_date"
	FieldActualReturnDate   = "actual_return_date"
)

// 借阅领域错误
// ErrInvalidDate 的具体实例会带上Field，标记出错的是哪个日期字段
var (
	ErrInvalidDate       = apperrors.ErrInvalidDate
	ErrAlreadyReturned   = apperrors.ErrAlreadyReturned
	ErrBorrowingNotFound = apperrors.ErrBorrowingNotFound
	ErrNotOwner          = apperrors.New(apperrors.ErrCodeForbidden, "只能操作自己的借阅记录")
)
