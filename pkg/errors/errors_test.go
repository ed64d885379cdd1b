package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	tagged := ErrInvalidDate.WithField("expected_return_date")

	assert.True(t, errors.Is(tagged, ErrInvalidDate), "带字段的副本应匹配预定义错误")
	assert.False(t, errors.Is(tagged, ErrOutOfStock))
	assert.Equal(t, "expected_return_date", tagged.Field)
	assert.Empty(t, ErrInvalidDate.Field, "预定义错误不应被修改")
}

func TestAppError_WrappedChain(t *testing.T) {
	err := fmt.Errorf("create borrowing: %w", ErrOutOfStock)

	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.True(t, IsAppError(err))
	assert.Equal(t, ErrCodeOutOfStock, GetAppError(err).Code)
}

func TestGetAppError_WrapsPlainError(t *testing.T) {
	appErr := GetAppError(errors.New("connection refused"))

	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.EqualError(t, appErr.Err, "connection refused")
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "[40002] 日期不合法 (actual_return_date)",
		ErrInvalidDate.WithField("actual_return_date").Error())
	assert.Equal(t, "[50000] 保存失败: boom", Wrap(errors.New("boom"), "保存失败").Error())
}
