package borrowing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func ptr(t time.Time) *time.Time { return &t }

func TestNew(t *testing.T) {
	b, err := New(1, 2, days(14), today)
	require.NoError(t, err)

	assert.Equal(t, StateActive, b.State())
	assert.Equal(t, DateOf(today), b.BorrowDate)
	assert.Equal(t, DateOf(days(14)), b.ExpectedReturnDate)
	assert.Nil(t, b.ActualReturnDate)
}

func TestNew_InvalidDate(t *testing.T) {
	for name, expected := range map[string]time.Time{
		"今天":     today,
		"今天稍晚时刻": today.Add(3 * time.Hour),
		"过去":     days(-1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(1, 2, expected, today)
			require.True(t, errors.Is(err, ErrInvalidDate))
			assert.Equal(t, FieldExpectedReturnDate, apperrors.GetAppError(err).Field)
		})
	}
}

func TestBorrowing_Return(t *testing.T) {
	b, err := New(1, 2, days(14), today)
	require.NoError(t, err)

	require.NoError(t, b.Return(ptr(days(20)), today))

	assert.Equal(t, StateReturned, b.State())
	assert.Equal(t, 6, b.OverdueDays())
	assert.True(t, b.IsOverdue())
}

func TestBorrowing_Return_AlreadyReturnedTakesPrecedence(t *testing.T) {
	b, err := New(1, 2, days(14), today)
	require.NoError(t, err)
	require.NoError(t, b.Return(ptr(days(5)), today))

	// 即使第二次的日期也不合法，优先报告已归还
	err = b.Return(nil, today)
	assert.True(t, errors.Is(err, ErrAlreadyReturned))
	assert.Equal(t, DateOf(days(5)), *b.ActualReturnDate, "终态不可再修改")
}

func TestBorrowing_Return_InvalidDate(t *testing.T) {
	b, err := New(1, 2, days(14), today)
	require.NoError(t, err)

	err = b.Return(nil, today)
	require.True(t, errors.Is(err, ErrInvalidDate))
	assert.Equal(t, FieldActualReturnDate, apperrors.GetAppError(err).Field)

	err = b.Return(ptr(today), today)
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.True(t, b.IsActive(), "校验失败不应改变状态")
}

func TestBorrowing_NotOverdue(t *testing.T) {
	b, err := New(1, 2, days(14), today)
	require.NoError(t, err)
	require.NoError(t, b.Return(ptr(days(14)), today))

	assert.False(t, b.IsOverdue())
	assert.Zero(t, b.OverdueDays())
}

func TestValidators_TagDistinctFields(t *testing.T) {
	expErr := ValidateExpectedReturnDate(today, today)
	actErr := ValidateActualReturnDate(ptr(today), today)

	assert.Equal(t, FieldExpectedReturnDate, apperrors.GetAppError(expErr).Field)
	assert.Equal(t, FieldActualReturnDate, apperrors.GetAppError(actErr).Field)
	assert.NoError(t, ValidateExpectedReturnDate(days(1), today))
	assert.NoError(t, ValidateActualReturnDate(ptr(days(1)), today))
}
