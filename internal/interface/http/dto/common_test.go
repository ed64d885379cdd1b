package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestPageQuery_Resolve(t *testing.T) {
	p := Paging{Default: 5, Max: 100}
	tests := []struct {
		name       string
		q          PageQuery
		page, size int
	}{
		{"defaults", PageQuery{}, 1, 5},
		{"explicit", PageQuery{Page: 3, PageSize: 20}, 3, 20},
		{"capped", PageQuery{Page: 1, PageSize: 500}, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := tt.q.Resolve(p)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-08", "expected_return_date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("08/03/2026", "expected_return_date")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDate))
	assert.Equal(t, "expected_return_date", apperrors.GetAppError(err).Field)

	none, err := ParseOptionalDate("", "actual_return_date")
	require.NoError(t, err)
	assert.Nil(t, none)
}
