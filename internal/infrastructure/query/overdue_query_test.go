package query

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueBySQL(t *testing.T) {
	cutoff := time.Date(2026, 3, 11, 17, 45, 0, 0, time.UTC)

	cases := map[string]string{
		"mysql":    "?",
		"postgres": "$1",
	}
	for driver, placeholder := range cases {
		t.Run(driver, func(t *testing.T) {
			q := &OverdueQuery{dialect: goqu.Dialect(driver)}

			sqlStr, args, err := q.dueBySQL(cutoff)
			require.NoError(t, err)

			assert.Contains(t, sqlStr, "IS NULL")
			assert.Contains(t, sqlStr, "<= "+placeholder)
			assert.Contains(t, sqlStr, "ORDER BY")
			assert.Equal(t, []interface{}{"2026-03-11"}, args, "截止日只保留日期部分")
		})
	}
}

func TestSQLXDriver(t *testing.T) {
	assert.Equal(t, "pgx", sqlxDriver("postgres"))
	assert.Equal(t, "mysql", sqlxDriver("mysql"))
}
