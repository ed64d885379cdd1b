// Package query 只读报表查询，绕过GORM直接用goqu拼SQL、sqlx扫描
package query

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/notification"
)

// OverdueQuery 逾期借阅查询，与业务表共用连接池
type OverdueQuery struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

type overdueRow struct {
	BorrowingID        uint      `db:"borrowing_id"`
	UserEmail          string    `db:"user_email"`
	BookTitle          string    `db:"book_title"`
	ExpectedReturnDate time.Time `db:"expected_return_date"`
}

// NewOverdueQuery 复用GORM底层的*sql.DB
func NewOverdueQuery(gdb *gorm.DB, driver string) (*OverdueQuery, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "获取SQL DB失败")
	}
	return &OverdueQuery{
		db:      sqlx.NewDb(sqlDB, sqlxDriver(driver)),
		dialect: goqu.Dialect(driver),
	}, nil
}

func sqlxDriver(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return "mysql"
}

// ListDueBy 未归还且预计归还日不晚于cutoff的借阅，按到期日排序
func (q *OverdueQuery) ListDueBy(ctx context.Context, cutoff time.Time) ([]notification.OverdueLine, error) {
	sqlStr, args, err := q.dueBySQL(cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "构建逾期查询失败")
	}

	var rows []overdueRow
	if err := q.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, errors.Wrap(err, "查询逾期借阅失败")
	}

	lines := make([]notification.OverdueLine, len(rows))
	for i, r := range rows {
		lines[i] = notification.OverdueLine{
			BorrowingID:        r.BorrowingID,
			UserEmail:          r.UserEmail,
			BookTitle:          r.BookTitle,
			ExpectedReturnDate: borrowing.DateOf(r.ExpectedReturnDate),
		}
	}
	return lines, nil
}

func (q *OverdueQuery) dueBySQL(cutoff time.Time) (string, []interface{}, error) {
	return q.dialect.
		From(goqu.T("borrowings").As("b")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.user_id")))).
		Join(goqu.T("books").As("k"), goqu.On(goqu.I("k.id").Eq(goqu.I("b.book_id")))).
		Select(
			goqu.I("b.id").As("borrowing_id"),
			goqu.I("u.email").As("user_email"),
			goqu.I("k.title").As("book_title"),
			goqu.I("b.expected_return_date").As("expected_return_date"),
		).
		Where(
			goqu.I("b.actual_return_date").IsNull(),
			goqu.I("b.expected_return_date").Lte(borrowing.DateOf(cutoff).Format("2006-01-02")),
		).
		Order(goqu.I("b.expected_return_date").Asc(), goqu.I("b.id").Asc()).
		Prepared(true).
		ToSQL()
}
