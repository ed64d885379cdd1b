// Package database 基于GORM的关系库持久化，支持MySQL与PostgreSQL
package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 1. 按driver选择方言（mysql | postgres）
// 2. 配置连接池
// 3. AutoMigrate建表
func NewDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = mysql.Open(dsn)
	}

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // 唯一键、外键冲突翻译为gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "连接数据库失败")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "获取SQL DB失败")
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "数据库连接测试失败")
	}
	log.Info("database connected", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "db", cfg.Database.DBName)

	if err := autoMigrate(db); err != nil {
		return nil, errors.Wrap(err, "数据库迁移失败")
	}
	return db, nil
}

// Pinger 健康检查用
type Pinger struct {
	db *gorm.DB
}

// NewPinger 创建Pinger
func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

// Ping 检查连接池是否可用
func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return errors.Wrap(err, "获取SQL DB失败")
	}
	return errors.Wrap(sqlDB.PingContext(ctx), "数据库不可用")
}

// autoMigrate 按依赖顺序建表：users/books → borrowings → payments
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&BorrowingModel{},
		&PaymentModel{},
	)
}

// =========================================
// GORM模型（与领域实体分离）
// =========================================

// UserModel 用户表
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string    `gorm:"size:255;not null;comment:密码（bcrypt加密）"`
	Nickname  string    `gorm:"size:50;not null;comment:昵称"`
	IsStaff   bool      `gorm:"not null;default:false;comment:管理员"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (UserModel) TableName() string {
	return "users"
}

// BookModel 图书表
// 不做软删除：被借阅引用的图书依赖外键RESTRICT拒绝删除
type BookModel struct {
	ID        uint            `gorm:"primaryKey"`
	Title     string          `gorm:"index:idx_search;size:255;not null;comment:书名"`
	Author    string          `gorm:"index:idx_search;size:255;not null;comment:作者"`
	Cover     string          `gorm:"size:4;not null;comment:封面(HARD/SOFT)"`
	Inventory int             `gorm:"not null;default:0;check:chk_books_inventory,inventory >= 0;comment:可借库存"`
	DailyFee  decimal.Decimal `gorm:"type:decimal(5,2);not null;comment:日租金"`
	CreatedAt time.Time       `gorm:"comment:创建时间"`
	UpdatedAt time.Time       `gorm:"comment:更新时间"`
}

func (BookModel) TableName() string {
	return "books"
}

// BorrowingModel 借阅表，只增不删
type BorrowingModel struct {
	ID                 uint       `gorm:"primaryKey"`
	UserID             uint       `gorm:"index;not null;comment:借阅用户ID"`
	User               UserModel  `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	BookID             uint       `gorm:"index;not null;comment:图书ID"`
	Book               BookModel  `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT"`
	BorrowDate         time.Time  `gorm:"type:date;not null;comment:借出日"`
	ExpectedReturnDate time.Time  `gorm:"type:date;index;not null;comment:预计归还日"`
	ActualReturnDate   *time.Time `gorm:"type:date;index;comment:实际归还日(NULL表示未归还)"`
	CreatedAt          time.Time  `gorm:"comment:创建时间"`
	UpdatedAt          time.Time  `gorm:"comment:更新时间"`
}

func (BorrowingModel) TableName() string {
	return "borrowings"
}

// PaymentModel 支付记录表
type PaymentModel struct {
	ID               uint            `gorm:"primaryKey"`
	BorrowingID      uint            `gorm:"index;not null;comment:借阅ID"`
	Borrowing        BorrowingModel  `gorm:"foreignKey:BorrowingID;constraint:OnDelete:CASCADE"`
	Kind             int             `gorm:"type:smallint;not null;comment:款项类型(1租金2罚金)"`
	Status           int             `gorm:"type:smallint;index;not null;default:1;comment:状态(1待支付2已支付)"`
	AmountDue        decimal.Decimal `gorm:"type:decimal(8,2);not null;comment:应付金额"`
	SessionID        *string         `gorm:"size:255;uniqueIndex;comment:网关会话ID"`
	SessionURL       string          `gorm:"size:1024;comment:收银台链接"`
	SessionExpiresAt *time.Time      `gorm:"comment:会话过期时间"`
	CreatedAt        time.Time       `gorm:"comment:创建时间"`
	UpdatedAt        time.Time       `gorm:"comment:更新时间"`
}

func (PaymentModel) TableName() string {
	return "payments"
}
