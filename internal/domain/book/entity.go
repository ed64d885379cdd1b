package book

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cover 封面类型
type Cover string

const (
	CoverHard Cover = "HARD"
	CoverSoft Cover = "SOFT"
)

// ParseCover 解析封面类型（大小写不敏感）
func ParseCover(s string) (Cover, error) {
	switch Cover(strings.ToUpper(strings.TrimSpace(s))) {
	case CoverHard:
		return CoverHard, nil
	case CoverSoft:
		return CoverSoft, nil
	}
	return "", ErrInvalidCover
}

// Book 图书实体（聚合根）
// 1. DailyFee 为日租金，两位小数，不能为负
// 2. Inventory 为当前可借副本数，只能通过库存台账（inventory.Ledger）在事务内增减
type Book struct {
	ID        uint
	Title     string
	Author    string
	Cover     Cover
	Inventory int
	DailyFee  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建图书（工厂方法，负责业务规则校验）
func NewBook(title, author string, cover Cover, inventory int, dailyFee decimal.Decimal) (*Book, error) {
	if err := validateFields(title, author, cover, inventory, dailyFee); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Book{
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Cover:     cover,
		Inventory: inventory,
		DailyFee:  dailyFee.Round(2),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Changes 管理员修改图书信息，nil字段表示不修改
type Changes struct {
	Title     *string
	Author    *string
	Cover     *Cover
	Inventory *int
	DailyFee  *decimal.Decimal
}

// Apply 应用修改；校验失败时实体保持不变
func (b *Book) Apply(c Changes) error {
	next := *b
	if c.Title != nil {
		next.Title = strings.TrimSpace(*c.Title)
	}
	if c.Author != nil {
		next.Author = strings.TrimSpace(*c.Author)
	}
	if c.Cover != nil {
		next.Cover = *c.Cover
	}
	if c.Inventory != nil {
		next.Inventory = *c.Inventory
	}
	if c.DailyFee != nil {
		next.DailyFee = c.DailyFee.Round(2)
	}

	if err := validateFields(next.Title, next.Author, next.Cover, next.Inventory, next.DailyFee); err != nil {
		return err
	}

	next.UpdatedAt = time.Now()
	*b = next
	return nil
}

// Available 是否有可借副本
func (b *Book) Available() bool {
	return b.Inventory > 0
}

func validateFields(title, author string, cover Cover, inventory int, dailyFee decimal.Decimal) error {
	if strings.TrimSpace(title) == "" || len(title) > 255 {
		return ErrInvalidTitle
	}
	if strings.TrimSpace(author) == "" || len(author) > 255 {
		return ErrInvalidAuthor
	}
	if cover != CoverHard && cover != CoverSoft {
		return ErrInvalidCover
	}
	if inventory < 0 {
		return ErrInvalidInventory
	}
	if dailyFee.IsNegative() {
		return ErrInvalidFee
	}
	return nil
}
