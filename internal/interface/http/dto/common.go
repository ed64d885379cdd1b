package dto

import (
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// DateLayout 请求与响应中的日期格式
const DateLayout = "2006-01-02"

// Paging 分页默认值与上限（来自配置 pagination.*）
type Paging struct {
	Default int
	Max     int
}

// PageQuery 分页查询参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1" example:"5"`
}

// Resolve 缺省取默认页大小，超过上限时截断
func (q PageQuery) Resolve(p Paging) (page, pageSize int) {
	page, pageSize = q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.Default
	}
	if p.Max > 0 && pageSize > p.Max {
		pageSize = p.Max
	}
	return page, pageSize
}

// ParseDate 解析 YYYY-MM-DD（UTC），失败时返回带字段名的InvalidDate
func ParseDate(value, field string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.ErrCodeInvalidDate, "日期格式应为YYYY-MM-DD").WithField(field)
	}
	return t, nil
}

// ParseOptionalDate 空字符串返回nil
func ParseOptionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(value, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
