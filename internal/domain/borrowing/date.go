package borrowing

import "time"

// DateOf 取时间所在的日历日（UTC零点）
// 借阅相关的日期都只精确到天，比较与计算天数前统一截断
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayCount from到to之间相差的日历天数，to早于from时为负
func DayCount(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
