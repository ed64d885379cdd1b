// Package monitor 周期性的后台任务
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/notification"
)

// OverdueQuery 查询截止日之前应还而未还的借阅
type OverdueQuery interface {
	ListDueBy(ctx context.Context, cutoff time.Time) ([]notification.OverdueLine, error)
}

// Locker 跨副本的一次性锁，nil表示单副本部署
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// OverdueReportUseCase 生成每日逾期报告
// 统计范围：未归还且预计归还日不晚于明天，提前一天提醒即将到期的借阅
type OverdueReportUseCase struct {
	query        OverdueQuery
	locker       Locker
	notifier     notification.Notifier
	messageLimit int
	logger       *slog.Logger
}

// NewOverdueReportUseCase 创建逾期报告用例
func NewOverdueReportUseCase(query OverdueQuery, locker Locker, notifier notification.Notifier, messageLimit int, logger *slog.Logger) *OverdueReportUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueReportUseCase{
		query:        query,
		locker:       locker,
		notifier:     notifier,
		messageLimit: messageLimit,
		logger:       logger,
	}
}

// OverdueReport 执行结果
type OverdueReport struct {
	Date    time.Time
	Count   int
	Skipped bool // 当天已由其他副本发送
}

// Execute 每个日历日只发送一次
func (uc *OverdueReportUseCase) Execute(ctx context.Context, now time.Time) (*OverdueReport, error) {
	today := borrowing.DateOf(now)
	report := &OverdueReport{Date: today}

	lockKey := "overdue-report:" + today.Format("2006-01-02")
	if uc.locker != nil {
		ok, err := uc.locker.TryLock(ctx, lockKey, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Skipped = true
			return report, nil
		}
	}

	lines, err := uc.query.ListDueBy(ctx, today.AddDate(0, 0, 1))
	if err != nil {
		// 查询失败时放开当天的锁，下一轮（或其他副本）还能补发
		if uc.locker != nil {
			if uerr := uc.locker.Unlock(ctx, lockKey); uerr != nil {
				uc.logger.WarnContext(ctx, "release overdue report lock failed", "key", lockKey, "error", uerr)
			}
		}
		return nil, err
	}
	report.Count = len(lines)

	notification.Send(ctx, uc.notifier, notification.KindOverdueReport,
		notification.OverdueReportText(lines), uc.messageLimit, now)

	uc.logger.InfoContext(ctx, "overdue report sent", "date", today.Format("2006-01-02"), "count", report.Count)
	return report, nil
}
