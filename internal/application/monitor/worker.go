package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Worker 按固定间隔触发逾期报告
type Worker struct {
	report   *OverdueReportUseCase
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorker 创建定时任务
func NewWorker(report *OverdueReportUseCase, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{report: report, interval: interval, logger: logger, now: time.Now}
}

// Run 启动后立即执行一次，之后每个interval执行一次，ctx取消时返回
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("overdue monitor started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue monitor stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	report, err := w.report.Execute(ctx, w.now())
	if err != nil {
		w.logger.ErrorContext(ctx, "overdue report failed", "error", err)
		return
	}
	if report.Skipped {
		w.logger.DebugContext(ctx, "overdue report already sent today", "date", report.Date.Format("2006-01-02"))
	}
}
