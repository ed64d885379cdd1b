// notifier 消费RabbitMQ中的通知事件并投递到Telegram
// 只在配置了 mq.url 时需要部署；API进程负责发布
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/notify"
	applog "github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger, closeLog, err := applog.New(cfg.Log.Logger())
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("notifier exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.MQ.URL == "" {
		return errors.New("未配置 mq.url，通知由API进程直接投递")
	}
	if !cfg.Telegram.Enabled() {
		return errors.New("未配置 telegram.token / telegram.chat_id")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	metrics.InitMetrics()

	telegram, err := notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.MessageLimit)
	if err != nil {
		return err
	}

	consumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		cfg.MQ.Exchange,
		notify.ExchangeType,
		cfg.MQ.Queue,
		notify.RoutingKeys,
		cfg.MQ.Prefetch,
		logger,
	)
	if err != nil {
		return err
	}
	defer func() { _ = consumer.Close() }()

	logger.Info("notifier started", "queue", cfg.MQ.Queue, "chat_id", cfg.Telegram.ChatID)
	return consumer.Consume(ctx, notify.Handler([]notify.Sender{telegram}, logger))
}
