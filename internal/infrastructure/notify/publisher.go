package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

// ExchangeType 通知用topic交换机，routing key即事件类型
const ExchangeType = "topic"

// RoutingKeys 消费端绑定的全部事件类型
var RoutingKeys = []string{
	string(notification.KindBorrowingCreated),
	string(notification.KindFineIncurred),
	string(notification.KindPaymentConfirmed),
	string(notification.KindOverdueReport),
}

// messagePublisher *mq.Publisher 满足它
type messagePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Publisher 把事件发布到RabbitMQ
type Publisher struct {
	mq      messagePublisher
	timeout time.Duration
	logger  *slog.Logger
}

var _ notification.Notifier = (*Publisher)(nil)

// NewPublisher 创建Publisher
func NewPublisher(p messagePublisher, logger *slog.Logger) *Publisher {
	return &Publisher{mq: p, timeout: 3 * time.Second, logger: logger}
}

// Notify 发布失败只记日志
func (p *Publisher) Notify(ctx context.Context, e notification.Event) {
	// 请求已提交，不受请求ctx取消影响
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.mq.Publish(pubCtx, string(e.Kind), e); err != nil {
		metrics.RecordNotification("mq", "failed")
		p.logger.WarnContext(ctx, "notification publish failed", "kind", e.Kind, "error", err)
	}
}

// Handler 消费端：解码事件后交给所有Sender
// 返回错误时消息会重新入队一次，见 mq.ShouldRequeue
func Handler(senders []Sender, logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, d mq.Delivery) error {
		var e notification.Event
		if err := mq.Decode(d.Body, &e); err != nil {
			// 格式错误的消息重投也不会成功
			logger.ErrorContext(ctx, "malformed notification dropped", "routing_key", d.RoutingKey, "error", err)
			return nil
		}
		if e.Kind == "" {
			e.Kind = notification.Kind(d.RoutingKey)
		}
		return Deliver(ctx, senders, e, logger)
	}
}
