// Package notify 通知投递
//
// 生命周期操作只调用 notification.Notifier.Notify，不等待投递结果：
//   - Dispatcher 进程内有界队列 + 单个worker，依次交给各个Sender
//   - Publisher 发布到RabbitMQ，由 cmd/notifier 消费后交给同样的Sender
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/pkg/metrics"
)

// Sender 具体通道（Telegram、WebSocket）
type Sender interface {
	Name() string
	Send(ctx context.Context, e notification.Event) error
}

// Deliver 把事件交给所有Sender，返回第一个错误；单个通道失败不影响其他通道
func Deliver(ctx context.Context, senders []Sender, e notification.Event, logger *slog.Logger) error {
	var first error
	for _, s := range senders {
		if err := s.Send(ctx, e); err != nil {
			metrics.RecordNotification(s.Name(), "failed")
			logger.WarnContext(ctx, "notification delivery failed",
				"sender", s.Name(),
				"kind", e.Kind,
				"error", err,
			)
			if first == nil {
				first = err
			}
			continue
		}
		metrics.RecordNotification(s.Name(), "sent")
	}
	return first
}

// Dispatcher 进程内异步投递
// 队列满时丢弃事件并记WARN，Notify永远不阻塞调用方
type Dispatcher struct {
	queue       chan notification.Event
	senders     []Sender
	sendTimeout time.Duration
	logger      *slog.Logger

	once sync.Once
	done chan struct{}
}

var _ notification.Notifier = (*Dispatcher)(nil)

// NewDispatcher 创建Dispatcher，需调用Run启动worker
func NewDispatcher(size int, logger *slog.Logger, senders ...Sender) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		queue:       make(chan notification.Event, size),
		senders:     senders,
		sendTimeout: 10 * time.Second,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Notify 入队
func (d *Dispatcher) Notify(ctx context.Context, e notification.Event) {
	select {
	case d.queue <- e:
		metrics.SetNotificationQueueDepth(len(d.queue))
	default:
		metrics.RecordNotification("dispatcher", "dropped")
		d.logger.WarnContext(ctx, "notification queue full, event dropped",
			"kind", e.Kind,
			"capacity", cap(d.queue),
		)
	}
}

// Run 消费队列直到ctx取消；取消后把队列里剩余的事件投递完再返回
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.once.Do(func() { close(d.done) })

	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-d.queue:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

// Done Run返回后关闭
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(e notification.Event) {
	metrics.SetNotificationQueueDepth(len(d.queue))

	// 请求的ctx早已结束，投递使用独立的超时
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	_ = Deliver(ctx, d.senders, e, d.logger)
}
