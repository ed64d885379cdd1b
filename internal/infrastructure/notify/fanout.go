package notify

import (
	"context"

	"github.com/xiebiao/library/internal/domain/notification"
)

// Fanout 同一事件交给多个Notifier
// 例如：MQ模式下Telegram走RabbitMQ，同时本进程的WebSocket推送仍走进程内队列
type Fanout []notification.Notifier

var _ notification.Notifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, e notification.Event) {
	for _, n := range f {
		n.Notify(ctx, e)
	}
}
