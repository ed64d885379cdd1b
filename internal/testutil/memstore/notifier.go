package memstore

import (
	"context"
	"sync"

	"github.com/xiebiao/library/internal/domain/notification"
)

// Notifier 记录收到的事件
type Notifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *Notifier) Notify(_ context.Context, e notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

// Events 已收到事件的副本
func (n *Notifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

// OfKind 按类型过滤
func (n *Notifier) OfKind(kind notification.Kind) []notification.Event {
	var out []notification.Event
	for _, e := range n.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
