// Package notification 通知事件与投递契约
//
// 生命周期操作只负责把事件交给Notifier，投递在请求之外异步完成，
// 投递失败对调用方不可见。
package notification

import (
	"context"
	"time"
)

// Kind 事件类型，同时作为MQ的routing key
type Kind string

const (
	KindBorrowingCreated Kind = "borrowing.created"
	KindFineIncurred     Kind = "borrowing.fine"
	KindPaymentConfirmed Kind = "payment.confirmed"
	KindOverdueReport    Kind = "report.overdue"
)

// Event 一条待投递的通知
type Event struct {
	Kind       Kind      `json:"kind"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 尽力而为、即发即忘
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, e Event)

func (f NotifierFunc) Notify(ctx context.Context, e Event) { f(ctx, e) }

// Send 按limit切分后逐条入队
// 超过通道长度限制的切分由调用方负责，Notifier不做处理
func Send(ctx context.Context, n Notifier, kind Kind, text string, limit int, now time.Time) {
	for _, chunk := range Split(text, limit) {
		n.Notify(ctx, Event{Kind: kind, Text: chunk, OccurredAt: now})
	}
}
