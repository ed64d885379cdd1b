package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/pkg/mq"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingSender struct {
	name string
	err  error

	mu     sync.Mutex
	events []notification.Event
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(_ context.Context, e notification.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSender) received() []notification.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Event(nil), s.events...)
}

func event(kind notification.Kind, text string) notification.Event {
	return notification.Event{Kind: kind, Text: text, OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func TestDispatcher_DeliversToEverySender(t *testing.T) {
	failing := &recordingSender{name: "telegram", err: errors.New("bot blocked")}
	ok := &recordingSender{name: "websocket"}
	d := NewDispatcher(8, quiet, failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	d.Notify(context.Background(), event(notification.KindBorrowingCreated, "Dune was borrowed"))
	d.Notify(context.Background(), event(notification.KindFineIncurred, "please pay the fine"))

	require.Eventually(t, func() bool { return len(ok.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, failing.received(), 2, "一个通道失败不影响其他通道")

	cancel()
	<-d.Done()
}

func TestDispatcher_DropsWhenFullAndDrainsOnStop(t *testing.T) {
	s := &recordingSender{name: "websocket"}
	d := NewDispatcher(1, quiet, s)

	// worker未启动，第二条直接丢弃且不阻塞
	d.Notify(context.Background(), event(notification.KindBorrowingCreated, "first"))
	d.Notify(context.Background(), event(notification.KindBorrowingCreated, "second"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	got := s.received()
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Text)
}

func TestFanout(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Fanout{a, b}.Notify(context.Background(), event(notification.KindPaymentConfirmed, "paid"))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

type recordingNotifier struct{ events []notification.Event }

func (n *recordingNotifier) Notify(_ context.Context, e notification.Event) {
	n.events = append(n.events, e)
}

type fakePublisher struct {
	err  error
	keys []string
	msgs []interface{}
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, message interface{}) error {
	p.keys = append(p.keys, routingKey)
	p.msgs = append(p.msgs, message)
	return p.err
}

func TestPublisher_UsesKindAsRoutingKey(t *testing.T) {
	fp := &fakePublisher{}
	p := NewPublisher(fp, quiet)

	p.Notify(context.Background(), event(notification.KindOverdueReport, "No borrowings overdue today!"))
	require.Equal(t, []string{"report.overdue"}, fp.keys)

	// 发布失败不向调用方传播
	fp.err = errors.New("channel closed")
	assert.NotPanics(t, func() {
		p.Notify(context.Background(), event(notification.KindFineIncurred, "fine"))
	})
}

func TestHandler(t *testing.T) {
	s := &recordingSender{name: "telegram"}
	h := Handler([]Sender{s}, quiet)
	ctx := context.Background()

	body, err := mq.Encode(event(notification.KindPaymentConfirmed, "Payment 3 for borrowing 12 confirmed"))
	require.NoError(t, err)
	require.NoError(t, h(ctx, mq.Delivery{RoutingKey: "payment.confirmed", Body: body}))
	require.Len(t, s.received(), 1)
	assert.Equal(t, notification.KindPaymentConfirmed, s.received()[0].Kind)

	// 格式错误的消息直接确认丢弃
	require.NoError(t, h(ctx, mq.Delivery{RoutingKey: "payment.confirmed", Body: []byte("{")}))
	assert.Len(t, s.received(), 1)

	s.err = errors.New("telegram down")
	assert.Error(t, h(ctx, mq.Delivery{RoutingKey: "payment.confirmed", Body: body}), "投递失败交给mq重新入队")
}

type fakeBot struct{ texts []string }

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.texts = append(b.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramSender_ChunksLongText(t *testing.T) {
	bot := &fakeBot{}
	s := &TelegramSender{bot: bot, chatID: 42, limit: 10}

	text := "line one\nline two\nline three"
	require.NoError(t, s.Send(context.Background(), event(notification.KindOverdueReport, text)))

	require.Greater(t, len(bot.texts), 1)
	for _, chunk := range bot.texts {
		assert.LessOrEqual(t, len([]rune(chunk)), 10)
	}
	assert.Equal(t, text, strings.Join(bot.texts, ""))
}
