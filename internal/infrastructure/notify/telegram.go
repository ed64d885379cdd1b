package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/xiebiao/library/internal/domain/notification"
)

// botAPI *tgbotapi.BotAPI 满足它
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender 发送到固定的chat
type TelegramSender struct {
	bot    botAPI
	chatID int64
	limit  int
}

var _ Sender = (*TelegramSender)(nil)

// NewTelegramSender 用token登录bot
func NewTelegramSender(token string, chatID int64, limit int) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot login")
	}
	return &TelegramSender{bot: bot, chatID: chatID, limit: limit}, nil
}

func (s *TelegramSender) Name() string { return "telegram" }

// Send 事件在入队前已按limit切分，这里再切一次兜底
func (s *TelegramSender) Send(ctx context.Context, e notification.Event) error {
	for _, chunk := range notification.Split(e.Text, s.limit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, chunk)); err != nil {
			return errors.Wrapf(err, "telegram send %s", e.Kind)
		}
	}
	return nil
}
