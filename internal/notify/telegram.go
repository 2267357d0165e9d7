package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram delivers notifications to a Telegram chat. Sends happen on a
// background goroutine so a slow Telegram API never delays a tick.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	log     *zap.Logger
}

// NewTelegram connects the bot API. A missing token disables delivery
// rather than failing engine startup.
func NewTelegram(token string, chatID int64, log *zap.Logger) *Telegram {
	if token == "" || chatID == 0 {
		return &Telegram{enabled: false, log: log}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Error("telegram bot init failed", zap.Error(err))
		return &Telegram{enabled: false, log: log}
	}
	log.Info("telegram bot connected", zap.String("username", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID, enabled: true, log: log}
}

func (n *Telegram) Notify(ctx context.Context, userID string, t Type, message, botName string, data map[string]any) {
	if !n.enabled {
		return
	}
	text := message
	if botName != "" {
		text = fmt.Sprintf("[%s] %s", botName, message)
	}
	switch t {
	case TypeError:
		text = "⚠️ " + text
	case TypeRisk:
		text = "🛑 " + text
	case TypeTrade:
		text = "💱 " + text
	}

	go func() {
		msg := tgbotapi.NewMessage(n.chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn("telegram send failed",
				zap.String("user", userID), zap.Error(err))
		}
	}()
}
