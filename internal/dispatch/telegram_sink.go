package dispatch

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"polymarket-watch/internal/domain"
)

// telegramAPI is the slice of the bot client the sink uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink pushes alerts to a Telegram chat.
type TelegramSink struct {
	bot    telegramAPI
	chatID int64
}

// NewTelegramSink creates a sink talking to the Telegram Bot API.
func NewTelegramSink(botToken string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

var _ Sink = (*TelegramSink)(nil)

// Name identifies the sink.
func (s *TelegramSink) Name() string { return "telegram" }

// Deliver sends the alert as one formatted message.
func (s *TelegramSink) Deliver(_ context.Context, a *domain.AlertRecord) error {
	msg := tgbotapi.NewMessage(s.chatID, FormatAlert(a))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

// FormatAlert renders an alert as an HTML Telegram message.
func FormatAlert(a *domain.AlertRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🚨 <b>Signal — confidence %.0f</b>\n", a.Score)
	if a.MarketQuestion != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", escapeHTML(a.MarketQuestion))
	}
	fmt.Fprintf(&sb, "\n")

	for _, f := range a.Flags {
		fmt.Fprintf(&sb, "• <b>%s</b> (+%.1f): %s\n", f.Name, f.Weight, escapeHTML(f.Rationale))
	}

	fmt.Fprintf(&sb, "\nWallets (%d):\n", len(a.Wallets))
	for i, w := range a.Wallets {
		if i == 5 {
			fmt.Fprintf(&sb, "… and %d more\n", len(a.Wallets)-5)
			break
		}
		fmt.Fprintf(&sb, "<code>%s</code>\n", escapeHTML(w))
	}

	fmt.Fprintf(&sb, "\nMarket: <code>%s</code>", escapeHTML(a.MarketID))
	return sb.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
