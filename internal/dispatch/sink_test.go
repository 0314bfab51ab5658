package dispatch

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"polymarket-watch/internal/domain"
)

func sampleAlert() *domain.AlertRecord {
	return &domain.AlertRecord{
		ID:             "a1",
		MarketID:       "m1",
		MarketQuestion: "Will X & Y <resign> by June?",
		Wallets:        []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7"},
		Flags: []domain.HeuristicFlag{
			{Name: domain.FlagLargeBet, Weight: 45, Rationale: "bet is 10x the market median"},
			{Name: domain.FlagFreshWallet, Weight: 25, Rationale: "wallet first traded 2h ago"},
		},
		Score:     70,
		CreatedAt: 1_700_000_000_000,
	}
}

func TestLogSink_WritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(log.New(&buf, "", 0))

	if err := sink.Deliver(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"ALERT", "id=a1", "market=m1", "score=70.0", "LARGE_BET,FRESH_WALLET"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}
}

func TestFormatAlert_EscapesAndTruncates(t *testing.T) {
	text := FormatAlert(sampleAlert())

	if !strings.Contains(text, "&lt;resign&gt;") {
		t.Error("market question must be HTML-escaped")
	}
	if !strings.Contains(text, "confidence 70") {
		t.Error("message must carry the score")
	}
	if !strings.Contains(text, "and 2 more") {
		t.Error("wallet list should truncate past five entries")
	}
	for _, f := range sampleAlert().Flags {
		if !strings.Contains(text, f.Name) {
			t.Errorf("message missing flag %s", f.Name)
		}
	}
}

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramSink_SendsToConfiguredChat(t *testing.T) {
	bot := &fakeBot{}
	sink := &TelegramSink{bot: bot, chatID: 1234}

	if err := sink.Deliver(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", bot.sent[0])
	}
	if msg.ChatID != 1234 {
		t.Errorf("expected chat 1234, got %d", msg.ChatID)
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("expected HTML parse mode, got %s", msg.ParseMode)
	}
}
