package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/mobatips/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"~strikethrough~", "\\~strikethrough\\~"},
		{"`code`", "\\`code\\`"},
		{">blockquote", "\\>blockquote"},
		{"#header", "\\#header"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"=equal|pipe", "\\=equal\\|pipe"},
		{"{brace}", "\\{brace\\}"},
		{"end!", "end\\!"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// chat ID is parsed before the bot token is validated, so no network call happens
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

type fakeSender struct {
	failures int
	sent     []tgbotapi.MessageConfig
	calls    int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("bad gateway")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func newTestClient(sender *fakeSender, maxRetries int) *Client {
	return &Client{
		send:           sender.Send,
		chatID:         42,
		maxRetries:     maxRetries,
		retryDelayBase: time.Millisecond,
	}
}

func testTip() models.ProfessionalTip {
	return models.ProfessionalTip{
		ID:              "tip-1",
		Team1:           "T1",
		Team2:           "Gen.G",
		League:          "LCK",
		Tournament:      "Spring",
		RecommendedTeam: "Gen.G",
		Odds:            2.15,
		Units:           1.5,
		RiskLevel:       "MEDIUM",
		ConfidencePct:   58.4,
		ConfidenceLevel: models.ConfidenceMedium,
		EVPct:           25.56,
		Reasoning:       "Gen.G 58.4% to win; stronger draft",
		GameTime:        95,
	}
}

func TestFormatTip(t *testing.T) {
	msg := formatTip(testTip())

	for _, want := range []string{
		"🎯 *Live Tip*",
		"*T1 vs Gen\\.G*",
		"🏆 LCK · Spring",
		"⏱ 1:35 game time",
		"✅ Pick: *Gen\\.G* @ 2\\.15",
		"💰 Stake: 1\\.5 units",
		"📊 Confidence: 58\\.4% \\(medium\\)",
		"📈 EV: \\+25\\.56%",
		"🟡 Risk: MEDIUM",
		"_Gen\\.G 58\\.4% to win; stronger draft_",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatTip() missing %q in:\n%s", want, msg)
		}
	}
}

func TestFormatStats(t *testing.T) {
	started := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	msg := formatStats(models.MonitoringStats{
		StartedAt:     started,
		Cycles:        12,
		TipsGenerated: 2,
		TipsSent:      1,
	}, started.Add(90*time.Minute))

	for _, want := range []string{"*Monitor stats*", "Uptime: 1h30m0s", "Cycles: 12", "Tips generated: 2", "Tips sent: 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatStats() missing %q in:\n%s", want, msg)
		}
	}
}

func TestDeliver_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	c := newTestClient(sender, 3)

	if err := c.Deliver(context.Background(), testTip()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if sender.calls != 3 {
		t.Errorf("calls = %d, want 3", sender.calls)
	}
	if len(sender.sent) != 1 || sender.sent[0].ChatID != 42 || sender.sent[0].ParseMode != "MarkdownV2" {
		t.Errorf("unexpected sent messages: %+v", sender.sent)
	}
}

func TestDeliver_GivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	c := newTestClient(sender, 2)

	err := c.Deliver(context.Background(), testTip())
	if err == nil || !strings.Contains(err.Error(), "failed after 2 retries") {
		t.Fatalf("Deliver() error = %v", err)
	}
	if sender.calls != 2 {
		t.Errorf("calls = %d, want 2", sender.calls)
	}
}

func TestDeliver_Cancelled(t *testing.T) {
	sender := &fakeSender{failures: 10}
	c := newTestClient(sender, 5)
	c.retryDelayBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Deliver(ctx, testTip())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Deliver() error = %v, want context.Canceled", err)
	}
	if sender.calls != 1 {
		t.Errorf("calls = %d, want 1", sender.calls)
	}
}

func TestNotifications(t *testing.T) {
	sender := &fakeSender{}
	c := newTestClient(sender, 1)

	if err := c.NotifyFailure(context.Background(), errors.New("feed: 503")); err != nil {
		t.Fatal(err)
	}
	if err := c.NotifyRecovery(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sender.sent[0].Text, "`feed: 503`") {
		t.Errorf("error notice = %q", sender.sent[0].Text)
	}
	if !strings.Contains(sender.sent[1].Text, "after 3 consecutive failure\\(s\\)") {
		t.Errorf("recovery notice = %q", sender.sent[1].Text)
	}
}
