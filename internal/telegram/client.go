// Package telegram delivers tips and operational notices through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/mobatips/internal/models"
)

// StatsFunc returns the monitor's current counters for the /stats command.
type StatsFunc func() models.MonitoringStats

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	send           func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		send:           bot.Send,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, stats StatsFunc) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, stats)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, stats StatsFunc) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.send(reply) //nolint:errcheck
	case "stats":
		if stats == nil {
			return
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, formatStats(stats(), time.Now()))
		reply.ParseMode = "MarkdownV2"
		c.send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("send cancelled: %w", ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// NotifyFailure sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) NotifyFailure(ctx context.Context, cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(ctx, text)
}

// NotifyRecovery sends a recovery notification after consecutive failures.
func (c *Client) NotifyRecovery(ctx context.Context, failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(ctx, text)
}

// Deliver sends one tip to the configured chat.
func (c *Client) Deliver(ctx context.Context, tip models.ProfessionalTip) error {
	return c.sendMarkdownV2(ctx, formatTip(tip))
}

var riskEmoji = map[string]string{
	"LOW":    "🟢",
	"MEDIUM": "🟡",
	"HIGH":   "🔴",
}

// formatTip formats a tip into a Telegram MarkdownV2 message.
func formatTip(tip models.ProfessionalTip) string {
	var b strings.Builder

	b.WriteString("🎯 *Live Tip*\n\n")

	header := fmt.Sprintf("%s vs %s", tip.Team1, tip.Team2)
	fmt.Fprintf(&b, "*%s*\n", escapeMarkdownV2(header))

	league := tip.League
	if tip.Tournament != "" {
		league += " · " + tip.Tournament
	}
	if league != "" {
		fmt.Fprintf(&b, "🏆 %s\n", escapeMarkdownV2(league))
	}
	fmt.Fprintf(&b, "⏱ %s\n\n", escapeMarkdownV2(formatGameTime(tip.GameTime)))

	fmt.Fprintf(&b, "✅ Pick: *%s* @ %s\n", escapeMarkdownV2(tip.RecommendedTeam), escapeMarkdownV2(fmt.Sprintf("%.2f", tip.Odds)))
	fmt.Fprintf(&b, "💰 Stake: %s units\n", escapeMarkdownV2(strconv.FormatFloat(tip.Units, 'f', -1, 64)))
	fmt.Fprintf(&b, "📊 Confidence: %s \\(%s\\)\n",
		escapeMarkdownV2(fmt.Sprintf("%.1f%%", tip.ConfidencePct)),
		escapeMarkdownV2(strings.ReplaceAll(string(tip.ConfidenceLevel), "_", " ")))
	fmt.Fprintf(&b, "📈 EV: %s\n", escapeMarkdownV2(fmt.Sprintf("%+.2f%%", tip.EVPct)))

	emoji := riskEmoji[tip.RiskLevel]
	if emoji == "" {
		emoji = "⚪"
	}
	fmt.Fprintf(&b, "%s Risk: %s\n", emoji, escapeMarkdownV2(tip.RiskLevel))

	if tip.Reasoning != "" {
		fmt.Fprintf(&b, "\n_%s_\n", escapeMarkdownV2(tip.Reasoning))
	}
	return b.String()
}

func formatGameTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d game time", seconds/60, seconds%60)
}

// formatStats formats monitoring counters for the /stats reply.
func formatStats(s models.MonitoringStats, now time.Time) string {
	uptime := now.Sub(s.StartedAt).Truncate(time.Second)
	if s.StartedAt.IsZero() {
		uptime = 0
	}
	lines := []string{
		"📋 *Monitor stats*",
		"",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("Cycles: %d", s.Cycles),
		fmt.Sprintf("Matches scanned: %d", s.MatchesScanned),
		fmt.Sprintf("Tips generated: %d", s.TipsGenerated),
		fmt.Sprintf("Tips sent: %d", s.TipsSent),
		fmt.Sprintf("Tips expired: %d", s.TipsExpired),
		fmt.Sprintf("Rejected: %d", s.TipsRejected),
	}
	for i := 2; i < len(lines); i++ {
		lines[i] = escapeMarkdownV2(lines[i])
	}
	return strings.Join(lines, "\n")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
