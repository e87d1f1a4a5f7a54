// Package notify delivers signals and alerts to Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/drift"
	"github.com/Alias1177/Strategist/models"
)

// Notifier is the outbound alert boundary
type Notifier interface {
	SendSignal(sig models.Signal) error
	SendNoTrade(pair, reason string) error
	SendDriftAlert(report drift.Report) error
	SendStatus(text string) error
}

// Telegram sends formatted messages to a fixed chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a notifier for the given bot token and chat
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notify").Logger(),
	}, nil
}

// SendSignal formats and delivers a trade recommendation
func (t *Telegram) SendSignal(sig models.Signal) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s %s\n", sig.Pair, strings.ToUpper(sig.Direction.String()))
	fmt.Fprintf(&b, "Entry zone: %.5f – %.5f\n", sig.EntryZone[0], sig.EntryZone[1])
	fmt.Fprintf(&b, "Stop loss: %.5f\n", sig.StopLoss)
	fmt.Fprintf(&b, "Take profit: %.5f\n", sig.TakeProfit)
	fmt.Fprintf(&b, "Confidence: %.1f%% (agreement %.0f%%, %d strategies)\n",
		sig.Confidence, sig.Agreement*100, len(sig.Strategies))
	fmt.Fprintf(&b, "Regime: %s (%.0f%%)", sig.Regime, sig.RegimeConfidence*100)
	if sig.TrendAligned {
		fmt.Fprintf(&b, "\nTrend aligned, strength %.2f", sig.TrendStrength)
	}
	return t.send(b.String())
}

// SendNoTrade reports that the pipeline withheld a signal
func (t *Telegram) SendNoTrade(pair, reason string) error {
	return t.send(fmt.Sprintf("⏸ %s: no trade (%s)", pair, reason))
}

// SendDriftAlert reports a degraded strategy with recommended action
func (t *Telegram) SendDriftAlert(report drift.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Drift detected: %s\n", report.StrategyID)
	fmt.Fprintf(&b, "Severity: %s\n", report.Severity)
	fmt.Fprintf(&b, "Win rate: %.2f (baseline %.2f)\n", report.WinRate.Recent, report.WinRate.Baseline)
	fmt.Fprintf(&b, "Profit factor: %.2f (baseline %.2f)\n", report.ProfitFactor.Recent, report.ProfitFactor.Baseline)
	if report.Distribution.HasDrift {
		fmt.Fprintf(&b, "Return distribution shifted (p=%.3f)\n", report.Distribution.PValue)
	}
	fmt.Fprintf(&b, "\n%s", drift.RecommendAction(report.Severity))
	return t.send(b.String())
}

// SendStatus delivers a plain status summary
func (t *Telegram) SendStatus(text string) error {
	return t.send(text)
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("Failed to send telegram message")
		return err
	}
	return nil
}
