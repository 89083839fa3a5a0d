package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/model"

	"github.com/shopspring/decimal"
)

func usd(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func intervalLabel(minutes int) string {
	switch {
	case minutes >= 1440 && minutes%1440 == 0:
		return fmt.Sprintf("%dd", minutes/1440)
	case minutes >= 60 && minutes%60 == 0:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

var directionIcon = map[calculator.Direction]string{
	calculator.DirectionBullish: "📈",
	calculator.DirectionBearish: "📉",
	calculator.DirectionMixed:   "↔️",
	calculator.DirectionNone:    "⏸",
}

// FormatBatch formats a projection batch into a Telegram message.
func FormatBatch(b *model.Batch) string {
	var sb strings.Builder
	outlook := calculator.Consensus(b.Lines)

	sb.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n", directionIcon[outlook.Direction],
		html.EscapeString(b.Symbol), intervalLabel(b.Interval), b.AnchorTime.UTC().Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("Last close: %s\n", usd(b.AnchorClose)))
	sb.WriteString(fmt.Sprintf("Pattern: <code>%s</code>\n", b.Pattern))

	if len(b.Lines) == 0 {
		sb.WriteString("\nNo recurring pattern found.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Outlook: %s (%d up / %d down, avg %+.2f%%)\n\n",
		outlook.Direction, outlook.Up, outlook.Down, outlook.AvgChangePct))
	for _, l := range b.Lines {
		s, err := calculator.Summarize(l)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: %s (%+.2f%%) range %s–%s\n",
			html.EscapeString(s.Label), usd(s.Final), s.ChangePct, usd(s.Low), usd(s.High)))
	}
	return sb.String()
}

// FormatStatus lists the latest batch of every series.
func FormatStatus(latest []*model.Batch) string {
	var sb strings.Builder
	sb.WriteString("📦 <b>Series status</b>\n\n")
	if len(latest) == 0 {
		sb.WriteString("No projections yet.\n")
		return sb.String()
	}
	for _, b := range latest {
		outlook := calculator.Consensus(b.Lines)
		sb.WriteString(fmt.Sprintf("%s %s: %s, %d lines, %s, updated %s\n",
			html.EscapeString(b.Symbol), intervalLabel(b.Interval), usd(b.AnchorClose), len(b.Lines),
			outlook.Direction, b.CreatedAt.UTC().Format("15:04:05")))
	}
	return sb.String()
}

// FormatRange reports where the last close sits within the buffered price range.
func FormatRange(symbol string, interval int, last, high, low, position float64) string {
	return fmt.Sprintf("%s %s: %s at %.0f%% of range %s–%s\n",
		html.EscapeString(symbol), intervalLabel(interval), usd(last), position*100, usd(low), usd(high))
}

// FormatFailure formats a refresh failure alert.
func FormatFailure(symbol string, interval int, err error) string {
	return fmt.Sprintf("❌ <b>%s %s refresh failed</b>\n\n%s",
		html.EscapeString(symbol), intervalLabel(interval), html.EscapeString(err.Error()))
}

// HelpText lists the supported bot commands.
const HelpText = "Available commands:\n• /projections [symbol] - latest projections\n• /status - all series\n• /refresh - refresh now\n• /help - this message"
