package bot

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/dafibh/fortuna/internal/finance"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeHTML escapes user-supplied text for Telegram HTML parse mode.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// emotionEmoji maps emotion tags to their display emoji.
var emotionEmoji = map[string]string{
	"happy":    "😊",
	"content":  "😌",
	"neutral":  "😐",
	"stressed": "😣",
	"anxious":  "😰",
	"guilty":   "😔",
	"excited":  "🤩",
	"bored":    "🥱",
}

// emotionLabel renders an emotion as "😊 happy". Unknown emotions come
// back unchanged.
func emotionLabel(emotion string) string {
	if emoji, ok := emotionEmoji[emotion]; ok {
		return emoji + " " + emotion
	}
	return emotion
}

// statusEmoji maps a progress status label to its display emoji.
func statusEmoji(status string) string {
	switch status {
	case finance.StatusOnTrack:
		return "✅"
	case finance.StatusWarning:
		return "⚠️"
	case finance.StatusOverBudget:
		return "🚨"
	case finance.StatusUnderBudget:
		return "💤"
	default:
		return ""
	}
}

// trendLabel renders a goal trend as "⚠️ at risk". Empty trends render
// as empty strings so callers can skip the line.
func trendLabel(trend string) string {
	switch trend {
	case finance.TrendOnTrack:
		return "✅ on track"
	case finance.TrendAtRisk:
		return "⚠️ at risk"
	case finance.TrendBehind:
		return "🚨 behind"
	default:
		return ""
	}
}

const progressBarWidth = 10

// progressBar renders utilization as a fixed-width bar, capped at full:
// 65 percent becomes "▓▓▓▓▓▓▓░░░".
func progressBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	filled := int(percent/100*progressBarWidth + 0.5)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", progressBarWidth-filled)
}

// monthLabel renders a year/month pair as "January 2026".
func monthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// onTargetMark renders a 50/30/20 band check as ✅ or ❌.
func onTargetMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
