package bot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/dafibh/fortuna/internal/finance"
)

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a &amp; b", escapeHTML("a & b"))
	require.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", escapeHTML("<b>bold</b>"))
	require.Equal(t, "plain", escapeHTML("plain"))
}

func TestEmotionLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "😊 happy", emotionLabel("happy"))
	require.Equal(t, "😣 stressed", emotionLabel("stressed"))
	require.Equal(t, "unknown", emotionLabel("unknown"))
}

func TestStatusEmoji(t *testing.T) {
	t.Parallel()

	require.Equal(t, "✅", statusEmoji(finance.StatusOnTrack))
	require.Equal(t, "⚠️", statusEmoji(finance.StatusWarning))
	require.Equal(t, "🚨", statusEmoji(finance.StatusOverBudget))
	require.Equal(t, "💤", statusEmoji(finance.StatusUnderBudget))
	require.Equal(t, "", statusEmoji("nonsense"))
}

func TestTrendLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "✅ on track", trendLabel(finance.TrendOnTrack))
	require.Equal(t, "⚠️ at risk", trendLabel(finance.TrendAtRisk))
	require.Equal(t, "🚨 behind", trendLabel(finance.TrendBehind))
	require.Empty(t, trendLabel(""))
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		percent float64
		want    string
	}{
		{name: "zero", percent: 0, want: "░░░░░░░░░░"},
		{name: "negative clamps to zero", percent: -25, want: "░░░░░░░░░░"},
		{name: "half", percent: 50, want: "▓▓▓▓▓░░░░░"},
		{name: "rounds to nearest cell", percent: 65, want: "▓▓▓▓▓▓▓░░░"},
		{name: "full", percent: 100, want: "▓▓▓▓▓▓▓▓▓▓"},
		{name: "over-budget caps at full", percent: 140, want: "▓▓▓▓▓▓▓▓▓▓"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, progressBar(tt.percent))
		})
	}
}

func TestMonthLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "January 2026", monthLabel(2026, 1))
	require.Equal(t, "December 2025", monthLabel(2025, 12))
}

func TestOnTargetMark(t *testing.T) {
	t.Parallel()

	require.Equal(t, "✅", onTargetMark(true))
	require.Equal(t, "❌", onTargetMark(false))
}
