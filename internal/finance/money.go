// Package finance implements the calculation core behind Fortuna's
// screens: money and date utilities, budget/goal progress
// classification, expense filtering and sorting, and the 50/30/20
// budget rule breakdown. Every function is a pure computation over
// in-memory inputs and is total over well-formed values.
package finance

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// FormatCurrency renders the absolute value of amount with thousands
// separators and the default currency symbol. Sign and direction
// ("spent", "saved", "over") are the caller's responsibility.
func FormatCurrency(amount decimal.Decimal) string {
	return FormatAmount(models.SupportedCurrencies[models.DefaultCurrency], amount)
}

// FormatAmount renders the absolute value of amount with thousands
// separators and the given currency symbol.
func FormatAmount(symbol string, amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	sb.Grow(len(symbol) + len(whole) + len(whole)/3 + 3)
	sb.WriteString(symbol)
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(whole[i])
	}
	sb.WriteByte('.')
	sb.WriteString(frac)
	return sb.String()
}

// DaysBetween returns the ceiling of (to - from) in whole days. With
// day-granularity inputs this yields 0 for "due today", positive for
// "due in N days", and negative for "overdue by N days".
func DaysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// PercentOf returns numerator/denominator as a percentage. A zero
// denominator yields zero, never a panic or an infinity; every
// percentage in this package routes through here.
func PercentOf(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator).Mul(oneHundred)
}

// MonthTimeline reports how far through the given calendar month the
// reference time is. Total is the day count of that month; elapsed
// clamps to [0, total] when the reference time falls outside it.
func MonthTimeline(year, month int, now time.Time) (elapsed, remaining, total int) {
	total = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	ym := year*12 + month
	nowYM := now.Year()*12 + int(now.Month())
	switch {
	case nowYM < ym:
		elapsed = 0
	case nowYM > ym:
		elapsed = total
	default:
		elapsed = now.Day()
	}
	return elapsed, total - elapsed, total
}
