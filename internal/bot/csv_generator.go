package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const (
	periodWeek  = "week"
	periodMonth = "month"
)

// GenerateExpensesCSV renders expenses as a CSV export, including the
// behavioral tags so the file round-trips into a spreadsheet cleanly.
func GenerateExpensesCSV(expenses []appmodels.Expense) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"#", "Date", "Amount", "Currency", "Description", "Merchant", "Category", "Emotion", "Planned", "Need", "Recurring"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		exp := &expenses[i]
		categoryName := "Uncategorized"
		if exp.Category != nil {
			categoryName = exp.Category.Name
		}

		row := []string{
			strconv.FormatInt(exp.UserExpenseNumber, 10),
			exp.SpentAt.Format("2006-01-02 15:04:05"),
			exp.Amount.StringFixed(2),
			exp.Currency,
			exp.Description,
			exp.Merchant,
			categoryName,
			exp.Emotion,
			boolTagCSV(exp.WasPlanned),
			boolTagCSV(exp.IsNecessity),
			boolTagCSV(exp.IsRecurring),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// boolTagCSV renders an optional behavioral tag; untagged stays empty.
func boolTagCSV(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "yes"
	}
	return "no"
}

// weekRange returns the Monday-based week containing now.
func weekRange(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, now.Location())
	return start, start.Add(7 * 24 * time.Hour)
}

// monthRange returns the calendar month containing now.
func monthRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// periodFilename builds names like "expenses_week_2026-08-24.csv".
func periodFilename(prefix, period, ext string, now time.Time) string {
	switch period {
	case periodWeek:
		start, _ := weekRange(now)
		return fmt.Sprintf("%s_week_%s.%s", prefix, start.Format("2006-01-02"), ext)
	case periodMonth:
		return fmt.Sprintf("%s_month_%s.%s", prefix, now.Format("2006-01"), ext)
	default:
		return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01-02"), ext)
	}
}
