package bot

import (
	"fmt"
	"sort"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"

	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// GenerateExpenseChart renders a pie chart of spending by category as
// PNG bytes. Slices are ordered largest first so the legend is stable.
func GenerateExpenseChart(expenses []appmodels.Expense, title string) ([]byte, error) {
	if len(expenses) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	totals := aggregateByCategory(expenses)

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		cmp := totals[names[i]].Cmp(totals[names[j]])
		if cmp != 0 {
			return cmp > 0
		}
		return names[i] < names[j]
	})

	values := make([]float64, 0, len(names))
	for _, name := range names {
		values = append(values, totals[name].InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// aggregateByCategory sums expense amounts per category name.
func aggregateByCategory(expenses []appmodels.Expense) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range expenses {
		name := "Uncategorized"
		if expenses[i].Category != nil {
			name = expenses[i].Category.Name
		}
		totals[name] = totals[name].Add(expenses[i].Amount)
	}
	return totals
}
