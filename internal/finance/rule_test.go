package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/dafibh/fortuna/internal/models"
)

func ruleBudget(needs, wants, savings float64) *models.Budget {
	return &models.Budget{
		SavingsActual: decimal.NewFromFloat(savings),
		Allocations: []models.BudgetAllocation{
			{CategoryName: "Rent", IsEssential: true, SpentAmount: decimal.NewFromFloat(needs)},
			{CategoryName: "Dining Out", IsEssential: false, SpentAmount: decimal.NewFromFloat(wants)},
		},
	}
}

func TestAnalyzeBudgetRule(t *testing.T) {
	t.Parallel()

	t.Run("ideal split passes every target", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(ruleBudget(500, 300, 200))

		require.Equal(t, "50.00", got.NeedsPercent.StringFixed(2))
		require.Equal(t, "30.00", got.WantsPercent.StringFixed(2))
		require.Equal(t, "20.00", got.SavingsPercent.StringFixed(2))
		require.True(t, got.NeedsOnTarget)
		require.True(t, got.WantsOnTarget)
		require.True(t, got.SavingsOnTarget)
	})

	t.Run("heavy needs and thin savings fail their targets", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(ruleBudget(700, 200, 100))

		require.Equal(t, "70.00", got.NeedsPercent.StringFixed(2))
		require.False(t, got.NeedsOnTarget)
		require.True(t, got.WantsOnTarget)
		require.False(t, got.SavingsOnTarget)
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(ruleBudget(55, 27, 18))

		require.Equal(t, "55.00", got.NeedsPercent.StringFixed(2))
		require.Equal(t, "18.00", got.SavingsPercent.StringFixed(2))
		require.True(t, got.NeedsOnTarget, "needs at exactly 55 percent passes")
		require.True(t, got.SavingsOnTarget, "savings at exactly 18 percent passes")
	})

	t.Run("just past the boundary fails", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(ruleBudget(55.1, 26.91, 17.99))

		require.False(t, got.NeedsOnTarget)
		require.False(t, got.SavingsOnTarget)
	})

	t.Run("zero activity yields zero percents", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(ruleBudget(0, 0, 0))

		require.True(t, got.NeedsPercent.IsZero())
		require.True(t, got.WantsPercent.IsZero())
		require.True(t, got.SavingsPercent.IsZero())
	})

	t.Run("allocations sum per bucket", func(t *testing.T) {
		t.Parallel()
		budget := &models.Budget{
			SavingsActual: decimal.NewFromInt(150),
			Allocations: []models.BudgetAllocation{
				{CategoryName: "Rent", IsEssential: true, SpentAmount: decimal.NewFromInt(400)},
				{CategoryName: "Groceries", IsEssential: true, SpentAmount: decimal.NewFromInt(250)},
				{CategoryName: "Dining Out", IsEssential: false, SpentAmount: decimal.NewFromInt(120)},
				{CategoryName: "Hobbies", IsEssential: false, SpentAmount: decimal.NewFromInt(80)},
			},
		}

		got := AnalyzeBudgetRule(budget)
		require.Equal(t, "650.00", got.NeedsAmount.StringFixed(2))
		require.Equal(t, "200.00", got.WantsAmount.StringFixed(2))
		require.Equal(t, "150.00", got.SavingsAmount.StringFixed(2))
	})

	t.Run("nil allocations treated as empty", func(t *testing.T) {
		t.Parallel()
		got := AnalyzeBudgetRule(&models.Budget{SavingsActual: decimal.NewFromInt(50)})

		require.Equal(t, "100.00", got.SavingsPercent.StringFixed(2))
		require.True(t, got.NeedsPercent.IsZero())
	})
}

func TestAnalyzeBudgetRule_PercentsSumToWhole(t *testing.T) {
	t.Parallel()

	tolerance := decimal.New(1, -9)

	rapid.Check(t, func(t *rapid.T) {
		needs := rapid.Int64Range(0, 500_000).Draw(t, "needsCents")
		wants := rapid.Int64Range(0, 500_000).Draw(t, "wantsCents")
		savings := rapid.Int64Range(0, 500_000).Draw(t, "savingsCents")

		budget := &models.Budget{
			SavingsActual: decimal.NewFromInt(savings).Div(decimal.NewFromInt(100)),
			Allocations: []models.BudgetAllocation{
				{IsEssential: true, SpentAmount: decimal.NewFromInt(needs).Div(decimal.NewFromInt(100))},
				{IsEssential: false, SpentAmount: decimal.NewFromInt(wants).Div(decimal.NewFromInt(100))},
			},
		}

		got := AnalyzeBudgetRule(budget)
		sum := got.NeedsPercent.Add(got.WantsPercent).Add(got.SavingsPercent)

		if needs+wants+savings == 0 {
			require.True(t, sum.IsZero(), "empty month must report zero, got %s", sum)
			return
		}
		diff := sum.Sub(decimal.NewFromInt(100)).Abs()
		require.True(t, diff.LessThanOrEqual(tolerance),
			"percents sum to %s for %d/%d/%d", sum, needs, wants, savings)
	})
}
