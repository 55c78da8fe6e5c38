package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSession_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("not expired before expiry", func(t *testing.T) {
		t.Parallel()
		s := Session{Token: "tok", ExpiresAt: now.Add(time.Hour)}
		require.False(t, s.Expired(now))
	})

	t.Run("expired after expiry", func(t *testing.T) {
		t.Parallel()
		s := Session{Token: "tok", ExpiresAt: now.Add(-time.Minute)}
		require.True(t, s.Expired(now))
	})

	t.Run("exact expiry instant is still valid", func(t *testing.T) {
		t.Parallel()
		s := Session{Token: "tok", ExpiresAt: now}
		require.False(t, s.Expired(now))
	})
}

func TestValidEmotion(t *testing.T) {
	t.Parallel()

	t.Run("accepts every listed emotion", func(t *testing.T) {
		t.Parallel()
		for _, e := range Emotions {
			require.True(t, ValidEmotion(e), "emotion %q should be valid", e)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()
		require.True(t, ValidEmotion("Stressed"))
		require.True(t, ValidEmotion("HAPPY"))
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		t.Parallel()
		require.False(t, ValidEmotion("hangry"))
		require.False(t, ValidEmotion(""))
	})
}

func TestBudgetAllocation_Remaining(t *testing.T) {
	t.Parallel()

	t.Run("positive remaining", func(t *testing.T) {
		t.Parallel()
		a := BudgetAllocation{
			AllocatedAmount: decimal.NewFromInt(500),
			SpentAmount:     decimal.NewFromInt(320),
		}
		require.True(t, decimal.NewFromInt(180).Equal(a.Remaining()))
	})

	t.Run("negative remaining signals overspend", func(t *testing.T) {
		t.Parallel()
		a := BudgetAllocation{
			AllocatedAmount: decimal.NewFromInt(100),
			SpentAmount:     decimal.NewFromFloat(125.75),
		}
		require.True(t, decimal.NewFromFloat(-25.75).Equal(a.Remaining()))
	})
}

func TestGoal_Remaining(t *testing.T) {
	t.Parallel()

	g := Goal{
		TargetAmount:  decimal.NewFromInt(5000),
		CurrentAmount: decimal.NewFromInt(2250),
	}
	require.True(t, decimal.NewFromInt(2750).Equal(g.Remaining()))
}

func TestValidGoalStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{GoalStatusActive, GoalStatusPaused, GoalStatusCompleted, GoalStatusCancelled} {
		require.True(t, ValidGoalStatus(s), "status %q should be valid", s)
	}
	require.False(t, ValidGoalStatus("archived"))
	require.False(t, ValidGoalStatus(""))
}

func TestIncomeSource_MonthlyAmount(t *testing.T) {
	t.Parallel()

	t.Run("monthly passes through", func(t *testing.T) {
		t.Parallel()
		src := IncomeSource{Amount: decimal.NewFromInt(4200), Frequency: FrequencyMonthly}
		require.True(t, decimal.NewFromInt(4200).Equal(src.MonthlyAmount()))
	})

	t.Run("weekly scales by 52/12", func(t *testing.T) {
		t.Parallel()
		src := IncomeSource{Amount: decimal.NewFromInt(300), Frequency: FrequencyWeekly}
		require.Equal(t, "1300.00", src.MonthlyAmount().StringFixed(2))
	})

	t.Run("yearly divides by 12", func(t *testing.T) {
		t.Parallel()
		src := IncomeSource{Amount: decimal.NewFromInt(60000), Frequency: FrequencyYearly}
		require.True(t, decimal.NewFromInt(5000).Equal(src.MonthlyAmount()))
	})

	t.Run("one-time contributes nothing monthly", func(t *testing.T) {
		t.Parallel()
		src := IncomeSource{Amount: decimal.NewFromInt(900), Frequency: FrequencyOneTime}
		require.True(t, src.MonthlyAmount().IsZero())
	})
}
