package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestBudgetRepository_GetOrCreate(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBudgetRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "budget-create@example.com")

	t.Run("creates an empty budget on first access", func(t *testing.T) {
		budget, err := repo.GetOrCreate(ctx, userID, 2026, 3)
		require.NoError(t, err)
		require.NotZero(t, budget.ID)
		require.True(t, budget.TotalIncome.IsZero())
		require.True(t, budget.SavingsTarget.IsZero())
	})

	t.Run("returns the same row on repeat access", func(t *testing.T) {
		first, err := repo.GetOrCreate(ctx, userID, 2026, 3)
		require.NoError(t, err)

		second, err := repo.GetOrCreate(ctx, userID, 2026, 3)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("months are separate budgets", func(t *testing.T) {
		march, err := repo.GetOrCreate(ctx, userID, 2026, 3)
		require.NoError(t, err)

		april, err := repo.GetOrCreate(ctx, userID, 2026, 4)
		require.NoError(t, err)
		require.NotEqual(t, march.ID, april.ID)
	})
}

func TestBudgetRepository_UpdateFinancials(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBudgetRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "budget-financials@example.com")

	budget, err := repo.GetOrCreate(ctx, userID, 2026, 3)
	require.NoError(t, err)

	budget.TotalIncome = decimal.NewFromInt(5000)
	budget.SavingsTarget = decimal.NewFromInt(1000)
	budget.SavingsActual = decimal.NewFromFloat(850.50)
	budget.EmergencyBuffer = decimal.NewFromInt(300)

	err = repo.UpdateFinancials(ctx, budget)
	require.NoError(t, err)

	reloaded, err := repo.GetOrCreate(ctx, userID, 2026, 3)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(5000).Equal(reloaded.TotalIncome))
	require.True(t, decimal.NewFromInt(1000).Equal(reloaded.SavingsTarget))
	require.True(t, decimal.NewFromFloat(850.50).Equal(reloaded.SavingsActual))
	require.True(t, decimal.NewFromInt(300).Equal(reloaded.EmergencyBuffer))
}

func TestBudgetRepository_Allocations(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBudgetRepository(tx)
	userRepo := NewUserRepository(tx)
	catRepo := NewCategoryRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "budget-allocs@example.com")

	budget, err := repo.GetOrCreate(ctx, userID, 2026, 3)
	require.NoError(t, err)

	groceries, err := catRepo.Create(ctx, "Alloc Groceries", "🛒", "#66BB6A", true)
	require.NoError(t, err)
	dining, err := catRepo.Create(ctx, "Alloc Dining", "🍜", "#FF7043", false)
	require.NoError(t, err)

	now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

	t.Run("set and replace", func(t *testing.T) {
		err := repo.SetAllocation(ctx, budget.ID, groceries.ID, decimal.NewFromInt(400))
		require.NoError(t, err)

		// Upsert replaces the amount.
		err = repo.SetAllocation(ctx, budget.ID, groceries.ID, decimal.NewFromInt(450))
		require.NoError(t, err)

		composed, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3, now)
		require.NoError(t, err)
		require.Len(t, composed.Allocations, 1)
		require.True(t, decimal.NewFromInt(450).Equal(composed.Allocations[0].AllocatedAmount))
	})

	t.Run("remove one", func(t *testing.T) {
		err := repo.SetAllocation(ctx, budget.ID, dining.ID, decimal.NewFromInt(200))
		require.NoError(t, err)

		err = repo.RemoveAllocation(ctx, budget.ID, dining.ID)
		require.NoError(t, err)

		composed, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3, now)
		require.NoError(t, err)
		require.Len(t, composed.Allocations, 1)
		require.Equal(t, "Alloc Groceries", composed.Allocations[0].CategoryName)
	})

	t.Run("clear everything", func(t *testing.T) {
		err := repo.ClearAllocations(ctx, budget.ID)
		require.NoError(t, err)

		composed, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3, now)
		require.NoError(t, err)
		require.Empty(t, composed.Allocations)
		require.True(t, composed.TotalAllocated.IsZero())
	})
}

func TestBudgetRepository_GetByUserAndMonth(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBudgetRepository(tx)
	userRepo := NewUserRepository(tx)
	catRepo := NewCategoryRepository(tx)
	expenseRepo := NewExpenseRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "budget-compose@example.com")

	t.Run("errors when the month has no budget", func(t *testing.T) {
		_, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3,
			time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC))
		require.Error(t, err)
	})

	budget, err := repo.GetOrCreate(ctx, userID, 2026, 3)
	require.NoError(t, err)

	groceries, err := catRepo.Create(ctx, "Compose Groceries", "🛒", "#66BB6A", true)
	require.NoError(t, err)
	dining, err := catRepo.Create(ctx, "Compose Dining", "🍜", "#FF7043", false)
	require.NoError(t, err)

	require.NoError(t, repo.SetAllocation(ctx, budget.ID, groceries.ID, decimal.NewFromInt(500)))
	require.NoError(t, repo.SetAllocation(ctx, budget.ID, dining.ID, decimal.NewFromInt(250)))

	spend := func(amount float64, categoryID *int, spentAt time.Time) {
		t.Helper()
		expense := &models.Expense{
			UserID:      userID,
			Amount:      decimal.NewFromFloat(amount),
			Currency:    "USD",
			Description: "Budgeted",
			CategoryID:  categoryID,
			SpentAt:     spentAt,
		}
		require.NoError(t, expenseRepo.Create(ctx, expense))
	}

	march := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	spend(120.00, &groceries.ID, march)
	spend(80.00, &groceries.ID, march.Add(3*24*time.Hour))
	spend(60.00, &dining.ID, march)
	spend(45.00, nil, march)
	// Out-of-month spending must not leak in.
	spend(999.00, &groceries.ID, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	now := time.Date(2026, 3, 18, 15, 4, 5, 0, time.UTC)

	composed, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3, now)
	require.NoError(t, err)

	t.Run("allocations come with category detail, essentials first", func(t *testing.T) {
		require.Len(t, composed.Allocations, 2)

		first := composed.Allocations[0]
		require.Equal(t, "Compose Groceries", first.CategoryName)
		require.Equal(t, "🛒", first.Icon)
		require.True(t, first.IsEssential)
		require.True(t, decimal.NewFromInt(500).Equal(first.AllocatedAmount))
		require.True(t, decimal.NewFromInt(200).Equal(first.SpentAmount))
		require.True(t, decimal.NewFromInt(300).Equal(first.Remaining()))

		second := composed.Allocations[1]
		require.Equal(t, "Compose Dining", second.CategoryName)
		require.True(t, decimal.NewFromInt(60).Equal(second.SpentAmount))
	})

	t.Run("totals cover the whole month", func(t *testing.T) {
		require.True(t, decimal.NewFromInt(750).Equal(composed.TotalAllocated))
		// Includes the uncategorized 45 but not April's 999.
		require.True(t, decimal.NewFromInt(305).Equal(composed.TotalSpent), "got %s", composed.TotalSpent)
	})

	t.Run("day counts follow the reference time", func(t *testing.T) {
		require.Equal(t, 18, composed.DaysElapsed)
		require.Equal(t, 13, composed.DaysRemaining)
		require.Equal(t, 31, composed.TotalDays)
	})

	t.Run("composition does not write back", func(t *testing.T) {
		again, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3, now)
		require.NoError(t, err)
		require.Equal(t, composed.ID, again.ID)
		require.True(t, composed.TotalSpent.Equal(again.TotalSpent))
	})
}
