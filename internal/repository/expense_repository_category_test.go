package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func createTxUser(t *testing.T, ctx context.Context, userRepo *UserRepository, email string) int64 {
	t.Helper()

	user := &models.User{
		Email:           email,
		PasswordHash:    "$2a$10$notarealhash",
		DisplayName:     "Tx User",
		DefaultCurrency: "USD",
	}
	err := userRepo.Create(ctx, user)
	require.NoError(t, err)
	return user.ID
}

func TestExpenseRepository_GetByUserIDAndCategory(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	repo := NewExpenseRepository(tx)
	catRepo := NewCategoryRepository(tx)
	userRepo := NewUserRepository(tx)
	ctx := context.Background()

	userID := createTxUser(t, ctx, userRepo, "catfilter@example.com")

	category, err := catRepo.Create(ctx, "Filter Target", "🎯", "#111111", false)
	require.NoError(t, err)

	otherCategory, err := catRepo.Create(ctx, "Filter Control", "🧪", "#222222", false)
	require.NoError(t, err)

	for range 5 {
		expense := &models.Expense{
			UserID:      userID,
			Amount:      decimal.NewFromFloat(10.50),
			Currency:    "USD",
			Description: "Target expense",
			CategoryID:  &category.ID,
		}
		err := repo.Create(ctx, expense)
		require.NoError(t, err)
	}

	for range 3 {
		expense := &models.Expense{
			UserID:      userID,
			Amount:      decimal.NewFromFloat(5.00),
			Currency:    "USD",
			Description: "Other expense",
			CategoryID:  &otherCategory.ID,
		}
		err := repo.Create(ctx, expense)
		require.NoError(t, err)
	}

	t.Run("returns only the requested category", func(t *testing.T) {
		expenses, err := repo.GetByUserIDAndCategory(ctx, userID, category.ID, 10)
		require.NoError(t, err)
		require.Len(t, expenses, 5)
		for _, exp := range expenses {
			require.NotNil(t, exp.CategoryID)
			require.Equal(t, category.ID, *exp.CategoryID)
			require.NotNil(t, exp.Category)
			require.Equal(t, "Filter Target", exp.Category.Name)
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		expenses, err := repo.GetByUserIDAndCategory(ctx, userID, category.ID, 2)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
	})

	t.Run("empty for a category without expenses", func(t *testing.T) {
		unused, err := catRepo.Create(ctx, "Filter Unused", "📭", "#333333", false)
		require.NoError(t, err)

		expenses, err := repo.GetByUserIDAndCategory(ctx, userID, unused.ID, 10)
		require.NoError(t, err)
		require.Empty(t, expenses)
	})
}

func TestExpenseRepository_GetTotalByUserIDAndCategory(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	repo := NewExpenseRepository(tx)
	catRepo := NewCategoryRepository(tx)
	userRepo := NewUserRepository(tx)
	ctx := context.Background()

	userID := createTxUser(t, ctx, userRepo, "cattotal@example.com")

	category, err := catRepo.Create(ctx, "Total Target", "🎯", "#111111", false)
	require.NoError(t, err)

	amounts := []float64{12.34, 56.78, 0.88}
	for _, amt := range amounts {
		expense := &models.Expense{
			UserID:      userID,
			Amount:      decimal.NewFromFloat(amt),
			Currency:    "USD",
			Description: "Counted",
			CategoryID:  &category.ID,
		}
		err := repo.Create(ctx, expense)
		require.NoError(t, err)
	}

	uncounted := &models.Expense{
		UserID:      userID,
		Amount:      decimal.NewFromFloat(1000.00),
		Currency:    "USD",
		Description: "Uncategorized",
	}
	err = repo.Create(ctx, uncounted)
	require.NoError(t, err)

	t.Run("sums only that category", func(t *testing.T) {
		total, err := repo.GetTotalByUserIDAndCategory(ctx, userID, category.ID)
		require.NoError(t, err)
		require.True(t, decimal.NewFromFloat(70.00).Equal(total), "got %s", total)
	})

	t.Run("zero for an empty category", func(t *testing.T) {
		empty, err := catRepo.Create(ctx, "Total Empty", "📭", "#222222", false)
		require.NoError(t, err)

		total, err := repo.GetTotalByUserIDAndCategory(ctx, userID, empty.ID)
		require.NoError(t, err)
		require.True(t, total.IsZero())
	})
}

func TestExpenseRepository_CategoryDeletionUncategorizes(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	repo := NewExpenseRepository(tx)
	catRepo := NewCategoryRepository(tx)
	userRepo := NewUserRepository(tx)
	ctx := context.Background()

	userID := createTxUser(t, ctx, userRepo, "catdelete@example.com")

	category, err := catRepo.Create(ctx, "Doomed", "💀", "#000000", false)
	require.NoError(t, err)

	expense := &models.Expense{
		UserID:      userID,
		Amount:      decimal.NewFromFloat(42.00),
		Currency:    "USD",
		Description: "Survivor",
		CategoryID:  &category.ID,
	}
	err = repo.Create(ctx, expense)
	require.NoError(t, err)

	err = catRepo.Delete(ctx, category.ID)
	require.NoError(t, err)

	// The expense survives with its category nulled out.
	retrieved, err := repo.GetByID(ctx, expense.ID)
	require.NoError(t, err)
	require.Nil(t, retrieved.CategoryID)
	require.Equal(t, "Survivor", retrieved.Description)
}
