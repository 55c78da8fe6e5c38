package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestDependentRepository_CRUD(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewDependentRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "dependent-crud@example.com")

	dep := &models.Dependent{
		UserID:       userID,
		Name:         "Mom",
		Relationship: "parent",
		MonthlyCost:  decimal.NewFromInt(250),
	}

	t.Run("create", func(t *testing.T) {
		err := repo.Create(ctx, dep)
		require.NoError(t, err)
		require.NotZero(t, dep.ID)
		require.False(t, dep.CreatedAt.IsZero())
	})

	t.Run("list in creation order", func(t *testing.T) {
		err := repo.Create(ctx, &models.Dependent{
			UserID:       userID,
			Name:         "Little Brother",
			Relationship: "sibling",
			MonthlyCost:  decimal.NewFromInt(100),
		})
		require.NoError(t, err)

		deps, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, deps, 2)
		require.Equal(t, "Mom", deps[0].Name)
		require.Equal(t, "Little Brother", deps[1].Name)
	})

	t.Run("update", func(t *testing.T) {
		dep.MonthlyCost = decimal.NewFromInt(300)
		dep.Relationship = "mother"

		err := repo.Update(ctx, dep)
		require.NoError(t, err)

		deps, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(300).Equal(deps[0].MonthlyCost))
		require.Equal(t, "mother", deps[0].Relationship)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.Delete(ctx, dep.ID)
		require.NoError(t, err)

		deps, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, deps, 1)
		require.Equal(t, "Little Brother", deps[0].Name)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		deps, err := repo.GetByUserID(ctx, 99999999)
		require.NoError(t, err)
		require.Empty(t, deps)
	})
}

func TestDependentRepository_UnknownUserRejected(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewDependentRepository(tx)

	err := repo.Create(ctx, &models.Dependent{
		UserID:       99999999,
		Name:         "Orphaned",
		Relationship: "cousin",
		MonthlyCost:  decimal.NewFromInt(50),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create dependent")
}
