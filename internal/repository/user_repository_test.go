package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestUserRepository_Create(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	t.Run("creates new account", func(t *testing.T) {
		user := &models.User{
			Email:           "alice@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DisplayName:     "Alice",
			DefaultCurrency: "USD",
		}

		err := repo.Create(ctx, user)
		require.NoError(t, err)
		require.NotZero(t, user.ID)
		require.False(t, user.CreatedAt.IsZero())

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", fetched.Email)
		require.Equal(t, "Alice", fetched.DisplayName)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		user := &models.User{
			Email:           "alice@example.com",
			PasswordHash:    "$2a$10$otherhash",
			DisplayName:     "Impostor",
			DefaultCurrency: "USD",
		}

		err := repo.Create(ctx, user)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create user")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	user := &models.User{
		Email:           "Bob@Example.com",
		PasswordHash:    "$2a$10$notarealhash",
		DisplayName:     "Bob",
		DefaultCurrency: "EUR",
	}
	err := repo.Create(ctx, user)
	require.NoError(t, err)

	t.Run("finds account regardless of case", func(t *testing.T) {
		fetched, err := repo.GetByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, fetched.ID)
		require.Equal(t, "EUR", fetched.DefaultCurrency)
	})

	t.Run("preserves the stored spelling", func(t *testing.T) {
		fetched, err := repo.GetByEmail(ctx, "BOB@EXAMPLE.COM")
		require.NoError(t, err)
		require.Equal(t, "Bob@Example.com", fetched.Email)
	})

	t.Run("returns error for unknown email", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	t.Run("returns error for non-existent user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		require.Error(t, err)
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	user := &models.User{
		Email:           "carol@example.com",
		PasswordHash:    "$2a$10$notarealhash",
		DisplayName:     "Carol",
		DefaultCurrency: "USD",
	}
	err := repo.Create(ctx, user)
	require.NoError(t, err)

	t.Run("updates name and currency", func(t *testing.T) {
		err := repo.UpdateProfile(ctx, user.ID, "Caroline", "SGD")
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "Caroline", fetched.DisplayName)
		require.Equal(t, "SGD", fetched.DefaultCurrency)
	})

	t.Run("succeeds silently for non-existent user", func(t *testing.T) {
		err := repo.UpdateProfile(ctx, 99999, "Ghost", "GBP")
		require.NoError(t, err)
	})
}

func TestUserRepository_UpdateDefaultCurrency(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	user := &models.User{
		Email:           "currency@example.com",
		PasswordHash:    "$2a$10$notarealhash",
		DisplayName:     "Currency User",
		DefaultCurrency: "USD",
	}
	err := repo.Create(ctx, user)
	require.NoError(t, err)

	t.Run("updates currency successfully", func(t *testing.T) {
		err := repo.UpdateDefaultCurrency(ctx, user.ID, "EUR")
		require.NoError(t, err)

		currency, err := repo.GetDefaultCurrency(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "EUR", currency)
	})

	t.Run("keeps other fields", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "Currency User", fetched.DisplayName)
	})

	t.Run("succeeds silently for non-existent user", func(t *testing.T) {
		err := repo.UpdateDefaultCurrency(ctx, 99999, "GBP")
		require.NoError(t, err)
	})
}

func TestUserRepository_GetDefaultCurrency(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	t.Run("returns USD for new account", func(t *testing.T) {
		user := &models.User{
			Email:           "newuser@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DisplayName:     "New User",
			DefaultCurrency: "USD",
		}
		err := repo.Create(ctx, user)
		require.NoError(t, err)

		currency, err := repo.GetDefaultCurrency(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "USD", currency)
	})

	t.Run("returns error for non-existent user", func(t *testing.T) {
		_, err := repo.GetDefaultCurrency(ctx, 99999)
		require.Error(t, err)
	})
}
