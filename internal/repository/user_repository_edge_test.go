package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// TestUserRepository_CreateEdgeCases tests edge cases for account creation.
func TestUserRepository_CreateEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("create with very long display name", func(t *testing.T) {
		tx := database.TestTx(t)
		repo := NewUserRepository(tx)

		longName := strings.Repeat("x", 500)
		user := &models.User{
			Email:           "longname@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DisplayName:     longName,
			DefaultCurrency: "USD",
		}

		err := repo.Create(ctx, user)
		require.NoError(t, err)

		retrieved, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, longName, retrieved.DisplayName)
	})

	t.Run("create with unicode display name", func(t *testing.T) {
		tx := database.TestTx(t)
		repo := NewUserRepository(tx)

		user := &models.User{
			Email:           "unicode@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DisplayName:     "José García 李明 🎉",
			DefaultCurrency: "USD",
		}

		err := repo.Create(ctx, user)
		require.NoError(t, err)

		retrieved, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "José García 李明 🎉", retrieved.DisplayName)
	})

	t.Run("create with empty display name", func(t *testing.T) {
		tx := database.TestTx(t)
		repo := NewUserRepository(tx)

		user := &models.User{
			Email:           "anon@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DefaultCurrency: "USD",
		}

		err := repo.Create(ctx, user)
		require.NoError(t, err)
		require.NotZero(t, user.ID)
	})

	t.Run("rejects case-variant duplicate email", func(t *testing.T) {
		tx := database.TestTx(t)
		repo := NewUserRepository(tx)

		first := &models.User{
			Email:           "casing@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DefaultCurrency: "USD",
		}
		err := repo.Create(ctx, first)
		require.NoError(t, err)

		// The functional index on LOWER(email) makes the address one
		// identity regardless of how it is typed.
		second := &models.User{
			Email:           "CASING@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DefaultCurrency: "USD",
		}
		err = repo.Create(ctx, second)
		require.Error(t, err)
	})

	t.Run("plus addressing stays distinct", func(t *testing.T) {
		tx := database.TestTx(t)
		repo := NewUserRepository(tx)

		base := &models.User{
			Email:           "dana@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DefaultCurrency: "USD",
		}
		require.NoError(t, repo.Create(ctx, base))

		tagged := &models.User{
			Email:           "dana+fortuna@example.com",
			PasswordHash:    "$2a$10$notarealhash",
			DefaultCurrency: "USD",
		}
		require.NoError(t, repo.Create(ctx, tagged))
		require.NotEqual(t, base.ID, tagged.ID)
	})
}

// TestUserRepository_SequentialIDs verifies account IDs are assigned by
// the database.
func TestUserRepository_SequentialIDs(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewUserRepository(tx)

	first := &models.User{
		Email:           "seq1@example.com",
		PasswordHash:    "$2a$10$notarealhash",
		DefaultCurrency: "USD",
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.User{
		Email:           "seq2@example.com",
		PasswordHash:    "$2a$10$notarealhash",
		DefaultCurrency: "USD",
	}
	require.NoError(t, repo.Create(ctx, second))

	require.Greater(t, second.ID, first.ID)
}
