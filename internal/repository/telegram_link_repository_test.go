package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestTelegramLinkRepository_Save(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewTelegramLinkRepository(tx)
	userRepo := NewUserRepository(tx)

	aliceID := createTxUser(t, ctx, userRepo, "alice-link@example.com")
	bobID := createTxUser(t, ctx, userRepo, "bob-link@example.com")

	t.Run("creates a link", func(t *testing.T) {
		link := &models.TelegramLink{
			TelegramUserID: 700001,
			ChatID:         800001,
			UserID:         aliceID,
		}

		err := repo.Save(ctx, link)
		require.NoError(t, err)
		require.False(t, link.CreatedAt.IsZero())

		fetched, err := repo.GetByTelegramUserID(ctx, 700001)
		require.NoError(t, err)
		require.Equal(t, aliceID, fetched.UserID)
		require.EqualValues(t, 800001, fetched.ChatID)
	})

	t.Run("re-linking replaces the account", func(t *testing.T) {
		link := &models.TelegramLink{
			TelegramUserID: 700001,
			ChatID:         800002,
			UserID:         bobID,
		}

		err := repo.Save(ctx, link)
		require.NoError(t, err)

		fetched, err := repo.GetByTelegramUserID(ctx, 700001)
		require.NoError(t, err)
		require.Equal(t, bobID, fetched.UserID)
		require.EqualValues(t, 800002, fetched.ChatID)
	})

	t.Run("unknown telegram user errors", func(t *testing.T) {
		_, err := repo.GetByTelegramUserID(ctx, 999999)
		require.Error(t, err)
	})
}

func TestTelegramLinkRepository_All(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewTelegramLinkRepository(tx)
	userRepo := NewUserRepository(tx)

	t.Run("empty when nothing is linked", func(t *testing.T) {
		links, err := repo.All(ctx)
		require.NoError(t, err)
		require.Empty(t, links)
	})

	t.Run("returns every link", func(t *testing.T) {
		aliceID := createTxUser(t, ctx, userRepo, "alice-all@example.com")
		bobID := createTxUser(t, ctx, userRepo, "bob-all@example.com")

		require.NoError(t, repo.Save(ctx, &models.TelegramLink{
			TelegramUserID: 710001, ChatID: 810001, UserID: aliceID,
		}))
		require.NoError(t, repo.Save(ctx, &models.TelegramLink{
			TelegramUserID: 710002, ChatID: 810002, UserID: bobID,
		}))

		links, err := repo.All(ctx)
		require.NoError(t, err)
		require.Len(t, links, 2)

		ids := []int64{links[0].TelegramUserID, links[1].TelegramUserID}
		require.Contains(t, ids, int64(710001))
		require.Contains(t, ids, int64(710002))
	})
}

func TestTelegramLinkRepository_Delete(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewTelegramLinkRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "unlink@example.com")

	require.NoError(t, repo.Save(ctx, &models.TelegramLink{
		TelegramUserID: 720001, ChatID: 820001, UserID: userID,
	}))

	t.Run("removes the link", func(t *testing.T) {
		err := repo.Delete(ctx, 720001)
		require.NoError(t, err)

		_, err = repo.GetByTelegramUserID(ctx, 720001)
		require.Error(t, err)
	})

	t.Run("deleting an unknown link is silent", func(t *testing.T) {
		err := repo.Delete(ctx, 720001)
		require.NoError(t, err)
	})
}
