package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSessionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "sessions@example.com")

	t.Run("round trips a session", func(t *testing.T) {
		expires := time.Now().Add(30 * 24 * time.Hour)
		session := &models.Session{
			Token:     "tok-abc123",
			UserID:    userID,
			ExpiresAt: expires,
		}

		err := repo.Create(ctx, session)
		require.NoError(t, err)
		require.False(t, session.CreatedAt.IsZero())

		fetched, err := repo.GetByToken(ctx, "tok-abc123")
		require.NoError(t, err)
		require.Equal(t, userID, fetched.UserID)
		require.WithinDuration(t, expires, fetched.ExpiresAt, time.Second)
	})

	t.Run("returns expired sessions too", func(t *testing.T) {
		session := &models.Session{
			Token:     "tok-expired",
			UserID:    userID,
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		err := repo.Create(ctx, session)
		require.NoError(t, err)

		fetched, err := repo.GetByToken(ctx, "tok-expired")
		require.NoError(t, err)
		require.True(t, fetched.Expired(time.Now()))
	})

	t.Run("unknown token errors", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "tok-missing")
		require.Error(t, err)
	})

	t.Run("duplicate token errors", func(t *testing.T) {
		session := &models.Session{
			Token:     "tok-abc123",
			UserID:    userID,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		err := repo.Create(ctx, session)
		require.Error(t, err)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSessionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "session-delete@example.com")

	session := &models.Session{
		Token:     "tok-to-delete",
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	t.Run("deletes by token", func(t *testing.T) {
		err := repo.Delete(ctx, "tok-to-delete")
		require.NoError(t, err)

		_, err = repo.GetByToken(ctx, "tok-to-delete")
		require.Error(t, err)
	})

	t.Run("deleting an unknown token is silent", func(t *testing.T) {
		err := repo.Delete(ctx, "tok-never-existed")
		require.NoError(t, err)
	})
}

func TestSessionRepository_Refresh(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSessionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "session-refresh@example.com")

	session := &models.Session{
		Token:     "tok-refresh",
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	extended := time.Now().Add(72 * time.Hour)
	err := repo.Refresh(ctx, "tok-refresh", extended)
	require.NoError(t, err)

	fetched, err := repo.GetByToken(ctx, "tok-refresh")
	require.NoError(t, err)
	require.WithinDuration(t, extended, fetched.ExpiresAt, time.Second)

	t.Run("refreshing an unknown token is silent", func(t *testing.T) {
		err := repo.Refresh(ctx, "tok-never-existed", extended)
		require.NoError(t, err)
	})
}

func TestSessionRepository_DeleteByUserID(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSessionRepository(tx)
	userRepo := NewUserRepository(tx)

	aliceID := createTxUser(t, ctx, userRepo, "alice-sessions@example.com")
	bobID := createTxUser(t, ctx, userRepo, "bob-sessions@example.com")

	for _, token := range []string{"alice-1", "alice-2"} {
		require.NoError(t, repo.Create(ctx, &models.Session{
			Token:     token,
			UserID:    aliceID,
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Session{
		Token:     "bob-1",
		UserID:    bobID,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	err := repo.DeleteByUserID(ctx, aliceID)
	require.NoError(t, err)

	_, err = repo.GetByToken(ctx, "alice-1")
	require.Error(t, err)
	_, err = repo.GetByToken(ctx, "alice-2")
	require.Error(t, err)

	// Bob's session is untouched.
	_, err = repo.GetByToken(ctx, "bob-1")
	require.NoError(t, err)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSessionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "session-expiry@example.com")

	require.NoError(t, repo.Create(ctx, &models.Session{
		Token:     "tok-stale",
		UserID:    userID,
		ExpiresAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.Create(ctx, &models.Session{
		Token:     "tok-fresh",
		UserID:    userID,
		ExpiresAt: time.Now().Add(48 * time.Hour),
	}))

	count, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = repo.GetByToken(ctx, "tok-stale")
	require.Error(t, err)

	fetched, err := repo.GetByToken(ctx, "tok-fresh")
	require.NoError(t, err)
	require.Equal(t, "tok-fresh", fetched.Token)

	// A second sweep finds nothing.
	count, err = repo.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
