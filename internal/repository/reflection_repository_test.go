package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestReflectionRepository_Upsert(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewReflectionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "reflect-upsert@example.com")

	first := &models.Reflection{
		UserID:     userID,
		Year:       2026,
		Month:      3,
		WentWell:   "Stayed under the grocery budget",
		ToImprove:  "Too many late night deliveries",
		TopEmotion: "stressed",
	}
	err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	t.Run("same month replaces answers", func(t *testing.T) {
		second := &models.Reflection{
			UserID:     userID,
			Year:       2026,
			Month:      3,
			WentWell:   "Cancelled two unused subscriptions",
			ToImprove:  "Impulse buys on payday",
			TopEmotion: "hopeful",
		}
		err := repo.Upsert(ctx, second)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)

		fetched, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3)
		require.NoError(t, err)
		require.Equal(t, "Cancelled two unused subscriptions", fetched.WentWell)
		require.Equal(t, "Impulse buys on payday", fetched.ToImprove)
		require.Equal(t, "hopeful", fetched.TopEmotion)
	})

	t.Run("different month is a new row", func(t *testing.T) {
		april := &models.Reflection{
			UserID:     userID,
			Year:       2026,
			Month:      4,
			WentWell:   "Hit the savings target",
			TopEmotion: "proud",
		}
		err := repo.Upsert(ctx, april)
		require.NoError(t, err)
		require.NotEqual(t, first.ID, april.ID)
	})

	t.Run("missing month errors", func(t *testing.T) {
		_, err := repo.GetByUserAndMonth(ctx, userID, 2025, 12)
		require.Error(t, err)
	})
}

func TestReflectionRepository_GetRecent(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewReflectionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "reflect-recent@example.com")

	seed := func(year, month int, emotion string) {
		t.Helper()
		err := repo.Upsert(ctx, &models.Reflection{
			UserID:     userID,
			Year:       year,
			Month:      month,
			WentWell:   "ok",
			TopEmotion: emotion,
		})
		require.NoError(t, err)
	}

	// 2025-12 must sort as older than 2026-01.
	seed(2025, 11, "tired")
	seed(2025, 12, "festive")
	seed(2026, 1, "determined")
	seed(2026, 2, "calm")

	t.Run("newest months first", func(t *testing.T) {
		recent, err := repo.GetRecent(ctx, userID, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		require.Equal(t, 2026, recent[0].Year)
		require.Equal(t, 2, recent[0].Month)
		require.Equal(t, 2026, recent[1].Year)
		require.Equal(t, 1, recent[1].Month)
		require.Equal(t, 2025, recent[2].Year)
		require.Equal(t, 12, recent[2].Month)
	})

	t.Run("limit larger than history", func(t *testing.T) {
		recent, err := repo.GetRecent(ctx, userID, 50)
		require.NoError(t, err)
		require.Len(t, recent, 4)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		recent, err := repo.GetRecent(ctx, 99999999, 5)
		require.NoError(t, err)
		require.Empty(t, recent)
	})
}

func TestReflectionRepository_SetInsight(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewReflectionRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "reflect-insight@example.com")

	refl := &models.Reflection{
		UserID:     userID,
		Year:       2026,
		Month:      3,
		WentWell:   "Cooked at home most nights",
		TopEmotion: "content",
	}
	require.NoError(t, repo.Upsert(ctx, refl))
	require.Empty(t, refl.Insight)

	err := repo.SetInsight(ctx, refl.ID, "Most stress spending clusters on Sunday evenings.")
	require.NoError(t, err)

	fetched, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3)
	require.NoError(t, err)
	require.Equal(t, "Most stress spending clusters on Sunday evenings.", fetched.Insight)

	t.Run("upsert without insight keeps it out", func(t *testing.T) {
		err := repo.Upsert(ctx, &models.Reflection{
			UserID:     userID,
			Year:       2026,
			Month:      3,
			WentWell:   "Edited later",
			TopEmotion: "content",
		})
		require.NoError(t, err)

		fetched, err := repo.GetByUserAndMonth(ctx, userID, 2026, 3)
		require.NoError(t, err)
		require.Empty(t, fetched.Insight)
	})
}
