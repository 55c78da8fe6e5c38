package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/auth"
	"gitlab.com/dafibh/fortuna/internal/config"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/finance"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
	"gitlab.com/dafibh/fortuna/internal/repository"
)

// TestDB is a convenience wrapper around database.TestDB for bot tests.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := database.TestDB(t)

	ctx := context.Background()
	if err := database.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := database.SeedCategories(ctx, pool); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}

	t.Cleanup(func() {
		database.CleanupTables(t, pool)
	})

	return pool
}

// setupTestBot creates a Bot wired to the test database. No Telegram
// connection, no Gemini, no metrics.
//
//nolint:unused // Used in test files
func setupTestBot(t *testing.T, pool *pgxpool.Pool) *Bot {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken: "test-token",
		DatabaseURL:      "test-url",
		SessionTTL:       time.Hour,
		ReminderHour:     9,
		ReminderTimezone: "UTC",
		DraftTTL:         24 * time.Hour,
	}

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	return &Bot{
		cfg:             cfg,
		authService:     auth.NewService(userRepo, sessionRepo, cfg.SessionTTL),
		userRepo:        userRepo,
		linkRepo:        repository.NewTelegramLinkRepository(pool),
		categoryRepo:    repository.NewCategoryRepository(pool),
		expenseRepo:     repository.NewExpenseRepository(pool),
		budgetRepo:      repository.NewBudgetRepository(pool),
		goalRepo:        repository.NewGoalRepository(pool),
		billRepo:        repository.NewBillRepository(pool),
		incomeRepo:      repository.NewIncomeRepository(pool),
		dependentRepo:   repository.NewDependentRepository(pool),
		reflectionRepo:  repository.NewReflectionRepository(pool),
		displayLocation: time.UTC,
		sessions:        make(map[int64]string),
		pending:         make(map[int64]*pendingInput),
		filters:         make(map[int64]finance.FilterState),
	}
}

// signUpAndLink creates an account and binds it to a Telegram user so
// handlers resolve it, mirroring /signup followed by the saved link.
//
//nolint:unused // Used in test files
func signUpAndLink(t *testing.T, b *Bot, telegramUserID, chatID int64) *appmodels.User {
	t.Helper()

	ctx := context.Background()
	email := fmt.Sprintf("user%d@example.com", telegramUserID)
	user, session, err := b.authService.SignUp(ctx, email, "correct-horse", "Test User")
	if err != nil {
		t.Fatalf("failed to sign up test user: %v", err)
	}
	if err := b.linkAccount(ctx, telegramUserID, chatID, session); err != nil {
		t.Fatalf("failed to link test user: %v", err)
	}
	return user
}

// mustParseDecimal parses a decimal string or panics (for test data).
//
//nolint:unused // Used in test files
func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid decimal in test: " + s)
	}
	return d
}
