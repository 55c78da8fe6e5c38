package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/dafibh/fortuna/internal/bot/mocks"
)

func TestHandleBudgetCore(t *testing.T) {
	pool := TestDB(t)
	b := setupTestBot(t, pool)
	ctx := context.Background()

	user := signUpAndLink(t, b, 800, 800)

	t.Run("requires sign-in", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(801, 801, "/budget"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "not signed in")
	})

	t.Run("empty budget suggests an allocation", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "No allocations yet")
		require.Contains(t, msg.Text, "/budget set Groceries 400")
	})

	t.Run("set creates an allocation via the fuzzy matcher", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget set grocceries 400"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Groceries")
		require.Contains(t, msg.Text, "400.00")
	})

	t.Run("overview renders the allocation with a progress bar", func(t *testing.T) {
		createTestExpense(t, b, user.ID, "100.00", "Weekly shop")
		// File the expense under Groceries so it counts against the allocation.
		categories, err := b.categories(ctx)
		require.NoError(t, err)
		var groceriesID int
		for i := range categories {
			if categories[i].Name == "Groceries" {
				groceriesID = categories[i].ID
			}
		}
		require.NotZero(t, groceriesID)

		expenses, err := b.expenseRepo.GetByUserID(ctx, user.ID, 1)
		require.NoError(t, err)
		expenses[0].CategoryID = &groceriesID
		require.NoError(t, b.expenseRepo.Update(ctx, &expenses[0]))

		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Groceries")
		require.Contains(t, msg.Text, "100.00")
		require.Contains(t, msg.Text, "400.00")
		require.Contains(t, msg.Text, "▓")
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget set Yachts 9000"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "No category matches")
	})

	t.Run("income and savings figures persist", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget income 5000"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Expected income")

		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget savings 1000"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Savings target")

		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget saved 350"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Savings so far")

		now := time.Now().UTC()
		budget, err := b.budgetRepo.GetByUserAndMonth(ctx, user.ID, now.Year(), int(now.Month()), now)
		require.NoError(t, err)
		require.True(t, budget.TotalIncome.Equal(mustParseDecimal("5000")))
		require.True(t, budget.SavingsTarget.Equal(mustParseDecimal("1000")))
		require.True(t, budget.SavingsActual.Equal(mustParseDecimal("350")))
	})

	t.Run("bad amount sends a hint", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget income plenty"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "doesn't look like an amount")
	})

	t.Run("unknown subcommand sends usage", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(800, 800, "/budget frobnicate"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Usage")
	})
}

func TestHandleRuleCore(t *testing.T) {
	pool := TestDB(t)
	b := setupTestBot(t, pool)
	ctx := context.Background()

	user := signUpAndLink(t, b, 810, 810)

	t.Run("empty month explains how to start", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleRuleCore(ctx, mockBot, mocks.MessageUpdate(810, 810, "/rule"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "50/30/20")
		require.Contains(t, msg.Text, "Nothing recorded")
	})

	t.Run("breakdown shows needs, wants and savings", func(t *testing.T) {
		categories, err := b.categories(ctx)
		require.NoError(t, err)
		var groceriesID, entertainmentID int
		for i := range categories {
			switch categories[i].Name {
			case "Groceries":
				groceriesID = categories[i].ID
			case "Entertainment":
				entertainmentID = categories[i].ID
			}
		}
		require.NotZero(t, groceriesID)
		require.NotZero(t, entertainmentID)

		groceries := createTestExpense(t, b, user.ID, "500.00", "Monthly shop")
		groceries.CategoryID = &groceriesID
		require.NoError(t, b.expenseRepo.Update(ctx, groceries))

		fun := createTestExpense(t, b, user.ID, "300.00", "Festival")
		fun.CategoryID = &entertainmentID
		require.NoError(t, b.expenseRepo.Update(ctx, fun))

		mockBot := mocks.NewMockBot()
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(810, 810, "/budget set Groceries 600"))
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(810, 810, "/budget set Entertainment 400"))
		b.handleBudgetCore(ctx, mockBot, mocks.MessageUpdate(810, 810, "/budget saved 200"))

		b.handleRuleCore(ctx, mockBot, mocks.MessageUpdate(810, 810, "/rule"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Needs")
		require.Contains(t, msg.Text, "Wants")
		require.Contains(t, msg.Text, "Savings")
		require.Contains(t, msg.Text, "500.00")
		require.Contains(t, msg.Text, "300.00")
		require.Contains(t, msg.Text, "200.00")
	})
}
