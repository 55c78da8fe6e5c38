package bot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/dafibh/fortuna/internal/bot/mocks"
)

func TestHandleChartCore(t *testing.T) {
	pool := TestDB(t)
	b := setupTestBot(t, pool)
	ctx := context.Background()

	user := signUpAndLink(t, b, 1300, 1300)

	t.Run("missing period sends usage", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleChartCore(ctx, mockBot, mocks.MessageUpdate(1300, 1300, "/chart"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "/chart week")
	})

	t.Run("no expenses this week", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleChartCore(ctx, mockBot, mocks.MessageUpdate(1300, 1300, "/chart week"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "No expenses found for this week")
		require.Zero(t, mockBot.SentDocumentCount())
	})

	t.Run("sends a PNG document with a caption", func(t *testing.T) {
		createTestExpense(t, b, user.ID, "22.50", "Lunches")
		createTestExpense(t, b, user.ID, "60.00", "Fuel")

		mockBot := mocks.NewMockBot()
		b.handleChartCore(ctx, mockBot, mocks.MessageUpdate(1300, 1300, "/chart month"))

		require.Equal(t, 1, mockBot.SentDocumentCount())
		doc := mockBot.LastSentDocument()
		require.NotNil(t, doc)
		require.Contains(t, doc.Caption, "Spending by Category")
		require.Contains(t, doc.Caption, "82.50")
		require.Contains(t, doc.Caption, "2 expenses")
		require.True(t, bytes.HasPrefix(doc.Body, []byte{0x89, 'P', 'N', 'G'}), "document should be a PNG")
	})
}

func TestHandleReportCore(t *testing.T) {
	pool := TestDB(t)
	b := setupTestBot(t, pool)
	ctx := context.Background()

	user := signUpAndLink(t, b, 1310, 1310)

	t.Run("missing period sends usage", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleReportCore(ctx, mockBot, mocks.MessageUpdate(1310, 1310, "/report nonsense"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "/report week")
	})

	t.Run("sends a CSV with one row per expense", func(t *testing.T) {
		createTestExpense(t, b, user.ID, "18.40", "Ramen")
		createTestExpense(t, b, user.ID, "9.00", "Bus pass")

		mockBot := mocks.NewMockBot()
		b.handleReportCore(ctx, mockBot, mocks.MessageUpdate(1310, 1310, "/report month"))

		require.Equal(t, 1, mockBot.SentDocumentCount())
		doc := mockBot.LastSentDocument()
		require.NotNil(t, doc)
		require.Contains(t, doc.Caption, "Expense Report")
		require.Contains(t, doc.Caption, "27.40")

		body := string(doc.Body)
		require.Contains(t, body, "Ramen")
		require.Contains(t, body, "Bus pass")
		// Header plus two rows.
		require.Len(t, strings.Split(strings.TrimSpace(body), "\n"), 3)
	})
}
