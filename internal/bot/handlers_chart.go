package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// sumExpenses totals a fetched slice without another DB round trip.
func sumExpenses(expenses []appmodels.Expense) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
	}
	return total
}

// reportPeriod resolves a week|month argument against now.
func (b *Bot) reportPeriod(args string) (start, end time.Time, period, title string, ok bool) {
	now := time.Now().In(b.displayLocation)
	switch strings.ToLower(args) {
	case periodWeek:
		start, end = weekRange(now)
		title = fmt.Sprintf("%s to %s", start.Format("Jan 2"), end.Add(-24*time.Hour).Format("Jan 2, 2006"))
		return start, end, periodWeek, title, true
	case periodMonth:
		start, end = monthRange(now)
		return start, end, periodMonth, start.Format("January 2006"), true
	default:
		return time.Time{}, time.Time{}, "", "", false
	}
}

// handleChart handles the /chart command.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore renders the week or month category breakdown as a pie
// chart and sends it as a document.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "chart", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/chart")
	start, end, period, rangeTitle, ok := b.reportPeriod(args)
	if !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Usage: <code>/chart week</code> or <code>/chart month</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	expenses, err := b.expenseRepo.GetByUserIDAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch expenses for chart")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to generate chart. Please try again."})
		return
	}
	if len(expenses) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("📊 No expenses found for this %s.", period),
		})
		return
	}

	chartData, err := GenerateExpenseChart(expenses, "Spending by Category - "+rangeTitle)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to generate chart. Please try again."})
		return
	}

	total := sumExpenses(expenses)
	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: periodFilename("chart", period, "png", time.Now().In(b.displayLocation)),
			Data:     bytes.NewReader(chartData),
		},
		Caption: fmt.Sprintf("📊 <b>Spending by Category</b>\n\nPeriod: %s\nTotal: %s%s across %d expenses",
			rangeTitle, symbol, total.StringFixed(2), len(expenses)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to send chart. Please try again."})
		return
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(user.ID)).
		Str("period", period).
		Int("expense_count", len(expenses)).
		Msg("Chart sent")
}

// handleReport handles the /report command.
func (b *Bot) handleReport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReportCore(ctx, tgBot, update)
}

// handleReportCore exports the week or month as a CSV document.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "report", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/report")
	start, end, period, rangeTitle, ok := b.reportPeriod(args)
	if !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Usage: <code>/report week</code> or <code>/report month</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	expenses, err := b.expenseRepo.GetByUserIDAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch expenses for report")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to generate report. Please try again."})
		return
	}
	if len(expenses) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("📄 No expenses found for this %s.", period),
		})
		return
	}

	csvData, err := GenerateExpensesCSV(expenses)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV report")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to generate report. Please try again."})
		return
	}

	total := sumExpenses(expenses)
	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: periodFilename("expenses", period, "csv", time.Now().In(b.displayLocation)),
			Data:     bytes.NewReader(csvData),
		},
		Caption: fmt.Sprintf("📄 <b>Expense Report</b>\n\nPeriod: %s\nTotal: %s%s across %d expenses",
			rangeTitle, symbol, total.StringFixed(2), len(expenses)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send report document")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to send report. Please try again."})
		return
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(user.ID)).
		Str("period", period).
		Int("expense_count", len(expenses)).
		Msg("CSV report sent")
}
