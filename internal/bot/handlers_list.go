package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// handleList handles the /list command to show recent expenses.
func (b *Bot) handleList(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleListCore(ctx, tgBot, update)
}

// handleListCore is the testable implementation of handleList.
func (b *Bot) handleListCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "list", time.Now())

	chatID := update.Message.Chat.ID

	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	expenses, err := b.expenseRepo.GetByUserID(ctx, user.ID, 10)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch expenses")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to fetch expenses. Please try again.",
		})
		return
	}

	b.sendExpenseListCore(ctx, tg, chatID, expenses, "📋 <b>Recent Expenses</b>")
}

// handleToday handles the /today command.
func (b *Bot) handleToday(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTodayCore(ctx, tgBot, update)
}

// handleTodayCore is the testable implementation of handleToday.
func (b *Bot) handleTodayCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "today", time.Now())

	now := time.Now().In(b.displayLocation)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	b.sendRangeSummary(ctx, tg, update, start, end, "📅 <b>Today's Expenses</b>")
}

// handleWeek handles the /week command.
func (b *Bot) handleWeek(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleWeekCore(ctx, tgBot, update)
}

// handleWeekCore is the testable implementation of handleWeek. Weeks
// start on Monday.
func (b *Bot) handleWeekCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "week", time.Now())

	now := time.Now().In(b.displayLocation)
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, now.Location())
	end := start.Add(7 * 24 * time.Hour)

	b.sendRangeSummary(ctx, tg, update, start, end, "📆 <b>This Week's Expenses</b>")
}

// handleMonth handles the /month command.
func (b *Bot) handleMonth(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleMonthCore(ctx, tgBot, update)
}

// handleMonthCore is the testable implementation of handleMonth.
func (b *Bot) handleMonthCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "month", time.Now())

	now := time.Now().In(b.displayLocation)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)

	b.sendRangeSummary(ctx, tg, update, start, end, "🗓️ <b>This Month's Expenses</b>")
}

// sendRangeSummary fetches a date range with its total and renders the
// expense list under a "header (Total: …)" heading.
func (b *Bot) sendRangeSummary(
	ctx context.Context,
	tg TelegramAPI,
	update *models.Update,
	start, end time.Time,
	header string,
) {
	chatID := update.Message.Chat.ID

	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	expenses, err := b.expenseRepo.GetByUserIDAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch expenses for range")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to fetch expenses. Please try again.",
		})
		return
	}

	total, err := b.expenseRepo.GetTotalByUserIDAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to calculate range total")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to fetch expenses. Please try again.",
		})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	header = fmt.Sprintf("%s (Total: %s%s)", header, symbol, total.StringFixed(2))
	b.sendExpenseListCore(ctx, tg, chatID, expenses, header)
}

// sendExpenseListCore renders expenses as "#N amount - description
// [Category] emotion" lines with the spend timestamp underneath.
func (b *Bot) sendExpenseListCore(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	expenses []appmodels.Expense,
	header string,
) {
	if len(expenses) == 0 {
		_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      header + "\n\nNo expenses found.",
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send empty expense list")
		}
		return
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")

	for i := range expenses {
		exp := &expenses[i]
		categoryText := ""
		if exp.Category != nil {
			categoryText = fmt.Sprintf(" [%s]", escapeHTML(exp.Category.Name))
		}

		emotionText := ""
		if emoji, ok := emotionEmoji[exp.Emotion]; ok {
			emotionText = " " + emoji
		}

		descText := ""
		if exp.Merchant != "" {
			descText = " - " + escapeHTML(exp.Merchant)
		} else if exp.Description != "" {
			descText = " - " + escapeHTML(exp.Description)
		}

		currencySymbol := appmodels.SupportedCurrencies[exp.Currency]
		if currencySymbol == "" {
			currencySymbol = exp.Currency
		}

		sb.WriteString(fmt.Sprintf(
			"#%d %s%s %s%s%s%s\n<i>%s</i>\n\n",
			exp.UserExpenseNumber,
			currencySymbol,
			exp.Amount.StringFixed(2),
			exp.Currency,
			descText,
			categoryText,
			emotionText,
			exp.SpentAt.In(b.displayLocation).Format("Jan 2 15:04"),
		))
	}

	logger.Log.Debug().Int64("chat_id", chatID).Int("count", len(expenses)).Msg("Sending expense list")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send expense list")
	}
}
