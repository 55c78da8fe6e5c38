package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const expenseNotFoundText = "Expense not found."

// callbackExpense resolves the expense a callback targets and verifies
// it belongs to the account linked to the pressing Telegram user. A nil
// return means the callback was already answered with an error.
func (b *Bot) callbackExpense(ctx context.Context, tg TelegramAPI, update *models.Update, expenseID int) *appmodels.Expense {
	user, err := b.resolveUser(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		b.answerCallback(ctx, tg, update, "Sign in first with /login.")
		return nil
	}

	expense, err := b.expenseRepo.GetByID(ctx, expenseID)
	if err != nil || expense.UserID != user.ID {
		if err == nil {
			logger.Log.Warn().
				Str("user", logger.HashUserID(user.ID)).
				Int("expense_id", expenseID).
				Msg("Expense ownership mismatch on callback")
		}
		b.answerCallback(ctx, tg, update, expenseNotFoundText)
		return nil
	}
	return expense
}

// answerCallback acknowledges a callback query, optionally with a toast.
func (b *Bot) answerCallback(ctx context.Context, tg TelegramAPI, update *models.Update, text string) {
	_, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to answer callback query")
	}
}

// callbackMessage returns the chat and message the callback keyboard
// lives on. A zero chat means the message is inaccessible.
func callbackMessage(update *models.Update) (chatID int64, messageID int) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0, 0
	}
	msg := update.CallbackQuery.Message.Message
	return msg.Chat.ID, msg.ID
}

// callbackSuffixID parses the trailing integer of a callback like
// "edit_expense_42".
func callbackSuffixID(data, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil {
		return 0, false
	}
	return id, true
}

// renderExpenseCard re-renders the expense card message in place, with
// the tagging keyboard reflecting what is still unanswered.
func (b *Bot) renderExpenseCard(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, exp *appmodels.Expense, heading string) {
	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        expenseConfirmationText(exp, heading),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: expenseKeyboard(exp),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to re-render expense card")
	}
}

// handleEmotionCallback handles emo_<id>_<emotion> presses.
func (b *Bot) handleEmotionCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEmotionCallbackCore(ctx, tgBot, update)
}

// handleEmotionCallbackCore tags the expense with the chosen emotion.
func (b *Bot) handleEmotionCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	parts := strings.Split(strings.TrimPrefix(update.CallbackQuery.Data, "emo_"), "_")
	if len(parts) != 2 {
		return
	}
	expenseID, err := strconv.Atoi(parts[0])
	if err != nil || !appmodels.ValidEmotion(parts[1]) {
		return
	}

	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}

	expense.Emotion = strings.ToLower(parts[1])
	if err := b.expenseRepo.Update(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to tag expense emotion")
		b.answerCallback(ctx, tg, update, "Failed to save. Try again.")
		return
	}

	b.answerCallback(ctx, tg, update, "Tagged "+emotionLabel(expense.Emotion))
	chatID, messageID := callbackMessage(update)
	if chatID != 0 {
		b.renderExpenseCard(ctx, tg, chatID, messageID, expense, "✅ <b>Expense Added</b>")
	}
}

// handlePlannedCallback handles plan_<id>_yes|no presses.
func (b *Bot) handlePlannedCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBehaviorCallbackCore(ctx, tgBot, update, "plan_")
}

// handleNecessityCallback handles need_<id>_yes|no presses.
func (b *Bot) handleNecessityCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBehaviorCallbackCore(ctx, tgBot, update, "need_")
}

// handleBehaviorCallbackCore answers one of the yes/no behavioral
// questions (planned/impulse or need/want) on an expense.
func (b *Bot) handleBehaviorCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update, prefix string) {
	if update.CallbackQuery == nil {
		return
	}

	parts := strings.Split(strings.TrimPrefix(update.CallbackQuery.Data, prefix), "_")
	if len(parts) != 2 || (parts[1] != "yes" && parts[1] != "no") {
		return
	}
	expenseID, err := strconv.Atoi(parts[0])
	if err != nil {
		return
	}

	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}

	answer := parts[1] == "yes"
	var toast string
	if prefix == "plan_" {
		expense.WasPlanned = &answer
		toast = "Tagged ⚡ impulse"
		if answer {
			toast = "Tagged 📅 planned"
		}
	} else {
		expense.IsNecessity = &answer
		toast = "Tagged ✨ want"
		if answer {
			toast = "Tagged 🧺 need"
		}
	}

	if err := b.expenseRepo.Update(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to tag expense behavior")
		b.answerCallback(ctx, tg, update, "Failed to save. Try again.")
		return
	}

	b.answerCallback(ctx, tg, update, toast)
	chatID, messageID := callbackMessage(update)
	if chatID != 0 {
		b.renderExpenseCard(ctx, tg, chatID, messageID, expense, "✅ <b>Expense Added</b>")
	}
}

// handleEditExpenseCallback shows the edit menu for an expense.
func (b *Bot) handleEditExpenseCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditExpenseCallbackCore(ctx, tgBot, update)
}

// handleEditExpenseCallbackCore is the testable implementation of
// handleEditExpenseCallback.
func (b *Bot) handleEditExpenseCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, "edit_expense_")
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💰 Amount", CallbackData: fmt.Sprintf("edit_amount_%d", expense.ID)},
				{Text: "🏪 Merchant", CallbackData: fmt.Sprintf("edit_merchant_%d", expense.ID)},
			},
			{
				{Text: "📝 Note", CallbackData: fmt.Sprintf("edit_note_%d", expense.ID)},
				{Text: "📁 Category", CallbackData: fmt.Sprintf("edit_category_%d", expense.ID)},
			},
			{
				{Text: "⬅️ Back", CallbackData: fmt.Sprintf("back_to_%d", expense.ID)},
			},
		},
	}

	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        expenseConfirmationText(expense, "✏️ <b>Edit Expense</b>\n\nWhat would you like to change?"),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to show expense edit menu")
	}
}

// handleEditAmountCallback prompts for a replacement amount.
func (b *Bot) handleEditAmountCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.promptExpenseFieldCore(ctx, tgBot, update, "edit_amount_", pendingExpenseAmount,
		"💰 <b>Edit Amount</b>\n\nType the new amount, e.g. <code>25.50</code>:")
}

// handleEditMerchantCallback prompts for a replacement merchant name.
func (b *Bot) handleEditMerchantCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.promptExpenseFieldCore(ctx, tgBot, update, "edit_merchant_", pendingExpenseMerchant,
		"🏪 <b>Edit Merchant</b>\n\nType the merchant name:")
}

// handleEditNoteCallback prompts for a replacement description.
func (b *Bot) handleEditNoteCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.promptExpenseFieldCore(ctx, tgBot, update, "edit_note_", pendingExpenseNote,
		"📝 <b>Edit Note</b>\n\nType the new description:")
}

// promptExpenseFieldCore arms a pending prompt for one expense field
// and turns the card into the prompt. The user's next message answers it.
func (b *Bot) promptExpenseFieldCore(
	ctx context.Context,
	tg TelegramAPI,
	update *models.Update,
	prefix string,
	kind pendingKind,
	prompt string,
) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, prefix)
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	b.setPending(update.CallbackQuery.From.ID, &pendingInput{
		kind:      kind,
		expenseID: expense.ID,
		messageID: messageID,
	})

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ Cancel", CallbackData: fmt.Sprintf("back_to_%d", expense.ID)}},
		},
	}
	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        prompt,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to show expense field prompt")
	}
}

// applyExpenseEdit consumes a pending expense-field answer.
func (b *Bot) applyExpenseEdit(ctx context.Context, tg TelegramAPI, chatID, tgUserID int64, input *pendingInput, text string) {
	user, ok := b.requireUser(ctx, tg, chatID, tgUserID)
	if !ok {
		return
	}

	expense, err := b.expenseRepo.GetByID(ctx, input.expenseID)
	if err != nil || expense.UserID != user.ID {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ " + expenseNotFoundText})
		return
	}

	switch input.kind {
	case pendingExpenseAmount:
		amount, err := parseAmount(text)
		if err != nil {
			// Re-arm so the user can try again without reopening the menu.
			b.setPending(tgUserID, input)
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      "❌ That doesn't look like an amount. Try <code>25.50</code>.",
				ParseMode: models.ParseModeHTML,
			})
			return
		}
		expense.Amount = amount
	case pendingExpenseMerchant:
		expense.Merchant = strings.TrimSpace(text)
	case pendingExpenseNote:
		expense.Description = strings.TrimSpace(text)
	}

	if err := b.expenseRepo.Update(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to apply expense edit")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save changes. Please try again."})
		return
	}

	b.renderExpenseCard(ctx, tg, chatID, input.messageID, expense, "✅ <b>Expense Updated</b>")
}

// handleEditCategoryCallback shows the category picker for an expense.
func (b *Bot) handleEditCategoryCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditCategoryCallbackCore(ctx, tgBot, update)
}

// handleEditCategoryCallbackCore is the testable implementation of
// handleEditCategoryCallback.
func (b *Bot) handleEditCategoryCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, "edit_category_")
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	categories, err := b.categories(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load categories for picker")
		return
	}

	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for i := range categories {
		row = append(row, models.InlineKeyboardButton{
			Text:         categories[i].Icon + " " + categories[i].Name,
			CallbackData: fmt.Sprintf("set_category_%d_%d", expense.ID, categories[i].ID),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ Back", CallbackData: fmt.Sprintf("back_to_%d", expense.ID)},
	})

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        "📁 <b>Pick a category</b>",
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to show category picker")
	}
}

// handleSetCategoryCallback files the expense under the chosen category.
func (b *Bot) handleSetCategoryCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSetCategoryCallbackCore(ctx, tgBot, update)
}

// handleSetCategoryCallbackCore is the testable implementation of
// handleSetCategoryCallback.
func (b *Bot) handleSetCategoryCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	parts := strings.Split(strings.TrimPrefix(update.CallbackQuery.Data, "set_category_"), "_")
	if len(parts) != 2 {
		return
	}
	expenseID, err1 := strconv.Atoi(parts[0])
	categoryID, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return
	}

	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}

	category, err := b.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		b.answerCallback(ctx, tg, update, "Category not found.")
		return
	}

	expense.CategoryID = &category.ID
	expense.Category = category
	if err := b.expenseRepo.Update(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to set expense category")
		b.answerCallback(ctx, tg, update, "Failed to save. Try again.")
		return
	}

	b.answerCallback(ctx, tg, update, "Filed under "+category.Name)
	chatID, messageID := callbackMessage(update)
	if chatID != 0 {
		b.renderExpenseCard(ctx, tg, chatID, messageID, expense, "✅ <b>Expense Updated</b>")
	}
}

// handleDeleteExpenseCallback asks for delete confirmation.
func (b *Bot) handleDeleteExpenseCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteExpenseCallbackCore(ctx, tgBot, update)
}

// handleDeleteExpenseCallbackCore is the testable implementation of
// handleDeleteExpenseCallback.
func (b *Bot) handleDeleteExpenseCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, "delete_expense_")
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🗑️ Yes, delete", CallbackData: fmt.Sprintf("confirm_delete_%d", expense.ID)},
				{Text: "⬅️ Keep it", CallbackData: fmt.Sprintf("back_to_%d", expense.ID)},
			},
		},
	}
	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        expenseConfirmationText(expense, "🗑️ <b>Delete this expense?</b>"),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to show delete confirmation")
	}
}

// handleConfirmDeleteCallback deletes the expense for good.
func (b *Bot) handleConfirmDeleteCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleConfirmDeleteCallbackCore(ctx, tgBot, update)
}

// handleConfirmDeleteCallbackCore is the testable implementation of
// handleConfirmDeleteCallback.
func (b *Bot) handleConfirmDeleteCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, "confirm_delete_")
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}

	if err := b.expenseRepo.Delete(ctx, expense.ID); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to delete expense")
		b.answerCallback(ctx, tg, update, "Failed to delete. Try again.")
		return
	}

	b.answerCallback(ctx, tg, update, "Deleted")
	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      fmt.Sprintf("🗑️ Expense #%d deleted.", expense.UserExpenseNumber),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm expense deletion")
	}
}

// handleBackToExpenseCallback restores the expense card, dropping any
// pending prompt the edit flow armed.
func (b *Bot) handleBackToExpenseCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBackToExpenseCallbackCore(ctx, tgBot, update)
}

// handleBackToExpenseCallbackCore is the testable implementation of
// handleBackToExpenseCallback.
func (b *Bot) handleBackToExpenseCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	expenseID, ok := callbackSuffixID(update.CallbackQuery.Data, "back_to_")
	if !ok {
		return
	}
	expense := b.callbackExpense(ctx, tg, update, expenseID)
	if expense == nil {
		return
	}

	b.clearPending(update.CallbackQuery.From.ID)
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID != 0 {
		b.renderExpenseCard(ctx, tg, chatID, messageID, expense, "✅ <b>Expense Added</b>")
	}
}
