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

const categoryUncategorized = "Uncategorized"

// extractCommandArgs strips the /command prefix (and optional @botname
// suffix) from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I'm Fortuna, your personal finance companion. I track what you spend, how it felt, and how you're doing against your budgets, goals and bills.

<b>Quick Start:</b>
• <code>/signup email password</code> - create your account
• Send an expense like: <code>4.50 Coffee</code>
• Tag the feeling inline: <code>12.90 Pizza #happy</code>
• Snap a photo of a bill to file it automatically

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Int64("chat_id", update.Message.Chat.ID).Msg("Sending /start response")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /start response")
	}
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Account:</b>
• <code>/signup email password [name]</code> - Create an account
• <code>/login email password</code> - Sign in on this chat
• <code>/logout</code> - Sign out

<b>Recording Expenses:</b>
• Just send a message like <code>4.50 Coffee</code>
• With currency: <code>$10 Lunch</code>, <code>SGD 25.50 Groceries</code>, <code>50 Taxi THB</code>
• With a feeling: <code>12.90 Pizza #happy</code>
• With a category: <code>6.80 Latte Dining Out</code>
• <code>/add amount description</code> works too

<b>Viewing Expenses:</b>
• <code>/list</code> - Recent expenses
• <code>/today</code> / <code>/week</code> / <code>/month</code> - Period summaries
• <code>/filter</code> - Filter and sort with an interactive panel

<b>Planning:</b>
• <code>/budget</code> - Monthly budget progress
• <code>/budget set Category amount</code> - Allocate for this month
• <code>/budget income amount</code> / <code>/budget savings amount</code>
• <code>/rule</code> - 50/30/20 check on this month
• <code>/goals</code> - Savings goals and progress
• <code>/goals add Name target [deadline]</code> / <code>/goals save N amount</code>

<b>Bills:</b>
• <code>/bills</code> - Due and overdue bills
• <code>/bills add Name amount due</code> - e.g. <code>/bills add Rent 1200 2026-09-01</code>
• <code>/bills paid N</code> - Mark a bill paid
• Send a photo of a bill to scan it

<b>Insights:</b>
• <code>/reflect</code> - Monthly reflection
• <code>/chart week</code> / <code>/chart month</code> - Category pie chart
• <code>/report week</code> / <code>/report month</code> - CSV export

<b>Money:</b>
• <code>/income</code> / <code>/dependents</code> - Income sources and dependents
• <code>/convert amount FROM TO</code> - e.g. <code>/convert 100 USD EUR</code>
• <code>/currency [code]</code> - Show or set your default currency
• <code>/categories</code> - List spending categories

<b>Other:</b>
• <code>/help</code> - Show this help message`

	logger.Log.Debug().Int64("chat_id", update.Message.Chat.ID).Msg("Sending /help response")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /help response")
	}
}

// handleFreeTextCore routes plain text: a pending prompt consumes it,
// otherwise it parses as a free-text expense.
func (b *Bot) handleFreeTextCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	tgUserID := update.Message.From.ID
	text := update.Message.Text

	if strings.HasPrefix(text, "/") {
		_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🤔 I don't know that command. Use /help to see what I can do.",
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send unknown command response")
		}
		return
	}

	if input := b.takePending(tgUserID); input != nil {
		b.applyPendingInput(ctx, tg, chatID, tgUserID, input, text)
		return
	}

	user, ok := b.requireUser(ctx, tg, chatID, tgUserID)
	if !ok {
		return
	}

	categories, err := b.categories(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch categories for free-text parsing")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to save expense. Please try again.",
		})
		return
	}

	parsed, err := ParseExpenseInputWithCategories(text, categoryNameList(categories))
	if err != nil {
		_, sendErr := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "🤔 I couldn't read that as an expense. Try something like <code>4.50 Coffee</code> or see /help.",
			ParseMode: models.ParseModeHTML,
		})
		if sendErr != nil {
			logger.Log.Error().Err(sendErr).Msg("Failed to send parse hint")
		}
		return
	}

	b.saveExpenseCore(ctx, tg, chatID, user, parsed, categories)
}

// applyPendingInput dispatches a prompt answer to its feature flow.
func (b *Bot) applyPendingInput(ctx context.Context, tg TelegramAPI, chatID, tgUserID int64, input *pendingInput, text string) {
	switch input.kind {
	case pendingExpenseAmount, pendingExpenseMerchant, pendingExpenseNote:
		b.applyExpenseEdit(ctx, tg, chatID, tgUserID, input, text)
	case pendingBillName, pendingBillAmount, pendingBillDue:
		b.applyBillEdit(ctx, tg, chatID, tgUserID, input, text)
	case pendingReflectWell, pendingReflectImprove:
		b.applyReflectAnswer(ctx, tg, chatID, tgUserID, input, text)
	}
}

// handleAdd handles the /add command.
func (b *Bot) handleAdd(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddCore(ctx, tgBot, update)
}

// handleAddCore is the testable implementation of handleAdd.
func (b *Bot) handleAddCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID

	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	categories, err := b.categories(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch categories for /add")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to save expense. Please try again.",
		})
		return
	}

	parsed, err := ParseAddCommandWithCategories(update.Message.Text, categoryNameList(categories))
	if err != nil {
		_, sendErr := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "❌ " + escapeHTML(err.Error()) + "\n\nUsage: <code>/add 4.50 Coffee</code>",
			ParseMode: models.ParseModeHTML,
		})
		if sendErr != nil {
			logger.Log.Error().Err(sendErr).Msg("Failed to send /add usage")
		}
		return
	}

	b.saveExpenseCore(ctx, tg, chatID, user, parsed, categories)
}

// saveExpenseCore converts, categorizes and stores a parsed expense,
// then sends the confirmation with the tagging keyboard.
func (b *Bot) saveExpenseCore(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	user *appmodels.User,
	parsed *ParsedExpense,
	categories []appmodels.Category,
) {
	defer b.observeCommand(ctx, "add_expense", time.Now())

	amount, currency, description := b.convertExpenseCurrency(
		ctx, parsed.Amount, parsed.Currency, user, parsed.Description)

	expense := &appmodels.Expense{
		UserID:      user.ID,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Emotion:     parsed.Emotion,
	}

	// Category priority: explicit suffix in the input, then fuzzy
	// matching on the description, then an AI suggestion.
	if parsed.CategoryName != "" {
		for i := range categories {
			if strings.EqualFold(categories[i].Name, parsed.CategoryName) {
				expense.CategoryID = &categories[i].ID
				expense.Category = &categories[i]
				break
			}
		}
	}

	if expense.CategoryID == nil && parsed.Description != "" {
		if matched := MatchCategory(parsed.Description, categories); matched != nil {
			expense.CategoryID = &matched.ID
			expense.Category = matched
		}
	}

	if expense.CategoryID == nil && b.geminiClient != nil && parsed.Description != "" {
		suggestion, err := b.geminiClient.SuggestCategory(ctx, parsed.Description, categoryNameList(categories))
		if err != nil {
			logger.Log.Debug().Err(err).
				Str("description", logger.SanitizeDescription(parsed.Description)).
				Msg("Failed to get AI category suggestion")
		} else if suggestion != nil && suggestion.Confidence > 0.5 {
			for i := range categories {
				if strings.EqualFold(categories[i].Name, suggestion.Category) {
					expense.CategoryID = &categories[i].ID
					expense.Category = &categories[i]
					logger.Log.Info().
						Str("description", logger.SanitizeDescription(parsed.Description)).
						Str("suggested_category", suggestion.Category).
						Float64("confidence", suggestion.Confidence).
						Msg("AI category suggestion applied")
					break
				}
			}
		}
	}

	if err := b.expenseRepo.Create(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to create expense")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to save expense. Please try again.",
		})
		return
	}

	if b.metrics != nil {
		b.metrics.ExpensesRecorded.Add(ctx, 1)
	}

	logger.Log.Debug().
		Str("user", logger.HashUserID(user.ID)).
		Str("amount", expense.Amount.String()).
		Str("currency", expense.Currency).
		Msg("Expense created")

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        expenseConfirmationText(expense, "✅ <b>Expense Added</b>"),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: expenseKeyboard(expense),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send expense confirmation")
	}
}

// expenseConfirmationText renders the expense card shown after saving
// and re-rendered after every tag or edit.
func expenseConfirmationText(exp *appmodels.Expense, heading string) string {
	categoryText := categoryUncategorized
	if exp.Category != nil {
		categoryText = escapeHTML(exp.Category.Name)
	}

	descText := ""
	if exp.Description != "" {
		descText = "\n📝 " + escapeHTML(exp.Description)
	}

	merchantText := ""
	if exp.Merchant != "" {
		merchantText = "\n🏪 " + escapeHTML(exp.Merchant)
	}

	currencySymbol := appmodels.SupportedCurrencies[exp.Currency]
	if currencySymbol == "" {
		currencySymbol = exp.Currency
	}

	text := fmt.Sprintf(`%s

💰 %s%s %s%s%s
📁 %s
🆔 #%d`,
		heading,
		currencySymbol,
		exp.Amount.StringFixed(2),
		exp.Currency,
		descText,
		merchantText,
		categoryText,
		exp.UserExpenseNumber)

	if tags := expenseTagLine(exp); tags != "" {
		text += "\n🏷️ " + tags
	}
	return text
}

// expenseTagLine renders the answered tags: "😊 happy · planned · need".
func expenseTagLine(exp *appmodels.Expense) string {
	var parts []string
	if exp.Emotion != "" {
		parts = append(parts, emotionLabel(exp.Emotion))
	}
	if exp.WasPlanned != nil {
		if *exp.WasPlanned {
			parts = append(parts, "📅 planned")
		} else {
			parts = append(parts, "⚡ impulse")
		}
	}
	if exp.IsNecessity != nil {
		if *exp.IsNecessity {
			parts = append(parts, "🧺 need")
		} else {
			parts = append(parts, "✨ want")
		}
	}
	return strings.Join(parts, " · ")
}

// expenseKeyboard builds the tagging keyboard for an expense. Rows for
// already-answered questions are omitted.
func expenseKeyboard(exp *appmodels.Expense) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	if exp.Emotion == "" {
		row := make([]models.InlineKeyboardButton, 0, len(appmodels.Emotions))
		for _, emotion := range appmodels.Emotions {
			row = append(row, models.InlineKeyboardButton{
				Text:         emotionEmoji[emotion],
				CallbackData: fmt.Sprintf("emo_%d_%s", exp.ID, emotion),
			})
		}
		rows = append(rows, row)
	}

	if exp.WasPlanned == nil {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "📅 Planned", CallbackData: fmt.Sprintf("plan_%d_yes", exp.ID)},
			{Text: "⚡ Impulse", CallbackData: fmt.Sprintf("plan_%d_no", exp.ID)},
		})
	}

	if exp.IsNecessity == nil {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "🧺 Need", CallbackData: fmt.Sprintf("need_%d_yes", exp.ID)},
			{Text: "✨ Want", CallbackData: fmt.Sprintf("need_%d_no", exp.ID)},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "✏️ Edit", CallbackData: fmt.Sprintf("edit_expense_%d", exp.ID)},
		{Text: "🗑️ Delete", CallbackData: fmt.Sprintf("delete_expense_%d", exp.ID)},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// categoryNameList extracts category names in list order.
func categoryNameList(categories []appmodels.Category) []string {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	return names
}

// handleCategories handles the /categories command.
func (b *Bot) handleCategories(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCategoriesCore(ctx, tgBot, update)
}

// handleCategoriesCore is the testable implementation of handleCategories.
func (b *Bot) handleCategoriesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	categories, err := b.categories(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch categories")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to fetch categories. Please try again.",
		})
		return
	}

	var essentials, lifestyle strings.Builder
	for _, cat := range categories {
		line := fmt.Sprintf("%s %s\n", cat.Icon, escapeHTML(cat.Name))
		if cat.IsEssential {
			essentials.WriteString(line)
		} else {
			lifestyle.WriteString(line)
		}
	}

	text := "📁 <b>Categories</b>\n\n<b>Essentials</b> (needs)\n" + essentials.String() +
		"\n<b>Lifestyle</b> (wants)\n" + lifestyle.String() +
		"\nEnd an expense with a category name to file it there, e.g. <code>6.80 Latte Dining Out</code>."

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send categories list")
	}
}
