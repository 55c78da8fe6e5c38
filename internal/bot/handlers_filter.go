package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// filterPanelResults caps how many matching expenses the panel lists.
const filterPanelResults = 15

// handleFilter handles the /filter command: an interactive panel over
// the chat's persistent filter selection, plus text subcommands for
// the inputs a keyboard can't carry (amounts, search, custom dates).
func (b *Bot) handleFilter(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleFilterCore(ctx, tgBot, update)
}

// handleFilterCore is the testable implementation of handleFilter.
func (b *Bot) handleFilterCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "filter", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/filter")
	state := b.filterState(chatID)

	if args != "" {
		updated, errText := applyFilterSubcommand(state, args)
		if errText != "" {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      errText,
				ParseMode: models.ParseModeHTML,
			})
			return
		}
		state = updated
		b.setFilterState(chatID, state)
	}

	text, keyboard, err := b.buildFilterPanel(ctx, user, state)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to build filter panel")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to load expenses. Please try again."})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send filter panel")
	}
}

// applyFilterSubcommand handles the text-entry filter settings:
// min/max bounds, search text, custom date ranges, and reset. It
// returns the updated state, or a usage message when the input is bad.
func applyFilterSubcommand(state finance.FilterState, args string) (finance.FilterState, string) {
	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "reset":
		return finance.NewFilterState(), ""
	case "min", "max":
		if len(fields) != 2 {
			return state, fmt.Sprintf("Usage: <code>/filter %s amount</code>", fields[0])
		}
		amount, err := decimal.NewFromString(fields[1])
		if err != nil || amount.IsNegative() {
			return state, "❌ That doesn't look like an amount. Try <code>/filter min 10</code>."
		}
		if fields[0] == "min" {
			state.MinAmount = &amount
		} else {
			state.MaxAmount = &amount
		}
		return state, ""
	case "search":
		state.SearchQuery = strings.TrimSpace(strings.TrimPrefix(args, fields[0]))
		return state, ""
	case "range":
		if len(fields) != 3 {
			return state, "Usage: <code>/filter range 2026-08-01 2026-08-15</code>"
		}
		start, err1 := time.Parse("2006-01-02", fields[1])
		end, err2 := time.Parse("2006-01-02", fields[2])
		if err1 != nil || err2 != nil || end.Before(start) {
			return state, "❌ Dates must be <code>YYYY-MM-DD</code>, start before end."
		}
		state.DateRange = finance.DateRangeCustom
		state.CustomStart, state.CustomEnd = start, end
		return state, ""
	default:
		return state, "Usage: <code>/filter</code>, <code>/filter min 10</code>, <code>/filter max 100</code>, <code>/filter search coffee</code>, <code>/filter range 2026-08-01 2026-08-15</code>, <code>/filter reset</code>"
	}
}

// buildFilterPanel renders the current selection: filtered results,
// removable chips, and the toggle keyboard.
func (b *Bot) buildFilterPanel(ctx context.Context, user *appmodels.User, state finance.FilterState) (string, *models.InlineKeyboardMarkup, error) {
	now := time.Now().In(b.displayLocation)
	start, end := state.Bounds(now)

	expenses, err := b.expenseRepo.GetByUserIDAndDateRange(ctx, user.ID, start, end.Add(time.Nanosecond))
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch expenses for filter: %w", err)
	}

	result := finance.ApplyFilters(expenses, state, now)

	var sb strings.Builder
	badge := ""
	if result.ActiveFilterCount > 0 {
		badge = fmt.Sprintf(" (%d active)", result.ActiveFilterCount)
	}
	sb.WriteString("🔍 <b>Filter</b>" + badge + "\n")
	sb.WriteString(fmt.Sprintf("%s · %s · %d matching\n", finance.DateRangeLabel(state.DateRange),
		finance.SortLabel(state.SortBy), len(result.Records)))

	total := decimal.Zero
	for i := range result.Records {
		total = total.Add(result.Records[i].Amount)
	}
	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	sb.WriteString(fmt.Sprintf("Total: %s%s\n", symbol, total.StringFixed(2)))

	shown := result.Records
	if len(shown) > filterPanelResults {
		shown = shown[:filterPanelResults]
	}
	if len(shown) > 0 {
		sb.WriteString("\n")
	}
	for i := range shown {
		exp := &shown[i]
		desc := exp.Description
		if exp.Merchant != "" {
			desc = exp.Merchant
		}
		category := ""
		if exp.Category != nil {
			category = " [" + escapeHTML(exp.Category.Name) + "]"
		}
		sb.WriteString(fmt.Sprintf("#%d %s%s - %s%s · <i>%s</i>\n",
			exp.UserExpenseNumber, symbol, exp.Amount.StringFixed(2),
			escapeHTML(desc), category,
			exp.SpentAt.In(b.displayLocation).Format("Jan 2")))
	}
	if len(result.Records) > filterPanelResults {
		sb.WriteString(fmt.Sprintf("<i>…and %d more</i>\n", len(result.Records)-filterPanelResults))
	}

	sb.WriteString("\n💡 <code>/filter min 10</code> · <code>/filter search coffee</code> · <code>/filter range 2026-08-01 2026-08-15</code>")

	keyboard, err := b.buildFilterKeyboard(ctx, state)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), keyboard, nil
}

// buildFilterKeyboard lays out the toggle rows. Selected values carry a
// check mark; chips get their own removal row.
func (b *Bot) buildFilterKeyboard(ctx context.Context, state finance.FilterState) (*models.InlineKeyboardMarkup, error) {
	var rows [][]models.InlineKeyboardButton

	mark := func(selected bool, label string) string {
		if selected {
			return "✅ " + label
		}
		return label
	}
	selectedIn := func(selection []string, value string) bool {
		for _, v := range selection {
			if strings.EqualFold(v, value) {
				return true
			}
		}
		return false
	}

	// Date range presets, three per row.
	presets := []finance.DateRange{
		finance.DateRangeToday, finance.DateRangeThisWeek, finance.DateRangeThisMonth,
		finance.DateRangeLastMonth, finance.DateRangeLast30Days, finance.DateRangeLast90Days,
	}
	var row []models.InlineKeyboardButton
	for _, preset := range presets {
		row = append(row, models.InlineKeyboardButton{
			Text:         mark(state.DateRange == preset, finance.DateRangeLabel(preset)),
			CallbackData: "flt:dr:" + string(preset),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}

	// Categories, two per row.
	categories, err := b.categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		row = append(row, models.InlineKeyboardButton{
			Text:         mark(selectedIn(state.Categories, categories[i].Name), categories[i].Icon+" "+categories[i].Name),
			CallbackData: fmt.Sprintf("flt:cat:%d", categories[i].ID),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
		row = nil
	}

	// Emotions, four per row.
	for _, emotion := range appmodels.Emotions {
		row = append(row, models.InlineKeyboardButton{
			Text:         mark(selectedIn(state.Emotions, emotion), emotionEmoji[emotion]),
			CallbackData: "flt:emo:" + emotion,
		})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}

	// Expense types.
	for _, expenseType := range finance.ExpenseTypes {
		row = append(row, models.InlineKeyboardButton{
			Text:         mark(selectedIn(state.ExpenseTypes, expenseType), expenseType),
			CallbackData: "flt:typ:" + expenseType,
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
		row = nil
	}

	// Sorts.
	sorts := []finance.SortOption{
		finance.SortDateDesc, finance.SortDateAsc,
		finance.SortAmountDesc, finance.SortAmountAsc, finance.SortCategory,
	}
	for _, sortBy := range sorts {
		row = append(row, models.InlineKeyboardButton{
			Text:         mark(state.SortBy == sortBy, finance.SortLabel(sortBy)),
			CallbackData: "flt:srt:" + string(sortBy),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
		row = nil
	}

	// One removal button per active chip.
	for _, chip := range state.Chips() {
		row = append(row, models.InlineKeyboardButton{
			Text:         "✕ " + chip.Label,
			CallbackData: "flt:rm:" + chip.Dimension + ":" + chip.Value,
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
		{Text: "🔄 Reset", CallbackData: "flt:reset"},
		{Text: "✖️ Close", CallbackData: "flt:close"},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

// handleFilterCallback handles flt:* keyboard presses.
func (b *Bot) handleFilterCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleFilterCallbackCore(ctx, tgBot, update)
}

// handleFilterCallbackCore is the testable implementation of
// handleFilterCallback.
func (b *Bot) handleFilterCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	user, err := b.resolveUser(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		b.answerCallback(ctx, tg, update, "Sign in first with /login.")
		return
	}

	state := b.filterState(chatID)
	data := strings.TrimPrefix(update.CallbackQuery.Data, "flt:")

	switch {
	case data == "close":
		b.answerCallback(ctx, tg, update, "")
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "🔍 Filter closed. /filter reopens it with your selection kept.",
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close filter panel")
		}
		return
	case data == "reset":
		state = finance.NewFilterState()
	case strings.HasPrefix(data, "dr:"):
		state.DateRange = finance.DateRange(strings.TrimPrefix(data, "dr:"))
	case strings.HasPrefix(data, "cat:"):
		categoryID, err := strconv.Atoi(strings.TrimPrefix(data, "cat:"))
		if err != nil {
			return
		}
		category, err := b.categoryRepo.GetByID(ctx, categoryID)
		if err != nil {
			b.answerCallback(ctx, tg, update, "Category not found.")
			return
		}
		state = state.ToggleCategory(category.Name)
	case strings.HasPrefix(data, "emo:"):
		state = state.ToggleEmotion(strings.TrimPrefix(data, "emo:"))
	case strings.HasPrefix(data, "typ:"):
		state = state.ToggleExpenseType(strings.TrimPrefix(data, "typ:"))
	case strings.HasPrefix(data, "srt:"):
		state.SortBy = finance.SortOption(strings.TrimPrefix(data, "srt:"))
	case strings.HasPrefix(data, "rm:"):
		parts := strings.SplitN(strings.TrimPrefix(data, "rm:"), ":", 2)
		if len(parts) != 2 {
			return
		}
		state = state.RemoveChip(parts[0], parts[1])
	default:
		return
	}

	b.setFilterState(chatID, state)
	b.answerCallback(ctx, tg, update, "")

	text, keyboard, err := b.buildFilterPanel(ctx, user, state)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to rebuild filter panel")
		return
	}

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to update filter panel")
	}
}
