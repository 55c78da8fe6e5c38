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

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const incomeUsage = `Usage:
• <code>/income</code> - Your income sources
• <code>/income add Name amount [monthly|weekly|yearly|one_time]</code>
• <code>/income delete N</code> - Remove source N`

const dependentsUsage = `Usage:
• <code>/dependents</code> - Who depends on your budget
• <code>/dependents add Name relationship monthlyCost</code>
• <code>/dependents delete N</code> - Remove dependent N`

// handleIncome handles the /income command and its subcommands.
func (b *Bot) handleIncome(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleIncomeCore(ctx, tgBot, update)
}

// handleIncomeCore is the testable implementation of handleIncome.
func (b *Bot) handleIncomeCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "income", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/income")
	if args == "" {
		b.sendIncomeList(ctx, tg, chatID, user)
		return
	}

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "add":
		b.addIncomeSource(ctx, tg, chatID, user, fields[1:])
	case "delete":
		b.deleteIncomeSource(ctx, tg, chatID, user, fields[1:])
	default:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      incomeUsage,
			ParseMode: models.ParseModeHTML,
		})
	}
}

// sendIncomeList renders income sources with a normalized monthly total.
func (b *Bot) sendIncomeList(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	sources, err := b.incomeRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch income sources")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch income sources. Please try again."})
		return
	}

	if len(sources) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "💼 No income sources yet.\n\nAdd one: <code>/income add Salary 4200 monthly</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	var sb strings.Builder
	sb.WriteString("💼 <b>Income Sources</b>\n\n")

	monthlyTotal := decimal.Zero
	for i := range sources {
		src := &sources[i]
		monthly := src.MonthlyAmount()
		monthlyTotal = monthlyTotal.Add(monthly)
		sb.WriteString(fmt.Sprintf("<b>%d. %s</b>\n%s%s %s",
			i+1, escapeHTML(src.Name),
			symbol, src.Amount.StringFixed(2), src.Frequency))
		if src.Frequency != appmodels.FrequencyMonthly && !monthly.IsZero() {
			sb.WriteString(fmt.Sprintf(" (≈%s%s/month)", symbol, monthly.StringFixed(2)))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("💰 <b>Monthly total: %s%s</b>\n\n", symbol, monthlyTotal.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Feed it into your budget: <code>/budget income %s</code>", monthlyTotal.StringFixed(2)))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send income list")
	}
}

// addIncomeSource handles "/income add Name amount [frequency]".
func (b *Bot) addIncomeSource(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	usage := "Usage: <code>/income add Name amount [monthly|weekly|yearly|one_time]</code>, e.g. <code>/income add Salary 4200 monthly</code>"

	frequency := appmodels.FrequencyMonthly
	if len(fields) > 0 {
		switch strings.ToLower(fields[len(fields)-1]) {
		case appmodels.FrequencyMonthly, appmodels.FrequencyWeekly, appmodels.FrequencyYearly, appmodels.FrequencyOneTime:
			frequency = strings.ToLower(fields[len(fields)-1])
			fields = fields[:len(fields)-1]
		}
	}
	if len(fields) < 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	source := &appmodels.IncomeSource{
		UserID:    user.ID,
		Name:      strings.Join(fields[:len(fields)-1], " "),
		Amount:    amount,
		Frequency: frequency,
	}
	if err := b.incomeRepo.Create(ctx, source); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to create income source")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save income source. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("💼 <b>%s</b> saved: %s%s %s.",
			escapeHTML(source.Name), symbol, amount.StringFixed(2), frequency),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm income source")
	}
}

// deleteIncomeSource handles "/income delete N".
func (b *Bot) deleteIncomeSource(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	sources, err := b.incomeRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch income sources for delete")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch income sources. Please try again."})
		return
	}

	n, ok := parseListNumber(fields, len(sources))
	if !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("❌ Use the source's number from /income (you have %d).", len(sources)),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	source := &sources[n-1]
	if err := b.incomeRepo.Delete(ctx, source.ID); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to delete income source")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to delete income source. Please try again."})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      "🗑️ Income source <b>" + escapeHTML(source.Name) + "</b> deleted.",
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm income deletion")
	}
}

// handleDependents handles the /dependents command and its subcommands.
func (b *Bot) handleDependents(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDependentsCore(ctx, tgBot, update)
}

// handleDependentsCore is the testable implementation of handleDependents.
func (b *Bot) handleDependentsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "dependents", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/dependents")
	if args == "" {
		b.sendDependentList(ctx, tg, chatID, user)
		return
	}

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "add":
		b.addDependent(ctx, tg, chatID, user, fields[1:])
	case "delete":
		b.deleteDependent(ctx, tg, chatID, user, fields[1:])
	default:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      dependentsUsage,
			ParseMode: models.ParseModeHTML,
		})
	}
}

// sendDependentList renders dependents and their combined monthly cost.
func (b *Bot) sendDependentList(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	deps, err := b.dependentRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch dependents")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch dependents. Please try again."})
		return
	}

	if len(deps) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "👨‍👩‍👧 No dependents recorded.\n\nAdd one: <code>/dependents add Maya daughter 350</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	var sb strings.Builder
	sb.WriteString("👨‍👩‍👧 <b>Dependents</b>\n\n")

	total := decimal.Zero
	for i := range deps {
		dep := &deps[i]
		total = total.Add(dep.MonthlyCost)
		sb.WriteString(fmt.Sprintf("<b>%d. %s</b> (%s)\n%s%s/month\n\n",
			i+1, escapeHTML(dep.Name), escapeHTML(dep.Relationship),
			symbol, dep.MonthlyCost.StringFixed(2)))
	}

	sb.WriteString(fmt.Sprintf("💰 <b>Combined: %s%s/month</b>", symbol, total.StringFixed(2)))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send dependent list")
	}
}

// addDependent handles "/dependents add Name relationship monthlyCost".
func (b *Bot) addDependent(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	usage := "Usage: <code>/dependents add Name relationship monthlyCost</code>, e.g. <code>/dependents add Maya daughter 350</code>"

	if len(fields) < 3 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	cost, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	dep := &appmodels.Dependent{
		UserID:       user.ID,
		Name:         strings.Join(fields[:len(fields)-2], " "),
		Relationship: fields[len(fields)-2],
		MonthlyCost:  cost,
	}
	if err := b.dependentRepo.Create(ctx, dep); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to create dependent")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save dependent. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("👨‍👩‍👧 <b>%s</b> (%s) added at %s%s/month.",
			escapeHTML(dep.Name), escapeHTML(dep.Relationship),
			symbol, cost.StringFixed(2)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm dependent")
	}
}

// deleteDependent handles "/dependents delete N".
func (b *Bot) deleteDependent(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	deps, err := b.dependentRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch dependents for delete")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch dependents. Please try again."})
		return
	}

	n, ok := parseListNumber(fields, len(deps))
	if !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("❌ Use the dependent's number from /dependents (you have %d).", len(deps)),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	dep := &deps[n-1]
	if err := b.dependentRepo.Delete(ctx, dep.ID); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to delete dependent")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to delete dependent. Please try again."})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      "🗑️ Dependent <b>" + escapeHTML(dep.Name) + "</b> removed.",
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm dependent removal")
	}
}

// parseListNumber validates a single 1-based list index argument.
func parseListNumber(fields []string, max int) (int, bool) {
	if len(fields) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}
