package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const budgetUsage = `Usage:
• <code>/budget</code> - This month's progress
• <code>/budget set Category amount</code> - Allocate for this month
• <code>/budget income amount</code> - Record expected income
• <code>/budget savings amount</code> - Set the savings target
• <code>/budget saved amount</code> - Record actual savings
• <code>/budget buffer amount</code> - Set the emergency buffer`

// handleBudget handles the /budget command and its subcommands.
func (b *Bot) handleBudget(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBudgetCore(ctx, tgBot, update)
}

// handleBudgetCore is the testable implementation of handleBudget.
func (b *Bot) handleBudgetCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "budget", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/budget")
	if args == "" {
		b.sendBudgetOverview(ctx, tg, chatID, user)
		return
	}

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "set":
		b.setBudgetAllocation(ctx, tg, chatID, user, fields[1:])
	case "income", "savings", "saved", "buffer":
		b.setBudgetFinancial(ctx, tg, chatID, user, strings.ToLower(fields[0]), fields[1:])
	default:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      budgetUsage,
			ParseMode: models.ParseModeHTML,
		})
	}
}

// currentBudget loads this month's fully composed budget, creating the
// row on first touch.
func (b *Bot) currentBudget(ctx context.Context, userID int64) (*appmodels.Budget, error) {
	now := time.Now().In(b.displayLocation)
	if _, err := b.budgetRepo.GetOrCreate(ctx, userID, now.Year(), int(now.Month())); err != nil {
		return nil, err
	}
	return b.budgetRepo.GetByUserAndMonth(ctx, userID, now.Year(), int(now.Month()), now)
}

// sendBudgetOverview renders the month's budget: overall pace, each
// allocation's utilization bar, and the savings line.
func (b *Bot) sendBudgetOverview(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	budget, err := b.currentBudget(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load budget")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to load your budget. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	if len(budget.Allocations) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf(`💰 <b>Budget - %s</b>

No allocations yet. Spent so far: %s%s

Start with <code>/budget set Groceries 400</code>.`,
				monthLabel(budget.Year, budget.Month), symbol, budget.TotalSpent.StringFixed(2)),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	overall := finance.ClassifyBudget(budget)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💰 <b>Budget - %s</b> %s\n\n", monthLabel(budget.Year, budget.Month), statusEmoji(overall.Status)))
	sb.WriteString(fmt.Sprintf("%s %s%%\n", progressBar(overall.UtilizationPercent.InexactFloat64()), overall.UtilizationPercent.StringFixed(1)))
	sb.WriteString(fmt.Sprintf("Spent %s%s of %s%s · %s left\n",
		symbol, budget.TotalSpent.StringFixed(2),
		symbol, budget.TotalAllocated.StringFixed(2),
		finance.FormatAmount(symbol, overall.Remaining)))
	sb.WriteString(fmt.Sprintf("Day %d of %d · %s%s/day to stay on budget\n\n",
		budget.DaysElapsed, budget.TotalDays, symbol, overall.DailyBudget.StringFixed(2)))

	for _, alloc := range budget.Allocations {
		status := finance.ClassifyAllocation(alloc)
		sb.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n%s %s%s / %s%s\n",
			alloc.Icon, escapeHTML(alloc.CategoryName), statusEmoji(status.Status),
			progressBar(status.UtilizationPercent.InexactFloat64()),
			symbol, alloc.SpentAmount.StringFixed(2),
			symbol, alloc.AllocatedAmount.StringFixed(2)))
	}

	if !budget.SavingsTarget.IsZero() || !budget.SavingsActual.IsZero() {
		sb.WriteString(fmt.Sprintf("\n🏦 Savings: %s%s of %s%s target\n",
			symbol, budget.SavingsActual.StringFixed(2),
			symbol, budget.SavingsTarget.StringFixed(2)))
	}
	if !budget.EmergencyBuffer.IsZero() {
		sb.WriteString(fmt.Sprintf("🛟 Emergency buffer: %s%s\n", symbol, budget.EmergencyBuffer.StringFixed(2)))
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send budget overview")
	}
}

// setBudgetAllocation handles "/budget set Category amount". The
// category name may be partial or typoed; the fuzzy matcher resolves it.
func (b *Bot) setBudgetAllocation(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	if len(fields) < 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Usage: <code>/budget set Category amount</code>, e.g. <code>/budget set Groceries 400</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "❌ The last word must be the amount, e.g. <code>/budget set Groceries 400</code>.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}
	categoryName := strings.Join(fields[:len(fields)-1], " ")

	categories, err := b.categories(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load categories for budget set")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save allocation. Please try again."})
		return
	}

	category := MatchCategory(categoryName, categories)
	if category == nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("❌ No category matches %q. /categories lists them.", categoryName),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	now := time.Now().In(b.displayLocation)
	budget, err := b.budgetRepo.GetOrCreate(ctx, user.ID, now.Year(), int(now.Month()))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to get or create budget")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save allocation. Please try again."})
		return
	}

	if err := b.budgetRepo.SetAllocation(ctx, budget.ID, category.ID, amount); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to set budget allocation")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save allocation. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ %s %s allocated %s%s for %s. /budget shows progress.",
			category.Icon, escapeHTML(category.Name), symbol, amount.StringFixed(2),
			monthLabel(now.Year(), int(now.Month()))),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm budget allocation")
	}
}

// setBudgetFinancial handles the income/savings/saved/buffer figures.
func (b *Bot) setBudgetFinancial(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, field string, fields []string) {
	if len(fields) != 1 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("Usage: <code>/budget %s amount</code>", field),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	amount, err := parseAmount(fields[0])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "❌ That doesn't look like an amount. Try <code>/budget " + field + " 500</code>.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	budget, err := b.currentBudget(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load budget for financial update")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save. Please try again."})
		return
	}

	var label string
	switch field {
	case "income":
		budget.TotalIncome = amount
		label = "Expected income"
	case "savings":
		budget.SavingsTarget = amount
		label = "Savings target"
	case "saved":
		budget.SavingsActual = amount
		label = "Savings so far"
	case "buffer":
		budget.EmergencyBuffer = amount
		label = "Emergency buffer"
	}

	if err := b.budgetRepo.UpdateFinancials(ctx, budget); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to update budget financials")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ %s set to %s%s for %s.",
			label, symbol, amount.StringFixed(2), monthLabel(budget.Year, budget.Month)),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm budget financial update")
	}
}

// handleRule handles the /rule command: the 50/30/20 check.
func (b *Bot) handleRule(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRuleCore(ctx, tgBot, update)
}

// handleRuleCore is the testable implementation of handleRule.
func (b *Bot) handleRuleCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "rule", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	budget, err := b.currentBudget(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load budget for rule check")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to load your budget. Please try again."})
		return
	}

	breakdown := finance.AnalyzeBudgetRule(budget)
	total := breakdown.NeedsAmount.Add(breakdown.WantsAmount).Add(breakdown.SavingsAmount)
	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	if total.IsZero() {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf(`⚖️ <b>50/30/20 - %s</b>

Nothing recorded against allocated categories yet this month.
Allocate with <code>/budget set Category amount</code>, record savings with <code>/budget saved amount</code>, and check back.`,
				monthLabel(budget.Year, budget.Month)),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	ruleLine := func(name string, amount, percent decimal.Decimal, target string, ok bool) string {
		return fmt.Sprintf("%s <b>%s</b> %s%s (%s%%, target %s)\n%s\n",
			onTargetMark(ok), name, symbol, amount.StringFixed(2),
			percent.StringFixed(1), target,
			progressBar(percent.InexactFloat64()))
	}

	text := fmt.Sprintf(`⚖️ <b>50/30/20 - %s</b>

%s%s%s
Needs are essential categories, wants the rest, savings what you set aside. Targets allow some slack around the nominal 50/30/20 split.`,
		monthLabel(budget.Year, budget.Month),
		ruleLine("Needs", breakdown.NeedsAmount, breakdown.NeedsPercent, "≤ 55", breakdown.NeedsOnTarget),
		ruleLine("Wants", breakdown.WantsAmount, breakdown.WantsPercent, "≤ 35", breakdown.WantsOnTarget),
		ruleLine("Savings", breakdown.SavingsAmount, breakdown.SavingsPercent, "≥ 18", breakdown.SavingsOnTarget))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send rule breakdown")
	}
}
