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
	"gitlab.com/dafibh/fortuna/internal/gemini"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const goalsUsage = `Usage:
• <code>/goals</code> - List goals and progress
• <code>/goals add Name target [YYYY-MM-DD]</code> - New goal
• <code>/goals save N amount</code> - Contribute to goal N
• <code>/goals pause N</code> / <code>/goals resume N</code> / <code>/goals cancel N</code>`

// handleGoals handles the /goals command and its subcommands.
func (b *Bot) handleGoals(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleGoalsCore(ctx, tgBot, update)
}

// handleGoalsCore is the testable implementation of handleGoals.
func (b *Bot) handleGoalsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "goals", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/goals")
	if args == "" {
		b.sendGoalList(ctx, tg, chatID, user)
		return
	}

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "add":
		b.addGoal(ctx, tg, chatID, user, fields[1:])
	case "save":
		b.contributeToGoal(ctx, tg, chatID, user, fields[1:])
	case "pause":
		b.setGoalStatus(ctx, tg, chatID, user, fields[1:], appmodels.GoalStatusPaused, "⏸️ Goal paused.")
	case "resume":
		b.setGoalStatus(ctx, tg, chatID, user, fields[1:], appmodels.GoalStatusActive, "▶️ Goal resumed.")
	case "cancel":
		b.setGoalStatus(ctx, tg, chatID, user, fields[1:], appmodels.GoalStatusCancelled, "🚫 Goal cancelled.")
	default:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      goalsUsage,
			ParseMode: models.ParseModeHTML,
		})
	}
}

// sendGoalList renders every goal with its progress and, when the AI
// estimator produced one, a confidence trend label. No estimate means
// no label.
func (b *Bot) sendGoalList(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	goals, err := b.goalRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch goals")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch goals. Please try again."})
		return
	}

	if len(goals) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "🎯 No savings goals yet.\n\nCreate one: <code>/goals add Vacation 5000 2026-12-31</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	monthlySavings := b.monthlySavings(ctx, user.ID)

	var sb strings.Builder
	sb.WriteString("🎯 <b>Savings Goals</b>\n\n")

	for i := range goals {
		goal := &goals[i]

		var confidence *float64
		if b.geminiClient != nil && goal.Status == appmodels.GoalStatusActive {
			confidence = b.estimateGoalConfidence(ctx, goal, monthlySavings)
		}
		progress := finance.ClassifyGoal(goal, confidence)

		statusNote := ""
		switch goal.Status {
		case appmodels.GoalStatusPaused:
			statusNote = " (paused)"
		case appmodels.GoalStatusCompleted:
			statusNote = " 🏆"
		case appmodels.GoalStatusCancelled:
			statusNote = " (cancelled)"
		}

		sb.WriteString(fmt.Sprintf("<b>%d. %s</b>%s\n", i+1, escapeHTML(goal.Name), statusNote))
		sb.WriteString(fmt.Sprintf("%s %s%%\n", progressBar(progress.UtilizationPercent.InexactFloat64()),
			progress.UtilizationPercent.StringFixed(1)))
		sb.WriteString(fmt.Sprintf("%s%s of %s%s",
			symbol, goal.CurrentAmount.StringFixed(2),
			symbol, goal.TargetAmount.StringFixed(2)))
		if goal.Remaining().IsPositive() {
			sb.WriteString(fmt.Sprintf(" · %s%s to go", symbol, goal.Remaining().StringFixed(2)))
		}
		sb.WriteString("\n")

		if goal.Deadline != nil {
			days := finance.DaysBetween(time.Now().In(b.displayLocation), *goal.Deadline)
			switch {
			case days > 0:
				sb.WriteString(fmt.Sprintf("⏳ %s · %d days left", goal.Deadline.Format("Jan 2, 2006"), days))
			case days == 0:
				sb.WriteString("⏳ Due today")
			default:
				sb.WriteString(fmt.Sprintf("⏳ Overdue by %d days", -days))
			}
			sb.WriteString("\n")
		}

		if label := trendLabel(progress.TrendLabel); label != "" {
			sb.WriteString(label + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("<code>/goals save N amount</code> records a contribution.")

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send goal list")
	}
}

// monthlySavings reads this month's recorded savings for the confidence
// estimator. Zero when no budget exists yet.
func (b *Bot) monthlySavings(ctx context.Context, userID int64) decimal.Decimal {
	now := time.Now().In(b.displayLocation)
	budget, err := b.budgetRepo.GetByUserAndMonth(ctx, userID, now.Year(), int(now.Month()), now)
	if err != nil {
		return decimal.Zero
	}
	return budget.SavingsActual
}

// estimateGoalConfidence asks the AI estimator for a 0-1 confidence.
// Any failure returns nil: the goal renders without a trend label
// rather than with an invented one.
func (b *Bot) estimateGoalConfidence(ctx context.Context, goal *appmodels.Goal, savings decimal.Decimal) *float64 {
	monthsRemaining := 0
	if goal.Deadline != nil {
		days := finance.DaysBetween(time.Now().In(b.displayLocation), *goal.Deadline)
		if days > 0 {
			monthsRemaining = (days + 29) / 30
		}
	}

	estimate, err := b.geminiClient.EstimateGoalConfidence(ctx, gemini.GoalSnapshot{
		Name:            goal.Name,
		TargetAmount:    goal.TargetAmount,
		CurrentAmount:   goal.CurrentAmount,
		MonthlySavings:  savings,
		MonthsRemaining: monthsRemaining,
	})
	if err != nil {
		logger.Log.Debug().Err(err).Str("user", logger.HashUserID(goal.UserID)).Msg("Goal confidence estimate unavailable")
		return nil
	}
	return &estimate.Confidence
}

// addGoal handles "/goals add Name target [deadline]".
func (b *Bot) addGoal(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	usage := "Usage: <code>/goals add Name target [YYYY-MM-DD]</code>, e.g. <code>/goals add Vacation 5000 2026-12-31</code>"
	if len(fields) < 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	var deadline *time.Time
	if parsed, err := time.Parse("2006-01-02", fields[len(fields)-1]); err == nil {
		deadline = &parsed
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	target, err := parseAmount(fields[len(fields)-1])
	if err != nil || target.IsZero() {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}
	name := strings.Join(fields[:len(fields)-1], " ")

	goal := &appmodels.Goal{
		UserID:       user.ID,
		Name:         name,
		TargetAmount: target,
		Deadline:     deadline,
	}
	if err := b.goalRepo.Create(ctx, goal); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to create goal")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to create goal. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	text := fmt.Sprintf("🎯 Goal <b>%s</b> created: %s%s target", escapeHTML(goal.Name), symbol, target.StringFixed(2))
	if deadline != nil {
		text += " by " + deadline.Format("Jan 2, 2006")
	}
	text += ". /goals tracks progress."

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm goal creation")
	}
}

// contributeToGoal handles "/goals save N amount".
func (b *Bot) contributeToGoal(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	usage := "Usage: <code>/goals save N amount</code>, e.g. <code>/goals save 1 250</code>"
	if len(fields) != 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	goal, errText := b.goalByListNumber(ctx, user.ID, fields[0])
	if errText != "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errText, ParseMode: models.ParseModeHTML})
		return
	}

	amount, err := parseAmount(fields[1])
	if err != nil || amount.IsZero() {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	newTotal, err := b.goalRepo.Contribute(ctx, goal.ID, amount)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record goal contribution")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save contribution. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	text := fmt.Sprintf("💸 %s%s added to <b>%s</b>: now %s%s of %s%s.",
		symbol, amount.StringFixed(2), escapeHTML(goal.Name),
		symbol, newTotal.StringFixed(2), symbol, goal.TargetAmount.StringFixed(2))

	if newTotal.GreaterThanOrEqual(goal.TargetAmount) && goal.Status == appmodels.GoalStatusActive {
		if err := b.goalRepo.SetStatus(ctx, goal.ID, appmodels.GoalStatusCompleted); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to mark goal completed")
		} else {
			text += "\n\n🏆 <b>Goal reached!</b>"
		}
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm goal contribution")
	}
}

// setGoalStatus handles pause/resume/cancel.
func (b *Bot) setGoalStatus(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string, status, confirmation string) {
	if len(fields) != 1 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: goalsUsage, ParseMode: models.ParseModeHTML})
		return
	}

	goal, errText := b.goalByListNumber(ctx, user.ID, fields[0])
	if errText != "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errText, ParseMode: models.ParseModeHTML})
		return
	}

	if err := b.goalRepo.SetStatus(ctx, goal.ID, status); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to set goal status")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to update goal. Please try again."})
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   confirmation + " " + escapeHTML(goal.Name),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm goal status change")
	}
}

// goalByListNumber resolves the 1-based position shown by /goals.
func (b *Bot) goalByListNumber(ctx context.Context, userID int64, arg string) (*appmodels.Goal, string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return nil, "❌ Use the goal's number from /goals, e.g. <code>/goals save 1 250</code>."
	}

	goals, err := b.goalRepo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch goals for lookup")
		return nil, "❌ Failed to fetch goals. Please try again."
	}
	if n > len(goals) {
		return nil, fmt.Sprintf("❌ You have %d goals; there is no goal %d.", len(goals), n)
	}
	return &goals[n-1], ""
}
