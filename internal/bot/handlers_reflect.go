package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/gemini"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// handleReflect handles the /reflect command.
func (b *Bot) handleReflect(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReflectCore(ctx, tgBot, update)
}

// handleReflectCore starts the guided monthly reflection, or lists past
// reflections for "/reflect list".
func (b *Bot) handleReflectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "reflect", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	if strings.EqualFold(extractCommandArgs(update.Message.Text, "/reflect"), "list") {
		b.sendReflectionHistory(ctx, tg, chatID, user)
		return
	}

	now := time.Now().In(b.displayLocation)
	b.setPending(update.Message.From.ID, &pendingInput{kind: pendingReflectWell})

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("🪞 <b>%s Reflection</b>\n\nWhat went well with your money this month?",
			monthLabel(now.Year(), int(now.Month()))),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to start reflection")
	}
}

// sendReflectionHistory renders the last few monthly reflections.
func (b *Bot) sendReflectionHistory(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	reflections, err := b.reflectionRepo.GetRecent(ctx, user.ID, 3)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch reflections")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch reflections. Please try again."})
		return
	}

	if len(reflections) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "🪞 No reflections yet. Start one with /reflect.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("🪞 <b>Past Reflections</b>\n\n")
	for i := range reflections {
		refl := &reflections[i]
		sb.WriteString(fmt.Sprintf("<b>%s</b>", monthLabel(refl.Year, refl.Month)))
		if refl.TopEmotion != "" {
			sb.WriteString(" · " + emotionLabel(refl.TopEmotion))
		}
		sb.WriteString("\n")
		if refl.WentWell != "" {
			sb.WriteString("👍 " + escapeHTML(refl.WentWell) + "\n")
		}
		if refl.ToImprove != "" {
			sb.WriteString("🔧 " + escapeHTML(refl.ToImprove) + "\n")
		}
		if refl.Insight != "" {
			sb.WriteString("💡 <i>" + escapeHTML(refl.Insight) + "</i>\n")
		}
		sb.WriteString("\n")
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send reflection history")
	}
}

// applyReflectAnswer consumes one step of the guided reflection. The
// first answer re-arms the prompt for the second; the second persists
// both and asks for the month's dominant money mood.
func (b *Bot) applyReflectAnswer(ctx context.Context, tg TelegramAPI, chatID, tgUserID int64, input *pendingInput, text string) {
	user, ok := b.requireUser(ctx, tg, chatID, tgUserID)
	if !ok {
		return
	}

	text = strings.TrimSpace(text)

	if input.kind == pendingReflectWell {
		b.setPending(tgUserID, &pendingInput{kind: pendingReflectImprove, wentWell: text})
		_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "And what would you do differently next month?",
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send second reflection prompt")
		}
		return
	}

	now := time.Now().In(b.displayLocation)
	refl := &appmodels.Reflection{
		UserID:    user.ID,
		Year:      now.Year(),
		Month:     int(now.Month()),
		WentWell:  input.wentWell,
		ToImprove: text,
	}
	if err := b.reflectionRepo.Upsert(ctx, refl); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to save reflection")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save reflection. Please try again."})
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "One last thing: which mood ruled your spending this month?",
		ReplyMarkup: reflectEmotionKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send reflection emotion prompt")
	}
}

// reflectEmotionKeyboard builds the refl_<emotion> picker.
func reflectEmotionKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, emotion := range appmodels.Emotions {
		row = append(row, models.InlineKeyboardButton{
			Text:         emotionLabel(emotion),
			CallbackData: "refl_" + emotion,
		})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleReflectEmotionCallback handles refl_<emotion> presses.
func (b *Bot) handleReflectEmotionCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReflectEmotionCallbackCore(ctx, tgBot, update)
}

// handleReflectEmotionCallbackCore finishes the reflection: records the
// dominant emotion and, when AI features are on, attaches a generated
// insight over the month's aggregates.
func (b *Bot) handleReflectEmotionCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	emotion := strings.TrimPrefix(update.CallbackQuery.Data, "refl_")
	if _, ok := emotionEmoji[emotion]; !ok {
		return
	}

	user, err := b.resolveUser(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		b.answerCallback(ctx, tg, update, "Sign in first with /login.")
		return
	}

	now := time.Now().In(b.displayLocation)
	refl, err := b.reflectionRepo.GetByUserAndMonth(ctx, user.ID, now.Year(), int(now.Month()))
	if err != nil {
		b.answerCallback(ctx, tg, update, "Start with /reflect first.")
		return
	}

	refl.TopEmotion = emotion
	if err := b.reflectionRepo.Upsert(ctx, refl); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record reflection emotion")
		b.answerCallback(ctx, tg, update, "Failed to save. Try again.")
		return
	}
	b.answerCallback(ctx, tg, update, "")

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	insight := b.generateReflectionInsight(ctx, user, refl, now)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🪞 <b>%s Reflection</b> saved\n\n", monthLabel(refl.Year, refl.Month)))
	sb.WriteString("👍 " + escapeHTML(refl.WentWell) + "\n")
	sb.WriteString("🔧 " + escapeHTML(refl.ToImprove) + "\n")
	sb.WriteString("Mood: " + emotionLabel(emotion) + "\n")
	if insight != "" {
		sb.WriteString("\n💡 <i>" + escapeHTML(insight) + "</i>\n")
	}
	sb.WriteString("\nSee past months with <code>/reflect list</code>.")

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render finished reflection")
	}
}

// generateReflectionInsight builds the month digest and asks the AI for
// an observation. Failures degrade to an empty insight.
func (b *Bot) generateReflectionInsight(ctx context.Context, user *appmodels.User, refl *appmodels.Reflection, now time.Time) string {
	if b.geminiClient == nil {
		return ""
	}

	start := time.Date(refl.Year, time.Month(refl.Month), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	total, err := b.expenseRepo.GetTotalByUserIDAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to total month for reflection insight")
		return ""
	}
	categoryTotals, err := b.expenseRepo.GetCategoryTotals(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to aggregate categories for reflection insight")
		return ""
	}
	emotionSummaries, err := b.expenseRepo.GetEmotionSummary(ctx, user.ID, start, end)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to aggregate emotions for reflection insight")
		return ""
	}

	digest := gemini.ReflectionDigest{
		MonthLabel: monthLabel(refl.Year, refl.Month),
		TotalSpent: symbol + total.StringFixed(2),
		WentWell:   refl.WentWell,
		ToImprove:  refl.ToImprove,
	}
	for _, ct := range categoryTotals {
		name := ct.Name
		if name == "" {
			name = "Uncategorized"
		}
		digest.CategoryLines = append(digest.CategoryLines,
			fmt.Sprintf("%s: %s%s", name, symbol, ct.Total.StringFixed(2)))
	}
	for _, es := range emotionSummaries {
		digest.EmotionLines = append(digest.EmotionLines,
			fmt.Sprintf("%s: %d expenses", es.Emotion, es.Count))
	}

	insight, err := b.geminiClient.GenerateReflectionInsight(ctx, digest)
	if err != nil {
		logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(user.ID)).Msg("Reflection insight generation failed")
		return ""
	}

	if err := b.reflectionRepo.SetInsight(ctx, refl.ID, insight); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to persist reflection insight")
	}
	return insight
}
