package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// handleConvert handles the /convert command.
func (b *Bot) handleConvert(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleConvertCore(ctx, tgBot, update)
}

// handleConvertCore converts an amount between two currencies at the
// current rate, e.g. "/convert 100 USD EUR".
func (b *Bot) handleConvertCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "convert", time.Now())

	chatID := update.Message.Chat.ID
	usage := "Usage: <code>/convert 100 USD EUR</code>"

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/convert"))
	if len(fields) != 3 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	amount, err := parseAmount(fields[0])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	from := normalizeCurrencyCode(fields[1])
	to := normalizeCurrencyCode(fields[2])
	for _, code := range []string{from, to} {
		if _, ok := appmodels.SupportedCurrencies[code]; !ok {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      fmt.Sprintf("❌ Unknown currency <code>%s</code>. See /currency for the supported list.", escapeHTML(code)),
				ParseMode: models.ParseModeHTML,
			})
			return
		}
	}

	if from == to {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("💱 %s %s is, well, %s %s.", amount.StringFixed(2), from, amount.StringFixed(2), to),
		})
		return
	}

	result, err := b.converter.Convert(ctx, amount, from, to)
	if err != nil {
		logger.Log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Currency conversion failed")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Exchange rates are unavailable right now. Please try again later."})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("💱 %s %s = <b>%s %s</b>\n<i>Rate %s as of %s</i>",
			amount.StringFixed(2), from,
			result.Amount.StringFixed(2), to,
			result.Rate.StringFixed(4), result.RateDate.Format("2006-01-02")),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send conversion result")
	}
}

// handleCurrency handles the /currency command.
func (b *Bot) handleCurrency(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCurrencyCore(ctx, tgBot, update)
}

// handleCurrencyCore shows or changes the account's default currency.
// New expenses are converted into it on save.
func (b *Bot) handleCurrencyCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "currency", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/currency")
	if args == "" {
		codes := make([]string, 0, len(appmodels.SupportedCurrencies))
		for code := range appmodels.SupportedCurrencies {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("💱 Your default currency is <b>%s</b>.\n\nSupported: %s\n\nChange it with <code>/currency EUR</code>.",
				defaultUserCurrency(user), strings.Join(codes, ", ")),
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send currency info")
		}
		return
	}

	code := normalizeCurrencyCode(args)
	if _, ok := appmodels.SupportedCurrencies[code]; !ok {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("❌ Unknown currency <code>%s</code>. See /currency for the supported list.", escapeHTML(code)),
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	if err := b.userRepo.UpdateDefaultCurrency(ctx, user.ID, code); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to update default currency")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to change currency. Please try again."})
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ Default currency set to <b>%s</b>. New expenses in other currencies will be converted into it.",
			code),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm currency change")
	}
}
