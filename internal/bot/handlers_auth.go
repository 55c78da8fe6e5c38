package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/auth"
	"gitlab.com/dafibh/fortuna/internal/logger"
)

// handleSignUp handles the /signup command.
func (b *Bot) handleSignUp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSignUpCore(ctx, tgBot, update)
}

// handleSignUpCore is the testable implementation of handleSignUp.
func (b *Bot) handleSignUpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	tgUserID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/signup"))
	if len(fields) < 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Usage: <code>/signup email password [name]</code>\n\n💡 Tip: delete your message afterwards, it contains your password.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	email, password := fields[0], fields[1]
	displayName := strings.Join(fields[2:], " ")
	if displayName == "" {
		displayName = update.Message.From.FirstName
	}

	user, session, err := b.authService.SignUp(ctx, email, password, displayName)
	if err != nil {
		text := "❌ Failed to create account. Please try again."
		switch {
		case errors.Is(err, auth.ErrInvalidEmail):
			text = "❌ That doesn't look like a valid email address."
		case errors.Is(err, auth.ErrWeakPassword):
			text = fmt.Sprintf("❌ Password must be at least %d characters.", auth.MinPasswordLength)
		case errors.Is(err, auth.ErrEmailTaken):
			text = "❌ An account with that email already exists. Try /login instead."
		default:
			logger.Log.Error().Err(err).Msg("Failed to sign up")
		}
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	if err := b.linkAccount(ctx, tgUserID, chatID, session); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to link telegram account after signup")
	}

	text := fmt.Sprintf(`🎉 <b>Account created</b>

You're signed in as <i>%s</i>. This chat stays signed in until you /logout.

Start tracking right away, e.g. <code>4.50 Coffee</code>
💡 Delete your signup message, it contains your password.`,
		escapeHTML(user.Email))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send signup confirmation")
	}
}

// handleLogin handles the /login command.
func (b *Bot) handleLogin(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleLoginCore(ctx, tgBot, update)
}

// handleLoginCore is the testable implementation of handleLogin.
func (b *Bot) handleLoginCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	tgUserID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/login"))
	if len(fields) != 2 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "Usage: <code>/login email password</code>\n\n💡 Tip: delete your message afterwards, it contains your password.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	user, session, err := b.authService.SignIn(ctx, fields[0], fields[1])
	if err != nil {
		text := "❌ Failed to sign in. Please try again."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			text = "❌ Email or password is incorrect."
		} else {
			logger.Log.Error().Err(err).Msg("Failed to sign in")
		}
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	if err := b.linkAccount(ctx, tgUserID, chatID, session); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to link telegram account after login")
	}

	greeting := user.DisplayName
	if greeting == "" {
		greeting = user.Email
	}

	text := fmt.Sprintf(`✅ <b>Signed in</b>

Welcome back, %s! This chat stays signed in until you /logout.

💡 Delete your login message, it contains your password.`,
		escapeHTML(greeting))

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send login confirmation")
	}
}

// handleLogout handles the /logout command.
func (b *Bot) handleLogout(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleLogoutCore(ctx, tgBot, update)
}

// handleLogoutCore is the testable implementation of handleLogout.
func (b *Bot) handleLogoutCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	tgUserID := update.Message.From.ID

	if _, err := b.resolveUser(ctx, tgUserID); err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "You're not signed in.",
		})
		return
	}

	if err := b.unlinkAccount(ctx, tgUserID); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to unlink account")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to sign out. Please try again.",
		})
		return
	}

	// Per-chat state belongs to the account that just left.
	b.clearPending(tgUserID)
	b.resetFilterState(chatID)

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "👋 Signed out. Your data is safe; sign back in any time with /login.",
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send logout confirmation")
	}
}
