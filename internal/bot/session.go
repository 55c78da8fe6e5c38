package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/auth"
	"gitlab.com/dafibh/fortuna/internal/logger"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// errNotSignedIn means no Fortuna account is linked to the Telegram
// user. Handlers translate it into a sign-in prompt.
var errNotSignedIn = errors.New("not signed in")

// resolveUser maps a Telegram user to their Fortuna account. The hot
// path is the in-memory session token; a persisted telegram link keeps
// the chat signed in across restarts and session expiry.
func (b *Bot) resolveUser(ctx context.Context, telegramUserID int64) (*models.User, error) {
	if token := b.sessionToken(telegramUserID); token != "" {
		_, user, err := b.authService.GetSession(ctx, token)
		if err == nil {
			return user, nil
		}
		// Expired or revoked. Fall back to the persisted link.
		b.dropSessionToken(telegramUserID)
	}

	link, err := b.linkRepo.GetByTelegramUserID(ctx, telegramUserID)
	if err != nil {
		return nil, errNotSignedIn
	}

	user, err := b.userRepo.GetByID(ctx, link.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked account: %w", err)
	}
	return user, nil
}

// requireUser resolves the account and, when none is linked, tells the
// user how to sign in. The bool reports whether a user was resolved.
func (b *Bot) requireUser(ctx context.Context, tg TelegramAPI, chatID, telegramUserID int64) (*models.User, bool) {
	user, err := b.resolveUser(ctx, telegramUserID)
	if err == nil {
		return user, true
	}

	text := "⚠️ Something went wrong. Please try again."
	if errors.Is(err, errNotSignedIn) {
		text = `🔐 You're not signed in.

• <code>/signup email password [name]</code> - Create an account
• <code>/login email password</code> - Sign in`
	} else {
		logger.Log.Error().Err(err).Str("user", logger.HashUserID(telegramUserID)).Msg("Failed to resolve user")
	}

	_, sendErr := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if sendErr != nil {
		logger.Log.Error().Err(sendErr).Msg("Failed to send sign-in prompt")
	}
	return nil, false
}

// sessionToken returns the cached session token for a Telegram user.
func (b *Bot) sessionToken(telegramUserID int64) string {
	b.sessionsMu.RLock()
	defer b.sessionsMu.RUnlock()
	return b.sessions[telegramUserID]
}

func (b *Bot) storeSessionToken(telegramUserID int64, token string) {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	b.sessions[telegramUserID] = token
}

func (b *Bot) dropSessionToken(telegramUserID int64) {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	delete(b.sessions, telegramUserID)
}

// linkAccount persists the Telegram binding and caches the session.
func (b *Bot) linkAccount(ctx context.Context, telegramUserID, chatID int64, session *models.Session) error {
	if err := b.linkRepo.Save(ctx, &models.TelegramLink{
		TelegramUserID: telegramUserID,
		ChatID:         chatID,
		UserID:         session.UserID,
	}); err != nil {
		return fmt.Errorf("failed to save telegram link: %w", err)
	}
	b.storeSessionToken(telegramUserID, session.Token)
	return nil
}

// unlinkAccount signs the session out and removes the binding.
func (b *Bot) unlinkAccount(ctx context.Context, telegramUserID int64) error {
	if token := b.sessionToken(telegramUserID); token != "" {
		if err := b.authService.SignOut(ctx, token); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to sign out session")
		}
		b.dropSessionToken(telegramUserID)
	}
	if err := b.linkRepo.Delete(ctx, telegramUserID); err != nil {
		return fmt.Errorf("failed to remove telegram link: %w", err)
	}
	return nil
}

// restoreLinks logs how many chats stay signed in from a previous run.
func (b *Bot) restoreLinks(ctx context.Context) error {
	links, err := b.linkRepo.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load telegram links: %w", err)
	}
	logger.Log.Info().Int("links", len(links)).Msg("Restored signed-in chats")
	return nil
}

// onSessionChange observes auth events for metrics and logging.
func (b *Bot) onSessionChange(change auth.Change) {
	switch change.Event {
	case auth.EventSignedIn:
		if b.metrics != nil {
			b.metrics.SignIns.Add(context.Background(), 1)
		}
		logger.Log.Debug().Str("user", logger.HashUserID(change.UserID)).Msg("Session started")
	case auth.EventSignedOut:
		logger.Log.Debug().Str("user", logger.HashUserID(change.UserID)).Msg("Session ended")
	}
}
