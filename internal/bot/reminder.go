package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

const (
	// ReminderCheckInterval is how often the reminder loop wakes up.
	ReminderCheckInterval = 30 * time.Minute
	// ReminderTimeout bounds a single reminder sweep.
	ReminderTimeout = 2 * time.Minute
	// ReminderHorizon is how far ahead a bill counts as "due soon".
	ReminderHorizon = 3 * 24 * time.Hour
)

// startReminderLoop runs the periodic loop that nudges linked chats
// about bills due within the horizon and sweeps expired scan drafts.
func (b *Bot) startReminderLoop(ctx context.Context) {
	if !b.cfg.BillRemindersEnabled {
		logger.Log.Info().Msg("Bill reminders are disabled")
		return
	}

	logger.Log.Info().
		Int("hour", b.cfg.ReminderHour).
		Str("timezone", b.cfg.ReminderTimezone).
		Msg("Bill reminder loop started")

	reminded := make(map[int64]string)
	ticker := time.NewTicker(ReminderCheckInterval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Bill reminder loop stopped")
		return
	default:
	}

	// Check once immediately so a restart during the reminder hour
	// doesn't skip that day.
	b.checkAndSendReminders(ctx, reminded, time.Now().In(b.displayLocation))

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Bill reminder loop stopped")
			return
		case <-ticker.C:
			b.checkAndSendReminders(ctx, reminded, time.Now().In(b.displayLocation))
		}
	}
}

// checkAndSendReminders sends one reminder per linked chat per day
// listing that user's due-soon bills. The reminded map tracks which
// chats were already notified today.
func (b *Bot) checkAndSendReminders(ctx context.Context, reminded map[int64]string, now time.Time) {
	if now.Hour() != b.cfg.ReminderHour {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, ReminderTimeout)
	defer cancel()

	todayStr := now.Format("2006-01-02")

	// Prune entries from previous days so the map doesn't grow unbounded.
	for chatID, dateStr := range reminded {
		if dateStr != todayStr {
			delete(reminded, chatID)
		}
	}

	// Drafts the user never confirmed expire alongside the daily sweep.
	if deleted, err := b.billRepo.DeleteExpiredDrafts(checkCtx, b.cfg.DraftTTL); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to sweep expired bill drafts")
	} else if deleted > 0 {
		logger.Log.Debug().Int("deleted", deleted).Msg("Swept expired bill drafts")
	}

	links, err := b.linkRepo.All(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch telegram links for reminders")
		return
	}

	for _, link := range links {
		if reminded[link.ChatID] == todayStr {
			continue
		}

		bills, err := b.billRepo.GetUpcoming(checkCtx, link.UserID, now.Add(ReminderHorizon))
		if err != nil {
			logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(link.UserID)).Msg("Failed to fetch upcoming bills")
			continue
		}
		if len(bills) == 0 {
			reminded[link.ChatID] = todayStr
			continue
		}

		_, err = b.messageSender.SendMessage(checkCtx, &tgbot.SendMessageParams{
			ChatID:    link.ChatID,
			Text:      b.reminderText(bills, now),
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(link.UserID)).Msg("Failed to send bill reminder")
			continue
		}

		reminded[link.ChatID] = todayStr
		logger.Log.Debug().Str("user_hash", logger.HashUserID(link.UserID)).Int("bills", len(bills)).Msg("Sent bill reminder")
	}
}

// reminderText renders the due-soon digest for one user.
func (b *Bot) reminderText(bills []appmodels.Bill, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>Bill Reminder</b>\n\n")

	for i := range bills {
		bill := &bills[i]
		symbol := getCurrencyOrCodeSymbol(bill.Currency)
		days := finance.DaysBetween(now, bill.DueDate)
		var when string
		switch {
		case days > 0:
			when = fmt.Sprintf("due in %d days", days)
		case days == 0:
			when = "due today"
		default:
			when = fmt.Sprintf("⚠️ overdue by %d days", -days)
		}
		sb.WriteString(fmt.Sprintf("• <b>%s</b> · %s%s, %s\n",
			escapeHTML(bill.Name), symbol, bill.Amount.StringFixed(2), when))
	}

	sb.WriteString("\nMark one paid with <code>/bills paid N</code>.")
	return sb.String()
}
