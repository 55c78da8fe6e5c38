package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

// maxBillPhotoBytes bounds how large a downloaded bill photo may be.
const maxBillPhotoBytes = 10 << 20

const billsUsage = `Usage:
• <code>/bills</code> - Due and overdue bills
• <code>/bills add Name amount YYYY-MM-DD [recurring]</code>
• <code>/bills paid N</code> - Mark bill N paid
• <code>/bills delete N</code> - Remove bill N
• Send a photo of a bill to scan it`

// handleBills handles the /bills command and its subcommands.
func (b *Bot) handleBills(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBillsCore(ctx, tgBot, update)
}

// handleBillsCore is the testable implementation of handleBills.
func (b *Bot) handleBillsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	defer b.observeCommand(ctx, "bills", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	args := extractCommandArgs(update.Message.Text, "/bills")
	if args == "" {
		b.sendBillList(ctx, tg, chatID, user)
		return
	}

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "add":
		b.addBill(ctx, tg, chatID, user, fields[1:])
	case "paid":
		b.markBillPaid(ctx, tg, chatID, user, fields[1:])
	case "delete":
		b.deleteBill(ctx, tg, chatID, user, fields[1:])
	default:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      billsUsage,
			ParseMode: models.ParseModeHTML,
		})
	}
}

// billDueLine renders "due in N days" / "due today" / "overdue by N days".
func (b *Bot) billDueLine(bill *appmodels.Bill) string {
	days := finance.DaysBetween(time.Now().In(b.displayLocation), bill.DueDate)
	switch {
	case days > 0:
		return fmt.Sprintf("due in %d days (%s)", days, bill.DueDate.Format("Jan 2"))
	case days == 0:
		return "due today"
	default:
		return fmt.Sprintf("⚠️ overdue by %d days (%s)", -days, bill.DueDate.Format("Jan 2"))
	}
}

// sendBillList renders unpaid bills with due-date language, then paid ones.
func (b *Bot) sendBillList(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User) {
	bills, err := b.billRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch bills")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to fetch bills. Please try again."})
		return
	}

	if len(bills) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "🧾 No bills yet.\n\nAdd one: <code>/bills add Rent 1200 2026-09-01</code>, or send a photo of a bill.",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))

	var sb strings.Builder
	sb.WriteString("🧾 <b>Bills</b>\n\n")

	paidCount := 0
	for i := range bills {
		bill := &bills[i]
		if bill.IsPaid {
			paidCount++
			continue
		}
		recurring := ""
		if bill.IsRecurring {
			recurring = " 🔁"
		}
		sb.WriteString(fmt.Sprintf("<b>%d. %s</b>%s\n%s%s · %s\n\n",
			i+1, escapeHTML(bill.Name), recurring,
			symbol, bill.Amount.StringFixed(2), b.billDueLine(bill)))
	}

	if paidCount > 0 {
		sb.WriteString("<b>Paid</b>\n")
		for i := range bills {
			bill := &bills[i]
			if !bill.IsPaid {
				continue
			}
			sb.WriteString(fmt.Sprintf("✅ %d. %s · %s%s\n",
				i+1, escapeHTML(bill.Name), symbol, bill.Amount.StringFixed(2)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("<code>/bills paid N</code> marks a bill paid.")

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send bill list")
	}
}

// addBill handles "/bills add Name amount YYYY-MM-DD [recurring]".
func (b *Bot) addBill(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	usage := "Usage: <code>/bills add Name amount YYYY-MM-DD [recurring]</code>, e.g. <code>/bills add Rent 1200 2026-09-01 recurring</code>"

	recurring := false
	if len(fields) > 0 && strings.EqualFold(fields[len(fields)-1], "recurring") {
		recurring = true
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 3 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}

	dueDate, err := time.Parse("2006-01-02", fields[len(fields)-1])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}
	amount, err := parseAmount(fields[len(fields)-2])
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage, ParseMode: models.ParseModeHTML})
		return
	}
	name := strings.Join(fields[:len(fields)-2], " ")

	bill := &appmodels.Bill{
		UserID:      user.ID,
		Name:        name,
		Amount:      amount,
		Currency:    defaultUserCurrency(user),
		DueDate:     dueDate,
		IsRecurring: recurring,
	}
	if err := b.billRepo.Create(ctx, bill); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to create bill")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save bill. Please try again."})
		return
	}

	symbol := getCurrencyOrCodeSymbol(defaultUserCurrency(user))
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("🧾 <b>%s</b> saved: %s%s, %s.",
			escapeHTML(bill.Name), symbol, amount.StringFixed(2), b.billDueLine(bill)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm bill creation")
	}
}

// markBillPaid handles "/bills paid N".
func (b *Bot) markBillPaid(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	bill, errText := b.billByListNumber(ctx, user.ID, fields)
	if errText != "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errText, ParseMode: models.ParseModeHTML})
		return
	}

	if err := b.billRepo.MarkPaid(ctx, bill.ID, true); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to mark bill paid")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to update bill. Please try again."})
		return
	}

	text := "✅ <b>" + escapeHTML(bill.Name) + "</b> marked paid."
	if bill.IsRecurring {
		// A recurring bill rolls forward a month instead of going quiet.
		next := *bill
		next.DueDate = bill.DueDate.AddDate(0, 1, 0)
		next.IsPaid = false
		if err := b.billRepo.Create(ctx, &next); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to roll recurring bill forward")
		} else {
			text += fmt.Sprintf(" Next one %s.", b.billDueLine(&next))
		}
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm bill payment")
	}
}

// deleteBill handles "/bills delete N".
func (b *Bot) deleteBill(ctx context.Context, tg TelegramAPI, chatID int64, user *appmodels.User, fields []string) {
	bill, errText := b.billByListNumber(ctx, user.ID, fields)
	if errText != "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errText, ParseMode: models.ParseModeHTML})
		return
	}

	if err := b.billRepo.Delete(ctx, bill.ID); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to delete bill")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to delete bill. Please try again."})
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🗑️ Bill <b>" + escapeHTML(bill.Name) + "</b> deleted.",
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm bill deletion")
	}
}

// billByListNumber resolves the 1-based position shown by /bills.
func (b *Bot) billByListNumber(ctx context.Context, userID int64, fields []string) (*appmodels.Bill, string) {
	if len(fields) != 1 {
		return nil, billsUsage
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 {
		return nil, "❌ Use the bill's number from /bills."
	}

	bills, err := b.billRepo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch bills for lookup")
		return nil, "❌ Failed to fetch bills. Please try again."
	}
	if n > len(bills) {
		return nil, fmt.Sprintf("❌ You have %d bills; there is no bill %d.", len(bills), n)
	}
	return &bills[n-1], ""
}

// handleBillPhotoCore downloads a photographed bill, runs the AI
// scanner, and files a draft the user confirms or fixes field by field.
func (b *Bot) handleBillPhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || len(update.Message.Photo) == 0 {
		return
	}
	defer b.observeCommand(ctx, "bill_scan", time.Now())

	chatID := update.Message.Chat.ID
	user, ok := b.requireUser(ctx, tg, chatID, update.Message.From.ID)
	if !ok {
		return
	}

	if b.geminiClient == nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "📸 Bill scanning needs the AI features, which aren't configured. Add the bill manually: <code>/bills add Name amount YYYY-MM-DD</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	// Telegram sends several sizes; the last is the largest.
	photo := update.Message.Photo[len(update.Message.Photo)-1]

	imageBytes, err := b.downloadTelegramFile(ctx, tg, photo.FileID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to download bill photo")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to download the photo. Please try again."})
		return
	}

	scan, err := b.geminiClient.ScanBill(ctx, imageBytes, "image/jpeg")
	if err != nil {
		logger.Log.Warn().Err(err).Str("user", logger.HashUserID(user.ID)).Msg("Bill scan failed")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "🤖 I couldn't read that bill. Add it manually: <code>/bills add Name amount YYYY-MM-DD</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	if b.metrics != nil {
		b.metrics.BillsScanned.Add(ctx, 1)
	}

	bill := &appmodels.Bill{
		UserID:   user.ID,
		Name:     scan.Name,
		Amount:   scan.Amount,
		Currency: defaultUserCurrency(user),
		DueDate:  scan.DueDate,
		Status:   appmodels.BillStatusDraft,
	}
	if !scan.HasName() {
		bill.Name = "Scanned bill"
	}
	if !scan.HasDueDate() {
		bill.DueDate = time.Now().In(b.displayLocation).AddDate(0, 0, 7)
	}

	if err := b.billRepo.Create(ctx, bill); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to save scanned bill draft")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save the scanned bill. Please try again."})
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        b.billDraftText(bill, scan.Confidence),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: billDraftKeyboard(bill.ID),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send bill draft")
	}
}

// downloadTelegramFile fetches a file's bytes via the bot file API.
func (b *Bot) downloadTelegramFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBillPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}

// billDraftText renders the draft card for a scanned bill.
func (b *Bot) billDraftText(bill *appmodels.Bill, confidence float64) string {
	symbol := getCurrencyOrCodeSymbol(bill.Currency)
	confidenceNote := ""
	if confidence > 0 {
		confidenceNote = fmt.Sprintf("\n<i>Scan confidence: %.0f%%</i>", confidence*100)
	}
	return fmt.Sprintf(`📸 <b>Scanned Bill</b> (draft)

🧾 %s
💰 %s%s
⏳ %s%s

Confirm to save, or fix a field first.`,
		escapeHTML(bill.Name),
		symbol, bill.Amount.StringFixed(2),
		b.billDueLine(bill),
		confidenceNote)
}

// billDraftKeyboard builds the confirm/fix/discard keyboard for a draft.
func billDraftKeyboard(billID int) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Confirm", CallbackData: fmt.Sprintf("bill_confirm_%d", billID)},
				{Text: "🗑️ Discard", CallbackData: fmt.Sprintf("bill_discard_%d", billID)},
			},
			{
				{Text: "🧾 Name", CallbackData: fmt.Sprintf("bill_name_%d", billID)},
				{Text: "💰 Amount", CallbackData: fmt.Sprintf("bill_amount_%d", billID)},
				{Text: "⏳ Due date", CallbackData: fmt.Sprintf("bill_due_%d", billID)},
			},
		},
	}
}

// handleBillCallback handles bill_<action>_<id> presses on a draft.
func (b *Bot) handleBillCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBillCallbackCore(ctx, tgBot, update)
}

// handleBillCallbackCore is the testable implementation of
// handleBillCallback.
func (b *Bot) handleBillCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(update.CallbackQuery.Data, "bill_"), "_", 2)
	if len(parts) != 2 {
		return
	}
	action := parts[0]
	billID, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}

	user, err := b.resolveUser(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		b.answerCallback(ctx, tg, update, "Sign in first with /login.")
		return
	}

	bill, err := b.billRepo.GetByID(ctx, billID)
	if err != nil || bill.UserID != user.ID {
		b.answerCallback(ctx, tg, update, "Bill not found.")
		return
	}

	chatID, messageID := callbackMessage(update)
	if chatID == 0 {
		return
	}

	switch action {
	case "confirm":
		bill.Status = appmodels.BillStatusConfirmed
		if err := b.billRepo.Update(ctx, bill); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to confirm bill draft")
			b.answerCallback(ctx, tg, update, "Failed to save. Try again.")
			return
		}
		b.answerCallback(ctx, tg, update, "Bill saved")
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text: fmt.Sprintf("🧾 <b>%s</b> saved: %s%s, %s.",
				escapeHTML(bill.Name),
				getCurrencyOrCodeSymbol(bill.Currency), bill.Amount.StringFixed(2),
				b.billDueLine(bill)),
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to render confirmed bill")
		}
	case "discard":
		if err := b.billRepo.Delete(ctx, bill.ID); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to discard bill draft")
			b.answerCallback(ctx, tg, update, "Failed to discard. Try again.")
			return
		}
		b.answerCallback(ctx, tg, update, "Discarded")
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "🗑️ Scanned bill discarded.",
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to render discarded bill")
		}
	case "name", "amount", "due":
		kinds := map[string]pendingKind{
			"name":   pendingBillName,
			"amount": pendingBillAmount,
			"due":    pendingBillDue,
		}
		prompts := map[string]string{
			"name":   "🧾 Type the biller name:",
			"amount": "💰 Type the amount, e.g. <code>120.50</code>:",
			"due":    "⏳ Type the due date as <code>YYYY-MM-DD</code>:",
		}
		b.setPending(update.CallbackQuery.From.ID, &pendingInput{
			kind:      kinds[action],
			billID:    bill.ID,
			messageID: messageID,
		})
		b.answerCallback(ctx, tg, update, "")
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      prompts[action],
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to show bill field prompt")
		}
	}
}

// applyBillEdit consumes a pending bill-field answer and re-renders the
// draft card.
func (b *Bot) applyBillEdit(ctx context.Context, tg TelegramAPI, chatID, tgUserID int64, input *pendingInput, text string) {
	user, ok := b.requireUser(ctx, tg, chatID, tgUserID)
	if !ok {
		return
	}

	bill, err := b.billRepo.GetByID(ctx, input.billID)
	if err != nil || bill.UserID != user.ID {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Bill not found."})
		return
	}

	switch input.kind {
	case pendingBillName:
		bill.Name = strings.TrimSpace(text)
	case pendingBillAmount:
		amount, err := parseAmount(text)
		if err != nil {
			b.setPending(tgUserID, input)
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      "❌ That doesn't look like an amount. Try <code>120.50</code>.",
				ParseMode: models.ParseModeHTML,
			})
			return
		}
		bill.Amount = amount
	case pendingBillDue:
		due, err := time.Parse("2006-01-02", strings.TrimSpace(text))
		if err != nil {
			b.setPending(tgUserID, input)
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      "❌ Dates look like <code>2026-09-01</code>.",
				ParseMode: models.ParseModeHTML,
			})
			return
		}
		bill.DueDate = due
	}

	if err := b.billRepo.Update(ctx, bill); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to apply bill edit")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Failed to save changes. Please try again."})
		return
	}

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   input.messageID,
		Text:        b.billDraftText(bill, 0),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: billDraftKeyboard(bill.ID),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to re-render bill draft")
	}
}
