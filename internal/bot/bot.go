// Package bot provides the Telegram surface of the Fortuna finance
// tracker: command handlers, inline keyboards, and the bill reminder
// loop.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/dafibh/fortuna/internal/auth"
	"gitlab.com/dafibh/fortuna/internal/config"
	"gitlab.com/dafibh/fortuna/internal/exchange"
	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/gemini"
	"gitlab.com/dafibh/fortuna/internal/logger"
	"gitlab.com/dafibh/fortuna/internal/models"
	"gitlab.com/dafibh/fortuna/internal/repository"
	"gitlab.com/dafibh/fortuna/internal/telemetry"
)

// categoryCacheTTL bounds how long the category list is served from
// memory before the next read refetches it.
const categoryCacheTTL = 5 * time.Minute

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot *bot.Bot
	cfg *config.Config

	authService auth.Service

	userRepo       *repository.UserRepository
	linkRepo       *repository.TelegramLinkRepository
	categoryRepo   *repository.CategoryRepository
	expenseRepo    *repository.ExpenseRepository
	budgetRepo     *repository.BudgetRepository
	goalRepo       *repository.GoalRepository
	billRepo       *repository.BillRepository
	incomeRepo     *repository.IncomeRepository
	dependentRepo  *repository.DependentRepository
	reflectionRepo *repository.ReflectionRepository

	geminiClient *gemini.Client
	converter    exchange.Converter
	metrics      *telemetry.Metrics

	// messageSender is the API the reminder loop sends through. It is
	// the real bot in production and a mock in tests.
	messageSender TelegramAPI

	// httpClient downloads bill photos from Telegram's file API.
	httpClient *http.Client

	// displayLocation is the timezone expense timestamps render in.
	displayLocation *time.Location

	// sessions maps a Telegram user to their session token.
	sessionsMu sync.RWMutex
	sessions   map[int64]string

	// pending maps a Telegram user to the prompt their next free-text
	// message answers.
	pendingMu sync.Mutex
	pending   map[int64]*pendingInput

	// filters holds each chat's expense filter selection.
	filtersMu sync.Mutex
	filters   map[int64]finance.FilterState

	categoryCacheMu sync.RWMutex
	categoryCache   []models.Category
	categoryFetched time.Time
}

// New creates a Bot wired to the given database pool. The Gemini
// client is only constructed when an API key is configured; AI
// features degrade to absent otherwise.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*Bot, error) {
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	b := &Bot{
		cfg:            cfg,
		authService:    auth.NewService(userRepo, sessionRepo, cfg.SessionTTL),
		userRepo:       userRepo,
		linkRepo:       repository.NewTelegramLinkRepository(pool),
		categoryRepo:   repository.NewCategoryRepository(pool),
		expenseRepo:    repository.NewExpenseRepository(pool),
		budgetRepo:     repository.NewBudgetRepository(pool),
		goalRepo:       repository.NewGoalRepository(pool),
		billRepo:       repository.NewBillRepository(pool),
		incomeRepo:     repository.NewIncomeRepository(pool),
		dependentRepo:  repository.NewDependentRepository(pool),
		reflectionRepo: repository.NewReflectionRepository(pool),
		converter: exchange.NewCachedConverter(
			exchange.NewERAPIClient(cfg.ExchangeBaseURL, 0),
			cfg.ExchangeCacheTTL,
		),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		sessions: make(map[int64]string),
		pending:  make(map[int64]*pendingInput),
		filters:  make(map[int64]finance.FilterState),
	}

	if cfg.AIEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		b.geminiClient = client
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	b.metrics = metrics

	loc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		logger.Log.Warn().Err(err).Str("timezone", cfg.ReminderTimezone).Msg("Invalid timezone, falling back to UTC")
		loc = time.UTC
	}
	b.displayLocation = loc

	opts := []bot.Option{
		bot.WithMiddlewares(b.accessMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	tgBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.bot = tgBot
	b.messageSender = tgBot

	// The listener lives for the process lifetime; no unsubscribe.
	_ = b.authService.OnSessionChange(b.onSessionChange)

	b.registerHandlers()

	return b, nil
}

// Start restores persisted Telegram links, launches the reminder loop
// and begins polling for updates. It blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.restoreLinks(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to restore telegram links")
	}

	go b.startReminderLoop(ctx)

	logger.Log.Info().Msg("Bot started, polling for updates")
	b.bot.Start(ctx)
}

// registerHandlers binds commands and callback prefixes to handlers.
func (b *Bot) registerHandlers() {
	commands := map[string]bot.HandlerFunc{
		"/start":      b.handleStart,
		"/help":       b.handleHelp,
		"/signup":     b.handleSignUp,
		"/login":      b.handleLogin,
		"/logout":     b.handleLogout,
		"/add":        b.handleAdd,
		"/list":       b.handleList,
		"/today":      b.handleToday,
		"/week":       b.handleWeek,
		"/month":      b.handleMonth,
		"/filter":     b.handleFilter,
		"/budget":     b.handleBudget,
		"/rule":       b.handleRule,
		"/goals":      b.handleGoals,
		"/bills":      b.handleBills,
		"/income":     b.handleIncome,
		"/dependents": b.handleDependents,
		"/reflect":    b.handleReflect,
		"/chart":      b.handleChart,
		"/report":     b.handleReport,
		"/convert":    b.handleConvert,
		"/currency":   b.handleCurrency,
		"/categories": b.handleCategories,
	}
	for command, handler := range commands {
		b.bot.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypePrefix, handler)
	}

	callbacks := map[string]bot.HandlerFunc{
		"emo_":            b.handleEmotionCallback,
		"plan_":           b.handlePlannedCallback,
		"need_":           b.handleNecessityCallback,
		"edit_expense_":   b.handleEditExpenseCallback,
		"edit_amount_":    b.handleEditAmountCallback,
		"edit_merchant_":  b.handleEditMerchantCallback,
		"edit_note_":      b.handleEditNoteCallback,
		"edit_category_":  b.handleEditCategoryCallback,
		"set_category_":   b.handleSetCategoryCallback,
		"delete_expense_": b.handleDeleteExpenseCallback,
		"confirm_delete_": b.handleConfirmDeleteCallback,
		"back_to_":        b.handleBackToExpenseCallback,
		"flt:":            b.handleFilterCallback,
		"bill_":           b.handleBillCallback,
		"refl_":           b.handleReflectEmotionCallback,
	}
	for prefix, handler := range callbacks {
		b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, prefix, bot.MatchTypePrefix, handler)
	}
}

// defaultHandler routes non-command messages: bill photos go to the
// scanner, text answers a pending prompt when one exists and otherwise
// parses as a free-text expense.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	if len(update.Message.Photo) > 0 {
		b.handleBillPhotoCore(ctx, tgBot, update)
		return
	}

	if update.Message.Text != "" {
		b.handleFreeTextCore(ctx, tgBot, update)
	}
}

// accessMiddleware enforces the optional Telegram allow-list and logs
// every update with hashed identifiers.
func (b *Bot) accessMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		b.logUserAction(update, userID)

		if !b.cfg.IsTelegramUserAllowed(userID, extractUsername(update)) {
			logger.Log.Warn().
				Str("user", logger.HashUserID(userID)).
				Msg("Blocked message from unauthorized user")
			if update.Message != nil {
				_, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⛔ Sorry, you are not authorized to use this bot.",
				})
				if err != nil {
					logger.Log.Error().Err(err).Msg("Failed to send unauthorized message")
				}
			}
			return
		}

		next(ctx, tgBot, update)
	}
}

// logUserAction logs the incoming update at debug level.
func (b *Bot) logUserAction(update *tgmodels.Update, userID int64) {
	event := logger.Log.Debug().Str("user", logger.HashUserID(userID))

	switch {
	case update.Message != nil:
		event = event.
			Str("chat", logger.HashChatID(update.Message.Chat.ID)).
			Str("kind", "message").
			Bool("has_photo", len(update.Message.Photo) > 0)
	case update.CallbackQuery != nil:
		event = event.Str("kind", "callback").Str("data", update.CallbackQuery.Data)
	case update.EditedMessage != nil:
		event = event.Str("kind", "edited_message")
	default:
		event = event.Str("kind", "other")
	}

	event.Msg("Update received")
}

// extractUserID returns the Telegram user behind an update, or 0.
func extractUserID(update *tgmodels.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.EditedMessage != nil && update.EditedMessage.From != nil:
		return update.EditedMessage.From.ID
	default:
		return 0
	}
}

// extractUsername returns the Telegram username behind an update.
func extractUsername(update *tgmodels.Update) string {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.Username
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.Username
	case update.EditedMessage != nil && update.EditedMessage.From != nil:
		return update.EditedMessage.From.Username
	default:
		return ""
	}
}

// categories returns the category list, served from a short-lived
// cache so every free-text expense does not hit the database.
func (b *Bot) categories(ctx context.Context) ([]models.Category, error) {
	b.categoryCacheMu.RLock()
	if b.categoryCache != nil && time.Since(b.categoryFetched) < categoryCacheTTL {
		cached := b.categoryCache
		b.categoryCacheMu.RUnlock()
		return cached, nil
	}
	b.categoryCacheMu.RUnlock()

	fetched, err := b.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	b.categoryCacheMu.Lock()
	b.categoryCache = fetched
	b.categoryFetched = time.Now()
	b.categoryCacheMu.Unlock()

	return fetched, nil
}

// categoryNames returns just the names, in list order.
func (b *Bot) categoryNames(ctx context.Context) ([]string, error) {
	cats, err := b.categories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

// invalidateCategories drops the cached category list.
func (b *Bot) invalidateCategories() {
	b.categoryCacheMu.Lock()
	b.categoryCache = nil
	b.categoryCacheMu.Unlock()
}

// observeCommand records one command's handling duration. Use it as
// "defer b.observeCommand(ctx, name, time.Now())".
func (b *Bot) observeCommand(ctx context.Context, command string, start time.Time) {
	if b.metrics == nil {
		return
	}
	b.metrics.CommandDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("command", command)))
}

// filterState returns the chat's filter selection, or the default.
func (b *Bot) filterState(chatID int64) finance.FilterState {
	b.filtersMu.Lock()
	defer b.filtersMu.Unlock()

	if state, ok := b.filters[chatID]; ok {
		return state
	}
	return finance.NewFilterState()
}

// setFilterState stores the chat's filter selection.
func (b *Bot) setFilterState(chatID int64, state finance.FilterState) {
	b.filtersMu.Lock()
	defer b.filtersMu.Unlock()
	b.filters[chatID] = state
}

// resetFilterState restores the chat's filter to the default.
func (b *Bot) resetFilterState(chatID int64) {
	b.filtersMu.Lock()
	defer b.filtersMu.Unlock()
	delete(b.filters, chatID)
}
