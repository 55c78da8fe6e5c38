// Package models defines the domain entities for the Fortuna finance tracker.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the default currency for new accounts.
const DefaultCurrency = "USD"

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// SupportedCurrencies lists all supported currency codes.
var SupportedCurrencies = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"SGD": "S$",
	"JPY": "¥",
	"CNY": "¥",
	"MYR": "RM",
	"THB": "฿",
	"IDR": "Rp",
	"PHP": "₱",
	"VND": "₫",
	"KRW": "₩",
	"INR": "₹",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"TWD": "NT$",
}

// User represents a Fortuna account.
type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	DisplayName     string
	DefaultCurrency string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session represents an authenticated session for a user.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TelegramLink binds a Telegram identity to a Fortuna account so a
// signed-in chat survives restarts.
type TelegramLink struct {
	TelegramUserID int64
	ChatID         int64
	UserID         int64
	CreatedAt      time.Time
}

// Category represents a spending category. Essential categories count
// toward "needs" in the 50/30/20 breakdown, the rest toward "wants".
type Category struct {
	ID          int
	Name        string
	Icon        string
	Color       string
	IsEssential bool
	CreatedAt   time.Time
}

// Emotion values a user can attach to an expense.
const (
	EmotionHappy    = "happy"
	EmotionContent  = "content"
	EmotionNeutral  = "neutral"
	EmotionStressed = "stressed"
	EmotionAnxious  = "anxious"
	EmotionGuilty   = "guilty"
	EmotionExcited  = "excited"
	EmotionBored    = "bored"
)

// Emotions lists every valid emotion tag in display order.
var Emotions = []string{
	EmotionHappy,
	EmotionContent,
	EmotionNeutral,
	EmotionStressed,
	EmotionAnxious,
	EmotionGuilty,
	EmotionExcited,
	EmotionBored,
}

// ValidEmotion reports whether s names a known emotion tag.
func ValidEmotion(s string) bool {
	for _, e := range Emotions {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}

// Expense represents a single expense entry. Emotion is empty when the
// user has not tagged one; the behavioral flags stay nil until answered.
type Expense struct {
	ID                int
	UserExpenseNumber int64
	UserID            int64
	Amount            decimal.Decimal
	Currency          string
	Description       string
	Merchant          string
	CategoryID        *int
	Category          *Category
	Emotion           string
	WasPlanned        *bool
	IsNecessity       *bool
	IsRecurring       *bool
	SpentAt           time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Budget is the monthly budget snapshot for a user. It is assembled
// fresh on every fetch and never mutated in place.
type Budget struct {
	ID              int
	UserID          int64
	Year            int
	Month           int
	TotalAllocated  decimal.Decimal
	TotalSpent      decimal.Decimal
	TotalIncome     decimal.Decimal
	SavingsTarget   decimal.Decimal
	SavingsActual   decimal.Decimal
	EmergencyBuffer decimal.Decimal
	DaysElapsed     int
	DaysRemaining   int
	TotalDays       int
	Allocations     []BudgetAllocation
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BudgetAllocation is the per-category slice of a monthly budget.
type BudgetAllocation struct {
	ID              int
	BudgetID        int
	CategoryID      int
	CategoryName    string
	Icon            string
	Color           string
	IsEssential     bool
	AllocatedAmount decimal.Decimal
	SpentAmount     decimal.Decimal
}

// Remaining returns allocated minus spent. Negative means overspend.
func (a BudgetAllocation) Remaining() decimal.Decimal {
	return a.AllocatedAmount.Sub(a.SpentAmount)
}

// GoalStatus values for savings goals.
const (
	GoalStatusActive    = "active"
	GoalStatusPaused    = "paused"
	GoalStatusCompleted = "completed"
	GoalStatusCancelled = "cancelled"
)

// ValidGoalStatus reports whether s is a known goal status.
func ValidGoalStatus(s string) bool {
	switch s {
	case GoalStatusActive, GoalStatusPaused, GoalStatusCompleted, GoalStatusCancelled:
		return true
	}
	return false
}

// Goal represents a savings goal. CurrentAmount may exceed TargetAmount
// once the goal is achieved.
type Goal struct {
	ID            int
	UserID        int64
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      *time.Time
	PriorityLevel int
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns how much is still missing toward the target.
func (g *Goal) Remaining() decimal.Decimal {
	return g.TargetAmount.Sub(g.CurrentAmount)
}

// BillStatus represents the lifecycle of a bill. Scanned bills start as
// drafts until the user confirms the extracted fields.
const (
	BillStatusDraft     = "draft"
	BillStatusConfirmed = "confirmed"
)

// Bill represents a payable bill with a due date.
type Bill struct {
	ID          int
	UserID      int64
	Name        string
	Amount      decimal.Decimal
	Currency    string
	DueDate     time.Time
	IsPaid      bool
	IsRecurring bool
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IncomeFrequency values for income sources.
const (
	FrequencyMonthly = "monthly"
	FrequencyWeekly  = "weekly"
	FrequencyYearly  = "yearly"
	FrequencyOneTime = "one_time"
)

// IncomeSource represents a recurring or one-time income stream.
type IncomeSource struct {
	ID        int
	UserID    int64
	Name      string
	Amount    decimal.Decimal
	Frequency string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MonthlyAmount normalizes the income to a per-month figure.
func (i *IncomeSource) MonthlyAmount() decimal.Decimal {
	switch i.Frequency {
	case FrequencyWeekly:
		// 52 weeks spread over 12 months.
		return i.Amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12))
	case FrequencyYearly:
		return i.Amount.Div(decimal.NewFromInt(12))
	case FrequencyOneTime:
		return decimal.Zero
	default:
		return i.Amount
	}
}

// Dependent represents a person the user supports financially.
type Dependent struct {
	ID           int
	UserID       int64
	Name         string
	Relationship string
	MonthlyCost  decimal.Decimal
	CreatedAt    time.Time
}

// Reflection is the user's monthly review. At most one exists per user
// per calendar month.
type Reflection struct {
	ID         int
	UserID     int64
	Year       int
	Month      int
	WentWell   string
	ToImprove  string
	TopEmotion string
	Insight    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
