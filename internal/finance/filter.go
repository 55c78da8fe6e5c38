package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// FilterAll is the sentinel selection meaning "no constraint" for a
// multi-select dimension. A dimension's selection is never empty:
// removing the last concrete value resets it to this sentinel.
const FilterAll = "all"

// DateRange names a date filter preset.
type DateRange string

// Date range presets. Every preset resolves deterministically from a
// supplied "now" to an inclusive [start, end] interval.
const (
	DateRangeToday      DateRange = "today"
	DateRangeYesterday  DateRange = "yesterday"
	DateRangeThisWeek   DateRange = "this_week"
	DateRangeLastWeek   DateRange = "last_week"
	DateRangeThisMonth  DateRange = "this_month"
	DateRangeLastMonth  DateRange = "last_month"
	DateRangeLast30Days DateRange = "last_30_days"
	DateRangeLast90Days DateRange = "last_90_days"
	DateRangeThisYear   DateRange = "this_year"
	DateRangeCustom     DateRange = "custom"
)

// DefaultDateRange is the preset a fresh filter starts with.
const DefaultDateRange = DateRangeThisMonth

// SortOption names an expense sort policy.
type SortOption string

// Sort options. All sorts are stable: records with equal keys keep
// their relative input order.
const (
	SortDateDesc   SortOption = "date_desc"
	SortDateAsc    SortOption = "date_asc"
	SortAmountDesc SortOption = "amount_desc"
	SortAmountAsc  SortOption = "amount_asc"
	SortCategory   SortOption = "category"
)

// DefaultSort is the sort a fresh filter starts with.
const DefaultSort = SortDateDesc

// Expense type filter values. These are derived from the behavioral
// flags on a record, not stored: planned/impulse map to WasPlanned,
// need/want to IsNecessity, recurring to IsRecurring.
const (
	TypePlanned   = "planned"
	TypeImpulse   = "impulse"
	TypeNeed      = "need"
	TypeWant      = "want"
	TypeRecurring = "recurring"
)

// ExpenseTypes lists the selectable expense type values in display order.
var ExpenseTypes = []string{TypePlanned, TypeImpulse, TypeNeed, TypeWant, TypeRecurring}

// FilterState is the full, immutable filter/sort selection. Methods
// that change the state return a modified copy.
type FilterState struct {
	DateRange    DateRange
	CustomStart  time.Time
	CustomEnd    time.Time
	Categories   []string
	Emotions     []string
	ExpenseTypes []string
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
	SortBy       SortOption
	SearchQuery  string
}

// NewFilterState returns the default filter: current month, every
// dimension unconstrained, newest first.
func NewFilterState() FilterState {
	return FilterState{
		DateRange:    DefaultDateRange,
		Categories:   []string{FilterAll},
		Emotions:     []string{FilterAll},
		ExpenseTypes: []string{FilterAll},
		SortBy:       DefaultSort,
	}
}

// FilterResult is the outcome of applying a filter to a record set.
type FilterResult struct {
	Records           []models.Expense
	ActiveFilterCount int
}

// ApplyFilters returns the records matching every active filter
// predicate, sorted per the state's sort option, plus the active
// filter count. The input slice is not modified. Predicates run
// cheapest first: date range, then set memberships, then amount
// bounds, then text search.
func ApplyFilters(records []models.Expense, f FilterState, now time.Time) FilterResult {
	start, end := f.Bounds(now)

	out := make([]models.Expense, 0, len(records))
	for i := range records {
		rec := records[i]
		if rec.SpentAt.Before(start) || rec.SpentAt.After(end) {
			continue
		}
		if !matchesSet(categoryLabel(rec), f.Categories) {
			continue
		}
		if !matchesSet(rec.Emotion, f.Emotions) {
			continue
		}
		if !matchesExpenseType(rec, f.ExpenseTypes) {
			continue
		}
		if f.MinAmount != nil && rec.Amount.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && rec.Amount.GreaterThan(*f.MaxAmount) {
			continue
		}
		if !matchesSearch(rec, f.SearchQuery) {
			continue
		}
		out = append(out, rec)
	}

	sortExpenses(out, f.SortBy)
	return FilterResult{Records: out, ActiveFilterCount: f.ActiveFilterCount()}
}

// Bounds resolves the state's date range to an inclusive [start, end]
// interval relative to now. Custom bounds are widened to whole days so
// an end date picked in the UI includes that entire day.
func (f FilterState) Bounds(now time.Time) (time.Time, time.Time) {
	switch f.DateRange {
	case DateRangeToday:
		return startOfDay(now), endOfDay(now)
	case DateRangeYesterday:
		y := now.AddDate(0, 0, -1)
		return startOfDay(y), endOfDay(y)
	case DateRangeThisWeek:
		sw := startOfWeek(now)
		return sw, endOfDay(sw.AddDate(0, 0, 6))
	case DateRangeLastWeek:
		sw := startOfWeek(now).AddDate(0, 0, -7)
		return sw, endOfDay(sw.AddDate(0, 0, 6))
	case DateRangeLastMonth:
		sm := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return sm, endOfDay(sm.AddDate(0, 1, -1))
	case DateRangeLast30Days:
		return startOfDay(now.AddDate(0, 0, -29)), endOfDay(now)
	case DateRangeLast90Days:
		return startOfDay(now.AddDate(0, 0, -89)), endOfDay(now)
	case DateRangeThisYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()),
			endOfDay(time.Date(now.Year(), 12, 31, 0, 0, 0, 0, now.Location()))
	case DateRangeCustom:
		return startOfDay(f.CustomStart), endOfDay(f.CustomEnd)
	default: // DateRangeThisMonth
		sm := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return sm, endOfDay(sm.AddDate(0, 1, -1))
	}
}

// ActiveFilterCount counts the selections deviating from the default
// state, matching the per-chip removability the UI shows: one per
// concrete selected value, one per amount bound, one for a non-default
// date range, search, or sort.
func (f FilterState) ActiveFilterCount() int {
	count := 0
	if f.DateRange != DefaultDateRange && f.DateRange != "" {
		count++
	}
	count += concreteCount(f.Categories)
	count += concreteCount(f.Emotions)
	count += concreteCount(f.ExpenseTypes)
	if f.MinAmount != nil {
		count++
	}
	if f.MaxAmount != nil {
		count++
	}
	if strings.TrimSpace(f.SearchQuery) != "" {
		count++
	}
	if f.SortBy != DefaultSort && f.SortBy != "" {
		count++
	}
	return count
}

// ToggleCategory selects the category value, or deselects it when
// already selected. Deselecting the last concrete value resets the
// dimension to the "all" sentinel.
func (f FilterState) ToggleCategory(value string) FilterState {
	f.Categories = toggleValue(f.Categories, value)
	return f
}

// ToggleEmotion selects or deselects an emotion value.
func (f FilterState) ToggleEmotion(value string) FilterState {
	f.Emotions = toggleValue(f.Emotions, value)
	return f
}

// ToggleExpenseType selects or deselects an expense type value.
func (f FilterState) ToggleExpenseType(value string) FilterState {
	f.ExpenseTypes = toggleValue(f.ExpenseTypes, value)
	return f
}

// FilterChip dimensions.
const (
	ChipDateRange   = "date_range"
	ChipCategory    = "category"
	ChipEmotion     = "emotion"
	ChipExpenseType = "expense_type"
	ChipMinAmount   = "min_amount"
	ChipMaxAmount   = "max_amount"
	ChipSearch      = "search"
	ChipSort        = "sort"
)

// FilterChip is one removable active-filter badge.
type FilterChip struct {
	Dimension string
	Value     string
	Label     string
}

// Chips returns one human-readable chip per active filter selection.
// len(Chips()) always equals ActiveFilterCount().
func (f FilterState) Chips() []FilterChip {
	var chips []FilterChip
	if f.DateRange != DefaultDateRange && f.DateRange != "" {
		chips = append(chips, FilterChip{ChipDateRange, string(f.DateRange), DateRangeLabel(f.DateRange)})
	}
	for _, v := range f.Categories {
		if v != FilterAll && v != "" {
			chips = append(chips, FilterChip{ChipCategory, v, titleCase(v)})
		}
	}
	for _, v := range f.Emotions {
		if v != FilterAll && v != "" {
			chips = append(chips, FilterChip{ChipEmotion, v, titleCase(v)})
		}
	}
	for _, v := range f.ExpenseTypes {
		if v != FilterAll && v != "" {
			chips = append(chips, FilterChip{ChipExpenseType, v, titleCase(v)})
		}
	}
	if f.MinAmount != nil {
		chips = append(chips, FilterChip{ChipMinAmount, f.MinAmount.String(), "Min " + FormatCurrency(*f.MinAmount)})
	}
	if f.MaxAmount != nil {
		chips = append(chips, FilterChip{ChipMaxAmount, f.MaxAmount.String(), "Max " + FormatCurrency(*f.MaxAmount)})
	}
	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		chips = append(chips, FilterChip{ChipSearch, q, fmt.Sprintf("Search: %q", q)})
	}
	if f.SortBy != DefaultSort && f.SortBy != "" {
		chips = append(chips, FilterChip{ChipSort, string(f.SortBy), SortLabel(f.SortBy)})
	}
	return chips
}

// RemoveChip clears the selection a chip stands for and returns the
// updated state. Set dimensions keep their never-empty invariant.
func (f FilterState) RemoveChip(dimension, value string) FilterState {
	switch dimension {
	case ChipDateRange:
		f.DateRange = DefaultDateRange
		f.CustomStart, f.CustomEnd = time.Time{}, time.Time{}
	case ChipCategory:
		f.Categories = toggleValue(f.Categories, value)
	case ChipEmotion:
		f.Emotions = toggleValue(f.Emotions, value)
	case ChipExpenseType:
		f.ExpenseTypes = toggleValue(f.ExpenseTypes, value)
	case ChipMinAmount:
		f.MinAmount = nil
	case ChipMaxAmount:
		f.MaxAmount = nil
	case ChipSearch:
		f.SearchQuery = ""
	case ChipSort:
		f.SortBy = DefaultSort
	}
	return f
}

// DateRangeLabel returns the display name for a date range preset.
func DateRangeLabel(r DateRange) string {
	switch r {
	case DateRangeToday:
		return "Today"
	case DateRangeYesterday:
		return "Yesterday"
	case DateRangeThisWeek:
		return "This Week"
	case DateRangeLastWeek:
		return "Last Week"
	case DateRangeThisMonth:
		return "This Month"
	case DateRangeLastMonth:
		return "Last Month"
	case DateRangeLast30Days:
		return "Last 30 Days"
	case DateRangeLast90Days:
		return "Last 90 Days"
	case DateRangeThisYear:
		return "This Year"
	case DateRangeCustom:
		return "Custom Range"
	default:
		return titleCase(string(r))
	}
}

// SortLabel returns the display name for a sort option.
func SortLabel(s SortOption) string {
	switch s {
	case SortDateDesc:
		return "Newest First"
	case SortDateAsc:
		return "Oldest First"
	case SortAmountDesc:
		return "Highest Amount"
	case SortAmountAsc:
		return "Lowest Amount"
	case SortCategory:
		return "By Category"
	default:
		return titleCase(string(s))
	}
}

func toggleValue(selection []string, value string) []string {
	if value == "" || strings.EqualFold(value, FilterAll) {
		return []string{FilterAll}
	}

	out := make([]string, 0, len(selection)+1)
	removed := false
	for _, v := range selection {
		if v == FilterAll {
			continue
		}
		if strings.EqualFold(v, value) {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		out = append(out, value)
	}
	if len(out) == 0 {
		return []string{FilterAll}
	}
	return out
}

func concreteCount(selection []string) int {
	n := 0
	for _, v := range selection {
		if v != FilterAll && v != "" {
			n++
		}
	}
	return n
}

func matchesSet(value string, selection []string) bool {
	if unconstrained(selection) {
		return true
	}
	for _, v := range selection {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func matchesExpenseType(rec models.Expense, selection []string) bool {
	if unconstrained(selection) {
		return true
	}
	for _, v := range selection {
		switch v {
		case TypePlanned:
			if rec.WasPlanned != nil && *rec.WasPlanned {
				return true
			}
		case TypeImpulse:
			if rec.WasPlanned != nil && !*rec.WasPlanned {
				return true
			}
		case TypeNeed:
			if rec.IsNecessity != nil && *rec.IsNecessity {
				return true
			}
		case TypeWant:
			if rec.IsNecessity != nil && !*rec.IsNecessity {
				return true
			}
		case TypeRecurring:
			if rec.IsRecurring != nil && *rec.IsRecurring {
				return true
			}
		}
	}
	return false
}

func matchesSearch(rec models.Expense, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.Description), q) ||
		strings.Contains(strings.ToLower(rec.Merchant), q)
}

func unconstrained(selection []string) bool {
	if len(selection) == 0 {
		return true
	}
	for _, v := range selection {
		if v == FilterAll {
			return true
		}
	}
	return false
}

func sortExpenses(list []models.Expense, by SortOption) {
	switch by {
	case SortDateAsc:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].SpentAt.Before(list[j].SpentAt)
		})
	case SortAmountDesc:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Amount.GreaterThan(list[j].Amount)
		})
	case SortAmountAsc:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Amount.LessThan(list[j].Amount)
		})
	case SortCategory:
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(categoryLabel(list[i])) < strings.ToLower(categoryLabel(list[j]))
		})
	default: // SortDateDesc
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].SpentAt.After(list[j].SpentAt)
		})
	}
}

func categoryLabel(rec models.Expense) string {
	if rec.Category != nil {
		return rec.Category.Name
	}
	return ""
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, t.Location())
}
