package bot

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/models"
)

// ParsedExpense is the structured result of parsing an expense input.
type ParsedExpense struct {
	Amount decimal.Decimal
	// Currency is the ISO code named in the input, or empty when the
	// input names none and the account default should apply.
	Currency    string
	Description string
	// CategoryName is set when the description ends with a known
	// category name. It carries the canonical casing from the list.
	CategoryName string
	// Emotion is the first valid #emotion hashtag, already lowercased.
	Emotion string
}

// amountPattern matches an amount at the start of a string: digits with
// an optional decimal part of up to two digits, dot or comma separated.
var amountPattern = regexp.MustCompile(`^(\d+(?:[.,]\d{1,2})?)`)

// strictAmountPattern matches a string that is exactly one amount.
var strictAmountPattern = regexp.MustCompile(`^\d+(?:[.,]\d{1,2})?$`)

var hashtagPattern = regexp.MustCompile(`#([a-zA-Z]+)`)

// currencySymbolToCode maps display symbols to ISO codes. The yen sign
// is ambiguous between JPY and CNY; it resolves to JPY.
var currencySymbolToCode = map[string]string{
	"$":   "USD",
	"€":   "EUR",
	"£":   "GBP",
	"S$":  "SGD",
	"¥":   "JPY",
	"RM":  "MYR",
	"฿":   "THB",
	"Rp":  "IDR",
	"₱":   "PHP",
	"₫":   "VND",
	"₩":   "KRW",
	"₹":   "INR",
	"A$":  "AUD",
	"NZ$": "NZD",
	"HK$": "HKD",
	"NT$": "TWD",
}

// symbolsByLength holds the currency symbols longest first, so "S$"
// wins over "$" when both match.
var symbolsByLength = func() []string {
	out := make([]string, 0, len(currencySymbolToCode))
	for sym := range currencySymbolToCode {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// parseAmount parses a string that must be exactly one positive amount.
// A comma decimal separator is accepted and normalized to a dot.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strictAmountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero")
	}
	return amount, nil
}

// ParseExpenseInput parses free-text expense input of the form
// "[currency]amount description [CODE] [#emotion]". Examples:
//
//	4.50 Coffee
//	$10 Lunch
//	SGD 25.50 Groceries
//	50 Taxi THB
//	12.90 Pizza #happy
func ParseExpenseInput(input string) (*ParsedExpense, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, fmt.Errorf("empty expense input")
	}

	currency, rest := matchCurrencyPrefix(text)

	match := amountPattern.FindStringSubmatch(rest)
	if match == nil {
		return nil, fmt.Errorf("input must start with an amount, e.g. \"4.50 Coffee\"")
	}

	amount, err := parseAmount(match[1])
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(rest[len(match[0]):])
	if currency == "" {
		currency, description = matchCurrencySuffix(description)
	}

	emotion, description := extractEmotion(description)

	return &ParsedExpense{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Emotion:     emotion,
	}, nil
}

// ParseExpenseInputWithCategories parses expense input and additionally
// matches a trailing category name, e.g. "4.50 Latte Dining Out".
func ParseExpenseInputWithCategories(input string, categories []string) (*ParsedExpense, error) {
	parsed, err := ParseExpenseInput(input)
	if err != nil {
		return nil, err
	}
	parsed.CategoryName, parsed.Description = matchCategorySuffix(parsed.Description, categories)
	return parsed, nil
}

// ParseAddCommand parses a "/add amount description" command.
func ParseAddCommand(text string) (*ParsedExpense, error) {
	args := extractCommandArgs(text, "/add")
	if args == "" {
		return nil, fmt.Errorf("usage: /add amount description")
	}
	return ParseExpenseInput(args)
}

// ParseAddCommandWithCategories parses a /add command with category
// suffix matching.
func ParseAddCommandWithCategories(text string, categories []string) (*ParsedExpense, error) {
	args := extractCommandArgs(text, "/add")
	if args == "" {
		return nil, fmt.Errorf("usage: /add amount description")
	}
	return ParseExpenseInputWithCategories(args, categories)
}

// matchCurrencyPrefix strips a leading currency marker, either a symbol
// ("$10", "S$ 15") or an ISO code followed by an amount ("SGD 25.50").
// It returns the ISO code and the remaining text, or ("", text) when no
// marker is present.
func matchCurrencyPrefix(text string) (string, string) {
	for _, sym := range symbolsByLength {
		if !strings.HasPrefix(text, sym) {
			continue
		}
		rest := strings.TrimLeft(text[len(sym):], " ")
		if amountPattern.MatchString(rest) {
			return currencySymbolToCode[sym], rest
		}
	}

	// "SGD 25.50 Groceries" style: a known code as the first token.
	token, rest, ok := strings.Cut(text, " ")
	if ok && len(token) == 3 {
		code := strings.ToUpper(token)
		if _, known := models.SupportedCurrencies[code]; known {
			rest = strings.TrimLeft(rest, " ")
			if amountPattern.MatchString(rest) {
				return code, rest
			}
		}
	}

	return "", text
}

// matchCurrencySuffix strips a trailing ISO code from a description,
// e.g. "Taxi THB". Returns the code and the remaining description, or
// ("", description) when the last token is not a known code.
func matchCurrencySuffix(description string) (string, string) {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return "", description
	}

	last := fields[len(fields)-1]
	if len(last) != 3 {
		return "", description
	}
	code := strings.ToUpper(last)
	if _, known := models.SupportedCurrencies[code]; !known {
		return "", description
	}
	return code, strings.Join(fields[:len(fields)-1], " ")
}

// extractEmotion pulls the first valid #emotion hashtag out of the
// description. Only recognized emotions are stripped; any other
// hashtag stays in the text untouched.
func extractEmotion(description string) (string, string) {
	emotion := ""
	cleaned := hashtagPattern.ReplaceAllStringFunc(description, func(tag string) string {
		name := strings.ToLower(strings.TrimPrefix(tag, "#"))
		if !models.ValidEmotion(name) {
			return tag
		}
		if emotion == "" {
			emotion = name
		}
		return ""
	})
	return emotion, strings.Join(strings.Fields(cleaned), " ")
}

// matchCategorySuffix finds the longest category name that the
// description ends with, on a word boundary, case-insensitively. It
// returns the canonical category name and the trimmed description.
func matchCategorySuffix(description string, categories []string) (string, string) {
	lower := strings.ToLower(description)
	bestName := ""
	for _, name := range categories {
		candidate := strings.ToLower(strings.TrimSpace(name))
		if candidate == "" || !strings.HasSuffix(lower, candidate) {
			continue
		}
		// Word boundary: the category is the whole text or preceded
		// by a space.
		cut := len(lower) - len(candidate)
		if cut > 0 && lower[cut-1] != ' ' {
			continue
		}
		if len(candidate) > len(bestName) {
			bestName = name
		}
	}
	if bestName == "" {
		return "", description
	}
	trimmed := strings.TrimSpace(description[:len(description)-len(bestName)])
	return bestName, trimmed
}
