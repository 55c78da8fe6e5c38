package bot

import (
	"testing"

	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/models"
)

func FuzzParseAmount(f *testing.F) {
	// Valid amounts.
	f.Add("5.50")
	f.Add("5,50")
	f.Add("100")
	f.Add("0.01")
	f.Add("999999999.99")
	f.Add("1")

	// Invalid amounts.
	f.Add("0")
	f.Add("-10")
	f.Add("")
	f.Add("abc")
	f.Add("5.5.5")
	f.Add("NaN")
	f.Add("1e10")
	f.Add("1.234567890123456789")
	f.Add("5..50")
	f.Add(",50")
	f.Add("50,")
	f.Add(".")

	f.Fuzz(func(t *testing.T, input string) {
		amount, err := parseAmount(input)

		if err == nil && amount.LessThanOrEqual(decimal.Zero) {
			t.Errorf("parseAmount(%q) returned non-positive amount %v without error", input, amount)
		}
		if err != nil && !amount.Equal(decimal.Zero) {
			t.Errorf("parseAmount(%q) returned non-zero amount %v with error: %v", input, amount, err)
		}
	})
}

func FuzzParseExpenseInput(f *testing.F) {
	// Valid expense formats.
	f.Add("5.50 Coffee")
	f.Add("$10 Lunch")
	f.Add("S$5.50 Taxi")
	f.Add("€100 Dinner")
	f.Add("¥1000 Ramen")
	f.Add("EUR 25.50 Groceries")
	f.Add("50 Taxi THB")
	f.Add("5,50 Coffee")
	f.Add("12.90 Pizza #happy")
	f.Add("10.00")

	// Edge cases.
	f.Add("")
	f.Add("Coffee")
	f.Add("$")
	f.Add("USD")
	f.Add("-5 Invalid")
	f.Add("0 Zero")
	f.Add("   ")
	f.Add("$0")
	f.Add("$ 5.50 Coffee")
	f.Add("5.50 Coffee #notanemotion")
	f.Add("5.50 Coffee SGD extra words")

	// Unicode and control characters.
	f.Add("5.50 コーヒー")
	f.Add("₹500 Food")
	f.Add("฿100 Thai Food")
	f.Add("5.50 Coffee\nNew line")
	f.Add("5.50 Coffee\x00null")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseExpenseInput(input)
		if err != nil {
			return
		}

		if parsed.Amount.LessThanOrEqual(decimal.Zero) {
			t.Errorf("ParseExpenseInput(%q) returned non-positive amount: %v", input, parsed.Amount)
		}
		if parsed.Currency != "" {
			if _, ok := models.SupportedCurrencies[parsed.Currency]; !ok {
				t.Errorf("ParseExpenseInput(%q) returned unknown currency: %s", input, parsed.Currency)
			}
		}
		if parsed.Emotion != "" && !models.ValidEmotion(parsed.Emotion) {
			t.Errorf("ParseExpenseInput(%q) returned invalid emotion: %s", input, parsed.Emotion)
		}
	})
}

func FuzzParseExpenseInputWithCategories(f *testing.F) {
	categories := []string{
		"Dining Out",
		"Groceries",
		"Transport",
		"Entertainment",
		"Gifts & Donations",
	}

	f.Add("5.50 Coffee Dining Out")
	f.Add("10 Uber Transport")
	f.Add("100 Movie Entertainment")
	f.Add("5.50 Coffee")
	f.Add("5.50 Dining Out")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseExpenseInputWithCategories(input, categories)
		if err != nil {
			return
		}

		if parsed.Amount.LessThanOrEqual(decimal.Zero) {
			t.Errorf("ParseExpenseInputWithCategories(%q) returned non-positive amount: %v", input, parsed.Amount)
		}
		if parsed.CategoryName != "" {
			found := false
			for _, cat := range categories {
				if cat == parsed.CategoryName {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("ParseExpenseInputWithCategories(%q) returned category outside the list: %s", input, parsed.CategoryName)
			}
		}
	})
}
