package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/dafibh/fortuna/internal/logger"
	appmodels "gitlab.com/dafibh/fortuna/internal/models"
)

func normalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func getCurrencyOrCodeSymbol(code string) string {
	symbol := appmodels.SupportedCurrencies[code]
	if symbol == "" {
		return code
	}
	return symbol
}

// appendOriginalAmountDescription records the pre-conversion amount in
// the description so the original figure is never lost.
func appendOriginalAmountDescription(
	description string,
	originalAmount decimal.Decimal,
	originalCurrency string,
	convertedAmount decimal.Decimal,
	convertedCurrency string,
	rate decimal.Decimal,
	rateDate string,
) string {
	metadata := fmt.Sprintf(
		"[orig: %s %s -> %s %s @ %s (%s)]",
		originalAmount.StringFixed(2),
		originalCurrency,
		convertedAmount.StringFixed(2),
		convertedCurrency,
		rate.StringFixed(4),
		rateDate,
	)
	if strings.TrimSpace(description) == "" {
		return metadata
	}
	return description + " " + metadata
}

func appendConversionUnavailableDescription(
	description, originalCurrency, targetCurrency string,
) string {
	metadata := fmt.Sprintf("[fx_unavailable: kept %s, target %s]", originalCurrency, targetCurrency)
	if strings.TrimSpace(description) == "" {
		return metadata
	}
	return description + " " + metadata
}

// defaultUserCurrency returns the account's default currency, falling
// back to the system default when unset or unknown.
func defaultUserCurrency(user *appmodels.User) string {
	currency := normalizeCurrencyCode(user.DefaultCurrency)
	if _, ok := appmodels.SupportedCurrencies[currency]; !ok {
		return appmodels.DefaultCurrency
	}
	return currency
}

// convertExpenseCurrency converts an expense into the account's default
// currency. Conversion failures keep the original currency and leave a
// note in the description rather than blocking the save.
func (b *Bot) convertExpenseCurrency(
	ctx context.Context,
	amount decimal.Decimal,
	sourceCurrency string,
	user *appmodels.User,
	description string,
) (convertedAmount decimal.Decimal, finalCurrency string, finalDescription string) {
	defaultCurrency := defaultUserCurrency(user)

	source := normalizeCurrencyCode(sourceCurrency)
	if source == "" {
		source = defaultCurrency
	}
	if _, ok := appmodels.SupportedCurrencies[source]; !ok {
		logger.Log.Warn().
			Str("source_currency", source).
			Str("user", logger.HashUserID(user.ID)).
			Msg("Unsupported currency in input; using default currency")
		source = defaultCurrency
	}
	if source == defaultCurrency {
		return amount, defaultCurrency, description
	}

	if b.converter == nil {
		logger.Log.Warn().
			Str("source_currency", source).
			Str("target_currency", defaultCurrency).
			Str("user", logger.HashUserID(user.ID)).
			Msg("Exchange converter unavailable; saving original currency")
		return amount, source, appendConversionUnavailableDescription(description, source, defaultCurrency)
	}

	result, err := b.converter.Convert(ctx, amount, source, defaultCurrency)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("source_currency", source).
			Str("target_currency", defaultCurrency).
			Str("user", logger.HashUserID(user.ID)).
			Msg("Exchange lookup failed; saving original currency")
		return amount, source, appendConversionUnavailableDescription(description, source, defaultCurrency)
	}

	finalDescription = appendOriginalAmountDescription(
		description,
		amount,
		source,
		result.Amount,
		defaultCurrency,
		result.Rate,
		result.RateDate.Format("2006-01-02"),
	)
	return result.Amount, defaultCurrency, finalDescription
}
