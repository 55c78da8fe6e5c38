package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errRateMissing = errors.New("conversion rate missing in response")

// ERAPIClient is a client for the open.er-api.com exchange rates API.
type ERAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

type erAPIResponse struct {
	Result             string                 `json:"result"`
	BaseCode           string                 `json:"base_code"`
	TimeLastUpdateUnix int64                  `json:"time_last_update_unix"`
	Rates              map[string]json.Number `json:"rates"`
}

// NewERAPIClient creates an open.er-api.com client. Outbound requests
// carry OpenTelemetry client spans.
func NewERAPIClient(baseURL string, timeout time.Duration) *ERAPIClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://open.er-api.com/v6"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &ERAPIClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Convert converts amount from one currency to another using latest rates.
func (c *ERAPIClient) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	from := strings.ToUpper(strings.TrimSpace(fromCurrency))
	to := strings.ToUpper(strings.TrimSpace(toCurrency))
	if from == "" || to == "" {
		return ConversionResult{}, errors.New("from and to currencies are required")
	}
	if amount.IsNegative() || amount.IsZero() {
		return ConversionResult{}, errors.New("amount must be positive")
	}
	if from == to {
		return ConversionResult{
			Amount:   amount,
			Rate:     decimal.NewFromInt(1),
			RateDate: time.Now().UTC(),
		}, nil
	}

	endpoint := fmt.Sprintf("%s/latest/%s", c.baseURL, url.PathEscape(from))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("failed to create conversion request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("failed to request conversion rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ConversionResult{}, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload erAPIResponse
	if err := decoder.Decode(&payload); err != nil {
		return ConversionResult{}, fmt.Errorf("failed to decode conversion response: %w", err)
	}

	if payload.Result != "success" {
		return ConversionResult{}, fmt.Errorf("exchange API returned result %q", payload.Result)
	}

	rateStr, ok := payload.Rates[to]
	if !ok {
		return ConversionResult{}, errRateMissing
	}

	rate, err := decimal.NewFromString(rateStr.String())
	if err != nil {
		return ConversionResult{}, fmt.Errorf("failed to parse conversion rate: %w", err)
	}
	if !rate.IsPositive() {
		return ConversionResult{}, errors.New("conversion rate must be positive")
	}

	rateDate := time.Now().UTC()
	if payload.TimeLastUpdateUnix > 0 {
		rateDate = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}

	convertedAmount := amount.Mul(rate).Round(2)

	return ConversionResult{
		Amount:   convertedAmount,
		Rate:     rate,
		RateDate: rateDate,
	}, nil
}
