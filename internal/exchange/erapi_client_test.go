package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestERAPIClient_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts using fetched rate", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v6/latest/USD", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"result": "success",
				"base_code": "USD",
				"time_last_update_unix": 1771027200,
				"rates": {"USD": 1, "SGD": 1.3405}
			}`))
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL+"/v6", time.Second)
		got, err := client.Convert(context.Background(), decimal.RequireFromString("100"), "USD", "SGD")
		require.NoError(t, err)
		require.Equal(t, decimal.RequireFromString("134.05"), got.Amount)
		require.Equal(t, decimal.RequireFromString("1.3405"), got.Rate)
		require.Equal(t, time.Unix(1771027200, 0).UTC(), got.RateDate)
	})

	t.Run("same currency short-circuits without a request", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Error("unexpected request")
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL, time.Second)
		got, err := client.Convert(context.Background(), decimal.RequireFromString("42.50"), "sgd", "SGD")
		require.NoError(t, err)
		require.Equal(t, decimal.RequireFromString("42.50"), got.Amount)
		require.True(t, got.Rate.Equal(decimal.NewFromInt(1)))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		t.Parallel()
		client := NewERAPIClient("http://localhost:0", time.Second)

		_, err := client.Convert(context.Background(), decimal.Zero, "USD", "SGD")
		require.Error(t, err)

		_, err = client.Convert(context.Background(), decimal.RequireFromString("-5"), "USD", "SGD")
		require.Error(t, err)
	})

	t.Run("rejects blank currencies", func(t *testing.T) {
		t.Parallel()
		client := NewERAPIClient("http://localhost:0", time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), " ", "SGD")
		require.Error(t, err)
	})

	t.Run("errors on non-success result", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": "error", "error-type": "unsupported-code"}`))
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "XXX")
		require.Error(t, err)
		require.Contains(t, err.Error(), "error")
	})

	t.Run("errors when target rate missing", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {"USD": 1}}`))
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "SGD")
		require.ErrorIs(t, err, errRateMissing)
	})

	t.Run("errors on non-200 status", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "SGD")
		require.Error(t, err)
		require.Contains(t, err.Error(), "429")
	})

	t.Run("errors on non-positive rate", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {"SGD": 0}}`))
		}))
		defer server.Close()

		client := NewERAPIClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "SGD")
		require.Error(t, err)
	})

	t.Run("defaults base URL when blank", func(t *testing.T) {
		t.Parallel()
		client := NewERAPIClient("  ", 0)
		require.Equal(t, "https://open.er-api.com/v6", client.baseURL)
	})
}
