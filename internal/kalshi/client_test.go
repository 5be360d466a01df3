package kalshi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	keyPath, _ := writeTestKey(t)
	signer, err := NewSigner("test-key-id", keyPath)
	require.NoError(t, err)

	return NewClient(Config{
		BaseURL:           serverURL,
		RequestsPerSecond: 1000,
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		RetryDelay:        5 * time.Millisecond,
	}, signer)
}

func TestClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolio/balance", r.URL.Path)
		assert.Equal(t, "test-key-id", r.Header.Get("KALSHI-ACCESS-KEY"))
		assert.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		assert.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-TIMESTAMP"))

		json.NewEncoder(w).Encode(map[string]int64{"balance": 1234567})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12345.67, balance, 1e-9)
}

func TestClient_GetBalance_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"unexpected": "shape"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)
	assert.True(t, IsMalformedResponse(err))
}

func TestClient_AuthErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), attempts.Load(), "401 must not be retried")
}

func TestClient_APIErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(1), attempts.Load(), "HTTP errors must not be retried")
}

func TestClient_NetworkFailureRetriedThenTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every connection attempt now fails

	client := newTestClient(t, server.URL)

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestClient_ListMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"markets": []map[string]interface{}{
				{"market_id": "RAIN-NYC", "title": "Rain in NYC", "status": "open", "yes_bid": 40, "yes_ask": 42},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	markets, err := client.ListMarkets(context.Background(), "open", 50)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "RAIN-NYC", markets[0].ID)
	assert.InDelta(t, 0.40, markets[0].YesBidPrice(), 1e-9)
	assert.InDelta(t, 0.42, markets[0].YesAskPrice(), 1e-9)
	assert.InDelta(t, 0.41, markets[0].ImpliedProbability(), 1e-9)
}

func TestClient_GetMarket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/RAIN-NYC", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"market": map[string]interface{}{
				"market_id": "RAIN-NYC", "title": "Rain in NYC", "yes_bid": 55, "yes_ask": 57,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	market, err := client.GetMarket(context.Background(), "RAIN-NYC")
	require.NoError(t, err)
	assert.Equal(t, "RAIN-NYC", market.ID)
	assert.InDelta(t, 0.56, market.ImpliedProbability(), 1e-9)
}

func TestClient_PlaceOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RAIN-NYC", body["market_id"])
		assert.Equal(t, "yes", body["side"])
		assert.Equal(t, float64(10), body["count"])
		assert.Equal(t, OrderTypeMarket, body["type"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"order": map[string]interface{}{
				"order_id": "ord-1", "market_id": "RAIN-NYC", "side": "yes", "count": 10, "status": "executed",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	order, err := client.PlaceOrder(context.Background(), "RAIN-NYC", "yes", 10, OrderTypeMarket)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.OrderID)
	assert.Equal(t, "executed", order.Status)
}

func TestClient_PlaceOrder_UnconfirmedFill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.PlaceOrder(context.Background(), "RAIN-NYC", "yes", 10, OrderTypeMarket)
	require.Error(t, err)
	assert.True(t, IsMalformedResponse(err))
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"balance": 0})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetBalance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
