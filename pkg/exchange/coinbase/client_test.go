package coinbase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	c := New(exchange.Credentials{APIKey: "key", APISecret: "secret"})
	c.baseURL = url
	return c
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC-USDT"},
		{"BTC-USD", "BTC-USD"},
		{"ethusd", "ETH-USD"},
		{"SOLEUR", "SOL-EUR"},
		{"BTCUSDT.P", "BTC-USDT"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSymbol(tt.in), tt.in)
	}
}

func TestSessionTokenCachedUntilExpiry(t *testing.T) {
	var mints atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/brokerage/session":
			mints.Add(1)
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "expires_in": 900})
		default:
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"accounts":[]}`))
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GetBalance(context.Background(), "")
	require.NoError(t, err)
	_, err = c.GetBalance(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, int32(1), mints.Load(), "token should be minted once and reused")
}

func TestExpiredTokenRefreshedOn401RetriedOnce(t *testing.T) {
	var mints, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/brokerage/session":
			n := mints.Add(1)
			tok := "tok-stale"
			if n > 1 {
				tok = "tok-fresh"
			}
			json.NewEncoder(w).Encode(map[string]any{"token": tok, "expires_in": 900})
		default:
			calls.Add(1)
			if r.Header.Get("Authorization") != "Bearer tok-fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"accounts":[{"currency":"USDT","available_balance":{"value":"100"},"hold":{"value":"0"}}]}`))
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	balances, err := c.GetBalance(context.Background(), "USDT")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, 100.0, balances[0].Free)

	assert.Equal(t, int32(2), mints.Load(), "401 should trigger exactly one token refresh")
	assert.Equal(t, int32(2), calls.Load(), "request should be retried exactly once")
}

func TestPersistent401SurfacesAsAuthError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/brokerage/session" {
			json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_in": 900})
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GetBalance(context.Background(), "")
	require.Error(t, err)
	assert.True(t, exchange.IsAuthError(err))
	assert.Equal(t, int32(2), calls.Load(), "no second retry after the refreshed attempt fails")
}

func TestValidateCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/brokerage/session" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"accounts":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ok, err := c.ValidateCredentials(context.Background())
	require.NoError(t, err, "auth rejection is a definitive answer, not an error")
	assert.False(t, ok)
}

func TestPlaceOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/brokerage/session" {
			json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_in": 900})
			return
		}
		w.Write([]byte(`{"success":false,"error_response":{"message":"INSUFFICIENT_FUND"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol: "BTCUSDT",
		Side:   exchange.SideBuy,
		Type:   exchange.OrderTypeMarket,
		Qty:    0.01,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSUFFICIENT_FUND")
}

func TestLimitOrderRequiresPrice(t *testing.T) {
	c := New(exchange.Credentials{APIKey: "k", APISecret: "s"})
	_, err := c.PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol: "BTCUSDT",
		Side:   exchange.SideBuy,
		Type:   exchange.OrderTypeLimit,
		Qty:    0.01,
	})
	assert.Error(t, err)
}
