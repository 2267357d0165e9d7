package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/google/uuid"
)

// Client talks to the Coinbase Advanced Trade REST API. Authentication uses
// a short-lived bearer session token minted from the API credentials; when a
// request comes back 401 the token is refreshed and the request retried
// exactly once. Spot only; the futures surface is a no-op.
type Client struct {
	creds      exchange.Credentials
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var intervalMap = map[string]string{
	"1m": "ONE_MINUTE", "5m": "FIVE_MINUTE", "15m": "FIFTEEN_MINUTE",
	"30m": "THIRTY_MINUTE", "1h": "ONE_HOUR", "2h": "TWO_HOUR",
	"6h": "SIX_HOUR", "1d": "ONE_DAY",
}

var intervalSeconds = map[string]int64{
	"1m": 60, "5m": 300, "15m": 900, "30m": 1800,
	"1h": 3600, "2h": 7200, "6h": 21600, "1d": 86400,
}

func New(creds exchange.Credentials) *Client {
	return &Client{
		creds:      creds,
		baseURL:    "https://api.coinbase.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "coinbase" }

func (c *Client) SupportedIntervals() []string {
	out := make([]string, 0, len(intervalMap))
	for _, iv := range exchange.CanonicalIntervals {
		if _, ok := intervalMap[iv]; ok {
			out = append(out, iv)
		}
	}
	return out
}

// normalizeSymbol maps engine symbols (BTCUSDT) to Coinbase product ids
// (BTC-USDT, BTC-USD).
func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSuffix(symbol, ".P"))
	if strings.Contains(s, "-") {
		return s
	}
	for _, quote := range []string{"USDT", "USDC", "USD", "EUR", "GBP", "BTC"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "-" + quote
		}
	}
	return s
}

func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	gran, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("coinbase: unsupported interval %q", interval)
	}
	if limit <= 0 || limit > 300 {
		limit = 300
	}
	end := time.Now().Unix()
	start := end - intervalSeconds[interval]*int64(limit)
	path := fmt.Sprintf("/api/v3/brokerage/products/%s/candles?granularity=%s&start=%d&end=%d",
		normalizeSymbol(symbol), gran, start, end)

	body, err := c.doAuthed(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Candles []struct {
			Start  string `json:"start"`
			Low    string `json:"low"`
			High   string `json:"high"`
			Open   string `json:"open"`
			Close  string `json:"close"`
			Volume string `json:"volume"`
		} `json:"candles"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	candles := make([]exchange.Candle, 0, len(resp.Candles))
	for _, row := range resp.Candles {
		ts, _ := strconv.ParseInt(row.Start, 10, 64)
		candles = append(candles, exchange.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   parseFloat(row.Open),
			High:   parseFloat(row.High),
			Low:    parseFloat(row.Low),
			Close:  parseFloat(row.Close),
			Volume: parseFloat(row.Volume),
		})
	}
	// Coinbase returns newest first.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if req.Type == exchange.OrderTypeLimit && req.Price <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("coinbase: limit order requires price")
	}
	qty := strconv.FormatFloat(req.Qty, 'f', -1, 64)
	cfg := map[string]any{}
	if req.Type == exchange.OrderTypeLimit {
		cfg["limit_limit_gtc"] = map[string]any{
			"base_size":   qty,
			"limit_price": strconv.FormatFloat(req.Price, 'f', -1, 64),
		}
	} else {
		cfg["market_market_ioc"] = map[string]any{"base_size": qty}
	}
	payload := map[string]any{
		"client_order_id":     uuid.NewString(),
		"product_id":          normalizeSymbol(req.Symbol),
		"side":                string(req.Side),
		"order_configuration": cfg,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return exchange.OrderResult{}, err
	}

	body, err := c.doAuthed(ctx, http.MethodPost, "/api/v3/brokerage/orders", raw)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	var resp struct {
		Success       bool `json:"success"`
		SuccessResp   struct {
			OrderID string `json:"order_id"`
		} `json:"success_response"`
		ErrorResp struct {
			Message string `json:"message"`
		} `json:"error_response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return exchange.OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	if !resp.Success {
		return exchange.OrderResult{}, fmt.Errorf("coinbase: order rejected: %s", resp.ErrorResp.Message)
	}
	return exchange.OrderResult{
		ID:        resp.SuccessResp.OrderID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Qty:       req.Qty,
		Price:     req.Price,
		Status:    exchange.StatusPending,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	raw, err := json.Marshal(map[string]any{"order_ids": []string{orderID}})
	if err != nil {
		return err
	}
	_, err = c.doAuthed(ctx, http.MethodPost, "/api/v3/brokerage/orders/batch_cancel", raw)
	return err
}

func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	body, err := c.doAuthed(ctx, http.MethodGet, "/api/v3/brokerage/orders/historical/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Order struct {
			OrderID      string `json:"order_id"`
			ProductID    string `json:"product_id"`
			Side         string `json:"side"`
			Status       string `json:"status"`
			FilledSize   string `json:"filled_size"`
			AvgFillPrice string `json:"average_filled_price"`
			CreatedTime  string `json:"created_time"`
			OrderType    string `json:"order_type"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o := resp.Order
	created, _ := time.Parse(time.RFC3339, o.CreatedTime)
	typ := exchange.OrderTypeMarket
	if strings.EqualFold(o.OrderType, "LIMIT") {
		typ = exchange.OrderTypeLimit
	}
	return &exchange.OrderResult{
		ID:        o.OrderID,
		Symbol:    o.ProductID,
		Side:      exchange.Side(strings.ToUpper(o.Side)),
		Type:      typ,
		Qty:       parseFloat(o.FilledSize),
		Price:     parseFloat(o.AvgFillPrice),
		Status:    mapStatus(o.Status),
		Timestamp: created.UTC(),
	}, nil
}

func (c *Client) GetBalance(ctx context.Context, asset string) ([]exchange.Balance, error) {
	body, err := c.doAuthed(ctx, http.MethodGet, "/api/v3/brokerage/accounts?limit=250", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Accounts []struct {
			Currency         string `json:"currency"`
			AvailableBalance struct {
				Value string `json:"value"`
			} `json:"available_balance"`
			Hold struct {
				Value string `json:"value"`
			} `json:"hold"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	var out []exchange.Balance
	for _, a := range resp.Accounts {
		if asset != "" && !strings.EqualFold(a.Currency, asset) {
			continue
		}
		free := parseFloat(a.AvailableBalance.Value)
		locked := parseFloat(a.Hold.Value)
		if asset == "" && free == 0 && locked == 0 {
			continue
		}
		out = append(out, exchange.Balance{Asset: a.Currency, Free: free, Locked: locked})
	}
	return out, nil
}

func (c *Client) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	balances, err := c.GetBalance(ctx, "")
	if err != nil {
		return nil, err
	}
	return &exchange.AccountInfo{
		CanTrade:   true,
		Balances:   balances,
		UpdateTime: time.Now().UTC(),
	}, nil
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.doAuthed(ctx, http.MethodGet, "/api/v3/brokerage/accounts?limit=1", nil)
	if err == nil {
		return true, nil
	}
	if exchange.IsAuthError(err) {
		return false, nil
	}
	return false, err
}

// Futures surface: spot-only venue, total contract satisfied with no-ops.

func (c *Client) GetOpenPositions(ctx context.Context) ([]exchange.FuturesPosition, error) {
	return nil, nil
}

func (c *Client) GetPosition(ctx context.Context, symbol string) (*exchange.FuturesPosition, error) {
	return nil, nil
}

func (c *Client) GetLeverage(ctx context.Context, symbol string) (int, error) { return 0, nil }

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }

func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*exchange.FundingRate, error) {
	return nil, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) (*exchange.OrderResult, error) {
	return nil, nil
}

// doAuthed performs a bearer-authenticated request. On 401 the cached
// session token is discarded, refreshed, and the request retried exactly
// once; a second 401 surfaces as an auth error.
func (c *Client) doAuthed(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	body, status, err := c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.invalidateToken()
		body, status, err = c.doOnce(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("coinbase: %s: %w", strings.TrimSpace(string(body)), exchange.ErrAuth)
	}
	if status >= 300 {
		return nil, &exchange.APIError{Venue: "coinbase", StatusCode: status, Body: string(body)}
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, 0, err
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return body, res.StatusCode, nil
}

// sessionToken returns the cached bearer token, minting a new one when
// missing or within a minute of expiry.
func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}
	if c.creds.APIKey == "" || c.creds.APISecret == "" {
		return "", fmt.Errorf("coinbase: %w", exchange.ErrAuth)
	}

	raw, err := json.Marshal(map[string]string{
		"api_key":    c.creds.APIKey,
		"api_secret": c.creds.APISecret,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/brokerage/session", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("coinbase: session mint rejected: %w", exchange.ErrAuth)
	}
	if res.StatusCode >= 300 {
		return "", &exchange.APIError{Venue: "coinbase", StatusCode: res.StatusCode, Body: string(body)}
	}

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("coinbase: empty session token")
	}
	ttl := time.Duration(resp.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	c.token = resp.Token
	c.tokenExpiry = time.Now().Add(ttl)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func mapStatus(s string) exchange.OrderStatus {
	switch strings.ToUpper(s) {
	case "OPEN", "PENDING", "QUEUED":
		return exchange.StatusPending
	case "FILLED":
		return exchange.StatusFilled
	case "CANCELLED", "EXPIRED":
		return exchange.StatusCancelled
	case "FAILED", "REJECTED":
		return exchange.StatusRejected
	default:
		return exchange.StatusPending
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
