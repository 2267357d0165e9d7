package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Client talks to the Kraken REST API. Private calls are signed with
// HMAC-SHA512 over the URI path concatenated with SHA256(nonce + POST body),
// keyed by the base64-decoded API secret. Spot only; the futures surface is
// a no-op.
type Client struct {
	creds      exchange.Credentials
	baseURL    string
	httpClient *http.Client
}

// Kraken names intervals in minutes.
var intervalMap = map[string]string{
	"1m": "1", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "4h": "240", "1d": "1440", "1w": "10080",
}

func New(creds exchange.Credentials) *Client {
	return &Client{
		creds:      creds,
		baseURL:    "https://api.kraken.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "kraken" }

func (c *Client) SupportedIntervals() []string {
	out := make([]string, 0, len(intervalMap))
	for _, iv := range exchange.CanonicalIntervals {
		if _, ok := intervalMap[iv]; ok {
			out = append(out, iv)
		}
	}
	return out
}

// normalizeSymbol maps engine symbols (BTCUSDT) to Kraken pair names
// (XBTUSDT). Kraken calls bitcoin XBT.
func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSuffix(symbol, ".P"))
	if strings.HasPrefix(s, "BTC") {
		s = "XBT" + s[3:]
	}
	return s
}

func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	iv, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("kraken: unsupported interval %q", interval)
	}
	endpoint := fmt.Sprintf("%s/0/public/OHLC?pair=%s&interval=%s", c.baseURL, normalizeSymbol(symbol), iv)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, &exchange.APIError{Venue: "kraken", StatusCode: res.StatusCode, Body: string(body)}
	}

	var resp struct {
		Error  []string                   `json:"error"`
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ohlc: %w", err)
	}
	if err := krakenError(resp.Error); err != nil {
		return nil, err
	}

	var candles []exchange.Candle
	for key, raw := range resp.Result {
		if key == "last" {
			continue
		}
		// Rows: [time, open, high, low, close, vwap, volume, count]
		var rows [][]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			continue
		}
		for _, row := range rows {
			if len(row) < 7 {
				continue
			}
			ts, _ := row[0].(float64)
			candles = append(candles, exchange.Candle{
				Time:   time.Unix(int64(ts), 0).UTC(),
				Open:   parseField(row[1]),
				High:   parseField(row[2]),
				Low:    parseField(row[3]),
				Close:  parseField(row[4]),
				Volume: parseField(row[6]),
			})
		}
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if req.Type == exchange.OrderTypeLimit && req.Price <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("kraken: limit order requires price")
	}
	data := url.Values{}
	data.Set("pair", normalizeSymbol(req.Symbol))
	data.Set("type", strings.ToLower(string(req.Side)))
	data.Set("volume", strconv.FormatFloat(req.Qty, 'f', -1, 64))
	if req.Type == exchange.OrderTypeLimit {
		data.Set("ordertype", "limit")
		data.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	} else {
		data.Set("ordertype", "market")
	}

	body, err := c.doPrivate(ctx, "/0/private/AddOrder", data)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	var result struct {
		Txid []string `json:"txid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return exchange.OrderResult{}, fmt.Errorf("decode add order: %w", err)
	}
	id := ""
	if len(result.Txid) > 0 {
		id = result.Txid[0]
	}
	return exchange.OrderResult{
		ID:        id,
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
	data := url.Values{}
	data.Set("txid", orderID)
	_, err := c.doPrivate(ctx, "/0/private/CancelOrder", data)
	return err
}

func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	data := url.Values{}
	data.Set("txid", orderID)
	body, err := c.doPrivate(ctx, "/0/private/QueryOrders", data)
	if err != nil {
		return nil, err
	}
	var orders map[string]struct {
		Status string `json:"status"`
		Descr  struct {
			Pair      string `json:"pair"`
			Type      string `json:"type"`
			OrderType string `json:"ordertype"`
			Price     string `json:"price"`
		} `json:"descr"`
		Vol      string  `json:"vol"`
		OpenTime float64 `json:"opentm"`
	}
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("decode query orders: %w", err)
	}
	o, ok := orders[orderID]
	if !ok {
		return nil, fmt.Errorf("kraken: order %s not found", orderID)
	}
	return &exchange.OrderResult{
		ID:        orderID,
		Symbol:    o.Descr.Pair,
		Side:      exchange.Side(strings.ToUpper(o.Descr.Type)),
		Type:      exchange.OrderType(strings.ToUpper(o.Descr.OrderType)),
		Qty:       parseFloat(o.Vol),
		Price:     parseFloat(o.Descr.Price),
		Status:    mapStatus(o.Status),
		Timestamp: time.Unix(int64(o.OpenTime), 0).UTC(),
	}, nil
}

func (c *Client) GetBalance(ctx context.Context, asset string) ([]exchange.Balance, error) {
	body, err := c.doPrivate(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return nil, err
	}
	var balances map[string]string
	if err := json.Unmarshal(body, &balances); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	var out []exchange.Balance
	for a, v := range balances {
		if asset != "" && !strings.EqualFold(a, asset) {
			continue
		}
		out = append(out, exchange.Balance{Asset: a, Free: parseFloat(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
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
	_, err := c.doPrivate(ctx, "/0/private/Balance", url.Values{})
	if err == nil {
		return true, nil
	}
	if exchange.IsAuthError(err) {
		return false, nil
	}
	return false, err
}

// Futures surface: Kraken spot has none; the contract is total, so these
// return empty results and no-op.

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

// doPrivate signs and performs a private POST, returning the raw "result"
// payload. Kraken reports failures in-band via the error array.
func (c *Client) doPrivate(ctx context.Context, path string, data url.Values) (json.RawMessage, error) {
	if c.creds.APIKey == "" || c.creds.APISecret == "" {
		return nil, fmt.Errorf("kraken: %w", exchange.ErrAuth)
	}
	nonce := strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
	data.Set("nonce", nonce)
	encoded := data.Encode()

	sig, err := sign(path, nonce, encoded, c.creds.APISecret)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.creds.APIKey)
	req.Header.Set("API-Sign", sig)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, &exchange.APIError{Venue: "kraken", StatusCode: res.StatusCode, Body: string(body)}
	}

	var resp struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := krakenError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// sign computes base64(HMAC-SHA512(path || SHA256(nonce || postdata))) with
// the base64-decoded secret as key.
func sign(path, nonce, postdata, secret string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("kraken: decode secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func krakenError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	msg := strings.Join(errs, "; ")
	if strings.Contains(msg, "EAPI:Invalid key") ||
		strings.Contains(msg, "EAPI:Invalid signature") ||
		strings.Contains(msg, "EGeneral:Permission denied") {
		return fmt.Errorf("kraken: %s: %w", msg, exchange.ErrAuth)
	}
	return fmt.Errorf("kraken: %s", msg)
}

func mapStatus(s string) exchange.OrderStatus {
	switch s {
	case "open", "pending":
		return exchange.StatusPending
	case "closed":
		return exchange.StatusFilled
	case "canceled", "expired":
		return exchange.StatusCancelled
	default:
		return exchange.StatusPending
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseField(v any) float64 {
	switch t := v.(type) {
	case string:
		return parseFloat(t)
	case float64:
		return t
	default:
		return 0
	}
}
