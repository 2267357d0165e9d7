package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Config holds Binance connection settings.
type Config struct {
	Credentials exchange.Credentials
	Market      exchange.MarketType
	Testnet     bool
	RecvWindow  int64 // ms
}

// Client talks to Binance spot or USDT-M futures depending on Config.Market.
// Signing is HMAC-SHA256 over the encoded query string.
type Client struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	timeSync    *exchange.TimeSync
	rateLimiter *exchange.RateLimiter
}

var intervalMap = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h", "12h": "12h",
	"1d": "1d", "1w": "1w",
}

// New creates a Binance gateway for the given market type.
func New(cfg Config) *Client {
	base := "https://api.binance.com"
	weight := 1200
	if cfg.Market == exchange.MarketFutures {
		base = "https://fapi.binance.com"
		weight = 2400
		if cfg.Testnet {
			base = "https://testnet.binancefuture.com"
		}
	} else if cfg.Testnet {
		base = "https://testnet.binance.vision"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	c.timeSync = exchange.NewTimeSync(func() (int64, error) {
		return c.getServerTime()
	})
	c.rateLimiter = exchange.NewRateLimiter(weight, time.Minute)
	return c
}

func (c *Client) Name() string { return "binance" }

func (c *Client) SupportedIntervals() []string {
	out := make([]string, 0, len(intervalMap))
	for _, iv := range exchange.CanonicalIntervals {
		if _, ok := intervalMap[iv]; ok {
			out = append(out, iv)
		}
	}
	return out
}

func (c *Client) futures() bool { return c.cfg.Market == exchange.MarketFutures }

// normalizeSymbol strips the ".P" perpetual suffix some UIs carry; Binance
// REST uses the bare symbol for both spot and USDT-M perps.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSuffix(symbol, ".P"))
}

func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	iv, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("binance: unsupported interval %q", interval)
	}
	if limit <= 0 {
		limit = 100
	}
	path := "/api/v3/klines"
	if c.futures() {
		path = "/fapi/v1/klines"
	}
	endpoint := fmt.Sprintf("%s%s?symbol=%s&interval=%s&limit=%d",
		c.baseURL, path, normalizeSymbol(symbol), iv, limit)

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
		return nil, &exchange.APIError{Venue: "binance", StatusCode: res.StatusCode, Body: string(body)}
	}

	// Kline rows are mixed-type arrays: [openTime, open, high, low, close, volume, ...]
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	candles := make([]exchange.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		openTime, _ := row[0].(float64)
		candles = append(candles, exchange.Candle{
			Time:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   parseField(row[1]),
			High:   parseField(row[2]),
			Low:    parseField(row[3]),
			Close:  parseField(row[4]),
			Volume: parseField(row[5]),
		})
	}
	return candles, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if c.cfg.Credentials.APIKey == "" || c.cfg.Credentials.APISecret == "" {
		return exchange.OrderResult{}, fmt.Errorf("binance: %w", exchange.ErrAuth)
	}
	if req.Type == exchange.OrderTypeLimit && req.Price <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("binance: limit order requires price")
	}

	params := url.Values{}
	params.Set("symbol", normalizeSymbol(req.Symbol))
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", formatFloat(req.Qty))
	if req.Type == exchange.OrderTypeLimit {
		params.Set("price", formatFloat(req.Price))
		params.Set("timeInForce", "GTC")
	}
	if c.futures() && req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	path := "/api/v3/order"
	if c.futures() {
		path = "/fapi/v1/order"
	}
	body, err := c.doSigned(ctx, http.MethodPost, c.baseURL+path, params)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return exchange.OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	return exchange.OrderResult{
		ID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:    resp.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Qty:       req.Qty,
		Price:     parseFloat(resp.Price, req.Price),
		Status:    mapStatus(resp.Status),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", orderID)
	path := "/api/v3/order"
	if c.futures() {
		path = "/fapi/v1/order"
	}
	_, err := c.doSigned(ctx, http.MethodDelete, c.baseURL+path, params)
	return err
}

func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", orderID)
	path := "/api/v3/order"
	if c.futures() {
		path = "/fapi/v1/order"
	}
	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+path, params)
	if err != nil {
		return nil, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &exchange.OrderResult{
		ID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:    resp.Symbol,
		Side:      exchange.Side(resp.Side),
		Type:      exchange.OrderType(resp.Type),
		Qty:       parseFloat(resp.OrigQty, 0),
		Price:     parseFloat(resp.Price, 0),
		Status:    mapStatus(resp.Status),
		Timestamp: time.UnixMilli(resp.UpdateTime).UTC(),
	}, nil
}

func (c *Client) GetBalance(ctx context.Context, asset string) ([]exchange.Balance, error) {
	if c.futures() {
		body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/fapi/v2/balance", url.Values{})
		if err != nil {
			return nil, err
		}
		var rows []struct {
			Asset            string `json:"asset"`
			AvailableBalance string `json:"availableBalance"`
			Balance          string `json:"balance"`
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode balance: %w", err)
		}
		var out []exchange.Balance
		for _, r := range rows {
			if asset != "" && !strings.EqualFold(r.Asset, asset) {
				continue
			}
			free := parseFloat(r.AvailableBalance, 0)
			total := parseFloat(r.Balance, 0)
			out = append(out, exchange.Balance{Asset: r.Asset, Free: free, Locked: total - free})
		}
		return out, nil
	}

	info, err := c.GetAccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	if asset == "" {
		return info.Balances, nil
	}
	var out []exchange.Balance
	for _, b := range info.Balances {
		if strings.EqualFold(b.Asset, asset) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *Client) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	path := "/api/v3/account"
	if c.futures() {
		path = "/fapi/v2/account"
	}
	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+path, url.Values{})
	if err != nil {
		return nil, err
	}

	if c.futures() {
		var info struct {
			CanTrade bool `json:"canTrade"`
			Assets   []struct {
				Asset            string `json:"asset"`
				AvailableBalance string `json:"availableBalance"`
				WalletBalance    string `json:"walletBalance"`
			} `json:"assets"`
			UpdateTime int64 `json:"updateTime"`
		}
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, fmt.Errorf("decode account info: %w", err)
		}
		out := &exchange.AccountInfo{CanTrade: info.CanTrade, UpdateTime: time.UnixMilli(info.UpdateTime).UTC()}
		for _, a := range info.Assets {
			free := parseFloat(a.AvailableBalance, 0)
			total := parseFloat(a.WalletBalance, 0)
			out.Balances = append(out.Balances, exchange.Balance{Asset: a.Asset, Free: free, Locked: total - free})
		}
		return out, nil
	}

	var info struct {
		CanTrade bool `json:"canTrade"`
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
		UpdateTime int64 `json:"updateTime"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}
	out := &exchange.AccountInfo{CanTrade: info.CanTrade, UpdateTime: time.UnixMilli(info.UpdateTime).UTC()}
	for _, b := range info.Balances {
		out.Balances = append(out.Balances, exchange.Balance{
			Asset:  b.Asset,
			Free:   parseFloat(b.Free, 0),
			Locked: parseFloat(b.Locked, 0),
		})
	}
	return out, nil
}

func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.GetAccountInfo(ctx)
	if err == nil {
		return true, nil
	}
	if exchange.IsAuthError(err) {
		return false, nil
	}
	return false, err
}

// Futures surface. Spot clients answer with empty results / no-ops so the
// Gateway contract stays total.

func (c *Client) GetOpenPositions(ctx context.Context) ([]exchange.FuturesPosition, error) {
	if !c.futures() {
		return nil, nil
	}
	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/fapi/v2/positionRisk", url.Values{})
	if err != nil {
		return nil, err
	}
	var rows []positionRisk
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	var out []exchange.FuturesPosition
	for _, r := range rows {
		amt := parseFloat(r.PositionAmt, 0)
		if amt == 0 {
			continue
		}
		out = append(out, r.toPosition())
	}
	return out, nil
}

func (c *Client) GetPosition(ctx context.Context, symbol string) (*exchange.FuturesPosition, error) {
	if !c.futures() {
		return nil, nil
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/fapi/v2/positionRisk", params)
	if err != nil {
		return nil, err
	}
	var rows []positionRisk
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	pos := rows[0].toPosition()
	return &pos, nil
}

func (c *Client) GetLeverage(ctx context.Context, symbol string) (int, error) {
	pos, err := c.GetPosition(ctx, symbol)
	if err != nil || pos == nil {
		return 0, err
	}
	return pos.Leverage, nil
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if !c.futures() {
		return nil
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("leverage", strconv.Itoa(leverage))
	_, err := c.doSigned(ctx, http.MethodPost, c.baseURL+"/fapi/v1/leverage", params)
	return err
}

func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*exchange.FundingRate, error) {
	if !c.futures() {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", c.baseURL, normalizeSymbol(symbol))
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
		return nil, &exchange.APIError{Venue: "binance", StatusCode: res.StatusCode, Body: string(body)}
	}
	var resp struct {
		Symbol          string `json:"symbol"`
		LastFundingRate string `json:"lastFundingRate"`
		NextFundingTime int64  `json:"nextFundingTime"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode funding rate: %w", err)
	}
	return &exchange.FundingRate{
		Symbol:      resp.Symbol,
		Rate:        parseFloat(resp.LastFundingRate, 0),
		NextFunding: time.UnixMilli(resp.NextFundingTime).UTC(),
	}, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) (*exchange.OrderResult, error) {
	if !c.futures() {
		return nil, nil
	}
	pos, err := c.GetPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if pos == nil || pos.PositionAmt == 0 {
		return nil, nil
	}
	side := exchange.SideSell
	qty := pos.PositionAmt
	if qty < 0 {
		side = exchange.SideBuy
		qty = -qty
	}
	res, err := c.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Type:       exchange.OrderTypeMarket,
		Qty:        qty,
		ReduceOnly: true,
		Market:     exchange.MarketFutures,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// doSigned signs the query with HMAC-SHA256 and performs the HTTP request.
func (c *Client) doSigned(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(c.timeSync.Now(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.Credentials.APISecret))

	var (
		req *http.Request
		err error
	)
	encoded := params.Encode()
	switch method {
	case http.MethodGet, http.MethodDelete:
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.Credentials.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	c.rateLimiter.UpdateFromHeader(res.Header.Get("X-MBX-USED-WEIGHT-1M"))

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, &exchange.APIError{Venue: "binance", StatusCode: res.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) getServerTime() (int64, error) {
	path := "/api/v3/time"
	if c.futures() {
		path = "/fapi/v1/time"
	}
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return 0, &exchange.APIError{Venue: "binance", StatusCode: resp.StatusCode, Body: string(b)}
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	Status        string `json:"status"`
	UpdateTime    int64  `json:"updateTime"`
}

type positionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	MarginType       string `json:"marginType"`
	LiquidationPrice string `json:"liquidationPrice"`
}

func (r positionRisk) toPosition() exchange.FuturesPosition {
	lev, _ := strconv.Atoi(r.Leverage)
	return exchange.FuturesPosition{
		Symbol:           r.Symbol,
		PositionAmt:      parseFloat(r.PositionAmt, 0),
		EntryPrice:       parseFloat(r.EntryPrice, 0),
		MarkPrice:        parseFloat(r.MarkPrice, 0),
		UnrealizedProfit: parseFloat(r.UnRealizedProfit, 0),
		Leverage:         lev,
		MarginType:       r.MarginType,
		LiquidationPrice: parseFloat(r.LiquidationPrice, 0),
	}
}

func mapStatus(s string) exchange.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW", "PARTIALLY_FILLED":
		return exchange.StatusPending
	case "FILLED":
		return exchange.StatusFilled
	case "CANCELED", "EXPIRED":
		return exchange.StatusCancelled
	case "REJECTED":
		return exchange.StatusRejected
	default:
		return exchange.StatusPending
	}
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseField(v any) float64 {
	switch t := v.(type) {
	case string:
		return parseFloat(t, 0)
	case float64:
		return t
	default:
		return 0
	}
}
