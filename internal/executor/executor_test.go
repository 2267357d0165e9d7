package executor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/notify"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/state"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

type fakeGateway struct {
	candles   []exchange.Candle
	klinesErr error
	orders    []exchange.OrderRequest
	funding   *exchange.FundingRate
}

func (g *fakeGateway) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	if g.klinesErr != nil {
		return nil, g.klinesErr
	}
	if len(g.candles) > limit {
		return g.candles[len(g.candles)-limit:], nil
	}
	return g.candles, nil
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	g.orders = append(g.orders, req)
	return exchange.OrderResult{ID: "ord-1", Symbol: req.Symbol, Side: req.Side, Qty: req.Qty, Status: exchange.StatusFilled}, nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (g *fakeGateway) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	return nil, nil
}

func (g *fakeGateway) GetBalance(ctx context.Context, asset string) ([]exchange.Balance, error) {
	return []exchange.Balance{{Asset: "USDT", Free: 10000}}, nil
}

func (g *fakeGateway) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	return &exchange.AccountInfo{CanTrade: true}, nil
}
func (g *fakeGateway) ValidateCredentials(ctx context.Context) (bool, error) { return true, nil }
func (g *fakeGateway) GetOpenPositions(ctx context.Context) ([]exchange.FuturesPosition, error) {
	return nil, nil
}

func (g *fakeGateway) GetPosition(ctx context.Context, symbol string) (*exchange.FuturesPosition, error) {
	return nil, nil
}
func (g *fakeGateway) GetLeverage(ctx context.Context, symbol string) (int, error) { return 1, nil }
func (g *fakeGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func (g *fakeGateway) GetFundingRate(ctx context.Context, symbol string) (*exchange.FundingRate, error) {
	return g.funding, nil
}

func (g *fakeGateway) ClosePosition(ctx context.Context, symbol string) (*exchange.OrderResult, error) {
	return nil, nil
}
func (g *fakeGateway) SupportedIntervals() []string { return exchange.CanonicalIntervals }
func (g *fakeGateway) Name() string                 { return "fake" }

// candlesFromCloses builds a bar series where each bar's OHLC collapses to
// the close, which is all the moving-average strategy looks at.
func candlesFromCloses(closes ...float64) []exchange.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]exchange.Candle, len(closes))
	for i, c := range closes {
		out[i] = exchange.Candle{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: c, High: c, Low: c, Close: c, Volume: 100,
		}
	}
	return out
}

func paperBot(id string) db.Bot {
	return db.Bot{
		ID:           id,
		UserID:       "user-1",
		Name:         "test bot",
		Exchange:     "binance",
		Symbol:       "BTCUSDT",
		Interval:     "1h",
		MarketType:   "spot",
		StrategyType: "moving_average",
		Parameters:   json.RawMessage(`{"shortPeriod":2,"longPeriod":3}`),
		Quantity:     1,
		Leverage:     1,
		Mode:         "auto",
		TradingMode:  "paper",
		Status:       "running",
		PaperBalance: 10000,
	}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.ApplyMigrations(database))
	return Deps{
		DB:       database,
		States:   state.NewManager(),
		Bus:      events.NewBus(),
		Notifier: notify.Noop{},
		Log:      zap.NewNop(),
	}
}

func newTestRunner(t *testing.T, deps Deps, bot db.Bot, gw exchange.Gateway) *Runner {
	t.Helper()
	require.NoError(t, deps.DB.CreateBot(context.Background(), bot))
	r, err := NewRunner(context.Background(), deps, bot, gw)
	require.NoError(t, err)
	return r
}

func TestPaperBuyDebitsNotional(t *testing.T) {
	deps := testDeps(t)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, paperBot("bot-1"), gw)

	r.Tick(context.Background())

	st, ok := deps.States.Get("bot-1")
	require.True(t, ok)
	assert.Equal(t, 1.0, st.Position)
	assert.Equal(t, 100.0, st.EntryPrice)
	assert.Equal(t, 9900.0, st.Balance)

	trades, err := deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.Equal(t, 9900.0, trades[0].BalanceAfter)
	assert.Empty(t, gw.orders, "paper mode must never touch the exchange")
}

func TestPaperReversalLogsTwoTrades(t *testing.T) {
	deps := testDeps(t)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, paperBot("bot-1"), gw)

	r.Tick(context.Background()) // opens long 1 @ 100

	// Bearish turn: short MA drops under long MA, strategy flips to sell.
	gw.candles = candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 99, 97, 95)
	r.Tick(context.Background())

	st, _ := deps.States.Get("bot-1")
	assert.Equal(t, -1.0, st.Position, "paper spot reverses into a virtual short")
	assert.Equal(t, 95.0, st.EntryPrice)
	// 9900 close long +95, then short holds 95 notional: 9995 - 95.
	assert.Equal(t, 9900.0, st.Balance)
	assert.Equal(t, -5.0, st.DailyPnL)

	trades, err := deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 3, "buy, closing sell, reopening sell")
	var sells int
	var pnl float64
	for _, tr := range trades {
		if tr.Side == "SELL" {
			sells++
		}
		pnl += tr.PnL
	}
	assert.Equal(t, 2, sells)
	assert.Equal(t, -5.0, pnl)

	perf, err := deps.DB.GetPaperStats(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, perf.TotalTrades)
	assert.Equal(t, -5.0, perf.TotalPnL)
}

func TestLongOnlySellOnlyCloses(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Parameters = json.RawMessage(`{"shortPeriod":2,"longPeriod":3,"positionSide":"long"}`)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	r.Tick(context.Background())
	gw.candles = candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 99, 97, 95)
	r.Tick(context.Background())

	st, _ := deps.States.Get("bot-1")
	assert.Equal(t, 0.0, st.Position, "long-only bots never open shorts")
	assert.Equal(t, 9995.0, st.Balance)
}

func TestFuturesMarginDebit(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.MarketType = "futures"
	bot.Leverage = 5
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	r.Tick(context.Background())

	st, _ := deps.States.Get("bot-1")
	assert.Equal(t, 1.0, st.Position)
	assert.Equal(t, 20.0, st.Margin, "margin is notional over leverage")
	assert.Equal(t, 9980.0, st.Balance)
}

func TestDailyLossCapBlocksNewTrades(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Risk = json.RawMessage(`{"maxDailyLoss":50}`)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	st, _ := deps.States.Get("bot-1")
	st.DailyPnL = -50
	deps.States.Put(st)

	r.Tick(context.Background())

	st, _ = deps.States.Get("bot-1")
	assert.Equal(t, 0.0, st.Position, "gate rejects at the cap inclusively")
	trades, err := deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestStopLossBypassesDailyLossCap(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Risk = json.RawMessage(`{"maxDailyLoss":50,"stopLoss":10}`)
	// Flat closes keep the strategy quiet so only the exit path acts.
	gw := &fakeGateway{candles: candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)}
	r := newTestRunner(t, deps, bot, gw)

	st, _ := deps.States.Get("bot-1")
	st.Position = 1
	st.EntryPrice = 120 // 16.7% under water at 100
	st.DailyPnL = -50
	st.Balance = 9880
	deps.States.Put(st)

	r.Tick(context.Background())

	st, _ = deps.States.Get("bot-1")
	assert.Equal(t, 0.0, st.Position, "protective close runs even at the loss cap")
	assert.Equal(t, 9980.0, st.Balance)
	assert.Equal(t, -70.0, st.DailyPnL)

	trades, err := deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, -20.0, trades[0].PnL)
	assert.Contains(t, trades[0].Reason, "stop loss")
}

func TestDrawdownHaltSkipsTick(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Risk = json.RawMessage(`{"drawdownEnabled":true,"maxDrawdown":10}`)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	alerts, unsub := deps.Bus.Subscribe(events.TopicRiskAlert, 4)
	defer unsub()

	st, _ := deps.States.Get("bot-1")
	st.Balance = 8900 // 11% under the 10000 peak
	deps.States.Put(st)

	r.Tick(context.Background())

	st, _ = deps.States.Get("bot-1")
	assert.Equal(t, 0.0, st.Position, "halted bots take no trades")

	select {
	case ev := <-alerts:
		alert, ok := ev.(events.RiskAlertEvent)
		require.True(t, ok)
		assert.Equal(t, "drawdown", alert.Kind)
	default:
		t.Fatal("expected a drawdown alert")
	}

	// The alert fires once, not every halted tick.
	r.Tick(context.Background())
	select {
	case <-alerts:
		t.Fatal("halt alert must not repeat")
	default:
	}
}

func TestDrawdownRequiresPositiveThreshold(t *testing.T) {
	_, err := ParseRiskSpec(nil, json.RawMessage(`{"drawdownEnabled":true}`))
	require.Error(t, err, "enabled protection with no threshold would halt at 0% drawdown")

	_, err = ParseRiskSpec(nil, json.RawMessage(`{"drawdownEnabled":true,"maxDrawdown":0}`))
	require.Error(t, err)

	spec, err := ParseRiskSpec(nil, json.RawMessage(`{"drawdownEnabled":true,"maxDrawdown":10}`))
	require.NoError(t, err)
	assert.True(t, spec.DrawdownEnabled)

	spec, err = ParseRiskSpec(nil, json.RawMessage(`{"maxDrawdown":0}`))
	require.NoError(t, err, "disabled protection ignores the threshold")
	assert.False(t, spec.DrawdownEnabled)

	// A runner built with an enabled spec must trade normally at its
	// starting equity instead of halting before the first order.
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Risk = json.RawMessage(`{"drawdownEnabled":true,"maxDrawdown":10}`)
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	r.Tick(context.Background())

	st, _ := deps.States.Get("bot-1")
	assert.Equal(t, 1.0, st.Position, "fresh bot at peak equity is not halted")

	bad := paperBot("bot-2")
	bad.Risk = json.RawMessage(`{"drawdownEnabled":true}`)
	require.NoError(t, deps.DB.CreateBot(context.Background(), bad))
	_, err = NewRunner(context.Background(), deps, bad, gw)
	require.Error(t, err)
}

func TestFundingSettlement(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.MarketType = "futures"
	bot.Leverage = 5
	// Rising closes keep the strategy long while the bot already holds a
	// long, so only the funding path changes state.
	gw := &fakeGateway{
		candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100),
		funding: &exchange.FundingRate{Symbol: "BTCUSDT", Rate: 0.0001},
	}
	r := newTestRunner(t, deps, bot, gw)

	st, _ := deps.States.Get("bot-1")
	st.Position = 1
	st.EntryPrice = 100
	st.Margin = 20
	st.Balance = 9980
	deps.States.Put(st)

	// Advance the clock past the recorded funding boundary.
	fundAt := st.NextFunding.Add(time.Minute)
	r.now = func() time.Time { return fundAt }

	r.Tick(context.Background())

	st, _ = deps.States.Get("bot-1")
	// Long pays: -1 * 100 * 0.0001 = -0.01.
	assert.InDelta(t, 9980-0.01, st.Balance, 1e-9)
	assert.InDelta(t, -0.01, st.DailyPnL, 1e-9)
	assert.Equal(t, nextFundingTime(fundAt), st.NextFunding)

	// Same tick window settles only once.
	r.Tick(context.Background())
	st, _ = deps.States.Get("bot-1")
	assert.InDelta(t, 9980-0.01, st.Balance, 1e-9)
}

func TestTickErrorTrapAndRecovery(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	gw := &fakeGateway{candles: candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)}
	r := newTestRunner(t, deps, bot, gw)

	gw.klinesErr = assert.AnError
	r.Tick(context.Background())

	got, err := deps.DB.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "error", got.Status)

	logs, err := deps.DB.ListBotLogs(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "error", logs[0].Level)

	gw.klinesErr = nil
	r.Tick(context.Background())
	got, err = deps.DB.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status, "a clean tick restores the running status")
}

func TestManualModeQueuesApproval(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.Mode = "manual"
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	r.Tick(context.Background())
	r.Tick(context.Background()) // same signal must not queue twice

	trades, err := deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades, "manual mode never trades on its own")

	pending, err := deps.DB.ListPendingApprovals(context.Background(), "bot-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "buy", pending[0].Action)

	approved, err := deps.DB.ResolvePendingApproval(context.Background(), pending[0].ID, "approved")
	require.NoError(t, err)
	require.NoError(t, r.ExecuteApproved(context.Background(), approved))

	st, _ := deps.States.Get("bot-1")
	assert.Equal(t, 1.0, st.Position)
	trades, err = deps.DB.ListPaperTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestLiveOrdersReachGateway(t *testing.T) {
	deps := testDeps(t)
	bot := paperBot("bot-1")
	bot.TradingMode = "live"
	bot.MarketType = "futures"
	bot.Leverage = 2
	gw := &fakeGateway{candles: candlesFromCloses(91, 92, 93, 94, 95, 96, 97, 98, 99, 100)}
	r := newTestRunner(t, deps, bot, gw)

	r.Tick(context.Background())

	require.Len(t, gw.orders, 1)
	assert.Equal(t, exchange.SideBuy, gw.orders[0].Side)
	assert.False(t, gw.orders[0].ReduceOnly)

	gw.candles = candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 99, 97, 95)
	r.Tick(context.Background())

	// Reversal: reduce-only close, then a fresh short.
	require.Len(t, gw.orders, 3)
	assert.Equal(t, exchange.SideSell, gw.orders[1].Side)
	assert.True(t, gw.orders[1].ReduceOnly, "futures closes are reduce-only")
	assert.Equal(t, exchange.SideSell, gw.orders[2].Side)
	assert.False(t, gw.orders[2].ReduceOnly)

	trades, err := deps.DB.ListTradesByBot(context.Background(), "bot-1", 10)
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}

func TestNextFundingTime(t *testing.T) {
	cases := []struct {
		at   string
		want string
	}{
		{"2024-03-01T00:00:00Z", "2024-03-01T08:00:00Z"},
		{"2024-03-01T07:59:59Z", "2024-03-01T08:00:00Z"},
		{"2024-03-01T08:00:00Z", "2024-03-01T16:00:00Z"},
		{"2024-03-01T23:30:00Z", "2024-03-02T00:00:00Z"},
	}
	for _, tc := range cases {
		at, _ := time.Parse(time.RFC3339, tc.at)
		want, _ := time.Parse(time.RFC3339, tc.want)
		assert.Equal(t, want, nextFundingTime(at), tc.at)
	}
}

func TestQuoteAsset(t *testing.T) {
	assert.Equal(t, "USDT", quoteAsset("BTCUSDT"))
	assert.Equal(t, "USD", quoteAsset("XBTUSD"))
	assert.Equal(t, "USDC", quoteAsset("ETH-USDC"))
	assert.Equal(t, "USDT", quoteAsset("WEIRDPAIR"))
}
