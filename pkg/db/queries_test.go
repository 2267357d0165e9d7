package db

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, ApplyMigrations(database))
	return database
}

func sampleBot(id string) Bot {
	return Bot{
		ID:           id,
		UserID:       "user-1",
		Name:         "btc scalper",
		Exchange:     "binance",
		Symbol:       "BTCUSDT",
		Interval:     "1h",
		MarketType:   "spot",
		StrategyType: "moving_average",
		Parameters:   json.RawMessage(`{"shortPeriod":9,"longPeriod":21}`),
		Quantity:     0.01,
		Leverage:     1,
		Mode:         "auto",
		TradingMode:  "paper",
		Status:       "stopped",
		PaperBalance: 10000,
	}
}

func TestBotRoundTrip(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	got, err := d.GetBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "btc scalper", got.Name)
	assert.Equal(t, "moving_average", got.StrategyType)
	assert.JSONEq(t, `{"shortPeriod":9,"longPeriod":21}`, string(got.Parameters))
	assert.Equal(t, 10000.0, got.PaperBalance)

	_, err = d.GetBot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBotStatusTransitions(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	require.NoError(t, d.UpdateBotStatus(ctx, "bot-1", "running"))
	got, err := d.GetBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)

	assert.ErrorIs(t, d.UpdateBotStatus(ctx, "missing", "running"), ErrNotFound)
}

func TestListBotsByStatusForRearm(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	running := sampleBot("bot-running")
	running.Status = "running"
	stopped := sampleBot("bot-stopped")
	other := sampleBot("bot-other-user")
	other.UserID = "user-2"
	other.Status = "running"

	for _, b := range []Bot{running, stopped, other} {
		require.NoError(t, d.CreateBot(ctx, b))
	}

	bots, err := d.ListBotsByStatus(ctx, "running")
	require.NoError(t, err)
	require.Len(t, bots, 2, "re-arm scans across all users")

	mine, err := d.ListBotsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestTradeHistoryAndPerformance(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	trades := []Trade{
		{ID: "t1", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT", Side: "BUY", Qty: 1, Price: 100},
		{ID: "t2", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT", Side: "SELL", Qty: 1, Price: 110, PnL: 10},
		{ID: "t3", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT", Side: "SELL", Qty: 1, Price: 95, PnL: -5},
	}
	for _, tr := range trades {
		require.NoError(t, d.InsertTrade(ctx, tr))
	}

	got, err := d.ListTradesByBot(ctx, "bot-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	perf, err := d.RecomputePerformance(ctx, "bot-1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, perf.TotalTrades)
	assert.Equal(t, 1, perf.WinningTrades)
	assert.InDelta(t, 5.0, perf.TotalPnL, 1e-9)

	bot, err := d.GetBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, bot.Performance.TotalTrades)
	assert.InDelta(t, 100.0/3.0, bot.Performance.WinRate, 1e-6)
}

func TestRecomputePerformanceWindowsThirtyDays(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	require.NoError(t, d.InsertPaperTrade(ctx, PaperTrade{
		ID: "p-old", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT",
		Side: "SELL", Qty: 1, Price: 110, PnL: 123, BalanceAfter: 10123,
	}))
	require.NoError(t, d.InsertPaperTrade(ctx, PaperTrade{
		ID: "p-new", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT",
		Side: "SELL", Qty: 1, Price: 105, PnL: 5, BalanceAfter: 10128,
	}))
	_, err := d.DB.ExecContext(ctx,
		`UPDATE paper_trades SET created_at = datetime('now', '-60 days') WHERE id = 'p-old'`)
	require.NoError(t, err)

	perf, err := d.RecomputePerformance(ctx, "bot-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, perf.TotalTrades, "trades older than 30 days fall out of the aggregate")
	assert.InDelta(t, 5.0, perf.TotalPnL, 1e-9)
	assert.Equal(t, 1, perf.WinningTrades)
}

func TestPaperTradesAndStats(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	require.NoError(t, d.InsertPaperTrade(ctx, PaperTrade{
		ID: "p1", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT",
		Side: "BUY", Qty: 1, Price: 100, BalanceAfter: 9900,
	}))
	require.NoError(t, d.InsertPaperTrade(ctx, PaperTrade{
		ID: "p2", BotID: "bot-1", UserID: "user-1", Symbol: "BTCUSDT",
		Side: "SELL", Qty: 1, Price: 110, PnL: 10, BalanceAfter: 10010,
	}))
	require.NoError(t, d.UpdateBotPaperBalance(ctx, "bot-1", 10010))

	stats, err := d.GetPaperStats(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.InDelta(t, 10.0, stats.TotalPnL, 1e-9)
	assert.Equal(t, 10010.0, stats.Balance)

	_, err = d.GetPaperStats(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBotLogs(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	require.NoError(t, d.AppendBotLog(ctx, "bot-1", "info", "tick ok"))
	require.NoError(t, d.AppendBotLog(ctx, "bot-1", "error", "exchange timeout"))

	logs, err := d.ListBotLogs(ctx, "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "exchange timeout", logs[0].Message, "newest first")
}

func TestStrategyConfigUpsert(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	cfg := StrategyConfig{
		ID: "cfg-1", UserID: "user-1", Name: "band bounce",
		Config: json.RawMessage(`{"rules":[{"condition":"price near bb_lower","action":"buy"}]}`),
	}
	require.NoError(t, d.UpsertStrategyConfig(ctx, cfg))

	cfg.Name = "band bounce v2"
	require.NoError(t, d.UpsertStrategyConfig(ctx, cfg))

	got, err := d.GetStrategyConfig(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "band bounce v2", got.Name)

	_, err = d.GetStrategyConfig(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingApprovalLifecycle(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	require.NoError(t, d.CreateBot(ctx, sampleBot("bot-1")))

	require.NoError(t, d.CreatePendingApproval(ctx, PendingApproval{
		ID: "appr-1", BotID: "bot-1", UserID: "user-1",
		Action: "buy", Qty: 0.01, Price: 50000, Reason: "MA9 above MA21",
	}))

	pending, err := d.ListPendingApprovals(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].Status)
	assert.Nil(t, pending[0].ResolvedAt)

	resolved, err := d.ResolvePendingApproval(ctx, "appr-1", "approved")
	require.NoError(t, err)
	assert.Equal(t, "approved", resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	// Already resolved: no double transition.
	_, err = d.ResolvePendingApproval(ctx, "appr-1", "rejected")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err = d.ListPendingApprovals(ctx, "bot-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
