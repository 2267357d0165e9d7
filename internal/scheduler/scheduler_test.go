package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/notify"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/state"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

type stubGateway struct{}

func (stubGateway) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]exchange.Candle, 10)
	for i := range out {
		c := float64(91 + i)
		out[i] = exchange.Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return out, nil
}

func (stubGateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{ID: "ord-1", Status: exchange.StatusFilled}, nil
}
func (stubGateway) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (stubGateway) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	return nil, nil
}
func (stubGateway) GetBalance(ctx context.Context, asset string) ([]exchange.Balance, error) {
	return []exchange.Balance{{Asset: "USDT", Free: 10000}}, nil
}
func (stubGateway) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	return &exchange.AccountInfo{CanTrade: true}, nil
}
func (stubGateway) ValidateCredentials(ctx context.Context) (bool, error) { return true, nil }
func (stubGateway) GetOpenPositions(ctx context.Context) ([]exchange.FuturesPosition, error) {
	return nil, nil
}
func (stubGateway) GetPosition(ctx context.Context, symbol string) (*exchange.FuturesPosition, error) {
	return nil, nil
}
func (stubGateway) GetLeverage(ctx context.Context, symbol string) (int, error) { return 1, nil }
func (stubGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}
func (stubGateway) GetFundingRate(ctx context.Context, symbol string) (*exchange.FundingRate, error) {
	return nil, nil
}
func (stubGateway) ClosePosition(ctx context.Context, symbol string) (*exchange.OrderResult, error) {
	return nil, nil
}
func (stubGateway) SupportedIntervals() []string { return exchange.CanonicalIntervals }
func (stubGateway) Name() string                 { return "stub" }

func testScheduler(t *testing.T) (*Scheduler, executor.Deps) {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.ApplyMigrations(database))

	deps := executor.Deps{
		DB:       database,
		States:   state.NewManager(),
		Bus:      events.NewBus(),
		Notifier: notify.Noop{},
		Log:      zap.NewNop(),
	}

	factory := exchange.NewFactory()
	factory.Register("stub", func(creds exchange.Credentials, market exchange.MarketType, testnet bool) (exchange.Gateway, error) {
		return stubGateway{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, deps, factory, StaticCredentials{})
	t.Cleanup(s.Shutdown)
	return s, deps
}

func stubBot(id string) db.Bot {
	return db.Bot{
		ID:           id,
		UserID:       "user-1",
		Name:         "scheduled bot",
		Exchange:     "stub",
		Symbol:       "BTCUSDT",
		Interval:     "1h",
		MarketType:   "spot",
		StrategyType: "moving_average",
		Parameters:   json.RawMessage(`{"shortPeriod":2,"longPeriod":3}`),
		Quantity:     1,
		Leverage:     1,
		Mode:         "auto",
		TradingMode:  "paper",
		Status:       "stopped",
		PaperBalance: 10000,
	}
}

func TestStartRunsFirstTickImmediately(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()
	require.NoError(t, deps.DB.CreateBot(ctx, stubBot("bot-1")))

	require.NoError(t, s.Start(ctx, "bot-1"))
	assert.True(t, s.Running("bot-1"))

	require.Eventually(t, func() bool {
		trades, err := deps.DB.ListPaperTradesByBot(ctx, "bot-1", 10)
		return err == nil && len(trades) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := deps.DB.GetBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)
}

func TestStartIsIdempotent(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()
	require.NoError(t, deps.DB.CreateBot(ctx, stubBot("bot-1")))

	require.NoError(t, s.Start(ctx, "bot-1"))
	require.NoError(t, s.Start(ctx, "bot-1"))
	assert.True(t, s.Running("bot-1"))
}

func TestStopDisarmsAndIsIdempotent(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()
	require.NoError(t, deps.DB.CreateBot(ctx, stubBot("bot-1")))
	require.NoError(t, s.Start(ctx, "bot-1"))

	require.NoError(t, s.Stop(ctx, "bot-1"))
	assert.False(t, s.Running("bot-1"))
	_, ok := deps.States.Get("bot-1")
	assert.False(t, ok, "execution state is dropped on stop")

	got, err := deps.DB.GetBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "stopped", got.Status)

	require.NoError(t, s.Stop(ctx, "bot-1"))
}

func TestStopUnknownBot(t *testing.T) {
	s, _ := testScheduler(t)
	err := s.Stop(context.Background(), "nope")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRearmStartsOnlyPersistedRunning(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()

	running := stubBot("bot-run")
	running.Status = "running"
	stopped := stubBot("bot-stop")
	require.NoError(t, deps.DB.CreateBot(ctx, running))
	require.NoError(t, deps.DB.CreateBot(ctx, stopped))

	require.NoError(t, s.Rearm(ctx))
	assert.True(t, s.Running("bot-run"))
	assert.False(t, s.Running("bot-stop"))
}

func TestRearmMarksFailedBots(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()

	bad := stubBot("bot-bad")
	bad.Status = "running"
	bad.Exchange = "unknown-venue"
	require.NoError(t, deps.DB.CreateBot(ctx, bad))

	require.NoError(t, s.Rearm(ctx))
	assert.False(t, s.Running("bot-bad"))

	got, err := deps.DB.GetBot(ctx, "bot-bad")
	require.NoError(t, err)
	assert.Equal(t, "error", got.Status)
}

func TestRunnerLookup(t *testing.T) {
	s, deps := testScheduler(t)
	ctx := context.Background()
	require.NoError(t, deps.DB.CreateBot(ctx, stubBot("bot-1")))

	_, ok := s.Runner("bot-1")
	assert.False(t, ok)

	require.NoError(t, s.Start(ctx, "bot-1"))
	r, ok := s.Runner("bot-1")
	require.True(t, ok)
	assert.Equal(t, "bot-1", r.Bot().ID)
}

func TestTickInterval(t *testing.T) {
	d, err := tickInterval("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	_, err = tickInterval("42h")
	assert.Error(t, err)
}
