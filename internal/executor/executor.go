package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/notify"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/risk"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/state"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// klineLimit is the candle history fetched per tick. Enough for the slowest
// indicator window plus warmup.
const klineLimit = 200

// Deps bundles the shared collaborators every bot runner uses.
type Deps struct {
	DB       *db.Database
	States   *state.Manager
	Bus      *events.Bus
	Notifier notify.Notifier
	Log      *zap.Logger
}

// RiskSpec is the per-bot risk document stored on the bot row. The embedded
// limits are enforced every tick; the drawdown and regime blocks are
// optional features toggled per bot.
type RiskSpec struct {
	risk.Limits
	DrawdownEnabled bool              `json:"drawdownEnabled"`
	MaxDrawdown     float64           `json:"maxDrawdown"`
	AutoReverse     bool              `json:"autoReverse"`
	Regime          risk.RegimeConfig `json:"regime"`
}

// ParseRiskSpec resolves the stored risk document. Config-driven strategies
// may carry their own exit settings; those win over the bot-level ones when
// set.
func ParseRiskSpec(params strategy.Params, raw json.RawMessage) (RiskSpec, error) {
	var spec RiskSpec
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &spec); err != nil {
			return RiskSpec{}, fmt.Errorf("parse risk config: %w", err)
		}
	}
	if cd, ok := params.(*strategy.ConfigDrivenParams); ok {
		if cd.Risk.StopLoss > 0 {
			spec.StopLoss = cd.Risk.StopLoss
		}
		if cd.Risk.TakeProfit > 0 {
			spec.TakeProfit = cd.Risk.TakeProfit
		}
		if cd.Risk.AutoReverse {
			spec.AutoReverse = true
		}
	}
	// A zero threshold would trip the >= halt check on the very first tick.
	if spec.DrawdownEnabled && spec.MaxDrawdown <= 0 {
		return RiskSpec{}, fmt.Errorf("parse risk config: drawdown protection requires maxDrawdown > 0")
	}
	return spec, nil
}

// Runner drives one bot's trading loop. Its mutex serializes regular ticks
// with the manual approval path, so state transitions never interleave.
type Runner struct {
	deps   Deps
	bot    db.Bot
	params strategy.Params
	spec   RiskSpec
	gw     exchange.Gateway
	regime *risk.RegimeTracker
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	errored bool
	halted  bool
}

// NewRunner resolves the bot's strategy and risk configuration, seeds the
// execution state, and returns a runner ready to tick. Live bots pull their
// starting balance from the exchange; paper bots start from the persisted
// paper balance.
func NewRunner(ctx context.Context, deps Deps, bot db.Bot, gw exchange.Gateway) (*Runner, error) {
	params, err := strategy.ParseParams(bot.StrategyType, bot.Parameters)
	if err != nil {
		return nil, err
	}

	spec, err := ParseRiskSpec(params, bot.Risk)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		deps:   deps,
		bot:    bot,
		params: params,
		spec:   spec,
		gw:     gw,
		regime: risk.NewRegimeTracker(spec.Regime),
		log:    deps.Log.With(zap.String("bot", bot.ID), zap.String("symbol", bot.Symbol)),
		now:    time.Now,
	}

	balance := bot.PaperBalance
	if !r.paper() {
		balance, err = r.liveBalance(ctx)
		if err != nil {
			return nil, fmt.Errorf("initial balance: %w", err)
		}
		if r.futures() && bot.Leverage > 1 {
			if err := gw.SetLeverage(ctx, bot.Symbol, bot.Leverage); err != nil {
				r.log.Warn("set leverage failed", zap.Error(err))
			}
		}
	}

	now := r.now()
	deps.States.Put(state.ExecutionState{
		BotID:       bot.ID,
		Balance:     balance,
		DailyReset:  now.UTC().Truncate(24 * time.Hour),
		NextFunding: nextFundingTime(now),
		Drawdown: risk.DrawdownState{
			Enabled:     spec.DrawdownEnabled,
			MaxDrawdown: spec.MaxDrawdown,
			Peak:        balance,
			Current:     balance,
		},
	})
	return r, nil
}

// Bot returns the bot row this runner was built from.
func (r *Runner) Bot() db.Bot { return r.bot }

func (r *Runner) paper() bool   { return r.bot.TradingMode != "live" }
func (r *Runner) futures() bool { return r.bot.MarketType == string(exchange.MarketFutures) }

// allowShort reports whether this bot may hold a short position. Live spot
// accounts cannot; paper spot treats a short as a virtual position. The
// strategy's position-side restriction applies to reopens too, not just to
// signal filtering.
func (r *Runner) allowShort() bool {
	if r.params.Side() == strategy.SideLong {
		return false
	}
	return r.futures() || r.paper()
}

func (r *Runner) allowLong() bool { return r.params.Side() != strategy.SideShort }

func (r *Runner) liveBalance(ctx context.Context) (float64, error) {
	asset := quoteAsset(r.bot.Symbol)
	bals, err := r.gw.GetBalance(ctx, asset)
	if err != nil {
		return 0, err
	}
	for _, b := range bals {
		if strings.EqualFold(b.Asset, asset) {
			return b.Free, nil
		}
	}
	return 0, nil
}

// quoteAsset guesses the quote currency from a concatenated pair symbol.
func quoteAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSuffix(symbol, ".P"))
	s = strings.ReplaceAll(s, "-", "")
	for _, q := range []string{"USDT", "USDC", "BUSD", "USD", "EUR", "GBP", "BTC"} {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return q
		}
	}
	return "USDT"
}

// Tick runs one full decision cycle. Errors never escape: they are trapped
// into the bot log, a notification, and an error status, so one bad tick
// cannot take down the scheduler. The next clean tick restores the running
// status.
func (r *Runner) Tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.tick(ctx); err != nil {
		r.failTick(ctx, err)
		return
	}
	if r.errored {
		r.errored = false
		r.setStatus(ctx, "running", "recovered")
	}
}

func (r *Runner) tick(ctx context.Context) error {
	now := r.now()
	candles, err := r.gw.FetchKlines(ctx, r.bot.Symbol, r.bot.Interval, klineLimit)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles for %s %s", r.bot.Symbol, r.bot.Interval)
	}
	price := candles[len(candles)-1].Close

	st, ok := r.deps.States.Get(r.bot.ID)
	if !ok {
		return nil // stopped between ticks
	}
	defer func() { r.deps.States.Put(st) }()

	day := now.UTC().Truncate(24 * time.Hour)
	if st.DailyReset.Before(day) {
		st.DailyPnL = 0
		st.DailyReset = day
	}

	// Drawdown halt dominates everything else this tick.
	led := r.ledgerView(&st)
	dd, halt := st.Drawdown.UpdateDrawdownState(led.Equity(price))
	if halt {
		if !r.halted {
			r.halted = true
			msg := fmt.Sprintf("trading halted: drawdown %.2f%% breached limit %.2f%%", dd, st.Drawdown.MaxDrawdown)
			r.botLog(ctx, "warn", msg)
			r.deps.Bus.Publish(events.RiskAlertEvent{
				BotID: r.bot.ID, UserID: r.bot.UserID, Kind: "drawdown", Message: msg, Time: now,
			})
			if !r.paper() {
				r.deps.Notifier.Notify(ctx, r.bot.UserID, notify.TypeRisk, msg, r.bot.Name, nil)
			}
		}
		return nil
	}
	r.halted = false

	// Volatility regime may swap in per-regime parameters for this tick
	// only; the configured params are never mutated.
	params, qty := r.params, r.bot.Quantity
	if r.spec.Regime.Enabled {
		rp := r.spec.Regime.Params(r.regime.Refresh(now, candles))
		if ma, ok := params.(*strategy.MovingAverageParams); ok && rp.ShortPeriod > 0 && rp.LongPeriod > rp.ShortPeriod {
			adj := *ma
			adj.ShortPeriod, adj.LongPeriod = rp.ShortPeriod, rp.LongPeriod
			params = &adj
		}
		if rp.Quantity > 0 {
			qty = rp.Quantity
		}
	}

	if err := r.settleFunding(ctx, &st, now, price); err != nil {
		return err
	}

	sig := strategy.Evaluate(params, candles, strategy.State{Position: st.Position, EntryPrice: st.EntryPrice})
	if sig.Action != strategy.ActionNone {
		st.LastSignal = fmt.Sprintf("%s: %s", sig.Action, sig.Reason)
	}

	// Protective exits fire before the gate and bypass it entirely.
	if exit := risk.CheckExit(r.spec.Limits, st.Position, st.EntryPrice, price); exit.Triggered {
		closedShort := st.Position < 0
		if err := r.closePosition(ctx, &st, price, exit.Reason); err != nil {
			return err
		}
		if !exit.TakeProfit && r.spec.AutoReverse {
			side := strategy.ActionSell
			if closedShort {
				side = strategy.ActionBuy
			}
			return r.applySignal(ctx, &st, side, qty, price, "auto-reverse after stop loss")
		}
		return nil
	}

	if sig.Action == strategy.ActionNone {
		return nil
	}
	// A signal in the direction of the held position changes nothing.
	if (sig.Action == strategy.ActionBuy && st.Position > 0) ||
		(sig.Action == strategy.ActionSell && st.Position < 0) {
		return nil
	}

	// The gate only applies when the trade would open new exposure; a
	// signal that merely flattens the position passes through.
	wouldOpen := true
	switch {
	case sig.Action == strategy.ActionBuy && st.Position < 0 && !r.allowLong():
		wouldOpen = false
	case sig.Action == strategy.ActionSell && st.Position > 0 && !r.allowShort():
		wouldOpen = false
	}
	if wouldOpen {
		if d := risk.CheckTrade(r.spec.Limits, st.DailyPnL, price, qty); !d.Allowed {
			r.botLog(ctx, "info", "trade blocked: "+d.Reason)
			return nil
		}
	}

	if r.bot.Mode == "manual" {
		return r.queueApproval(ctx, sig, qty, price)
	}

	return r.applySignal(ctx, &st, sig.Action, qty, price, sig.Reason)
}

// applySignal turns a buy/sell decision into position transitions. A signal
// against a held position closes it first; the reopen is a second, separate
// trade.
func (r *Runner) applySignal(ctx context.Context, st *state.ExecutionState, action strategy.Action, qty, price float64, reason string) error {
	if action == strategy.ActionBuy {
		if st.Position < 0 {
			if err := r.closePosition(ctx, st, price, reason); err != nil {
				return err
			}
		}
		if st.Position == 0 && r.allowLong() {
			return r.openPosition(ctx, st, strategy.ActionBuy, qty, price, reason)
		}
		return nil
	}

	if st.Position > 0 {
		if err := r.closePosition(ctx, st, price, reason); err != nil {
			return err
		}
	}
	if st.Position == 0 && r.allowShort() {
		return r.openPosition(ctx, st, strategy.ActionSell, qty, price, reason)
	}
	return nil
}

func (r *Runner) closePosition(ctx context.Context, st *state.ExecutionState, price float64, reason string) error {
	led := r.ledgerView(st)
	if led.Position == 0 {
		return nil
	}

	orderID := ""
	if !r.paper() {
		side := exchange.SideSell
		if led.Position < 0 {
			side = exchange.SideBuy
		}
		res, err := r.gw.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol:     r.bot.Symbol,
			Side:       side,
			Type:       exchange.OrderTypeMarket,
			Qty:        math.Abs(led.Position),
			ReduceOnly: r.futures(),
			Market:     exchange.MarketType(r.bot.MarketType),
		})
		if err != nil {
			return fmt.Errorf("close order: %w", err)
		}
		orderID = res.ID
	}

	fill, ok := led.Close(price, reason)
	if !ok {
		return nil
	}
	r.syncState(st, led)
	st.DailyPnL += fill.PnL
	return r.recordFill(ctx, st, fill, orderID)
}

func (r *Runner) openPosition(ctx context.Context, st *state.ExecutionState, side strategy.Action, qty, price float64, reason string) error {
	led := r.ledgerView(st)

	var fills []Fill
	var err error
	if side == strategy.ActionBuy {
		fills, err = led.Buy(qty, price, reason)
	} else {
		fills, err = led.Sell(qty, price, reason)
	}
	if errors.Is(err, ErrInsufficientBalance) {
		r.botLog(ctx, "info", "trade skipped: "+err.Error())
		return nil
	}
	if err != nil {
		return err
	}
	if len(fills) == 0 {
		return nil
	}

	orderID := ""
	if !r.paper() {
		oside := exchange.SideBuy
		if side == strategy.ActionSell {
			oside = exchange.SideSell
		}
		res, perr := r.gw.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol: r.bot.Symbol,
			Side:   oside,
			Type:   exchange.OrderTypeMarket,
			Qty:    qty,
			Market: exchange.MarketType(r.bot.MarketType),
		})
		if perr != nil {
			return fmt.Errorf("open order: %w", perr)
		}
		orderID = res.ID
	}

	r.syncState(st, led)
	return r.recordFill(ctx, st, fills[len(fills)-1], orderID)
}

// settleFunding applies perpetual funding to an open futures position when a
// settlement boundary has passed. Longs pay positive rates, shorts receive
// them.
func (r *Runner) settleFunding(ctx context.Context, st *state.ExecutionState, now time.Time, price float64) error {
	if !r.futures() || st.NextFunding.After(now) {
		return nil
	}
	defer func() { st.NextFunding = nextFundingTime(now) }()
	if st.Position == 0 {
		return nil
	}

	fr, err := r.gw.GetFundingRate(ctx, r.bot.Symbol)
	if err != nil {
		return fmt.Errorf("funding rate: %w", err)
	}
	if fr == nil {
		return nil
	}

	amount := -st.Position * price * fr.Rate
	st.Balance += amount
	st.DailyPnL += amount
	if r.paper() {
		if err := r.deps.DB.UpdateBotPaperBalance(ctx, r.bot.ID, st.Balance); err != nil {
			r.log.Warn("paper balance persist failed", zap.Error(err))
		}
	}

	msg := fmt.Sprintf("funding settled: %+.6f (rate %.6f)", amount, fr.Rate)
	r.botLog(ctx, "info", msg)
	r.deps.Bus.Publish(events.FundingEvent{
		BotID: r.bot.ID, UserID: r.bot.UserID, Symbol: r.bot.Symbol,
		Amount: amount, Rate: fr.Rate, Time: now,
	})
	r.deps.Notifier.Notify(ctx, r.bot.UserID, notify.TypeFunding, msg, r.bot.Name, nil)
	return nil
}

// queueApproval records a manual-mode trade intent instead of executing it.
// Duplicate intents for the same direction are not re-queued while one is
// still pending.
func (r *Runner) queueApproval(ctx context.Context, sig strategy.Signal, qty, price float64) error {
	pending, err := r.deps.DB.ListPendingApprovals(ctx, r.bot.ID)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.Action == string(sig.Action) {
			return nil
		}
	}

	id := uuid.NewString()
	if err := r.deps.DB.CreatePendingApproval(ctx, db.PendingApproval{
		ID: id, BotID: r.bot.ID, UserID: r.bot.UserID,
		Action: string(sig.Action), Qty: qty, Price: price, Reason: sig.Reason,
	}); err != nil {
		return err
	}

	r.botLog(ctx, "info", fmt.Sprintf("manual mode: %s %.6f @ %.2f awaiting approval (%s)",
		sig.Action, qty, price, sig.Reason))
	r.deps.Bus.Publish(events.ApprovalPendingEvent{
		ApprovalID: id, BotID: r.bot.ID, UserID: r.bot.UserID,
		Action: string(sig.Action), Qty: qty, Price: price, Time: r.now(),
	})
	r.deps.Notifier.Notify(ctx, r.bot.UserID, notify.TypeApproval,
		fmt.Sprintf("%s signal awaiting approval: %s", sig.Action, sig.Reason), r.bot.Name, nil)
	return nil
}

// ExecuteApproved runs a previously queued manual trade at the current
// market price. Serialized with regular ticks.
func (r *Runner) ExecuteApproved(ctx context.Context, a db.PendingApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	price, err := r.lastPrice(ctx)
	if err != nil {
		return err
	}
	st, ok := r.deps.States.Get(r.bot.ID)
	if !ok {
		return fmt.Errorf("bot %s is not running", r.bot.ID)
	}
	defer func() { r.deps.States.Put(st) }()

	return r.applySignal(ctx, &st, strategy.Action(a.Action), a.Qty, price, "approved: "+a.Reason)
}

// Flatten force-closes any open position at the current price. Used when a
// bot is stopped with close-on-stop requested.
func (r *Runner) Flatten(ctx context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.deps.States.Get(r.bot.ID)
	if !ok || st.Position == 0 {
		return nil
	}
	price, err := r.lastPrice(ctx)
	if err != nil {
		return err
	}
	defer func() { r.deps.States.Put(st) }()
	return r.closePosition(ctx, &st, price, reason)
}

// ReconcilePosition compares the local execution state against the
// exchange's view and adopts the exchange position on drift. Only live
// futures bots have an exchange-side position to compare; everything else is
// a no-op. Returns true when a drift was corrected.
func (r *Runner) ReconcilePosition(ctx context.Context) (bool, error) {
	if r.paper() || !r.futures() {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.deps.States.Get(r.bot.ID)
	if !ok {
		return false, nil
	}

	pos, err := r.gw.GetPosition(ctx, r.bot.Symbol)
	if err != nil {
		return false, fmt.Errorf("fetch position: %w", err)
	}
	exchangeQty, entry := 0.0, 0.0
	if pos != nil {
		exchangeQty, entry = pos.PositionAmt, pos.EntryPrice
	}

	if math.Abs(st.Position-exchangeQty) < 1e-9 {
		return false, nil
	}

	r.log.Warn("position drift detected",
		zap.Float64("local", st.Position),
		zap.Float64("exchange", exchangeQty))
	r.botLog(ctx, "warn", fmt.Sprintf("position reconciled: local %v, exchange %v", st.Position, exchangeQty))

	st.Position = exchangeQty
	if exchangeQty == 0 {
		st.EntryPrice = 0
		st.Margin = 0
	} else if entry > 0 {
		st.EntryPrice = entry
	}
	r.deps.States.Put(st)

	r.deps.Bus.Publish(events.RiskAlertEvent{
		BotID:   r.bot.ID,
		UserID:  r.bot.UserID,
		Kind:    "reconciliation",
		Message: fmt.Sprintf("local position adjusted to exchange: %v", exchangeQty),
		Time:    r.now(),
	})
	return true, nil
}

func (r *Runner) lastPrice(ctx context.Context) (float64, error) {
	candles, err := r.gw.FetchKlines(ctx, r.bot.Symbol, r.bot.Interval, 2)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("no price data for %s", r.bot.Symbol)
	}
	return candles[len(candles)-1].Close, nil
}

func (r *Runner) ledgerView(st *state.ExecutionState) Ledger {
	return Ledger{
		Balance:    st.Balance,
		Position:   st.Position,
		EntryPrice: st.EntryPrice,
		Margin:     st.Margin,
		Leverage:   r.bot.Leverage,
		Market:     exchange.MarketType(r.bot.MarketType),
		AllowShort: r.allowShort(),
	}
}

func (r *Runner) syncState(st *state.ExecutionState, led Ledger) {
	st.Balance = led.Balance
	st.Position = led.Position
	st.EntryPrice = led.EntryPrice
	st.Margin = led.Margin
}

// recordFill persists one executed leg, refreshes the aggregates, and fans
// the trade out to the event bus and notification channels.
func (r *Runner) recordFill(ctx context.Context, st *state.ExecutionState, f Fill, orderID string) error {
	if r.paper() {
		if err := r.deps.DB.InsertPaperTrade(ctx, db.PaperTrade{
			ID: uuid.NewString(), BotID: r.bot.ID, UserID: r.bot.UserID,
			Symbol: r.bot.Symbol, Side: f.Side, Qty: f.Qty, Price: f.Price,
			PnL: f.PnL, BalanceAfter: st.Balance, Reason: f.Reason,
		}); err != nil {
			return err
		}
		if err := r.deps.DB.UpdateBotPaperBalance(ctx, r.bot.ID, st.Balance); err != nil {
			r.log.Warn("paper balance persist failed", zap.Error(err))
		}
	} else {
		if err := r.deps.DB.InsertTrade(ctx, db.Trade{
			ID: uuid.NewString(), BotID: r.bot.ID, UserID: r.bot.UserID,
			Symbol: r.bot.Symbol, Side: f.Side, Qty: f.Qty, Price: f.Price,
			PnL: f.PnL, OrderID: orderID, Reason: f.Reason,
		}); err != nil {
			return err
		}
	}
	if _, err := r.deps.DB.RecomputePerformance(ctx, r.bot.ID, r.paper()); err != nil {
		r.log.Warn("performance recompute failed", zap.Error(err))
	}

	r.deps.Bus.Publish(events.TradeEvent{
		BotID: r.bot.ID, UserID: r.bot.UserID, Symbol: r.bot.Symbol,
		Side: f.Side, Qty: f.Qty, Price: f.Price, PnL: f.PnL,
		Paper: r.paper(), Reason: f.Reason, Time: r.now(),
	})

	msg := fmt.Sprintf("%s %v %s @ %v", f.Side, f.Qty, r.bot.Symbol, f.Price)
	if f.PnL != 0 {
		msg += fmt.Sprintf(" (pnl %.2f)", f.PnL)
	}
	if f.Reason != "" {
		msg += ": " + f.Reason
	}
	r.botLog(ctx, "info", msg)
	r.deps.Notifier.Notify(ctx, r.bot.UserID, notify.TypeTrade, msg, r.bot.Name,
		map[string]any{"price": f.Price, "pnl": f.PnL})
	r.log.Info("trade executed",
		zap.String("side", f.Side), zap.Float64("qty", f.Qty),
		zap.Float64("price", f.Price), zap.Float64("pnl", f.PnL))
	return nil
}

func (r *Runner) failTick(ctx context.Context, err error) {
	r.log.Error("tick failed", zap.Error(err))
	r.botLog(ctx, "error", err.Error())
	r.deps.Notifier.Notify(ctx, r.bot.UserID, notify.TypeError,
		fmt.Sprintf("tick failed: %v", err), r.bot.Name, nil)
	if !r.errored {
		r.errored = true
		r.setStatus(ctx, "error", err.Error())
	}
}

func (r *Runner) setStatus(ctx context.Context, status, detail string) {
	if err := r.deps.DB.UpdateBotStatus(ctx, r.bot.ID, status); err != nil && !errors.Is(err, db.ErrNotFound) {
		r.log.Warn("status update failed", zap.Error(err))
	}
	r.deps.Bus.Publish(events.BotStatusEvent{
		BotID: r.bot.ID, UserID: r.bot.UserID, Status: status, Detail: detail, Time: r.now(),
	})
}

func (r *Runner) botLog(ctx context.Context, level, msg string) {
	if err := r.deps.DB.AppendBotLog(ctx, r.bot.ID, level, msg); err != nil {
		r.log.Warn("bot log write failed", zap.Error(err))
	}
}
