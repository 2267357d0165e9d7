package backtest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/risk"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Request describes one backtest run over a fixed candle series.
type Request struct {
	StrategyType   string          `json:"strategyType"`
	Parameters     json.RawMessage `json:"parameters"`
	Risk           json.RawMessage `json:"risk"`
	Quantity       float64         `json:"quantity"`
	Leverage       int             `json:"leverage"`
	MarketType     string          `json:"marketType"`
	InitialBalance float64         `json:"initialBalance"`
}

// Trade is one executed leg during the replay.
type Trade struct {
	Time   time.Time `json:"time"`
	Side   string    `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	PnL    float64   `json:"pnl"`
	Reason string    `json:"reason"`
}

// Result summarizes a completed replay.
type Result struct {
	InitialBalance float64   `json:"initialBalance"`
	FinalBalance   float64   `json:"finalBalance"`
	TotalPnL       float64   `json:"totalPnl"`
	TotalTrades    int       `json:"totalTrades"`
	WinningTrades  int       `json:"winningTrades"`
	WinRate        float64   `json:"winRate"`
	MaxDrawdown    float64   `json:"maxDrawdown"` // percent from peak equity
	Halted         bool      `json:"halted"`      // drawdown limit tripped mid-replay
	Trades         []Trade   `json:"trades"`
	EquityCurve    []float64 `json:"equityCurve"`
}

// Run replays a strategy bar by bar over historical candles. Each bar i sees
// only candles[0..i], the exact window a live tick would have seen, and all
// fills happen at that bar's close. The replay shares the live ledger and
// risk code, so identical inputs always produce the identical result; no
// wall clock is consulted anywhere.
func Run(req Request, candles []exchange.Candle) (Result, error) {
	if len(candles) == 0 {
		return Result{}, fmt.Errorf("backtest: no candles")
	}
	if req.Quantity <= 0 {
		return Result{}, fmt.Errorf("backtest: quantity must be positive")
	}
	if req.InitialBalance <= 0 {
		req.InitialBalance = 10000
	}

	params, err := strategy.ParseParams(req.StrategyType, req.Parameters)
	if err != nil {
		return Result{}, err
	}
	spec, err := executor.ParseRiskSpec(params, req.Risk)
	if err != nil {
		return Result{}, err
	}

	market := exchange.MarketType(req.MarketType)
	if market == "" {
		market = exchange.MarketSpot
	}
	led := executor.Ledger{
		Balance:    req.InitialBalance,
		Leverage:   req.Leverage,
		Market:     market,
		AllowShort: params.Side() != strategy.SideLong,
	}

	res := Result{InitialBalance: req.InitialBalance}
	// Drawdown is always tracked for the report; the halt behavior only
	// applies when the request enables it.
	dd := risk.DrawdownState{
		Enabled:     true,
		MaxDrawdown: spec.MaxDrawdown,
		Peak:        req.InitialBalance,
		Current:     req.InitialBalance,
	}
	regime := risk.NewRegimeTracker(spec.Regime)

	var dailyPnL float64
	var day time.Time

	record := func(t time.Time, fills ...executor.Fill) {
		for _, f := range fills {
			dailyPnL += f.PnL
			res.Trades = append(res.Trades, Trade{
				Time: t, Side: f.Side, Qty: f.Qty, Price: f.Price, PnL: f.PnL, Reason: f.Reason,
			})
		}
	}

	for i := range candles {
		window := candles[:i+1]
		bar := candles[i]
		price := bar.Close

		if d := bar.Time.UTC().Truncate(24 * time.Hour); !d.Equal(day) {
			day = d
			dailyPnL = 0
		}

		equity := led.Equity(price)
		res.EquityCurve = append(res.EquityCurve, equity)
		ddPct, halt := dd.UpdateDrawdownState(equity)
		if ddPct > res.MaxDrawdown {
			res.MaxDrawdown = ddPct
		}
		if halt && spec.DrawdownEnabled && spec.MaxDrawdown > 0 {
			res.Halted = true
			break
		}

		barParams, qty := params, req.Quantity
		if spec.Regime.Enabled {
			rp := spec.Regime.Params(regime.Refresh(bar.Time, window))
			if ma, ok := barParams.(*strategy.MovingAverageParams); ok && rp.ShortPeriod > 0 && rp.LongPeriod > rp.ShortPeriod {
				adj := *ma
				adj.ShortPeriod, adj.LongPeriod = rp.ShortPeriod, rp.LongPeriod
				barParams = &adj
			}
			if rp.Quantity > 0 {
				qty = rp.Quantity
			}
		}

		if exit := risk.CheckExit(spec.Limits, led.Position, led.EntryPrice, price); exit.Triggered {
			closedShort := led.Position < 0
			if fill, ok := led.Close(price, exit.Reason); ok {
				record(bar.Time, fill)
			}
			if !exit.TakeProfit && spec.AutoReverse {
				reverse := led.Sell
				if closedShort {
					reverse = led.Buy
				}
				fills, ferr := reverse(qty, price, "auto-reverse after stop loss")
				if ferr == nil {
					record(bar.Time, fills...)
				}
			}
			continue
		}

		sig := strategy.Evaluate(barParams, window, strategy.State{Position: led.Position, EntryPrice: led.EntryPrice})
		if sig.Action == strategy.ActionNone {
			continue
		}
		if (sig.Action == strategy.ActionBuy && led.Position > 0) ||
			(sig.Action == strategy.ActionSell && led.Position < 0) {
			continue
		}

		wouldOpen := true
		if sig.Action == strategy.ActionSell && led.Position > 0 && !led.AllowShort {
			wouldOpen = false
		}
		if wouldOpen {
			if d := risk.CheckTrade(spec.Limits, dailyPnL, price, qty); !d.Allowed {
				continue
			}
		}

		// A short-only strategy's buy may only flatten; the ledger's buy
		// would reverse into a long.
		if sig.Action == strategy.ActionBuy && params.Side() == strategy.SideShort {
			if fill, ok := led.Close(price, sig.Reason); ok {
				record(bar.Time, fill)
			}
			continue
		}

		apply := led.Buy
		if sig.Action == strategy.ActionSell {
			apply = led.Sell
		}
		fills, ferr := apply(qty, price, sig.Reason)
		// An unaffordable open is a skip, not a failure; the close leg of a
		// reversal may still have filled.
		record(bar.Time, fills...)
		if ferr != nil {
			continue
		}
	}

	last := candles[len(candles)-1]
	if fill, ok := led.Close(last.Close, "end of backtest"); ok {
		record(last.Time, fill)
	}

	res.FinalBalance = led.Balance
	res.TotalPnL = led.Balance - req.InitialBalance
	res.TotalTrades = len(res.Trades)
	for _, t := range res.Trades {
		if t.PnL > 0 {
			res.WinningTrades++
		}
	}
	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades) * 100
	}
	return res, nil
}
