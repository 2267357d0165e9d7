package executor

import (
	"errors"
	"fmt"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// ErrInsufficientBalance marks a paper trade the ledger cannot afford. It is
// a deliberate no-op for the tick, not a failure.
var ErrInsufficientBalance = errors.New("executor: insufficient paper balance")

// Fill is one executed leg of a paper transition. A spot reversal produces
// two fills: the close and the reopen.
type Fill struct {
	Side   string // BUY or SELL
	Qty    float64
	Price  float64
	PnL    float64
	Reason string
}

// Ledger is the in-memory paper trading account. The same transition rules
// drive live ticks in paper mode and the backtest engine, so both stay in
// exact agreement.
//
// Spot semantics: flat opens, an opposite signal against a held position
// closes it and, when shorting is allowed, reopens the other way as a second
// fill. Futures semantics: margin = notional/leverage is debited on open and
// returned with PnL on close.
type Ledger struct {
	Balance    float64
	Position   float64 // signed, negative short
	EntryPrice float64
	Margin     float64
	Leverage   int
	Market     exchange.MarketType
	AllowShort bool
}

// Buy applies a buy signal to the ledger.
func (l *Ledger) Buy(qty, price float64, reason string) ([]Fill, error) {
	if l.Position > 0 {
		return nil, nil // already long
	}
	var fills []Fill
	if l.Position < 0 {
		fills = append(fills, l.close(price, reason))
	}
	open, err := l.open(exchange.SideBuy, qty, price, reason)
	if err != nil {
		return fills, err
	}
	return append(fills, open), nil
}

// Sell applies a sell signal to the ledger.
func (l *Ledger) Sell(qty, price float64, reason string) ([]Fill, error) {
	if l.Position < 0 {
		return nil, nil // already short
	}
	var fills []Fill
	if l.Position > 0 {
		fills = append(fills, l.close(price, reason))
	}
	if !l.AllowShort {
		return fills, nil
	}
	open, err := l.open(exchange.SideSell, qty, price, reason)
	if err != nil {
		return fills, err
	}
	return append(fills, open), nil
}

// Close flattens the position, if any. Used for stop-loss, take-profit, and
// backtest force-close.
func (l *Ledger) Close(price float64, reason string) (Fill, bool) {
	if l.Position == 0 {
		return Fill{}, false
	}
	return l.close(price, reason), true
}

func (l *Ledger) open(side exchange.Side, qty, price float64, reason string) (Fill, error) {
	if qty <= 0 || price <= 0 {
		return Fill{}, fmt.Errorf("executor: invalid open qty=%v price=%v", qty, price)
	}
	notional := qty * price
	cost := notional
	if l.Market == exchange.MarketFutures {
		lev := l.Leverage
		if lev < 1 {
			lev = 1
		}
		cost = notional / float64(lev)
	}
	if cost > l.Balance {
		return Fill{}, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientBalance, cost, l.Balance)
	}

	l.Balance -= cost
	if l.Market == exchange.MarketFutures {
		l.Margin = cost
	}
	if side == exchange.SideBuy {
		l.Position = qty
	} else {
		l.Position = -qty
	}
	l.EntryPrice = price
	return Fill{Side: string(side), Qty: qty, Price: price, Reason: reason}, nil
}

func (l *Ledger) close(price float64, reason string) Fill {
	qty := l.Position
	pnl := (price - l.EntryPrice) * qty

	side := exchange.SideSell
	if qty < 0 {
		side = exchange.SideBuy
		qty = -qty
	}

	if l.Market == exchange.MarketFutures {
		l.Balance += l.Margin + pnl
		l.Margin = 0
	} else {
		// Spot held the full notional; a virtual short returns entry
		// notional plus the gain or loss.
		if l.Position > 0 {
			l.Balance += price * qty
		} else {
			l.Balance += l.EntryPrice*qty + pnl
		}
	}

	l.Position = 0
	l.EntryPrice = 0
	return Fill{Side: string(side), Qty: qty, Price: price, PnL: pnl, Reason: reason}
}

// Equity values the account at a mark price: cash plus margin plus
// unrealized PnL for futures, cash plus position value for spot.
func (l *Ledger) Equity(price float64) float64 {
	if l.Position == 0 {
		return l.Balance
	}
	if l.Market == exchange.MarketFutures {
		return l.Balance + l.Margin + (price-l.EntryPrice)*l.Position
	}
	if l.Position > 0 {
		return l.Balance + price*l.Position
	}
	return l.Balance + l.EntryPrice*(-l.Position) + (price-l.EntryPrice)*l.Position
}
