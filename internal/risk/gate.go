package risk

import (
	"fmt"
	"math"
)

// CheckTrade gates a new-position trade against the daily loss cap and the
// per-trade notional cap. Closing trades (stop-loss, take-profit, position
// exits) must not be gated here; callers evaluate CheckExit first, which
// always takes precedence.
func CheckTrade(limits Limits, dailyPnL, price, quantity float64) Decision {
	if limits.MaxDailyLoss > 0 && dailyPnL <= -limits.MaxDailyLoss {
		return Decision{Reason: fmt.Sprintf("daily loss cap reached: pnl %.2f <= -%.2f", dailyPnL, limits.MaxDailyLoss)}
	}
	if limits.MaxPositionSize > 0 && price*quantity > limits.MaxPositionSize {
		return Decision{Reason: fmt.Sprintf("position size %.2f exceeds cap %.2f", price*quantity, limits.MaxPositionSize)}
	}
	return Decision{Allowed: true}
}

// CheckExit evaluates stop-loss/take-profit for an open position. The
// position quantity is signed (negative short). A triggered exit bypasses
// the new-position gate: closing trades are always allowed through.
func CheckExit(limits Limits, position, entryPrice, currentPrice float64) Exit {
	if position == 0 || entryPrice <= 0 {
		return Exit{}
	}

	// Favorable percent move from entry, sign-adjusted for shorts.
	change := (currentPrice - entryPrice) / entryPrice * 100
	if position < 0 {
		change = -change
	}

	if limits.StopLoss > 0 && change <= -limits.StopLoss {
		return Exit{
			Triggered: true,
			Reason:    fmt.Sprintf("stop loss: %.2f%% adverse move (limit %.2f%%)", math.Abs(change), limits.StopLoss),
		}
	}
	if limits.TakeProfit > 0 && change >= limits.TakeProfit {
		return Exit{
			Triggered:  true,
			TakeProfit: true,
			Reason:     fmt.Sprintf("take profit: %.2f%% favorable move (limit %.2f%%)", change, limits.TakeProfit),
		}
	}
	return Exit{}
}
