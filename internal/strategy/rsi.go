package strategy

import (
	"fmt"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/indicators"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// evaluateRSI is the built-in mean-reversion strategy: buy at or below the
// oversold threshold, sell at or above overbought, nothing in between.
func evaluateRSI(p *RSIParams, candles []exchange.Candle) Signal {
	rsi := indicators.RSI(closes(candles), p.Period)
	if rsi == nil {
		return Signal{Reason: "warming up"}
	}
	cur := rsi[len(rsi)-1]
	switch {
	case cur <= p.Oversold:
		return Signal{Action: ActionBuy, Reason: fmt.Sprintf("rsi %.1f <= oversold %.1f", cur, p.Oversold)}
	case cur >= p.Overbought:
		return Signal{Action: ActionSell, Reason: fmt.Sprintf("rsi %.1f >= overbought %.1f", cur, p.Overbought)}
	default:
		return Signal{Reason: fmt.Sprintf("rsi %.1f neutral", cur)}
	}
}
