package strategy

import (
	"fmt"
	"math"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/indicators"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// evaluateMovingAverage is the built-in MA strategy: buy while the short MA
// sits above the long MA, sell while below, with optional RSI, volume, and
// trend-strength gates.
func evaluateMovingAverage(p *MovingAverageParams, candles []exchange.Candle) Signal {
	prices := closes(candles)
	longMA := indicators.SMA(prices, p.LongPeriod)
	shortMA := indicators.SMA(prices, p.ShortPeriod)
	if longMA == nil || shortMA == nil {
		return Signal{Reason: "warming up"}
	}
	short := shortMA[len(shortMA)-1]
	long := longMA[len(longMA)-1]

	action := ActionSell
	if short > long {
		action = ActionBuy
	}

	if f := p.TrendFilter; f != nil && long != 0 {
		strength := math.Abs(short-long) / long * 100
		if strength < f.MinStrength {
			return Signal{Reason: fmt.Sprintf("trend too weak: %.3f%% < %.3f%%", strength, f.MinStrength)}
		}
	}

	if f := p.RSIFilter; f != nil {
		rsi := indicators.RSI(prices, f.Period)
		if rsi == nil {
			return Signal{Reason: "warming up rsi filter"}
		}
		cur := rsi[len(rsi)-1]
		if action == ActionBuy && cur > f.Overbought {
			return Signal{Reason: fmt.Sprintf("buy blocked: rsi %.1f overbought", cur)}
		}
		if action == ActionSell && cur < f.Oversold {
			return Signal{Reason: fmt.Sprintf("sell blocked: rsi %.1f oversold", cur)}
		}
	}

	if f := p.VolumeFilter; f != nil {
		vols := volumes(candles)
		avg := indicators.SMA(vols, f.Period)
		if avg == nil {
			return Signal{Reason: "warming up volume filter"}
		}
		cur := vols[len(vols)-1]
		if cur < avg[len(avg)-1]*f.Threshold {
			return Signal{Reason: fmt.Sprintf("volume too thin: %.2f < %.2f", cur, avg[len(avg)-1]*f.Threshold)}
		}
	}

	return Signal{
		Action: action,
		Reason: fmt.Sprintf("MA%d %.4f vs MA%d %.4f", p.ShortPeriod, short, p.LongPeriod, long),
	}
}
