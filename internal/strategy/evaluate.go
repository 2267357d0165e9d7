package strategy

import (
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Evaluate produces a signal for one tick. It is pure: identical candles,
// state, and params always yield the identical signal. Insufficient history
// yields no signal, never an error.
func Evaluate(p Params, candles []exchange.Candle, state State) Signal {
	var sig Signal
	switch params := p.(type) {
	case *MovingAverageParams:
		sig = evaluateMovingAverage(params, candles)
		sig = filterBySide(sig, params.PositionSide, state)
	case *RSIParams:
		sig = evaluateRSI(params, candles)
		sig = filterBySide(sig, params.PositionSide, state)
	case *ConfigDrivenParams:
		sig = evaluateRules(params, candles)
		sig = filterBySide(sig, params.PositionSide, state)
	}
	return sig
}

// filterBySide nulls signals that would open a position against the
// configured direction. Closing an existing position is always allowed.
func filterBySide(sig Signal, side PositionSide, state State) Signal {
	switch side {
	case SideLong:
		// A sell with no long to close would open a short.
		if sig.Action == ActionSell && state.Position <= 0 {
			return Signal{Reason: "sell suppressed: long-only bot with no position to close"}
		}
	case SideShort:
		if sig.Action == ActionBuy && state.Position >= 0 {
			return Signal{Reason: "buy suppressed: short-only bot with no position to close"}
		}
	}
	return sig
}

func closes(candles []exchange.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func volumes(candles []exchange.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
