package strategy

import (
	"encoding/json"
	"testing"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) []exchange.Candle {
	out := make([]exchange.Candle, len(closes))
	for i, c := range closes {
		out[i] = exchange.Candle{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

// Rising tail pushes the short MA above the long MA.
func bullishCandles() []exchange.Candle {
	return candlesFromCloses(100, 100, 100, 100, 100, 100, 101, 103, 106, 110)
}

func bearishCandles() []exchange.Candle {
	return candlesFromCloses(110, 110, 110, 110, 110, 110, 109, 107, 104, 100)
}

func TestMovingAverageSignal(t *testing.T) {
	p := &MovingAverageParams{ShortPeriod: 3, LongPeriod: 7}

	sig := Evaluate(p, bullishCandles(), State{})
	assert.Equal(t, ActionBuy, sig.Action, sig.Reason)

	sig = Evaluate(p, bearishCandles(), State{Position: 1})
	assert.Equal(t, ActionSell, sig.Action, sig.Reason)
}

func TestMovingAverageIsPure(t *testing.T) {
	p := &MovingAverageParams{ShortPeriod: 3, LongPeriod: 7}
	candles := bullishCandles()

	first := Evaluate(p, candles, State{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate(p, candles, State{}))
	}
}

func TestMovingAverageWarmup(t *testing.T) {
	p := &MovingAverageParams{ShortPeriod: 3, LongPeriod: 7}
	sig := Evaluate(p, candlesFromCloses(100, 101, 102), State{})
	assert.Equal(t, ActionNone, sig.Action, "insufficient history is no signal, not an error")
}

func TestMovingAverageTrendFilter(t *testing.T) {
	p := &MovingAverageParams{
		ShortPeriod: 3, LongPeriod: 7,
		TrendFilter: &TrendFilterParams{MinStrength: 50},
	}
	sig := Evaluate(p, bullishCandles(), State{})
	assert.Equal(t, ActionNone, sig.Action, "separation below 50%% blocks the signal")
}

func TestMovingAverageVolumeFilter(t *testing.T) {
	candles := bullishCandles()
	for i := range candles {
		candles[i].Volume = 1000
	}
	candles[len(candles)-1].Volume = 10 // thin final bar

	p := &MovingAverageParams{
		ShortPeriod: 3, LongPeriod: 7,
		VolumeFilter: &VolumeFilterParams{Period: 5, Threshold: 0.5},
	}
	sig := Evaluate(p, candles, State{})
	assert.Equal(t, ActionNone, sig.Action, sig.Reason)
}

func TestMovingAverageRSIFilterBlocksOverboughtBuy(t *testing.T) {
	// A pure gain streak pins RSI at 100, above any overbought threshold.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	p := &MovingAverageParams{
		ShortPeriod: 3, LongPeriod: 7,
		RSIFilter: &RSIFilterParams{Period: 14, Oversold: 30, Overbought: 70},
	}
	sig := Evaluate(p, candlesFromCloses(closes...), State{})
	assert.Equal(t, ActionNone, sig.Action, sig.Reason)
}

func TestRSIStrategyThresholds(t *testing.T) {
	p := &RSIParams{Period: 14, Oversold: 30, Overbought: 70}

	up := make([]float64, 30)
	down := make([]float64, 30)
	flat := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
		flat[i] = 100 + float64(i%2) // alternating keeps RSI near 50
	}

	sig := Evaluate(p, candlesFromCloses(down...), State{})
	assert.Equal(t, ActionBuy, sig.Action, sig.Reason)

	sig = Evaluate(p, candlesFromCloses(up...), State{Position: 1})
	assert.Equal(t, ActionSell, sig.Action, sig.Reason)

	sig = Evaluate(p, candlesFromCloses(flat...), State{})
	assert.Equal(t, ActionNone, sig.Action, sig.Reason)
}

func TestPositionSideFiltering(t *testing.T) {
	p := &MovingAverageParams{ShortPeriod: 3, LongPeriod: 7, PositionSide: SideLong}

	// Bearish with no position: the sell would open a short, so it is nulled.
	sig := Evaluate(p, bearishCandles(), State{Position: 0})
	assert.Equal(t, ActionNone, sig.Action, sig.Reason)

	// Bearish holding a long: the sell closes, so it passes.
	sig = Evaluate(p, bearishCandles(), State{Position: 1, EntryPrice: 110})
	assert.Equal(t, ActionSell, sig.Action, sig.Reason)

	short := &RSIParams{Period: 14, Oversold: 30, Overbought: 70, PositionSide: SideShort}
	down := make([]float64, 30)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	sig = Evaluate(short, candlesFromCloses(down...), State{Position: 0})
	assert.Equal(t, ActionNone, sig.Action, "buy would open a long on a short-only bot")

	sig = Evaluate(short, candlesFromCloses(down...), State{Position: -1})
	assert.Equal(t, ActionBuy, sig.Action, "buy closing a short passes")
}

func TestConfigDrivenCrossRule(t *testing.T) {
	p := &ConfigDrivenParams{
		Indicators: []IndicatorDecl{
			{Name: "fast", Type: "sma", Period: 3},
			{Name: "slow", Type: "sma", Period: 7},
		},
		Rules: []Rule{
			{Condition: "fast crossesAbove slow", Action: ActionBuy},
			{Condition: "fast crossesBelow slow", Action: ActionSell},
		},
	}

	// Short MA crosses above the long MA on the final bar.
	candles := candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 99, 98, 120)
	sig := Evaluate(p, candles, State{})
	assert.Equal(t, ActionBuy, sig.Action, sig.Reason)

	// Flat series: neither cross fires.
	sig = Evaluate(p, candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 100), State{})
	assert.Equal(t, ActionNone, sig.Action, sig.Reason)
}

func TestConfigDrivenFirstSatisfiedRuleWins(t *testing.T) {
	p := &ConfigDrivenParams{
		Indicators: []IndicatorDecl{{Name: "r", Type: "rsi", Period: 3}},
		Rules: []Rule{
			{Condition: "price > 0", Action: ActionSell},
			{Condition: "price > 0", Action: ActionBuy},
		},
	}
	sig := Evaluate(p, candlesFromCloses(100, 101, 102, 103, 104), State{})
	assert.Equal(t, ActionSell, sig.Action)
}

func TestConfigDrivenMalformedRuleSkipped(t *testing.T) {
	p := &ConfigDrivenParams{
		Rules: []Rule{
			{Condition: "require('fs')", Action: ActionBuy},
			{Condition: "undefined_var > 1", Action: ActionBuy},
			{Condition: "price > 0", Action: ActionSell},
		},
	}
	sig := Evaluate(p, candlesFromCloses(100, 101, 102), State{Position: 1})
	assert.Equal(t, ActionSell, sig.Action, "bad rules are skipped, later rules still evaluate")
}

func TestConfigDrivenHostileConditionNeverFires(t *testing.T) {
	p := &ConfigDrivenParams{
		Rules: []Rule{{Condition: "require('fs')", Action: ActionBuy}},
	}
	sig := Evaluate(p, candlesFromCloses(100, 101, 102), State{})
	assert.Equal(t, ActionNone, sig.Action)
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams("moving_average", json.RawMessage(`{"shortPeriod":9,"longPeriod":21}`))
	require.NoError(t, err)
	ma, ok := p.(*MovingAverageParams)
	require.True(t, ok)
	assert.Equal(t, 9, ma.ShortPeriod)

	_, err = ParseParams("moving_average", json.RawMessage(`{"shortPeriod":21,"longPeriod":9}`))
	assert.Error(t, err, "short must be below long")

	_, err = ParseParams("rsi", json.RawMessage(`{"period":14,"oversold":70,"overbought":30}`))
	assert.Error(t, err)

	_, err = ParseParams("martingale", nil)
	assert.Error(t, err, "unknown strategy type is a configuration error")

	_, err = ParseParams("config_driven", json.RawMessage(`{"rules":[{"condition":"price>0","action":"hold"}]}`))
	assert.Error(t, err)

	p, err = ParseParams("config_driven", json.RawMessage(`{"rules":[{"condition":"price>0","action":"buy"}],"risk":{"takeProfit":5,"stopLoss":2}}`))
	require.NoError(t, err)
	cd := p.(*ConfigDrivenParams)
	assert.Equal(t, 5.0, cd.Risk.TakeProfit)
}
