package risk

import (
	"testing"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/stretchr/testify/assert"
)

func TestCheckTradeDailyLossCap(t *testing.T) {
	limits := Limits{MaxDailyLoss: 500, MaxPositionSize: 10000}

	d := CheckTrade(limits, -499.99, 100, 1)
	assert.True(t, d.Allowed)

	// Exactly at the cap rejects.
	d = CheckTrade(limits, -500, 100, 1)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily loss cap")

	d = CheckTrade(limits, -600, 100, 1)
	assert.False(t, d.Allowed)
}

func TestCheckTradePositionSizeCap(t *testing.T) {
	limits := Limits{MaxPositionSize: 1000}

	assert.True(t, CheckTrade(limits, 0, 100, 10).Allowed, "exactly at cap is allowed")
	d := CheckTrade(limits, 0, 100, 10.1)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "position size")
}

func TestCheckTradeZeroLimitsDisable(t *testing.T) {
	assert.True(t, CheckTrade(Limits{}, -1e9, 1e9, 1e9).Allowed)
}

func TestCheckExitLong(t *testing.T) {
	limits := Limits{StopLoss: 2, TakeProfit: 5}

	e := CheckExit(limits, 1, 100, 97.9)
	assert.True(t, e.Triggered)
	assert.False(t, e.TakeProfit)

	e = CheckExit(limits, 1, 100, 105.1)
	assert.True(t, e.Triggered)
	assert.True(t, e.TakeProfit)

	e = CheckExit(limits, 1, 100, 101)
	assert.False(t, e.Triggered)
}

func TestCheckExitShort(t *testing.T) {
	limits := Limits{StopLoss: 2, TakeProfit: 5}

	// Price rising against a short is the adverse direction.
	e := CheckExit(limits, -1, 100, 102.5)
	assert.True(t, e.Triggered)
	assert.False(t, e.TakeProfit)

	e = CheckExit(limits, -1, 100, 94)
	assert.True(t, e.Triggered)
	assert.True(t, e.TakeProfit)
}

func TestCheckExitNoPosition(t *testing.T) {
	e := CheckExit(Limits{StopLoss: 2, TakeProfit: 5}, 0, 100, 50)
	assert.False(t, e.Triggered)

	e = CheckExit(Limits{StopLoss: 2}, 1, 0, 50)
	assert.False(t, e.Triggered, "no entry price recorded")
}

func TestUpdateDrawdownState(t *testing.T) {
	d := &DrawdownState{Enabled: true, MaxDrawdown: 10, Peak: 10000}

	dd, stop := d.UpdateDrawdownState(8900)
	assert.InDelta(t, 11.0, dd, 1e-9)
	assert.True(t, stop, "11% drawdown breaches the 10% limit")

	d = &DrawdownState{Enabled: true, MaxDrawdown: 10, Peak: 10000}
	dd, stop = d.UpdateDrawdownState(9000)
	assert.InDelta(t, 10.0, dd, 1e-9)
	assert.True(t, stop, "threshold is inclusive")

	d = &DrawdownState{Enabled: true, MaxDrawdown: 10, Peak: 10000}
	_, stop = d.UpdateDrawdownState(9001)
	assert.False(t, stop)
}

func TestDrawdownPeakRatchets(t *testing.T) {
	d := &DrawdownState{Enabled: true, MaxDrawdown: 10}

	_, stop := d.UpdateDrawdownState(10000)
	assert.False(t, stop)
	assert.Equal(t, 10000.0, d.Peak)

	_, stop = d.UpdateDrawdownState(12000)
	assert.False(t, stop)
	assert.Equal(t, 12000.0, d.Peak)

	// Drawdown now measured from the new peak.
	dd, stop := d.UpdateDrawdownState(10700)
	assert.InDelta(t, (12000.0-10700.0)/12000.0*100, dd, 1e-9)
	assert.True(t, stop)
}

func TestDrawdownDisabledNeverStops(t *testing.T) {
	d := &DrawdownState{Enabled: false, MaxDrawdown: 10, Peak: 10000}
	_, stop := d.UpdateDrawdownState(1)
	assert.False(t, stop)
}

func regimeCandles(spread float64) []exchange.Candle {
	out := make([]exchange.Candle, 20)
	for i := range out {
		out[i] = exchange.Candle{
			Open: 100, High: 100 + spread, Low: 100 - spread, Close: 100,
		}
	}
	return out
}

func TestClassifyRegime(t *testing.T) {
	cfg := RegimeConfig{ATRPeriod: 14, LowThreshold: 0.5, HighThreshold: 1.5}

	// TR = 2·spread, ratio = TR/100·100 = 2·spread percent.
	assert.Equal(t, RegimeLow, ClassifyRegime(cfg, regimeCandles(0.1)))    // 0.2%
	assert.Equal(t, RegimeNormal, ClassifyRegime(cfg, regimeCandles(0.5))) // 1.0%
	assert.Equal(t, RegimeHigh, ClassifyRegime(cfg, regimeCandles(1.0)))   // 2.0%

	assert.Equal(t, RegimeNormal, ClassifyRegime(cfg, regimeCandles(1.0)[:5]), "insufficient history is normal")
}

func TestRegimeTrackerThrottle(t *testing.T) {
	cfg := RegimeConfig{Enabled: true, ATRPeriod: 14, LowThreshold: 0.5, HighThreshold: 1.5}
	tr := NewRegimeTracker(cfg)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, RegimeHigh, tr.Refresh(now, regimeCandles(1.0)))

	// Within 5 minutes the cached regime is reused even if volatility moved.
	assert.Equal(t, RegimeHigh, tr.Refresh(now.Add(4*time.Minute), regimeCandles(0.1)))

	// After the interval it recomputes.
	assert.Equal(t, RegimeLow, tr.Refresh(now.Add(5*time.Minute), regimeCandles(0.1)))
}

func TestRegimeTrackerDisabled(t *testing.T) {
	tr := NewRegimeTracker(RegimeConfig{Enabled: false})
	assert.Equal(t, RegimeNormal, tr.Refresh(time.Now(), regimeCandles(5)))
}

func TestRegimeParams(t *testing.T) {
	cfg := RegimeConfig{
		Low:    RegimeParams{ShortPeriod: 5, LongPeriod: 20, Quantity: 2},
		Normal: RegimeParams{ShortPeriod: 9, LongPeriod: 21, Quantity: 1},
		High:   RegimeParams{ShortPeriod: 12, LongPeriod: 30, Quantity: 0.5},
	}
	assert.Equal(t, 2.0, cfg.Params(RegimeLow).Quantity)
	assert.Equal(t, 0.5, cfg.Params(RegimeHigh).Quantity)
	assert.Equal(t, 1.0, cfg.Params(RegimeNormal).Quantity)
}
