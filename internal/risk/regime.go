package risk

import (
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/indicators"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Regime is a coarse volatility classification derived from the ATR ratio.
type Regime string

const (
	RegimeLow    Regime = "low"
	RegimeNormal Regime = "normal"
	RegimeHigh   Regime = "high"
)

// RegimeParams are the strategy parameter overrides for one regime.
type RegimeParams struct {
	ShortPeriod int     `json:"shortPeriod"`
	LongPeriod  int     `json:"longPeriod"`
	Quantity    float64 `json:"quantity"`
}

// RegimeConfig enables ATR-based parameter switching. Thresholds apply to
// the ATR ratio: ATR(period)/lastClose·100, a percent measure of recent
// range relative to price.
type RegimeConfig struct {
	Enabled       bool         `json:"enabled"`
	ATRPeriod     int          `json:"atrPeriod"`
	LowThreshold  float64      `json:"lowThreshold"`  // ratio below this is low vol
	HighThreshold float64      `json:"highThreshold"` // ratio above this is high vol
	Low           RegimeParams `json:"low"`
	Normal        RegimeParams `json:"normal"`
	High          RegimeParams `json:"high"`
}

// refreshInterval bounds how often the regime is recomputed per bot.
const refreshInterval = 5 * time.Minute

// ClassifyRegime computes the volatility regime from candle history. With
// insufficient history it reports normal.
func ClassifyRegime(cfg RegimeConfig, candles []exchange.Candle) Regime {
	period := cfg.ATRPeriod
	if period <= 0 {
		period = 14
	}
	atr := indicators.ATR(candles, period)
	if atr == nil || len(candles) == 0 {
		return RegimeNormal
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return RegimeNormal
	}
	ratio := atr[len(atr)-1] / last * 100
	switch {
	case ratio < cfg.LowThreshold:
		return RegimeLow
	case ratio > cfg.HighThreshold:
		return RegimeHigh
	default:
		return RegimeNormal
	}
}

// Params returns the overrides for a regime.
func (c RegimeConfig) Params(r Regime) RegimeParams {
	switch r {
	case RegimeLow:
		return c.Low
	case RegimeHigh:
		return c.High
	default:
		return c.Normal
	}
}

// RegimeTracker throttles regime recomputation to once per refresh
// interval for one bot.
type RegimeTracker struct {
	cfg         RegimeConfig
	current     Regime
	lastRefresh time.Time
}

func NewRegimeTracker(cfg RegimeConfig) *RegimeTracker {
	return &RegimeTracker{cfg: cfg, current: RegimeNormal}
}

// Refresh recomputes the regime when due and returns the active one. The
// clock is passed in so backtests stay deterministic.
func (t *RegimeTracker) Refresh(now time.Time, candles []exchange.Candle) Regime {
	if !t.cfg.Enabled {
		return RegimeNormal
	}
	if t.lastRefresh.IsZero() || now.Sub(t.lastRefresh) >= refreshInterval {
		t.current = ClassifyRegime(t.cfg, candles)
		t.lastRefresh = now
	}
	return t.current
}

// Current returns the last computed regime without refreshing.
func (t *RegimeTracker) Current() Regime { return t.current }
