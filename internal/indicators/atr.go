package indicators

import (
	"math"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// ATR computes the Average True Range series as a rolling mean of true
// range, where TR = max(high-low, |high-prevClose|, |low-prevClose|). The
// first bar's TR is just high-low. Returns nil when there is not enough
// history.
func ATR(candles []exchange.Candle, period int) []float64 {
	if period <= 0 || len(candles) < period {
		return nil
	}
	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		tr[i] = math.Max(candles[i].High-candles[i].Low,
			math.Max(math.Abs(candles[i].High-prevClose), math.Abs(candles[i].Low-prevClose)))
	}
	return SMA(tr, period)
}
