package indicators

import "github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"

// StochasticResult carries %K and its %D smoothing, tail-aligned.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the stochastic oscillator: %K positions the close
// within the kPeriod high-low range, %D is an SMA of %K over dPeriod.
// A flat window (high == low) yields a neutral 50. Returns nil when there is
// not enough history.
func Stochastic(candles []exchange.Candle, kPeriod, dPeriod int) *StochasticResult {
	if kPeriod <= 0 || dPeriod <= 0 || len(candles) < kPeriod+dPeriod-1 {
		return nil
	}
	k := make([]float64, 0, len(candles)-kPeriod+1)
	for i := kPeriod - 1; i < len(candles); i++ {
		low := candles[i-kPeriod+1].Low
		high := candles[i-kPeriod+1].High
		for _, c := range candles[i-kPeriod+2 : i+1] {
			if c.Low < low {
				low = c.Low
			}
			if c.High > high {
				high = c.High
			}
		}
		if high == low {
			k = append(k, 50)
			continue
		}
		k = append(k, (candles[i].Close-low)/(high-low)*100)
	}
	d := SMA(k, dPeriod)
	if d == nil {
		return nil
	}
	return &StochasticResult{K: k[len(k)-len(d):], D: d}
}
