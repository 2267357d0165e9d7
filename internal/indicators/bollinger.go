package indicators

import "math"

// BollingerResult carries the three bands, tail-aligned to the input.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes bands at SMA ± stdDev·σ over a rolling window of period
// values. Returns nil when there is not enough history.
func Bollinger(values []float64, period int, stdDev float64) *BollingerResult {
	middle := SMA(values, period)
	if middle == nil {
		return nil
	}
	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for j := range middle {
		window := values[j : j+period]
		variance := 0.0
		for _, v := range window {
			d := v - middle[j]
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(period))
		upper[j] = middle[j] + stdDev*sigma
		lower[j] = middle[j] - stdDev*sigma
	}
	return &BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}
