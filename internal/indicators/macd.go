package indicators

// MACDResult carries the MACD line, its signal line, and the histogram. All
// three slices share length and align to the tail of the input series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA(fast) - EMA(slow) with a signal line EMA over the MACD
// line. Returns nil when there is not enough history to produce at least one
// signal value.
func MACD(values []float64, fast, slow, signal int) *MACDResult {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return nil
	}
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	if emaSlow == nil {
		return nil
	}

	// Both EMAs align to the input tail; trim the fast one to match.
	emaFast = emaFast[len(emaFast)-len(emaSlow):]
	macdLine := make([]float64, len(emaSlow))
	for i := range emaSlow {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	signalLine := EMA(macdLine, signal)
	if signalLine == nil {
		return nil
	}
	macdLine = macdLine[len(macdLine)-len(signalLine):]

	hist := make([]float64, len(signalLine))
	for i := range signalLine {
		hist[i] = macdLine[i] - signalLine[i]
	}
	return &MACDResult{MACD: macdLine, Signal: signalLine, Histogram: hist}
}
