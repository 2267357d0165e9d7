package risk

// Limits is the per-bot risk configuration enforced on every tick.
// Percent fields are expressed as whole percents (5 = 5%).
type Limits struct {
	MaxDailyLoss    float64 `json:"maxDailyLoss"`    // absolute quote-currency cap
	MaxPositionSize float64 `json:"maxPositionSize"` // max notional per trade
	StopLoss        float64 `json:"stopLoss"`        // percent adverse move from entry
	TakeProfit      float64 `json:"takeProfit"`      // percent favorable move from entry
}

// Decision is the outcome of a risk gate check. Rejections are deliberate
// no-ops, not errors.
type Decision struct {
	Allowed bool
	Reason  string
}

// Exit is the outcome of stop-loss/take-profit evaluation against an open
// position's entry price.
type Exit struct {
	Triggered  bool
	TakeProfit bool // true for TP, false for SL when triggered
	Reason     string
}
