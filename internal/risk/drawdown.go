package risk

import "fmt"

// DrawdownState tracks peak equity for one bot. Peak only ratchets upward;
// drawdown is measured from the high-water mark.
type DrawdownState struct {
	Enabled     bool    `json:"enabled"`
	MaxDrawdown float64 `json:"maxDrawdown"` // percent threshold that halts trading
	Peak        float64 `json:"peak"`
	Current     float64 `json:"current"`
}

// UpdateDrawdownState ingests the latest equity value and reports the
// current drawdown percent and whether trading must halt. The halt check
// dominates all signal logic for the tick.
func (d *DrawdownState) UpdateDrawdownState(balance float64) (drawdown float64, shouldStop bool) {
	d.Current = balance
	if balance > d.Peak {
		d.Peak = balance
	}
	if !d.Enabled || d.Peak <= 0 {
		return 0, false
	}
	drawdown = (d.Peak - d.Current) / d.Peak * 100
	return drawdown, drawdown >= d.MaxDrawdown
}

// Describe renders the state for bot logs and alerts.
func (d *DrawdownState) Describe() string {
	if d.Peak <= 0 {
		return "no equity recorded"
	}
	return fmt.Sprintf("peak %.2f, current %.2f, drawdown %.2f%% (max %.2f%%)",
		d.Peak, d.Current, (d.Peak-d.Current)/d.Peak*100, d.MaxDrawdown)
}
