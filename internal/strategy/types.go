package strategy

import (
	"encoding/json"
	"fmt"
)

// Action is a trade decision emitted by a strategy. The zero value means no
// signal this tick.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = ""
)

// Signal carries the decision plus a human-readable reason for bot logs.
type Signal struct {
	Action Action
	Reason string
}

// PositionSide restricts which directions a bot may open.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
	SideBoth  PositionSide = "both"
)

// State is the slice of execution state a strategy may observe: the signed
// position quantity (positive long, negative short) and its entry price.
type State struct {
	Position   float64
	EntryPrice float64
}

// Params is the resolved configuration of one strategy instance. Raw bot
// configuration is parsed into exactly one of the concrete types below, once,
// before any tick runs.
type Params interface {
	Validate() error
	// Side reports the configured position-side restriction; the empty
	// value means both directions.
	Side() PositionSide
	isParams()
}

// RSIFilterParams gates moving-average signals on RSI extremes.
type RSIFilterParams struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// VolumeFilterParams blocks signals on thin volume.
type VolumeFilterParams struct {
	Period    int     `json:"period"`
	Threshold float64 `json:"threshold"`
}

// TrendFilterParams blocks signals when MA separation is too weak.
type TrendFilterParams struct {
	MinStrength float64 `json:"minStrength"`
}

// MovingAverageParams configures the built-in MA strategy.
type MovingAverageParams struct {
	ShortPeriod  int                 `json:"shortPeriod"`
	LongPeriod   int                 `json:"longPeriod"`
	RSIFilter    *RSIFilterParams    `json:"rsiFilter,omitempty"`
	VolumeFilter *VolumeFilterParams `json:"volumeFilter,omitempty"`
	TrendFilter  *TrendFilterParams  `json:"trendFilter,omitempty"`
	PositionSide PositionSide        `json:"positionSide,omitempty"`
}

func (p *MovingAverageParams) isParams() {}

func (p *MovingAverageParams) Side() PositionSide { return p.PositionSide }

func (p *MovingAverageParams) Validate() error {
	if p.ShortPeriod <= 0 || p.LongPeriod <= 0 {
		return fmt.Errorf("moving average periods must be positive")
	}
	if p.ShortPeriod >= p.LongPeriod {
		return fmt.Errorf("shortPeriod %d must be less than longPeriod %d", p.ShortPeriod, p.LongPeriod)
	}
	if f := p.RSIFilter; f != nil {
		if f.Period <= 0 || f.Oversold >= f.Overbought || f.Oversold < 0 || f.Overbought > 100 {
			return fmt.Errorf("invalid rsi filter")
		}
	}
	if f := p.VolumeFilter; f != nil && (f.Period <= 0 || f.Threshold <= 0) {
		return fmt.Errorf("invalid volume filter")
	}
	return validateSide(p.PositionSide)
}

// RSIParams configures the built-in RSI strategy.
type RSIParams struct {
	Period       int          `json:"period"`
	Oversold     float64      `json:"oversold"`
	Overbought   float64      `json:"overbought"`
	PositionSide PositionSide `json:"positionSide,omitempty"`
}

func (p *RSIParams) isParams() {}

func (p *RSIParams) Side() PositionSide { return p.PositionSide }

func (p *RSIParams) Validate() error {
	if p.Period <= 0 {
		return fmt.Errorf("rsi period must be positive")
	}
	if p.Oversold < 0 || p.Overbought > 100 || p.Oversold >= p.Overbought {
		return fmt.Errorf("rsi thresholds must satisfy 0 <= oversold < overbought <= 100")
	}
	return validateSide(p.PositionSide)
}

// IndicatorDecl declares one named indicator for a config-driven strategy.
// Unused fields fall back to conventional defaults per indicator type.
type IndicatorDecl struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"` // sma, ema, rsi, macd, bollinger, stochastic, atr
	Period  int     `json:"period,omitempty"`
	Fast    int     `json:"fast,omitempty"`
	Slow    int     `json:"slow,omitempty"`
	Signal  int     `json:"signal,omitempty"`
	StdDev  float64 `json:"stdDev,omitempty"`
	KPeriod int     `json:"kPeriod,omitempty"`
	DPeriod int     `json:"dPeriod,omitempty"`
}

// Rule binds a condition expression to an action. Rules are evaluated in
// order; the first satisfied one wins.
type Rule struct {
	Condition string `json:"condition"`
	Action    Action `json:"action"`
}

// RiskParams is the per-strategy exit configuration, consumed by the
// execution controller rather than signal generation.
type RiskParams struct {
	TakeProfit  float64 `json:"takeProfit"`  // percent above entry
	StopLoss    float64 `json:"stopLoss"`    // percent below entry
	AutoReverse bool    `json:"autoReverse"` // open opposite position after stop-out
}

// ConfigDrivenParams configures a rule-interpreter strategy.
type ConfigDrivenParams struct {
	Indicators   []IndicatorDecl `json:"indicators"`
	Rules        []Rule          `json:"rules"`
	Risk         RiskParams      `json:"risk"`
	PositionSide PositionSide    `json:"positionSide,omitempty"`
}

func (p *ConfigDrivenParams) isParams() {}

func (p *ConfigDrivenParams) Side() PositionSide { return p.PositionSide }

func (p *ConfigDrivenParams) Validate() error {
	if len(p.Rules) == 0 {
		return fmt.Errorf("config-driven strategy requires at least one rule")
	}
	for i, r := range p.Rules {
		if r.Action != ActionBuy && r.Action != ActionSell {
			return fmt.Errorf("rule %d: action must be buy or sell", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("rule %d: empty condition", i)
		}
	}
	names := make(map[string]bool, len(p.Indicators))
	for i, d := range p.Indicators {
		if d.Name == "" {
			return fmt.Errorf("indicator %d: missing name", i)
		}
		if names[d.Name] {
			return fmt.Errorf("indicator %d: duplicate name %q", i, d.Name)
		}
		names[d.Name] = true
	}
	return validateSide(p.PositionSide)
}

func validateSide(s PositionSide) error {
	switch s {
	case SideLong, SideShort, SideBoth, "":
		return nil
	default:
		return fmt.Errorf("invalid positionSide %q", s)
	}
}

// ParseParams resolves raw strategy configuration into the concrete params
// type for its kind, validating up front so ticks never see bad shapes.
func ParseParams(strategyType string, raw json.RawMessage) (Params, error) {
	var p Params
	switch strategyType {
	case "moving_average", "ma_crossover":
		p = &MovingAverageParams{}
	case "rsi":
		p = &RSIParams{}
	case "config_driven", "custom":
		p = &ConfigDrivenParams{}
	default:
		return nil, fmt.Errorf("unknown strategy type %q", strategyType)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("parse %s params: %w", strategyType, err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s params: %w", strategyType, err)
	}
	return p, nil
}
