package strategy

import (
	"fmt"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/indicators"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy/dsl"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// evaluateRules runs a config-driven strategy: declared indicators are
// computed into a variable table (current plus previous-bar values), then
// rule conditions are evaluated in order and the first satisfied rule's
// action wins. A malformed condition means that rule does not fire;
// evaluation of the remaining rules continues.
func evaluateRules(p *ConfigDrivenParams, candles []exchange.Candle) Signal {
	if len(candles) < 2 {
		return Signal{Reason: "warming up"}
	}
	vars := bindVars(p.Indicators, candles)

	for i, rule := range p.Rules {
		ok, err := dsl.Evaluate(rule.Condition, vars)
		if err != nil {
			continue
		}
		if ok {
			return Signal{Action: rule.Action, Reason: fmt.Sprintf("rule %d: %s", i, rule.Condition)}
		}
	}
	return Signal{Reason: "no rule satisfied"}
}

// bindVars computes every declared indicator over the candle history and
// binds current and previous values by name. Indicators without enough
// history bind nothing, so conditions referencing them fail closed.
func bindVars(decls []IndicatorDecl, candles []exchange.Candle) map[string]float64 {
	prices := closes(candles)
	vols := volumes(candles)

	vars := make(map[string]float64, 2*len(decls)+4)
	bindSeries(vars, "price", prices)
	bindSeries(vars, "volume", vols)

	for _, d := range decls {
		switch d.Type {
		case "sma":
			bindSeries(vars, d.Name, indicators.SMA(prices, defaultInt(d.Period, 14)))
		case "ema":
			bindSeries(vars, d.Name, indicators.EMA(prices, defaultInt(d.Period, 14)))
		case "rsi":
			bindSeries(vars, d.Name, indicators.RSI(prices, defaultInt(d.Period, 14)))
		case "atr":
			bindSeries(vars, d.Name, indicators.ATR(candles, defaultInt(d.Period, 14)))
		case "macd":
			res := indicators.MACD(prices, defaultInt(d.Fast, 12), defaultInt(d.Slow, 26), defaultInt(d.Signal, 9))
			if res != nil {
				bindSeries(vars, d.Name, res.MACD)
				bindSeries(vars, d.Name+"_signal", res.Signal)
				bindSeries(vars, d.Name+"_hist", res.Histogram)
			}
		case "bollinger":
			std := d.StdDev
			if std <= 0 {
				std = 2
			}
			res := indicators.Bollinger(prices, defaultInt(d.Period, 20), std)
			if res != nil {
				bindSeries(vars, d.Name+"_upper", res.Upper)
				bindSeries(vars, d.Name+"_middle", res.Middle)
				bindSeries(vars, d.Name+"_lower", res.Lower)
			}
		case "stochastic":
			res := indicators.Stochastic(candles, defaultInt(d.KPeriod, 14), defaultInt(d.DPeriod, 3))
			if res != nil {
				bindSeries(vars, d.Name+"_k", res.K)
				bindSeries(vars, d.Name+"_d", res.D)
			}
		}
	}
	return vars
}

func bindSeries(vars map[string]float64, name string, series []float64) {
	if len(series) == 0 {
		return
	}
	vars[name] = series[len(series)-1]
	if len(series) >= 2 {
		vars[name+dsl.PrevSuffix] = series[len(series)-2]
	}
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
