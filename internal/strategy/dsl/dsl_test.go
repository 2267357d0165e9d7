package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateComparisons(t *testing.T) {
	vars := map[string]float64{"rsi": 25, "price": 100, "sma_20": 98}

	tests := []struct {
		cond string
		want bool
	}{
		{"rsi < 30", true},
		{"rsi >= 30", false},
		{"price > sma_20", true},
		{"price > sma_20 && rsi < 30", true},
		{"price < sma_20 || rsi < 30", true},
		{"price == 100", true},
		{"price != 100", false},
		{"!(rsi < 30)", false},
		{"(price - sma_20) * 2 > 3", true},
		{"abs(sma_20 - price) < 5", true},
		{"Math.abs(sma_20 - price) < 1", false},
	}
	for _, tt := range tests {
		got, err := Evaluate(tt.cond, vars)
		require.NoError(t, err, tt.cond)
		assert.Equal(t, tt.want, got, tt.cond)
	}
}

func TestEvaluateCrosses(t *testing.T) {
	// fast was below slow, now above: crossesAbove fires.
	vars := map[string]float64{
		"fast": 102, "fast_prev": 99,
		"slow": 100, "slow_prev": 100,
	}
	got, err := Evaluate("fast crossesAbove slow", vars)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Evaluate("fast crossesBelow slow", vars)
	require.NoError(t, err)
	assert.False(t, got)

	// Already above on both bars: no cross.
	vars["fast_prev"] = 101
	got, err = Evaluate("fast crossesAbove slow", vars)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateNear(t *testing.T) {
	vars := map[string]float64{"price": 100, "lower_band": 100.1}
	got, err := Evaluate("price near lower_band", vars)
	require.NoError(t, err)
	assert.True(t, got, "within 0.2% of price")

	vars["lower_band"] = 102
	got, err = Evaluate("price near lower_band", vars)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateRejectsDisallowedInput(t *testing.T) {
	vars := map[string]float64{"price": 100}

	// None of these may ever evaluate to true or execute anything.
	hostile := []string{
		"require('fs')",
		"process.exit(1)",
		"price; drop",
		`price > 0 && system("rm")`,
		"__proto__.x",
		"price > 0 || require",
		"eval(price)",
		"price`",
	}
	for _, cond := range hostile {
		got, err := Evaluate(cond, vars)
		assert.False(t, got, cond)
		assert.Error(t, err, cond)
	}
}

func TestEvaluateUnknownVariable(t *testing.T) {
	got, err := Evaluate("momentum > 5", map[string]float64{"price": 1})
	assert.Error(t, err)
	assert.False(t, got)
}

func TestEvaluateMalformedSyntax(t *testing.T) {
	vars := map[string]float64{"price": 100}
	for _, cond := range []string{"price >", "(price > 1", "> 5", "price 100", ""} {
		got, err := Evaluate(cond, vars)
		assert.Error(t, err, cond)
		assert.False(t, got, cond)
	}
}

func TestDivisionByZeroDoesNotFire(t *testing.T) {
	got, err := Evaluate("price / zero > 1", map[string]float64{"price": 1, "zero": 0})
	assert.Error(t, err)
	assert.False(t, got)
}
