package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateEMA calculates the Exponential Moving Average of a series and returns
// the latest value.
//
// EMA Formula:
//
//	EMA_today = (Value_today × multiplier) + (EMA_yesterday × (1 - multiplier))
//	where multiplier = 2 / (period + 1)
//
// Series shorter than the period fall back to the simple mean. Returns nil for an
// empty series.
func CalculateEMA(values []float64, length int) *float64 {
	if len(values) == 0 {
		return nil
	}

	if length < 2 || len(values) < length {
		mean := Mean(values)
		return &mean
	}

	ema := talib.Ema(values, length)
	if len(ema) > 0 && !math.IsNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}

	mean := Mean(values[len(values)-length:])
	return &mean
}
