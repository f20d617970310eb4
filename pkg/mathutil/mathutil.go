// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/nitrogen-response/pkg/constants"
)

// Round rounds a value to two decimals for display and logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// IsIntegral reports whether val is finite and has no fractional part.
func IsIntegral(val float64) bool {
	return IsFinite(val) && val == math.Trunc(val)
}

// EconomicReturn is the net return per hectare of a yield obtained with a
// given nitrogen rate: yield * grainPrice - nitrogen * nitrogenPrice.
func EconomicReturn(yield, nitrogen, grainPrice, nitrogenPrice float64) float64 {
	return yield*grainPrice - nitrogen*nitrogenPrice
}
