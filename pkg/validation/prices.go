package validation

import (
	"fmt"

	"github.com/iwvelando/nitrogen-response/pkg/mathutil"
)

// ValidatePrices checks that grain and nitrogen prices are finite and not negative.
func ValidatePrices(grainPrice, nitrogenPrice float64) error {
	if !mathutil.IsFinite(grainPrice) || grainPrice < 0 {
		return fmt.Errorf("grain price must be a non-negative number, got %v", grainPrice)
	}
	if !mathutil.IsFinite(nitrogenPrice) || nitrogenPrice < 0 {
		return fmt.Errorf("nitrogen price must be a non-negative number, got %v", nitrogenPrice)
	}
	return nil
}

// ValidateChartSize checks that chart dimensions are positive.
func ValidateChartSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", width, height)
	}
	return nil
}
