// Package response builds agronomic response curves from aggregated
// simulation rows and locates their optimum nitrogen rate.
//
// Two responses are supported: mean yield (AONR) and economic return (EONR),
// where economic return is yield * grainPrice - nitrogen * nitrogenPrice.
package response

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iwvelando/nitrogen-response/internal/dataset"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/mathutil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Mode selects which response is plotted against nitrogen.
type Mode string

const (
	ModeYield    Mode = "yield"
	ModeEconomic Mode = "economic"
)

// ParseMode converts a user supplied mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeYield, ModeEconomic:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("expected mode of %s or %s, got %q", ModeYield, ModeEconomic, value)
	}
}

// AxisLabel is the y-axis label for the mode.
func (m Mode) AxisLabel() string {
	if m == ModeEconomic {
		return constants.EconomicAxisLabel
	}
	return constants.YieldAxisLabel
}

// CurveName is the legend entry of the interpolated curve.
func (m Mode) CurveName() string {
	if m == ModeEconomic {
		return "Economic Return Curve"
	}
	return "Yield Curve"
}

// OptimumName is the legend entry of the optimum marker.
func (m Mode) OptimumName() string {
	if m == ModeEconomic {
		return "EONR"
	}
	return "Max Yield"
}

// Prices holds the grain price (currency per yield unit) and the nitrogen
// price (currency per nitrogen unit) used for economic return.
type Prices struct {
	Grain    float64
	Nitrogen float64
}

// EconomicRow is an aggregated row extended with its economic return.
type EconomicRow struct {
	dataset.AggregatedRow
	EconomicReturn float64
}

// Point is a raw (nitrogen, response) pair taken from an aggregated row.
type Point struct {
	Nitrogen float64
	Response float64
}

// CurveSample is one point of the densely sampled interpolant.
type CurveSample struct {
	Nitrogen float64
	Response float64
}

// OptimumPoint is the raw row with the highest response.
type OptimumPoint struct {
	Nitrogen float64
	Response float64
}

// InsufficientDataError is returned when fewer than two distinct nitrogen
// levels are available to fit a curve.
type InsufficientDataError struct {
	Distinct int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d distinct nitrogen values, got %d",
		constants.MinDistinctNitrogen, e.Distinct)
}

// DuplicateNitrogenError is returned when the same nitrogen level appears on
// more than one row, as happens when a cell spans several regions or
// sub-cells. The interpolant needs strictly increasing nitrogen values.
type DuplicateNitrogenError struct {
	Nitrogen float64
	Count    int
}

func (e *DuplicateNitrogenError) Error() string {
	return fmt.Sprintf("nitrogen value %g appears on %d rows; curve requires one row per nitrogen level",
		e.Nitrogen, e.Count)
}

// ErrNoPoints is returned when an optimum is requested over no rows.
var ErrNoPoints = errors.New("no points to evaluate")

// EconomicRows computes the economic return of every row.
func EconomicRows(rows []dataset.AggregatedRow, prices Prices) []EconomicRow {
	result := make([]EconomicRow, len(rows))
	for i, row := range rows {
		result[i] = EconomicRow{
			AggregatedRow:  row,
			EconomicReturn: mathutil.EconomicReturn(row.MeanYield, row.Nitrogen, prices.Grain, prices.Nitrogen),
		}
	}
	return result
}

// YieldPoints pairs each row's nitrogen with its mean yield.
func YieldPoints(rows []dataset.AggregatedRow) []Point {
	points := make([]Point, len(rows))
	for i, row := range rows {
		points[i] = Point{Nitrogen: row.Nitrogen, Response: row.MeanYield}
	}
	return points
}

// EconomicPoints pairs each row's nitrogen with its economic return.
func EconomicPoints(rows []EconomicRow) []Point {
	points := make([]Point, len(rows))
	for i, row := range rows {
		points[i] = Point{Nitrogen: row.Nitrogen, Response: row.EconomicReturn}
	}
	return points
}

// Points returns the response points for the requested mode. Prices are
// ignored in yield mode.
func Points(rows []dataset.AggregatedRow, mode Mode, prices Prices) []Point {
	if mode == ModeEconomic {
		return EconomicPoints(EconomicRows(rows, prices))
	}
	return YieldPoints(rows)
}

// BuildCurve fits a monotone piecewise cubic Hermite interpolant (PCHIP,
// Fritsch-Butland derivatives) through points and samples it at
// constants.CurveSamples evenly spaced nitrogen values spanning the input range.
// Points may arrive in any order; they are sorted by nitrogen first.
func BuildCurve(points []Point) ([]CurveSample, error) {
	distinct := distinctNitrogen(points)
	if distinct < constants.MinDistinctNitrogen {
		return nil, &InsufficientDataError{Distinct: distinct}
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Nitrogen < sorted[j].Nitrogen
	})

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = p.Nitrogen
		ys[i] = p.Response
	}
	if err := checkStrictlyIncreasing(xs); err != nil {
		return nil, err
	}

	var pchip interp.FritschButland
	if err := pchip.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit response curve: %w", err)
	}

	lo, hi := xs[0], xs[len(xs)-1]
	grid := floats.Span(make([]float64, constants.CurveSamples), lo, hi)
	// Pin the last sample to the range end so accumulated step error
	// never leaves the fitted domain.
	grid[len(grid)-1] = hi

	samples := make([]CurveSample, len(grid))
	for i, x := range grid {
		samples[i] = CurveSample{Nitrogen: x, Response: pchip.Predict(x)}
	}
	return samples, nil
}

// FindOptimum returns the point with the largest response. Ties go to the
// earliest point, so callers should pass rows in filtered order.
//
// The optimum is taken over the raw points, not the sampled curve, so the
// marker need not lie on the drawn curve and the curve may exceed it between
// data points.
func FindOptimum(points []Point) (OptimumPoint, error) {
	if len(points) == 0 {
		return OptimumPoint{}, ErrNoPoints
	}

	responses := make([]float64, len(points))
	for i, p := range points {
		responses[i] = p.Response
	}
	best := points[floats.MaxIdx(responses)]
	return OptimumPoint{Nitrogen: best.Nitrogen, Response: best.Response}, nil
}

func distinctNitrogen(points []Point) int {
	seen := make(map[float64]struct{}, len(points))
	for _, p := range points {
		seen[p.Nitrogen] = struct{}{}
	}
	return len(seen)
}

func checkStrictlyIncreasing(xs []float64) error {
	for i := 1; i < len(xs); i++ {
		if xs[i] != xs[i-1] {
			continue
		}
		count := 2
		for j := i + 1; j < len(xs) && xs[j] == xs[i]; j++ {
			count++
		}
		return &DuplicateNitrogenError{Nitrogen: xs[i], Count: count}
	}
	return nil
}
