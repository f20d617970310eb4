// Package output provides utilities for formatting and displaying curve results.
package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/nitrogen-response/internal/pipeline"
	"github.com/iwvelando/nitrogen-response/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Row kinds written by CsvFormat.
const (
	KindObserved = "observed"
	KindCurve    = "curve"
	KindOptimum  = "optimum"
)

// PrettyFormat writes a human-readable summary: the optimum followed by the
// observed points of the cell.
func PrettyFormat(w io.Writer, result *pipeline.Result) error {
	if result == nil {
		return fmt.Errorf("no result to format")
	}

	p := message.NewPrinter(language.English)
	mode := result.Request.Mode

	if _, err := fmt.Fprintf(w, "--- Results for cell %d (%s) ---\n", result.Request.CellID, mode); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "%s: %.2f at %v kg/ha nitrogen\n", mode.OptimumName(), result.Optimum.Response, result.Optimum.Nitrogen); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Curve: %d samples\n\n", len(result.Curve)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Nitrogen | %s\n", mode.AxisLabel()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "________ | ________\n"); err != nil {
		return err
	}
	for _, point := range result.Points {
		if _, err := p.Fprintf(w, "%8v | %.2f\n", point.Nitrogen, point.Response); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat writes every observed point, curve sample and the optimum as
// comma-separated values. Responses are rounded to two decimals.
func CsvFormat(w io.Writer, result *pipeline.Result) error {
	if result == nil {
		return fmt.Errorf("no result to format")
	}

	if _, err := fmt.Fprintf(w, `"cell","mode","kind","nitrogen","response"`+"\n"); err != nil {
		return err
	}

	cell := result.Request.CellID
	mode := result.Request.Mode
	row := func(kind string, nitrogen, response float64) error {
		_, err := fmt.Fprintf(w, `"%d","%s","%s","%g","%g"`+"\n", cell, mode, kind, nitrogen, mathutil.Round(response))
		return err
	}

	for _, point := range result.Points {
		if err := row(KindObserved, point.Nitrogen, point.Response); err != nil {
			return err
		}
	}
	for _, sample := range result.Curve {
		if err := row(KindCurve, sample.Nitrogen, sample.Response); err != nil {
			return err
		}
	}
	return row(KindOptimum, result.Optimum.Nitrogen, result.Optimum.Response)
}
