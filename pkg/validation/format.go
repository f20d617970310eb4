// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/nitrogen-response/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateChartFormat checks if the chart format is one of the supported artifact formats.
func ValidateChartFormat(format string) error {
	switch format {
	case constants.ChartFormatHTML, constants.ChartFormatSVG, constants.ChartFormatPNG:
		return nil
	}
	return fmt.Errorf("expected chart format of %s, %s or %s, got %s",
		constants.ChartFormatHTML, constants.ChartFormatSVG, constants.ChartFormatPNG, format)
}
