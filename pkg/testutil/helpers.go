// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/iwvelando/nitrogen-response/internal/dataset"
	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/spf13/afero"
)

// FindRow finds the aggregated row for a nitrogen level and sub-cell.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(rows []dataset.AggregatedRow, nitrogen float64, subCellID int) *dataset.AggregatedRow {
	for i := range rows {
		if rows[i].Nitrogen == nitrogen && rows[i].SubCellID == subCellID {
			return &rows[i]
		}
	}
	return nil
}

// NearestSample returns the curve sample closest to nitrogen, or nil for an
// empty curve.
func NearestSample(curve []response.CurveSample, nitrogen float64) *response.CurveSample {
	var nearest *response.CurveSample
	best := 0.0
	for i := range curve {
		d := curve[i].Nitrogen - nitrogen
		if d < 0 {
			d = -d
		}
		if nearest == nil || d < best {
			nearest = &curve[i]
			best = d
		}
	}
	return nearest
}

// WriteDataset writes a simulations table to path on fs, failing the test on error.
func WriteDataset(t testing.TB, fs afero.Fs, path, contents string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write dataset %s: %v", path, err)
	}
}
