// Package dataset loads the crop simulation table, coerces its numeric
// columns, and averages yield per (nitrogen, region, cell, sub-cell) group.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/mathutil"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// SimulationRecord is a single simulated outcome as read from the dataset.
type SimulationRecord struct {
	Nitrogen  float64
	Region    string
	CellID    int
	SubCellID int
	Yield     float64
}

// AggregatedRow holds the mean yield of every record sharing the same
// nitrogen level, region, cell and sub-cell.
type AggregatedRow struct {
	Nitrogen  float64
	Region    string
	CellID    int
	SubCellID int
	MeanYield float64
}

// Stats summarizes how many data rows were read and how many were dropped
// because a required value could not be coerced.
type Stats struct {
	Rows    int
	Dropped int
}

// ReadError reports a dataset that is missing, unreadable or malformed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to read dataset: %v", e.Err)
	}
	return fmt.Sprintf("failed to read dataset %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ErrTooLarge is wrapped in a ReadError when the dataset exceeds the configured size limit.
var ErrTooLarge = errors.New("dataset exceeds size limit")

// Load reads the dataset at path from fs and returns its aggregated rows in
// group discovery order. A maxSize of zero or less disables the size check.
func Load(logger *zap.Logger, fs afero.Fs, path string, maxSize int64) ([]AggregatedRow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := fs.Stat(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ReadError{Path: path, Err: errors.New("path is a directory")}
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, &ReadError{Path: path, Err: fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), maxSize)}
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close dataset",
				zap.String("op", "dataset.Load"),
				zap.String("path", path),
				zap.Error(closeErr),
			)
		}
	}()

	records, stats, err := ReadRecords(file)
	if err != nil {
		var readErr *ReadError
		if errors.As(err, &readErr) {
			readErr.Path = path
			return nil, readErr
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	rows := Aggregate(records)
	logger.Debug("dataset loaded",
		zap.String("op", "dataset.Load"),
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("dropped", stats.Dropped),
		zap.Int("groups", len(rows)),
	)
	return rows, nil
}

// ReadRecords parses CSV simulation data. Columns are located by header name
// so their order does not matter and extra columns are ignored. Values that
// cannot be coerced to numbers are treated as missing, and rows missing any
// grouping key or the yield are dropped rather than failing the read.
func ReadRecords(r io.Reader) ([]SimulationRecord, Stats, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Stats{}, &ReadError{Err: errors.New("dataset is empty")}
		}
		return nil, Stats{}, &ReadError{Err: err}
	}

	columns, err := locateColumns(header)
	if err != nil {
		return nil, Stats{}, &ReadError{Err: err}
	}

	var records []SimulationRecord
	var stats Stats
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, &ReadError{Err: err}
		}

		stats.Rows++
		record, ok := columns.parse(fields)
		if !ok {
			stats.Dropped++
			continue
		}
		records = append(records, record)
	}

	return records, stats, nil
}

// Aggregate groups records by (nitrogen, region, cell, sub-cell) and averages
// their yield. Rows come back in the order each group was first seen.
func Aggregate(records []SimulationRecord) []AggregatedRow {
	type groupKey struct {
		nitrogen  float64
		region    string
		cellID    int
		subCellID int
	}
	type accumulator struct {
		sum   float64
		count int
	}

	index := make(map[groupKey]int)
	var keys []groupKey
	var sums []accumulator

	for _, record := range records {
		key := groupKey{
			nitrogen:  record.Nitrogen,
			region:    record.Region,
			cellID:    record.CellID,
			subCellID: record.SubCellID,
		}
		i, ok := index[key]
		if !ok {
			i = len(keys)
			index[key] = i
			keys = append(keys, key)
			sums = append(sums, accumulator{})
		}
		sums[i].sum += record.Yield
		sums[i].count++
	}

	rows := make([]AggregatedRow, len(keys))
	for i, key := range keys {
		rows[i] = AggregatedRow{
			Nitrogen:  key.nitrogen,
			Region:    key.region,
			CellID:    key.cellID,
			SubCellID: key.subCellID,
			MeanYield: sums[i].sum / float64(sums[i].count),
		}
	}
	return rows
}

// FilterCell returns the rows belonging to cellID, preserving their order.
// An absent cell yields an empty slice.
func FilterCell(rows []AggregatedRow, cellID int) []AggregatedRow {
	filtered := make([]AggregatedRow, 0)
	for _, row := range rows {
		if row.CellID == cellID {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

type columnIndex struct {
	nitrogen  int
	yield     int
	region    int
	cellID    int
	subCellID int
}

// last is the highest field position a row must reach.
func (c columnIndex) last() int {
	return max(c.nitrogen, c.yield, c.region, c.cellID, c.subCellID)
}

func locateColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	columns := columnIndex{
		nitrogen:  lookup(constants.ColumnNitrogen),
		yield:     lookup(constants.ColumnYield),
		region:    lookup(constants.ColumnRegion),
		cellID:    lookup(constants.ColumnCellID),
		subCellID: lookup(constants.ColumnSubCellID),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c columnIndex) parse(fields []string) (SimulationRecord, bool) {
	if len(fields) <= c.last() {
		return SimulationRecord{}, false
	}
	nitrogen, ok := coerceFloat(fields[c.nitrogen])
	if !ok {
		return SimulationRecord{}, false
	}
	yield, ok := coerceFloat(fields[c.yield])
	if !ok {
		return SimulationRecord{}, false
	}
	cellID, ok := coerceInt(fields[c.cellID])
	if !ok {
		return SimulationRecord{}, false
	}
	subCellID, ok := coerceInt(fields[c.subCellID])
	if !ok {
		return SimulationRecord{}, false
	}
	region := strings.TrimSpace(fields[c.region])
	if region == "" {
		return SimulationRecord{}, false
	}

	return SimulationRecord{
		Nitrogen:  nitrogen,
		Region:    region,
		CellID:    cellID,
		SubCellID: subCellID,
		Yield:     yield,
	}, true
}

// coerceFloat converts a raw cell to a number. Anything unparseable, NaN or
// infinite counts as missing.
func coerceFloat(raw string) (float64, bool) {
	value, err := cast.ToFloat64E(strings.TrimSpace(raw))
	if err != nil || !mathutil.IsFinite(value) {
		return 0, false
	}
	return value, true
}

// coerceInt accepts integral numbers written either as "5" or "5.0".
func coerceInt(raw string) (int, bool) {
	value, ok := coerceFloat(raw)
	if !ok || !mathutil.IsIntegral(value) {
		return 0, false
	}
	return int(value), true
}
