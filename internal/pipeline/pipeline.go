// Package pipeline runs the per-request chain that turns the simulations
// dataset into a rendered response curve for one cell:
// load -> filter -> {curve, optimum} -> render.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/iwvelando/nitrogen-response/internal/artifact"
	"github.com/iwvelando/nitrogen-response/internal/chart"
	"github.com/iwvelando/nitrogen-response/internal/config"
	"github.com/iwvelando/nitrogen-response/internal/dataset"
	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrEmptyCell signals that the requested cell has no rows. It is a no-op
// outcome: nothing is computed and no artifact is written.
var ErrEmptyCell = errors.New("no rows for requested cell")

// Request identifies the chart to produce.
type Request struct {
	CellID int
	Mode   response.Mode
	Prices response.Prices
}

// Settings holds everything a run needs besides the request.
type Settings struct {
	DatasetPath    string
	MaxDatasetSize int64
	Chart          chart.Options
	YieldPath      string
	EconomicPath   string
}

// SettingsFromConfig resolves pipeline settings, filling the fixed artifact
// paths from the chart directory and format when they are not set.
func SettingsFromConfig(conf *config.Configuration) (Settings, error) {
	settings := Settings{
		DatasetPath: conf.Dataset.Path,
		Chart: chart.Options{
			Format: conf.Chart.Format,
			Width:  conf.Chart.Width,
			Height: conf.Chart.Height,
		},
		YieldPath:    conf.Chart.YieldPath,
		EconomicPath: conf.Chart.EconomicPath,
	}
	if settings.YieldPath == "" {
		settings.YieldPath = artifact.DefaultPath(conf.Chart.Dir, response.ModeYield, conf.Chart.Format)
	}
	if settings.EconomicPath == "" {
		settings.EconomicPath = artifact.DefaultPath(conf.Chart.Dir, response.ModeEconomic, conf.Chart.Format)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks that the two artifacts can be published side by side.
// Artifacts are served by file name, so the names must differ.
func (s Settings) Validate() error {
	yieldName := filepath.Base(s.YieldPath)
	economicName := filepath.Base(s.EconomicPath)
	if yieldName == economicName {
		return fmt.Errorf("yield and economic charts share the file name %q (%s, %s)", yieldName, s.YieldPath, s.EconomicPath)
	}
	return nil
}

// ArtifactPath returns the fixed artifact location for mode.
func (s Settings) ArtifactPath(mode response.Mode) string {
	if mode == response.ModeEconomic {
		return s.EconomicPath
	}
	return s.YieldPath
}

// Result carries every intermediate product of a run.
type Result struct {
	Request  Request
	Rows     []dataset.AggregatedRow
	Points   []response.Point
	Curve    []response.CurveSample
	Optimum  response.OptimumPoint
	Artifact *chart.Artifact
}

// Run executes the pipeline against the dataset on fs and returns the
// rendered chart in memory. It returns ErrEmptyCell when the cell has no rows.
func Run(logger *zap.Logger, fs afero.Fs, settings Settings, req Request) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	rows, err := dataset.Load(logger, fs, settings.DatasetPath, settings.MaxDatasetSize)
	if err != nil {
		return nil, err
	}

	cellRows := dataset.FilterCell(rows, req.CellID)
	if len(cellRows) == 0 {
		logger.Debug(fmt.Sprintf("skipping cell %d because it has no rows", req.CellID),
			zap.String("op", "pipeline.Run"),
			zap.String("mode", string(req.Mode)),
		)
		return nil, ErrEmptyCell
	}

	points := response.Points(cellRows, req.Mode, req.Prices)

	curve, err := response.BuildCurve(points)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", req.CellID, err)
	}

	optimum, err := response.FindOptimum(points)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", req.CellID, err)
	}

	rendered, err := chart.Render(curve, optimum, chart.LabelsFor(req.Mode, req.CellID), settings.Chart)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", req.CellID, err)
	}

	return &Result{
		Request:  req,
		Rows:     cellRows,
		Points:   points,
		Curve:    curve,
		Optimum:  optimum,
		Artifact: rendered,
	}, nil
}

// Outcome describes a generated chart. Generated is false for the empty-cell
// no-op, in which case Result is nil and nothing was written.
type Outcome struct {
	Result    *Result
	Path      string
	Generated bool
	Duration  time.Duration
}

// Generator runs the pipeline and persists the artifact at its fixed path.
type Generator struct {
	logger   *zap.Logger
	data     afero.Fs
	store    *artifact.Store
	settings Settings
}

// NewGenerator reads datasets from data and writes artifacts through store.
func NewGenerator(logger *zap.Logger, data afero.Fs, store *artifact.Store, settings Settings) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if data == nil {
		data = afero.NewOsFs()
	}
	if store == nil {
		store = artifact.NewStore(logger, nil)
	}
	return &Generator{logger: logger, data: data, store: store, settings: settings}
}

// Settings returns the settings the generator was built with.
func (g *Generator) Settings() Settings {
	return g.settings
}

// Generate regenerates the artifact for req, overwriting the previous one.
func (g *Generator) Generate(logger *zap.Logger, req Request) (*Outcome, error) {
	if logger == nil {
		logger = g.logger
	}
	start := time.Now()
	path := g.settings.ArtifactPath(req.Mode)

	result, err := Run(logger, g.data, g.settings, req)
	if errors.Is(err, ErrEmptyCell) {
		return &Outcome{Path: path, Generated: false, Duration: time.Since(start)}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := g.store.Write(path, result.Artifact.Data); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	logger.Info("chart generated",
		zap.String("op", "pipeline.Generate"),
		zap.String("mode", string(req.Mode)),
		zap.Int("cell", req.CellID),
		zap.Float64("optimum_nitrogen", result.Optimum.Nitrogen),
		zap.Float64("optimum_response", result.Optimum.Response),
		zap.String("path", path),
		zap.Duration("duration", elapsed),
	)

	return &Outcome{Result: result, Path: path, Generated: true, Duration: elapsed}, nil
}
