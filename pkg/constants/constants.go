// Package constants provides shared constants for the nitrogen-response application.
package constants

// Curve sampling
const (
	// CurveSamples is the number of evenly spaced points the response curve is sampled at
	CurveSamples = 200

	// MinDistinctNitrogen is the smallest number of distinct nitrogen levels an interpolant can be fitted to
	MinDistinctNitrogen = 2
)

// Dataset column names as they appear in the simulations header
const (
	ColumnNitrogen  = "Nitrogen"
	ColumnYield     = "Yield"
	ColumnRegion    = "region"
	ColumnCellID    = "id_cell"
	ColumnSubCellID = "id_within_cell"
)

// Chart labels
const (
	// NitrogenAxisLabel is the x-axis label shared by both chart modes
	NitrogenAxisLabel = "Nitrogen (kg/ha)"

	// YieldAxisLabel is the y-axis label of the yield curve
	YieldAxisLabel = "Yield (t/ha)"

	// EconomicAxisLabel is the y-axis label of the economic return curve
	EconomicAxisLabel = "Economic Return (USD/ha)"
)

// Chart output formats
const (
	ChartFormatHTML = "html"
	ChartFormatSVG  = "svg"
	ChartFormatPNG  = "png"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "NRESPONSE"
)

// Pipeline defaults
const (
	// DefaultDatasetPath is where the simulations dataset is read from
	DefaultDatasetPath = "static/simulations.csv"

	// DefaultArtifactDir is the directory holding rendered charts
	DefaultArtifactDir = "static/images"

	// YieldArtifactBase is the file name (without extension) of the yield chart
	YieldArtifactBase = "fig"

	// EconomicArtifactBase is the file name (without extension) of the economic chart
	EconomicArtifactBase = "fig2"

	DefaultChartFormat = ChartFormatHTML
	DefaultChartWidth  = 900
	DefaultChartHeight = 600

	// DefaultGrainPrice is the grain price used by the CLI when none is given (USD per t)
	DefaultGrainPrice = 200

	// DefaultNitrogenPrice is the nitrogen price used by the CLI when none is given (USD per kg)
	DefaultNitrogenPrice = 1.5
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultArtifactURLPrefix is the URL prefix under which rendered charts are served
	DefaultArtifactURLPrefix = "/static/images/"

	// DefaultMaxDatasetSizeBytes is the default maximum dataset size read per request (64 MB)
	DefaultMaxDatasetSizeBytes int64 = 64 * 1024 * 1024
)

// Validation constants
const (
	// ResponseTolerance is the tolerance used when comparing response values
	ResponseTolerance = 1e-9

	// DecimalPrecision is the precision for rounding displayed values (2 decimal places)
	DecimalPrecision = 100
)
