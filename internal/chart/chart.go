// Package chart renders response curves with their optimum marker into a
// self-contained artifact (HTML page, SVG or PNG).
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	curveColor     = drawing.ColorFromHex("4682b4") // steelblue
	optimumColor   = drawing.ColorFromHex("ff0000")
	referenceColor = drawing.ColorFromHex("008000")
	gridColor      = drawing.ColorFromHex("d3d3d3") // lightgrey
	axisColor      = drawing.ColorFromHex("000000")
)

// ErrNoSamples is returned when there is no curve to draw.
var ErrNoSamples = errors.New("chart: no curve samples to render")

// Labels holds the text drawn on a chart.
type Labels struct {
	Title       string
	XAxis       string
	YAxis       string
	CurveName   string
	OptimumName string
}

// LabelsFor returns the labels used for mode.
func LabelsFor(mode response.Mode, cellID int) Labels {
	title := fmt.Sprintf("Yield response, cell %d", cellID)
	if mode == response.ModeEconomic {
		title = fmt.Sprintf("Economic return, cell %d", cellID)
	}
	return Labels{
		Title:       title,
		XAxis:       constants.NitrogenAxisLabel,
		YAxis:       mode.AxisLabel(),
		CurveName:   mode.CurveName(),
		OptimumName: mode.OptimumName(),
	}
}

// Options controls the artifact format and pixel size.
type Options struct {
	Format string
	Width  int
	Height int
}

// Artifact is a rendered chart held in memory. Callers decide whether and
// where to persist it.
type Artifact struct {
	Format      string
	ContentType string
	Data        []byte
}

// Extension returns the file extension for the artifact, including the dot.
func (a *Artifact) Extension() string {
	return "." + a.Format
}

// Render draws the curve as a line, the optimum as a single marker, and a
// dashed vertical reference segment from (optimum, 0) to the optimum.
func Render(curve []response.CurveSample, optimum response.OptimumPoint, labels Labels, opts Options) (*Artifact, error) {
	if len(curve) == 0 {
		return nil, ErrNoSamples
	}
	opts = opts.withDefaults()

	graph := buildGraph(curve, optimum, labels, opts)

	switch opts.Format {
	case constants.ChartFormatPNG:
		var buf bytes.Buffer
		if err := graph.Render(gochart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("failed to render png chart: %w", err)
		}
		return &Artifact{Format: opts.Format, ContentType: "image/png", Data: buf.Bytes()}, nil

	case constants.ChartFormatSVG:
		var buf bytes.Buffer
		if err := graph.Render(gochart.SVG, &buf); err != nil {
			return nil, fmt.Errorf("failed to render svg chart: %w", err)
		}
		return &Artifact{Format: opts.Format, ContentType: "image/svg+xml", Data: buf.Bytes()}, nil

	case constants.ChartFormatHTML:
		var svg bytes.Buffer
		if err := graph.Render(gochart.SVG, &svg); err != nil {
			return nil, fmt.Errorf("failed to render svg chart: %w", err)
		}
		var page bytes.Buffer
		err := pageTemplate.Execute(&page, pageData{
			Title:   labels.Title,
			Chart:   template.HTML(svg.String()),
			Optimum: optimum,
			Labels:  labels,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to render chart page: %w", err)
		}
		return &Artifact{Format: opts.Format, ContentType: "text/html; charset=utf-8", Data: page.Bytes()}, nil

	default:
		return nil, fmt.Errorf("unsupported chart format %q", opts.Format)
	}
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = constants.DefaultChartFormat
	}
	if o.Width <= 0 {
		o.Width = constants.DefaultChartWidth
	}
	if o.Height <= 0 {
		o.Height = constants.DefaultChartHeight
	}
	return o
}

func buildGraph(curve []response.CurveSample, optimum response.OptimumPoint, labels Labels, opts Options) gochart.Chart {
	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	for i, sample := range curve {
		xs[i] = sample.Nitrogen
		ys[i] = sample.Response
	}

	curveSeries := gochart.ContinuousSeries{
		Name:    labels.CurveName,
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: curveColor,
			StrokeWidth: 3,
		},
	}

	optimumSeries := gochart.ContinuousSeries{
		Name:    labels.OptimumName,
		XValues: []float64{optimum.Nitrogen},
		YValues: []float64{optimum.Response},
		Style: gochart.Style{
			StrokeWidth: gochart.Disabled,
			DotColor:    optimumColor,
			DotWidth:    6,
		},
	}

	referenceSeries := gochart.ContinuousSeries{
		Name:    fmt.Sprintf("N = %g", optimum.Nitrogen),
		XValues: []float64{optimum.Nitrogen, optimum.Nitrogen},
		YValues: []float64{0, optimum.Response},
		Style: gochart.Style{
			StrokeColor:     referenceColor,
			StrokeWidth:     3,
			StrokeDashArray: []float64{6, 4},
		},
	}

	grid := gochart.Style{StrokeColor: gridColor, StrokeWidth: 1}
	axis := gochart.Style{StrokeColor: axisColor, StrokeWidth: 1}

	graph := gochart.Chart{
		Title:  labels.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding:   gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: drawing.ColorWhite,
		},
		Canvas: gochart.Style{FillColor: drawing.ColorWhite},
		XAxis: gochart.XAxis{
			Name:           labels.XAxis,
			Style:          axis,
			GridMajorStyle: grid,
		},
		YAxis: gochart.YAxis{
			Name:           labels.YAxis,
			Style:          axis,
			GridMajorStyle: grid,
		},
		Series: []gochart.Series{curveSeries, optimumSeries, referenceSeries},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return graph
}

type pageData struct {
	Title   string
	Chart   template.HTML
	Optimum response.OptimumPoint
	Labels  Labels
}

var pageTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #ffffff; font-family: sans-serif; }
figure { margin: 0 auto; width: fit-content; }
figcaption { padding: 0.5em 1em; color: #333333; }
</style>
</head>
<body>
<figure>
{{.Chart}}
<figcaption>{{.Labels.OptimumName}}: {{printf "%.2f" .Optimum.Response}} at {{printf "%g" .Optimum.Nitrogen}} kg/ha nitrogen</figcaption>
</figure>
</body>
</html>
`))
