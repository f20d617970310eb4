package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/iwvelando/nitrogen-response/internal/artifact"
	"github.com/iwvelando/nitrogen-response/internal/chart"
	"github.com/iwvelando/nitrogen-response/internal/metrics"
	"github.com/iwvelando/nitrogen-response/internal/pipeline"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const simulations = `Nitrogen,Yield,region,id_cell,id_within_cell
0,4.0,north,5,1
50,6.2,north,5,1
100,7.8,north,5,1
150,8.1,north,5,1
200,7.9,north,5,1
0,3.0,south,9,1
`

type fixture struct {
	handler   http.Handler
	artifacts afero.Fs
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, dataset string) fixture {
	t.Helper()

	data := afero.NewMemMapFs()
	if dataset != "" {
		testutil.WriteDataset(t, data, "static/simulations.csv", dataset)
	}
	artifacts := afero.NewMemMapFs()

	settings := pipeline.Settings{
		DatasetPath:  "static/simulations.csv",
		Chart:        chart.Options{Format: constants.ChartFormatHTML, Width: 600, Height: 400},
		YieldPath:    "static/images/fig.html",
		EconomicPath: "static/images/fig2.html",
	}
	generator := pipeline.NewGenerator(zap.NewNop(), data, artifact.NewStore(zap.NewNop(), artifacts), settings)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	handler := NewHandler(zap.NewNop(), generator, Options{
		Version:   "1.2.3",
		Artifacts: artifacts,
		Metrics:   m,
		Gatherer:  reg,
	})
	return fixture{handler: handler, artifacts: artifacts, metrics: m}
}

func (f fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeChart(t *testing.T, rr *httptest.ResponseRecorder) chartResponse {
	t.Helper()
	var resp chartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleYieldSuccess(t *testing.T) {
	f := newFixture(t, simulations)

	for _, target := range []string{"/generate_fig?cell=5", "/api/curves/yield?cell=5"} {
		t.Run(target, func(t *testing.T) {
			rr := f.get(t, target)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if rr.Header().Get("X-Request-Id") == "" {
				t.Error("expected request id header")
			}

			resp := decodeChart(t, rr)
			if resp.URL != "/static/images/fig.html" {
				t.Errorf("unexpected url %q", resp.URL)
			}
			if !resp.Generated {
				t.Error("expected generated artifact")
			}
			if resp.Optimum == nil || resp.Optimum.Nitrogen != 150 || resp.Optimum.Response != 8.1 {
				t.Errorf("unexpected optimum %+v", resp.Optimum)
			}
			if resp.Mode != "yield" || resp.Cell != 5 {
				t.Errorf("unexpected mode/cell %s/%d", resp.Mode, resp.Cell)
			}
		})
	}

	if exists, _ := afero.Exists(f.artifacts, "static/images/fig.html"); !exists {
		t.Fatal("expected yield artifact to be written")
	}
}

func TestHandleEconomicSuccess(t *testing.T) {
	f := newFixture(t, simulations)

	rr := f.get(t, "/generate_eonr_fig?cell=5&grain_price=200&n_price=1.5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeChart(t, rr)
	if resp.URL != "/static/images/fig2.html" {
		t.Errorf("unexpected url %q", resp.URL)
	}
	if resp.Optimum == nil || resp.Optimum.Nitrogen != 100 {
		t.Fatalf("unexpected optimum %+v", resp.Optimum)
	}
	if resp.Optimum.Response < 1409.999 || resp.Optimum.Response > 1410.001 {
		t.Errorf("expected EONR response 1410, got %v", resp.Optimum.Response)
	}

	if got := promtestutil.ToFloat64(f.metrics.Requests().WithLabelValues("economic", metrics.OutcomeGenerated)); got != 1 {
		t.Errorf("expected one generated economic request, got %v", got)
	}
}

func TestHandleEmptyCell(t *testing.T) {
	f := newFixture(t, simulations)

	rr := f.get(t, "/generate_fig?cell=404")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeChart(t, rr)
	if resp.Generated {
		t.Error("expected no artifact for empty cell")
	}
	if resp.Optimum != nil {
		t.Errorf("expected no optimum, got %+v", resp.Optimum)
	}
	if exists, _ := afero.Exists(f.artifacts, "static/images/fig.html"); exists {
		t.Error("empty cell must not write an artifact")
	}
	if got := promtestutil.ToFloat64(f.metrics.Requests().WithLabelValues("yield", metrics.OutcomeEmptyCell)); got != 1 {
		t.Errorf("expected one empty-cell request, got %v", got)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name      string
		dataset   string
		target    string
		status    int
		errSubstr string
	}{
		{"Missing cell", simulations, "/generate_fig", http.StatusBadRequest, "missing required parameter cell"},
		{"Non-integer cell", simulations, "/generate_fig?cell=abc", http.StatusBadRequest, "must be an integer"},
		{"Fractional grain price", simulations, "/generate_eonr_fig?cell=5&grain_price=2.5&n_price=1", http.StatusBadRequest, "grain_price"},
		{"Missing nitrogen price", simulations, "/generate_eonr_fig?cell=5&grain_price=200", http.StatusBadRequest, "n_price"},
		{"Negative nitrogen price", simulations, "/generate_eonr_fig?cell=5&grain_price=200&n_price=-1", http.StatusBadRequest, "nitrogen price"},
		{"NaN nitrogen price", simulations, "/generate_eonr_fig?cell=5&grain_price=200&n_price=NaN", http.StatusBadRequest, "n_price"},
		{"Missing dataset", "", "/generate_fig?cell=5", http.StatusInternalServerError, "failed to read dataset"},
		{"Single nitrogen level", simulations, "/generate_fig?cell=9", http.StatusUnprocessableEntity, "insufficient data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.dataset)
			rr := f.get(t, tt.target)

			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.errSubstr) {
				t.Fatalf("expected error containing %q, got %q", tt.errSubstr, resp["error"])
			}
		})
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	f := newFixture(t, simulations)

	for _, target := range []string{"/generate_fig?cell=5", "/generate_eonr_fig?cell=5", "/api/version"} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status 405, got %d", target, rr.Code)
		}
	}
}

func TestServeArtifact(t *testing.T) {
	f := newFixture(t, simulations)

	if rr := f.get(t, "/static/images/fig.html"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before generation, got %d", rr.Code)
	}

	if rr := f.get(t, "/generate_fig?cell=5"); rr.Code != http.StatusOK {
		t.Fatalf("generation failed: %d %s", rr.Code, rr.Body.String())
	}

	rr := f.get(t, "/static/images/fig.html")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<svg") {
		t.Error("expected chart page with inline svg")
	}

	if rr := f.get(t, "/static/images/other.html"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unpublished artifact, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	f := newFixture(t, simulations)

	rr := f.get(t, "/api/version")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, simulations)
	f.get(t, "/generate_fig?cell=5")
	f.get(t, "/generate_fig")

	rr := f.get(t, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`nitrogen_response_chart_requests_total{mode="yield",outcome="generated"} 1`,
		`nitrogen_response_chart_requests_total{mode="yield",outcome="bad_request"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestParseEconomicRequest(t *testing.T) {
	query := url.Values{}
	query.Set("cell", "12")
	query.Set("grain_price", "180")
	query.Set("n_price", "0.95")

	req, err := ParseEconomicRequest(query)
	if err != nil {
		t.Fatalf("ParseEconomicRequest() error = %v", err)
	}
	expected := EconomicRequest{CellID: 12, GrainPrice: 180, NitrogenPrice: 0.95}
	if req != expected {
		t.Errorf("ParseEconomicRequest() = %+v, expected %+v", req, expected)
	}

	pr := req.pipelineRequest()
	if pr.Prices.Grain != 180 || pr.Prices.Nitrogen != 0.95 || pr.CellID != 12 {
		t.Errorf("unexpected pipeline request %+v", pr)
	}
}
