// Package server exposes the chart triggers over HTTP. Each request runs the
// full pipeline synchronously and answers with a reference to the artifact.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/nitrogen-response/internal/artifact"
	"github.com/iwvelando/nitrogen-response/internal/dataset"
	"github.com/iwvelando/nitrogen-response/internal/metrics"
	"github.com/iwvelando/nitrogen-response/internal/pipeline"
	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/mathutil"
	"github.com/iwvelando/nitrogen-response/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options configures the handler beyond the generator itself.
type Options struct {
	Version           string
	ArtifactURLPrefix string
	// Artifacts is the filesystem stored charts are served from.
	Artifacts afero.Fs
	Metrics   *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type handler struct {
	logger    *zap.Logger
	generator *pipeline.Generator
	metrics   *metrics.Metrics
	artifacts afero.Fs
	urlPrefix string
	version   string
	// artifact file name -> stored path
	published map[string]string
}

// NewHandler constructs the HTTP handler that serves the chart triggers and artifacts.
func NewHandler(logger *zap.Logger, generator *pipeline.Generator, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	prefix := opts.ArtifactURLPrefix
	if prefix == "" {
		prefix = constants.DefaultArtifactURLPrefix
	}

	artifacts := opts.Artifacts
	if artifacts == nil {
		artifacts = afero.NewOsFs()
	}

	settings := generator.Settings()
	h := &handler{
		logger:    logger,
		generator: generator,
		metrics:   opts.Metrics,
		artifacts: artifacts,
		urlPrefix: prefix,
		version:   version,
		published: map[string]string{
			filepath.Base(settings.YieldPath):    settings.YieldPath,
			filepath.Base(settings.EconomicPath): settings.EconomicPath,
		},
	}

	mux := http.NewServeMux()

	// Yield curve (AONR) triggers
	mux.HandleFunc("/generate_fig", h.handleYield)
	mux.HandleFunc("/api/curves/yield", h.handleYield)

	// Economic return curve (EONR) triggers
	mux.HandleFunc("/generate_eonr_fig", h.handleEconomic)
	mux.HandleFunc("/api/curves/economic", h.handleEconomic)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	// Rendered charts
	mux.HandleFunc(prefix, h.handleArtifact)

	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// YieldRequest is a validated yield-curve trigger.
type YieldRequest struct {
	CellID int
}

// EconomicRequest is a validated economic-curve trigger. GrainPrice is in
// currency per yield unit, NitrogenPrice in currency per nitrogen unit.
type EconomicRequest struct {
	CellID        int
	GrainPrice    int
	NitrogenPrice float64
}

// ParseYieldRequest reads the cell query parameter.
func ParseYieldRequest(query url.Values) (YieldRequest, error) {
	cell, err := requiredInt(query, "cell")
	if err != nil {
		return YieldRequest{}, err
	}
	return YieldRequest{CellID: cell}, nil
}

// ParseEconomicRequest reads the cell, grain_price and n_price query parameters.
func ParseEconomicRequest(query url.Values) (EconomicRequest, error) {
	cell, err := requiredInt(query, "cell")
	if err != nil {
		return EconomicRequest{}, err
	}
	grainPrice, err := requiredInt(query, "grain_price")
	if err != nil {
		return EconomicRequest{}, err
	}
	nitrogenPrice, err := requiredFloat(query, "n_price")
	if err != nil {
		return EconomicRequest{}, err
	}

	if err := validation.ValidatePrices(float64(grainPrice), nitrogenPrice); err != nil {
		return EconomicRequest{}, err
	}
	return EconomicRequest{CellID: cell, GrainPrice: grainPrice, NitrogenPrice: nitrogenPrice}, nil
}

func (r YieldRequest) pipelineRequest() pipeline.Request {
	return pipeline.Request{CellID: r.CellID, Mode: response.ModeYield}
}

func (r EconomicRequest) pipelineRequest() pipeline.Request {
	return pipeline.Request{
		CellID: r.CellID,
		Mode:   response.ModeEconomic,
		Prices: response.Prices{Grain: float64(r.GrainPrice), Nitrogen: r.NitrogenPrice},
	}
}

func requiredInt(query url.Values, name string) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter %s", name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s must be an integer, got %q", name, raw)
	}
	return value, nil
}

func requiredFloat(query url.Values, name string) (float64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter %s", name)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || !mathutil.IsFinite(value) {
		return 0, fmt.Errorf("parameter %s must be a number, got %q", name, raw)
	}
	return value, nil
}

type chartResponse struct {
	URL       string          `json:"url"`
	Generated bool            `json:"generated"`
	Cell      int             `json:"cell"`
	Mode      string          `json:"mode"`
	Optimum   *optimumPayload `json:"optimum,omitempty"`
	Duration  string          `json:"duration"`
}

type optimumPayload struct {
	Nitrogen float64 `json:"nitrogen"`
	Response float64 `json:"response"`
}

func (h *handler) handleYield(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	op := "server.handleYield"
	logger := h.requestLogger(w, op)

	req, err := ParseYieldRequest(r.URL.Query())
	if err != nil {
		h.metrics.Reject(string(response.ModeYield), metrics.OutcomeBadRequest)
		h.respondError(w, logger, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.generate(w, logger, req.pipelineRequest(), op)
}

func (h *handler) handleEconomic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	op := "server.handleEconomic"
	logger := h.requestLogger(w, op)

	req, err := ParseEconomicRequest(r.URL.Query())
	if err != nil {
		h.metrics.Reject(string(response.ModeEconomic), metrics.OutcomeBadRequest)
		h.respondError(w, logger, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.generate(w, logger, req.pipelineRequest(), op)
}

func (h *handler) generate(w http.ResponseWriter, logger *zap.Logger, req pipeline.Request, op string) {
	mode := string(req.Mode)

	outcome, err := h.generator.Generate(logger, req)
	if err != nil {
		status, label := classifyError(err)
		h.metrics.Reject(mode, label)
		h.respondError(w, logger, status, err.Error(), op)
		return
	}

	resp := chartResponse{
		URL:       h.artifactURL(outcome.Path),
		Generated: outcome.Generated,
		Cell:      req.CellID,
		Mode:      mode,
		Duration:  outcome.Duration.String(),
	}

	if !outcome.Generated {
		h.metrics.Observe(mode, metrics.OutcomeEmptyCell, outcome.Duration)
		logger.Info("no rows for cell; chart left unchanged",
			zap.String("op", op),
			zap.Int("cell", req.CellID),
		)
		h.writeJSON(w, logger, http.StatusOK, resp)
		return
	}

	h.metrics.Observe(mode, metrics.OutcomeGenerated, outcome.Duration)
	resp.Optimum = &optimumPayload{
		Nitrogen: outcome.Result.Optimum.Nitrogen,
		Response: outcome.Result.Optimum.Response,
	}
	h.writeJSON(w, logger, http.StatusOK, resp)
}

func classifyError(err error) (int, string) {
	var readErr *dataset.ReadError
	var insufficient *response.InsufficientDataError
	var duplicate *response.DuplicateNitrogenError
	var writeErr *artifact.WriteError

	switch {
	case errors.As(err, &readErr):
		return http.StatusInternalServerError, metrics.OutcomeReadError
	case errors.As(err, &insufficient), errors.As(err, &duplicate):
		return http.StatusUnprocessableEntity, metrics.OutcomeInsufficient
	case errors.As(err, &writeErr):
		return http.StatusInternalServerError, metrics.OutcomeWriteError
	default:
		return http.StatusInternalServerError, metrics.OutcomeError
	}
}

func (h *handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, h.urlPrefix)
	stored, ok := h.published[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	file, err := h.artifacts.Open(stored)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) artifactURL(stored string) string {
	return path.Join(h.urlPrefix, filepath.Base(stored))
}

func (h *handler) requestLogger(w http.ResponseWriter, op string) *zap.Logger {
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)
	logger := h.logger.With(zap.String("request_id", id))
	logger.Debug("chart request received", zap.String("op", op))
	return logger
}

func (h *handler) respondError(w http.ResponseWriter, logger *zap.Logger, status int, msg string, op string) {
	logger.Error("chart request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, logger, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to write JSON response", zap.Error(err))
	}
}
