package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

type ConfigurationHandler struct {
	store     store.Store
	events    *hermes.Publisher
	scorer    *rescore.Scorer
	metrics   *metrics.Metrics
	tolerance float64
	logger    *slog.Logger
	now       func() time.Time
}

func NewConfigurationHandler(s store.Store, h hermes.Client, scorer *rescore.Scorer, m *metrics.Metrics, tolerance float64, logger *slog.Logger) *ConfigurationHandler {
	return &ConfigurationHandler{
		store:     s,
		events:    hermes.NewPublisher(h, logger),
		scorer:    scorer,
		metrics:   m,
		tolerance: tolerance,
		logger:    logger,
		now:       time.Now,
	}
}

type configurationResponse struct {
	*store.Configuration
	Warnings []scoring.WeightSumWarning `json:"warnings"`
}

type ReplaceConfigurationRequest struct {
	Version    string              `json:"version,omitempty"`
	Axes       []scoring.Axis      `json:"axes"`
	Criteria   []scoring.Criterion `json:"criteria"`
	Parameters []scoring.Parameter `json:"parameters"`
}

// Get returns the weight hierarchy with its consistency warnings.
// GET /api/v1/configuration
func (h *ConfigurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, wc, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, configurationResponse{Configuration: cfg, Warnings: h.warnings(wc)})
}

// GET /api/v1/configuration/warnings
func (h *ConfigurationHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	cfg, wc, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":  cfg.Version,
		"warnings": h.warnings(wc),
	})
}

// Replace stores a new weight hierarchy. Out-of-range values and dangling
// references are rejected; sum deviations are accepted and reported. Every
// SCORED project is reopened and scored against the new hierarchy before the
// response is written.
// PUT /api/v1/configuration
func (h *ConfigurationHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req ReplaceConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	now := h.now().UTC()
	cfg := &store.Configuration{
		Version:    req.Version,
		Axes:       req.Axes,
		Criteria:   req.Criteria,
		Parameters: req.Parameters,
		UpdatedBy:  userID(r),
		UpdatedAt:  now,
	}
	if cfg.Version == "" {
		cfg.Version = now.Format("20060102T150405.000Z")
	}

	wc, err := cfg.WeightConfig()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.ReplaceConfiguration(r.Context(), cfg); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	warnings := h.warnings(wc)
	for _, wn := range warnings {
		h.metrics.ObserveWarning(string(wn.Level))
	}
	h.logger.Info("configuration replaced",
		"version", cfg.Version,
		"updated_by", cfg.UpdatedBy,
		"axes", len(cfg.Axes),
		"criteria", len(cfg.Criteria),
		"warnings", len(warnings),
	)

	if _, _, err := h.scorer.Refresh(r.Context(), store.ProjectFilter{}, "configuration "+cfg.Version); err != nil {
		h.logger.Warn("refresh after configuration change failed", "version", cfg.Version, "error", err)
	}

	h.events.Emit(r.Context(), hermes.ConfigurationUpdatedEvent{
		Version:   cfg.Version,
		UpdatedBy: cfg.UpdatedBy,
		Axes:      len(cfg.Axes),
		Criteria:  len(cfg.Criteria),
		UpdatedAt: cfg.UpdatedAt,
	})
	if len(warnings) > 0 {
		evt := hermes.ConfigurationWarningEvent{Version: cfg.Version}
		for _, wn := range warnings {
			evt.Warnings = append(evt.Warnings, hermes.WeightWarning{
				Level:    string(wn.Level),
				AxisID:   wn.AxisID,
				Expected: wn.Expected,
				Actual:   wn.Actual,
			})
		}
		h.events.Emit(r.Context(), evt)
	}

	writeJSON(w, http.StatusOK, configurationResponse{Configuration: cfg, Warnings: warnings})
}

func (h *ConfigurationHandler) load(w http.ResponseWriter, r *http.Request) (*store.Configuration, *scoring.WeightConfig, bool) {
	cfg, err := h.store.GetConfiguration(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, nil, false
	}
	if cfg == nil {
		writeError(w, rescore.ErrNoConfiguration)
		return nil, nil, false
	}
	wc, err := cfg.WeightConfig()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, nil, false
	}
	return cfg, wc, true
}

func (h *ConfigurationHandler) warnings(wc *scoring.WeightConfig) []scoring.WeightSumWarning {
	warnings := wc.Warnings(h.tolerance)
	if warnings == nil {
		warnings = []scoring.WeightSumWarning{}
	}
	return warnings
}
