package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

type EvaluationsHandler struct {
	store   store.Store
	events  *hermes.Publisher
	scorer  *rescore.Scorer
	metrics *metrics.Metrics
	weights scoring.InstitutionalWeights
	logger  *slog.Logger
	now     func() time.Time
}

func NewEvaluationsHandler(s store.Store, h hermes.Client, scorer *rescore.Scorer, m *metrics.Metrics, logger *slog.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{
		store:   s,
		events:  hermes.NewPublisher(h, logger),
		scorer:  scorer,
		metrics: m,
		weights: scorer.Aggregator().Weights(),
		logger:  logger,
		now:     time.Now,
	}
}

// Create computes an evaluation from a submitted form and stores it. SCORED
// projects of the building are reopened and scored against it.
// POST /api/v1/evaluations
func (h *EvaluationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in scoring.EvaluationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if in.EvaluatedBy == "" {
		in.EvaluatedBy = userID(r)
	}

	catalogs, err := h.store.GetCatalogs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if catalogs == nil {
		catalogs = &scoring.Catalogs{}
	}

	ev, err := scoring.EvaluateBuilding(in, *catalogs, h.weights)
	if err != nil {
		h.metrics.ObserveFailure(metrics.KindEvaluation)
		writeError(w, err)
		return
	}
	if err := h.store.CreateEvaluation(r.Context(), ev); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.metrics.ObserveScore(metrics.KindEvaluation, ev.TotalBuildingScore)

	h.logger.Info("evaluation created",
		"evaluation_id", ev.ID,
		"building_code", ev.BuildingCode,
		"total_building_score", ev.TotalBuildingScore,
	)
	filter := store.ProjectFilter{BuildingCode: ev.BuildingCode}
	if _, _, err := h.scorer.Refresh(r.Context(), filter, "evaluation "+ev.ID.String()); err != nil {
		h.logger.Warn("refresh after evaluation failed", "building_code", ev.BuildingCode, "error", err)
	}

	h.events.Emit(r.Context(), hermes.EvaluationCreatedEvent{
		EvaluationID:       ev.ID.String(),
		BuildingCode:       ev.BuildingCode,
		EvaluatedBy:        ev.EvaluatedBy,
		TotalBuildingScore: ev.TotalBuildingScore,
		CreatedAt:          ev.CreatedAt,
	})

	writeJSON(w, http.StatusCreated, ev)
}

// GET /api/v1/evaluations
func (h *EvaluationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EvaluationFilter{BuildingCode: q.Get("building_code")}
	if v := q.Get("reviewed"); v != "" {
		reviewed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reviewed"})
			return
		}
		filter.Reviewed = &reviewed
	}
	var ok bool
	if filter.Limit, filter.Offset, ok = parsePage(w, r); !ok {
		return
	}

	evaluations, err := h.store.ListEvaluations(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if evaluations == nil {
		evaluations = []*scoring.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evaluations)
}

// GET /api/v1/evaluations/{id}
func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid evaluation id"})
		return
	}

	ev, err := h.store.GetEvaluation(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Latest returns the evaluation prioritization currently uses for a building.
// GET /api/v1/buildings/{code}/evaluations/latest
func (h *EvaluationsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	ev, err := h.store.GetLatestEvaluation(r.Context(), code)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no evaluation for building " + code})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Review sets the approver flag on an evaluation.
// POST /api/v1/evaluations/{id}/review
func (h *EvaluationsHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid evaluation id"})
		return
	}

	ev, err := h.store.GetEvaluation(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}

	if err := ev.MarkReviewed(userID(r), h.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.UpdateEvaluationReview(r.Context(), ev); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.logger.Info("evaluation reviewed", "evaluation_id", ev.ID, "reviewed_by", ev.ReviewedBy)
	h.events.Emit(r.Context(), hermes.EvaluationReviewedEvent{
		EvaluationID: ev.ID.String(),
		BuildingCode: ev.BuildingCode,
		ReviewedBy:   ev.ReviewedBy,
		ReviewedAt:   *ev.ReviewedAt,
	})

	writeJSON(w, http.StatusOK, ev)
}

// parsePage reads limit and offset query parameters. It writes a 400 and
// returns false when either is malformed.
func parsePage(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + p.name})
			return 0, 0, false
		}
		*p.dst = n
	}
	return limit, offset, true
}
