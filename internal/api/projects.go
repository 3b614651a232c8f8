package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/export"
	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

type ProjectsHandler struct {
	store       store.Store
	events      *hermes.Publisher
	scorer      *rescore.Scorer
	exportTitle string
	logger      *slog.Logger
	now         func() time.Time
}

func NewProjectsHandler(s store.Store, h hermes.Client, scorer *rescore.Scorer, exportTitle string, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{store: s, events: hermes.NewPublisher(h, logger), scorer: scorer, exportTitle: exportTitle, logger: logger, now: time.Now}
}

// CreateProjectRequest carries the planner's inputs. Any total_score sent by
// the client is not decoded; the score is always derived.
type CreateProjectRequest struct {
	Name         string               `json:"name"`
	BuildingType scoring.BuildingType `json:"building_type"`
	BuildingCode string               `json:"building_code,omitempty"`
	Selections   map[string]string    `json:"selected_parameter_by_criterion"`
}

type UpdateProjectRequest struct {
	Name       *string           `json:"name,omitempty"`
	Selections map[string]string `json:"selected_parameter_by_criterion,omitempty"`
}

// Create stores a project and scores it right away. Projects whose building
// has no evaluation yet, or that arrive before any weight configuration, stay
// DRAFT until the background runner can score them.
// POST /api/v1/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := scoring.NewProject(req.Name, req.BuildingType, req.BuildingCode, req.Selections)
	if err != nil {
		writeError(w, err)
		return
	}
	p.CreatedBy = userID(r)

	h.save(w, r, p, saveCreate, http.StatusCreated)
}

// GET /api/v1/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := projectFilter(w, r)
	if !ok {
		return
	}
	if filter.Limit, filter.Offset, ok = parsePage(w, r); !ok {
		return
	}

	projects, err := h.store.ListProjects(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if projects == nil {
		projects = []*scoring.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GET /api/v1/projects/{id}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update renames a project or replaces its selections. New selections start a
// new revision that is scored again before the response is written.
// PATCH /api/v1/projects/{id}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if p.Status == scoring.StatusFinal {
		writeError(w, fmt.Errorf("project %s is final: %w", p.ID, scoring.ErrInvalidTransition))
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
		if err := p.Validate(); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Selections != nil {
		if err := p.UpdateSelections(req.Selections); err != nil {
			writeError(w, err)
			return
		}
	}

	h.save(w, r, p, saveUpdate, http.StatusOK)
}

// Finalize freezes a scored project.
// POST /api/v1/projects/{id}/finalize
func (h *ProjectsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := p.Finalize(h.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.UpdateProject(r.Context(), p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	total, _ := p.TotalScore()
	h.logger.Info("project finalized", "project_id", p.ID, "total", total, "user", userID(r))
	h.events.Emit(r.Context(), hermes.ProjectFinalizedEvent{
		ProjectID:   p.ID.String(),
		Total:       total,
		FinalizedBy: userID(r),
		FinalizedAt: *p.FinalizedAt,
	})

	writeJSON(w, http.StatusOK, p)
}

// Reopen starts a new revision of a SCORED or FINAL project and scores it
// against the current weights. A revision the current weights cannot score is
// still stored as DRAFT with the reason, so the planner can fix its selections.
// POST /api/v1/projects/{id}/reopen
func (h *ProjectsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	if p.Status == scoring.StatusDraft {
		writeError(w, fmt.Errorf("project %s is already draft: %w", p.ID, scoring.ErrInvalidTransition))
		return
	}
	if err := p.Reopen(); err != nil {
		writeError(w, err)
		return
	}

	if !h.save(w, r, p, saveReopen, http.StatusOK) {
		return
	}
	h.logger.Info("project reopened", "project_id", p.ID, "revision", p.Revision, "user", userID(r))
	h.events.Emit(r.Context(), hermes.ProjectReopenedEvent{
		ProjectID: p.ID.String(),
		Revision:  p.Revision,
		Reason:    "reopened by " + userID(r),
	})
}

// Ranking orders every scored and final project by total score.
// GET /api/v1/projects/ranking
func (h *ProjectsHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.ranking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Export renders the ranking as a workbook or a printable report.
// GET /api/v1/projects/ranking/export?format=xlsx|pdf
func (h *ProjectsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "pdf" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be xlsx or pdf"})
		return
	}

	entries, ok := h.ranking(w, r)
	if !ok {
		return
	}

	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case "pdf":
		body, err = export.BuildRankingPDF(h.exportTitle, entries, h.now())
		contentType = "application/pdf"
	default:
		body, err = export.BuildRankingXLSX(entries)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		h.logger.Error("ranking export failed", "format", format, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ranking.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ProjectsHandler) ranking(w http.ResponseWriter, r *http.Request) ([]scoring.RankEntry, bool) {
	filter, ok := projectFilter(w, r)
	if !ok {
		return nil, false
	}
	projects, err := store.ListAllProjects(r.Context(), h.store, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	entries := scoring.RankProjects(projects)
	if entries == nil {
		entries = []scoring.RankEntry{}
	}
	return entries, true
}

type saveMode int

const (
	saveCreate saveMode = iota
	saveUpdate
	saveReopen
)

// save scores a DRAFT project before it is persisted, so invalid selections
// never reach the store on create or update. Scoring that is only waiting on
// missing data is stored in ScoringError and retried by the runner. A reopened
// revision is stored whatever the scoring outcome. save reports whether the
// project was persisted.
func (h *ProjectsHandler) save(w http.ResponseWriter, r *http.Request, p *scoring.Project, mode saveMode, status int) bool {
	ctx := r.Context()

	var (
		result     scoring.ProjectScoreResult
		scoringErr error
	)
	if p.Status == scoring.StatusDraft {
		p.ScoringError = ""
		var err error
		result, err = h.scorer.Compute(ctx, p)
		if err != nil {
			if mode != saveReopen && !deferredScoring(err) {
				writeError(w, err)
				return false
			}
			scoringErr = err
			p.MarkUnscorable(err)
		}
	}

	if err := h.persist(ctx, p, mode == saveCreate); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return false
	}

	switch {
	case p.Status != scoring.StatusDraft:
	case scoringErr != nil:
		h.logger.Info("project scoring deferred", "project_id", p.ID, "reason", scoringErr)
	default:
		if err := h.scorer.Apply(ctx, p, result); err != nil {
			writeError(w, err)
			return false
		}
	}

	writeJSON(w, status, p)
	return true
}

func (h *ProjectsHandler) persist(ctx context.Context, p *scoring.Project, create bool) error {
	if !create {
		return h.store.UpdateProject(ctx, p)
	}
	if err := h.store.CreateProject(ctx, p); err != nil {
		return err
	}
	h.logger.Info("project created", "project_id", p.ID, "name", p.Name, "building_type", p.BuildingType)
	h.events.Emit(ctx, hermes.ProjectCreatedEvent{
		ProjectID:    p.ID.String(),
		Name:         p.Name,
		BuildingType: string(p.BuildingType),
		BuildingCode: p.BuildingCode,
		CreatedBy:    p.CreatedBy,
	})
	return nil
}

func (h *ProjectsHandler) load(w http.ResponseWriter, r *http.Request) (*scoring.Project, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project id"})
		return nil, false
	}
	p, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return nil, false
	}
	return p, true
}

func projectFilter(w http.ResponseWriter, r *http.Request) (store.ProjectFilter, bool) {
	q := r.URL.Query()
	filter := store.ProjectFilter{BuildingCode: q.Get("building_code")}
	if s := q.Get("status"); s != "" {
		status := scoring.ProjectStatus(s)
		if status != scoring.StatusDraft && status != scoring.StatusScored && status != scoring.StatusFinal {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return filter, false
		}
		filter.Status = &status
	}
	if t := q.Get("building_type"); t != "" {
		bt := scoring.BuildingType(t)
		if !bt.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid building_type"})
			return filter, false
		}
		filter.BuildingType = &bt
	}
	return filter, true
}
