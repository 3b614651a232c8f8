package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

type ExplainHandler struct {
	store  store.Store
	scorer *rescore.Scorer
}

func NewExplainHandler(s store.Store, scorer *rescore.Scorer) *ExplainHandler {
	return &ExplainHandler{store: s, scorer: scorer}
}

// Explain returns the scoring breakdown for a project. Unscored drafts get a
// preview computed against the current configuration; nothing is stored.
// GET /api/v1/scoring/explain/{project_id}
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "project_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project_id"})
		return
	}

	p, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}

	resp := map[string]interface{}{
		"project_id": p.ID,
		"status":     p.Status,
		"revision":   p.Revision,
		"preview":    p.Score == nil,
	}

	score := p.Score
	if score == nil {
		result, err := h.scorer.Compute(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		result.ProjectID = p.ID
		score = &result
	}
	resp["score"] = score

	writeJSON(w, http.StatusOK, resp)
}
