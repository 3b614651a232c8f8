package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

type CatalogsHandler struct {
	store     store.Store
	tolerance float64
	logger    *slog.Logger
}

func NewCatalogsHandler(s store.Store, tolerance float64, logger *slog.Logger) *CatalogsHandler {
	return &CatalogsHandler{store: s, tolerance: tolerance, logger: logger}
}

// Get returns every reference catalog.
// GET /api/v1/catalogs
func (h *CatalogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	catalogs, err := h.store.GetCatalogs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if catalogs == nil {
		catalogs = &scoring.Catalogs{}
	}
	writeJSON(w, http.StatusOK, catalogs)
}

// Replace swaps all reference catalogs at once. Existing evaluations keep the
// coefficients they were computed with.
// PUT /api/v1/catalogs
func (h *CatalogsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var catalogs scoring.Catalogs
	if err := json.NewDecoder(r.Body).Decode(&catalogs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := catalogs.Validate(h.tolerance); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.ReplaceCatalogs(r.Context(), catalogs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.logger.Info("catalogs replaced",
		"user", userID(r),
		"conservation_states", len(catalogs.ConservationStates),
		"components", len(catalogs.Components),
	)
	writeJSON(w, http.StatusOK, catalogs)
}
