package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps engine and lifecycle errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, scoring.ErrComputation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scoring.ErrNoEvaluation), errors.Is(err, rescore.ErrNoConfiguration):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// deferredScoring reports errors that leave a project in DRAFT for the
// background runner instead of rejecting the request.
func deferredScoring(err error) bool {
	return errors.Is(err, scoring.ErrNoEvaluation) || errors.Is(err, rescore.ErrNoConfiguration)
}
