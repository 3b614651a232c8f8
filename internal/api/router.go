package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Prioritize/internal/config"
	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
	"github.com/MikeSquared-Agency/Prioritize/internal/rescore"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

func NewRouter(s store.Store, h hermes.Client, scorer *rescore.Scorer, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitRPM))

	tolerance := cfg.Scoring.WeightTolerance
	catalogs := NewCatalogsHandler(s, tolerance, logger)
	evaluations := NewEvaluationsHandler(s, h, scorer, m, logger)
	configuration := NewConfigurationHandler(s, h, scorer, m, tolerance, logger)
	projects := NewProjectsHandler(s, h, scorer, cfg.Export.Title, logger)
	explain := NewExplainHandler(s, scorer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(UserIDMiddleware)

		r.Get("/catalogs", catalogs.Get)

		r.Post("/evaluations", evaluations.Create)
		r.Get("/evaluations", evaluations.List)
		r.Get("/evaluations/{id}", evaluations.Get)
		r.Get("/buildings/{code}/evaluations/latest", evaluations.Latest)

		r.Get("/configuration", configuration.Get)
		r.Get("/configuration/warnings", configuration.Warnings)

		r.Post("/projects", projects.Create)
		r.Get("/projects", projects.List)
		r.Get("/projects/ranking", projects.Ranking)
		r.Get("/projects/ranking/export", projects.Export)
		r.Get("/projects/{id}", projects.Get)
		r.Patch("/projects/{id}", projects.Update)
		r.Post("/projects/{id}/finalize", projects.Finalize)
		r.Post("/projects/{id}/reopen", projects.Reopen)

		r.Get("/scoring/explain/{project_id}", explain.Explain)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Put("/catalogs", catalogs.Replace)
			r.Put("/configuration", configuration.Replace)
			r.Post("/evaluations/{id}/review", evaluations.Review)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
