//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	truncate := func() {
		for _, table := range []string{
			"projects", "building_evaluations",
			"weight_parameters", "weight_criteria", "weight_axes", "weight_configuration",
			"serviceability_states", "components", "conservation_states",
		} {
			_, _ = s.pool.Exec(ctx, "TRUNCATE "+table+" CASCADE")
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		s.Close()
	})

	return s
}

func TestReplaceAndGetCatalogs(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	catalogs := scoring.Catalogs{
		ConservationStates: []scoring.ConservationState{
			{ID: "REGULAR", Label: "Regular", DepreciationCoefficient: 60},
			{ID: "BUENO", Label: "Bueno", DepreciationCoefficient: 80},
		},
		Components: []scoring.Component{
			{ID: "structure", Name: "Estructura", NominalWeight: 60},
			{ID: "roof", Name: "Cubierta", NominalWeight: 40},
		},
		Serviceability: scoring.ServiceabilityCatalogs{
			Functionality: []scoring.ServiceabilityState{{ID: "F-HIGH", Label: "Adecuada", Points: 0.5}},
			Normative:     []scoring.ServiceabilityState{{ID: "N-OK", Label: "Cumple", Points: 0.3}},
		},
	}
	if err := s.ReplaceCatalogs(ctx, catalogs); err != nil {
		t.Fatalf("ReplaceCatalogs failed: %v", err)
	}

	got, err := s.GetCatalogs(ctx)
	if err != nil {
		t.Fatalf("GetCatalogs failed: %v", err)
	}
	if len(got.ConservationStates) != 2 || got.ConservationStates[0].ID != "REGULAR" {
		t.Errorf("expected catalog order preserved, got %+v", got.ConservationStates)
	}
	if len(got.Components) != 2 || got.Components[1].NominalWeight != 40 {
		t.Errorf("unexpected components %+v", got.Components)
	}
	if len(got.Serviceability.Functionality) != 1 || len(got.Serviceability.Normative) != 1 {
		t.Errorf("unexpected serviceability catalogs %+v", got.Serviceability)
	}
}

func TestReplaceAndGetConfiguration(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	cfg, err := s.GetConfiguration(ctx)
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if cfg != nil {
		t.Fatal("expected nil configuration on empty database")
	}

	in := &Configuration{
		Version:    "v1",
		Axes:       []scoring.Axis{{ID: "FUN", Name: "FUNCIONAL", WeightPercent: 100}},
		Criteria:   []scoring.Criterion{{ID: "c1", AxisID: "FUN", Name: "Capacidad", WeightPercent: 100}},
		Parameters: []scoring.Parameter{{ID: "p1", CriterionID: "c1", Label: "Alta", Value: 0.75}},
		UpdatedBy:  "admin",
	}
	if err := s.ReplaceConfiguration(ctx, in); err != nil {
		t.Fatalf("ReplaceConfiguration failed: %v", err)
	}
	if in.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	in.Version = "v2"
	in.Parameters[0].Value = 0.5
	if err := s.ReplaceConfiguration(ctx, in); err != nil {
		t.Fatalf("second ReplaceConfiguration failed: %v", err)
	}

	got, err := s.GetConfiguration(ctx)
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got.Version != "v2" || got.UpdatedBy != "admin" {
		t.Errorf("unexpected configuration header %+v", got)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Value != 0.5 {
		t.Errorf("expected replaced parameter value 0.5, got %+v", got.Parameters)
	}
}

func TestEvaluationLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	older := &scoring.Evaluation{
		BuildingCode:       "ED-12",
		PrincipalStateID:   "REGULAR",
		Principal:          scoring.DepreciationInput{Age: 10, UsefulLifeYears: 50, ConservationCoefficient: 60},
		TotalBuildingScore: 20,
	}
	if err := s.CreateEvaluation(ctx, older); err != nil {
		t.Fatalf("CreateEvaluation failed: %v", err)
	}
	if older.ID == uuid.Nil {
		t.Fatal("expected evaluation ID after create")
	}

	newer := &scoring.Evaluation{
		BuildingCode:       "ED-12",
		PrincipalStateID:   "BUENO",
		Principal:          scoring.DepreciationInput{Age: 11, UsefulLifeYears: 50, ConservationCoefficient: 80},
		Remodeling:         &scoring.RemodelingInput{DepreciationInput: scoring.DepreciationInput{Age: 2, UsefulLifeYears: 40, ConservationCoefficient: 100}, Percentage: 20},
		TotalBuildingScore: 25.49,
	}
	if err := s.CreateEvaluation(ctx, newer); err != nil {
		t.Fatalf("CreateEvaluation failed: %v", err)
	}

	latest, err := s.GetLatestEvaluation(ctx, "ED-12")
	if err != nil {
		t.Fatalf("GetLatestEvaluation failed: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("expected latest evaluation %s, got %+v", newer.ID, latest)
	}
	if latest.Remodeling == nil || latest.Remodeling.Percentage != 20 {
		t.Errorf("expected remodeling round-trip, got %+v", latest.Remodeling)
	}

	missing, err := s.GetLatestEvaluation(ctx, "ED-99")
	if err != nil {
		t.Fatalf("GetLatestEvaluation failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for building without evaluations")
	}

	if err := latest.MarkReviewed("approver", time.Now()); err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	if err := s.UpdateEvaluationReview(ctx, latest); err != nil {
		t.Fatalf("UpdateEvaluationReview failed: %v", err)
	}
	reviewed := true
	list, err := s.ListEvaluations(ctx, EvaluationFilter{Reviewed: &reviewed})
	if err != nil {
		t.Fatalf("ListEvaluations failed: %v", err)
	}
	if len(list) != 1 || list[0].ReviewedBy != "approver" {
		t.Errorf("expected one reviewed evaluation, got %d", len(list))
	}
}

func TestProjectLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	p, err := scoring.NewProject("Laboratorios", scoring.BuildingNew, "", map[string]string{"c1": "p1"})
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	p.CreatedBy = "planner"
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	drafts, err := s.GetDraftProjects(ctx)
	if err != nil {
		t.Fatalf("GetDraftProjects failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}

	p.MarkUnscorable(scoring.ErrNoEvaluation)
	if err := s.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	pending, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if pending.ScoringError != scoring.ErrNoEvaluation.Error() {
		t.Errorf("expected scoring error to round-trip, got %q", pending.ScoringError)
	}

	if err := p.ApplyScore(scoring.ProjectScoreResult{ProjectID: p.ID, ConfigVersion: "v1", Total: 30}, time.Now()); err != nil {
		t.Fatalf("ApplyScore failed: %v", err)
	}
	if err := s.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Status != scoring.StatusScored {
		t.Errorf("expected SCORED, got %s", got.Status)
	}
	if got.ScoringError != "" {
		t.Errorf("expected scoring error cleared, got %q", got.ScoringError)
	}
	if total, ok := got.TotalScore(); !ok || total != 30 {
		t.Errorf("expected total 30, got %v (%v)", total, ok)
	}
	if got.Selections["c1"] != "p1" {
		t.Errorf("expected selections round-trip, got %v", got.Selections)
	}

	status := scoring.StatusScored
	scored, err := s.ListProjects(ctx, ProjectFilter{Status: &status})
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(scored) != 1 {
		t.Errorf("expected 1 scored project, got %d", len(scored))
	}

	none, err := s.GetProject(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if none != nil {
		t.Error("expected nil for unknown project")
	}
}
