package rescore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock implementations

type fakeStore struct {
	mu          sync.Mutex
	config      *store.Configuration
	evaluations []*scoring.Evaluation
	projects    map[uuid.UUID]*scoring.Project
	order       []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: make(map[uuid.UUID]*scoring.Project)}
}

func (f *fakeStore) GetCatalogs(_ context.Context) (*scoring.Catalogs, error) {
	return &scoring.Catalogs{}, nil
}
func (f *fakeStore) ReplaceCatalogs(_ context.Context, _ scoring.Catalogs) error { return nil }
func (f *fakeStore) GetConfiguration(_ context.Context) (*store.Configuration, error) {
	return f.config, nil
}
func (f *fakeStore) ReplaceConfiguration(_ context.Context, cfg *store.Configuration) error {
	f.config = cfg
	return nil
}
func (f *fakeStore) CreateEvaluation(_ context.Context, e *scoring.Evaluation) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	f.evaluations = append(f.evaluations, e)
	return nil
}
func (f *fakeStore) GetEvaluation(_ context.Context, id uuid.UUID) (*scoring.Evaluation, error) {
	for _, e := range f.evaluations {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) GetLatestEvaluation(_ context.Context, code string) (*scoring.Evaluation, error) {
	var latest *scoring.Evaluation
	for _, e := range f.evaluations {
		if e.BuildingCode == code {
			latest = e
		}
	}
	return latest, nil
}
func (f *fakeStore) ListEvaluations(_ context.Context, _ store.EvaluationFilter) ([]*scoring.Evaluation, error) {
	return f.evaluations, nil
}
func (f *fakeStore) UpdateEvaluationReview(_ context.Context, _ *scoring.Evaluation) error { return nil }
func (f *fakeStore) CreateProject(_ context.Context, p *scoring.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	f.projects[p.ID] = &cp
	f.order = append(f.order, p.ID)
	return nil
}
func (f *fakeStore) GetProject(_ context.Context, id uuid.UUID) (*scoring.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
func (f *fakeStore) ListProjects(_ context.Context, filter store.ProjectFilter) ([]*scoring.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*scoring.Project
	for _, id := range f.order {
		p := f.projects[id]
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.BuildingCode != "" && p.BuildingCode != filter.BuildingCode {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
func (f *fakeStore) UpdateProject(_ context.Context, p *scoring.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.UpdatedAt = time.Now()
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}
func (f *fakeStore) GetDraftProjects(ctx context.Context) ([]*scoring.Project, error) {
	status := scoring.StatusDraft
	return f.ListProjects(ctx, store.ProjectFilter{Status: &status})
}
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) mustGet(t *testing.T, id uuid.UUID) *scoring.Project {
	t.Helper()
	p, _ := f.GetProject(context.Background(), id)
	if p == nil {
		t.Fatalf("project %s not stored", id)
	}
	return p
}

type published struct {
	subject string
	payload []byte
}

type mockHermes struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]func(string, []byte)
}

func (m *mockHermes) Publish(_ context.Context, subject string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{subject, payload})
	return nil
}
func (m *mockHermes) Subscribe(subject string, handler func(string, []byte)) error {
	if m.handlers == nil {
		m.handlers = make(map[string]func(string, []byte))
	}
	m.handlers[subject] = handler
	return nil
}
func (m *mockHermes) Close() {}

func (m *mockHermes) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.published {
		out = append(out, p.subject)
	}
	return out
}

func testConfiguration() *store.Configuration {
	return &store.Configuration{
		Version:  "v1",
		Axes:     []scoring.Axis{{ID: "FUN", Name: "FUNCIONAL", WeightPercent: 40}},
		Criteria: []scoring.Criterion{{ID: "c1", AxisID: "FUN", Name: "Capacidad", WeightPercent: 40}},
		Parameters: []scoring.Parameter{
			{ID: "p-high", CriterionID: "c1", Label: "Alta", Value: 0.75},
			{ID: "p-low", CriterionID: "c1", Label: "Baja", Value: 0.25},
		},
	}
}

func newTestRunner(t *testing.T, s *fakeStore, h *mockHermes) *Runner {
	t.Helper()
	agg := scoring.NewAggregator(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	var hc hermes.Client
	if h != nil {
		hc = h
	}
	sc := NewScorer(s, hc, agg, nil, discardLogger())
	return New(sc, hc, nil, 10*time.Millisecond, discardLogger())
}

func createProject(t *testing.T, s *fakeStore, name string, bt scoring.BuildingType, code, param string) *scoring.Project {
	t.Helper()
	p, err := scoring.NewProject(name, bt, code, map[string]string{"c1": param})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestRunOnceScoresDrafts(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	h := &mockHermes{}
	r := newTestRunner(t, s, h)

	created := createProject(t, s, "Laboratorios", scoring.BuildingNew, "", "p-high")

	if n := r.RunOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 scored project, got %d", n)
	}
	p := s.mustGet(t, created.ID)
	if p.Status != scoring.StatusScored {
		t.Fatalf("expected SCORED, got %s", p.Status)
	}
	total, ok := p.TotalScore()
	if !ok || math.Abs(total-30) > 1e-9 {
		t.Errorf("expected total 30, got %f", total)
	}
	if p.Score.ConfigVersion != "v1" {
		t.Errorf("expected config version v1, got %s", p.Score.ConfigVersion)
	}

	subjects := h.subjects()
	if len(subjects) != 1 || subjects[0] != hermes.SubjectProjectScored(p.ID.String()) {
		t.Errorf("expected scored event, got %v", subjects)
	}

	if n := r.RunOnce(context.Background()); n != 0 {
		t.Errorf("expected no drafts left, scored %d", n)
	}
}

func TestRunOnceWithoutConfiguration(t *testing.T) {
	s := newFakeStore()
	r := newTestRunner(t, s, nil)
	created := createProject(t, s, "Laboratorios", scoring.BuildingNew, "", "p-high")

	if n := r.RunOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing scored, got %d", n)
	}
	if p := s.mustGet(t, created.ID); p.Status != scoring.StatusDraft {
		t.Errorf("expected project to remain DRAFT, got %s", p.Status)
	}
}

func TestRunOnceExistingBuildingNeedsEvaluation(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)

	created := createProject(t, s, "Rehabilitación", scoring.BuildingExisting, "ED-12", "p-high")

	if n := r.RunOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing scored without evaluation, got %d", n)
	}
	if p := s.mustGet(t, created.ID); p.Status != scoring.StatusDraft {
		t.Fatalf("expected DRAFT, got %s", p.Status)
	}

	ev := &scoring.Evaluation{
		BuildingCode:        "ED-12",
		Depreciation:        scoring.DepreciationResult{Total: 0.6},
		Components:          scoring.ComponentResult{Total: 0.5},
		ServiceabilityScore: 0.25,
	}
	_ = s.CreateEvaluation(context.Background(), ev)

	if n := r.RunOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 scored project, got %d", n)
	}
	p := s.mustGet(t, created.ID)
	// 30 + 0.6*5 + 0.5*10 + 0.25*20
	total, _ := p.TotalScore()
	if math.Abs(total-43) > 1e-9 {
		t.Errorf("expected total 43, got %f", total)
	}
	if p.Score.EvaluationID == nil || *p.Score.EvaluationID != ev.ID {
		t.Error("expected score to reference the evaluation")
	}
}

func TestRefreshReopensAndRescoresBuilding(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	_ = s.CreateEvaluation(context.Background(), &scoring.Evaluation{BuildingCode: "ED-12"})
	_ = s.CreateEvaluation(context.Background(), &scoring.Evaluation{BuildingCode: "ED-40"})
	h := &mockHermes{}
	r := newTestRunner(t, s, h)

	scored := createProject(t, s, "A", scoring.BuildingExisting, "ED-12", "p-high")
	final := createProject(t, s, "B", scoring.BuildingExisting, "ED-12", "p-low")
	other := createProject(t, s, "C", scoring.BuildingExisting, "ED-40", "p-low")
	if n := r.RunOnce(context.Background()); n != 3 {
		t.Fatalf("expected 3 scored, got %d", n)
	}
	f := s.mustGet(t, final.ID)
	if err := f.Finalize(time.Now()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	_ = s.UpdateProject(context.Background(), f)

	ev := &scoring.Evaluation{BuildingCode: "ED-12", ServiceabilityScore: 1}
	_ = s.CreateEvaluation(context.Background(), ev)

	reopened, rescored, err := r.scorer.Refresh(context.Background(), store.ProjectFilter{BuildingCode: "ED-12"}, "evaluation e2")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if reopened != 1 || rescored != 1 {
		t.Fatalf("expected 1 reopened and 1 rescored, got %d and %d", reopened, rescored)
	}
	p := s.mustGet(t, scored.ID)
	if p.Status != scoring.StatusScored || p.Revision != 2 {
		t.Errorf("expected SCORED revision 2, got %s revision %d", p.Status, p.Revision)
	}
	if p.Score.EvaluationID == nil || *p.Score.EvaluationID != ev.ID {
		t.Error("expected score to reference the new evaluation")
	}
	if p := s.mustGet(t, final.ID); p.Status != scoring.StatusFinal || p.Revision != 1 {
		t.Errorf("FINAL project must not be reopened, got %s revision %d", p.Status, p.Revision)
	}
	if p := s.mustGet(t, other.ID); p.Status != scoring.StatusScored || p.Revision != 1 {
		t.Errorf("project of another building must stay untouched, got %s revision %d", p.Status, p.Revision)
	}

	var reopenedEvt, scoredEvt bool
	for _, subj := range h.subjects() {
		switch subj {
		case hermes.SubjectProjectReopened(scored.ID.String()):
			reopenedEvt = true
		case hermes.SubjectProjectScored(scored.ID.String()):
			scoredEvt = true
		}
	}
	if !reopenedEvt || !scoredEvt {
		t.Errorf("expected reopened and scored events, got %v", h.subjects())
	}
}

func TestRefreshAllScoredWithoutBroker(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)

	a := createProject(t, s, "A", scoring.BuildingNew, "", "p-high")
	b := createProject(t, s, "B", scoring.BuildingNew, "", "p-low")
	r.RunOnce(context.Background())

	s.config.Version = "v2"
	reopened, rescored, err := r.scorer.Refresh(context.Background(), store.ProjectFilter{}, "configuration v2")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if reopened != 2 || rescored != 2 {
		t.Fatalf("expected 2 reopened and rescored, got %d and %d", reopened, rescored)
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if p := s.mustGet(t, id); p.Score == nil || p.Score.ConfigVersion != "v2" {
			t.Errorf("expected project %s rescored against v2", id)
		}
	}
}

func TestRefreshRecordsScoringFailure(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)
	created := createProject(t, s, "A", scoring.BuildingNew, "", "p-high")
	r.RunOnce(context.Background())

	// c1 disappears from the hierarchy; the stored selection no longer resolves.
	s.config = &store.Configuration{
		Version:  "v2",
		Axes:     []scoring.Axis{{ID: "FUN", Name: "FUNCIONAL", WeightPercent: 40}},
		Criteria: []scoring.Criterion{{ID: "c2", AxisID: "FUN", Name: "Accesibilidad", WeightPercent: 40}},
		Parameters: []scoring.Parameter{
			{ID: "p-yes", CriterionID: "c2", Label: "Sí", Value: 1},
		},
	}
	reopened, rescored, err := r.scorer.Refresh(context.Background(), store.ProjectFilter{}, "configuration v2")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if reopened != 1 || rescored != 0 {
		t.Fatalf("expected 1 reopened and 0 rescored, got %d and %d", reopened, rescored)
	}
	p := s.mustGet(t, created.ID)
	if p.Status != scoring.StatusDraft || p.Score != nil {
		t.Fatalf("expected unscored DRAFT, got %s", p.Status)
	}
	if p.ScoringError == "" {
		t.Error("expected the scoring failure to be recorded")
	}

	ranked, _ := store.ListAllProjects(context.Background(), s, store.ProjectFilter{})
	if entries := scoring.RankProjects(ranked); len(entries) != 0 {
		t.Errorf("expected no ranked projects, got %d", len(entries))
	}
}

func TestRunOnceRecordsMissingEvaluation(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)
	created := createProject(t, s, "Rehabilitación", scoring.BuildingExisting, "ED-12", "p-high")

	r.RunOnce(context.Background())
	p := s.mustGet(t, created.ID)
	if p.ScoringError == "" {
		t.Fatal("expected the missing evaluation to be recorded")
	}

	_ = s.CreateEvaluation(context.Background(), &scoring.Evaluation{BuildingCode: "ED-12"})
	r.RunOnce(context.Background())
	if p := s.mustGet(t, created.ID); p.Status != scoring.StatusScored || p.ScoringError != "" {
		t.Errorf("expected SCORED with no scoring error, got %s %q", p.Status, p.ScoringError)
	}
}

func TestSubscribeEventsWakesRunner(t *testing.T) {
	s := newFakeStore()
	h := &mockHermes{}
	r := newTestRunner(t, s, h)

	r.SubscribeEvents()
	for _, subject := range []string{hermes.SubjectConfigurationUpdated, hermes.SubjectEvaluationCreatedAny} {
		handler, ok := h.handlers[subject]
		if !ok {
			t.Fatalf("expected subscription to %s", subject)
		}
		handler(subject, []byte(`{}`))
	}
	if len(r.wakeCh) != 1 {
		t.Errorf("expected one pending wake, got %d", len(r.wakeCh))
	}
}

func TestWakeScoresBeforeTick(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	agg := scoring.NewAggregator(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	r := New(NewScorer(s, nil, agg, nil, discardLogger()), nil, nil, time.Hour, discardLogger())
	created := createProject(t, s, "A", scoring.BuildingNew, "", "p-high")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()
	r.Wake()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.mustGet(t, created.ID).Status == scoring.StatusScored {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected wake to score the draft")
}

func TestScoreProjectRejectsNonDraft(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)
	p := createProject(t, s, "A", scoring.BuildingNew, "", "p-high")
	if err := r.scorer.ScoreProject(context.Background(), p); err != nil {
		t.Fatalf("ScoreProject: %v", err)
	}
	err := r.scorer.ScoreProject(context.Background(), p)
	if !errors.Is(err, scoring.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestScorerNoConfiguration(t *testing.T) {
	s := newFakeStore()
	sc := NewScorer(s, nil, scoring.NewAggregator(scoring.DefaultInstitutionalWeights(), 0, nil), metrics.New(nil), discardLogger())
	p, _ := scoring.NewProject("A", scoring.BuildingNew, "", nil)
	if _, err := sc.Compute(context.Background(), p); !errors.Is(err, ErrNoConfiguration) {
		t.Fatalf("expected ErrNoConfiguration, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s := newFakeStore()
	s.config = testConfiguration()
	r := newTestRunner(t, s, nil)
	created := createProject(t, s, "A", scoring.BuildingNew, "", "p-high")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.mustGet(t, created.ID).Status == scoring.StatusScored {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	if p := s.mustGet(t, created.ID); p.Status != scoring.StatusScored {
		t.Errorf("expected runner to score the draft, got %s", p.Status)
	}
}
