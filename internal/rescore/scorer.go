package rescore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
	"github.com/MikeSquared-Agency/Prioritize/internal/store"
)

// ErrNoConfiguration is returned when no weight hierarchy has been stored.
var ErrNoConfiguration = errors.New("no weight configuration stored")

// Scorer loads the inputs of a stored project, aggregates it and persists the
// result. The API and the Runner share one Scorer.
type Scorer struct {
	store      store.Store
	events     *hermes.Publisher
	aggregator *scoring.Aggregator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	// Serialises batch passes so a tick never overlaps a refresh.
	mu sync.Mutex
}

func NewScorer(s store.Store, h hermes.Client, agg *scoring.Aggregator, m *metrics.Metrics, logger *slog.Logger) *Scorer {
	return &Scorer{
		store:      s,
		events:     hermes.NewPublisher(h, logger),
		aggregator: agg,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Aggregator exposes the aggregator for read-only previews.
func (s *Scorer) Aggregator() *scoring.Aggregator { return s.aggregator }

// WeightConfig loads the current configuration snapshot.
func (s *Scorer) WeightConfig(ctx context.Context) (*scoring.WeightConfig, error) {
	cfg, err := s.store.GetConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg == nil {
		return nil, ErrNoConfiguration
	}
	return cfg.WeightConfig()
}

// Compute aggregates a project without changing it.
func (s *Scorer) Compute(ctx context.Context, p *scoring.Project) (scoring.ProjectScoreResult, error) {
	wc, err := s.WeightConfig(ctx)
	if err != nil {
		return scoring.ProjectScoreResult{}, err
	}
	return s.compute(ctx, p, wc)
}

func (s *Scorer) compute(ctx context.Context, p *scoring.Project, wc *scoring.WeightConfig) (scoring.ProjectScoreResult, error) {
	var existing *scoring.Evaluation
	if p.BuildingType == scoring.BuildingExisting && p.BuildingCode != "" {
		ev, err := s.store.GetLatestEvaluation(ctx, p.BuildingCode)
		if err != nil {
			return scoring.ProjectScoreResult{}, fmt.Errorf("load evaluation for %s: %w", p.BuildingCode, err)
		}
		existing = ev
	}

	result, err := s.aggregator.Aggregate(p, wc, existing)
	if err != nil {
		s.metrics.ObserveFailure(metrics.KindProject)
		return scoring.ProjectScoreResult{}, err
	}
	for _, w := range result.Warnings {
		s.metrics.ObserveWarning(string(w.Level))
	}
	s.metrics.ObserveScore(metrics.KindProject, result.Total)
	return result, nil
}

// ScoreProject scores a DRAFT project, moves it to SCORED and persists it.
func (s *Scorer) ScoreProject(ctx context.Context, p *scoring.Project) error {
	wc, err := s.WeightConfig(ctx)
	if err != nil {
		return err
	}
	return s.scoreWith(ctx, p, wc)
}

// scoreWith scores p against wc. A project that cannot be scored stays DRAFT
// and keeps the failure in ScoringError.
func (s *Scorer) scoreWith(ctx context.Context, p *scoring.Project, wc *scoring.WeightConfig) error {
	if p.Status != scoring.StatusDraft {
		return fmt.Errorf("project %s is %s: %w", p.ID, p.Status, scoring.ErrInvalidTransition)
	}
	result, err := s.compute(ctx, p, wc)
	if err != nil {
		s.markUnscorable(ctx, p, err)
		return err
	}
	return s.Apply(ctx, p, result)
}

func (s *Scorer) markUnscorable(ctx context.Context, p *scoring.Project, cause error) {
	if !p.MarkUnscorable(cause) {
		return
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		s.logger.Error("failed to record scoring error", "project_id", p.ID, "error", err)
	}
}

// Apply records a result produced by Compute on a DRAFT project, persists it
// and announces it.
func (s *Scorer) Apply(ctx context.Context, p *scoring.Project, result scoring.ProjectScoreResult) error {
	result.ProjectID = p.ID
	if err := p.ApplyScore(result, s.now()); err != nil {
		return err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	s.logger.Info("project scored",
		"project_id", p.ID,
		"revision", p.Revision,
		"config_version", result.ConfigVersion,
		"total", result.Total,
		"unscored", len(result.UnscoredCriteria),
	)
	s.events.Emit(ctx, hermes.ProjectScoredEvent{
		ProjectID:        p.ID.String(),
		Revision:         p.Revision,
		ConfigVersion:    result.ConfigVersion,
		Total:            result.Total,
		AxesTotal:        result.AxesTotal,
		ExistingSubScore: result.ExistingSubScore,
		UnscoredCriteria: result.UnscoredCriteria,
		WarningCount:     len(result.Warnings),
	})
	return nil
}

// ReopenProject returns a SCORED project to DRAFT so it is scored again.
// FINAL projects are left untouched and reported as not reopened.
func (s *Scorer) ReopenProject(ctx context.Context, p *scoring.Project, reason string) (bool, error) {
	if p.Status != scoring.StatusScored {
		return false, nil
	}
	if err := p.Reopen(); err != nil {
		return false, err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return false, fmt.Errorf("update project: %w", err)
	}
	s.logger.Info("project reopened", "project_id", p.ID, "revision", p.Revision, "reason", reason)
	s.events.Emit(ctx, hermes.ProjectReopenedEvent{
		ProjectID: p.ID.String(),
		Revision:  p.Revision,
		Reason:    reason,
	})
	return true, nil
}

// Refresh reopens the SCORED projects matching filter and scores them again
// against the current configuration. FINAL projects keep their frozen score.
// A reopened project that cannot be scored stays DRAFT with the failure
// recorded, so the ranking never carries a stale score.
func (s *Scorer) Refresh(ctx context.Context, filter store.ProjectFilter, reason string) (reopened, scored int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := scoring.StatusScored
	filter.Status = &status
	projects, err := store.ListAllProjects(ctx, s.store, filter)
	if err != nil {
		return 0, 0, fmt.Errorf("list scored projects: %w", err)
	}

	var drafts []*scoring.Project
	for _, p := range projects {
		ok, err := s.ReopenProject(ctx, p, reason)
		if err != nil {
			s.logger.Warn("failed to reopen project", "project_id", p.ID, "error", err)
			continue
		}
		if ok {
			drafts = append(drafts, p)
		}
	}
	if len(drafts) == 0 {
		return 0, 0, nil
	}

	wc, err := s.WeightConfig(ctx)
	if err != nil {
		for _, p := range drafts {
			s.markUnscorable(ctx, p, err)
		}
		return len(drafts), 0, err
	}
	for _, p := range drafts {
		if err := s.scoreWith(ctx, p, wc); err != nil {
			s.logger.Warn("failed to rescore project", "project_id", p.ID, "reason", reason, "error", err)
			continue
		}
		scored++
	}
	s.logger.Info("projects refreshed", "reason", reason, "reopened", len(drafts), "scored", scored)
	return len(drafts), scored, nil
}

// ScoreDrafts scores every DRAFT project against one configuration snapshot.
// It returns how many drafts were found and how many were scored.
func (s *Scorer) ScoreDrafts(ctx context.Context) (drafts, scored int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.store.GetDraftProjects(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("get draft projects: %w", err)
	}
	if len(projects) == 0 {
		return 0, 0, nil
	}

	wc, err := s.WeightConfig(ctx)
	if err != nil {
		for _, p := range projects {
			s.markUnscorable(ctx, p, err)
		}
		return len(projects), 0, err
	}
	for _, p := range projects {
		if err := s.scoreWith(ctx, p, wc); err != nil {
			s.logger.Warn("failed to score project", "project_id", p.ID, "error", err)
			continue
		}
		scored++
	}
	s.logger.Info("rescore pass complete", "drafts", len(projects), "scored", scored, "config_version", wc.Version())
	return len(projects), scored, nil
}
