package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

// Scenario is an offline scoring run: catalogs, building evaluations, a
// weight configuration and the projects to rank against it.
type Scenario struct {
	// InstitutionalWeights overrides the configured weights when set.
	InstitutionalWeights *scoring.InstitutionalWeights `yaml:"institutional_weights"`

	Catalogs      scoring.Catalogs          `yaml:"catalogs"`
	Evaluations   []scoring.EvaluationInput `yaml:"evaluations"`
	Configuration ScenarioConfiguration     `yaml:"configuration"`
	Projects      []ScenarioProject         `yaml:"projects"`
}

type ScenarioConfiguration struct {
	Version    string              `yaml:"version"`
	Axes       []scoring.Axis      `yaml:"axes"`
	Criteria   []scoring.Criterion `yaml:"criteria"`
	Parameters []scoring.Parameter `yaml:"parameters"`
}

type ScenarioProject struct {
	Name         string               `yaml:"name"`
	BuildingType scoring.BuildingType `yaml:"building_type"`
	BuildingCode string               `yaml:"building_code"`
	Selections   map[string]string    `yaml:"selected_parameter_by_criterion"`
}

// ScenarioResult holds everything a scenario run computed.
type ScenarioResult struct {
	ConfigVersion string
	Warnings      []scoring.WeightSumWarning
	Evaluations   []*scoring.Evaluation
	Projects      []*scoring.Project
	Ranking       []scoring.RankEntry
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// WeightConfig builds the snapshot of the scenario's configuration.
func (s *Scenario) WeightConfig() (*scoring.WeightConfig, error) {
	c := s.Configuration
	version := c.Version
	if version == "" {
		version = "scenario"
	}
	return scoring.NewWeightConfig(version, c.Axes, c.Criteria, c.Parameters)
}

// Run evaluates every building, scores every project and ranks the results.
// Later evaluations of the same building replace earlier ones, as the latest
// evaluation is the one prioritization uses.
func (s *Scenario) Run(weights scoring.InstitutionalWeights, tolerance float64, logger *slog.Logger) (*ScenarioResult, error) {
	if s.InstitutionalWeights != nil {
		weights = *s.InstitutionalWeights
	}
	if err := s.Catalogs.Validate(tolerance); err != nil {
		return nil, fmt.Errorf("catalogs: %w", err)
	}
	wc, err := s.WeightConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	res := &ScenarioResult{ConfigVersion: wc.Version(), Warnings: wc.Warnings(tolerance)}

	latest := make(map[string]*scoring.Evaluation, len(s.Evaluations))
	for _, in := range s.Evaluations {
		ev, err := scoring.EvaluateBuilding(in, s.Catalogs, weights)
		if err != nil {
			return nil, err
		}
		ev.ID = uuid.New()
		ev.CreatedAt = time.Now()
		latest[ev.BuildingCode] = ev
		res.Evaluations = append(res.Evaluations, ev)
	}

	agg := scoring.NewAggregator(weights, tolerance, logger)
	now := time.Now()
	for _, sp := range s.Projects {
		p, err := scoring.NewProject(sp.Name, sp.BuildingType, sp.BuildingCode, sp.Selections)
		if err != nil {
			return nil, err
		}
		p.ID = uuid.New()
		p.CreatedAt = now

		var existing *scoring.Evaluation
		if p.BuildingType == scoring.BuildingExisting {
			existing = latest[p.BuildingCode]
		}
		result, err := agg.Aggregate(p, wc, existing)
		if err != nil {
			return nil, err
		}
		if err := p.ApplyScore(result, now); err != nil {
			return nil, err
		}
		res.Projects = append(res.Projects, p)
	}

	res.Ranking = scoring.RankProjects(res.Projects)
	return res, nil
}
