package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

// Configuration is the persisted weight hierarchy. Version changes on every
// replace so scored projects can be traced to the weights they used.
type Configuration struct {
	Version    string              `json:"version"`
	Axes       []scoring.Axis      `json:"axes"`
	Criteria   []scoring.Criterion `json:"criteria"`
	Parameters []scoring.Parameter `json:"parameters"`
	UpdatedBy  string              `json:"updated_by,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// WeightConfig builds the immutable snapshot the aggregator consumes.
func (c *Configuration) WeightConfig() (*scoring.WeightConfig, error) {
	return scoring.NewWeightConfig(c.Version, c.Axes, c.Criteria, c.Parameters)
}

type EvaluationFilter struct {
	BuildingCode string
	Reviewed     *bool
	Limit        int
	Offset       int
}

type ProjectFilter struct {
	Status       *scoring.ProjectStatus
	BuildingType *scoring.BuildingType
	BuildingCode string
	Limit        int
	Offset       int
}

type Store interface {
	// Catalogs
	GetCatalogs(ctx context.Context) (*scoring.Catalogs, error)
	ReplaceCatalogs(ctx context.Context, catalogs scoring.Catalogs) error

	// Weight configuration
	GetConfiguration(ctx context.Context) (*Configuration, error)
	ReplaceConfiguration(ctx context.Context, cfg *Configuration) error

	// Evaluations
	CreateEvaluation(ctx context.Context, e *scoring.Evaluation) error
	GetEvaluation(ctx context.Context, id uuid.UUID) (*scoring.Evaluation, error)
	GetLatestEvaluation(ctx context.Context, buildingCode string) (*scoring.Evaluation, error)
	ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]*scoring.Evaluation, error)
	UpdateEvaluationReview(ctx context.Context, e *scoring.Evaluation) error

	// Projects
	CreateProject(ctx context.Context, p *scoring.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*scoring.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*scoring.Project, error)
	UpdateProject(ctx context.Context, p *scoring.Project) error
	GetDraftProjects(ctx context.Context) ([]*scoring.Project, error)

	Close() error
}

const listPageSize = 100

// ListAllProjects pages through ListProjects until the filter is exhausted.
// All pages are read before returning so callers may change project status
// without shifting later offsets.
func ListAllProjects(ctx context.Context, s Store, filter ProjectFilter) ([]*scoring.Project, error) {
	var out []*scoring.Project
	filter.Limit = listPageSize
	for offset := 0; ; offset += listPageSize {
		filter.Offset = offset
		page, err := s.ListProjects(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < listPageSize {
			return out, nil
		}
	}
}
