package scoring

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// CriterionResult captures one criterion's contribution to a project score.
type CriterionResult struct {
	CriterionID    string  `json:"criterion_id"`
	AxisID         string  `json:"axis_id"`
	Name           string  `json:"name"`
	ParameterID    string  `json:"parameter_id,omitempty"`
	ParameterLabel string  `json:"parameter_label,omitempty"`
	Value          float64 `json:"value"`
	Weight         float64 `json:"weight"`
	Score          float64 `json:"score"`
	Unscored       bool    `json:"unscored"`
	Reason         string  `json:"reason"`
}

// AxisResult sums the criterion scores of one axis.
type AxisResult struct {
	AxisID   string  `json:"axis_id"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Total    float64 `json:"total"`
	Criteria int     `json:"criteria"`
	Unscored int     `json:"unscored"`
}

// ProjectScoreResult is the full, auditable breakdown of a project score.
type ProjectScoreResult struct {
	ProjectID     uuid.UUID    `json:"project_id"`
	ConfigVersion string       `json:"config_version,omitempty"`
	BuildingType  BuildingType `json:"building_type"`

	PerCriterion []CriterionResult `json:"per_criterion"`
	PerAxis      []AxisResult      `json:"per_axis"`
	AxesTotal    float64           `json:"axes_total"`

	EvaluationID      *uuid.UUID         `json:"evaluation_id,omitempty"`
	ExistingSubScore  *float64           `json:"existing_sub_score,omitempty"`
	ExistingBreakdown *SubScoreBreakdown `json:"existing_breakdown,omitempty"`

	Total            float64            `json:"total"`
	UnscoredCriteria []string           `json:"unscored_criteria,omitempty"`
	Warnings         []WeightSumWarning `json:"warnings,omitempty"`
}

// Criterion returns the breakdown row of one criterion.
func (r ProjectScoreResult) Criterion(id string) (CriterionResult, bool) {
	for _, c := range r.PerCriterion {
		if c.CriterionID == id {
			return c, true
		}
	}
	return CriterionResult{}, false
}

// Axis returns the breakdown row of one axis.
func (r ProjectScoreResult) Axis(id string) (AxisResult, bool) {
	for _, a := range r.PerAxis {
		if a.AxisID == id {
			return a, true
		}
	}
	return AxisResult{}, false
}

// Aggregator combines a project's selections, the weight hierarchy and, for
// existing buildings, the latest evaluation into one total score. It holds no
// mutable state and is safe for concurrent use.
type Aggregator struct {
	weights   InstitutionalWeights
	tolerance float64
	logger    *slog.Logger
}

// NewAggregator creates an Aggregator. A nil logger discards output.
func NewAggregator(weights InstitutionalWeights, tolerance float64, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Aggregator{weights: weights, tolerance: tolerance, logger: logger}
}

// Weights returns the institutional weights used for existing buildings.
func (a *Aggregator) Weights() InstitutionalWeights { return a.weights }

// AggregateProject scores a project against a configuration snapshot using
// the default institutional weights.
func AggregateProject(project *Project, axes []Axis, criteria []Criterion, parameters []Parameter, existing *Evaluation) (ProjectScoreResult, error) {
	cfg, err := NewWeightConfig("", axes, criteria, parameters)
	if err != nil {
		return ProjectScoreResult{}, err
	}
	return NewAggregator(DefaultInstitutionalWeights(), DefaultTolerance, nil).Aggregate(project, cfg, existing)
}

// Aggregate computes the project score:
//
//	criterionScore = parameter.value * criterion.weightPercent
//	axisTotal      = sum(criterionScore) per axis
//	total          = sum(axisTotal) + existingSubScore (EXISTING only)
//
// Criteria without a selection contribute 0 and are flagged unscored.
func (a *Aggregator) Aggregate(project *Project, cfg *WeightConfig, existing *Evaluation) (ProjectScoreResult, error) {
	if project == nil {
		return ProjectScoreResult{}, &MissingSelectionError{Entity: "aggregation", Field: "project"}
	}
	if cfg == nil {
		return ProjectScoreResult{}, &MissingSelectionError{Entity: "aggregation", Field: "configuration"}
	}
	if err := project.Validate(); err != nil {
		return ProjectScoreResult{}, err
	}
	if err := a.weights.Validate(); err != nil {
		return ProjectScoreResult{}, err
	}
	if err := checkSelections(project, cfg); err != nil {
		return ProjectScoreResult{}, err
	}

	result := ProjectScoreResult{
		ProjectID:     project.ID,
		ConfigVersion: cfg.Version(),
		BuildingType:  project.BuildingType,
		Warnings:      cfg.Warnings(a.tolerance),
	}
	for _, w := range result.Warnings {
		a.logger.Warn("weight configuration inconsistent",
			"project_id", project.ID,
			"level", w.Level,
			"axis_id", w.AxisID,
			"expected", w.Expected,
			"actual", w.Actual,
		)
	}

	if project.BuildingType == BuildingExisting {
		if existing == nil {
			return ProjectScoreResult{}, fmt.Errorf("project %q building %s: %w", project.Name, project.BuildingCode, ErrNoEvaluation)
		}
		if existing.BuildingCode != project.BuildingCode {
			return ProjectScoreResult{}, invalid("project", project.Name, "building_code", existing.BuildingCode,
				"evaluation belongs to a different building than "+project.BuildingCode)
		}
		sub := ExistingBuildingSubScore(existing.Depreciation.Total, existing.Components.Total, existing.ServiceabilityScore, a.weights)
		evID := existing.ID
		result.EvaluationID = &evID
		result.ExistingSubScore = &sub.Total
		result.ExistingBreakdown = &sub
	}

	for _, axis := range cfg.axes {
		ar := AxisResult{AxisID: axis.ID, Name: axis.Name, Weight: axis.WeightPercent}
		for _, c := range cfg.CriteriaForAxis(axis.ID) {
			cr := a.scoreCriterion(project, cfg, c)
			if cr.Unscored {
				ar.Unscored++
				result.UnscoredCriteria = append(result.UnscoredCriteria, c.ID)
			}
			ar.Criteria++
			ar.Total += cr.Score
			result.PerCriterion = append(result.PerCriterion, cr)
		}
		result.AxesTotal += ar.Total
		result.PerAxis = append(result.PerAxis, ar)
	}

	result.Total = result.AxesTotal
	if result.ExistingSubScore != nil {
		result.Total += *result.ExistingSubScore
	}

	a.logger.Debug("project aggregated",
		"project_id", project.ID,
		"building_type", project.BuildingType,
		"axes_total", result.AxesTotal,
		"total", result.Total,
		"unscored", len(result.UnscoredCriteria),
	)
	return result, nil
}

func (a *Aggregator) scoreCriterion(project *Project, cfg *WeightConfig, c Criterion) CriterionResult {
	cr := CriterionResult{
		CriterionID: c.ID,
		AxisID:      c.AxisID,
		Name:        c.Name,
		Weight:      c.WeightPercent,
	}
	paramID, ok := project.Selections[c.ID]
	if !ok {
		cr.Unscored = true
		cr.Reason = "no parameter selected"
		return cr
	}
	// checkSelections guarantees the lookup succeeds.
	p, _ := cfg.Parameter(paramID)
	cr.ParameterID = p.ID
	cr.ParameterLabel = p.Label
	cr.Value = p.Value
	cr.Score = p.Value * c.WeightPercent
	cr.Reason = "parameter selected"
	return cr
}

func checkSelections(project *Project, cfg *WeightConfig) error {
	for _, criterionID := range slices.Sorted(maps.Keys(project.Selections)) {
		parameterID := project.Selections[criterionID]
		if _, ok := cfg.Criterion(criterionID); !ok {
			return invalid("project", project.Name, "criterion", criterionID, "unknown criterion")
		}
		p, ok := cfg.Parameter(parameterID)
		if !ok {
			return invalid("criterion", criterionID, "parameter", parameterID, "unknown parameter")
		}
		if p.CriterionID != criterionID {
			return invalid("criterion", criterionID, "parameter", parameterID, "parameter belongs to criterion "+p.CriterionID)
		}
	}
	return nil
}
