package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Catalogs bundles the reference data an evaluation resolves against.
type Catalogs struct {
	ConservationStates []ConservationState    `json:"conservation_states" yaml:"conservation_states"`
	Components         []Component            `json:"components" yaml:"components"`
	Serviceability     ServiceabilityCatalogs `json:"serviceability" yaml:"serviceability"`
}

// ConservationState looks up a conservation state by id.
func (c Catalogs) ConservationState(id string) (ConservationState, bool) {
	for _, s := range c.ConservationStates {
		if s.ID == id {
			return s, true
		}
	}
	return ConservationState{}, false
}

// Validate checks every catalog entry and that component weights sum to 100.
func (c Catalogs) Validate(tolerance float64) error {
	seen := make(map[string]bool, len(c.ConservationStates))
	for _, s := range c.ConservationStates {
		if s.ID == "" {
			return invalid("conservation state", "", "id", s.ID, "required")
		}
		if seen[s.ID] {
			return invalid("conservation state", s.ID, "id", s.ID, "duplicate")
		}
		seen[s.ID] = true
		if err := checkPercent("conservation state", s.ID, "depreciation_coefficient", s.DepreciationCoefficient); err != nil {
			return err
		}
	}
	if err := ValidateComponentCatalog(c.Components, tolerance); err != nil {
		return err
	}
	for _, tbl := range []struct {
		field  string
		states []ServiceabilityState
	}{
		{"functionality", c.Serviceability.Functionality},
		{"normative", c.Serviceability.Normative},
	} {
		field := tbl.field
		ids := make(map[string]bool, len(tbl.states))
		for _, s := range tbl.states {
			if s.ID == "" || ids[s.ID] {
				return invalid(field+" state", s.ID, "id", s.ID, "required and unique")
			}
			ids[s.ID] = true
			if err := s.Validate(field + " state"); err != nil {
				return err
			}
		}
	}
	return nil
}

// StructureInput is the evaluator-supplied form data for one structure.
type StructureInput struct {
	Age                 int    `json:"age" yaml:"age"`
	UsefulLifeYears     int    `json:"useful_life_years" yaml:"useful_life_years"`
	ConservationStateID string `json:"conservation_state_id" yaml:"conservation_state_id"`
}

// RemodelingStructureInput adds the affected share to a remodeling's form data.
type RemodelingStructureInput struct {
	StructureInput `yaml:",inline"`
	Percentage     float64 `json:"remodeling_percentage" yaml:"remodeling_percentage"`
}

// EvaluationInput is one submitted evaluation form.
type EvaluationInput struct {
	BuildingCode   string                    `json:"building_code" yaml:"building_code"`
	EvaluatedBy    string                    `json:"evaluated_by,omitempty" yaml:"evaluated_by"`
	Principal      StructureInput            `json:"principal" yaml:"principal"`
	Remodeling     *RemodelingStructureInput `json:"remodeling,omitempty" yaml:"remodeling"`
	Components     []ComponentRating         `json:"components" yaml:"components"`
	Serviceability ServiceabilityRating      `json:"serviceability" yaml:"serviceability"`
}

// Evaluation is a point-in-time assessment of one building. It is immutable
// once created except for the review flag.
type Evaluation struct {
	ID           uuid.UUID `json:"id"`
	BuildingCode string    `json:"building_code"`
	EvaluatedBy  string    `json:"evaluated_by,omitempty"`

	PrincipalStateID  string               `json:"principal_state_id"`
	Principal         DepreciationInput    `json:"principal"`
	RemodelingStateID string               `json:"remodeling_state_id,omitempty"`
	Remodeling        *RemodelingInput     `json:"remodeling,omitempty"`
	ComponentRatings  []ComponentRating    `json:"component_ratings"`
	Serviceability    ServiceabilityRating `json:"serviceability"`

	Depreciation        DepreciationResult `json:"depreciation"`
	Components          ComponentResult    `json:"components"`
	ServiceabilityScore float64            `json:"serviceability_score"`
	SubScore            SubScoreBreakdown  `json:"sub_score"`
	TotalBuildingScore  float64            `json:"total_building_score"`

	Reviewed   bool       `json:"reviewed"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MarkReviewed sets the approver flag. It is the only permitted mutation.
func (e *Evaluation) MarkReviewed(by string, at time.Time) error {
	if e.Reviewed {
		return fmt.Errorf("evaluation %s already reviewed by %s: %w", e.ID, e.ReviewedBy, ErrInvalidTransition)
	}
	if by == "" {
		return &MissingSelectionError{Entity: "evaluation review", Field: "reviewed_by"}
	}
	e.Reviewed = true
	e.ReviewedBy = by
	e.ReviewedAt = &at
	return nil
}

// EvaluateBuilding resolves catalog selections, runs the depreciation,
// component and serviceability scorers and combines them with the
// institutional weights. ID and CreatedAt are left for the persistence layer.
func EvaluateBuilding(in EvaluationInput, catalogs Catalogs, weights InstitutionalWeights) (*Evaluation, error) {
	if in.BuildingCode == "" {
		return nil, &MissingSelectionError{Entity: "evaluation", Field: "building_code"}
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("building %s: %w", in.BuildingCode, err)
	}
	wrap := func(err error) error { return fmt.Errorf("building %s: %w", in.BuildingCode, err) }

	principal, err := resolveStructure(catalogs, "principal", in.Principal)
	if err != nil {
		return nil, wrap(err)
	}
	var remodeling *RemodelingInput
	if in.Remodeling != nil {
		base, err := resolveStructure(catalogs, "remodeling", in.Remodeling.StructureInput)
		if err != nil {
			return nil, wrap(err)
		}
		remodeling = &RemodelingInput{DepreciationInput: base, Percentage: in.Remodeling.Percentage}
	}

	dep, err := ComputeDepreciation(principal, remodeling)
	if err != nil {
		return nil, wrap(err)
	}
	comp, err := ComputeComponentScore(catalogs.Components, in.Components)
	if err != nil {
		return nil, wrap(err)
	}
	serv, err := ComputeServiceability(in.Serviceability.FunctionalityStateID, in.Serviceability.NormativeStateID, catalogs.Serviceability)
	if err != nil {
		return nil, wrap(err)
	}

	sub := ExistingBuildingSubScore(dep.Total, comp.Total, serv, weights)
	ev := &Evaluation{
		BuildingCode:        in.BuildingCode,
		EvaluatedBy:         in.EvaluatedBy,
		PrincipalStateID:    in.Principal.ConservationStateID,
		Principal:           principal,
		Remodeling:          remodeling,
		ComponentRatings:    append([]ComponentRating(nil), in.Components...),
		Serviceability:      in.Serviceability,
		Depreciation:        dep,
		Components:          comp,
		ServiceabilityScore: serv,
		SubScore:            sub,
		TotalBuildingScore:  sub.Total,
	}
	if in.Remodeling != nil {
		ev.RemodelingStateID = in.Remodeling.ConservationStateID
	}
	return ev, nil
}

func resolveStructure(catalogs Catalogs, entity string, s StructureInput) (DepreciationInput, error) {
	if s.ConservationStateID == "" {
		return DepreciationInput{}, &MissingSelectionError{Entity: entity, Field: "conservation_state_id"}
	}
	state, ok := catalogs.ConservationState(s.ConservationStateID)
	if !ok {
		return DepreciationInput{}, &MissingSelectionError{Entity: entity, ID: s.ConservationStateID, Field: "conservation_state_id"}
	}
	in := DepreciationInput{
		Age:                     s.Age,
		UsefulLifeYears:         s.UsefulLifeYears,
		ConservationCoefficient: state.DepreciationCoefficient,
	}
	return in, in.Validate(entity)
}
