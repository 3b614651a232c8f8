package scoring

// ConservationState is reference data describing a physical condition rating
// and the depreciation coefficient evaluators attach to it.
type ConservationState struct {
	ID                      string  `json:"id" yaml:"id"`
	Label                   string  `json:"label" yaml:"label"`
	PhysicalCondition       string  `json:"physical_condition,omitempty" yaml:"physical_condition"`
	Classification          string  `json:"classification,omitempty" yaml:"classification"`
	DepreciationCoefficient float64 `json:"depreciation_coefficient" yaml:"depreciation_coefficient"`
}

// DepreciationInput holds the age, useful life and conservation coefficient of
// one structure. Build it with NewDepreciationInput.
type DepreciationInput struct {
	Age                     int     `json:"age"`
	UsefulLifeYears         int     `json:"useful_life_years"`
	ConservationCoefficient float64 `json:"conservation_coefficient"`
}

// NewDepreciationInput validates and returns a DepreciationInput.
func NewDepreciationInput(age, usefulLifeYears int, conservationCoefficient float64) (DepreciationInput, error) {
	in := DepreciationInput{
		Age:                     age,
		UsefulLifeYears:         usefulLifeYears,
		ConservationCoefficient: conservationCoefficient,
	}
	return in, in.Validate("structure")
}

// Validate checks ranges. entity names the structure in error messages.
func (in DepreciationInput) Validate(entity string) error {
	if in.Age < 0 {
		return invalid(entity, "", "age", in.Age, "must be >= 0")
	}
	if in.UsefulLifeYears <= 0 {
		return invalid(entity, "", "useful_life_years", in.UsefulLifeYears, "must be > 0")
	}
	return checkPercent(entity, "", "conservation_coefficient", in.ConservationCoefficient)
}

// RemodelingInput is the depreciation input of a remodeling or addition plus
// the share of the building it affects.
type RemodelingInput struct {
	DepreciationInput
	Percentage float64 `json:"remodeling_percentage"`
}

// NewRemodelingInput validates and returns a RemodelingInput.
func NewRemodelingInput(age, usefulLifeYears int, conservationCoefficient, percentage float64) (RemodelingInput, error) {
	in := RemodelingInput{
		DepreciationInput: DepreciationInput{
			Age:                     age,
			UsefulLifeYears:         usefulLifeYears,
			ConservationCoefficient: conservationCoefficient,
		},
		Percentage: percentage,
	}
	return in, in.Validate()
}

// Validate checks ranges of the remodeling input.
func (in RemodelingInput) Validate() error {
	if err := in.DepreciationInput.Validate("remodeling"); err != nil {
		return err
	}
	return checkPercent("remodeling", "", "remodeling_percentage", in.Percentage)
}

// DepreciationResult keeps both scales for audit alongside the blended total.
type DepreciationResult struct {
	PrincipalScale       float64  `json:"principal_scale"`
	RemodelingScale      *float64 `json:"remodeling_scale,omitempty"`
	RemodelingPercentage float64  `json:"remodeling_percentage"`
	Total                float64  `json:"total"`
}

// DepreciationScale computes the retained-value factor of one structure:
//
//	ratio = age / usefulLife
//	scale = 1 - ((100 - coef) / 100) * (1 - 0.5 * (ratio + ratio^2))
//
// Ages past the useful life are accepted and not clamped; the result then
// leaves the nominal [0,1] range.
func DepreciationScale(age, usefulLifeYears int, conservationCoefficient float64) (float64, error) {
	in := DepreciationInput{Age: age, UsefulLifeYears: usefulLifeYears, ConservationCoefficient: conservationCoefficient}
	if err := in.Validate("structure"); err != nil {
		return 0, err
	}
	return depreciationScale(in), nil
}

func depreciationScale(in DepreciationInput) float64 {
	ratio := float64(in.Age) / float64(in.UsefulLifeYears)
	loss := (100 - in.ConservationCoefficient) / 100
	return 1 - loss*(1-0.5*(ratio+ratio*ratio))
}

// ComputeDepreciation scores the principal structure and, when present, the
// remodeling, then blends them by the remodeling percentage:
//
//	total = principal*(1 - pct/100) + remodeling*(pct/100)
func ComputeDepreciation(principal DepreciationInput, remodeling *RemodelingInput) (DepreciationResult, error) {
	if err := principal.Validate("principal structure"); err != nil {
		return DepreciationResult{}, err
	}
	result := DepreciationResult{PrincipalScale: depreciationScale(principal)}
	if remodeling == nil {
		result.Total = result.PrincipalScale
		return result, nil
	}
	if err := remodeling.Validate(); err != nil {
		return DepreciationResult{}, err
	}

	rs := depreciationScale(remodeling.DepreciationInput)
	share := remodeling.Percentage / 100
	result.RemodelingScale = &rs
	result.RemodelingPercentage = remodeling.Percentage
	result.Total = result.PrincipalScale*(1-share) + rs*share
	return result, nil
}
