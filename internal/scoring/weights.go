package scoring

import (
	"fmt"
	"math"
)

// DefaultTolerance is the absolute slack allowed when comparing weight sums.
const DefaultTolerance = 0.001

// InstitutionalWeights scale the three pre-normalized building dimensions into
// the existing-building sub-score.
type InstitutionalWeights struct {
	Depreciation   float64 `json:"depreciation"`
	Component      float64 `json:"component"`
	Serviceability float64 `json:"serviceability"`
}

// DefaultInstitutionalWeights returns the 5/10/20 split of the 35-point
// existing-building allowance.
func DefaultInstitutionalWeights() InstitutionalWeights {
	return InstitutionalWeights{
		Depreciation:   5,
		Component:      10,
		Serviceability: 20,
	}
}

// Sum returns the total of all weights.
func (w InstitutionalWeights) Sum() float64 {
	return w.Depreciation + w.Component + w.Serviceability
}

// Validate checks that every weight is finite and not negative.
func (w InstitutionalWeights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"depreciation", w.Depreciation},
		{"component", w.Component},
		{"serviceability", w.Serviceability},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid("institutional weights", "", f.name, f.v, "must be finite and not negative")
		}
	}
	return nil
}

// SubScoreBreakdown records each weighted dimension of the existing-building
// sub-score.
type SubScoreBreakdown struct {
	Depreciation         float64 `json:"depreciation"`
	Component            float64 `json:"component"`
	Serviceability       float64 `json:"serviceability"`
	WeightedDepreciation float64 `json:"weighted_depreciation"`
	WeightedComponent    float64 `json:"weighted_component"`
	WeightedService      float64 `json:"weighted_serviceability"`
	Total                float64 `json:"total"`
}

// ExistingBuildingSubScore combines the three building dimensions:
//
//	depreciation*w.Depreciation + component*w.Component + serviceability*w.Serviceability
func ExistingBuildingSubScore(depreciation, component, serviceability float64, w InstitutionalWeights) SubScoreBreakdown {
	b := SubScoreBreakdown{
		Depreciation:         depreciation,
		Component:            component,
		Serviceability:       serviceability,
		WeightedDepreciation: depreciation * w.Depreciation,
		WeightedComponent:    component * w.Component,
		WeightedService:      serviceability * w.Serviceability,
	}
	b.Total = b.WeightedDepreciation + b.WeightedComponent + b.WeightedService
	return b
}

// WarningLevel identifies which sum check produced a warning.
type WarningLevel string

const (
	LevelAxis      WarningLevel = "AXIS"
	LevelCriterion WarningLevel = "CRITERION"
)

// WeightSumWarning flags a weight sum that deviates from its target. It is
// advisory and never blocks scoring.
type WeightSumWarning struct {
	Level    WarningLevel `json:"level"`
	AxisID   string       `json:"axis_id,omitempty"`
	Expected float64      `json:"expected"`
	Actual   float64      `json:"actual"`
}

func (w WeightSumWarning) String() string {
	if w.Level == LevelAxis {
		return fmt.Sprintf("axis weights sum to %.4f, expected %.4f", w.Actual, w.Expected)
	}
	return fmt.Sprintf("criteria of axis %q sum to %.4f, expected %.4f", w.AxisID, w.Actual, w.Expected)
}

// ValidateWeights runs the axis-sum and criterion-sum checks with the default
// tolerance. Criteria whose axis is not in axes are ignored here; the snapshot
// constructor rejects them.
func ValidateWeights(axes []Axis, criteria []Criterion) []WeightSumWarning {
	return ValidateWeightsWithTolerance(axes, criteria, DefaultTolerance)
}

// ValidateWeightsWithTolerance is ValidateWeights with an explicit tolerance.
func ValidateWeightsWithTolerance(axes []Axis, criteria []Criterion, tolerance float64) []WeightSumWarning {
	var warnings []WeightSumWarning

	var axisSum float64
	for _, a := range axes {
		axisSum += a.WeightPercent
	}
	if !withinTolerance(axisSum, 100, tolerance) {
		warnings = append(warnings, WeightSumWarning{Level: LevelAxis, Expected: 100, Actual: axisSum})
	}

	sums := make(map[string]float64, len(axes))
	for _, c := range criteria {
		sums[c.AxisID] += c.WeightPercent
	}
	// Axis order keeps warnings stable for callers and tests.
	for _, a := range axes {
		actual := sums[a.ID]
		if !withinTolerance(actual, a.WeightPercent, tolerance) {
			warnings = append(warnings, WeightSumWarning{
				Level:    LevelCriterion,
				AxisID:   a.ID,
				Expected: a.WeightPercent,
				Actual:   actual,
			})
		}
	}
	return warnings
}

func withinTolerance(actual, expected, tolerance float64) bool {
	return math.Abs(actual-expected) <= tolerance
}
