package scoring

import "math"

// ServiceabilityState is one row of the functionality or normative-compliance
// reference catalog.
type ServiceabilityState struct {
	ID     string  `json:"id" yaml:"id"`
	Label  string  `json:"label" yaml:"label"`
	Points float64 `json:"points" yaml:"points"`
}

// ServiceabilityCatalogs bundles the two independent point tables.
type ServiceabilityCatalogs struct {
	Functionality []ServiceabilityState `json:"functionality" yaml:"functionality"`
	Normative     []ServiceabilityState `json:"normative" yaml:"normative"`
}

// ServiceabilityRating is the evaluator's pair of selections.
type ServiceabilityRating struct {
	FunctionalityStateID string `json:"functionality_state_id" yaml:"functionality_state_id"`
	NormativeStateID     string `json:"normative_state_id" yaml:"normative_state_id"`
}

// ComputeServiceability returns the sum of the selected functionality and
// normative point values. Empty or unknown ids fail with MissingSelectionError;
// a selected row with negative or non-finite points fails with ValidationError.
func ComputeServiceability(functionalityID, normativeID string, catalogs ServiceabilityCatalogs) (float64, error) {
	f, err := lookupState(catalogs.Functionality, "functionality_state_id", functionalityID)
	if err != nil {
		return 0, err
	}
	n, err := lookupState(catalogs.Normative, "normative_state_id", normativeID)
	if err != nil {
		return 0, err
	}
	return f.Points + n.Points, nil
}

func lookupState(catalog []ServiceabilityState, field, id string) (ServiceabilityState, error) {
	if id == "" {
		return ServiceabilityState{}, &MissingSelectionError{Entity: "serviceability", Field: field}
	}
	for _, s := range catalog {
		if s.ID == id {
			return s, s.Validate(field)
		}
	}
	return ServiceabilityState{}, &MissingSelectionError{Entity: "serviceability", ID: id, Field: field}
}

// Validate checks that the row carries a usable point value.
func (s ServiceabilityState) Validate(field string) error {
	if s.Points < 0 || math.IsNaN(s.Points) || math.IsInf(s.Points, 0) {
		return invalid(field, s.ID, "points", s.Points, "must be finite and not negative")
	}
	return nil
}
