package scoring

import "fmt"

// Component is a catalog entry for a building component or system. Catalog
// nominal weights are percentages that sum to 100.
type Component struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	NominalWeight float64 `json:"nominal_weight" yaml:"nominal_weight"`
}

// ComponentRating is the evaluator's reading of one catalog component.
type ComponentRating struct {
	ComponentID      string  `json:"component_id" yaml:"component_id"`
	Exists           bool    `json:"exists" yaml:"exists"`
	InterventionNeed float64 `json:"intervention_need" yaml:"intervention_need"`
}

// NewComponentRating validates and returns a ComponentRating.
func NewComponentRating(componentID string, exists bool, interventionNeed float64) (ComponentRating, error) {
	r := ComponentRating{ComponentID: componentID, Exists: exists, InterventionNeed: interventionNeed}
	return r, r.Validate()
}

// Validate checks the rating's own fields.
func (r ComponentRating) Validate() error {
	if r.ComponentID == "" {
		return &MissingSelectionError{Entity: "component rating", Field: "component_id"}
	}
	return checkPercent("component", r.ComponentID, "intervention_need", r.InterventionNeed)
}

// ComponentScore is the per-component audit row.
type ComponentScore struct {
	ComponentID         string  `json:"component_id"`
	Name                string  `json:"name"`
	Exists              bool    `json:"exists"`
	NominalWeight       float64 `json:"nominal_weight"`
	RedistributedWeight float64 `json:"redistributed_weight"`
	InterventionNeed    float64 `json:"intervention_need"`
	Score               float64 `json:"score"`
}

// ComponentResult is the output of ComputeComponentScore.
type ComponentResult struct {
	PerComponent map[string]ComponentScore `json:"per_component"`
	// PresentWeight is the sum of nominal weights of present components as a
	// fraction of 100.
	PresentWeight float64 `json:"present_weight"`
	Total         float64 `json:"total"`
}

// ComputeComponentScore redistributes catalog weight over the present
// components and sums (redistributed/100)*(need/100). The catalog must sum to
// 100 within DefaultTolerance and ratings must cover it exactly once per
// component.
func ComputeComponentScore(catalog []Component, ratings []ComponentRating) (ComponentResult, error) {
	if len(catalog) > 0 {
		if err := ValidateComponentCatalog(catalog, DefaultTolerance); err != nil {
			return ComponentResult{}, err
		}
	}
	byID, err := matchRatings(catalog, ratings)
	if err != nil {
		return ComponentResult{}, err
	}

	var present float64
	for _, c := range catalog {
		if byID[c.ID].Exists {
			present += c.NominalWeight
		}
	}
	present /= 100
	if present <= 0 {
		return ComponentResult{}, &NoComponentsPresentError{CatalogSize: len(catalog)}
	}

	inflate := 1 + (1-present)/present
	result := ComponentResult{
		PerComponent:  make(map[string]ComponentScore, len(catalog)),
		PresentWeight: present,
	}
	// Catalog order keeps the float sum bit-identical across calls.
	for _, c := range catalog {
		r := byID[c.ID]
		row := ComponentScore{
			ComponentID:      c.ID,
			Name:             c.Name,
			Exists:           r.Exists,
			NominalWeight:    c.NominalWeight,
			InterventionNeed: r.InterventionNeed,
		}
		if r.Exists {
			row.RedistributedWeight = c.NominalWeight * inflate
			row.Score = (row.RedistributedWeight / 100) * (r.InterventionNeed / 100)
		}
		result.PerComponent[c.ID] = row
		result.Total += row.Score
	}
	return result, nil
}

func matchRatings(catalog []Component, ratings []ComponentRating) (map[string]ComponentRating, error) {
	if len(catalog) == 0 {
		return nil, invalid("component catalog", "", "components", 0, "catalog is empty")
	}
	known := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if known[c.ID] {
			return nil, invalid("component", c.ID, "id", c.ID, "duplicate catalog entry")
		}
		known[c.ID] = true
	}

	byID := make(map[string]ComponentRating, len(ratings))
	for _, r := range ratings {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if !known[r.ComponentID] {
			return nil, invalid("component", r.ComponentID, "component_id", r.ComponentID, "not in catalog")
		}
		if _, dup := byID[r.ComponentID]; dup {
			return nil, invalid("component", r.ComponentID, "component_id", r.ComponentID, "rated more than once")
		}
		byID[r.ComponentID] = r
	}
	for _, c := range catalog {
		if _, ok := byID[c.ID]; !ok {
			return nil, invalid("component", c.ID, "rating", nil, "missing rating for catalog component")
		}
	}
	return byID, nil
}

// Validate checks a catalog entry.
func (c Component) Validate() error {
	if c.ID == "" {
		return invalid("component", "", "id", c.ID, "required")
	}
	return checkPercent("component", c.ID, "nominal_weight", c.NominalWeight)
}

// CatalogWeight returns the sum of nominal weights in a component catalog.
func CatalogWeight(catalog []Component) float64 {
	var sum float64
	for _, c := range catalog {
		sum += c.NominalWeight
	}
	return sum
}

// ValidateComponentCatalog reports a catalog whose nominal weights do not sum
// to 100 within tolerance.
func ValidateComponentCatalog(catalog []Component, tolerance float64) error {
	for _, c := range catalog {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if sum := CatalogWeight(catalog); !withinTolerance(sum, 100, tolerance) {
		return fmt.Errorf("component catalog weights sum to %.4f, must sum to 100: %w", sum, ErrInvalidInput)
	}
	return nil
}
