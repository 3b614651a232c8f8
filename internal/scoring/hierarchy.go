package scoring

// Axis is a top-level prioritization dimension.
type Axis struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	WeightPercent float64 `json:"weight_percent" yaml:"weight_percent"`
}

// Criterion is a weighted sub-dimension of an axis.
type Criterion struct {
	ID            string  `json:"id" yaml:"id"`
	AxisID        string  `json:"axis_id" yaml:"axis_id"`
	Name          string  `json:"name" yaml:"name"`
	WeightPercent float64 `json:"weight_percent" yaml:"weight_percent"`
}

// Parameter is one selectable answer of a criterion with a normalized value.
type Parameter struct {
	ID          string  `json:"id" yaml:"id"`
	CriterionID string  `json:"criterion_id" yaml:"criterion_id"`
	Label       string  `json:"label" yaml:"label"`
	Value       float64 `json:"value" yaml:"value"`
}

// NewParameter validates and returns a Parameter. Values outside [0,1] are
// rejected.
func NewParameter(id, criterionID, label string, value float64) (Parameter, error) {
	p := Parameter{ID: id, CriterionID: criterionID, Label: label, Value: value}
	return p, p.Validate()
}

// Validate checks the parameter's own fields.
func (p Parameter) Validate() error {
	if p.ID == "" {
		return invalid("parameter", "", "id", p.ID, "required")
	}
	if p.CriterionID == "" {
		return invalid("parameter", p.ID, "criterion_id", p.CriterionID, "required")
	}
	return checkUnit("parameter", p.ID, "value", p.Value)
}

// Validate checks the axis's own fields.
func (a Axis) Validate() error {
	if a.ID == "" {
		return invalid("axis", "", "id", a.ID, "required")
	}
	return checkPercent("axis", a.ID, "weight_percent", a.WeightPercent)
}

// Validate checks the criterion's own fields.
func (c Criterion) Validate() error {
	if c.ID == "" {
		return invalid("criterion", "", "id", c.ID, "required")
	}
	if c.AxisID == "" {
		return invalid("criterion", c.ID, "axis_id", c.AxisID, "required")
	}
	return checkPercent("criterion", c.ID, "weight_percent", c.WeightPercent)
}

// WeightConfig is an immutable snapshot of the Axis→Criterion→Parameter
// hierarchy. Each aggregation receives its own snapshot so that projects
// scored against different configuration versions cannot interfere.
type WeightConfig struct {
	version    string
	axes       []Axis
	criteria   []Criterion
	parameters []Parameter

	axisIndex      map[string]int
	criterionIndex map[string]int
	parameterIndex map[string]int
}

// NewWeightConfig validates ranges and referential integrity and copies the
// inputs into a snapshot. Sum deviations are not errors; see Warnings.
func NewWeightConfig(version string, axes []Axis, criteria []Criterion, parameters []Parameter) (*WeightConfig, error) {
	wc := &WeightConfig{
		version:        version,
		axes:           append([]Axis(nil), axes...),
		criteria:       append([]Criterion(nil), criteria...),
		parameters:     append([]Parameter(nil), parameters...),
		axisIndex:      make(map[string]int, len(axes)),
		criterionIndex: make(map[string]int, len(criteria)),
		parameterIndex: make(map[string]int, len(parameters)),
	}

	for i, a := range wc.axes {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := wc.axisIndex[a.ID]; dup {
			return nil, invalid("axis", a.ID, "id", a.ID, "duplicate")
		}
		wc.axisIndex[a.ID] = i
	}
	for i, c := range wc.criteria {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := wc.axisIndex[c.AxisID]; !ok {
			return nil, invalid("criterion", c.ID, "axis_id", c.AxisID, "unknown axis")
		}
		if _, dup := wc.criterionIndex[c.ID]; dup {
			return nil, invalid("criterion", c.ID, "id", c.ID, "duplicate")
		}
		wc.criterionIndex[c.ID] = i
	}
	for i, p := range wc.parameters {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := wc.criterionIndex[p.CriterionID]; !ok {
			return nil, invalid("parameter", p.ID, "criterion_id", p.CriterionID, "unknown criterion")
		}
		if _, dup := wc.parameterIndex[p.ID]; dup {
			return nil, invalid("parameter", p.ID, "id", p.ID, "duplicate")
		}
		wc.parameterIndex[p.ID] = i
	}
	return wc, nil
}

// Version identifies the configuration revision the snapshot was built from.
func (wc *WeightConfig) Version() string { return wc.version }

// Axes returns a copy of the axes in configuration order.
func (wc *WeightConfig) Axes() []Axis { return append([]Axis(nil), wc.axes...) }

// Criteria returns a copy of all criteria in configuration order.
func (wc *WeightConfig) Criteria() []Criterion { return append([]Criterion(nil), wc.criteria...) }

// Parameters returns a copy of all parameters in configuration order.
func (wc *WeightConfig) Parameters() []Parameter {
	return append([]Parameter(nil), wc.parameters...)
}

// Axis looks up an axis by id.
func (wc *WeightConfig) Axis(id string) (Axis, bool) {
	i, ok := wc.axisIndex[id]
	if !ok {
		return Axis{}, false
	}
	return wc.axes[i], true
}

// Criterion looks up a criterion by id.
func (wc *WeightConfig) Criterion(id string) (Criterion, bool) {
	i, ok := wc.criterionIndex[id]
	if !ok {
		return Criterion{}, false
	}
	return wc.criteria[i], true
}

// Parameter looks up a parameter by id.
func (wc *WeightConfig) Parameter(id string) (Parameter, bool) {
	i, ok := wc.parameterIndex[id]
	if !ok {
		return Parameter{}, false
	}
	return wc.parameters[i], true
}

// CriteriaForAxis returns the criteria of one axis in configuration order.
func (wc *WeightConfig) CriteriaForAxis(axisID string) []Criterion {
	var out []Criterion
	for _, c := range wc.criteria {
		if c.AxisID == axisID {
			out = append(out, c)
		}
	}
	return out
}

// ParametersForCriterion returns the selectable options of one criterion.
func (wc *WeightConfig) ParametersForCriterion(criterionID string) []Parameter {
	var out []Parameter
	for _, p := range wc.parameters {
		if p.CriterionID == criterionID {
			out = append(out, p)
		}
	}
	return out
}

// Warnings runs both weight-sum checks against the snapshot.
func (wc *WeightConfig) Warnings(tolerance float64) []WeightSumWarning {
	return ValidateWeightsWithTolerance(wc.axes, wc.criteria, tolerance)
}
