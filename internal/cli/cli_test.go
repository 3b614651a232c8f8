package cli

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

const scenarioYAML = `
catalogs:
  conservation_states:
    - id: NUEVO
      label: Nuevo
      depreciation_coefficient: 0
  components:
    - id: structure
      name: Estructura
      nominal_weight: 100
  serviceability:
    functionality:
      - id: F-HIGH
        label: Alta
        points: 0.5
    normative:
      - id: N-OK
        label: Cumple
        points: 0.3
evaluations:
  - building_code: B-100
    principal:
      age: 0
      useful_life_years: 50
      conservation_state_id: NUEVO
    components:
      - component_id: structure
        exists: true
        intervention_need: 50
    serviceability:
      functionality_state_id: F-HIGH
      normative_state_id: N-OK
configuration:
  version: v7
  axes:
    - {id: FUN, name: FUNCIONAL, weight_percent: 60}
    - {id: INF, name: INFRAESTRUCTURA, weight_percent: 40}
  criteria:
    - {id: c1, axis_id: FUN, name: Capacidad, weight_percent: 60}
    - {id: c2, axis_id: INF, name: Accesos, weight_percent: 40}
  parameters:
    - {id: c1-high, criterion_id: c1, label: Alta, value: 1}
    - {id: c1-low, criterion_id: c1, label: Baja, value: 0.5}
    - {id: c2-some, criterion_id: c2, label: Parcial, value: 0.25}
projects:
  - name: Aulario norte
    building_type: NEW
    selected_parameter_by_criterion: {c1: c1-high, c2: c2-some}
  - name: Rehabilitación B-100
    building_type: EXISTING
    building_code: B-100
    selected_parameter_by_criterion: {c1: c1-low}
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScenarioRun(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	res, err := s.Run(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "v7", res.ConfigVersion)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Evaluations, 1)
	// depreciation 0, components 0.5, serviceability 0.8 -> 0*5 + 0.5*10 + 0.8*20
	assert.InDelta(t, 21.0, res.Evaluations[0].TotalBuildingScore, 1e-9)

	require.Len(t, res.Ranking, 2)
	assert.Equal(t, "Aulario norte", res.Ranking[0].Name)
	assert.InDelta(t, 70.0, res.Ranking[0].Total, 1e-9)
	assert.Equal(t, "Rehabilitación B-100", res.Ranking[1].Name)
	assert.InDelta(t, 51.0, res.Ranking[1].Total, 1e-9)

	existing := res.Projects[1]
	require.NotNil(t, existing.Score)
	assert.Equal(t, []string{"c2"}, existing.Score.UnscoredCriteria)
	assert.Equal(t, scoring.StatusScored, existing.Status)
}

func TestScenarioRunOverridesWeights(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	s.InstitutionalWeights = &scoring.InstitutionalWeights{Depreciation: 0, Component: 0, Serviceability: 10}

	res, err := s.Run(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.Evaluations[0].TotalBuildingScore, 1e-9)
}

func TestScenarioRunMissingEvaluation(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	s.Evaluations = nil

	_, err = s.Run(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	assert.ErrorIs(t, err, scoring.ErrNoEvaluation)
}

func TestScenarioRunRejectsBadCatalog(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	s.Catalogs.Components[0].NominalWeight = 80

	_, err = s.Run(scoring.DefaultInstitutionalWeights(), scoring.DefaultTolerance, discardLogger())
	assert.ErrorIs(t, err, scoring.ErrInvalidInput)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestScoreCommand(t *testing.T) {
	out, err := runCmd(t, "score", "--no-color", "--scenario", writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Contains(t, out, "weight sums are consistent")
	assert.Contains(t, out, "B-100")
	assert.Contains(t, out, "Aulario norte")
	assert.Contains(t, out, "70.0000")
	assert.Contains(t, out, "51.0000")
	assert.Contains(t, out, "existing building sub-score: 21.0000")
	assert.Contains(t, out, "UNSCORED 1 criteria")
}

func TestScoreCommandRequiresScenario(t *testing.T) {
	_, err := runCmd(t, "score")
	assert.Error(t, err)
}

func TestWeightsCommand(t *testing.T) {
	path := writeScenario(t, scenarioYAML)

	out, err := runCmd(t, "weights", "--no-color", "--scenario", path)
	require.NoError(t, err)
	assert.Contains(t, out, "weight sums are consistent")

	skewed := writeScenario(t, `
configuration:
  version: v8
  axes:
    - {id: FUN, name: FUNCIONAL, weight_percent: 50}
  criteria:
    - {id: c1, axis_id: FUN, name: Capacidad, weight_percent: 45}
`)
	out, err = runCmd(t, "weights", "--no-color", "--scenario", skewed)
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING axis weights sum to 50.0000")
	assert.Contains(t, out, `WARNING criteria of axis "FUN" sum to 45.0000`)

	_, err = runCmd(t, "weights", "--no-color", "--strict", "--scenario", skewed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWeightWarnings))
}

func TestWeightsCommandRejectsInvalidConfiguration(t *testing.T) {
	path := writeScenario(t, `
configuration:
  axes:
    - {id: FUN, name: FUNCIONAL, weight_percent: 100}
  criteria:
    - {id: c1, axis_id: MISSING, name: Capacidad, weight_percent: 100}
`)
	_, err := runCmd(t, "weights", "--scenario", path)
	assert.ErrorIs(t, err, scoring.ErrInvalidInput)
}
