package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BuildingType distinguishes new construction from work on an existing building.
type BuildingType string

const (
	BuildingNew      BuildingType = "NEW"
	BuildingExisting BuildingType = "EXISTING"
)

// Valid reports whether t is a known building type.
func (t BuildingType) Valid() bool {
	return t == BuildingNew || t == BuildingExisting
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft  ProjectStatus = "DRAFT"
	StatusScored ProjectStatus = "SCORED"
	StatusFinal  ProjectStatus = "FINAL"
)

// Project is a candidate construction or renovation project. Score is always
// derived by the aggregator; values supplied by clients are discarded.
type Project struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	BuildingType BuildingType      `json:"building_type"`
	BuildingCode string            `json:"building_code,omitempty"`
	Selections   map[string]string `json:"selected_parameter_by_criterion"`
	Status       ProjectStatus     `json:"status"`
	Revision     int               `json:"revision"`
	CreatedBy    string            `json:"created_by,omitempty"`

	// ScoringError explains why a DRAFT project could not be scored yet.
	ScoringError string `json:"scoring_error,omitempty"`

	Score       *ProjectScoreResult `json:"score,omitempty"`
	ScoredAt    *time.Time          `json:"scored_at,omitempty"`
	FinalizedAt *time.Time          `json:"finalized_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewProject validates the planner's inputs and returns a DRAFT project.
func NewProject(name string, buildingType BuildingType, buildingCode string, selections map[string]string) (*Project, error) {
	p := &Project{
		Name:         name,
		BuildingType: buildingType,
		BuildingCode: buildingCode,
		Selections:   copySelections(selections),
		Status:       StatusDraft,
		Revision:     1,
	}
	return p, p.Validate()
}

// Validate checks required fields of the project.
func (p *Project) Validate() error {
	if p.Name == "" {
		return invalid("project", p.ID.String(), "name", p.Name, "required")
	}
	if !p.BuildingType.Valid() {
		return invalid("project", p.Name, "building_type", p.BuildingType, "must be NEW or EXISTING")
	}
	if p.BuildingType == BuildingExisting && p.BuildingCode == "" {
		return &MissingSelectionError{Entity: "project " + p.Name, Field: "building_code"}
	}
	for criterionID, parameterID := range p.Selections {
		if criterionID == "" || parameterID == "" {
			return invalid("project", p.Name, "selected_parameter_by_criterion", criterionID+"="+parameterID, "empty key or value")
		}
	}
	return nil
}

// TotalScore returns the derived score, or false if the project is unscored.
func (p *Project) TotalScore() (float64, bool) {
	if p.Score == nil {
		return 0, false
	}
	return p.Score.Total, true
}

// ApplyScore moves a DRAFT project to SCORED with the given result.
func (p *Project) ApplyScore(result ProjectScoreResult, at time.Time) error {
	if p.Status != StatusDraft {
		return fmt.Errorf("project %s: score from %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	p.Score = &result
	p.ScoredAt = &at
	p.Status = StatusScored
	p.ScoringError = ""
	return nil
}

// MarkUnscorable records why a DRAFT project could not be scored. It reports
// whether the stored reason changed.
func (p *Project) MarkUnscorable(err error) bool {
	if p.Status != StatusDraft || err == nil {
		return false
	}
	reason := err.Error()
	if p.ScoringError == reason {
		return false
	}
	p.ScoringError = reason
	return true
}

// Finalize freezes a SCORED project for ranking against its peers.
func (p *Project) Finalize(at time.Time) error {
	if p.Status != StatusScored {
		return fmt.Errorf("project %s: finalize from %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	p.Status = StatusFinal
	p.FinalizedAt = &at
	return nil
}

// Reopen starts a new DRAFT revision and discards the previous score.
func (p *Project) Reopen() error {
	if p.Status == StatusDraft {
		return nil
	}
	p.Status = StatusDraft
	p.Revision++
	p.Score = nil
	p.ScoredAt = nil
	p.FinalizedAt = nil
	p.ScoringError = ""
	return nil
}

// UpdateSelections replaces the selected parameters. FINAL projects must be
// reopened first.
func (p *Project) UpdateSelections(selections map[string]string) error {
	if p.Status == StatusFinal {
		return fmt.Errorf("project %s: selections are frozen: %w", p.ID, ErrInvalidTransition)
	}
	prev := p.Selections
	p.Selections = copySelections(selections)
	if err := p.Validate(); err != nil {
		p.Selections = prev
		return err
	}
	return p.Reopen()
}

func copySelections(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
