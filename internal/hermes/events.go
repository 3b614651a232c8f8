package hermes

import "time"

type EvaluationCreatedEvent struct {
	EvaluationID       string    `json:"evaluation_id"`
	BuildingCode       string    `json:"building_code"`
	EvaluatedBy        string    `json:"evaluated_by,omitempty"`
	TotalBuildingScore float64   `json:"total_building_score"`
	CreatedAt          time.Time `json:"created_at"`
}

type EvaluationReviewedEvent struct {
	EvaluationID string    `json:"evaluation_id"`
	BuildingCode string    `json:"building_code"`
	ReviewedBy   string    `json:"reviewed_by"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

type ProjectCreatedEvent struct {
	ProjectID    string `json:"project_id"`
	Name         string `json:"name"`
	BuildingType string `json:"building_type"`
	BuildingCode string `json:"building_code,omitempty"`
	CreatedBy    string `json:"created_by,omitempty"`
}

type ProjectScoredEvent struct {
	ProjectID        string   `json:"project_id"`
	Revision         int      `json:"revision"`
	ConfigVersion    string   `json:"config_version"`
	Total            float64  `json:"total"`
	AxesTotal        float64  `json:"axes_total"`
	ExistingSubScore *float64 `json:"existing_sub_score,omitempty"`
	UnscoredCriteria []string `json:"unscored_criteria,omitempty"`
	WarningCount     int      `json:"warning_count"`
}

type ProjectReopenedEvent struct {
	ProjectID string `json:"project_id"`
	Revision  int    `json:"revision"`
	Reason    string `json:"reason"`
}

type ProjectFinalizedEvent struct {
	ProjectID   string    `json:"project_id"`
	Total       float64   `json:"total"`
	FinalizedBy string    `json:"finalized_by,omitempty"`
	FinalizedAt time.Time `json:"finalized_at"`
}

type ConfigurationUpdatedEvent struct {
	Version   string    `json:"version"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	Axes      int       `json:"axes"`
	Criteria  int       `json:"criteria"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WeightWarning struct {
	Level    string  `json:"level"`
	AxisID   string  `json:"axis_id,omitempty"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

type ConfigurationWarningEvent struct {
	Version  string          `json:"version"`
	Warnings []WeightWarning `json:"warnings"`
}

func (e EvaluationCreatedEvent) Subject() string  { return SubjectEvaluationCreated(e.EvaluationID) }
func (e EvaluationReviewedEvent) Subject() string { return SubjectEvaluationReviewed(e.EvaluationID) }
func (e ProjectCreatedEvent) Subject() string     { return SubjectProjectCreated(e.ProjectID) }
func (e ProjectScoredEvent) Subject() string      { return SubjectProjectScored(e.ProjectID) }
func (e ProjectReopenedEvent) Subject() string    { return SubjectProjectReopened(e.ProjectID) }
func (e ProjectFinalizedEvent) Subject() string   { return SubjectProjectFinalized(e.ProjectID) }
func (e ConfigurationUpdatedEvent) Subject() string {
	return SubjectConfigurationUpdated
}
func (e ConfigurationWarningEvent) Subject() string {
	return SubjectConfigurationWarning
}
