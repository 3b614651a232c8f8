package hermes

const (
	SubjectConfigurationUpdated = "facilities.configuration.updated"
	SubjectConfigurationWarning = "facilities.configuration.warning"

	// Wildcards for subscribers.
	SubjectEvaluationCreatedAny  = "facilities.evaluation.*.created"
	SubjectEvaluationReviewedAny = "facilities.evaluation.*.reviewed"
)

// StreamSubjects lists the subject trees captured by the event stream.
var StreamSubjects = []string{
	"facilities.evaluation.>",
	"facilities.project.>",
	"facilities.configuration.>",
}

func SubjectEvaluationCreated(evaluationID string) string {
	return "facilities.evaluation." + evaluationID + ".created"
}

func SubjectEvaluationReviewed(evaluationID string) string {
	return "facilities.evaluation." + evaluationID + ".reviewed"
}

func SubjectProjectCreated(projectID string) string   { return "facilities.project." + projectID + ".created" }
func SubjectProjectScored(projectID string) string    { return "facilities.project." + projectID + ".scored" }
func SubjectProjectReopened(projectID string) string  { return "facilities.project." + projectID + ".reopened" }
func SubjectProjectFinalized(projectID string) string { return "facilities.project." + projectID + ".finalized" }
