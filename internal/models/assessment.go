// Package models defines assessment catalog and progression structures.
package models

import "time"

// AssessmentStep is one question in an assessment. Step keys are unique
// within an assessment and step order defines the only valid progression.
type AssessmentStep struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
}

// AssessmentDefinition describes one assessment in the static catalog.
type AssessmentDefinition struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	ProfileSection string           `json:"profile_section"`
	Steps          []AssessmentStep `json:"steps"`
}

// StepIndex returns the index of the step with the given key, or -1.
func (d AssessmentDefinition) StepIndex(key string) int {
	for i, s := range d.Steps {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// AssessmentSummary is the catalog projection exposed by the list operation.
type AssessmentSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StepCount   int    `json:"step_count"`
}

// AssessmentStatus classifies the outcome of a state machine operation.
type AssessmentStatus string

const (
	// AssessmentStatusStarted indicates a new assessment was started (step 0 dispatched).
	AssessmentStatusStarted AssessmentStatus = "started"
	// AssessmentStatusInProgress indicates an answer was recorded and a next step follows.
	AssessmentStatusInProgress AssessmentStatus = "in_progress"
	// AssessmentStatusConfirmStart indicates an answer arrived with no step key while
	// still at step 0; the first step is re-dispatched and nothing is recorded.
	// Callers must not treat the triggering message as a recorded answer.
	AssessmentStatusConfirmStart AssessmentStatus = "confirm_start"
	// AssessmentStatusCompleted indicates the final answer was recorded and the
	// assessment's analysis ran.
	AssessmentStatusCompleted AssessmentStatus = "completed"
)

// AssessmentResult is the outcome of a start/answer/status operation.
type AssessmentResult struct {
	Status      AssessmentStatus  `json:"status"`
	Assessment  string            `json:"assessment"`
	CurrentStep *AssessmentStep   `json:"current_step,omitempty"`
	NextStep    *AssessmentStep   `json:"next_step,omitempty"`
	Progress    Progress          `json:"progress"`
	Answers     map[string]string `json:"answers,omitempty"`
	Results     map[string]any    `json:"results,omitempty"`
	Insights    []string          `json:"insights,omitempty"`
}

// ScoringDimension names one of the six scored business dimensions.
type ScoringDimension string

const (
	DimensionFinancial   ScoringDimension = "financial"
	DimensionOperational ScoringDimension = "operational"
	DimensionTooling     ScoringDimension = "tooling"
	DimensionMarket      ScoringDimension = "market"
	DimensionStrategy    ScoringDimension = "strategy"
	DimensionContext     ScoringDimension = "context"
)

// Moment is the three-tier qualitative label derived from a numeric score.
type Moment string

const (
	MomentSurvival     Moment = "Survival"
	MomentOrganization Moment = "Organization"
	MomentGrowth       Moment = "Growth"
)

// DimensionScore is the scored result for one dimension.
type DimensionScore struct {
	Score  int    `json:"score"`
	Moment Moment `json:"moment"`
}

// ScoringSnapshot is the last computed multi-dimensional score for a user.
// Dimensions with no contributing profile fields are absent, not zero.
type ScoringSnapshot struct {
	Dimensions map[ScoringDimension]DimensionScore `json:"dimensions"`
	Average    float64                             `json:"average"`
	Moment     Moment                              `json:"moment"`
	ComputedAt time.Time                           `json:"computed_at"`
}
