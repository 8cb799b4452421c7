// Package models defines tool structures for LLM function calling.
package models

import (
	"encoding/json"
	"fmt"
)

// ToolName identifies one of the backend actions the LLM may request.
// The set is closed; unknown names are rejected at the dispatch boundary.
type ToolName string

const (
	// ToolSuggestAssessment asks for the best-matching assessment for a free-text need.
	ToolSuggestAssessment ToolName = "suggest_assessment"
	// ToolStartAssessment starts (or idempotently resumes) a named assessment.
	ToolStartAssessment ToolName = "start_assessment"
	// ToolProcessAnswer records an answer for the user's in-flight assessment.
	ToolProcessAnswer ToolName = "process_assessment_answer"
)

// IsKnownTool reports whether the name belongs to the closed action set.
func IsKnownTool(name string) bool {
	switch ToolName(name) {
	case ToolSuggestAssessment, ToolStartAssessment, ToolProcessAnswer:
		return true
	default:
		return false
	}
}

// ToolCall represents an LLM tool function call.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the function details within a tool call.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// SuggestAssessmentParams are the arguments of the suggest_assessment tool.
type SuggestAssessmentParams struct {
	Query string `json:"query"`
}

// StartAssessmentParams are the arguments of the start_assessment tool.
type StartAssessmentParams struct {
	Assessment string `json:"assessment"`
}

// ProcessAnswerParams are the arguments of the process_assessment_answer tool.
type ProcessAnswerParams struct {
	Assessment string `json:"assessment"`
	Answer     string `json:"answer"`
	StepKey    string `json:"step_key,omitempty"`
}

// ToolAction is the closed tagged union of dispatched backend actions.
// Exactly one variant is non-nil.
type ToolAction struct {
	Suggest *SuggestAssessmentParams
	Start   *StartAssessmentParams
	Answer  *ProcessAnswerParams
}

// ParseToolAction decodes a function call into the closed action union.
func ParseToolAction(fc FunctionCall) (*ToolAction, error) {
	switch ToolName(fc.Name) {
	case ToolSuggestAssessment:
		var p SuggestAssessmentParams
		if err := json.Unmarshal(fc.Arguments, &p); err != nil {
			return nil, fmt.Errorf("failed to parse suggest_assessment arguments: %w", err)
		}
		if p.Query == "" {
			return nil, fmt.Errorf("suggest_assessment requires a query")
		}
		return &ToolAction{Suggest: &p}, nil
	case ToolStartAssessment:
		var p StartAssessmentParams
		if err := json.Unmarshal(fc.Arguments, &p); err != nil {
			return nil, fmt.Errorf("failed to parse start_assessment arguments: %w", err)
		}
		if p.Assessment == "" {
			return nil, fmt.Errorf("start_assessment requires an assessment name")
		}
		return &ToolAction{Start: &p}, nil
	case ToolProcessAnswer:
		var p ProcessAnswerParams
		if err := json.Unmarshal(fc.Arguments, &p); err != nil {
			return nil, fmt.Errorf("failed to parse process_assessment_answer arguments: %w", err)
		}
		if p.Assessment == "" {
			return nil, fmt.Errorf("process_assessment_answer requires an assessment name")
		}
		return &ToolAction{Answer: &p}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", fc.Name)
	}
}
