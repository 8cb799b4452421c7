// Package models defines the core data structures for MomentoBot.
//
// It includes user profiles, assessment progress, conversation messages, and
// the shared API response envelope used across modules.
package models

import (
	"time"
)

// UserStatus represents the engagement status of a user.
type UserStatus string

const (
	// UserStatusActive indicates the user has interacted within the inactivity window.
	UserStatusActive UserStatus = "active"
	// UserStatusInactive indicates the user has not interacted for at least the inactivity window.
	UserStatusInactive UserStatus = "inactive"
)

// InactivityWindow is the duration after which a user with no writes is
// classified as inactive and becomes eligible for re-engagement.
const InactivityWindow = 7 * 24 * time.Hour

// Progress tracks a user's position inside an in-flight assessment.
// CurrentAssessment empty means no assessment is in flight; StepIndex is
// always a valid index into the assessment's step list, or equal to its
// length while completion processing is pending.
type Progress struct {
	CurrentAssessment string            `json:"current_assessment,omitempty"`
	StepIndex         int               `json:"step_index"`
	Answers           map[string]string `json:"answers,omitempty"`
}

// Active reports whether an assessment is in flight.
func (p Progress) Active() bool {
	return p.CurrentAssessment != ""
}

// UserProfile is the persisted document for one end-user, keyed by a stable
// user identifier (canonical phone number). Profile sections are replaced
// wholesale at assessment completion, never merged field-by-field.
type UserProfile struct {
	ID        string                    `json:"id"`
	Status    UserStatus                `json:"status"`
	Profile   map[string]map[string]any `json:"profile,omitempty"`
	Progress  Progress                  `json:"progress"`
	Scoring   *ScoringSnapshot          `json:"scoring,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// NewUserProfile creates a profile document for a first-time user.
func NewUserProfile(id string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		ID:        id,
		Status:    UserStatusActive,
		Profile:   make(map[string]map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Section returns the named profile section, or nil if never written.
func (up *UserProfile) Section(name string) map[string]any {
	if up.Profile == nil {
		return nil
	}
	return up.Profile[name]
}

// ReplaceSection overwrites the named profile section wholesale.
func (up *UserProfile) ReplaceSection(name string, fields map[string]any) {
	if up.Profile == nil {
		up.Profile = make(map[string]map[string]any)
	}
	up.Profile[name] = fields
}

// InboundMessage is the normalized inbound message consumed from the
// messaging channel. Only the fields the orchestrator uses are modeled.
type InboundMessage struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"` // canonical user identifier
	Body      string `json:"body"`
	Time      int64  `json:"time"` // unix seconds
}

// VectorResult is one similarity search hit. Ephemeral, never persisted.
type VectorResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// TurnResult is the outcome of processing one inbound turn.
type TurnResult struct {
	Matches []VectorResult `json:"matches"`
	Answer  string         `json:"answer"`
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records a delivery status change for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope for API responses.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
