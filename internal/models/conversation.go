// Package models defines the conversation message union persisted per user.
package models

import "time"

// MessageRole tags one variant of the conversation message union.
type MessageRole string

const (
	// RoleUser is a message authored by the end-user.
	RoleUser MessageRole = "user"
	// RoleAssistant is a message authored by the agent.
	RoleAssistant MessageRole = "assistant"
	// RoleToolResult is a synthetic backend action result. Tool-result
	// messages are stripped before history re-enters a fresh completion
	// request that did not originate the corresponding tool call.
	RoleToolResult MessageRole = "tool"
)

// ConversationMessage is a single entry in a user's persisted history.
type ConversationMessage struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolName   string      `json:"tool_name,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NormalizeRole maps an arbitrary role string from a system boundary into
// the closed message union. Unrecognized roles normalize to RoleUser so
// boundary data never branches on shape deeper in the pipeline.
func NormalizeRole(role string) MessageRole {
	switch MessageRole(role) {
	case RoleUser, RoleAssistant, RoleToolResult:
		return MessageRole(role)
	default:
		return RoleUser
	}
}

// ConversationHistory is the ordered message history for one user.
type ConversationHistory struct {
	Messages []ConversationMessage `json:"messages"`
}

// WithoutToolResults returns the history with tool-result messages removed.
// A stale tool message without its matching call is invalid input to the
// completion API and must be filtered defensively.
func (h ConversationHistory) WithoutToolResults() []ConversationMessage {
	out := make([]ConversationMessage, 0, len(h.Messages))
	for _, m := range h.Messages {
		if m.Role == RoleToolResult {
			continue
		}
		out = append(out, m)
	}
	return out
}
