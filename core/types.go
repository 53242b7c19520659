package core

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ConversationTurn is a single exchange entry in short-term memory.
// Turns are immutable once created.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// TurnRange identifies the span of appended turns an insight condenses.
// From and To are 1-based global turn numbers, inclusive.
type TurnRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// LongTermInsight is a condensed summary extracted from evicted short-term
// turns. Insights are append-only and never edited in place.
type LongTermInsight struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Covers    TurnRange `json:"covers"`
}

// StepAction is the kind of action an agent step took.
type StepAction string

const (
	ActionRespond  StepAction = "respond"
	ActionCallTool StepAction = "call_tool"
)

// AgentStep records one iteration of the agent loop.
type AgentStep struct {
	Index     int             `json:"index"`
	Action    StepAction      `json:"action"`
	Thought   string          `json:"thought,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Result    string          `json:"result,omitempty"`
	Failed    bool            `json:"failed,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SessionStatus is the terminal (or in-progress) state of an agent session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusStepLimit  SessionStatus = "step-limit-reached"
	StatusError      SessionStatus = "error"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether the status permits no further steps.
func (s SessionStatus) Terminal() bool {
	return s != StatusInProgress
}
