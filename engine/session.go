package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/arvolve/arx-go-sdk/core"
)

// Session records one agent run: the task, every step taken, and the final
// status. Once a terminal status is set, no further steps may be appended.
type Session struct {
	ID        string
	Task      string
	Steps     []core.AgentStep
	Status    core.SessionStatus
	Answer    string
	StartedAt time.Time
	EndedAt   time.Time
}

// NewSession creates an in-progress session for task.
func NewSession(task string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Task:      task,
		Status:    core.StatusInProgress,
		StartedAt: time.Now(),
	}
}

// AddStep appends a step. Appending to a terminated session returns
// core.ErrSessionTerminated.
func (s *Session) AddStep(step core.AgentStep) error {
	if s.Status.Terminal() {
		return core.ErrSessionTerminated
	}
	step.Index = len(s.Steps)
	step.Timestamp = time.Now()
	s.Steps = append(s.Steps, step)
	return nil
}

// Terminate sets the final status and answer. The first terminal status
// wins; later calls are no-ops.
func (s *Session) Terminate(status core.SessionStatus, answer string) {
	if s.Status.Terminal() {
		return
	}
	s.Status = status
	s.Answer = answer
	s.EndedAt = time.Now()
}

// FailedSteps counts the steps recorded as failures.
func (s *Session) FailedSteps() int {
	n := 0
	for _, step := range s.Steps {
		if step.Failed {
			n++
		}
	}
	return n
}

// LastResult returns the most recent successful tool result, the best
// partial answer available when a run terminates without a final answer.
func (s *Session) LastResult() string {
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if !s.Steps[i].Failed && s.Steps[i].Result != "" {
			return s.Steps[i].Result
		}
	}
	return ""
}
