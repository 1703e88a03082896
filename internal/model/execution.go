package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Execution status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// validTransitions maps each status to the set of statuses it may transition to.
// An execution must be observed running before it can reach a terminal status,
// and terminal statuses have no outgoing edges.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// TerminalStatus reports whether a status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Execution represents one submitted unit of work and its tracked lifecycle.
// Result is populated only for completed executions, Error only for failed ones.
// Each timestamp is set at most once and never reset.
type Execution struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has reached a terminal status.
func (e Execution) Terminal() bool {
	return TerminalStatus(e.Status)
}

// Clone returns a deep copy of the execution. Payload bytes and timestamp
// pointers are copied so the holder cannot reach back into shared state.
func (e Execution) Clone() Execution {
	c := e
	c.Input = bytes.Clone(e.Input)
	c.Result = bytes.Clone(e.Result)
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
