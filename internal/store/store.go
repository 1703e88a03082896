package store

import (
	"context"
	"encoding/json"
	"errors"
	"iter"

	"github.com/seantiz/kiln/internal/model"
)

// ErrNotFound is returned when an execution is not found.
var ErrNotFound = errors.New("execution not found")

// ErrInvalidTransition is returned when an execution status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Outcome carries the terminal payload for a transition: Result for completed
// executions, Error for failed ones. Only the field matching the target status
// is applied.
type Outcome struct {
	Result json.RawMessage
	Error  string
}

// Filter selects executions for List. Zero values match everything.
type Filter struct {
	Kind   string
	Status string
	Limit  int // 0 = no limit; otherwise the oldest Limit matches are kept
}

// Stats holds aggregate execution statistics.
type Stats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByKind   map[string]int `json:"count_by_kind"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the tracking operations for executions. Implementations must be
// safe for concurrent use, and every Execution they return is a snapshot
// detached from live state.
type Store interface {
	// Create inserts a pending execution and returns its fresh id.
	Create(ctx context.Context, kind string, input json.RawMessage) (string, error)

	// Get returns a snapshot of the execution, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Execution, error)

	// Transition moves an execution to a new status, stamping the
	// corresponding timestamp and applying the outcome for terminal statuses.
	// Illegal moves return ErrInvalidTransition and leave the record
	// unchanged. The post-transition snapshot is returned on success.
	Transition(ctx context.Context, id, status string, oc Outcome) (model.Execution, error)

	// List returns the matching executions ordered by created_at ascending.
	// The sequence is lazy and restartable: each evaluation re-reads the
	// store, so two evaluations agree unless the store mutated in between.
	List(f Filter) iter.Seq[model.Execution]

	// Stats aggregates counts and durations over the current registry.
	Stats(ctx context.Context) (Stats, error)
}
