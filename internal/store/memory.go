package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/seantiz/kiln/internal/model"
)

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store with an in-process registry. Records live only
// for the process lifetime; nothing is persisted.
//
// The registry is append-only unless a capacity is configured, in which case
// Create evicts the oldest terminal record once the registry is full.
// In-flight records are never evicted, since evicting one would strand its
// dispatcher goroutine's later transitions. The cap is therefore soft while
// everything in the registry is still pending or running.
type MemoryStore struct {
	mu       sync.RWMutex
	execs    map[string]*model.Execution
	order    []string // ids in creation order
	capacity int

	now   func() time.Time
	newID func() string
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the timestamp source. Used by tests that need
// deterministic created_at/started_at/completed_at values.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithIDFunc overrides the id generator.
func WithIDFunc(f func() string) Option {
	return func(s *MemoryStore) { s.newID = f }
}

// WithCapacity bounds the registry to n records, evicting oldest-first among
// terminal records. n <= 0 leaves the registry unbounded, which matches the
// default behavior and is a documented operational limitation.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) { s.capacity = n }
}

// NewMemoryStore creates an empty in-memory execution store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		execs: make(map[string]*model.Execution),
		now:   time.Now,
		newID: model.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a pending execution and returns its id. The input payload is
// cloned so later mutation of the caller's slice cannot reach stored state.
func (s *MemoryStore) Create(_ context.Context, kind string, input json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, exists := s.execs[id]; exists {
		return "", fmt.Errorf("duplicate execution id %q", id)
	}

	s.evictLocked()

	s.execs[id] = &model.Execution{
		ID:        id,
		Kind:      kind,
		Status:    model.StatusPending,
		Input:     bytes.Clone(input),
		CreatedAt: s.now().UTC(),
	}
	s.order = append(s.order, id)

	return id, nil
}

// evictLocked drops the oldest terminal execution when the registry is at
// capacity. Caller must hold the write lock.
func (s *MemoryStore) evictLocked() {
	if s.capacity <= 0 || len(s.execs) < s.capacity {
		return
	}
	for i, id := range s.order {
		if s.execs[id].Terminal() {
			delete(s.execs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Get returns a snapshot of the execution, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.execs[id]
	if !ok {
		return model.Execution{}, ErrNotFound
	}
	return e.Clone(), nil
}

// Transition applies a status change under the write lock, so concurrent
// transitions on the same id are serialized and the loser of a race to make an
// illegal move is rejected without touching the record.
func (s *MemoryStore) Transition(_ context.Context, id, status string, oc Outcome) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.execs[id]
	if !ok {
		return model.Execution{}, ErrNotFound
	}
	if !model.ValidTransition(e.Status, status) {
		return model.Execution{}, fmt.Errorf("%s -> %s: %w", e.Status, status, ErrInvalidTransition)
	}

	now := s.now().UTC()
	e.Status = status
	switch status {
	case model.StatusRunning:
		e.StartedAt = &now
	case model.StatusCompleted:
		e.CompletedAt = &now
		e.Result = bytes.Clone(oc.Result)
	case model.StatusFailed:
		e.CompletedAt = &now
		e.Error = oc.Error
	}

	return e.Clone(), nil
}

// List returns the matching executions in creation order. The sequence is
// restartable: each evaluation re-reads the store.
func (s *MemoryStore) List(f Filter) iter.Seq[model.Execution] {
	return func(yield func(model.Execution) bool) {
		for _, e := range s.collect(f) {
			if !yield(e) {
				return
			}
		}
	}
}

// collect snapshots the matching executions under the read lock, so iteration
// never runs caller code while the lock is held.
func (s *MemoryStore) collect(f Filter) []model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Execution
	for _, id := range s.order {
		e := s.execs[id]
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Stats aggregates counts by status and kind, plus the average
// started-to-completed duration over finished executions.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:         len(s.execs),
		CountByStatus: make(map[string]int),
		CountByKind:   make(map[string]int),
	}

	var durTotal float64
	var durCount int
	for _, e := range s.execs {
		st.CountByStatus[e.Status]++
		st.CountByKind[e.Kind]++
		if e.StartedAt != nil && e.CompletedAt != nil {
			durTotal += float64(e.CompletedAt.Sub(*e.StartedAt).Milliseconds())
			durCount++
		}
	}
	if durCount > 0 {
		st.AvgDurationMS = durTotal / float64(durCount)
	}

	return st, nil
}
