package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/kiln/internal/job"
	"github.com/seantiz/kiln/internal/journal"
	"github.com/seantiz/kiln/internal/model"
	"github.com/seantiz/kiln/internal/store"
)

// Dispatcher bridges synchronous submission to asynchronous execution. Submit
// records the execution and returns its id without waiting; a per-job
// goroutine drives the record through running to exactly one terminal status.
type Dispatcher struct {
	store   store.Store
	logger  *slog.Logger
	wg      sync.WaitGroup
	broker  *Broker
	journal *journal.Journal
	slots   chan struct{} // nil when concurrency is unlimited
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxConcurrent bounds how many job bodies run at once. Queued jobs stay
// pending until a slot frees up; Submit itself never blocks. n <= 0 leaves
// concurrency unlimited.
func WithMaxConcurrent(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.slots = make(chan struct{}, n)
		}
	}
}

// WithJournal attaches a transition journal. Appends are best-effort: a
// journal failure is logged and never affects the execution.
func WithJournal(j *journal.Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

// NewDispatcher creates a dispatcher writing to the given store.
func NewDispatcher(s store.Store, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  s,
		logger: logger,
		broker: NewBroker(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Broker returns the dispatcher's status broker for SSE subscription.
func (d *Dispatcher) Broker() *Broker {
	return d.broker
}

// Submit records a pending execution for the given kind and schedules body to
// run in its own goroutine. The returned id is available immediately; the
// caller never waits on the body.
func (d *Dispatcher) Submit(ctx context.Context, kind string, input json.RawMessage, body job.Body) (string, error) {
	id, err := d.store.Create(ctx, kind, input)
	if err != nil {
		return "", fmt.Errorf("create execution: %w", err)
	}

	d.recordEvent(model.Execution{ID: id, Kind: kind, Status: model.StatusPending})

	d.wg.Go(func() {
		d.run(id, kind, input, body)
	})

	return id, nil
}

// Drain waits for all in-flight job goroutines to finish, or for ctx to
// expire. Jobs are not interrupted; a hung body holds Drain until its
// goroutine returns or the deadline passes.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one execution lifecycle: pending -> running -> completed/failed.
func (d *Dispatcher) run(id, kind string, input json.RawMessage, body job.Body) {
	executionsInFlight.Inc()
	defer executionsInFlight.Dec()

	// A bounded dispatcher queues here, so a job waiting for a slot is
	// observably pending.
	if d.slots != nil {
		d.slots <- struct{}{}
		defer func() { <-d.slots }()
	}

	// Close the status stream when the execution settles, regardless of outcome.
	defer d.broker.Close(id)

	fin := &finisher{d: d, id: id, kind: kind}
	defer fin.settle()

	if !fin.start() {
		return
	}

	// The body runs with no deadline: once started, a job runs to its own
	// completion or failure. A body that never returns holds its slot (and
	// Drain) forever.
	result, err := body(context.Background(), id, input)
	if err != nil {
		fin.fail(err.Error())
		return
	}
	fin.complete(result)
}

// recordEvent appends a lifecycle event to the journal when one is configured.
func (d *Dispatcher) recordEvent(e model.Execution) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(context.Background(), e); err != nil {
		d.logger.Error("failed to journal execution event",
			"execution_id", e.ID, "status", e.Status, "error", err)
	}
}

// finisher is the scoped handle that owns an execution's terminal transition.
// Exactly one of complete or fail must be called. The deferred settle turns a
// panic into a failure, and loudly repairs the case where the body returned
// without anyone reporting an outcome, so a record can never stick in running.
type finisher struct {
	d       *Dispatcher
	id      string
	kind    string
	started time.Time
	settled bool
	aborted bool
}

// start moves the execution to running. A false return means the record could
// not be started (it vanished, or was transitioned by something else) and the
// body must not run.
func (f *finisher) start() bool {
	e, err := f.d.store.Transition(context.Background(), f.id, model.StatusRunning, store.Outcome{})
	if err != nil {
		f.d.logger.Error("failed to transition to running",
			"execution_id", f.id, "kind", f.kind, "error", err)
		f.aborted = true
		return false
	}

	f.started = time.Now()
	f.d.broker.Publish(f.id, e)
	f.d.recordEvent(e)
	return true
}

// complete reports the body's successful result. An empty result is stored as
// JSON null so terminal records always carry exactly one non-empty outcome.
func (f *finisher) complete(result json.RawMessage) {
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	f.finish(model.StatusCompleted, store.Outcome{Result: result})
}

// fail reports the body's failure cause.
func (f *finisher) fail(msg string) {
	f.finish(model.StatusFailed, store.Outcome{Error: msg})
}

func (f *finisher) finish(status string, oc store.Outcome) {
	if f.aborted {
		return
	}
	if f.settled {
		f.d.logger.Error("execution outcome reported twice",
			"execution_id", f.id, "kind", f.kind, "status", status)
		return
	}
	f.settled = true

	e, err := f.d.store.Transition(context.Background(), f.id, status, oc)
	if err != nil {
		// An illegal transition here is a dispatcher bug; a missing record
		// means it was evicted mid-flight. Either way the gap must be visible.
		f.d.logger.Error("failed to finish execution",
			"execution_id", f.id, "kind", f.kind, "status", status, "error", err)
		return
	}

	executionsTotal.WithLabelValues(f.kind, status).Inc()
	if !f.started.IsZero() {
		executionDuration.WithLabelValues(f.kind).Observe(time.Since(f.started).Seconds())
	}

	f.d.broker.Publish(f.id, e)
	f.d.recordEvent(e)
}

// settle is deferred around the body. It recovers a panic into a failure and
// force-fails an execution whose body returned without reporting an outcome.
func (f *finisher) settle() {
	if r := recover(); r != nil {
		f.fail(fmt.Sprintf("job body panicked: %v", r))
		return
	}
	if f.settled || f.aborted {
		return
	}

	f.d.logger.Error("job body finished without reporting an outcome",
		"execution_id", f.id, "kind", f.kind)
	f.fail("job finished without reporting an outcome")
}
