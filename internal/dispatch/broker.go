package dispatch

import (
	"sync"

	"github.com/seantiz/kiln/internal/model"
)

// subscriberBufferSize is the channel buffer for each status subscriber.
// Events are dropped if a subscriber falls this far behind; an execution
// produces at most a handful of status changes, so the buffer is generous.
const subscriberBufferSize = 16

// Broker fans execution status snapshots out to per-execution subscribers.
// It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after an execution settles) receive a closed channel instead of
// blocking forever. Each marker is a few bytes, which is acceptable for the
// expected execution volume.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan model.Execution
	nextID int
	closed bool
}

// NewBroker creates a new status broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

// Subscribe returns a channel that receives status snapshots for the given
// execution and an unsubscribe function. If the execution has already settled
// (Close was called), the returned channel is immediately closed.
func (b *Broker) Subscribe(executionID string) (<-chan model.Execution, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok {
		t = &topic{subs: make(map[int]chan model.Execution)}
		b.topics[executionID] = t
	}

	ch := make(chan model.Execution, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a status snapshot to all subscribers of the given execution.
// Events are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(executionID string, e model.Execution) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- e:
		default:
			// Drop the event for slow subscribers to avoid blocking dispatch.
		}
	}
}

// Close signals that no more status changes will be published for the given
// execution. All subscriber channels are closed and future Subscribe calls
// return a closed channel.
func (b *Broker) Close(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[executionID] = &topic{subs: make(map[int]chan model.Execution), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
