package beacon

import (
	"sync"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon/event"
)

// item is a queued event plus its retry state. First-attempt items
// have zero attempts and a zero eligibility time.
type item struct {
	evt         *event.Event
	attempts    int       // failed delivery attempts so far
	nextAttempt time.Time // zero means eligible immediately
	lastErr     error     // error from the most recent attempt
}

// queue is the unbounded FIFO pending buffer. push never blocks and
// never fails; that property is what lets Dispatch stay on the caller's
// hot path.
type queue struct {
	mu    sync.Mutex
	items []item
}

func newQueue() *queue {
	return &queue{}
}

// push appends a fresh event to the tail.
func (q *queue) push(evt *event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item{evt: evt})
}

// requeue appends a retried item to the tail, retry state intact.
func (q *queue) requeue(it item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, it)
}

// requeueFront puts an item back at the head. Used when a drain stops
// without attempting the item, so dispatch order is preserved.
func (q *queue) requeueFront(it item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]item{it}, q.items...)
}

// pop removes and returns the head item. The second return is false
// when the queue is empty.
func (q *queue) pop() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item{}, false
	}
	it := q.items[0]
	q.items[0] = item{} // release the event pointer
	q.items = q.items[1:]
	return it, true
}

// len returns the number of pending items.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// events returns the pending events in queue order.
func (q *queue) events() []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*event.Event, len(q.items))
	for i, it := range q.items {
		out[i] = it.evt
	}
	return out
}
