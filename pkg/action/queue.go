package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
)

// DefaultCapacity is the number of operations that may wait behind the active one.
const DefaultCapacity = 5

// Operation is a unit of asynchronous work. It may call emit any number of
// times before returning. ctx is cancelled when the operation is cancelled or
// the queue stops.
type Operation func(ctx context.Context, emit func(item any)) error

// Queue runs operations one at a time in post order.
type Queue struct {
	mu       sync.Mutex
	active   bool
	current  *Proxy
	pending  []*Proxy
	capacity int
	logger   log.Logger
}

// NewQueue creates a stopped queue. A capacity below 1 means DefaultCapacity.
func NewQueue(capacity int, logger log.Logger) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		logger:   log.OrNoop(logger),
	}
}

// Capacity returns the maximum number of pending operations.
func (q *Queue) Capacity() int { return q.capacity }

// Active reports whether the queue accepts operations.
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending returns the number of operations waiting behind the active one.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running reports whether an operation currently occupies the active slot.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

// Start makes the queue accept operations.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active {
		return lifecycle.Errorf("action queue already started")
	}
	q.active = true
	return nil
}

// Stop rejects further operations, fails the active one with
// ErrPrematureTermination and every pending one with ErrCannotExecute.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return lifecycle.Errorf("action queue not started")
	}
	q.active = false
	current, pending := q.current, q.pending
	q.current, q.pending = nil, nil
	q.mu.Unlock()

	if current != nil {
		current.finish(fmt.Errorf("%w: host stopped", ErrPrematureTermination), false)
	}
	for _, p := range pending {
		p.finish(fmt.Errorf("%w: host stopped", ErrCannotExecute), false)
	}
	if current != nil || len(pending) > 0 {
		q.logger.Debug("action queue stopped",
			log.Bool("aborted_active", current != nil),
			log.Int("dropped_pending", len(pending)),
		)
	}
	return nil
}

// Post enqueues op and returns its proxy. Post fails with ErrCannotExecute,
// without queueing, when the queue is stopped or its pending list is full.
func (q *Queue) Post(op Operation) (*Proxy, error) {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: host inactive", ErrCannotExecute)
	}
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		q.logger.Warn("action rejected, queue full", log.Int("capacity", q.capacity))
		return nil, fmt.Errorf("%w: queue full (capacity %d)", ErrCannotExecute, q.capacity)
	}
	p := newProxy(q, op)
	launch := q.current == nil
	if launch {
		q.current = p
	} else {
		q.pending = append(q.pending, p)
	}
	q.mu.Unlock()

	if launch {
		p.launch()
	}
	return p, nil
}

// complete frees the slot held by p, if it still holds it, and starts the
// next pending operation.
func (q *Queue) complete(p *Proxy) {
	q.mu.Lock()
	if q.current != p {
		q.mu.Unlock()
		return
	}
	next := q.advanceLocked()
	q.mu.Unlock()

	if next != nil {
		next.launch()
	}
}

// cancel removes p from the queue wherever it is.
func (q *Queue) cancel(p *Proxy) {
	q.mu.Lock()
	var next *Proxy
	if q.current == p {
		next = q.advanceLocked()
	} else {
		for i, pp := range q.pending {
			if pp == p {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				break
			}
		}
	}
	q.mu.Unlock()

	p.finish(nil, true)
	if next != nil {
		next.launch()
	}
}

func (q *Queue) advanceLocked() *Proxy {
	q.current = nil
	if len(q.pending) == 0 {
		return nil
	}
	next := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.current = next
	return next
}
