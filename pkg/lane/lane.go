package lane

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/canopy/pkg/log"
)

// ErrClosed is returned when work is submitted to a closed lane.
var ErrClosed = errors.New("canopy: lane closed")

// Lane is a single-goroutine FIFO executor.
type Lane struct {
	name   string
	logger log.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}
}

// New creates a lane and starts its goroutine.
func New(name string, logger log.Logger) *Lane {
	l := &Lane{
		name:   name,
		logger: log.OrNoop(logger),
		tasks:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Post appends fn to the lane. It returns false if the lane is closed.
func (l *Lane) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the lane and waits for it to return.
// Do must not be called from the lane itself.
func (l *Lane) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every func posted before the call has run.
func (l *Lane) Flush(ctx context.Context) error {
	return l.Do(ctx, func() {})
}

// Len returns the number of funcs waiting to run.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Close stops accepting work. Funcs already posted still run.
func (l *Lane) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Done is closed once the lane is closed and drained.
func (l *Lane) Done() <-chan struct{} {
	return l.done
}

func (l *Lane) run() {
	defer close(l.done)
	for {
		if fn, ok := l.next(); ok {
			l.exec(fn)
			continue
		}

		l.mu.Lock()
		finished := l.closed && len(l.tasks) == 0
		l.mu.Unlock()
		if finished {
			return
		}
		<-l.signal
	}
}

func (l *Lane) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return fn, true
}

// exec runs fn and keeps the lane alive if it panics.
func (l *Lane) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("lane task panicked",
				log.String("lane", l.name),
				log.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}
