package action

import (
	"context"
	"fmt"
	"sync"
)

type proxyState int

const (
	statePending proxyState = iota
	stateActive
	stateCompleted
)

// Observer receives the outcome of an operation. Either func may be nil.
// OnDone receives nil when the operation succeeded or was cancelled.
type Observer struct {
	OnNext func(item any)
	OnDone func(err error)
}

type observer struct {
	Observer
	cursor   int
	finished bool
	removed  bool
}

// Proxy is the shared handle of a posted operation.
type Proxy struct {
	q  *Queue
	op Operation

	mu        sync.Mutex
	state     proxyState
	items     []any
	err       error
	cancelled bool
	cancelCtx context.CancelFunc
	observers []*observer
	refs      int
	draining  bool
	done      chan struct{}
}

func newProxy(q *Queue, op Operation) *Proxy {
	return &Proxy{q: q, op: op, done: make(chan struct{})}
}

func (p *Proxy) launch() {
	p.mu.Lock()
	if p.state != statePending {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.state = stateActive
	p.cancelCtx = cancel
	p.mu.Unlock()

	go func() {
		err := p.run(ctx)
		p.finish(err, false)
		p.q.complete(p)
	}()
}

func (p *Proxy) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("canopy: action panicked: %v", r)
		}
	}()
	return p.op(ctx, p.emit)
}

func (p *Proxy) emit(item any) {
	p.mu.Lock()
	if p.state != stateActive {
		p.mu.Unlock()
		return
	}
	p.items = append(p.items, item)
	p.mu.Unlock()
	p.drain()
}

// finish moves the proxy to its terminal state. Later calls are ignored.
func (p *Proxy) finish(err error, cancelled bool) {
	p.mu.Lock()
	if p.state == stateCompleted {
		p.mu.Unlock()
		return
	}
	p.state = stateCompleted
	p.err = err
	p.cancelled = cancelled
	if p.cancelCtx != nil {
		p.cancelCtx()
	}
	close(p.done)
	p.mu.Unlock()
	p.drain()
}

// drain delivers outstanding notifications. Only one goroutine drains at a
// time; concurrent callers leave their work to it.
func (p *Proxy) drain() {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	for {
		deliver := p.nextLocked()
		if deliver == nil {
			p.draining = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		deliver()
		p.mu.Lock()
	}
}

func (p *Proxy) nextLocked() func() {
	for _, o := range p.observers {
		if o.removed || o.finished {
			continue
		}
		if o.cursor < len(p.items) {
			item := p.items[o.cursor]
			o.cursor++
			if fn := o.OnNext; fn != nil {
				return func() { fn(item) }
			}
			return func() {}
		}
		if p.state == stateCompleted {
			o.finished = true
			err := p.err
			if fn := o.OnDone; fn != nil {
				return func() { fn(err) }
			}
			return func() {}
		}
	}
	return nil
}

// Subscribe registers an observer. Items emitted so far are replayed to it.
// Callbacks run on whichever goroutine is delivering, never concurrently for
// one proxy.
func (p *Proxy) Subscribe(o Observer) *Subscription {
	obs := &observer{Observer: o}
	p.mu.Lock()
	p.observers = append(p.observers, obs)
	p.refs++
	p.mu.Unlock()
	p.drain()
	return &Subscription{p: p, obs: obs}
}

// Cancel cancels the operation regardless of its observers.
// Observers are completed with a nil error.
func (p *Proxy) Cancel() {
	p.mu.Lock()
	completed := p.state == stateCompleted
	p.mu.Unlock()
	if !completed {
		p.q.cancel(p)
	}
}

// Done is closed when the operation reaches a terminal state.
func (p *Proxy) Done() <-chan struct{} { return p.done }

// Err returns the terminal error, or nil while running, on success and after
// cancellation.
func (p *Proxy) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Cancelled reports whether the operation was cancelled.
func (p *Proxy) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Items returns a copy of the items emitted so far.
func (p *Proxy) Items() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.items...)
}

// Wait blocks until the operation finishes and returns its items and error.
// Wait does not count as an observer.
func (p *Proxy) Wait(ctx context.Context) ([]any, error) {
	select {
	case <-p.done:
		return p.Items(), p.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// First waits for p and returns its first item of type T.
func First[T any](ctx context.Context, p *Proxy) (T, error) {
	var zero T
	items, err := p.Wait(ctx)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if v, ok := it.(T); ok {
			return v, nil
		}
	}
	return zero, fmt.Errorf("canopy: action produced no %T", zero)
}

// Subscription is one observer's registration on a proxy.
type Subscription struct {
	p    *Proxy
	obs  *observer
	once sync.Once
}

// Cancel unregisters the observer. Cancelling the last observer of an
// unfinished operation cancels the operation.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		p := s.p
		p.mu.Lock()
		s.obs.removed = true
		p.refs--
		last := p.refs == 0 && p.state != stateCompleted
		p.observers = compact(p.observers)
		p.mu.Unlock()
		if last {
			p.q.cancel(p)
		}
	})
}

func compact(obs []*observer) []*observer {
	kept := obs[:0]
	for _, o := range obs {
		if !o.removed {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(obs); i++ {
		obs[i] = nil
	}
	return kept
}
