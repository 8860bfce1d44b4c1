package component

import (
	"slices"
	"sync"
)

// Stream is an ordered broadcast of nodes. Listeners run synchronously in
// subscription order.
type Stream struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(Node)
	closed bool
}

func newStream() *Stream {
	return &Stream{subs: make(map[uint64]func(Node))}
}

// Subscribe registers fn until the returned cancel func is called or the
// stream completes.
func (s *Stream) Subscribe(fn func(Node)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Stream) emit(n Node) {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Node), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.subs)
}
