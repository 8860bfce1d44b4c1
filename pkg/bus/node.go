package bus

import (
	"sync"
	"sync/atomic"

	"github.com/bft-labs/canopy/pkg/lane"
	"github.com/bft-labs/canopy/pkg/lifecycle"
)

type channel int

const (
	events channel = iota
	actions
)

type subscriber struct {
	ch      channel
	consume bool
	match   func(any) bool
	fn      func(any)
	closed  atomic.Bool
	done    chan struct{}
}

// Subscription is an active observe or consume registration.
type Subscription struct {
	node *Node
	sub  *subscriber
}

// Cancel ends the subscription. For consumers, matching items propagate
// again from the next delivery on.
func (s *Subscription) Cancel() {
	s.node.remove(s.sub)
}

// Done is closed when the subscription is cancelled or the node is destroyed.
func (s *Subscription) Done() <-chan struct{} {
	return s.sub.done
}

// Node is one bus endpoint in the tree.
type Node struct {
	lane *lane.Lane

	mu        sync.Mutex
	subs      []*subscriber
	parent    *Node
	children  []*Node
	destroyed bool
}

// NewNode creates a detached bus node delivering on l.
func NewNode(l *lane.Lane) *Node {
	return &Node{lane: l}
}

// Attach bridges n into parent: n's unconsumed events flow into parent and
// parent's unconsumed actions flow into n.
func (n *Node) Attach(parent *Node) error {
	if parent == nil || parent == n {
		return lifecycle.Errorf("bus: invalid parent")
	}
	if parent.lane != n.lane {
		return lifecycle.Errorf("bus: parent delivers on a different lane")
	}
	n.mu.Lock()
	switch {
	case n.destroyed:
		n.mu.Unlock()
		return lifecycle.Errorf("bus: node destroyed")
	case n.parent != nil:
		n.mu.Unlock()
		return lifecycle.Errorf("bus: node already attached")
	}
	n.parent = parent
	n.mu.Unlock()

	parent.mu.Lock()
	parent.children = append(parent.children, n)
	parent.mu.Unlock()
	return nil
}

// Detach removes the bridges created by Attach. It is a no-op when n is not
// attached.
func (n *Node) Detach() {
	n.mu.Lock()
	parent := n.parent
	n.parent = nil
	n.mu.Unlock()
	if parent == nil {
		return
	}

	parent.mu.Lock()
	for i, c := range parent.children {
		if c == n {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	parent.mu.Unlock()
}

// Attached reports whether n is bridged to a parent.
func (n *Node) Attached() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent != nil
}

// Destroy detaches n and completes every subscription. Later emissions are
// dropped.
func (n *Node) Destroy() {
	n.Detach()

	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}
	n.destroyed = true
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	for _, s := range subs {
		if s.closed.CompareAndSwap(false, true) {
			close(s.done)
		}
	}
}

// EmitEvent delivers item to local event subscribers and then towards the
// root. It reports false if n is destroyed.
func (n *Node) EmitEvent(item any) bool {
	return n.emit(events, item)
}

// EmitAction delivers item to local action subscribers and then towards the
// leaves. It reports false if n is destroyed.
func (n *Node) EmitAction(item any) bool {
	return n.emit(actions, item)
}

func (n *Node) emit(ch channel, item any) bool {
	n.mu.Lock()
	destroyed := n.destroyed
	n.mu.Unlock()
	if destroyed {
		return false
	}
	return n.lane.Post(func() { n.deliver(ch, item) })
}

// deliver runs on the lane.
func (n *Node) deliver(ch channel, item any) {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}
	var local []*subscriber
	consumed := false
	for _, s := range n.subs {
		if s.ch != ch || !s.match(item) {
			continue
		}
		local = append(local, s)
		if s.consume {
			consumed = true
		}
	}
	var next []*Node
	if !consumed {
		if ch == events && n.parent != nil {
			next = []*Node{n.parent}
		} else if ch == actions {
			next = append(next, n.children...)
		}
	}
	n.mu.Unlock()

	for _, s := range local {
		if !s.closed.Load() {
			s.fn(item)
		}
	}
	for _, m := range next {
		m.deliver(ch, item)
	}
}

func (n *Node) add(ch channel, consume bool, match func(any) bool, fn func(any)) *Subscription {
	s := &subscriber{ch: ch, consume: consume, match: match, fn: fn, done: make(chan struct{})}
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		s.closed.Store(true)
		close(s.done)
		return &Subscription{node: n, sub: s}
	}
	n.subs = append(n.subs, s)
	n.mu.Unlock()
	return &Subscription{node: n, sub: s}
}

func (n *Node) remove(s *subscriber) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	n.mu.Lock()
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
	close(s.done)
}

// Consumes reports whether an active consumer on n's event channel matches item.
func (n *Node) Consumes(item any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subs {
		if s.ch == events && s.consume && s.match(item) {
			return true
		}
	}
	return false
}

func matcher[T any]() func(any) bool {
	return func(item any) bool {
		_, ok := item.(T)
		return ok
	}
}

func handler[T any](fn func(T)) func(any) {
	return func(item any) { fn(item.(T)) }
}

// ObserveEvent subscribes fn to events of type T at n.
func ObserveEvent[T any](n *Node, fn func(T)) *Subscription {
	return n.add(events, false, matcher[T](), handler(fn))
}

// ConsumeEvent subscribes fn to events of type T at n and stops them from
// reaching n's ancestors while the subscription is active.
func ConsumeEvent[T any](n *Node, fn func(T)) *Subscription {
	return n.add(events, true, matcher[T](), handler(fn))
}

// ObserveAction subscribes fn to actions of type T at n.
func ObserveAction[T any](n *Node, fn func(T)) *Subscription {
	return n.add(actions, false, matcher[T](), handler(fn))
}

// ConsumeAction subscribes fn to actions of type T at n and stops them from
// reaching n's descendants while the subscription is active.
func ConsumeAction[T any](n *Node, fn func(T)) *Subscription {
	return n.add(actions, true, matcher[T](), handler(fn))
}
