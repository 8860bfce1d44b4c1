package lifecycle

import (
	"slices"
	"sync"

	"github.com/bft-labs/canopy/pkg/log"
)

// EventEmitter is called after every transition.
type EventEmitter interface {
	OnTransition(previous, current State, ev Event)
}

// CallbackID identifies a registered event callback.
type CallbackID uint64

// Source is anything with an observable lifecycle.
type Source interface {
	State() State
	AddEventCallback(ev Event, fn func(Event)) CallbackID
	RemoveEventCallback(id CallbackID) bool
}

type callback struct {
	id CallbackID
	ev Event
	fn func(Event)
}

// Machine is a lifecycle state machine for one node.
// A new machine starts in Alive.
type Machine struct {
	mu        sync.RWMutex
	state     State
	busy      bool
	nextID    uint64
	callbacks []callback
	listeners map[uint64]func(Event)
	done      chan struct{}
	emitter   EventEmitter
	logger    log.Logger
}

// NewMachine creates a new lifecycle machine in the Alive state.
func NewMachine(logger log.Logger, emitter EventEmitter) *Machine {
	return &Machine{
		state:     Alive,
		listeners: make(map[uint64]func(Event)),
		done:      make(chan struct{}),
		emitter:   emitter,
		logger:    log.OrNoop(logger),
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Done is closed once the machine reaches Destroyed.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Transition moves the machine to the adjacent state to.
// Illegal moves return an *Error and leave the state unchanged.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	from := m.state
	if m.busy {
		m.mu.Unlock()
		return &Error{Op: "transition", Want: to, Got: from, Msg: "transition already in progress"}
	}
	ev, ok := EventFor(from, to)
	if !ok {
		m.mu.Unlock()
		return &Error{Op: "transition", Want: to, Got: from,
			Msg: "illegal transition from " + from.String() + " to " + to.String()}
	}

	m.busy = true
	if ev.Opening() {
		m.state = to
	}
	fns := m.takeLocked(ev)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}

	m.mu.Lock()
	m.state = to
	m.busy = false
	if to == Destroyed {
		m.listeners = nil
		m.callbacks = nil
		close(m.done)
	}
	m.mu.Unlock()

	if m.emitter != nil {
		m.emitter.OnTransition(from, to, ev)
	}
	m.logger.Debug("lifecycle transition",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.Stringer("event", ev),
	)
	return nil
}

// takeLocked removes the callbacks registered for ev and returns them
// followed by a snapshot of the broadcast listeners.
func (m *Machine) takeLocked(ev Event) []func(Event) {
	var fns []func(Event)
	kept := m.callbacks[:0]
	for _, cb := range m.callbacks {
		if cb.ev == ev {
			fns = append(fns, cb.fn)
			continue
		}
		kept = append(kept, cb)
	}
	for i := len(kept); i < len(m.callbacks); i++ {
		m.callbacks[i] = callback{}
	}
	m.callbacks = kept

	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	return fns
}

// AddEventCallback registers a one-shot callback for ev.
// The callback runs synchronously during the matching transition and is then
// removed. Callbacks registered on a destroyed machine never run.
func (m *Machine) AddEventCallback(ev Event, fn func(Event)) CallbackID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := CallbackID(m.nextID)
	if m.state == Destroyed {
		return id
	}
	m.callbacks = append(m.callbacks, callback{id: id, ev: ev, fn: fn})
	return id
}

// RemoveEventCallback unregisters a callback that has not fired yet.
func (m *Machine) RemoveEventCallback(id CallbackID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cb := range m.callbacks {
		if cb.id == id {
			m.callbacks = append(m.callbacks[:i], m.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe registers fn to receive every transition event until the returned
// cancel func is called or the machine is destroyed. Destroy is the last event
// a listener sees.
func (m *Machine) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Destroyed {
		return func() {}
	}
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}
