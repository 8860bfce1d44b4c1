package component

import (
	"sync"

	"github.com/bft-labs/canopy/pkg/action"
	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/bus"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/surface"
)

type options struct {
	reusable         bool
	surviveConfig    bool
	preserveState    bool
	preservePosition bool
	actionCapacity   int
}

// Option configures a Base.
type Option func(*options)

// Reusable controls whether a recycled node is pooled (true, the default) or
// destroyed.
func Reusable(v bool) Option {
	return func(o *options) { o.reusable = v }
}

// SurviveConfigChange controls whether the node is only notified of a
// configuration change (true, the default) or recreated from saved state.
func SurviveConfigChange(v bool) Option {
	return func(o *options) { o.surviveConfig = v }
}

// PreserveState controls whether the node saves its bundle (true, the
// default). A node that does not is recreated from its id alone.
func PreserveState(v bool) Option {
	return func(o *options) { o.preserveState = v }
}

// PreservePosition controls whether the parent group recreates the node in
// place when the tree is restored (true, the default). A node that does not
// is still recorded by id.
func PreservePosition(v bool) Option {
	return func(o *options) { o.preservePosition = v }
}

// ActionCapacity sets the number of operations that may wait in the node's
// action queue.
func ActionCapacity(n int) Option {
	return func(o *options) { o.actionCapacity = n }
}

// Base implements Node. Node types embed *Base and override hooks, calling
// through to the embedded hook.
type Base struct {
	self    Node
	class   Class
	host    *Host
	handle  surface.Handle
	machine *lifecycle.Machine
	actions *action.Queue
	bus     *bus.Node
	opts    options
	logger  log.Logger

	argsMu sync.Mutex
	args   *bundle.Bundle
}

// NewBase creates the embedded part of a node living on handle.
func NewBase(h *Host, handle surface.Handle, opts ...Option) *Base {
	o := options{
		reusable:         true,
		surviveConfig:    true,
		preserveState:    true,
		preservePosition: true,
		actionCapacity:   h.actionCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Base{
		host:    h,
		handle:  handle,
		actions: action.NewQueue(o.actionCapacity, h.logger),
		bus:     bus.NewNode(h.busLane),
		opts:    o,
		logger:  h.logger,
	}
	b.machine = lifecycle.NewMachine(nil, nodeEmitter{b})
	return b
}

// bind connects the base to the node embedding it.
func (b *Base) bind(self Node, class Class) {
	b.self = self
	b.class = class
	b.logger = b.host.logger.With(log.String("class", string(class)))
}

func (b *Base) core() *Base { return b }

type nodeEmitter struct{ b *Base }

func (e nodeEmitter) OnTransition(from, to lifecycle.State, ev lifecycle.Event) {
	if obs := e.b.host.observer; obs != nil && e.b.self != nil {
		obs.OnNodeTransition(e.b.self, from, to, ev)
	}
}

// Class returns the class the node was created for.
func (b *Base) Class() Class { return b.class }

// Host returns the host that created the node.
func (b *Base) Host() *Host { return b.host }

// Handle returns the node's surface handle.
func (b *Base) Handle() surface.Handle { return b.handle }

// Bus returns the node's bus endpoint.
func (b *Base) Bus() *bus.Node { return b.bus }

// Logger returns a logger scoped to the node's class.
func (b *Base) Logger() log.Logger { return b.logger }

// State returns the lifecycle state.
func (b *Base) State() lifecycle.State { return b.machine.State() }

// AddEventCallback registers a one-shot lifecycle callback.
func (b *Base) AddEventCallback(ev lifecycle.Event, fn func(lifecycle.Event)) lifecycle.CallbackID {
	return b.machine.AddEventCallback(ev, fn)
}

// RemoveEventCallback unregisters a lifecycle callback.
func (b *Base) RemoveEventCallback(id lifecycle.CallbackID) bool {
	return b.machine.RemoveEventCallback(id)
}

// Subscribe registers a listener for every lifecycle event.
func (b *Base) Subscribe(fn func(lifecycle.Event)) (cancel func()) {
	return b.machine.Subscribe(fn)
}

// Post enqueues an operation on the node's action queue.
func (b *Base) Post(op action.Operation) (*action.Proxy, error) {
	return b.actions.Post(op)
}

// CanBeReused reports whether recycling pools the node.
func (b *Base) CanBeReused() bool { return b.opts.reusable }

// SurvivesConfigChange reports whether the node is kept across a
// configuration change.
func (b *Base) SurvivesConfigChange() bool { return b.opts.surviveConfig }

// PreservesState reports whether the node saves its bundle.
func (b *Base) PreservesState() bool { return b.opts.preserveState }

// PreservesPosition reports whether the node is recreated in place on restore.
func (b *Base) PreservesPosition() bool { return b.opts.preservePosition }

// ID returns the node id, or "" when none is set or the node is detached.
func (b *Base) ID() string {
	b.argsMu.Lock()
	defer b.argsMu.Unlock()
	return IDOf(b.args)
}

// IsRestored reports whether the bound arguments came from saved state.
func (b *Base) IsRestored() bool {
	b.argsMu.Lock()
	defer b.argsMu.Unlock()
	return IsRestored(b.args)
}

// Args returns the bound argument bundle. It fails while the node is detached.
// The bundle itself is not guarded; bus handlers running on a dedicated bus
// lane use the typed accessors below.
func (b *Base) Args() (*bundle.Bundle, error) {
	b.argsMu.Lock()
	defer b.argsMu.Unlock()
	if b.args == nil {
		return nil, b.detachedErr()
	}
	return b.args, nil
}

func (b *Base) detachedErr() error {
	return lifecycle.Errorf("%s is %s and has no arguments", b.class, b.State())
}

func (b *Base) withArgs(fn func(args *bundle.Bundle)) error {
	b.argsMu.Lock()
	defer b.argsMu.Unlock()
	if b.args == nil {
		return b.detachedErr()
	}
	fn(b.args)
	return nil
}

// ArgInt reads an int from the bound arguments, or def when absent.
func (b *Base) ArgInt(key string, def int) (int, error) {
	v := def
	err := b.withArgs(func(args *bundle.Bundle) {
		if n, ok := args.Int(key); ok {
			v = n
		}
	})
	return v, err
}

// SetArgInt writes an int into the bound arguments.
func (b *Base) SetArgInt(key string, v int) error {
	return b.withArgs(func(args *bundle.Bundle) { args.PutInt(key, v) })
}

// AddArgInt adds delta to the int under key, starting from 0, and returns
// the new value.
func (b *Base) AddArgInt(key string, delta int) (int, error) {
	var v int
	err := b.withArgs(func(args *bundle.Bundle) {
		v, _ = args.Int(key)
		v += delta
		args.PutInt(key, v)
	})
	return v, err
}

// ArgString reads a string from the bound arguments, or def when absent.
func (b *Base) ArgString(key, def string) (string, error) {
	v := def
	err := b.withArgs(func(args *bundle.Bundle) {
		if s, ok := args.String(key); ok {
			v = s
		}
	})
	return v, err
}

// SetArgString writes a string into the bound arguments.
func (b *Base) SetArgString(key, v string) error {
	return b.withArgs(func(args *bundle.Bundle) { args.PutString(key, v) })
}

// OnAttach binds args and enters Attached.
func (b *Base) OnAttach(args *bundle.Bundle) error {
	if args == nil {
		args = bundle.New()
	}
	b.argsMu.Lock()
	b.args = args
	b.argsMu.Unlock()
	return b.machine.Transition(lifecycle.Attached)
}

// OnStart enters Started.
func (b *Base) OnStart() error { return b.machine.Transition(lifecycle.Started) }

// OnResume enters Resumed.
func (b *Base) OnResume() error { return b.machine.Transition(lifecycle.Resumed) }

// OnPause returns to Started.
func (b *Base) OnPause() error { return b.machine.Transition(lifecycle.Started) }

// OnStop returns to Attached.
func (b *Base) OnStop() error { return b.machine.Transition(lifecycle.Attached) }

// OnDetach returns to Alive and drops the bound arguments.
func (b *Base) OnDetach() error {
	if err := b.machine.Transition(lifecycle.Alive); err != nil {
		return err
	}
	b.argsMu.Lock()
	b.args = nil
	b.argsMu.Unlock()
	return nil
}

// OnDestroy enters Destroyed and closes the node's bus endpoint.
func (b *Base) OnDestroy() error {
	if err := b.machine.Transition(lifecycle.Destroyed); err != nil {
		return err
	}
	b.bus.Destroy()
	return nil
}

// OnConfigurationChanged purges pooled nodes that cannot survive cfg. It fails
// for nodes that should have been recreated instead.
func (b *Base) OnConfigurationChanged(cfg Configuration) error {
	if !b.opts.surviveConfig {
		return lifecycle.Errorf("%s cannot change configuration and should have been recreated", b.class)
	}
	b.host.factory.PrepareConfigChange()
	return nil
}

// OnBackPressed reports whether the node handled a back press.
func (b *Base) OnBackPressed() bool { return false }

// OnActivityResult ignores the result.
func (b *Base) OnActivityResult(ActivityResult) {}

// OnPermissionsResult ignores the result.
func (b *Base) OnPermissionsResult(PermissionsResult) {}

// OnTrimMemory ignores the request.
func (b *Base) OnTrimMemory(int) {}

// SaveHierarchyState saves the node into a new bundle and, if the node has an
// id, records that bundle in container as well.
func (b *Base) SaveHierarchyState(container map[string]*bundle.Bundle) *bundle.Bundle {
	out := bundle.New()
	id := b.ID()
	if !b.opts.preserveState {
		if id != "" {
			out.PutString(KeyID, id)
		}
		return out
	}
	b.self.OnSaveInstanceState(out)
	if id != "" && container != nil {
		container[id] = out
	}
	return out
}

// OnSaveInstanceState copies the bound arguments into out and marks them
// restored.
func (b *Base) OnSaveInstanceState(out *bundle.Bundle) {
	b.argsMu.Lock()
	out.Merge(b.args)
	b.argsMu.Unlock()
	out.PutBool(KeyRestored, true)
}
