package canopy

import (
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/state"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Option configures optional behavior of a Runtime.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	repository   state.Repository
	surface      surface.Surface
	ids          component.IDAllocator
	ctors        map[component.Class]component.Constructor
	dedicatedBus bool
}

func defaultOptions() options {
	return options{
		logger: log.NoopLogger{},
		ctors:  make(map[component.Class]component.Constructor),
	}
}

// WithLogger sets a logger for the runtime and every node.
// If not provided, a no-op logger is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithEventHandler sets a handler for run state changes and node transitions.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithRepository sets where the tree's snapshot is loaded from on Start and
// saved to on Stop. Without one, every run starts fresh.
func WithRepository(repo state.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithSurface sets the rendering surface. The default is a surface.Memory.
func WithSurface(s surface.Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithIDAllocator sets the allocator for synthetic surface ids.
func WithIDAllocator(a component.IDAllocator) Option {
	return func(o *options) {
		o.ids = a
	}
}

// WithConstructor registers ctor for class on the runtime's factory.
// Classes without one fall back to component.Register.
func WithConstructor(class component.Class, ctor component.Constructor) Option {
	return func(o *options) {
		o.ctors[class] = ctor
	}
}

// WithDedicatedBusLane delivers bus traffic on its own lane instead of the
// principal lane. Handlers then run concurrently with tree work and must use
// Dispatch to touch the tree. Node arguments may still be read and written
// through the typed Base accessors, which are guarded.
func WithDedicatedBusLane() Option {
	return func(o *options) {
		o.dedicatedBus = true
	}
}
