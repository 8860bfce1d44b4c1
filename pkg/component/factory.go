package component

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Constructor builds a node of one class. parent is the surface handle the
// node will be placed under, or nil; it is a hint only.
type Constructor func(h *Host, parent surface.Handle) (Node, error)

var registry = struct {
	sync.RWMutex
	ctors map[Class]Constructor
}{ctors: make(map[Class]Constructor)}

// Register makes ctor the process-wide constructor for class. Factories use
// it when they have no constructor of their own for the class. Register
// panics if class is registered twice.
func Register(class Class, ctor Constructor) {
	registry.Lock()
	defer registry.Unlock()
	if ctor == nil {
		panic("canopy: Register constructor is nil")
	}
	if _, dup := registry.ctors[class]; dup {
		panic("canopy: Register called twice for class " + string(class))
	}
	registry.ctors[class] = ctor
}

func registered(class Class) (Constructor, bool) {
	registry.RLock()
	defer registry.RUnlock()
	ctor, ok := registry.ctors[class]
	return ctor, ok
}

// Factory creates, pools and destroys the nodes of one host.
// It is not safe for concurrent use.
type Factory struct {
	host      *Host
	ctors     map[Class]Constructor
	all       []Node
	free      []Node
	destroyed bool
	logger    log.Logger
}

func newFactory(h *Host) *Factory {
	return &Factory{
		host:   h,
		ctors:  make(map[Class]Constructor),
		logger: h.logger.With(log.String("component", "factory")),
	}
}

// Register sets the constructor this factory uses for class.
func (f *Factory) Register(class Class, ctor Constructor) {
	f.ctors[class] = ctor
}

// Require checks that every class can be constructed.
func (f *Factory) Require(classes ...Class) error {
	var errs []error
	for _, c := range classes {
		if _, ok := f.constructor(c); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrConstructorNotFound, c))
		}
	}
	return errors.Join(errs...)
}

func (f *Factory) constructor(class Class) (Constructor, bool) {
	if ctor, ok := f.ctors[class]; ok {
		return ctor, true
	}
	return registered(class)
}

// Obtain returns a pooled node of exactly class, or constructs a new one.
// The node is Alive and not attached.
func (f *Factory) Obtain(class Class, parent surface.Handle) (Node, error) {
	if f.destroyed {
		return nil, lifecycle.Errorf("cannot obtain %s after factory destroy", class)
	}
	for i, n := range f.free {
		if n.Class() == class {
			f.free = slices.Delete(f.free, i, i+1)
			return n, nil
		}
	}
	return f.spawn(class, parent)
}

func (f *Factory) spawn(class Class, parent surface.Handle) (Node, error) {
	ctor, ok := f.constructor(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConstructorNotFound, class)
	}
	n, err := ctor(f.host, parent)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", class, err)
	}
	if n == nil || n.core() == nil {
		return nil, fmt.Errorf("construct %s: constructor returned no node", class)
	}
	b := n.core()
	if b.host != f.host {
		return nil, lifecycle.Errorf("construct %s: node belongs to another host", class)
	}
	b.bind(n, class)
	f.all = append(f.all, n)
	f.logger.Debug("node created", log.String("class", string(class)), log.Int("tracked", len(f.all)))
	return n, nil
}

// Recycle returns a detached node to the factory. Reusable nodes are pooled,
// others destroyed.
func (f *Factory) Recycle(n Node) error {
	switch {
	case f.destroyed:
		return lifecycle.Errorf("cannot recycle %s after factory destroy", n.Class())
	case !slices.Contains(f.all, n):
		return lifecycle.Errorf("%s is not managed by this factory", n.Class())
	case slices.Contains(f.free, n):
		return lifecycle.Errorf("%s is already recycled", n.Class())
	case lifecycle.IsAttached(n):
		return lifecycle.Errorf("%s is still attached", n.Class())
	}
	if n.core().opts.reusable {
		f.free = append(f.free, n)
		return nil
	}
	return f.kill(n)
}

func (f *Factory) kill(n Node) error {
	if lifecycle.IsAttached(n) {
		return lifecycle.Errorf("killing attached %s", n.Class())
	}
	if err := PerformDestroy(n); err != nil {
		return err
	}
	f.free = slices.DeleteFunc(f.free, func(x Node) bool { return x == n })
	f.all = slices.DeleteFunc(f.all, func(x Node) bool { return x == n })
	return nil
}

// Destroy destroys every tracked node. Nodes that are still attached are
// leaks: each is reported as an ErrLeak and the joined error is returned.
func (f *Factory) Destroy() error {
	var errs []error
	for _, n := range slices.Clone(f.all) {
		if lifecycle.IsAttached(n) {
			f.logger.Error("attached node leaked",
				log.String("class", string(n.Class())),
				log.String("node", n.ID()),
				log.Stringer("state", n.State()),
			)
			errs = append(errs, fmt.Errorf("%w: %s in state %s", ErrLeak, n.Class(), n.State()))
			continue
		}
		if err := f.kill(n); err != nil {
			errs = append(errs, err)
		}
	}
	f.destroyed = true
	return errors.Join(errs...)
}

// TrimMemory destroys every pooled node.
func (f *Factory) TrimMemory() {
	for _, n := range slices.Clone(f.free) {
		if err := f.kill(n); err != nil {
			f.logger.Warn("trim memory", log.Err(err))
		}
	}
}

// PrepareConfigChange destroys pooled nodes that cannot survive a
// configuration change.
func (f *Factory) PrepareConfigChange() {
	for _, n := range slices.Clone(f.free) {
		if n.core().opts.surviveConfig {
			continue
		}
		if err := f.kill(n); err != nil {
			f.logger.Warn("prepare config change", log.Err(err))
		}
	}
}

// PerformConfigChange purges non-surviving pooled nodes and notifies the rest.
func (f *Factory) PerformConfigChange(cfg Configuration) error {
	f.PrepareConfigChange()
	var errs []error
	for _, n := range slices.Clone(f.free) {
		if err := n.OnConfigurationChanged(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracked returns the number of live nodes created by the factory.
func (f *Factory) Tracked() int { return len(f.all) }

// Free returns the number of pooled nodes.
func (f *Factory) Free() int { return len(f.free) }

// IsFree reports whether n is pooled.
func (f *Factory) IsFree(n Node) bool { return slices.Contains(f.free, n) }
