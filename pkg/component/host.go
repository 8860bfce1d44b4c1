package component

import (
	"errors"

	"github.com/bft-labs/canopy/pkg/action"
	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/lane"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/state"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Observer is notified of every node transition in a host.
type Observer interface {
	OnNodeTransition(n Node, from, to lifecycle.State, ev lifecycle.Event)
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithSurface sets the rendering surface. The default is a surface.Memory.
func WithSurface(s surface.Surface) HostOption {
	return func(h *Host) { h.surface = s }
}

// WithContainer sets the handle the root node is placed under.
func WithContainer(c surface.Handle) HostOption {
	return func(h *Host) { h.container = c }
}

// WithIDAllocator sets the allocator for synthetic handle ids.
func WithIDAllocator(a IDAllocator) HostOption {
	return func(h *Host) { h.ids = a }
}

// WithLogger sets the logger shared by the host and its nodes.
func WithLogger(l log.Logger) HostOption {
	return func(h *Host) { h.logger = log.OrNoop(l) }
}

// WithRootArgs sets the arguments the root node is attached with.
func WithRootArgs(args *bundle.Bundle) HostOption {
	return func(h *Host) { h.rootArgs = args }
}

// WithObserver sets the transition observer.
func WithObserver(o Observer) HostOption {
	return func(h *Host) { h.observer = o }
}

// WithBusLane makes nodes deliver bus traffic on l. The caller keeps
// ownership of l.
func WithBusLane(l *lane.Lane) HostOption {
	return func(h *Host) { h.busLane = l }
}

// WithActionCapacity sets the default action queue capacity of new nodes.
func WithActionCapacity(n int) HostOption {
	return func(h *Host) { h.actionCapacity = n }
}

// Host owns one component tree: its root node, factory and surface. It
// forwards the driver's lifecycle calls to the root, which fans them out.
//
// A Host is not safe for concurrent use. All calls, including those made by
// nodes, must come from one goroutine.
type Host struct {
	factory        *Factory
	surface        surface.Surface
	container      surface.Handle
	ids            IDAllocator
	busLane        *lane.Lane
	ownLane        bool
	logger         log.Logger
	observer       Observer
	actionCapacity int

	rootClass Class
	rootArgs  *bundle.Bundle
	root      Node

	restoring []map[string]*bundle.Bundle
}

// NewHost creates a host whose tree is rooted at a node of class root.
func NewHost(root Class, opts ...HostOption) *Host {
	h := &Host{
		rootClass:      root,
		logger:         log.NoopLogger{},
		actionCapacity: action.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.surface == nil {
		h.surface = surface.NewMemory()
	}
	if h.container == nil {
		h.container = h.surface.NewHandle("")
	}
	if h.ids == nil {
		h.ids = NewSequenceAllocator("ph")
	}
	if h.busLane == nil {
		h.busLane = lane.New("bus", h.logger)
		h.ownLane = true
	}
	h.factory = newFactory(h)
	return h
}

// Factory returns the host's node factory.
func (h *Host) Factory() *Factory { return h.factory }

// Surface returns the rendering surface.
func (h *Host) Surface() surface.Surface { return h.surface }

// Container returns the handle the root node is placed under.
func (h *Host) Container() surface.Handle { return h.container }

// IDs returns the synthetic id allocator.
func (h *Host) IDs() IDAllocator { return h.ids }

// Logger returns the host logger.
func (h *Host) Logger() log.Logger { return h.logger }

// BusLane returns the lane bus traffic is delivered on.
func (h *Host) BusLane() *lane.Lane { return h.busLane }

// Root returns the root node, or nil before Create and after Destroy.
func (h *Host) Root() Node { return h.root }

// Attach obtains a node of class and attaches it with args. The node is
// not placed on the surface; parent is passed to the constructor as a hint.
func (h *Host) Attach(class Class, args *bundle.Bundle, parent surface.Handle) (Node, error) {
	n, err := h.factory.Obtain(class, parent)
	if err != nil {
		return nil, err
	}
	if err := h.bind(n, args); err != nil {
		return nil, errors.Join(err, h.factory.Recycle(n))
	}
	return n, nil
}

// AttachWithState is Attach with ids consulted for every node attached in
// the meantime: a node whose id has a saved bundle gets it merged into its
// arguments.
func (h *Host) AttachWithState(class Class, ids map[string]*bundle.Bundle, args *bundle.Bundle, parent surface.Handle) (Node, error) {
	h.pushRestoring(ids)
	defer h.popRestoring()
	return h.Attach(class, args, parent)
}

// Detach detaches n and hands it back to the factory.
func (h *Host) Detach(n Node) error {
	if err := PerformDetach(n); err != nil {
		return err
	}
	return h.factory.Recycle(n)
}

func (h *Host) bind(n Node, args *bundle.Bundle) error {
	bound := bundle.New()
	bound.Merge(args)
	if saved, ok := h.restored(IDOf(bound)); ok {
		bound.Merge(saved)
	}
	return PerformAttach(n, bound)
}

func (h *Host) pushRestoring(ids map[string]*bundle.Bundle) {
	h.restoring = append(h.restoring, ids)
}

func (h *Host) popRestoring() {
	h.restoring = h.restoring[:len(h.restoring)-1]
}

func (h *Host) restored(id string) (*bundle.Bundle, bool) {
	if id == "" || len(h.restoring) == 0 {
		return nil, false
	}
	b, ok := h.restoring[len(h.restoring)-1][id]
	return b, ok
}

// Create builds and attaches the root node. A non-empty saved snapshot
// restores the tree it was taken from.
func (h *Host) Create(saved *state.Snapshot) (Node, error) {
	if h.root != nil {
		return nil, lifecycle.Errorf("host already created %s", h.root.Class())
	}
	args := bundle.New()
	args.Merge(h.rootArgs)
	var ids map[string]*bundle.Bundle
	if !saved.IsEmpty() {
		args.Merge(saved.Tree)
		ids = saved.IDs
	}
	root, err := h.attachRoot(args, ids)
	if err != nil {
		return nil, err
	}
	if !saved.IsEmpty() {
		h.surface.RestoreState(root.Handle(), saved.View)
	}
	h.logger.Info("host created",
		log.String("root", string(h.rootClass)),
		log.Bool("restored", !saved.IsEmpty()),
	)
	return root, nil
}

func (h *Host) attachRoot(args *bundle.Bundle, ids map[string]*bundle.Bundle) (Node, error) {
	n, err := h.factory.Obtain(h.rootClass, h.container)
	if err != nil {
		return nil, err
	}
	if err := h.surface.Insert(h.container, n.Handle(), -1); err != nil {
		return nil, errors.Join(err, h.factory.Recycle(n))
	}
	h.pushRestoring(ids)
	defer h.popRestoring()
	if err := h.bind(n, args); err != nil {
		return nil, errors.Join(err, h.surface.Remove(h.container, n.Handle()), h.factory.Recycle(n))
	}
	h.root = n
	return n, nil
}

func (h *Host) requireRoot() (Node, error) {
	if h.root == nil {
		return nil, ErrNotCreated
	}
	return h.root, nil
}

// Start starts the tree.
func (h *Host) Start() error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	return PerformStart(root)
}

// Resume resumes the tree.
func (h *Host) Resume() error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	return PerformResume(root)
}

// Pause pauses the tree.
func (h *Host) Pause() error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	return PerformPause(root)
}

// Stop stops the tree.
func (h *Host) Stop() error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	return PerformStop(root)
}

// Destroy detaches the tree and destroys every node the factory created.
// Nodes attached outside the tree and never detached are reported as leaks.
func (h *Host) Destroy() error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	if err := lower(root); err != nil {
		return err
	}
	if err := h.surface.Remove(h.container, root.Handle()); err != nil {
		return err
	}
	if err := h.Detach(root); err != nil {
		return err
	}
	h.root = nil
	err = h.factory.Destroy()
	if h.ownLane {
		h.busLane.Close()
	}
	h.logger.Info("host destroyed", log.String("root", string(h.rootClass)))
	return err
}

// ConfigurationChanged applies cfg to the tree. A root that cannot survive
// the change is saved, detached and recreated at its previous level.
func (h *Host) ConfigurationChanged(cfg Configuration) error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	if root.core().opts.surviveConfig {
		if err := h.factory.PerformConfigChange(cfg); err != nil {
			return err
		}
		return root.OnConfigurationChanged(cfg)
	}

	level := root.State()
	saved := SaveWholeState(root)
	if err := lower(root); err != nil {
		return err
	}
	if err := h.surface.Remove(h.container, root.Handle()); err != nil {
		return err
	}
	if err := h.Detach(root); err != nil {
		return err
	}
	h.root = nil
	if err := h.factory.PerformConfigChange(cfg); err != nil {
		return err
	}
	n, err := h.attachRoot(saved.Tree, saved.IDs)
	if err != nil {
		return err
	}
	h.surface.RestoreState(n.Handle(), saved.View)
	h.logger.Debug("root recreated after configuration change", log.String("root", string(h.rootClass)))
	return lift(n, level)
}

// BackPressed offers a back press to the tree and reports whether a node
// handled it.
func (h *Host) BackPressed() (bool, error) {
	root, err := h.requireRoot()
	if err != nil {
		return false, err
	}
	return root.OnBackPressed(), nil
}

// ActivityResult delivers r to every node.
func (h *Host) ActivityResult(r ActivityResult) error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	root.OnActivityResult(r)
	return nil
}

// PermissionsResult delivers r to every node.
func (h *Host) PermissionsResult(r PermissionsResult) error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	root.OnPermissionsResult(r)
	return nil
}

// TrimMemory delivers level to every node. Levels above TrimRunningLow also
// destroy the pooled nodes.
func (h *Host) TrimMemory(level int) error {
	root, err := h.requireRoot()
	if err != nil {
		return err
	}
	root.OnTrimMemory(level)
	if level > TrimRunningLow {
		h.factory.TrimMemory()
	}
	return nil
}

// SaveInstanceState snapshots the whole tree.
func (h *Host) SaveInstanceState() (*state.Snapshot, error) {
	root, err := h.requireRoot()
	if err != nil {
		return nil, err
	}
	return SaveWholeState(root), nil
}
