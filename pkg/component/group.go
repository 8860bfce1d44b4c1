package component

import (
	"errors"
	"slices"

	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/state"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Group is a node that owns an ordered list of attached children. Children
// are kept at the group's own start and resume level: opening transitions
// reach the group before its children, closing transitions reach the
// children first.
type Group struct {
	*Base

	children []Node
	bridges  map[Node][]func()

	childAdd       *Stream
	childRemove    *Stream
	childAddRec    *Stream
	childRemoveRec *Stream
}

type grouped interface {
	group() *Group
}

// NewGroup creates the embedded part of a group node.
func NewGroup(h *Host, handle surface.Handle, opts ...Option) *Group {
	g := &Group{
		Base:           NewBase(h, handle, opts...),
		bridges:        make(map[Node][]func()),
		childAdd:       newStream(),
		childRemove:    newStream(),
		childAddRec:    newStream(),
		childRemoveRec: newStream(),
	}
	g.childAdd.Subscribe(g.childAddRec.emit)
	g.childRemove.Subscribe(g.childRemoveRec.emit)
	return g
}

func (g *Group) group() *Group { return g }

// OnChildAdd is the stream of children added to this group.
func (g *Group) OnChildAdd() *Stream { return g.childAdd }

// OnChildRemove is the stream of children removed from this group.
func (g *Group) OnChildRemove() *Stream { return g.childRemove }

// OnChildAddRecursive is the stream of nodes added anywhere below this group.
func (g *Group) OnChildAddRecursive() *Stream { return g.childAddRec }

// OnChildRemoveRecursive is the stream of nodes removed anywhere below this group.
func (g *Group) OnChildRemoveRecursive() *Stream { return g.childRemoveRec }

// Children returns the attached children in order.
func (g *Group) Children() []Node { return slices.Clone(g.children) }

// OnAttach binds args and, when they were restored, recreates the saved
// children inside their containers. Children whose container cannot be
// found are skipped.
func (g *Group) OnAttach(args *bundle.Bundle) error {
	if err := g.Base.OnAttach(args); err != nil {
		return err
	}
	if !IsRestored(g.args) {
		return nil
	}
	parcels, _ := g.args.Bundles(KeyChildren)
	g.args.Remove(KeyChildren)
	surf := g.host.surface
	for _, p := range parcels {
		class, _ := p.String(parcelClass)
		st, _ := p.Bundle(parcelState)
		cid, _ := p.String(parcelContainer)
		container := surf.Find(g.handle, cid)
		if container == nil {
			g.logger.Debug("saved child skipped, container missing",
				log.String("child_class", class),
				log.String("container", cid),
			)
			continue
		}
		if _, err := g.attachAt(container, -1, len(g.children), Class(class), st); err != nil {
			return err
		}
	}
	return nil
}

// OnStart starts the group, then its children.
func (g *Group) OnStart() error {
	if err := g.Base.OnStart(); err != nil {
		return err
	}
	for _, c := range slices.Clone(g.children) {
		if err := PerformStart(c); err != nil {
			return err
		}
	}
	return nil
}

// OnResume resumes the group, then its children.
func (g *Group) OnResume() error {
	if err := g.Base.OnResume(); err != nil {
		return err
	}
	for _, c := range slices.Clone(g.children) {
		if err := PerformResume(c); err != nil {
			return err
		}
	}
	return nil
}

// OnPause pauses the children, then the group.
func (g *Group) OnPause() error {
	for _, c := range slices.Clone(g.children) {
		if err := PerformPause(c); err != nil {
			return err
		}
	}
	return g.Base.OnPause()
}

// OnStop stops the children, then the group.
func (g *Group) OnStop() error {
	for _, c := range slices.Clone(g.children) {
		if err := PerformStop(c); err != nil {
			return err
		}
	}
	return g.Base.OnStop()
}

// OnDetach detaches every child, then the group.
func (g *Group) OnDetach() error {
	for _, c := range slices.Clone(g.children) {
		if err := g.Detach(c); err != nil {
			return err
		}
	}
	return g.Base.OnDetach()
}

// OnDestroy completes the child streams and destroys the group.
func (g *Group) OnDestroy() error {
	g.childAdd.close()
	g.childRemove.close()
	g.childAddRec.close()
	g.childRemoveRec.close()
	return g.Base.OnDestroy()
}

// OnBackPressed offers the press to each child in order, depth first, and
// stops at the first one that handles it.
func (g *Group) OnBackPressed() bool {
	for _, c := range slices.Clone(g.children) {
		if c.OnBackPressed() {
			return true
		}
	}
	return g.Base.OnBackPressed()
}

// OnActivityResult delivers r to the group and every child.
func (g *Group) OnActivityResult(r ActivityResult) {
	g.Base.OnActivityResult(r)
	for _, c := range slices.Clone(g.children) {
		c.OnActivityResult(r)
	}
}

// OnPermissionsResult delivers r to the group and every child.
func (g *Group) OnPermissionsResult(r PermissionsResult) {
	g.Base.OnPermissionsResult(r)
	for _, c := range slices.Clone(g.children) {
		c.OnPermissionsResult(r)
	}
}

// OnTrimMemory delivers level to the group and every child.
func (g *Group) OnTrimMemory(level int) {
	g.Base.OnTrimMemory(level)
	for _, c := range slices.Clone(g.children) {
		c.OnTrimMemory(level)
	}
}

type pendingRecreate struct {
	placeholder surface.Handle
	container   surface.Handle
	position    int
	saved       *state.Snapshot
}

// OnConfigurationChanged recreates children that cannot survive cfg and
// notifies the rest. Each recreated child takes the surface index and child
// position of the one it replaces. On error, placeholders still on the
// surface are taken off again.
func (g *Group) OnConfigurationChanged(cfg Configuration) (err error) {
	surf := g.host.surface
	var pending []pendingRecreate
	defer func() {
		if err == nil {
			return
		}
		for _, p := range pending {
			if surf.Find(g.handle, p.placeholder.ID()) != nil {
				err = errors.Join(err, surf.Remove(p.container, p.placeholder))
			}
		}
	}()
	for position, c := range slices.Clone(g.children) {
		if c.core().opts.surviveConfig {
			continue
		}
		container := surf.Parent(c.Handle())
		index := surf.IndexOf(container, c.Handle())
		saved := SaveWholeState(c)
		if err := g.Detach(c); err != nil {
			return err
		}
		ph := surf.NewHandle(g.host.ids.Next())
		if err := surf.Insert(container, ph, index); err != nil {
			return err
		}
		pending = append(pending, pendingRecreate{ph, container, position, saved})
	}

	for _, c := range slices.Clone(g.children) {
		if err := c.OnConfigurationChanged(cfg); err != nil {
			return err
		}
	}

	// The whole subtree is settled; purge stale pooled nodes before recreating.
	if err := g.Base.OnConfigurationChanged(cfg); err != nil {
		return err
	}

	for _, p := range pending {
		if surf.Find(g.handle, p.placeholder.ID()) == nil {
			continue
		}
		index := surf.IndexOf(p.container, p.placeholder)
		if err := surf.Remove(p.container, p.placeholder); err != nil {
			return err
		}
		c, err := g.restoreAt(p.container, index, p.position, p.saved)
		if err != nil {
			return err
		}
		surf.RestoreState(c.Handle(), p.saved.View)
	}
	return nil
}

func (g *Group) restoreAt(container surface.Handle, index, position int, saved *state.Snapshot) (Node, error) {
	h := g.host
	h.pushRestoring(saved.IDs)
	defer h.popRestoring()
	return g.attachAt(container, index, position, Class(saved.Class), saved.Tree)
}

// SaveHierarchyState saves the group and all of its children. Children that
// preserve their position and sit in a container with an id are recorded so
// they can be recreated in place.
func (g *Group) SaveHierarchyState(container map[string]*bundle.Bundle) *bundle.Bundle {
	out := g.Base.SaveHierarchyState(container)
	surf := g.host.surface
	var parcels []*bundle.Bundle
	for _, c := range g.children {
		// Every child saves, so deeper ids reach container even when this
		// entry is dropped.
		st := c.SaveHierarchyState(container)
		if !c.core().opts.preservePosition {
			continue
		}
		parent := surf.Parent(c.Handle())
		if parent == nil || parent.ID() == "" {
			continue
		}
		p := bundle.New()
		p.PutString(parcelClass, string(c.Class()))
		p.PutBundle(parcelState, st)
		p.PutString(parcelContainer, parent.ID())
		parcels = append(parcels, p)
	}
	if g.opts.preserveState {
		out.PutBundles(KeyChildren, parcels)
	}
	return out
}

// Attach obtains a node of class, places it at the end of container, attaches
// it with args and raises it to the group's level.
func (g *Group) Attach(container surface.Handle, class Class, args *bundle.Bundle) (Node, error) {
	if !g.host.surface.Contains(g.handle, container) {
		return nil, lifecycle.Errorf("container is not part of %s", g.class)
	}
	return g.attachAt(container, -1, len(g.children), class, args)
}

// AttachTo is Attach with the container looked up by id.
func (g *Group) AttachTo(containerID string, class Class, args *bundle.Bundle) (Node, error) {
	container := g.host.surface.Find(g.handle, containerID)
	if container == nil {
		return nil, lifecycle.Errorf("container %q not found in %s", containerID, g.class)
	}
	return g.attachAt(container, -1, len(g.children), class, args)
}

func (g *Group) attachAt(container surface.Handle, index, position int, class Class, args *bundle.Bundle) (Node, error) {
	if !lifecycle.IsAttached(g) {
		return nil, lifecycle.Errorf("%s is %s and cannot attach children", g.class, g.State())
	}
	h := g.host
	n, err := h.factory.Obtain(class, container)
	if err != nil {
		return nil, err
	}
	if err := h.surface.Insert(container, n.Handle(), index); err != nil {
		return nil, errors.Join(err, h.factory.Recycle(n))
	}
	if err := h.bind(n, args); err != nil {
		return nil, errors.Join(err, h.surface.Remove(container, n.Handle()), h.factory.Recycle(n))
	}
	if err := g.addChild(n, position); err != nil {
		return nil, errors.Join(err, h.surface.Remove(container, n.Handle()), h.Detach(n))
	}
	return n, nil
}

// Add places an already attached node of the same host at the end of
// container without cycling its lifecycle.
func (g *Group) Add(container surface.Handle, n Node) error {
	switch {
	case !lifecycle.IsAttached(n):
		return lifecycle.Errorf("%s is not attached", n.Class())
	case g.host.surface.Parent(n.Handle()) != nil:
		return lifecycle.Errorf("%s is already placed on the surface", n.Class())
	case n.Host() != g.host:
		return lifecycle.Errorf("%s belongs to another host", n.Class())
	case !g.host.surface.Contains(g.handle, container):
		return lifecycle.Errorf("container is not part of %s", g.class)
	}
	if err := g.host.surface.Insert(container, n.Handle(), -1); err != nil {
		return err
	}
	if err := g.addChild(n, len(g.children)); err != nil {
		return errors.Join(err, g.host.surface.Remove(container, n.Handle()))
	}
	return nil
}

// addChild joins n to the group's bus and level, then records it. On error n
// is left out of the group at Attached.
func (g *Group) addChild(n Node, position int) error {
	if err := n.Bus().Attach(g.bus); err != nil {
		return err
	}
	if err := lift(n, g.State()); err != nil {
		err = errors.Join(err, lower(n))
		n.Bus().Detach()
		return err
	}
	if position < 0 || position > len(g.children) {
		position = len(g.children)
	}
	g.children = slices.Insert(g.children, position, n)
	if sub, ok := n.(grouped); ok {
		cg := sub.group()
		g.bridges[n] = []func(){
			cg.childAddRec.Subscribe(g.childAddRec.emit),
			cg.childRemoveRec.Subscribe(g.childRemoveRec.emit),
		}
	}
	g.childAdd.emit(n)
	return nil
}

// Remove takes n off the surface and out of the group, lowered to Attached
// but still attached, so it can be added elsewhere.
func (g *Group) Remove(n Node) (Node, error) {
	if err := g.removeChild(n); err != nil {
		return nil, err
	}
	g.unbridge(n)
	return n, nil
}

// Detach removes n, detaches it and returns it to the factory.
func (g *Group) Detach(n Node) error {
	if err := g.removeChild(n); err != nil {
		return err
	}
	// Removals below n keep reaching this group until n is detached.
	defer g.unbridge(n)
	return g.host.Detach(n)
}

func (g *Group) removeChild(n Node) error {
	i := slices.Index(g.children, n)
	if i < 0 {
		return lifecycle.Errorf("%s is not a child of %s", n.Class(), g.class)
	}
	if err := lower(n); err != nil {
		return err
	}
	g.children = slices.Delete(g.children, i, i+1)
	surf := g.host.surface
	if parent := surf.Parent(n.Handle()); parent != nil {
		if err := surf.Remove(parent, n.Handle()); err != nil {
			return err
		}
	}
	n.Bus().Detach()
	g.childRemove.emit(n)
	return nil
}

func (g *Group) unbridge(n Node) {
	for _, cancel := range g.bridges[n] {
		cancel()
	}
	delete(g.bridges, n)
}

// FindByID returns the child with id. With recursive set, groups among the
// children are searched depth first.
func (g *Group) FindByID(id string, recursive bool) Node {
	if id == "" {
		return nil
	}
	for _, c := range g.children {
		if c.ID() == id {
			return c
		}
		if sub, ok := c.(grouped); ok && recursive {
			if found := sub.group().FindByID(id, true); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindByContainer returns the children placed directly in the container with
// id containerID, in order.
func (g *Group) FindByContainer(containerID string) []Node {
	surf := g.host.surface
	container := surf.Find(g.handle, containerID)
	if container == nil {
		return nil
	}
	var out []Node
	for _, c := range g.children {
		if surf.Parent(c.Handle()) == container {
			out = append(out, c)
		}
	}
	return out
}
