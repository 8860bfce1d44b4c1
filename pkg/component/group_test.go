package component

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/canopy/pkg/bus"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/surface"
)

func handles(nodes []Node) []surface.Handle {
	out := make([]surface.Handle, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Handle())
	}
	return out
}

func TestGroup_ConfigChangeRecreatesInPlace(t *testing.T) {
	h, root := resumedHost(t, classStack)
	before := []countable{
		attachCounter(t, root, classCounter, "", 10),
		attachCounter(t, root, classFragile, "", 11),
		attachCounter(t, root, classCounter, "", 12),
		attachCounter(t, root, classFragile, "", 13),
	}

	require.NoError(t, h.ConfigurationChanged(Configuration{"locale": "fr"}))

	after := root.Children()
	require.Len(t, after, 4)
	assert.Same(t, before[0], after[0])
	assert.Same(t, before[2], after[2])
	assert.NotSame(t, before[1], after[1])
	assert.NotSame(t, before[3], after[3])
	assert.Equal(t, lifecycle.Destroyed, before[1].State())
	assert.Equal(t, lifecycle.Destroyed, before[3].State())
	assert.Equal(t, []int{10, 11, 12, 13}, counts(after))
	for _, c := range after {
		assert.Equal(t, lifecycle.Resumed, c.State())
	}
	assert.Equal(t, handles(after), h.Surface().Children(root.content))
	shutdown(t, h)
}

// balky never starts.
type balky struct{ *Base }

func (b *balky) OnStart() error { return errors.New("not ready") }

// grumpy rejects every configuration change.
type grumpy struct{ *counter }

func (g *grumpy) OnConfigurationChanged(Configuration) error {
	return errors.New("configuration rejected")
}

func TestGroup_FailedLiftLeavesGroupUnchanged(t *testing.T) {
	h, root := resumedHost(t, classStack)
	h.Factory().Register("test.balky", func(h *Host, _ surface.Handle) (Node, error) {
		return &balky{NewBase(h, h.Surface().NewHandle(""))}, nil
	})

	_, err := root.AttachTo("content", "test.balky", nil)
	require.Error(t, err)
	assert.Empty(t, root.Children())
	assert.Empty(t, h.Surface().Children(root.content))
	assert.Equal(t, 1, h.Factory().Free())

	c := attachCounter(t, root, classCounter, "", 1)
	assert.Equal(t, []Node{c}, root.Children())
	shutdown(t, h)
}

func TestGroup_FailedConfigChangeDropsPlaceholders(t *testing.T) {
	h, root := resumedHost(t, classStack)
	h.Factory().Register("test.grumpy", func(h *Host, _ surface.Handle) (Node, error) {
		return &grumpy{&counter{NewBase(h, h.Surface().NewHandle(""))}}, nil
	})
	attachCounter(t, root, classFragile, "", 1)
	g := attachCounter(t, root, "test.grumpy", "", 2)

	require.Error(t, h.ConfigurationChanged(Configuration{"locale": "de"}))
	assert.Equal(t, []Node{g}, root.Children())
	assert.Equal(t, []surface.Handle{g.Handle()}, h.Surface().Children(root.content))
	shutdown(t, h)
}

func TestGroup_ConfigChangeNested(t *testing.T) {
	h, root := resumedHost(t, classStack)
	inner, err := root.AttachTo("content", classStack, nil)
	require.NoError(t, err)
	g := inner.(*stack)
	attachCounter(t, g, classFragile, "deep", 4)
	attachCounter(t, g, classCounter, "", 5)

	require.NoError(t, h.ConfigurationChanged(Configuration{"density": 2}))

	require.Same(t, g, root.Children()[0])
	assert.Equal(t, []int{4, 5}, counts(g.Children()))
	found := root.FindByID("deep", true)
	require.NotNil(t, found)
	assert.Equal(t, classFragile, found.Class())
	assert.Nil(t, root.FindByID("deep", false))
	shutdown(t, h)
}

func TestGroup_RecursiveRemoveOrder(t *testing.T) {
	h, root := resumedHost(t, classStack)
	n, err := root.AttachTo("content", classStack, Args("g"))
	require.NoError(t, err)
	g := n.(*stack)
	for _, id := range []string{"p1", "p2", "p3"} {
		attachCounter(t, g, classCounter, id, 0)
	}

	var removed []string
	cancel := root.OnChildRemoveRecursive().Subscribe(func(n Node) {
		removed = append(removed, n.ID())
	})
	defer cancel()

	require.NoError(t, root.Detach(g))
	assert.Equal(t, []string{"g", "p1", "p2", "p3"}, removed)
	shutdown(t, h)
}

func TestGroup_RecursiveAddFollowsReparenting(t *testing.T) {
	h, root := resumedHost(t, classStack)
	n, err := root.AttachTo("content", classStack, Args("g"))
	require.NoError(t, err)
	g := n.(*stack)

	var added []string
	cancel := root.OnChildAddRecursive().Subscribe(func(n Node) {
		added = append(added, n.ID())
	})
	defer cancel()

	attachCounter(t, g, classCounter, "before", 0)
	moved, err := root.Remove(g)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Attached, moved.State())
	attachCounter(t, g, classCounter, "detached", 0)

	require.NoError(t, root.Add(root.content, g))
	attachCounter(t, g, classCounter, "after", 0)

	assert.Equal(t, []string{"before", "g", "after"}, added)
	assert.Len(t, root.Children(), 1)
	shutdown(t, h)
}

func TestGroup_AddRejectsPlacedOrForeign(t *testing.T) {
	h, root := resumedHost(t, classStack)
	c := attachCounter(t, root, classCounter, "", 0)
	require.ErrorIs(t, root.Add(root.content, c), lifecycle.ErrLifecycle)

	loose, err := h.Attach(classCounter, nil, nil)
	require.NoError(t, err)
	stray := h.Surface().NewHandle("stray")
	require.ErrorIs(t, root.Add(stray, loose), lifecycle.ErrLifecycle)

	other := newTestHost(t, classStack)
	foreign, err := other.Attach(classCounter, nil, nil)
	require.NoError(t, err)
	require.ErrorIs(t, root.Add(root.content, foreign), lifecycle.ErrLifecycle)
	require.NoError(t, other.Detach(foreign))

	require.NoError(t, root.Add(root.content, loose))
	assert.Equal(t, lifecycle.Resumed, loose.State())
	assert.Len(t, root.FindByContainer("content"), 2)
	shutdown(t, h)
}

func TestGroup_AttachToMissingContainer(t *testing.T) {
	h, root := resumedHost(t, classStack)
	_, err := root.AttachTo("nowhere", classCounter, nil)
	require.ErrorIs(t, err, lifecycle.ErrLifecycle)
	_, err = root.AttachTo("content", "test.unknown", nil)
	require.ErrorIs(t, err, ErrConstructorNotFound)
	assert.Empty(t, root.Children())
	shutdown(t, h)
}

type ping struct{ n int }

type pinger interface{ seq() int }

func (p ping) seq() int { return p.n }

func TestGroup_BusConsumption(t *testing.T) {
	h, root := resumedHost(t, classStack)
	c := attachCounter(t, root, classCounter, "", 0)

	var atRoot, atChild []int
	bus.ObserveEvent(root.Bus(), func(p ping) { atRoot = append(atRoot, p.n) })
	consumer := bus.ConsumeEvent(c.Bus(), func(p pinger) { atChild = append(atChild, p.seq()) })

	require.True(t, c.Bus().EmitEvent(ping{1}))
	flushBus(t, h)
	consumer.Cancel()
	require.True(t, c.Bus().EmitEvent(ping{2}))
	flushBus(t, h)

	assert.Equal(t, []int{1}, atChild)
	assert.Equal(t, []int{2}, atRoot)

	var actions []string
	bus.ObserveAction(c.Bus(), func(s string) { actions = append(actions, s) })
	require.True(t, root.Bus().EmitAction("refresh"))
	flushBus(t, h)
	assert.Equal(t, []string{"refresh"}, actions)

	require.NoError(t, root.Detach(c))
	require.True(t, root.Bus().EmitAction("after"))
	flushBus(t, h)
	assert.Equal(t, []string{"refresh"}, actions)
	shutdown(t, h)
}
