package component

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/surface"
)

const (
	classCounter     Class = "test.counter"
	classFragile     Class = "test.fragile"
	classDisposable  Class = "test.disposable"
	classStateless   Class = "test.stateless"
	classBack        Class = "test.back"
	classLazy        Class = "test.lazy"
	classStack       Class = "test.stack"
	classFragileRoot Class = "test.fragile-stack"
)

type counter struct{ *Base }

func (c *counter) Count() int {
	v, _ := c.ArgInt("count", 0)
	return v
}

func (c *counter) SetCount(v int) {
	if err := c.SetArgInt("count", v); err != nil {
		panic(err)
	}
}

// goBack handles one back press per remaining count.
type goBack struct{ *counter }

func (b *goBack) OnBackPressed() bool {
	if n := b.Count(); n > 0 {
		b.SetCount(n - 1)
		return true
	}
	return b.Base.OnBackPressed()
}

// lazy forgets to call through on start.
type lazy struct{ *Base }

func (l *lazy) OnStart() error { return nil }

type stack struct {
	*Group
	content surface.Handle
}

func newStack(h *Host, opts ...Option) (*stack, error) {
	surf := h.Surface()
	handle := surf.NewHandle("")
	content := surf.NewHandle("content")
	if err := surf.Insert(handle, content, -1); err != nil {
		return nil, err
	}
	return &stack{Group: NewGroup(h, handle, opts...), content: content}, nil
}

func leaf(opts ...Option) Constructor {
	return func(h *Host, _ surface.Handle) (Node, error) {
		return &counter{NewBase(h, h.Surface().NewHandle(""), opts...)}, nil
	}
}

func newTestHost(t *testing.T, root Class, opts ...HostOption) *Host {
	t.Helper()
	h := NewHost(root, opts...)
	f := h.Factory()
	f.Register(classCounter, leaf())
	f.Register(classFragile, leaf(SurviveConfigChange(false)))
	f.Register(classDisposable, leaf(Reusable(false)))
	f.Register(classStateless, leaf(PreserveState(false)))
	f.Register(classBack, func(h *Host, _ surface.Handle) (Node, error) {
		return &goBack{&counter{NewBase(h, h.Surface().NewHandle(""))}}, nil
	})
	f.Register(classLazy, func(h *Host, _ surface.Handle) (Node, error) {
		return &lazy{NewBase(h, h.Surface().NewHandle(""))}, nil
	})
	f.Register(classStack, func(h *Host, _ surface.Handle) (Node, error) {
		return newStack(h)
	})
	f.Register(classFragileRoot, func(h *Host, _ surface.Handle) (Node, error) {
		return newStack(h, SurviveConfigChange(false))
	})
	t.Cleanup(func() {
		if h.ownLane {
			h.busLane.Close()
		}
	})
	return h
}

// resumedHost creates, starts and resumes a host rooted at class.
func resumedHost(t *testing.T, root Class, opts ...HostOption) (*Host, *stack) {
	t.Helper()
	h := newTestHost(t, root, opts...)
	n, err := h.Create(nil)
	require.NoError(t, err)
	require.NoError(t, h.Start())
	require.NoError(t, h.Resume())
	return h, n.(*stack)
}

func shutdown(t *testing.T, h *Host) {
	t.Helper()
	require.NoError(t, h.Pause())
	require.NoError(t, h.Stop())
	require.NoError(t, h.Destroy())
}

type countable interface {
	Node
	Count() int
	SetCount(v int)
	IsRestored() bool
}

func attachCounter(t *testing.T, g *stack, class Class, id string, count int) countable {
	t.Helper()
	n, err := g.AttachTo("content", class, Args(id))
	require.NoError(t, err)
	c := n.(countable)
	c.SetCount(count)
	return c
}

func counts(nodes []Node) []int {
	out := make([]int, 0, len(nodes))
	for _, n := range nodes {
		if c, ok := n.(countable); ok {
			out = append(out, c.Count())
		}
	}
	return out
}

func flushBus(t *testing.T, h *Host) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.BusLane().Flush(ctx))
}

type transition struct {
	class Class
	ev    lifecycle.Event
}

type recordingObserver struct {
	seen []transition
}

func (o *recordingObserver) OnNodeTransition(n Node, _, _ lifecycle.State, ev lifecycle.Event) {
	o.seen = append(o.seen, transition{n.Class(), ev})
}

func (o *recordingObserver) reset() { o.seen = nil }
