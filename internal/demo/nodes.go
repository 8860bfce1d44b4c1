// Package demo holds the node classes the canopy CLI builds trees from.
package demo

import (
	"github.com/bft-labs/canopy/pkg/bus"
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/surface"
)

const (
	ClassStack   component.Class = "demo.stack"
	ClassCounter component.Class = "demo.counter"
	ClassLabel   component.Class = "demo.label"
)

// ContentContainer is the id of the container children of a Stack live in.
const ContentContainer = "content"

const (
	argCount = "count"
	argText  = "text"
)

// Increment is a bus action asking every counter below the sender to add Step.
type Increment struct{ Step int }

// Changed is the bus event a counter emits after its count moves.
type Changed struct {
	ID    string
	Count int
}

// Constructors returns the constructor of every demo class.
func Constructors() map[component.Class]component.Constructor {
	return map[component.Class]component.Constructor{
		ClassStack:   NewStack,
		ClassCounter: NewCounter,
		ClassLabel:   NewLabel,
	}
}

// Stack is a group with a single content container. It logs every node
// added or removed anywhere below it.
type Stack struct{ *component.Group }

func NewStack(h *component.Host, _ surface.Handle) (component.Node, error) {
	surf := h.Surface()
	handle := surf.NewHandle("")
	if err := surf.Insert(handle, surf.NewHandle(ContentContainer), -1); err != nil {
		return nil, err
	}
	s := &Stack{Group: component.NewGroup(h, handle)}
	// streams complete on destroy, so the subscriptions need no cancel
	s.OnChildAddRecursive().Subscribe(func(n component.Node) {
		s.Logger().Debug("node added", log.String("child", n.ID()), log.String("child_class", string(n.Class())))
	})
	s.OnChildRemoveRecursive().Subscribe(func(n component.Node) {
		s.Logger().Debug("node removed", log.String("child", n.ID()), log.String("child_class", string(n.Class())))
	})
	return s, nil
}

// Broadcast sends an Increment to every counter below s.
func (s *Stack) Broadcast(step int) bool {
	return s.Bus().EmitAction(Increment{Step: step})
}

// Counter keeps an integer in its arguments and follows Increment actions
// while started.
type Counter struct {
	*component.Base
	sub *bus.Subscription
}

func NewCounter(h *component.Host, _ surface.Handle) (component.Node, error) {
	return &Counter{Base: component.NewBase(h, h.Surface().NewHandle(""))}, nil
}

// Count returns the current count, or 0 while detached.
func (c *Counter) Count() int {
	n, _ := c.ArgInt(argCount, 0)
	return n
}

// Add moves the count by step and announces it. It runs from the bus
// handler as well, so it may be called off the principal lane.
func (c *Counter) Add(step int) error {
	n, err := c.AddArgInt(argCount, step)
	if err != nil {
		return err
	}
	c.Bus().EmitEvent(Changed{ID: c.ID(), Count: n})
	return nil
}

func (c *Counter) OnStart() error {
	if err := c.Base.OnStart(); err != nil {
		return err
	}
	c.sub = bus.ObserveAction(c.Bus(), func(i Increment) {
		if err := c.Add(i.Step); err != nil {
			c.Logger().Warn("increment dropped", log.Err(err))
		}
	})
	return nil
}

func (c *Counter) OnStop() error {
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	return c.Base.OnStop()
}

// Label shows a line of text. It is rebuilt on every configuration change.
type Label struct{ *component.Base }

func NewLabel(h *component.Host, _ surface.Handle) (component.Node, error) {
	return &Label{component.NewBase(h, h.Surface().NewHandle(""), component.SurviveConfigChange(false))}, nil
}

// Text returns the label text, or "" while detached.
func (l *Label) Text() string {
	s, _ := l.ArgString(argText, "")
	return s
}

func (l *Label) SetText(s string) error {
	return l.SetArgString(argText, s)
}
