package canopy

import (
	"github.com/bft-labs/canopy/internal/app"
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/lifecycle"
)

// State is the run state of a Runtime.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent describes a run state change.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// NodeTransitionEvent describes a lifecycle transition of one node.
type NodeTransitionEvent struct {
	Class component.Class
	ID    string
	From  lifecycle.State
	To    lifecycle.State
	Event lifecycle.Event
}

// EventHandler receives runtime events. Methods are called synchronously;
// node transitions arrive on the principal lane and must not call Dispatch.
type EventHandler interface {
	OnStateChange(e StateChangeEvent)
	OnNodeTransition(e NodeTransitionEvent)
}

// eventEmitterWrapper adapts an EventHandler to the internal emitter and
// observer interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnNodeTransition(n component.Node, from, to lifecycle.State, ev lifecycle.Event) {
	if e.handler == nil {
		return
	}
	e.handler.OnNodeTransition(NodeTransitionEvent{
		Class: n.Class(),
		ID:    n.ID(),
		From:  from,
		To:    to,
		Event: ev,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// BaseEventHandler provides no-op implementations of all EventHandler methods.
// Embed it to handle only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnNodeTransition(NodeTransitionEvent) {}
