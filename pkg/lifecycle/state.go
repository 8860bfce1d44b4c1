package lifecycle

// State represents the lifecycle state of a node.
// States are totally ordered; a larger value means a more active node.
type State int

const (
	Destroyed State = iota
	Alive
	Attached
	Started
	Resumed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Destroyed:
		return "Destroyed"
	case Alive:
		return "Alive"
	case Attached:
		return "Attached"
	case Started:
		return "Started"
	case Resumed:
		return "Resumed"
	default:
		return "Unknown"
	}
}

// Event identifies one edge of the state machine.
type Event int

const (
	EventAttach Event = iota
	EventStart
	EventResume
	EventPause
	EventStop
	EventDetach
	EventDestroy
)

// String returns a human-readable representation of the event.
func (e Event) String() string {
	switch e {
	case EventAttach:
		return "Attach"
	case EventStart:
		return "Start"
	case EventResume:
		return "Resume"
	case EventPause:
		return "Pause"
	case EventStop:
		return "Stop"
	case EventDetach:
		return "Detach"
	case EventDestroy:
		return "Destroy"
	default:
		return "Unknown"
	}
}

// Opening reports whether the event moves a node towards Resumed.
func (e Event) Opening() bool {
	return e == EventAttach || e == EventStart || e == EventResume
}

type edge struct {
	from, to State
}

var edges = map[edge]Event{
	{Alive, Attached}:   EventAttach,
	{Attached, Started}: EventStart,
	{Started, Resumed}:  EventResume,
	{Resumed, Started}:  EventPause,
	{Started, Attached}: EventStop,
	{Attached, Alive}:   EventDetach,
	{Alive, Destroyed}:  EventDestroy,
}

// EventFor returns the event fired when moving from one state to another.
// The second result is false when the move is not a legal transition.
func EventFor(from, to State) (Event, bool) {
	ev, ok := edges[edge{from, to}]
	return ev, ok
}

// Source returns the state an event leaves.
func (e Event) Source() State {
	for k, v := range edges {
		if v == e {
			return k.from
		}
	}
	return Destroyed
}

// Target returns the state an event enters.
func (e Event) Target() State {
	for k, v := range edges {
		if v == e {
			return k.to
		}
	}
	return Destroyed
}

// ClosingEvent returns the event that leaves s on a decreasing move.
func ClosingEvent(s State) (Event, bool) {
	switch s {
	case Alive:
		return EventDestroy, true
	case Attached:
		return EventDetach, true
	case Started:
		return EventStop, true
	case Resumed:
		return EventPause, true
	default:
		return 0, false
	}
}
