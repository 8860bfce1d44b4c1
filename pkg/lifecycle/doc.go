// Package lifecycle provides the per-node lifecycle state machine.
//
// Every node in a canopy tree moves through a totally ordered set of states:
//
//	Destroyed < Alive < Attached < Started < Resumed
//
// Transitions are only legal between adjacent states, with the single
// exception of the terminal Alive -> Destroyed move. Each edge has exactly one
// Event. Opening events (Attach, Start, Resume) fire after the state has been
// entered; closing events (Pause, Stop, Detach, Destroy) fire before the state
// is left, so observers of a closing event still see the old state.
//
// # Usage
//
// Create a machine and drive it:
//
//	m := lifecycle.NewMachine(logger, nil)
//
//	m.AddEventCallback(lifecycle.EventDetach, func(lifecycle.Event) {
//	    // release resources bound while attached
//	})
//
//	if err := m.Transition(lifecycle.Attached); err != nil {
//	    return err // *lifecycle.Error, errors.Is(err, lifecycle.ErrLifecycle)
//	}
//
// Event callbacks are one-shot: they run synchronously during the matching
// transition and are removed afterwards. Subscribe registers a listener that
// receives every event until it is cancelled or the machine is destroyed.
//
// # State Machine
//
// Valid transitions:
//   - Alive -> Attached (Attach), Attached -> Alive (Detach)
//   - Attached -> Started (Start), Started -> Attached (Stop)
//   - Started -> Resumed (Resume), Resumed -> Started (Pause)
//   - Alive -> Destroyed (Destroy), terminal
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
