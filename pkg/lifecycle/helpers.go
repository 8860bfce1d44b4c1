package lifecycle

// IsAlive reports whether the source has not been destroyed.
func IsAlive(s Source) bool { return s.State() >= Alive }

// IsAttached reports whether the source is at least Attached.
func IsAttached(s Source) bool { return s.State() >= Attached }

// IsStarted reports whether the source is at least Started.
func IsStarted(s Source) bool { return s.State() >= Started }

// IsResumed reports whether the source is Resumed.
func IsResumed(s Source) bool { return s.State() == Resumed }

// IsDestroyed reports whether the source has been destroyed.
func IsDestroyed(s Source) bool { return s.State() == Destroyed }

// CancelOn runs cancel once when src fires ev.
// The returned func unregisters it without running it.
func CancelOn(src Source, ev Event, cancel func()) (release func()) {
	id := src.AddEventCallback(ev, func(Event) { cancel() })
	return func() { src.RemoveEventCallback(id) }
}

// WhileIn calls subscribe only if src is at least at state, and cancels the
// resulting subscription when src leaves that state. It reports whether
// subscribe was called.
func WhileIn(src Source, state State, subscribe func() (cancel func())) bool {
	if src.State() < state {
		return false
	}
	ev, ok := ClosingEvent(state)
	if !ok {
		return false
	}
	CancelOn(src, ev, subscribe())
	return true
}
