package lifecycle

import (
	"errors"
	"fmt"
)

// ErrLifecycle is matched by every lifecycle violation.
var ErrLifecycle = errors.New("canopy: lifecycle violation")

// Error describes a lifecycle violation.
//
// Incomplete is set when a node entered its hook in the right state but left
// it in the wrong one, which means the hook did not call through to the
// embedded implementation. Otherwise the caller invoked Op from a state that
// does not allow it.
type Error struct {
	Op         string
	Want       State
	Got        State
	Incomplete bool
	Msg        string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		if e.Op != "" {
			return fmt.Sprintf("canopy: %s: %s", e.Op, e.Msg)
		}
		return "canopy: " + e.Msg
	}
	if e.Incomplete {
		return fmt.Sprintf("canopy: %s: state is %s after hook, want %s (missing call to embedded hook?)",
			e.Op, e.Got, e.Want)
	}
	return fmt.Sprintf("canopy: %s: state is %s, want %s", e.Op, e.Got, e.Want)
}

// Is reports whether target is ErrLifecycle.
func (e *Error) Is(target error) bool {
	return target == ErrLifecycle
}

// Errorf returns a lifecycle violation with a formatted message.
func Errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
