package action

import "errors"

// Action queue errors. They are delivered to the observers of the affected
// proxy, or returned from Post.
var (
	ErrCannotExecute        = errors.New("canopy: cannot execute action")
	ErrPrematureTermination = errors.New("canopy: action terminated prematurely")
)
