package domain

import "errors"

// Runtime errors returned by the public API. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start is called on a running runtime.
	ErrAlreadyRunning = errors.New("canopy: already running")

	// ErrNotRunning is returned when a runtime that is not running is asked to
	// stop or to dispatch work.
	ErrNotRunning = errors.New("canopy: not running")

	// ErrShutdownTimeout is returned when the tree does not wind down in time.
	ErrShutdownTimeout = errors.New("canopy: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("canopy: invalid configuration")
)
