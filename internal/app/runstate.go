package app

import (
	"sync"
	"time"

	"github.com/bft-labs/canopy/internal/domain"
	"github.com/bft-labs/canopy/pkg/log"
)

// DefaultShutdownTimeout bounds how long Stop waits for the lanes to drain.
const DefaultShutdownTimeout = 30 * time.Second

// State is the run state of a runtime.
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
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called after every run state change.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// RunState guards the run state of a runtime and tracks its worker
// goroutines.
type RunState struct {
	mu      sync.RWMutex
	state   State
	wg      sync.WaitGroup
	logger  log.Logger
	emitter EventEmitter
}

// NewRunState creates a run state in StateStopped.
func NewRunState(logger log.Logger, emitter EventEmitter) *RunState {
	return &RunState{
		state:   StateStopped,
		logger:  log.OrNoop(logger),
		emitter: emitter,
	}
}

// State returns the current run state.
func (r *RunState) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// TransitionTo moves to next, or returns ErrNotRunning / ErrAlreadyRunning
// when the move is not allowed from the current state.
func (r *RunState) TransitionTo(next State, reason string) error {
	r.mu.Lock()
	prev := r.state
	if err := checkTransition(prev, next); err != nil {
		r.mu.Unlock()
		return err
	}
	r.state = next
	r.mu.Unlock()

	if r.emitter != nil {
		r.emitter.OnStateChange(prev, next, reason)
	}
	r.logger.Info("state transition",
		log.Stringer("from", prev),
		log.Stringer("to", next),
		log.String("reason", reason),
	)
	return nil
}

func checkTransition(from, to State) error {
	switch from {
	case StateStopped:
		if to != StateStarting {
			return domain.ErrNotRunning
		}
	case StateStarting:
		if to != StateRunning && to != StateStopping && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateRunning:
		if to != StateStopping && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateStopping:
		if to != StateStopped && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateCrashed:
		if to != StateStarting {
			return domain.ErrNotRunning
		}
	}
	return nil
}

// CanStart reports whether Start may be called.
func (r *RunState) CanStart() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == StateStopped || r.state == StateCrashed
}

// CanStop reports whether Stop may be called.
func (r *RunState) CanStop() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == StateRunning || r.state == StateStarting
}

// Track counts a worker until done is closed.
func (r *RunState) Track(done <-chan struct{}) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-done
	}()
}

// WaitWithTimeout waits for every tracked worker, or returns
// ErrShutdownTimeout once timeout expires.
func (r *RunState) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		r.logger.Warn("shutdown timeout, forcing exit", log.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
