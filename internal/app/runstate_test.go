package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/canopy/internal/domain"
	"github.com/bft-labs/canopy/pkg/log"
)

// mockEmitter records state change events.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func newTestRunState(from State) *RunState {
	r := NewRunState(log.NoopLogger{}, nil)
	r.state = from
	return r
}

func TestNewRunState(t *testing.T) {
	r := NewRunState(nil, nil)
	if r.State() != StateStopped {
		t.Errorf("initial state = %v, want StateStopped", r.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestRunState_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to starting", StateStopped, StateStarting},
		{"starting to running", StateStarting, StateRunning},
		{"starting to stopping", StateStarting, StateStopping},
		{"starting to crashed", StateStarting, StateCrashed},
		{"running to stopping", StateRunning, StateStopping},
		{"running to crashed", StateRunning, StateCrashed},
		{"stopping to stopped", StateStopping, StateStopped},
		{"stopping to crashed", StateStopping, StateCrashed},
		{"crashed to starting", StateCrashed, StateStarting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunState(tt.from)
			if err := r.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if r.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", r.State(), tt.to)
			}
		})
	}
}

func TestRunState_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"starting to stopped", StateStarting, StateStopped, domain.ErrAlreadyRunning},
		{"running to starting", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"running to stopped", StateRunning, StateStopped, domain.ErrAlreadyRunning},
		{"stopping to running", StateStopping, StateRunning, domain.ErrAlreadyRunning},
		{"crashed to running", StateCrashed, StateRunning, domain.ErrNotRunning},
		{"crashed to stopped", StateCrashed, StateStopped, domain.ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunState(tt.from)
			err := r.TransitionTo(tt.to, "test")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			if r.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", r.State(), tt.from)
			}
		})
	}
}

func TestRunState_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	r := NewRunState(log.NoopLogger{}, emitter)

	_ = r.TransitionTo(StateStarting, "start")
	_ = r.TransitionTo(StateRunning, "tree resumed")
	_ = r.TransitionTo(StateStarting, "ignored")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].previous != StateStarting || events[1].current != StateRunning || events[1].reason != "tree resumed" {
		t.Errorf("event 1 = %+v, want Starting->Running (tree resumed)", events[1])
	}
}

func TestRunState_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state     State
		wantStart bool
		wantStop  bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateStopping, false, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			r := newTestRunState(tt.state)
			if got := r.CanStart(); got != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.wantStart)
			}
			if got := r.CanStop(); got != tt.wantStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func TestRunState_WaitWithTimeout(t *testing.T) {
	r := NewRunState(nil, nil)
	done := make(chan struct{})
	r.Track(done)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(done)
	}()
	if err := r.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestRunState_WaitWithTimeout_Expires(t *testing.T) {
	r := NewRunState(nil, nil)
	never := make(chan struct{})
	defer close(never)
	r.Track(never)

	if err := r.WaitWithTimeout(10 * time.Millisecond); !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}
}

func TestRunState_Concurrency(t *testing.T) {
	r := NewRunState(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.State()
				_ = r.CanStart()
				_ = r.CanStop()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.TransitionTo(StateStarting, "test")
			_ = r.TransitionTo(StateRunning, "test")
		}()
	}
	wg.Wait()
}
