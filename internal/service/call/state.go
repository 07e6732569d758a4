package call

import (
	"errors"
	"fmt"
	"sync"
)

// State is a session lifecycle phase. Transitions are strictly forward;
// a session never re-enters an earlier phase.
type State int

const (
	StateInit State = iota
	StateNegotiating
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNegotiating:
		return "negotiating"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ErrAlreadyDraining reports a drain request on a session whose teardown has
// already begun. Callers use it to make teardown idempotent.
var ErrAlreadyDraining = errors.New("session already draining or closed")

// Lifecycle tracks a session's phase and guards transition ordering.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// NewLifecycle returns a lifecycle in the init phase.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateInit}
}

// State returns the current phase.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsTerminal reports whether the session has closed.
func (l *Lifecycle) IsTerminal() bool {
	return l.State() == StateClosed
}

// BeginNegotiation moves init to negotiating.
func (l *Lifecycle) BeginNegotiation() error {
	return l.advance(StateInit, StateNegotiating)
}

// BeginStreaming moves negotiating to streaming.
func (l *Lifecycle) BeginStreaming() error {
	return l.advance(StateNegotiating, StateStreaming)
}

// BeginDraining moves the session into teardown. Exactly one caller wins;
// every subsequent call gets ErrAlreadyDraining, which is how the terminal
// work runs once no matter how many paths request a drain.
func (l *Lifecycle) BeginDraining() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDraining || l.state == StateClosed {
		return ErrAlreadyDraining
	}
	l.state = StateDraining
	return nil
}

// Close marks the session terminal. Idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

func (l *Lifecycle) advance(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return fmt.Errorf("invalid transition %s -> %s", l.state, to)
	}
	l.state = to
	return nil
}
