// Package state defines the session lifecycle state machine.
package state

import "fmt"

// SessionState represents the lifecycle state of a browser session.
type SessionState int

const (
	// StateUninitialized is the initial state before any browser is provisioned.
	StateUninitialized SessionState = iota
	// StateStarting indicates a driver is being constructed and launched.
	StateStarting
	// StateActive indicates the browser is up and accepts actions.
	StateActive
	// StateStopping indicates the browser is being closed.
	StateStopping
	// StateTerminated indicates the run has ended. It is terminal.
	StateTerminated
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateStopping:
		return "Stopping"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[SessionState][]SessionState{
	StateUninitialized: {StateStarting, StateStopping},
	StateStarting:      {StateActive, StateUninitialized, StateStopping},
	StateActive:        {StateStarting, StateStopping},
	StateStopping:      {StateTerminated},
	StateTerminated:    {}, // Terminal state, no transitions allowed
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target states from the current state.
func (s SessionState) ValidTransitions() []SessionState {
	return validTransitions[s]
}

// IsTerminal returns true if the state is a terminal state (no further transitions).
func (s SessionState) IsTerminal() bool {
	return s == StateTerminated
}

// CanAcceptActions returns true if browser actions may be issued.
func (s SessionState) CanAcceptActions() bool {
	return s == StateActive
}

// IsShuttingDown returns true once Stop has begun.
func (s SessionState) IsShuttingDown() bool {
	return s == StateStopping || s == StateTerminated
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   SessionState
	To     SessionState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to SessionState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
