package state

import "testing"

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state    SessionState
		expected string
	}{
		{StateUninitialized, "Uninitialized"},
		{StateStarting, "Starting"},
		{StateActive, "Active"},
		{StateStopping, "Stopping"},
		{StateTerminated, "Terminated"},
		{SessionState(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("SessionState.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSessionState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     SessionState
		to       SessionState
		expected bool
	}{
		{"Uninitialized -> Starting", StateUninitialized, StateStarting, true},
		{"Uninitialized -> Stopping", StateUninitialized, StateStopping, true},
		{"Uninitialized -> Active (invalid)", StateUninitialized, StateActive, false},

		{"Starting -> Active", StateStarting, StateActive, true},
		{"Starting -> Uninitialized", StateStarting, StateUninitialized, true},
		{"Starting -> Stopping", StateStarting, StateStopping, true},
		{"Starting -> Terminated (invalid)", StateStarting, StateTerminated, false},

		{"Active -> Starting", StateActive, StateStarting, true},
		{"Active -> Stopping", StateActive, StateStopping, true},
		{"Active -> Uninitialized (invalid)", StateActive, StateUninitialized, false},

		{"Stopping -> Terminated", StateStopping, StateTerminated, true},
		{"Stopping -> Active (invalid)", StateStopping, StateActive, false},

		{"Terminated -> Active (invalid)", StateTerminated, StateActive, false},
		{"Terminated -> Starting (invalid)", StateTerminated, StateStarting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSessionState_Helpers(t *testing.T) {
	tests := []struct {
		state        SessionState
		terminal     bool
		acceptsActs  bool
		shuttingDown bool
	}{
		{StateUninitialized, false, false, false},
		{StateStarting, false, false, false},
		{StateActive, false, true, false},
		{StateStopping, false, false, true},
		{StateTerminated, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.state.CanAcceptActions(); got != tt.acceptsActs {
				t.Errorf("CanAcceptActions() = %v, want %v", got, tt.acceptsActs)
			}
			if got := tt.state.IsShuttingDown(); got != tt.shuttingDown {
				t.Errorf("IsShuttingDown() = %v, want %v", got, tt.shuttingDown)
			}
		})
	}
}

func TestSessionState_ValidTransitions(t *testing.T) {
	if got := StateTerminated.ValidTransitions(); len(got) != 0 {
		t.Errorf("Terminated.ValidTransitions() = %v, want none", got)
	}
	if got := StateActive.ValidTransitions(); len(got) != 2 {
		t.Errorf("Active.ValidTransitions() length = %d, want 2", len(got))
	}
}

func TestTransitionError(t *testing.T) {
	err := NewTransitionError(StateTerminated, StateActive, "run already ended")
	want := "invalid state transition from Terminated to Active: run already ended"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	err = NewTransitionError(StateStopping, StateStarting, "")
	want = "invalid state transition from Stopping to Starting"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}
