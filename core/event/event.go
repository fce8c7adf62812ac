// Package event defines all events that can be published by a session.
// Events describe lifecycle changes and action outcomes and are consumed by
// subscribers such as the run history recorder.
package event

import (
	"time"

	"browserkit-go/core/state"
)

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// SessionEvent is an event that originates from a specific session.
type SessionEvent interface {
	Event
	// SessionID returns the source session ID
	SessionID() string
	// OccurredAt returns when the event was created
	OccurredAt() time.Time
}

// baseSessionEvent provides common implementation for session events.
type baseSessionEvent struct {
	sessionID string
	at        time.Time
}

func newBaseSessionEvent(sessionID string) baseSessionEvent {
	return baseSessionEvent{sessionID: sessionID, at: time.Now()}
}

func (e *baseSessionEvent) SessionID() string {
	return e.sessionID
}

func (e *baseSessionEvent) OccurredAt() time.Time {
	return e.at
}

// SessionStarted is published when a browser has been provisioned.
type SessionStarted struct {
	baseSessionEvent
	Browser string
	RunID   string
}

func NewSessionStarted(sessionID, browser, runID string) *SessionStarted {
	return &SessionStarted{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		Browser:          browser,
		RunID:            runID,
	}
}

func (e *SessionStarted) EventName() string {
	return "SessionStarted"
}

// SessionStopped is published once a run has ended.
type SessionStopped struct {
	baseSessionEvent
	Message string
	Error   error // nil if the browser closed cleanly
}

func NewSessionStopped(sessionID, message string, err error) *SessionStopped {
	return &SessionStopped{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		Message:          message,
		Error:            err,
	}
}

func (e *SessionStopped) EventName() string {
	return "SessionStopped"
}

// SessionStateChanged is published when a session's state changes.
type SessionStateChanged struct {
	baseSessionEvent
	OldState state.SessionState
	NewState state.SessionState
}

func NewSessionStateChanged(sessionID string, oldState, newState state.SessionState) *SessionStateChanged {
	return &SessionStateChanged{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		OldState:         oldState,
		NewState:         newState,
	}
}

func (e *SessionStateChanged) EventName() string {
	return "SessionStateChanged"
}

// ActionCompleted is published after a browser action succeeds.
type ActionCompleted struct {
	baseSessionEvent
	Op       string
	Target   string
	Label    string
	Duration time.Duration
}

func NewActionCompleted(sessionID, op, target, label string, d time.Duration) *ActionCompleted {
	return &ActionCompleted{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		Op:               op,
		Target:           target,
		Label:            label,
		Duration:         d,
	}
}

func (e *ActionCompleted) EventName() string {
	return "ActionCompleted"
}

// ActionFailed is published when a browser action fails.
type ActionFailed struct {
	baseSessionEvent
	Op      string
	Target  string
	Message string
	Error   error
}

func NewActionFailed(sessionID, op, target, message string, err error) *ActionFailed {
	return &ActionFailed{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		Op:               op,
		Target:           target,
		Message:          message,
		Error:            err,
	}
}

func (e *ActionFailed) EventName() string {
	return "ActionFailed"
}
