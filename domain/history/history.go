// Package history defines the persisted record of what happened during runs.
package history

import (
	"context"
	"time"
)

// Record is one event of a run as stored in the history.
type Record struct {
	ID        string
	SessionID string
	RunID     string
	Event     string
	Op        string
	Target    string
	Message   string
	Error     string
	Duration  time.Duration
	Time      time.Time
}

// Failed reports whether the record describes an error.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Repository defines the interface for run history persistence.
type Repository interface {
	// Insert stores a record and sets its ID.
	Insert(ctx context.Context, record *Record) error

	// FindBySession returns the records of a session in time order.
	FindBySession(ctx context.Context, sessionID string) ([]*Record, error)

	// FindByRun returns the records carrying runID in time order.
	FindByRun(ctx context.Context, runID string) ([]*Record, error)
}
