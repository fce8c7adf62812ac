// Package application wires sessions to the services that observe them.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"browserkit-go/core/event"
	"browserkit-go/core/eventbus"
	"browserkit-go/domain/history"
)

// DefaultInsertTimeout bounds a single history insert.
const DefaultInsertTimeout = 5 * time.Second

// Recorder persists session events to a history repository.
// It runs on the event bus goroutine and never blocks the session.
type Recorder struct {
	repo    history.Repository
	bus     eventbus.EventBus
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	runID   string

	mu     sync.Mutex
	runIDs map[string]string
	subID  string
}

// RecorderConfig holds configuration for the Recorder.
type RecorderConfig struct {
	Repository    history.Repository
	EventBus      eventbus.EventBus
	Logger        *slog.Logger
	InsertTimeout time.Duration
	Now           func() time.Time
	// RunID is stamped on records of sessions that have not announced
	// their own run yet, such as a session whose Setup failed.
	RunID string
}

// NewRecorder creates a recorder and subscribes it to all events on the bus.
func NewRecorder(cfg *RecorderConfig) *Recorder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = DefaultInsertTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Recorder{
		repo:    cfg.Repository,
		bus:     cfg.EventBus,
		logger:  cfg.Logger,
		timeout: cfg.InsertTimeout,
		now:     cfg.Now,
		runID:   cfg.RunID,
		runIDs:  make(map[string]string),
	}

	if r.bus != nil {
		r.subID = r.bus.Subscribe(r.handleEvent)
	}

	return r
}

// Stop unsubscribes from the bus. Events already queued may still arrive.
func (r *Recorder) Stop() {
	if r.bus != nil && r.subID != "" {
		r.bus.Unsubscribe(r.subID)
	}
}

func (r *Recorder) handleEvent(e event.Event) {
	rec := r.toRecord(e)
	if rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.Insert(ctx, rec); err != nil {
		r.logger.Warn("Failed to record event",
			"event", rec.Event,
			"session_id", rec.SessionID,
			"error", err)
	}
}

// toRecord converts a session event. Events without a session are ignored.
func (r *Recorder) toRecord(e event.Event) *history.Record {
	se, ok := e.(event.SessionEvent)
	if !ok {
		return nil
	}

	rec := &history.Record{
		SessionID: se.SessionID(),
		Event:     e.EventName(),
		Time:      se.OccurredAt(),
	}
	if rec.Time.IsZero() {
		rec.Time = r.now()
	}

	switch ev := e.(type) {
	case *event.SessionStarted:
		r.mu.Lock()
		r.runIDs[rec.SessionID] = ev.RunID
		r.mu.Unlock()
		rec.Target = ev.Browser
	case *event.SessionStopped:
		rec.Message = ev.Message
		rec.Error = errString(ev.Error)
	case *event.SessionStateChanged:
		rec.Message = ev.OldState.String() + " -> " + ev.NewState.String()
	case *event.ActionCompleted:
		rec.Op = ev.Op
		rec.Target = ev.Target
		rec.Message = ev.Label
		rec.Duration = ev.Duration
	case *event.ActionFailed:
		rec.Op = ev.Op
		rec.Target = ev.Target
		rec.Message = ev.Message
		rec.Error = errString(ev.Error)
	case *event.ScriptStarted:
		rec.Target = ev.ScriptName
	case *event.ScriptStopped:
		rec.Target = ev.ScriptName
		rec.Message = ev.Reason.String()
		rec.Error = errString(ev.Error)
	}

	r.mu.Lock()
	runID, ok := r.runIDs[rec.SessionID]
	r.mu.Unlock()
	if !ok {
		runID = r.runID
	}
	rec.RunID = runID

	return rec
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
