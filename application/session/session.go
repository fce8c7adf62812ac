// Package session implements the browser action facade: one Session owns one
// browser driver and turns every action into a wait, act, then log or fail step.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"browserkit-go/core/event"
	"browserkit-go/core/eventbus"
	"browserkit-go/core/state"
	"browserkit-go/infrastructure/browser"
	"browserkit-go/infrastructure/report"
)

const (
	// DefaultTimeoutSeconds is the element wait used until SetTimeoutTime is called.
	DefaultTimeoutSeconds = 3
	// DefaultPollInterval is how often explicit waits re-query the page.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultDriversDir holds the native driver executables.
	DefaultDriversDir = "drivers"
)

// DriverFactory constructs an unstarted driver for a variant.
type DriverFactory func(variant browser.Variant) (browser.Driver, error)

// BackendFactory returns a DriverFactory building drivers for backend.
func BackendFactory(backend browser.Backend, cfg *browser.DriverConfig) DriverFactory {
	return func(variant browser.Variant) (browser.Driver, error) {
		return browser.NewDriver(backend, variant, cfg)
	}
}

// Session is the browser action facade. A Session is meant to be driven from
// one goroutine; Stop may be called from another.
type Session struct {
	// Identity
	id string

	// State
	state   state.SessionState
	driver  browser.Driver
	variant browser.Variant
	timeout time.Duration
	stateMu sync.RWMutex

	// Dependencies
	driversDir    string
	pollInterval  time.Duration
	driverFactory DriverFactory
	reporter      *report.Reporter
	eventBus      eventbus.EventBus
	logger        *slog.Logger
}

// Config holds configuration for creating a new Session.
type Config struct {
	// ID identifies the session in events. A UUID is generated when empty.
	ID string
	// DriversDir holds the native driver executables.
	DriversDir string
	// TimeoutSeconds is the initial element wait.
	TimeoutSeconds int
	// PollInterval is how often explicit waits re-query the page.
	PollInterval  time.Duration
	DriverFactory DriverFactory
	// Reporter receives the run's Log and Result lines. Nil records nothing.
	Reporter *report.Reporter
	EventBus eventbus.EventBus
	Logger   *slog.Logger
}

// New creates a Session. No browser is started until Setup.
func New(cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DriversDir == "" {
		cfg.DriversDir = DefaultDriversDir
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DriverFactory == nil {
		cfg.DriverFactory = BackendFactory(browser.BackendWebDriver, nil)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.Discard()
	}

	return &Session{
		id:            cfg.ID,
		state:         state.StateUninitialized,
		timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		driversDir:    cfg.DriversDir,
		pollInterval:  cfg.PollInterval,
		driverFactory: cfg.DriverFactory,
		reporter:      cfg.Reporter,
		eventBus:      cfg.EventBus,
		logger:        cfg.Logger.With("session_id", cfg.ID),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// RunID returns the identifier of the run being recorded.
func (s *Session) RunID() string {
	return s.reporter.RunID()
}

// Reporter returns the run reporter.
func (s *Session) Reporter() *report.Reporter {
	return s.reporter
}

// State returns the current session state.
func (s *Session) State() state.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Timeout returns the current element wait.
func (s *Session) Timeout() time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.timeout
}

// Driver returns the active driver, or nil before Setup and after Stop.
func (s *Session) Driver() browser.Driver {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.driver
}

// Variant returns the browser variant of the last successful Setup.
func (s *Session) Variant() browser.Variant {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.variant
}

// Setup provisions a browser of the given variant. The variant's driver key
// is pointed at <DriversDir>/<driver file> before the driver is built. A
// browser from an earlier Setup is stopped first.
func (s *Session) Setup(ctx context.Context, variant browser.Variant) error {
	if !variant.Valid() {
		return fmt.Errorf("%w: %s", browser.ErrUnsupportedVariant, variant)
	}

	s.stateMu.Lock()
	previous := s.driver
	s.stateMu.Unlock()

	if err := s.transitionTo(state.StateStarting); err != nil {
		if s.State().IsShuttingDown() {
			return ErrTerminated
		}
		return err
	}

	if previous != nil {
		s.stateMu.Lock()
		s.driver = nil
		s.stateMu.Unlock()
		if err := previous.Stop(); err != nil {
			s.logger.Warn("Failed to stop previous browser", "error", err)
		}
	}

	key, path := variant.DriverKey(), variant.DriverPath(s.driversDir)
	if err := os.Setenv(key, path); err != nil {
		return s.abortSetup(fmt.Errorf("failed to set %s: %w", key, err))
	}

	driver, err := s.driverFactory(variant)
	if err != nil {
		return s.abortSetup(fmt.Errorf("failed to create %s driver: %w", variant, err))
	}
	if err := driver.Start(ctx); err != nil {
		return s.abortSetup(fmt.Errorf("failed to start %s: %w", variant, err))
	}

	timeout := s.Timeout()
	if err := driver.SetImplicitWait(timeout); err != nil {
		_ = driver.Stop()
		return s.abortSetup(fmt.Errorf("failed to apply timeout: %w", err))
	}

	s.stateMu.Lock()
	s.driver = driver
	s.variant = variant
	s.stateMu.Unlock()

	if err := s.transitionTo(state.StateActive); err != nil {
		// Stop won the race; the new browser must not outlive the session.
		s.stateMu.Lock()
		s.driver = nil
		s.stateMu.Unlock()
		_ = driver.Stop()
		return ErrTerminated
	}

	s.reporter.Log("Browser set to " + variant.String())
	s.logger.Info("Browser started", "variant", variant, "driver_path", path, "timeout", timeout)
	s.publishEvent(event.NewSessionStarted(s.id, variant.String(), s.RunID()))
	return nil
}

func (s *Session) abortSetup(err error) error {
	if transErr := s.transitionTo(state.StateUninitialized); transErr != nil {
		s.logger.Warn("Failed to reset state after setup failure", "error", transErr)
	}
	s.logger.Error("Browser setup failed", "error", err)
	return err
}

// SetTimeoutTime changes the element wait to seconds and applies it to the
// active browser. Before Setup the value is kept for the next Setup and
// ErrNotStarted is returned.
func (s *Session) SetTimeoutTime(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", seconds)
	}
	timeout := time.Duration(seconds) * time.Second

	s.stateMu.Lock()
	s.timeout = timeout
	driver := s.driver
	current := s.state
	s.stateMu.Unlock()

	if driver == nil || !current.CanAcceptActions() {
		return ErrNotStarted
	}
	if err := driver.SetImplicitWait(timeout); err != nil {
		return fmt.Errorf("failed to apply timeout: %w", err)
	}

	s.reporter.Log(fmt.Sprintf("timeoutTime set to %d", seconds))
	return nil
}

// Stop closes the browser and ends the session. It is idempotent.
func (s *Session) Stop() error {
	return s.StopWithMessage("")
}

// StopWithMessage records message as a Result and as the run's final result,
// then closes the browser. The final result is written even when closing the
// browser fails. Only the first call has an effect.
func (s *Session) StopWithMessage(message string) error {
	if err := s.transitionTo(state.StateStopping); err != nil {
		if s.State().IsShuttingDown() {
			return nil
		}
		return err
	}

	if message != "" {
		s.reporter.Result(message)
		s.reporter.FinalResult(message)
	}

	s.stateMu.Lock()
	driver := s.driver
	s.driver = nil
	s.stateMu.Unlock()

	var closeErr error
	if driver != nil {
		if err := driver.Stop(); err != nil {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
			s.logger.Error("Failed to close browser", "error", err)
		}
	}

	if err := s.transitionTo(state.StateTerminated); err != nil {
		closeErr = errors.Join(closeErr, err)
	}
	s.publishEvent(event.NewSessionStopped(s.id, message, closeErr))
	s.logger.Info("Session stopped", "message", message)

	return closeErr
}

// active returns the driver and timeout for an action.
func (s *Session) active() (browser.Driver, time.Duration, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if s.state.IsShuttingDown() {
		return nil, 0, ErrTerminated
	}
	if s.driver == nil || !s.state.CanAcceptActions() {
		return nil, 0, ErrNotStarted
	}
	return s.driver, s.timeout, nil
}

// transitionTo attempts to transition to a new state.
func (s *Session) transitionTo(newState state.SessionState) error {
	s.stateMu.Lock()
	oldState := s.state

	if !oldState.CanTransitionTo(newState) {
		s.stateMu.Unlock()
		return state.NewTransitionError(oldState, newState, "invalid transition")
	}

	s.state = newState
	s.stateMu.Unlock()

	s.publishEvent(event.NewSessionStateChanged(s.id, oldState, newState))
	s.logger.Debug("State changed", "from", oldState, "to", newState)

	return nil
}

func (s *Session) publishEvent(e event.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(e)
	}
}
