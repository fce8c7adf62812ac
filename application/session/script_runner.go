package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"browserkit-go/core/event"
	domainscript "browserkit-go/domain/script"
	"browserkit-go/infrastructure/browser"
)

const (
	// PassedMessage is the final result of a run where every step succeeded.
	PassedMessage = "PASSED"
	// InterruptedMessage is the final result of a cancelled run.
	InterruptedMessage = "SCRIPT STOPPED: Interrupted"
	// failurePrefix marks a stop step message as a failed run.
	failurePrefix = "FAILURE"
)

// ErrStoppedWithFailure is recorded when a stop step reports a failure.
var ErrStoppedWithFailure = errors.New("script stopped with a failure")

// RunResult summarizes a script run.
type RunResult struct {
	Script   string
	RunID    string
	StepsRun int
	Reason   event.StopReason
	// Message is the final result written to the run summary.
	Message string
	// Failures holds every failed step, including those that continued.
	Failures []error
}

// Passed reports whether the run finished without any failed step. A stop
// step passes unless its message starts with "FAILURE".
func (r *RunResult) Passed() bool {
	return len(r.Failures) == 0 && (r.Reason == event.StopReasonNormal || r.Reason == event.StopReasonStopStep)
}

// plannedStep is a script step with its locator resolved.
type plannedStep struct {
	domainscript.Step
	loc browser.Locator
}

// Validate checks sc and resolves every locator strategy without running it.
func Validate(sc *domainscript.Script) error {
	_, err := plan(sc)
	return err
}

// plan resolves every locator of sc. It fails on the first unknown strategy.
func plan(sc *domainscript.Script) ([]plannedStep, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	steps := make([]plannedStep, len(sc.Steps))
	for i, step := range sc.Steps {
		steps[i] = plannedStep{Step: step}
		if step.Locator == nil {
			continue
		}
		by, err := browser.ParseBy(step.Locator.By)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		steps[i].loc = browser.Locator{By: by, Value: step.Locator.Value}
		if err := steps[i].loc.Validate(); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	return steps, nil
}

// ScriptRunner executes scripts step by step through a Session. A failed
// step stops the session with the step's failure message unless the step
// continues on failure.
type ScriptRunner struct {
	session *Session
	logger  *slog.Logger
}

// NewScriptRunner creates a new script runner.
func NewScriptRunner(session *Session, logger *slog.Logger) *ScriptRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptRunner{
		session: session,
		logger:  logger.With("session_id", session.ID()),
	}
}

// Run provisions variant, executes sc and always stops the session. The
// returned error is only set when sc cannot be planned; step failures are
// reported through the RunResult.
func (r *ScriptRunner) Run(ctx context.Context, variant browser.Variant, sc *domainscript.Script) (*RunResult, error) {
	steps, err := plan(sc)
	if err != nil {
		return nil, fmt.Errorf("invalid script %q: %w", sc.Name, err)
	}

	s := r.session
	result := &RunResult{Script: sc.Name, RunID: s.RunID()}

	s.publishEvent(event.NewScriptStarted(s.id, sc.Name, len(steps)))
	r.logger.Info("Script started", "name", sc.Name, "steps", len(steps), "variant", variant)

	defer func() {
		s.publishEvent(event.NewScriptStopped(s.id, sc.Name, result.Reason, result.StepsRun, firstError(result.Failures)))
		r.logger.Info("Script stopped",
			"name", sc.Name,
			"reason", result.Reason,
			"steps_run", result.StepsRun,
			"failures", len(result.Failures))
	}()

	if err := s.Setup(ctx, variant); err != nil {
		result.Reason = event.StopReasonFailed
		result.Failures = append(result.Failures, err)
		r.stop(result, "SCRIPT STOPPED: Unable to start "+variant.String())
		return result, nil
	}

	if sc.Timeout > 0 {
		if err := s.SetTimeoutTime(sc.Timeout); err != nil {
			r.logger.Warn("Failed to apply script timeout", "timeout", sc.Timeout, "error", err)
		}
	}

	for i := range steps {
		step := &steps[i]

		if ctx.Err() != nil {
			result.Reason = event.StopReasonCancelled
			result.Failures = append(result.Failures, ctx.Err())
			r.stop(result, InterruptedMessage)
			return result, nil
		}

		if step.Action == domainscript.ActionStop {
			result.StepsRun++
			result.Reason = event.StopReasonStopStep
			if strings.HasPrefix(step.Message, failurePrefix) {
				result.Failures = append(result.Failures, fmt.Errorf("%w: %s", ErrStoppedWithFailure, step.Message))
			}
			r.stop(result, step.Message)
			return result, nil
		}

		r.logger.Debug("Executing step", "index", i+1, "step", step.Describe())
		err := r.execute(ctx, step)
		result.StepsRun++
		if err == nil {
			continue
		}

		result.Failures = append(result.Failures, err)
		if ctx.Err() != nil {
			result.Reason = event.StopReasonCancelled
			r.stop(result, InterruptedMessage)
			return result, nil
		}
		if step.ContinueOnFailure {
			r.logger.Warn("Step failed, continuing", "index", i+1, "step", step.Describe(), "error", err)
			continue
		}

		result.Reason = event.StopReasonFailed
		r.stop(result, FailureMessage(err))
		return result, nil
	}

	result.Reason = event.StopReasonNormal
	if len(result.Failures) == 0 {
		r.stop(result, PassedMessage)
	} else {
		r.stop(result, fmt.Sprintf("FAILURE: %d step(s) failed", len(result.Failures)))
	}
	return result, nil
}

func (r *ScriptRunner) stop(result *RunResult, message string) {
	result.Message = message
	if err := r.session.StopWithMessage(message); err != nil {
		r.logger.Warn("Session stop reported an error", "error", err)
	}
}

// execute runs one step.
func (r *ScriptRunner) execute(ctx context.Context, step *plannedStep) error {
	s := r.session

	switch step.Action {
	case domainscript.ActionNavigate:
		return s.Navigate(ctx, step.URL)
	case domainscript.ActionClick:
		return s.Click(ctx, step.loc, step.Label)
	case domainscript.ActionSet:
		return s.Set(ctx, step.loc, step.Text, step.Label)
	case domainscript.ActionSetAndEnter:
		return s.SetAndEnter(ctx, step.loc, step.Text, step.Label)
	case domainscript.ActionWait:
		return s.Wait(ctx, step.Seconds)
	case domainscript.ActionScreenshot:
		return s.Screenshot(ctx, step.Name)
	case domainscript.ActionSetTimeout:
		return s.SetTimeoutTime(step.Seconds)
	case domainscript.ActionFetchText:
		return r.fetchText(ctx, step)
	case domainscript.ActionAssertExists:
		return r.assertExists(ctx, step)
	default:
		return fmt.Errorf("unsupported action %q", step.Action)
	}
}

func (r *ScriptRunner) fetchText(ctx context.Context, step *plannedStep) error {
	s := r.session
	target := step.loc.String()

	text, err := s.FetchText(ctx, step.loc)
	if err != nil {
		return err
	}

	name := target
	if step.Label != "" {
		name = step.Label
	}

	if step.Expect == "" {
		s.reporter.Log(`Fetched "` + text + `" from ` + name)
		return nil
	}
	if text != step.Expect {
		return s.fail("fetch_text", target,
			`FAILURE: Expected "`+step.Expect+`" from `+name,
			fmt.Errorf("got %q", text))
	}
	s.reporter.Result(`Verified "` + text + `" in ` + name)
	return nil
}

func (r *ScriptRunner) assertExists(ctx context.Context, step *plannedStep) error {
	s := r.session
	target := step.loc.String()

	present := s.Exists(ctx, step.loc)
	switch {
	case present && step.Absent:
		return s.fail("assert_exists", target, "FAILURE: Element should not exist "+target, errors.New("element present"))
	case !present && !step.Absent:
		return s.fail("assert_exists", target, "FAILURE: Element does not exist "+target, errors.New("element absent"))
	case present:
		s.reporter.Log("Found " + target)
	default:
		s.reporter.Log("Confirmed absent " + target)
	}
	return nil
}

func firstError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
