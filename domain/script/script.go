// Package script defines browser test scripts: an ordered list of steps run
// through a browser session.
package script

import (
	"errors"
	"fmt"
	"strings"
)

// Script represents a browser test with metadata and execution steps.
type Script struct {
	// Name is the unique identifier for this script
	Name string

	// Description provides a human-readable explanation of what the script does
	Description string

	// Version is the script version for compatibility tracking
	Version string

	// Author is the script creator
	Author string

	// Browser optionally names the browser variant to run on
	Browser string

	// Timeout optionally overrides the element wait in seconds
	Timeout int

	// Steps are the ordered execution steps
	Steps []Step
}

// Locator identifies elements on a page by a strategy and value.
type Locator struct {
	By    string
	Value string
}

func (l Locator) String() string {
	return l.By + "=" + l.Value
}

// Step represents a single browser action.
type Step struct {
	Action ActionType

	// Locator targets the element for element actions
	Locator *Locator

	// URL is the page to load (navigate)
	URL string

	// Text is typed into the element (set, set_and_enter)
	Text string

	// Label is a human name that promotes the step's log line to a result
	Label string

	// Name is the screenshot file name without extension
	Name string

	// Seconds is the wait duration or the new timeout
	Seconds int

	// Expect is the text fetch_text must return, if set
	Expect string

	// Absent inverts assert_exists
	Absent bool

	// Message is the final result written by stop
	Message string

	// ContinueOnFailure determines if execution continues when this step fails
	ContinueOnFailure bool
}

// ActionType represents the type of step.
type ActionType string

const (
	ActionNavigate     ActionType = "navigate"
	ActionClick        ActionType = "click"
	ActionSet          ActionType = "set"
	ActionSetAndEnter  ActionType = "set_and_enter"
	ActionWait         ActionType = "wait"
	ActionScreenshot   ActionType = "screenshot"
	ActionFetchText    ActionType = "fetch_text"
	ActionSetTimeout   ActionType = "set_timeout"
	ActionAssertExists ActionType = "assert_exists"
	ActionStop         ActionType = "stop"
)

// ActionTypes lists every supported step action.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionNavigate, ActionClick, ActionSet, ActionSetAndEnter, ActionWait,
		ActionScreenshot, ActionFetchText, ActionSetTimeout, ActionAssertExists, ActionStop,
	}
}

// NeedsLocator reports whether the action targets an element.
func (a ActionType) NeedsLocator() bool {
	switch a {
	case ActionClick, ActionSet, ActionSetAndEnter, ActionFetchText, ActionAssertExists:
		return true
	default:
		return false
	}
}

// Describe returns a short human-readable form of the step for logs.
func (s *Step) Describe() string {
	switch {
	case s.Locator != nil:
		return fmt.Sprintf("%s %s", s.Action, s.Locator)
	case s.URL != "":
		return fmt.Sprintf("%s %s", s.Action, s.URL)
	case s.Action == ActionWait || s.Action == ActionSetTimeout:
		return fmt.Sprintf("%s %d", s.Action, s.Seconds)
	default:
		return string(s.Action)
	}
}

// Validate checks the step's required fields for its action.
func (s *Step) Validate() error {
	if s.Action.NeedsLocator() {
		if s.Locator == nil {
			return errors.New("locator is required")
		}
		if strings.TrimSpace(s.Locator.By) == "" || s.Locator.Value == "" {
			return errors.New("locator needs both by and value")
		}
	}

	switch s.Action {
	case ActionNavigate:
		if strings.TrimSpace(s.URL) == "" {
			return errors.New("url is required")
		}
	case ActionSet, ActionSetAndEnter:
		if s.Text == "" {
			return errors.New("text is required")
		}
	case ActionWait:
		if s.Seconds < 0 {
			return fmt.Errorf("seconds cannot be negative (%d)", s.Seconds)
		}
	case ActionSetTimeout:
		if s.Seconds <= 0 {
			return fmt.Errorf("seconds must be positive (%d)", s.Seconds)
		}
	case ActionScreenshot:
		if strings.TrimSpace(s.Name) == "" {
			return errors.New("name is required")
		}
		if strings.ContainsAny(s.Name, `/\`) {
			return fmt.Errorf("name %q must not contain path separators", s.Name)
		}
	case ActionClick, ActionFetchText, ActionAssertExists, ActionStop:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

// Validate checks the script and every step. All step problems are reported.
func (s *Script) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("script name is required"))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative (%d)", s.Timeout))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, errors.New("script has no steps"))
	}
	for i := range s.Steps {
		if err := s.Steps[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, s.Steps[i].Action, err))
		}
	}
	return errors.Join(errs...)
}
