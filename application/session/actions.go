package session

import (
	"context"
	"fmt"
	"time"

	"browserkit-go/core/event"
	"browserkit-go/infrastructure/browser"
)

// fail records cause as a Result line, publishes the failure and returns
// the ActionError for it.
func (s *Session) fail(op, target, message string, cause error) error {
	s.reporter.Result(cause.Error())
	s.publishEvent(event.NewActionFailed(s.id, op, target, message, cause))
	s.logger.Warn("Action failed", "op", op, "target", target, "error", cause)
	return &ActionError{Op: op, Target: target, Message: message, Err: cause}
}

func (s *Session) done(op, target, label string, started time.Time) {
	s.publishEvent(event.NewActionCompleted(s.id, op, target, label, time.Since(started)))
}

// Navigate loads url in the browser.
func (s *Session) Navigate(ctx context.Context, url string) error {
	started := time.Now()
	msg := "Failure loading page: " + url

	driver, _, err := s.active()
	if err != nil {
		return s.fail("navigate", url, msg, err)
	}
	if err := driver.Navigate(ctx, url); err != nil {
		return s.fail("navigate", url, msg, err)
	}

	s.reporter.Log("Navigate: " + url)
	s.done("navigate", url, "", started)
	return nil
}

// Click waits for loc to be displayed and enabled, then clicks it. A
// non-empty label records the click as a Result.
func (s *Session) Click(ctx context.Context, loc browser.Locator, label string) error {
	started := time.Now()
	target := loc.String()
	msg := "FAILURE: Error in clicking element " + target

	driver, timeout, err := s.active()
	if err != nil {
		return s.fail("click", target, msg, err)
	}
	el, err := s.waitFor(ctx, driver, loc, timeout, firstClickable)
	if err != nil {
		return s.fail("click", target, msg, err)
	}
	if err := el.Click(ctx); err != nil {
		return s.fail("click", target, msg, err)
	}

	if label == "" {
		s.reporter.Log("Clicked " + target)
	} else {
		s.reporter.Result("Clicked " + label)
	}
	s.done("click", target, label, started)
	return nil
}

// Set waits for loc to be present and types text into it. Existing content
// is kept.
func (s *Session) Set(ctx context.Context, loc browser.Locator, text, label string) error {
	return s.set(ctx, "set", loc, text, label, false)
}

// SetAndEnter types text followed by Enter into the element matched by loc.
// Both go to the same element.
func (s *Session) SetAndEnter(ctx context.Context, loc browser.Locator, text, label string) error {
	return s.set(ctx, "set_and_enter", loc, text, label, true)
}

func (s *Session) set(ctx context.Context, op string, loc browser.Locator, text, label string, enter bool) error {
	started := time.Now()
	target := loc.String()
	msg := "FAILURE: Error in setting element " + target

	driver, timeout, err := s.active()
	if err != nil {
		return s.fail(op, target, msg, err)
	}
	el, err := s.waitFor(ctx, driver, loc, timeout, firstPresent)
	if err != nil {
		return s.fail(op, target, msg, err)
	}
	if err := el.SendKeys(ctx, text); err != nil {
		return s.fail(op, target, msg, err)
	}
	if enter {
		if err := el.SendKeys(ctx, browser.EnterKey); err != nil {
			return s.fail(op, target, msg, err)
		}
	}

	if label == "" {
		s.reporter.Log(`Set "` + text + `" to ` + target)
	} else {
		s.reporter.Result(`Set "` + text + `" to ` + label)
	}
	s.done(op, target, label, started)
	return nil
}

// Wait blocks for seconds. Cancelling ctx interrupts it.
func (s *Session) Wait(ctx context.Context, seconds int) error {
	started := time.Now()
	msg := "FAILURE: Error with wait"
	target := fmt.Sprintf("%ds", seconds)

	if seconds < 0 {
		return s.fail("wait", target, msg, fmt.Errorf("negative wait: %d seconds", seconds))
	}

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return s.fail("wait", target, msg, ctx.Err())
	case <-timer.C:
	}

	s.reporter.Log(fmt.Sprintf("Wait for %d seconds", seconds))
	s.done("wait", target, "", started)
	return nil
}

// Screenshot saves the current viewport as <name>.png in the run folder.
func (s *Session) Screenshot(ctx context.Context, name string) error {
	started := time.Now()
	msg := "FAILURE: Unable to copy screenshot"
	fileName := name + ".png"

	driver, _, err := s.active()
	if err != nil {
		return s.fail("screenshot", fileName, msg, err)
	}
	data, err := driver.CaptureScreenshot(ctx)
	if err != nil {
		return s.fail("screenshot", fileName, msg, err)
	}
	path, err := s.reporter.SaveArtifact(fileName, data)
	if err != nil {
		return s.fail("screenshot", fileName, msg, err)
	}

	s.reporter.Log("Screenshot saved in results folder")
	s.logger.Debug("Screenshot saved", "path", path, "bytes", len(data))
	s.done("screenshot", fileName, "", started)
	return nil
}

// FetchText waits for loc and returns the text of every match joined
// without a separator.
func (s *Session) FetchText(ctx context.Context, loc browser.Locator) (string, error) {
	started := time.Now()
	target := loc.String()
	msg := "SCRIPT STOPPED: Timeout getting text from element: " + target

	elements, err := s.WaitForSelectors(ctx, loc)
	if err != nil {
		s.reporter.Log(msg)
		return "", &ActionError{Op: "fetch_text", Target: target, Message: msg, Err: err}
	}

	var text string
	for _, el := range elements {
		t, err := el.Text(ctx)
		if err != nil {
			s.reporter.Log(msg)
			s.publishEvent(event.NewActionFailed(s.id, "fetch_text", target, msg, err))
			return "", &ActionError{Op: "fetch_text", Target: target, Message: msg, Err: err}
		}
		text += t
	}

	s.done("fetch_text", target, "", started)
	return text, nil
}
