package session

import (
	"context"
	"fmt"
	"time"

	"browserkit-go/core/event"
	"browserkit-go/infrastructure/browser"
)

// matchFunc picks the element a wait is looking for from one lookup.
type matchFunc func(ctx context.Context, found []browser.Element) (browser.Element, bool)

func firstPresent(_ context.Context, found []browser.Element) (browser.Element, bool) {
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// firstClickable accepts the first match once it is displayed and enabled.
func firstClickable(ctx context.Context, found []browser.Element) (browser.Element, bool) {
	if len(found) == 0 {
		return nil, false
	}
	el := found[0]
	if displayed, err := el.IsDisplayed(ctx); err != nil || !displayed {
		return nil, false
	}
	if enabled, err := el.IsEnabled(ctx); err != nil || !enabled {
		return nil, false
	}
	return el, true
}

// waitFor polls immediate lookups of loc until match accepts or timeout
// elapses. A lookup error ends the wait.
func (s *Session) waitFor(ctx context.Context, driver browser.Driver, loc browser.Locator, timeout time.Duration, match matchFunc) (browser.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		found, err := driver.FindElementsNow(waitCtx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if waitCtx.Err() == nil {
				return nil, err
			}
		} else if el, ok := match(waitCtx, found); ok {
			return el, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, loc)
		case <-ticker.C:
		}
	}
}

// WaitForSelector waits up to the timeout for loc to match and returns the
// first match.
func (s *Session) WaitForSelector(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	driver, timeout, err := s.active()
	if err != nil {
		return nil, &ActionError{Op: "wait_for_selector", Target: loc.String(), Message: "SCRIPT STOPPED: Unable to find element: " + loc.String(), Err: err}
	}

	el, err := s.waitFor(ctx, driver, loc, timeout, firstPresent)
	if err != nil {
		msg := "SCRIPT STOPPED: Timeout trying to find element: " + loc.String()
		s.reporter.Log(msg)
		s.publishEvent(event.NewActionFailed(s.id, "wait_for_selector", loc.String(), msg, err))
		return nil, &ActionError{Op: "wait_for_selector", Target: loc.String(), Message: msg, Err: err}
	}
	return el, nil
}

// WaitForSelectors waits for loc like WaitForSelector, then returns every
// current match. Elements removed in between are not returned.
func (s *Session) WaitForSelectors(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if _, err := s.WaitForSelector(ctx, loc); err != nil {
		return nil, err
	}

	driver, _, err := s.active()
	if err != nil {
		return nil, &ActionError{Op: "wait_for_selectors", Target: loc.String(), Message: "SCRIPT STOPPED: Unable to find element: " + loc.String(), Err: err}
	}
	return driver.FindElements(ctx, loc)
}

// Exists reports whether loc matches anything right now. It never waits and
// lookup errors count as no match.
func (s *Session) Exists(ctx context.Context, loc browser.Locator) bool {
	driver, _, err := s.active()
	if err != nil {
		return false
	}
	found, err := driver.FindElementsNow(ctx, loc)
	if err != nil {
		s.logger.Debug("Exists lookup failed", "locator", loc.String(), "error", err)
		return false
	}
	return len(found) > 0
}
