// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotRunning is returned by driver operations issued before Start or after Stop.
var ErrNotRunning = errors.New("browser not running")

// EnterKey is the WebDriver code point for the Enter key. Drivers translate it
// to their native key event when it appears in SendKeys input.
const EnterKey = "\ue007"

// Driver defines the interface for browser automation.
// Implementations wrap a WebDriver session (tebeka/selenium) or a DevTools
// connection (chromedp).
type Driver interface {
	// Start launches the browser and opens a session.
	Start(ctx context.Context) error

	// Stop closes the browser window and quits the session.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// SetImplicitWait sets how long FindElements keeps polling for a match.
	SetImplicitWait(timeout time.Duration) error

	// Navigate loads the specified URL.
	Navigate(ctx context.Context, url string) error

	// FindElements returns the elements matching loc, waiting up to the
	// implicit wait for at least one to appear.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)

	// FindElementsNow performs a single lookup that ignores the implicit wait.
	FindElementsNow(ctx context.Context, loc Locator) ([]Element, error)

	// CaptureScreenshot returns the current viewport as PNG data.
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// Element is a handle to a DOM element returned by a Driver.
type Element interface {
	Click(ctx context.Context) error

	// SendKeys types text into the element without clearing it first.
	SendKeys(ctx context.Context, text string) error

	// Text returns the element's visible text.
	Text(ctx context.Context) (string, error)

	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
}

// Backend selects the automation protocol used to drive the browser.
type Backend string

const (
	// BackendWebDriver drives Firefox, Chrome and Internet Explorer through
	// their native WebDriver servers.
	BackendWebDriver Backend = "webdriver"
	// BackendCDP drives Chrome directly over the DevTools protocol.
	BackendCDP Backend = "cdp"
)

// ParseBackend converts a configuration string to a Backend.
// An empty string selects BackendWebDriver.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendWebDriver:
		return BackendWebDriver, nil
	case BackendCDP:
		return BackendCDP, nil
	default:
		return "", fmt.Errorf("unknown backend %q", s)
	}
}

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth is the browser window width.
	WindowWidth int

	// WindowHeight is the browser window height.
	WindowHeight int

	// Port is the local port for the native driver server. Zero picks a free port.
	Port int

	// StartupTimeout bounds how long to wait for a native driver server to answer.
	StartupTimeout time.Duration

	// DisableGPU disables GPU acceleration.
	DisableGPU bool

	// UserDataDir specifies a custom user data directory (cdp backend only).
	UserDataDir string
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:       false,
		WindowWidth:    1280,
		WindowHeight:   800,
		StartupTimeout: 30 * time.Second,
	}
}

// NewDriver constructs an unstarted driver for the given backend and variant.
func NewDriver(backend Backend, variant Variant, config *DriverConfig) (Driver, error) {
	switch backend {
	case "", BackendWebDriver:
		return NewWebDriver(variant, config)
	case BackendCDP:
		if variant != VariantChrome {
			return nil, fmt.Errorf("%w: %s is not available over %s", ErrUnsupportedVariant, variant, backend)
		}
		return NewChromeDPDriver(config), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
