package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// WebDriver implements Driver over the WebDriver protocol using tebeka/selenium.
// The native driver executable is located through the variant's environment key,
// which must be set before Start.
type WebDriver struct {
	variant Variant
	config  *DriverConfig
	mu      sync.Mutex
	running bool

	service *selenium.Service // chromedriver / geckodriver
	server  *exec.Cmd         // IEDriverServer
	remote  selenium.WebDriver

	implicitWait time.Duration
}

// NewWebDriver creates a WebDriver-protocol driver for the given variant.
func NewWebDriver(variant Variant, config *DriverConfig) (*WebDriver, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, variant)
	}
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &WebDriver{
		variant: variant,
		config:  config,
	}, nil
}

// Variant returns the browser variant this driver controls.
func (d *WebDriver) Variant() Variant {
	return d.variant
}

// Start launches the native driver server and opens a remote session.
func (d *WebDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	path := os.Getenv(d.variant.DriverKey())
	if path == "" {
		return fmt.Errorf("%s is not set", d.variant.DriverKey())
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("native driver not found: %w", err)
	}

	port := d.config.Port
	if port == 0 {
		var err error
		if port, err = freePort(); err != nil {
			return fmt.Errorf("failed to pick driver port: %w", err)
		}
	}

	caps := selenium.Capabilities{"browserName": d.variant.browserName()}
	var executor string

	switch d.variant {
	case VariantChrome:
		svc, err := selenium.NewChromeDriverService(path, port)
		if err != nil {
			return fmt.Errorf("failed to start chromedriver: %w", err)
		}
		d.service = svc
		executor = fmt.Sprintf("http://localhost:%d/wd/hub", port)
		caps.AddChrome(chrome.Capabilities{Args: d.chromeArgs()})

	case VariantFirefox:
		svc, err := selenium.NewGeckoDriverService(path, port)
		if err != nil {
			return fmt.Errorf("failed to start geckodriver: %w", err)
		}
		d.service = svc
		executor = fmt.Sprintf("http://localhost:%d", port)
		caps.AddFirefox(firefox.Capabilities{Args: d.firefoxArgs()})

	case VariantInternetExplorer:
		cmd, err := startNativeServer(ctx, path, port, d.config.StartupTimeout)
		if err != nil {
			return fmt.Errorf("failed to start IEDriverServer: %w", err)
		}
		d.server = cmd
		executor = fmt.Sprintf("http://localhost:%d", port)
	}

	remote, err := selenium.NewRemote(caps, executor)
	if err != nil {
		d.stopServer()
		return fmt.Errorf("failed to open %s session: %w", d.variant, err)
	}

	if d.implicitWait > 0 {
		if err := remote.SetImplicitWaitTimeout(d.implicitWait); err != nil {
			_ = remote.Quit()
			d.stopServer()
			return fmt.Errorf("failed to set implicit wait: %w", err)
		}
	}

	d.remote = remote
	d.running = true
	return nil
}

func (d *WebDriver) chromeArgs() []string {
	args := []string{
		fmt.Sprintf("--window-size=%d,%d", d.config.WindowWidth, d.config.WindowHeight),
	}
	if d.config.Headless {
		args = append(args, "--headless=new")
	}
	if d.config.DisableGPU {
		args = append(args, "--disable-gpu")
	}
	return args
}

func (d *WebDriver) firefoxArgs() []string {
	args := []string{
		"--width=" + strconv.Itoa(d.config.WindowWidth),
		"--height=" + strconv.Itoa(d.config.WindowHeight),
	}
	if d.config.Headless {
		args = append(args, "--headless")
	}
	return args
}

// Stop closes the current window, quits the session and stops the native server.
// The server is stopped even when closing the session fails.
func (d *WebDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	var errs []error
	if d.remote != nil {
		if err := d.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close window: %w", err))
		}
		if err := d.remote.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("quit session: %w", err))
		}
		d.remote = nil
	}
	if err := d.stopServer(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// stopServer must be called with d.mu held.
func (d *WebDriver) stopServer() error {
	var err error
	if d.service != nil {
		err = d.service.Stop()
		d.service = nil
	}
	if d.server != nil && d.server.Process != nil {
		_ = d.server.Process.Kill()
		_ = d.server.Wait()
		d.server = nil
	}
	if err != nil {
		return fmt.Errorf("stop driver server: %w", err)
	}
	return nil
}

// IsRunning returns true if the browser is active.
func (d *WebDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// SetImplicitWait applies the implicit wait to the remote session.
// Before Start the value is kept and applied once the session opens.
func (d *WebDriver) SetImplicitWait(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.implicitWait = timeout
	if !d.running {
		return nil
	}
	return d.remote.SetImplicitWaitTimeout(timeout)
}

func (d *WebDriver) session() (selenium.WebDriver, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.remote == nil {
		return nil, ErrNotRunning
	}
	return d.remote, nil
}

// Navigate loads the specified URL.
func (d *WebDriver) Navigate(ctx context.Context, url string) error {
	remote, err := d.session()
	if err != nil {
		return err
	}
	return remote.Get(url)
}

// FindElements returns all matches, honoring the session's implicit wait.
func (d *WebDriver) FindElements(ctx context.Context, loc Locator) ([]Element, error) {
	remote, err := d.session()
	if err != nil {
		return nil, err
	}
	found, err := remote.FindElements(string(loc.By), loc.Value)
	if err != nil {
		return nil, err
	}
	return wrapWebElements(found), nil
}

// FindElementsNow drops the implicit wait for a single lookup and restores it.
func (d *WebDriver) FindElementsNow(ctx context.Context, loc Locator) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.remote == nil {
		return nil, ErrNotRunning
	}

	if d.implicitWait > 0 {
		if err := d.remote.SetImplicitWaitTimeout(0); err != nil {
			return nil, err
		}
		defer func() {
			_ = d.remote.SetImplicitWaitTimeout(d.implicitWait)
		}()
	}

	found, err := d.remote.FindElements(string(loc.By), loc.Value)
	if err != nil {
		return nil, err
	}
	return wrapWebElements(found), nil
}

// CaptureScreenshot returns the current viewport as PNG data.
func (d *WebDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	remote, err := d.session()
	if err != nil {
		return nil, err
	}
	buf, err := remote.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Remote returns the underlying selenium session, or nil when not running.
// This is useful for advanced operations not covered by the Driver interface.
func (d *WebDriver) Remote() selenium.WebDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remote
}

// webElement adapts selenium.WebElement to Element.
type webElement struct {
	el selenium.WebElement
}

func wrapWebElements(found []selenium.WebElement) []Element {
	elements := make([]Element, len(found))
	for i, el := range found {
		elements[i] = &webElement{el: el}
	}
	return elements
}

func (e *webElement) Click(ctx context.Context) error { return e.el.Click() }

func (e *webElement) SendKeys(ctx context.Context, text string) error { return e.el.SendKeys(text) }

func (e *webElement) Text(ctx context.Context) (string, error) { return e.el.Text() }

func (e *webElement) IsDisplayed(ctx context.Context) (bool, error) { return e.el.IsDisplayed() }

func (e *webElement) IsEnabled(ctx context.Context) (bool, error) { return e.el.IsEnabled() }

// startNativeServer runs a WebDriver server binary that selenium has no
// service helper for, and waits until its status endpoint answers.
func startNativeServer(ctx context.Context, path string, port int, timeout time.Duration) (*exec.Cmd, error) {
	cmd := exec.Command(path, "/port="+strconv.Itoa(port))
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusURL := fmt.Sprintf("http://localhost:%d/status", port)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(waitCtx, http.MethodGet, statusURL, nil)
		if err == nil {
			if resp, err := http.DefaultClient.Do(req); err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return cmd, nil
				}
			}
		}

		select {
		case <-waitCtx.Done():
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, fmt.Errorf("server did not respond on port %d: %w", port, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Ensure WebDriver implements Driver
var _ Driver = (*WebDriver)(nil)
