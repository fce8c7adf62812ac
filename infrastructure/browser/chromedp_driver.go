package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// implicitPollInterval is how often FindElements re-queries while the
// implicit wait is running.
const implicitPollInterval = 100 * time.Millisecond

// ChromeDPDriver implements Driver using chromedp.
// It only drives Chrome and does not need a native WebDriver server.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool

	implicitWait time.Duration
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("disable-gpu", d.config.DisableGPU),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}

	return opts
}

// Start launches Chrome and attaches to its first tab.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// Create allocator context from context.Background() to ensure browser lifecycle
	// is independent of the caller's context
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	// An empty Run forces the browser process to start now rather than on first use.
	if err := chromedp.Run(d.ctx); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// SetImplicitWait sets how long FindElements polls for a first match.
func (d *ChromeDPDriver) SetImplicitWait(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicitWait = timeout
	return nil
}

// execContext derives a context from the browser context that also honors the
// caller's deadline and cancellation.
func (d *ChromeDPDriver) execContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	d.mu.Lock()
	browserCtx := d.ctx
	running := d.running
	d.mu.Unlock()

	if !running || browserCtx == nil {
		return nil, nil, ErrNotRunning
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	var execCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		execCtx, cancel = context.WithDeadline(browserCtx, deadline)
	} else {
		execCtx, cancel = context.WithCancel(browserCtx)
	}
	stop := context.AfterFunc(ctx, cancel)

	return execCtx, func() {
		stop()
		cancel()
	}, nil
}

func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	execCtx, cancel, err := d.execContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(execCtx, actions...)
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

// FindElements polls until at least one element matches or the implicit wait
// elapses. An empty result after the wait is not an error.
func (d *ChromeDPDriver) FindElements(ctx context.Context, loc Locator) ([]Element, error) {
	d.mu.Lock()
	wait := d.implicitWait
	d.mu.Unlock()

	if wait <= 0 {
		return d.FindElementsNow(ctx, loc)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		elements, err := d.FindElementsNow(waitCtx, loc)
		if err == nil && len(elements) > 0 {
			return elements, nil
		}
		if err != nil && waitCtx.Err() == nil {
			return nil, err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, nil
		case <-time.After(implicitPollInterval):
		}
	}
}

// FindElementsNow runs a single non-blocking query.
func (d *ChromeDPDriver) FindElementsNow(ctx context.Context, loc Locator) ([]Element, error) {
	sel, opt, err := cdpQuery(loc)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = &cdpElement{driver: d, node: n}
	}
	return elements, nil
}

// CaptureScreenshot captures the current viewport as PNG.
func (d *ChromeDPDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Context returns the underlying chromedp context.
// This is useful for advanced operations not covered by the Driver interface.
func (d *ChromeDPDriver) Context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// cdpQuery maps a WebDriver locator onto a chromedp selector and query option.
// Strategies without a CSS equivalent go through DOM search as XPath.
func cdpQuery(loc Locator) (string, chromedp.QueryOption, error) {
	switch loc.By {
	case ByCSSSelector:
		return loc.Value, chromedp.ByQueryAll, nil
	case ByID:
		return fmt.Sprintf("[id=%q]", loc.Value), chromedp.ByQueryAll, nil
	case ByName:
		return fmt.Sprintf("[name=%q]", loc.Value), chromedp.ByQueryAll, nil
	case ByClassName:
		if err := loc.Validate(); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("[class~=%q]", loc.Value), chromedp.ByQueryAll, nil
	case ByTagName:
		return loc.Value, chromedp.ByQueryAll, nil
	case ByXPath:
		return loc.Value, chromedp.BySearch, nil
	case ByLinkText:
		return "//a[normalize-space(.)=" + xpathLiteral(loc.Value) + "]", chromedp.BySearch, nil
	case ByPartialLinkText:
		return "//a[contains(normalize-space(.), " + xpathLiteral(loc.Value) + ")]", chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("unknown locator strategy %q", loc.By)
	}
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// cdpElement is a DOM node handle bound to the driver that found it.
type cdpElement struct {
	driver *ChromeDPDriver
	node   *cdp.Node
}

func (e *cdpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *cdpElement) Click(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *cdpElement) SendKeys(ctx context.Context, text string) error {
	text = strings.ReplaceAll(text, EnterKey, kb.Enter)
	return e.driver.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *cdpElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.driver.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

// IsDisplayed reports whether the node has a rendered box.
func (e *cdpElement) IsDisplayed(ctx context.Context) (bool, error) {
	displayed := false
	err := e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		model, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return nil
		}
		displayed = model.Width > 0 && model.Height > 0
		return nil
	}))
	return displayed, err
}

// IsEnabled checks the disabled attribute as captured when the node was queried.
func (e *cdpElement) IsEnabled(ctx context.Context) (bool, error) {
	for i := 0; i+1 < len(e.node.Attributes); i += 2 {
		if e.node.Attributes[i] == "disabled" {
			return false, nil
		}
	}
	return true, nil
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
