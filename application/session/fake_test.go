package session

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"browserkit-go/infrastructure/browser"
	"browserkit-go/infrastructure/report"
)

// fakeElement is an in-memory browser.Element.
type fakeElement struct {
	mu sync.Mutex

	text         string
	typed        string
	clicks       int
	hidden       bool
	disabled     bool
	displayAfter int
	displayCalls int

	clickErr error
	sendErr  error
	textErr  error
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) SendKeys(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sendErr != nil {
		return e.sendErr
	}
	e.typed += text
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.textErr != nil {
		return "", e.textErr
	}
	return e.text, nil
}

func (e *fakeElement) IsDisplayed(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayCalls++
	return !e.hidden && e.displayCalls > e.displayAfter, nil
}

func (e *fakeElement) IsEnabled(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled, nil
}

func (e *fakeElement) Typed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed
}

// fakeDriver is an in-memory browser.Driver.
type fakeDriver struct {
	mu sync.Mutex

	running      bool
	implicitWait time.Duration
	elements     map[browser.Locator][]browser.Element
	navigated    []string
	lookups      int
	stopCalls    int
	screenshot   []byte

	startErr  error
	stopErr   error
	navErr    error
	lookupErr error
	shotErr   error
	onStop    func()
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		elements:   make(map[browser.Locator][]browser.Element),
		screenshot: []byte("\x89PNG fake"),
	}
}

func (d *fakeDriver) put(loc browser.Locator, els ...browser.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[loc] = els
}

func (d *fakeDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.running = true
	return nil
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	d.stopCalls++
	d.running = false
	onStop := d.onStop
	err := d.stopErr
	d.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return err
}

func (d *fakeDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *fakeDriver) SetImplicitWait(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicitWait = timeout
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navErr != nil {
		return d.navErr
	}
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	return d.FindElementsNow(ctx, loc)
}

func (d *fakeDriver) FindElementsNow(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.elements[loc], nil
}

func (d *fakeDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shotErr != nil {
		return nil, d.shotErr
	}
	return d.screenshot, nil
}

func (d *fakeDriver) Lookups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups
}

func (d *fakeDriver) StopCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopCalls
}

var _ browser.Driver = (*fakeDriver)(nil)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// harness bundles a session with its fake driver and captured report.
type harness struct {
	session *Session
	driver  *fakeDriver
	all     *syncBuffer
	results *syncBuffer
	summary string
	runDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	h := &harness{
		driver:  newFakeDriver(),
		all:     &syncBuffer{},
		results: &syncBuffer{},
		summary: filepath.Join(dir, report.SummaryFileName),
		runDir:  dir,
	}

	rep := report.New("run1",
		report.WithSinks(
			report.NewWriterSink(h.all),
			report.NewWriterSink(h.results, report.KindResult),
		),
		report.WithRunDir(dir),
		report.WithSummaryPath(h.summary),
	)

	h.session = New(&Config{
		ID:           "s1",
		DriversDir:   filepath.Join(dir, "drivers"),
		PollInterval: 10 * time.Millisecond,
		Reporter:     rep,
		DriverFactory: func(v browser.Variant) (browser.Driver, error) {
			return h.driver, nil
		},
	})
	return h
}

// started returns a harness whose session is Active with the given timeout.
func startedHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	t.Setenv(browser.VariantChrome.DriverKey(), "")

	h := newHarness(t)
	if err := h.session.Setup(context.Background(), browser.VariantChrome); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	h.session.stateMu.Lock()
	h.session.timeout = timeout
	h.session.stateMu.Unlock()
	return h
}

var errBoom = errors.New("boom")
