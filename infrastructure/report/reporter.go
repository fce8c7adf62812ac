package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoRunDir is returned when an artifact is saved by a reporter without a
// run folder.
var ErrNoRunDir = errors.New("reporter has no run directory")

const (
	// LogFileName receives every entry of a run.
	LogFileName = "log.txt"
	// ResultsFileName receives only Result entries of a run.
	ResultsFileName = "results.txt"
	// SummaryFileName collects one final line per run across runs.
	SummaryFileName = "all.txt"
)

// Reporter fans report lines out to its sinks.
type Reporter struct {
	mu          sync.Mutex
	runID       string
	runDir      string
	summaryPath string
	sinks       []Sink
	now         func() time.Time
	logger      *slog.Logger
	closed      bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithSinks appends sinks.
func WithSinks(sinks ...Sink) Option {
	return func(r *Reporter) { r.sinks = append(r.sinks, sinks...) }
}

// WithRunDir sets the folder artifacts are saved to.
func WithRunDir(dir string) Option {
	return func(r *Reporter) { r.runDir = dir }
}

// WithSummaryPath sets the cross-run summary file.
func WithSummaryPath(path string) Option {
	return func(r *Reporter) { r.summaryPath = path }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger sink failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a reporter for runID. With no sinks every line is discarded.
func New(runID string, opts ...Option) *Reporter {
	r := &Reporter{
		runID:  runID,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discard returns a reporter that records nothing.
func Discard() *Reporter {
	return New("")
}

// RunConfig describes the on-disk layout of a run.
type RunConfig struct {
	// ResultsDir is the root folder; runs go to <ResultsDir>/<runID>/.
	ResultsDir string
	// Console mirrors every line to ConsoleOutput.
	Console bool
	// ConsoleOutput defaults to os.Stdout.
	ConsoleOutput io.Writer
	// MaxSizeMB bounds each per-run file before it rotates.
	MaxSizeMB int
	Now       func() time.Time
	Logger    *slog.Logger
}

// DefaultRunConfig returns the standard layout under "Results".
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		ResultsDir: "Results",
		Console:    true,
		MaxSizeMB:  10,
	}
}

// NewRunReporter creates the run folder and a reporter writing log.txt,
// results.txt and optionally the console.
func NewRunReporter(cfg *RunConfig) (*Reporter, error) {
	if cfg == nil {
		cfg = DefaultRunConfig()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	runID := now().Format(RunIDLayout)
	runDir := filepath.Join(cfg.ResultsDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	sinks := []Sink{
		NewFileSink(filepath.Join(runDir, LogFileName), cfg.MaxSizeMB),
		NewFileSink(filepath.Join(runDir, ResultsFileName), cfg.MaxSizeMB, KindResult),
	}
	if cfg.Console {
		out := cfg.ConsoleOutput
		if out == nil {
			out = os.Stdout
		}
		sinks = append(sinks, NewWriterSink(out))
	}

	return New(runID,
		WithSinks(sinks...),
		WithRunDir(runDir),
		WithSummaryPath(filepath.Join(cfg.ResultsDir, SummaryFileName)),
		WithClock(now),
		WithLogger(cfg.Logger),
	), nil
}

// RunID returns the identifier of the run.
func (r *Reporter) RunID() string { return r.runID }

// RunDir returns the run folder, or "" when the reporter has none.
func (r *Reporter) RunDir() string { return r.runDir }

// Log records an informational line.
func (r *Reporter) Log(msg string) {
	r.emit(KindLog, msg)
}

// Result records an outcome line.
func (r *Reporter) Result(msg string) {
	r.emit(KindResult, msg)
}

func (r *Reporter) emit(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	e := Entry{Time: r.now(), Kind: kind, Message: msg}
	for _, s := range r.sinks {
		if !s.Accepts(kind) {
			continue
		}
		if err := s.Write(e); err != nil {
			r.logger.Warn("Report sink write failed", "kind", kind, "error", err)
		}
	}
}

// FinalResult appends "<runID>: msg" and a blank line to the summary file.
// A write failure is recorded as a Log line and not returned.
func (r *Reporter) FinalResult(msg string) {
	if r.summaryPath == "" {
		return
	}
	if err := r.appendSummary(msg); err != nil {
		r.Log("Unable to write final result: " + err.Error())
	}
}

func (r *Reporter) appendSummary(msg string) error {
	f, err := os.OpenFile(r.summaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%s: %s\n\n", r.runID, msg)
	return errors.Join(werr, f.Close())
}

// SaveArtifact writes data to <runDir>/<fileName> and returns the path.
func (r *Reporter) SaveArtifact(fileName string, data []byte) (string, error) {
	if r.runDir == "" {
		return "", ErrNoRunDir
	}
	path := filepath.Join(r.runDir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return path, nil
}

// Close closes all sinks. Lines recorded afterwards are dropped.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
