package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, time.March, 14, 14, 5, 9, 0, time.Local)

func fixedClock() time.Time { return fixedTime }

// failingSink always errors on write.
type failingSink struct {
	closed bool
}

func (s *failingSink) Accepts(Kind) bool { return true }
func (s *failingSink) Write(Entry) error { return errors.New("disk full") }
func (s *failingSink) Close() error {
	s.closed = true
	return nil
}

func TestEntry_Format(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{Time: fixedTime, Kind: KindLog, Message: "Navigate: http://x"}, "[03-14-2026: 02:05:09][Log]: Navigate: http://x"},
		{Entry{Time: fixedTime, Kind: KindResult, Message: "Clicked Login"}, "[03-14-2026: 02:05:09][Result]: Clicked Login"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.Format())
	}
	assert.Equal(t, "Unknown", Kind(7).String())
}

func TestReporter_SinkRouting(t *testing.T) {
	var all, results bytes.Buffer
	r := New("run1",
		WithSinks(NewWriterSink(&all), NewWriterSink(&results, KindResult)),
		WithClock(fixedClock),
	)

	r.Log("Browser set to Chrome")
	r.Result("Clicked Submit")

	assert.Equal(t,
		"[03-14-2026: 02:05:09][Log]: Browser set to Chrome\n[03-14-2026: 02:05:09][Result]: Clicked Submit\n",
		all.String())
	assert.Equal(t, "[03-14-2026: 02:05:09][Result]: Clicked Submit\n", results.String())
}

func TestReporter_SinkFailureDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	bad := &failingSink{}
	r := New("run1", WithSinks(bad, NewWriterSink(&buf)), WithClock(fixedClock))

	r.Result("still recorded")
	assert.Contains(t, buf.String(), "still recorded")

	require.NoError(t, r.Close())
	assert.True(t, bad.closed)

	r.Log("after close")
	assert.NotContains(t, buf.String(), "after close")
}

func TestReporter_Discard(t *testing.T) {
	r := Discard()
	r.Log("nothing")
	r.Result("nothing")
	r.FinalResult("nothing")

	_, err := r.SaveArtifact("shot.png", []byte("png"))
	assert.ErrorIs(t, err, ErrNoRunDir)
	assert.NoError(t, r.Close())
}

func TestReporter_FinalResultAppends(t *testing.T) {
	dir := t.TempDir()
	summary := filepath.Join(dir, SummaryFileName)

	first := New("20260314_020509", WithSummaryPath(summary))
	first.FinalResult("PASSED")
	second := New("20260314_021000", WithSummaryPath(summary))
	second.FinalResult("FAILURE: X")

	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Equal(t, "20260314_020509: PASSED\n\n20260314_021000: FAILURE: X\n\n", string(data))
}

func TestReporter_FinalResultFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	summary := filepath.Join(t.TempDir(), "missing", "all.txt")
	r := New("run1", WithSinks(NewWriterSink(&buf)), WithSummaryPath(summary), WithClock(fixedClock))

	r.FinalResult("PASSED")

	assert.Contains(t, buf.String(), "[Log]: Unable to write final result:")
}

func TestNewRunReporter(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	r, err := NewRunReporter(&RunConfig{
		ResultsDir:    dir,
		Console:       true,
		ConsoleOutput: &console,
		Now:           fixedClock,
	})
	require.NoError(t, err)

	assert.Equal(t, "20260314_020509", r.RunID())
	assert.Equal(t, filepath.Join(dir, "20260314_020509"), r.RunDir())
	assert.DirExists(t, r.RunDir())

	r.Log("Navigate: http://example.com")
	r.Result("Clicked Login")
	r.FinalResult("PASSED")

	path, err := r.SaveArtifact("home.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.RunDir(), "home.png"), path)

	require.NoError(t, r.Close())

	logData, err := os.ReadFile(filepath.Join(r.RunDir(), LogFileName))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(logData), "\n"))
	assert.Contains(t, string(logData), "[Log]: Navigate: http://example.com")

	resultData, err := os.ReadFile(filepath.Join(r.RunDir(), ResultsFileName))
	require.NoError(t, err)
	assert.Equal(t, "[03-14-2026: 02:05:09][Result]: Clicked Login\n", string(resultData))

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	require.NoError(t, err)
	assert.Equal(t, "20260314_020509: PASSED\n\n", string(summary))

	assert.Equal(t, 2, strings.Count(console.String(), "\n"))

	shot, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(shot))
}

func TestNewRunReporter_NoConsole(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.ResultsDir = t.TempDir()
	cfg.Console = false
	cfg.Now = fixedClock

	r, err := NewRunReporter(cfg)
	require.NoError(t, err)
	defer r.Close()

	assert.Len(t, r.sinks, 2)
}
