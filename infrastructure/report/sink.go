package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink receives formatted entries.
type Sink interface {
	// Accepts reports whether the sink wants entries of kind k.
	Accepts(k Kind) bool
	Write(e Entry) error
	Close() error
}

// kindSet is the set of kinds a sink accepts. Empty means all.
type kindSet []Kind

func (s kindSet) accepts(k Kind) bool {
	if len(s) == 0 {
		return true
	}
	for _, want := range s {
		if want == k {
			return true
		}
	}
	return false
}

// WriterSink writes entries to an io.Writer, one per line.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	kinds kindSet
}

// NewWriterSink creates a sink over w accepting the given kinds (all if none).
func NewWriterSink(w io.Writer, kinds ...Kind) *WriterSink {
	return &WriterSink{w: w, kinds: kinds}
}

// NewConsoleSink writes every entry to stdout.
func NewConsoleSink() *WriterSink {
	return NewWriterSink(os.Stdout)
}

func (s *WriterSink) Accepts(k Kind) bool { return s.kinds.accepts(k) }

func (s *WriterSink) Write(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, e.Format())
	return err
}

// Close is a no-op; the writer belongs to the caller.
func (s *WriterSink) Close() error { return nil }

// FileSink appends entries to a size-rotated file. Rotated files are kept.
type FileSink struct {
	mu    sync.Mutex
	lj    *lumberjack.Logger
	kinds kindSet
}

// NewFileSink creates a sink writing to path. maxSizeMB <= 0 uses
// lumberjack's default of 100 MB.
func NewFileSink(path string, maxSizeMB int, kinds ...Kind) *FileSink {
	return &FileSink{
		lj: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 0,
			MaxAge:     0,
			LocalTime:  true,
		},
		kinds: kinds,
	}
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string { return s.lj.Filename }

func (s *FileSink) Accepts(k Kind) bool { return s.kinds.accepts(k) }

func (s *FileSink) Write(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.lj.Write([]byte(e.Format() + "\n"))
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lj.Close()
}
