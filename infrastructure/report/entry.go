// Package report records the timestamped Log and Result lines of a run and
// fans them out to console and per-run files, plus the cross-run summary.
package report

import "time"

const (
	// EntryTimeLayout stamps every line, e.g. "03-14-2026: 02:05:09".
	EntryTimeLayout = "01-02-2006: 03:04:05"
	// RunIDLayout names the per-run results folder, e.g. "20260314_020509".
	RunIDLayout = "20060102_030405"
)

// Kind separates diagnostic lines from test outcome lines.
type Kind int

const (
	// KindLog is an informational line.
	KindLog Kind = iota
	// KindResult is an outcome line that also lands in results.txt.
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "Log"
	case KindResult:
		return "Result"
	default:
		return "Unknown"
	}
}

// Entry is a single report line.
type Entry struct {
	Time    time.Time
	Kind    Kind
	Message string
}

// Format renders the entry as "[<time>][<Kind>]: <message>".
func (e Entry) Format() string {
	return "[" + e.Time.Format(EntryTimeLayout) + "][" + e.Kind.String() + "]: " + e.Message
}
