package session

import "errors"

var (
	// ErrNotStarted is returned by actions issued before Setup succeeded.
	ErrNotStarted = errors.New("browser session not started")
	// ErrTerminated is returned by actions issued after Stop.
	ErrTerminated = errors.New("browser session terminated")
	// ErrTimeout is returned when an element did not appear within the timeout.
	ErrTimeout = errors.New("timed out waiting for element")
)

// ActionError describes a failed browser action.
// Message is the line written to the run summary when the run aborts.
type ActionError struct {
	Op      string
	Target  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// FailureMessage returns the summary line for err.
func FailureMessage(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
