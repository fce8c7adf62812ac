package event

// ScriptStarted is published when a script starts executing.
type ScriptStarted struct {
	baseSessionEvent
	ScriptName string
	Steps      int
}

func NewScriptStarted(sessionID, scriptName string, steps int) *ScriptStarted {
	return &ScriptStarted{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		ScriptName:       scriptName,
		Steps:            steps,
	}
}

func (e *ScriptStarted) EventName() string {
	return "ScriptStarted"
}

// StopReason indicates why a script stopped.
type StopReason int

const (
	// StopReasonNormal indicates every step ran.
	StopReasonNormal StopReason = iota
	// StopReasonFailed indicates a step failed and aborted the run.
	StopReasonFailed
	// StopReasonCancelled indicates the context was cancelled.
	StopReasonCancelled
	// StopReasonStopStep indicates the script ended itself with a stop step.
	StopReasonStopStep
)

func (r StopReason) String() string {
	switch r {
	case StopReasonNormal:
		return "Normal"
	case StopReasonFailed:
		return "Failed"
	case StopReasonCancelled:
		return "Cancelled"
	case StopReasonStopStep:
		return "StopStep"
	default:
		return "Unknown"
	}
}

// ScriptStopped is published when a script stops executing.
type ScriptStopped struct {
	baseSessionEvent
	ScriptName string
	Reason     StopReason
	StepsRun   int
	Error      error // Non-nil if Reason is StopReasonFailed or StopReasonCancelled
}

func NewScriptStopped(sessionID, scriptName string, reason StopReason, stepsRun int, err error) *ScriptStopped {
	return &ScriptStopped{
		baseSessionEvent: newBaseSessionEvent(sessionID),
		ScriptName:       scriptName,
		Reason:           reason,
		StepsRun:         stepsRun,
		Error:            err,
	}
}

func (e *ScriptStopped) EventName() string {
	return "ScriptStopped"
}
