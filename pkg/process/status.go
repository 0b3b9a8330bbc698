// Package process defines the status contract a descriptor's Run returns
// for one instance's one-period invocation.
package process

// Status is the outcome of one Run(handle, nFrames) call.
type Status int32

const (
	// Error indicates the instance failed to process; its audio outputs
	// are expected to have been silenced. The planner/control plane may
	// choose to deactivate/reactivate the instance.
	Error Status = iota
	// Continue indicates normal processing; call again next period.
	Continue
	// ContinueIfNotQuiet indicates processing completed but the instance
	// may be left to idle if its input stays silent (e.g. a gate).
	ContinueIfNotQuiet
	// Tail indicates the instance is producing a tail (reverb/delay decay)
	// with no further input expected; keep calling Run until Sleep.
	Tail
	// Sleep indicates the instance has nothing further to produce until a
	// control value changes.
	Sleep
)

func (s Status) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Continue:
		return "CONTINUE"
	case ContinueIfNotQuiet:
		return "CONTINUE_IF_NOT_QUIET"
	case Tail:
		return "TAIL"
	case Sleep:
		return "SLEEP"
	default:
		return "UNKNOWN"
	}
}

// ShouldContinue reports whether the executor should keep driving this
// instance at full rate next period.
func (s Status) ShouldContinue() bool {
	return s == Continue || s == ContinueIfNotQuiet
}
