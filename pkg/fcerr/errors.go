// Package fcerr defines the error-kind vocabulary the engine uses to
// report build/plan/registry failures (spec §7). The audio thread never
// returns these: it degrades instead (see pkg/graph/executor).
package fcerr

import "fmt"

// Code is one of the six propagated error kinds.
type Code int

const (
	// Invalid marks a malformed description, a cycle, a mismatched
	// channel ratio, or zero declared inputs/outputs.
	Invalid Code = iota
	// NotFound marks an unknown port, label, or plugin.
	NotFound
	// Unsupported marks an unknown family or a descriptor with no audio
	// ports in either direction.
	Unsupported
	// Busy marks a port already externally bound or already linked.
	Busy
	// NoMem marks an allocation failure.
	NoMem
	// IO marks a plugin loader failure, propagated opaque.
	IO
)

func (c Code) String() string {
	switch c {
	case Invalid:
		return "INVALID"
	case NotFound:
		return "NOT_FOUND"
	case Unsupported:
		return "UNSUPPORTED"
	case Busy:
		return "BUSY"
	case NoMem:
		return "NO_MEM"
	case IO:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type returned by builder/planner/registry
// operations.
type Error struct {
	Code Code
	Op   string // e.g. "builder.resolvePort", "registry.load"
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no wrapped cause.
func New(code Code, op, msg string) *Error {
	return &Error{Code: code, Op: op, Msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that carries cause as its wrapped error.
func Wrap(code Code, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Msg: cause.Error(), Err: cause}
}

// Is reports whether err (or any error it wraps) carries the given Code.
func Is(err error, code Code) bool {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			if fe.Code == code {
				return true
			}
			err = fe.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
