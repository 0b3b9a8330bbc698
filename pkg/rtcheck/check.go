// Package rtcheck provides a development-time assertion that config-thread
// entry points (builder, planner, control plane, registry) are never
// called while the audio thread's period is in flight (spec §5).
//
// This is not a lock: the audio thread never blocks on it, and it carries
// no effect in the hot path beyond two atomic stores in the executor's
// period bracket. It exists to catch accidental cross-thread calls during
// development and in tests, not to serialize them.
package rtcheck

import "sync/atomic"

var inPeriod int32

// EnterPeriod marks the start of an audio-thread period. Only the
// executor should call this.
func EnterPeriod() {
	atomic.StoreInt32(&inPeriod, 1)
}

// LeavePeriod marks the end of an audio-thread period. Only the executor
// should call this.
func LeavePeriod() {
	atomic.StoreInt32(&inPeriod, 0)
}

// InPeriod reports whether the executor is currently inside RunPeriod.
func InPeriod() bool {
	return atomic.LoadInt32(&inPeriod) != 0
}

// AssertConfigThread panics if called while a period is in flight. Config
// thread entry points call this defensively; it is a no-op in the common
// case and exists purely to surface bugs, never to be relied on for
// correctness.
func AssertConfigThread(function string) {
	if InPeriod() {
		panic(function + " must not be called while the audio thread's period is in flight")
	}
}
