package graph

// MaxFrames is the compile-time maximum period size the engine plans
// scratch buffers for (spec.md §9).
const MaxFrames = 8192

// MaxHndl is the hard ceiling on channel-duplication factor (spec.md
// §4.3 step 1).
const MaxHndl = 64

// silence is a process-global, read-only buffer used to pre-bind
// unconnected audio input ports (spec.md §5). Every reader treats it as
// read-only; nothing ever writes to it after init.
var silence = make([]float32, MaxFrames)

// discard is a process-global scratch buffer used to pre-bind
// unconnected audio output ports. Multiple handles may write to it, one
// after another, within the same period since nothing
// downstream ever reads it; it exists only so Run always has a non-nil
// destination.
var discard = make([]float32, MaxFrames)

// Silence returns the shared silence buffer, trimmed to n frames.
func Silence(n int) []float32 { return silence[:n] }

// Discard returns the shared discard buffer, trimmed to n frames.
func Discard(n int) []float32 { return discard[:n] }
