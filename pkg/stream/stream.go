// Package stream defines the minimal interface the engine consumes from
// the surrounding media framework (spec.md §6): deliver capture data with
// known offsets/sizes, collect playback data with matching stride. The
// engine core uses only Buffer, Source and Sink from this package; the
// concrete PortAudio transport (portaudio.go) lives in this same package
// and is opened by the demonstration command, never by pkg/graph itself.
package stream

// Buffer is one planar, multi-channel region of audio samples exchanged
// with the surrounding framework. Frames is the number of valid samples
// per channel currently carried; MaxFrames is the capacity of each
// channel slice.
type Buffer struct {
	Channels  [][]float32
	Frames    int
	MaxFrames int
}

// Source is dequeued once per period to obtain capture data.
type Source interface {
	// Dequeue returns the next available input buffer, or ok=false if
	// none is ready this period.
	Dequeue() (buf Buffer, ok bool)
	// Queue returns a previously dequeued buffer to the source's pool.
	Queue(buf Buffer)
}

// Sink is dequeued once per period to obtain a destination for playback
// data.
type Sink interface {
	// Dequeue returns the next available output buffer, or ok=false if
	// none is ready this period.
	Dequeue() (buf Buffer, ok bool)
	// Queue submits a filled buffer (Buffer.Frames valid samples per
	// channel) for playback.
	Queue(buf Buffer)
}
