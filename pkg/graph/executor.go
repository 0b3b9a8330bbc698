package graph

import (
	"time"

	"github.com/kosmolabs/filterchain/pkg/metrics"
	"github.com/kosmolabs/filterchain/pkg/rtcheck"
	"github.com/kosmolabs/filterchain/pkg/stream"
)

// Executor runs a planned Graph one audio period at a time. It owns no
// state beyond the plan itself; RunPeriod is the only method the audio
// thread calls (spec.md §4.4).
type Executor struct {
	g *Graph
}

// NewExecutor wraps a planned Graph for period-by-period execution.
func NewExecutor(g *Graph) *Executor {
	return &Executor{g: g}
}

// RunPeriod dequeues one input and one output buffer from the
// surrounding stream, connects them to the graph's external slots, runs
// every handle in topological order, and queues the result. It never
// allocates, blocks, or logs: an unavailable buffer degrades to a
// skipped or silent period rather than an error.
func (e *Executor) RunPeriod(src stream.Source, sink stream.Sink) {
	rtcheck.EnterPeriod()
	defer rtcheck.LeavePeriod()

	start := time.Now()
	g := e.g

	in, haveIn := src.Dequeue()
	out, haveOut := sink.Dequeue()
	if !haveOut {
		metrics.Xruns.Inc()
		if haveIn {
			src.Queue(in)
		}
		return
	}

	frames := out.MaxFrames
	if haveIn && in.Frames < frames {
		frames = in.Frames
	}
	if frames > MaxFrames {
		frames = MaxFrames
	}

	for i, binding := range g.Input {
		if binding.Node == nil {
			continue
		}
		handle := binding.Node.Handles[binding.HandleIndex]
		if haveIn && i < len(in.Channels) {
			handle.ConnectPort(binding.PortIndex, in.Channels[i][:frames])
		} else {
			handle.ConnectPort(binding.PortIndex, Silence(frames))
		}
	}

	for i, binding := range g.Output {
		if binding.Node == nil {
			if i < len(out.Channels) {
				clear(out.Channels[i][:frames])
			}
			continue
		}
		handle := binding.Node.Handles[binding.HandleIndex]
		if i < len(out.Channels) {
			handle.ConnectPort(binding.PortIndex, out.Channels[i][:frames])
		} else {
			handle.ConnectPort(binding.PortIndex, Discard(frames))
		}
	}

	for _, ref := range g.Hndl {
		ref.Node.Handles[ref.HandleIndex].Run(frames)
	}

	out.Frames = frames
	sink.Queue(out)
	if haveIn {
		src.Queue(in)
	}

	metrics.PeriodsProcessed.Inc()
	metrics.FramesProcessed.Add(float64(frames))
	metrics.ActiveInstances.Set(float64(len(g.Hndl)))
	metrics.PeriodDuration.Observe(time.Since(start).Seconds())
}
