package builtin

import (
	"strconv"
	"strings"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/process"
)

// delayBinding implements descriptor.Binding for the "delay" label
// (spec.md §6): a circular buffer, config "max-delay" seconds, control
// "Delay (s)" clamped to that maximum.
type delayBinding struct {
	ports []descriptor.Port
}

func newDelayBinding() *delayBinding {
	return &delayBinding{ports: []descriptor.Port{
		{Name: "In", Direction: descriptor.Input, Kind: descriptor.Audio},
		{Name: "Out", Direction: descriptor.Output, Kind: descriptor.Audio},
		{Name: "Delay (s)", Direction: descriptor.Input, Kind: descriptor.Control, Default: 0, Min: 0, Max: 10},
	}}
}

func (d *delayBinding) Ports() []descriptor.Port { return d.ports }

func (d *delayBinding) Capabilities() descriptor.Capability {
	return descriptor.SupportsNullData
}

// parseMaxDelay extracts the "max-delay" numeric field from the raw
// config substring captured by the builder. A malformed or absent field
// defaults to 1 second; this builtin does not depend on pkg/spajson so
// it stays usable in isolation and in tests that construct it directly.
func parseMaxDelay(config string) float64 {
	idx := strings.Index(config, "max-delay")
	if idx < 0 {
		return 1.0
	}
	rest := config[idx+len("max-delay"):]
	rest = strings.TrimLeft(rest, " \t\n=:")
	end := 0
	for end < len(rest) && (rest[end] == '.' || rest[end] == '-' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil || v <= 0 {
		return 1.0
	}
	return v
}

func (d *delayBinding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	if rate <= 0 {
		rate = 48000
	}
	maxDelay := parseMaxDelay(config)
	capacity := int(maxDelay*rate) + 1
	if capacity < 1 {
		capacity = 1
	}
	return &delayHandle{
		rate:     rate,
		maxDelay: maxDelay,
		buf:      make([]float32, capacity),
	}, nil
}

type delayHandle struct {
	rate     float64
	maxDelay float64

	in, out []float32
	delay   *control.ControlValue

	buf   []float32
	write int
}

func (h *delayHandle) ConnectPort(idx int, data interface{}) {
	switch idx {
	case 0:
		if data == nil {
			h.in = nil
		} else {
			h.in, _ = data.([]float32)
		}
	case 1:
		if data == nil {
			h.out = nil
		} else {
			h.out, _ = data.([]float32)
		}
	case 2:
		h.delay, _ = data.(*control.ControlValue)
	}
}

func (h *delayHandle) Activate() {
	for i := range h.buf {
		h.buf[i] = 0
	}
	h.write = 0
}

func (h *delayHandle) Deactivate() { h.Activate() }
func (h *delayHandle) Cleanup()    {}

func (h *delayHandle) Run(nFrames int) process.Status {
	if h.out == nil {
		return process.Continue
	}
	n := nFrames
	if len(h.out) < n {
		n = len(h.out)
	}

	delaySec := 0.0
	if h.delay != nil {
		delaySec = h.delay.Load()
	}
	if delaySec < 0 {
		delaySec = 0
	}
	if delaySec > h.maxDelay {
		delaySec = h.maxDelay
	}
	delaySamples := int(delaySec * h.rate)
	if delaySamples >= len(h.buf) {
		delaySamples = len(h.buf) - 1
	}

	for i := 0; i < n; i++ {
		var x float32
		if h.in != nil && i < len(h.in) {
			x = h.in[i]
		}
		readIdx := h.write - delaySamples
		for readIdx < 0 {
			readIdx += len(h.buf)
		}
		h.out[i] = h.buf[readIdx]
		h.buf[h.write] = x
		h.write = (h.write + 1) % len(h.buf)
	}
	return process.Continue
}
