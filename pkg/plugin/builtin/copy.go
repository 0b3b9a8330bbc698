package builtin

import (
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/process"
)

// copyBinding implements descriptor.Binding for the "copy" label: a
// single-channel passthrough, used to express fan-out (spec.md §6).
type copyBinding struct {
	ports []descriptor.Port
}

func newCopyBinding() *copyBinding {
	return &copyBinding{ports: []descriptor.Port{
		{Name: "In", Direction: descriptor.Input, Kind: descriptor.Audio},
		{Name: "Out", Direction: descriptor.Output, Kind: descriptor.Audio},
	}}
}

func (c *copyBinding) Ports() []descriptor.Port { return c.ports }

func (c *copyBinding) Capabilities() descriptor.Capability {
	return descriptor.SupportsNullData
}

func (c *copyBinding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	return &copyHandle{}, nil
}

type copyHandle struct {
	in  []float32
	out []float32
}

func (h *copyHandle) ConnectPort(idx int, data interface{}) {
	var buf []float32
	if data != nil {
		buf, _ = data.([]float32)
	}
	if idx == 0 {
		h.in = buf
	} else {
		h.out = buf
	}
}

func (h *copyHandle) Activate()   {}
func (h *copyHandle) Deactivate() {}
func (h *copyHandle) Cleanup()    {}

func (h *copyHandle) Run(nFrames int) process.Status {
	if h.out == nil {
		return process.Continue
	}
	if h.in == nil {
		for i := 0; i < nFrames && i < len(h.out); i++ {
			h.out[i] = 0
		}
		return process.Continue
	}
	n := nFrames
	if len(h.in) < n {
		n = len(h.in)
	}
	if len(h.out) < n {
		n = len(h.out)
	}
	copy(h.out[:n], h.in[:n])
	return process.Continue
}
