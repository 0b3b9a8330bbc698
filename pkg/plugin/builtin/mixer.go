package builtin

import (
	"fmt"

	"github.com/kosmolabs/filterchain/pkg/audio"
	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/process"
)

const maxMixerInputs = 8

// mixerBinding implements descriptor.Binding for the "mixer" label: up to
// 8 audio inputs, each with its own gain control, summed into one output.
type mixerBinding struct {
	ports []descriptor.Port
}

func newMixerBinding() *mixerBinding {
	ports := make([]descriptor.Port, 0, maxMixerInputs*2+1)
	for i := 1; i <= maxMixerInputs; i++ {
		ports = append(ports, descriptor.Port{
			Name: fmt.Sprintf("In %d", i), Direction: descriptor.Input, Kind: descriptor.Audio,
		})
		ports = append(ports, descriptor.Port{
			Name: fmt.Sprintf("Gain %d", i), Direction: descriptor.Input, Kind: descriptor.Control,
			Default: 1.0, Min: 0.0, Max: 10.0,
		})
	}
	ports = append(ports, descriptor.Port{Name: "Out", Direction: descriptor.Output, Kind: descriptor.Audio})
	return &mixerBinding{ports: ports}
}

func (m *mixerBinding) Ports() []descriptor.Port { return m.ports }

func (m *mixerBinding) Capabilities() descriptor.Capability {
	return descriptor.SupportsNullData
}

func (m *mixerBinding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	return &mixerHandle{}, nil
}

type mixerHandle struct {
	ins   [maxMixerInputs][]float32
	gains [maxMixerInputs]*control.ControlValue
	out   []float32
}

func (h *mixerHandle) ConnectPort(idx int, data interface{}) {
	switch {
	case idx < maxMixerInputs*2 && idx%2 == 0:
		n := idx / 2
		if data == nil {
			h.ins[n] = nil
			return
		}
		h.ins[n], _ = data.([]float32)
	case idx < maxMixerInputs*2:
		n := idx / 2
		h.gains[n], _ = data.(*control.ControlValue)
	default:
		if data == nil {
			h.out = nil
			return
		}
		h.out, _ = data.([]float32)
	}
}

func (h *mixerHandle) Activate()   {}
func (h *mixerHandle) Deactivate() {}
func (h *mixerHandle) Cleanup()    {}

func (h *mixerHandle) Run(nFrames int) process.Status {
	if h.out == nil {
		return process.Continue
	}
	for i := 0; i < nFrames && i < len(h.out); i++ {
		h.out[i] = 0
	}
	for n := 0; n < maxMixerInputs; n++ {
		in := h.ins[n]
		if in == nil {
			continue
		}
		gain := float32(1.0)
		if h.gains[n] != nil {
			gain = float32(h.gains[n].Load())
		}
		audio.AddScaled(h.out[:min(nFrames, len(h.out))], in[:min(nFrames, len(in))], gain)
	}
	return process.Continue
}
