package builtin

import (
	"math"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/process"
)

// biquadBinding implements descriptor.Binding for the eight bq_* labels
// in spec.md §6, each with Freq/Q/Gain controls and a direct-form-II
// transposed biquad core using RBJ "Cookbook" coefficients.
type biquadBinding struct {
	label string
	ports []descriptor.Port
}

func newBiquadBinding(label string) *biquadBinding {
	return &biquadBinding{
		label: label,
		ports: []descriptor.Port{
			{Name: "In", Direction: descriptor.Input, Kind: descriptor.Audio},
			{Name: "Out", Direction: descriptor.Output, Kind: descriptor.Audio},
			{Name: "Freq", Direction: descriptor.Input, Kind: descriptor.Control, Hint: descriptor.SampleRate, Default: 1000, Min: 20, Max: 20000},
			{Name: "Q", Direction: descriptor.Input, Kind: descriptor.Control, Default: 0.707, Min: 0.1, Max: 20},
			{Name: "Gain", Direction: descriptor.Input, Kind: descriptor.Control, Default: 0, Min: -24, Max: 24},
		},
	}
}

func (b *biquadBinding) Ports() []descriptor.Port { return b.ports }

func (b *biquadBinding) Capabilities() descriptor.Capability {
	return descriptor.SupportsNullData
}

func (b *biquadBinding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	if rate <= 0 {
		rate = 48000
	}
	return &biquadHandle{label: b.label, rate: rate}, nil
}

// biquadCoeffs holds a direct-form-II-transposed biquad's normalized
// coefficients (a0 already divided out).
type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// rbjCoeffs computes RBJ "Cookbook" biquad coefficients for one of the
// eight supported filter shapes.
func rbjCoeffs(label string, rate, freq, q, gainDb float64) biquadCoeffs {
	if freq <= 0 {
		freq = 1
	}
	if freq > rate*0.45 {
		freq = rate * 0.45
	}
	if q <= 0 {
		q = 0.1
	}
	w0 := 2 * math.Pi * freq / rate
	cosw0, sinw0 := math.Cos(w0), math.Sin(w0)
	alpha := sinw0 / (2 * q)
	a := math.Pow(10, gainDb/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch label {
	case "bq_lowpass":
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case "bq_highpass":
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case "bq_bandpass":
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case "bq_notch":
		b0 = 1
		b1 = -2 * cosw0
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case "bq_allpass":
		b0 = 1 - alpha
		b1 = -2 * cosw0
		b2 = 1 + alpha
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case "bq_peaking":
		b0 = 1 + alpha*a
		b1 = -2 * cosw0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosw0
		a2 = 1 - alpha/a
	case "bq_lowshelf":
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosw0 + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosw0)
		b2 = a * ((a + 1) - (a-1)*cosw0 - sq)
		a0 = (a + 1) + (a-1)*cosw0 + sq
		a1 = -2 * ((a - 1) + (a+1)*cosw0)
		a2 = (a + 1) + (a-1)*cosw0 - sq
	case "bq_highshelf":
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosw0 + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosw0)
		b2 = a * ((a + 1) + (a-1)*cosw0 - sq)
		a0 = (a + 1) - (a-1)*cosw0 + sq
		a1 = 2 * ((a - 1) - (a+1)*cosw0)
		a2 = (a + 1) - (a-1)*cosw0 - sq
	default:
		// Bypass.
		return biquadCoeffs{b0: 1}
	}

	return biquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// biquadHandle is a direct-form-II-transposed biquad with NaN/Inf
// self-healing, matching the teacher's state-variable filter's safety
// behavior but applied to the RBJ core instead.
type biquadHandle struct {
	label string
	rate  float64

	in, out        []float32
	freq, q, gain  *control.ControlValue
	z1, z2         float64
	nanCount       uint64
	lastFreq       float64
	lastQ          float64
	lastGain       float64
	coeffs         biquadCoeffs
	coeffsComputed bool
}

func (h *biquadHandle) ConnectPort(idx int, data interface{}) {
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
		h.freq, _ = data.(*control.ControlValue)
	case 3:
		h.q, _ = data.(*control.ControlValue)
	case 4:
		h.gain, _ = data.(*control.ControlValue)
	}
}

func (h *biquadHandle) Activate() {
	h.z1, h.z2 = 0, 0
	h.coeffsComputed = false
}

func (h *biquadHandle) Deactivate() {
	h.z1, h.z2 = 0, 0
}

func (h *biquadHandle) Cleanup() {}

func (h *biquadHandle) currentParams() (freq, q, gain float64) {
	freq, q, gain = 1000, 0.707, 0
	if h.freq != nil {
		freq = h.freq.Load()
	}
	if h.q != nil {
		q = h.q.Load()
	}
	if h.gain != nil {
		gain = h.gain.Load()
	}
	return
}

func (h *biquadHandle) Run(nFrames int) process.Status {
	if h.out == nil {
		return process.Continue
	}
	freq, q, gain := h.currentParams()
	if !h.coeffsComputed || freq != h.lastFreq || q != h.lastQ || gain != h.lastGain {
		h.coeffs = rbjCoeffs(h.label, h.rate, freq, q, gain)
		h.lastFreq, h.lastQ, h.lastGain = freq, q, gain
		h.coeffsComputed = true
	}

	n := nFrames
	if len(h.out) < n {
		n = len(h.out)
	}
	if h.in == nil {
		for i := 0; i < n; i++ {
			h.out[i] = 0
		}
		return process.Continue
	}
	if len(h.in) < n {
		n = len(h.in)
	}

	c := h.coeffs
	for i := 0; i < n; i++ {
		x := float64(h.in[i])
		y := c.b0*x + h.z1
		h.z1 = c.b1*x - c.a1*y + h.z2
		h.z2 = c.b2*x - c.a2*y

		if math.IsNaN(y) || math.IsInf(y, 0) {
			h.nanCount++
			h.z1, h.z2 = 0, 0
			y = 0
		}
		h.out[i] = float32(y)
	}
	return process.Continue
}
