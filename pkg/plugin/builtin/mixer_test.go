package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosmolabs/filterchain/pkg/control"
)

func TestMixerSumsConnectedInputsScaledByGain(t *testing.T) {
	b := newMixerBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*mixerHandle)

	in1 := []float32{1, 1, 1, 1}
	in2 := []float32{2, 2, 2, 2}
	out := make([]float32, 4)

	h.ConnectPort(0, in1)
	h.ConnectPort(1, control.NewControlValue(0.5))
	h.ConnectPort(2, in2)
	h.ConnectPort(3, control.NewControlValue(2.0))
	h.ConnectPort(16, out)

	h.Run(4)

	for _, v := range out {
		assert.InDelta(t, 4.5, v, 1e-6)
	}
}

func TestMixerDefaultsToUnityGainWhenGainPortUnconnected(t *testing.T) {
	b := newMixerBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*mixerHandle)

	in1 := []float32{3, 3}
	out := make([]float32, 2)
	h.ConnectPort(0, in1)
	h.ConnectPort(16, out)

	h.Run(2)

	assert.Equal(t, []float32{3, 3}, out)
}

func TestMixerNilOutputIsNoop(t *testing.T) {
	b := newMixerBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*mixerHandle)
	h.ConnectPort(0, []float32{1, 2, 3})
	assert.NotPanics(t, func() { h.Run(3) })
}

func TestMixerIgnoresUnconnectedInputs(t *testing.T) {
	b := newMixerBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*mixerHandle)

	out := make([]float32, 3)
	h.ConnectPort(16, out)
	h.Run(3)

	assert.Equal(t, []float32{0, 0, 0}, out)
}
