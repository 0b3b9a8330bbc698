package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosmolabs/filterchain/pkg/fcerr"
)

func TestParseConvolverConfigExtractsFields(t *testing.T) {
	cfg := parseConvolverConfig(`blocksize = 128 gain = 0.5 filename = "/dirac" channel = 1`)
	assert.Equal(t, 128, cfg.blocksize)
	assert.InDelta(t, 0.5, cfg.gain, 1e-9)
	assert.Equal(t, "/dirac", cfg.filename)
	assert.Equal(t, 1, cfg.channel)
}

func TestParseConvolverConfigDefaultsAndClampsBlocksize(t *testing.T) {
	cfg := parseConvolverConfig("")
	assert.Equal(t, 256, cfg.blocksize)
	assert.Equal(t, 1.0, cfg.gain)

	cfg = parseConvolverConfig("blocksize = 4")
	assert.Equal(t, 64, cfg.blocksize, "below the floor clamps to 64")

	cfg = parseConvolverConfig("blocksize = 9999")
	assert.Equal(t, 256, cfg.blocksize, "above the ceiling clamps to 256")
}

func TestLoadTapsDiracIsUnitImpulse(t *testing.T) {
	taps, err := loadTaps(convolverConfig{filename: "/dirac"}, 48000)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, taps)
}

func TestLoadTapsEmptyFilenameIsUnitImpulse(t *testing.T) {
	taps, err := loadTaps(convolverConfig{}, 48000)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, taps)
}

func TestHilbertTapsOddLengthWithZeroEvenTaps(t *testing.T) {
	taps := hilbertTaps(convolverConfig{length: 8})
	assert.Equal(t, 9, len(taps), "even length requested rounds up to odd")
	for i, v := range taps {
		if i%2 == 0 {
			assert.Zero(t, v)
		}
	}
}

func TestHilbertTapsDefaultLength(t *testing.T) {
	taps := hilbertTaps(convolverConfig{})
	assert.Equal(t, 63, len(taps))
}

func TestConvolverDiracPassesThroughAtConfiguredGain(t *testing.T) {
	b := newConvolverBinding()
	handle, err := b.Instantiate(48000, 0, `filename = "/dirac" gain = 2.0`)
	require.NoError(t, err)
	h := handle.(*convolverHandle)
	h.Activate()

	in := []float32{1, 2, 3, 4}
	out := make([]float32, 4)
	h.ConnectPort(0, in)
	h.ConnectPort(1, out)

	h.Run(4)

	assert.Equal(t, []float32{2, 4, 6, 8}, out)
}

func TestConvolverNilOutputIsNoop(t *testing.T) {
	b := newConvolverBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*convolverHandle)
	assert.NotPanics(t, func() { h.Run(4) })
}

func TestConvolverNilInputContributesSilence(t *testing.T) {
	b := newConvolverBinding()
	handle, err := b.Instantiate(48000, 0, "")
	require.NoError(t, err)
	h := handle.(*convolverHandle)
	h.Activate()

	out := []float32{9, 9, 9}
	h.ConnectPort(1, out)
	h.Run(3)

	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestLoadWavTapsMissingFileReturnsIOError(t *testing.T) {
	_, err := loadWavTaps(convolverConfig{filename: "/nonexistent/path/impulse.wav"})
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.IO))
}
