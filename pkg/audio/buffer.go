// Package audio holds small, allocation-free numeric helpers. The builtin
// mixer uses AddScaled and pkg/control's dB formatting uses LinearToDb;
// the graph planner's silence/discard buffers do not use this package.
package audio

import (
	"errors"
	"math"
)

// Common errors.
var (
	ErrChannelMismatch    = errors.New("channel count mismatch")
	ErrFrameCountMismatch = errors.New("frame count mismatch")
)

// Buffer represents multi-channel, planar (deinterleaved) audio data: one
// []float32 slice per channel.
type Buffer [][]float32

// NewBuffer creates a new audio buffer with the given dimensions.
func NewBuffer(channels, frames int) Buffer {
	buf := make(Buffer, channels)
	for i := range buf {
		buf[i] = make([]float32, frames)
	}
	return buf
}

// Channels returns the number of channels.
func (b Buffer) Channels() int { return len(b) }

// Frames returns the number of frames (samples per channel).
func (b Buffer) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Clear sets all samples to zero.
func (b Buffer) Clear() {
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = 0
		}
	}
}

// Copy copies samples from source to destination.
func Copy(dst, src Buffer) error {
	if dst.Channels() != src.Channels() {
		return ErrChannelMismatch
	}
	if dst.Frames() != src.Frames() {
		return ErrFrameCountMismatch
	}
	for ch := range dst {
		copy(dst[ch], src[ch])
	}
	return nil
}

// ApplyGain applies a gain factor to the buffer in place.
func ApplyGain(buf Buffer, gain float32) {
	for ch := range buf {
		for i := range buf[ch] {
			buf[ch][i] *= gain
		}
	}
}

// Mix adds src, scaled by gain, into dst.
func Mix(dst, src Buffer, gain float32) error {
	if dst.Channels() != src.Channels() {
		return ErrChannelMismatch
	}
	if dst.Frames() != src.Frames() {
		return ErrFrameCountMismatch
	}
	for ch := range dst {
		for i := range dst[ch] {
			dst[ch][i] += src[ch][i] * gain
		}
	}
	return nil
}

// GetPeak returns the peak (maximum absolute) value in the buffer.
func GetPeak(buf Buffer) float32 {
	var peak float32
	for ch := range buf {
		for i := range buf[ch] {
			abs := float32(math.Abs(float64(buf[ch][i])))
			if abs > peak {
				peak = abs
			}
		}
	}
	return peak
}

// AddScaled adds src, scaled by gain, into a single-channel destination. Used
// by the mixer builtin where each input port is a single audio channel
// rather than a full Buffer.
func AddScaled(dst, src []float32, gain float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i] * gain
	}
}
