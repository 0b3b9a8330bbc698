package stream

import (
	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/kosmolabs/filterchain/pkg/fcerr"
)

// PortAudioSource/PortAudioSink drive the engine against a real sound
// card using blocking Read/Write streams, grounded on the interleaved
// capture/playback pattern used by the pack's VoIP client audio engine.
// The blocking Read happens in PortAudioSource.Dequeue and the blocking
// Write in PortAudioSink.Queue, so both run inside
// graph.Executor.RunPeriod on the goroutine that loops it; no extra
// goroutine is started. Dequeue/Queue are the only blocking points.

// PortAudioSource captures from an input device into planar buffers.
type PortAudioSource struct {
	stream   *portaudio.Stream
	channels int
	frames   int
	flat     []float32
	planar   [][]float32
}

// OpenSource opens a capture stream on deviceIndex (-1 for the system
// default) with the given channel count, sample rate, and period size.
func OpenSource(deviceIndex, channels int, sampleRate float64, framesPerBuffer int) (*PortAudioSource, error) {
	dev, err := resolveInputDevice(deviceIndex)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSource", err)
	}

	flat := make([]float32, channels*framesPerBuffer)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}
	s, err := portaudio.OpenStream(params, flat)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSource", err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSource", err)
	}

	planar := make([][]float32, channels)
	for c := range planar {
		planar[c] = make([]float32, framesPerBuffer)
	}
	log.Info("capture stream started", "device", dev.Name, "channels", channels, "rate", sampleRate)
	return &PortAudioSource{stream: s, channels: channels, frames: framesPerBuffer, flat: flat, planar: planar}, nil
}

// Dequeue reads one period of interleaved samples and deinterleaves them
// into the reusable planar buffer.
func (p *PortAudioSource) Dequeue() (Buffer, bool) {
	if err := p.stream.Read(); err != nil {
		log.Warn("capture read failed, skipping period", "err", err)
		return Buffer{}, false
	}
	for c := 0; c < p.channels; c++ {
		for i := 0; i < p.frames; i++ {
			p.planar[c][i] = p.flat[i*p.channels+c]
		}
	}
	return Buffer{Channels: p.planar, Frames: p.frames, MaxFrames: p.frames}, true
}

// Queue is a no-op: the capture buffer is reused in place by Dequeue.
func (p *PortAudioSource) Queue(Buffer) {}

// Close stops and releases the capture stream.
func (p *PortAudioSource) Close() error {
	p.stream.Stop()
	return p.stream.Close()
}

// PortAudioSink renders planar buffers to an output device.
type PortAudioSink struct {
	stream   *portaudio.Stream
	channels int
	frames   int
	flat     []float32
	planar   [][]float32
}

// OpenSink opens a playback stream on deviceIndex (-1 for the system
// default) with the given channel count, sample rate, and period size.
func OpenSink(deviceIndex, channels int, sampleRate float64, framesPerBuffer int) (*PortAudioSink, error) {
	dev, err := resolveOutputDevice(deviceIndex)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSink", err)
	}

	flat := make([]float32, channels*framesPerBuffer)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}
	s, err := portaudio.OpenStream(params, flat)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSink", err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return nil, fcerr.Wrap(fcerr.IO, "stream.OpenSink", err)
	}

	planar := make([][]float32, channels)
	for c := range planar {
		planar[c] = make([]float32, framesPerBuffer)
	}
	log.Info("playback stream started", "device", dev.Name, "channels", channels, "rate", sampleRate)
	return &PortAudioSink{stream: s, channels: channels, frames: framesPerBuffer, flat: flat, planar: planar}, nil
}

// Dequeue hands back the reusable planar buffer for the executor to fill.
func (p *PortAudioSink) Dequeue() (Buffer, bool) {
	for c := range p.planar {
		clear(p.planar[c])
	}
	return Buffer{Channels: p.planar, Frames: 0, MaxFrames: p.frames}, true
}

// Queue interleaves the filled planar buffer and writes it out.
func (p *PortAudioSink) Queue(buf Buffer) {
	for c := 0; c < p.channels; c++ {
		for i := 0; i < buf.Frames; i++ {
			p.flat[i*p.channels+c] = buf.Channels[c][i]
		}
	}
	if err := p.stream.Write(); err != nil {
		log.Warn("playback write failed", "err", err)
	}
}

// Close stops and releases the playback stream.
func (p *PortAudioSink) Close() error {
	p.stream.Stop()
	return p.stream.Close()
}

func resolveInputDevice(idx int) (*portaudio.DeviceInfo, error) {
	if idx < 0 {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if idx >= len(devices) {
		return nil, fcerr.Newf(fcerr.NotFound, "stream.resolveInputDevice", "device index %d out of range", idx)
	}
	return devices[idx], nil
}

func resolveOutputDevice(idx int) (*portaudio.DeviceInfo, error) {
	if idx < 0 {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if idx >= len(devices) {
		return nil, fcerr.Newf(fcerr.NotFound, "stream.resolveOutputDevice", "device index %d out of range", idx)
	}
	return devices[idx], nil
}
