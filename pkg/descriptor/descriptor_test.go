package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosmolabs/filterchain/pkg/process"
)

type stubBinding struct {
	ports []Port
	caps  Capability
}

func (s stubBinding) Ports() []Port          { return s.ports }
func (s stubBinding) Capabilities() Capability { return s.caps }
func (s stubBinding) Instantiate(rate float64, instanceIndex int, config string) (Handle, error) {
	return nil, nil
}

type stubHandle struct{}

func (stubHandle) ConnectPort(idx int, data interface{}) {}
func (stubHandle) Activate()                              {}
func (stubHandle) Deactivate()                             {}
func (stubHandle) Run(nFrames int) process.Status          { return process.Continue }
func (stubHandle) Cleanup()                                {}

func mixerLikePorts() []Port {
	return []Port{
		{Name: "In 1", Kind: Audio, Direction: Input},
		{Name: "Gain 1", Kind: Control, Direction: Input, Default: 1.0, Min: 0, Max: 10},
		{Name: "Out", Kind: Audio, Direction: Output},
		{Name: "Level", Kind: Control, Direction: Output, Default: 0},
	}
}

func TestNewCategorizesPortsIntoDenseArrays(t *testing.T) {
	b := stubBinding{ports: mixerLikePorts()}
	d := New("builtin", "builtin", "mixer", b)

	assert.Equal(t, []int{0}, d.AudioIn)
	assert.Equal(t, []int{2}, d.AudioOut)
	assert.Equal(t, []int{1}, d.ControlIn)
	assert.Equal(t, []int{3}, d.ControlOut)
	assert.Equal(t, 1.0, d.DefaultControl[1])
	assert.Equal(t, 0.0, d.DefaultControl[3])
	assert.True(t, d.HasAudioPorts())
}

func TestHasAudioPortsFalseForControlOnlyDescriptor(t *testing.T) {
	b := stubBinding{ports: []Port{{Name: "Bypass", Kind: Control, Direction: Input}}}
	d := New("builtin", "builtin", "bypass", b)
	assert.False(t, d.HasAudioPorts())
}

func TestPortIndexByNameAndDenseIndex(t *testing.T) {
	b := stubBinding{ports: mixerLikePorts()}
	d := New("builtin", "builtin", "mixer", b)

	require.Equal(t, 1, d.PortIndexByName("Gain 1", Control, Input))
	require.Equal(t, -1, d.PortIndexByName("Gain 99", Control, Input))
	require.Equal(t, 1, d.PortIndexByDenseIndex(0, Control, Input))
	require.Equal(t, -1, d.PortIndexByDenseIndex(5, Control, Input))
}

func TestHintHas(t *testing.T) {
	h := Boolean | SampleRate
	assert.True(t, h.Has(Boolean))
	assert.True(t, h.Has(SampleRate))
	assert.False(t, h.Has(Integer))
}

func TestDirectionAndKindString(t *testing.T) {
	assert.Equal(t, "in", Input.String())
	assert.Equal(t, "out", Output.String())
	assert.Equal(t, "audio", Audio.String())
	assert.Equal(t, "control", Control.String())
}
