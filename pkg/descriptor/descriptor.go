// Package descriptor holds the plugin-family-agnostic metadata and
// per-instance handle contract the engine drives every plugin through:
// builtin, LADSPA, and LV2 descriptors all produce the same shape.
package descriptor

import (
	"strconv"

	"github.com/kosmolabs/filterchain/pkg/process"
)

// Direction is a port's data-flow direction relative to the plugin.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "in"
	}
	return "out"
}

// Kind distinguishes audio-rate ports from scalar control ports.
type Kind int

const (
	Audio Kind = iota
	Control
)

func (k Kind) String() string {
	if k == Audio {
		return "audio"
	}
	return "control"
}

// Hint carries bit flags describing how a control port's numeric value
// should be interpreted and published.
type Hint uint32

const (
	Boolean Hint = 1 << iota
	Integer
	SampleRate
)

func (h Hint) Has(bit Hint) bool { return h&bit != 0 }

// Capability is a bit flag describing an optional behavior the plugin
// family/descriptor supports.
type Capability uint32

const (
	// SupportsNullData means ConnectPort may be called with a nil pointer
	// for an audio port the caller does not intend to drive; the plugin
	// is responsible for treating it as silence (input) or discard
	// (output) without crashing.
	SupportsNullData Capability = 1 << iota
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Port is one fixed, ordered entry in a descriptor's port list.
type Port struct {
	Name      string
	Direction Direction
	Kind      Kind
	Hint      Hint
	Default   float64
	Min       float64
	Max       float64
}

// Handle is the opaque, per-instance stateful object a descriptor's
// Instantiate returns. Plugin families implement it however they need to
// (a Go struct for builtins, a cgo pointer wrapper for LADSPA/LV2).
type Handle interface {
	// ConnectPort rebinds the memory region backing port index idx. For
	// audio ports, data is a []float32 (or nil, if the descriptor
	// advertises SupportsNullData). For control ports, data is a
	// *control.ControlValue.
	ConnectPort(idx int, data interface{})
	// Activate prepares the handle to run after instantiation or a
	// config-thread reset.
	Activate()
	// Deactivate discharges internal state (filter memory, reverb
	// tails); a subsequent Activate must produce a clean instance.
	Deactivate()
	// Run processes exactly nFrames samples using the currently
	// connected ports. Must not allocate, block, or perform I/O.
	Run(nFrames int) process.Status
	// Cleanup releases any resources owned by the handle. Called once,
	// after the handle has been removed from every execution plan.
	Cleanup()
}

// Binding is the capability set a plugin family exposes for one label.
// Descriptor wraps a Binding with the engine's own bookkeeping (dense
// port-kind indices, cached defaults).
type Binding interface {
	// Ports returns the fixed, ordered port list this label declares.
	Ports() []Port
	// Capabilities returns the label's capability flags.
	Capabilities() Capability
	// Instantiate creates one new handle at the given sample rate and
	// instance index (0..n_hndl), configured by the verbatim config
	// substring captured from the graph description (may be empty).
	Instantiate(rate float64, instanceIndex int, config string) (Handle, error)
}

// Descriptor is the engine's cached view of one (family, path, label)
// plugin: a Binding plus dense index arrays so the builder/planner never
// need to re-scan the port list by kind/direction.
type Descriptor struct {
	Family string
	Path   string
	Label  string

	Binding Binding
	Ports   []Port

	AudioIn    []int // port indices, Kind==Audio, Direction==Input
	AudioOut   []int // port indices, Kind==Audio, Direction==Output
	ControlIn  []int // port indices, Kind==Control, Direction==Input
	ControlOut []int // port indices, Kind==Control, Direction==Output

	// DefaultControl holds the default numeric value for every control
	// port, indexed by full port index (not dense control index), so
	// instantiation can seed a node's control_data without re-deriving
	// defaults from Ports.
	DefaultControl map[int]float64
}

// New builds a Descriptor from a Binding's port list, categorizing every
// port into the four dense index arrays spec.md §4.1 requires.
func New(family, path, label string, binding Binding) *Descriptor {
	ports := binding.Ports()
	d := &Descriptor{
		Family:         family,
		Path:           path,
		Label:          label,
		Binding:        binding,
		Ports:          ports,
		DefaultControl: make(map[int]float64),
	}
	for i, p := range ports {
		switch {
		case p.Kind == Audio && p.Direction == Input:
			d.AudioIn = append(d.AudioIn, i)
		case p.Kind == Audio && p.Direction == Output:
			d.AudioOut = append(d.AudioOut, i)
		case p.Kind == Control && p.Direction == Input:
			d.ControlIn = append(d.ControlIn, i)
			d.DefaultControl[i] = p.Default
		case p.Kind == Control && p.Direction == Output:
			d.ControlOut = append(d.ControlOut, i)
			d.DefaultControl[i] = p.Default
		}
	}
	return d
}

// HasAudioPorts reports whether the descriptor declares at least one
// audio port in either direction, the condition spec.md §4.6 requires
// to accept a descriptor at all.
func (d *Descriptor) HasAudioPorts() bool {
	return len(d.AudioIn) > 0 || len(d.AudioOut) > 0
}

// PortIndexByName resolves a port name or a dense numeric index string
// within a kind+direction subset to a full port index. Returns -1 if not
// found; callers translate that into fcerr.NotFound.
func (d *Descriptor) PortIndexByName(name string, kind Kind, dir Direction) int {
	if n, err := strconv.Atoi(name); err == nil {
		return d.PortIndexByDenseIndex(n, kind, dir)
	}
	dense := 0
	for i, p := range d.Ports {
		if p.Kind != kind || p.Direction != dir {
			continue
		}
		if p.Name == name {
			return i
		}
		dense++
	}
	return -1
}

// PortIndexByDenseIndex resolves a dense position within a kind+direction
// subset (e.g. the second audio-input port) to a full port index.
func (d *Descriptor) PortIndexByDenseIndex(idx int, kind Kind, dir Direction) int {
	dense := 0
	for i, p := range d.Ports {
		if p.Kind != kind || p.Direction != dir {
			continue
		}
		if dense == idx {
			return i
		}
		dense++
	}
	return -1
}
