// Package graph implements the engine's core data model and the three
// config-thread/audio-thread components built on it: a description
// (spec.md §6) is built into nodes/ports/links (Builder), planned into a
// topologically ordered, fully-bound execution plan (Planner), and run
// per audio period (Executor).
package graph

import (
	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
)

// Port is a typed endpoint on a Node: one of audio-in, audio-out,
// control-in, control-out (spec.md §3).
type Port struct {
	Node      *Node
	PortIndex int // dense position within Node.Descriptor.Ports ("p")
	DenseIdx  int // dense position within its own kind+direction subset ("idx")
	Kind      descriptor.Kind
	Direction descriptor.Direction

	// External is the index into Graph.Input/Graph.Output this port is
	// bound to, or -1 if unbound to an external slot.
	External int

	// Links holds every Link incident on this port: for an output port,
	// every link fanning out of it; for an input port, at most one.
	Links []*Link

	// ControlData is non-nil for control ports only: the single-writer
	// atomic cell the control plane writes and the plugin handle reads.
	ControlData *control.ControlValue

	// AudioData holds one scratch buffer per handle (Node.NHndl of
	// them), populated for output audio ports only, lazily allocated at
	// first topological visit (spec.md §9).
	AudioData [][]float32
}

// Link is a directed edge between two audio ports of different nodes:
// output produces, input consumes. Control ports never participate in
// links (spec.md §3).
type Link struct {
	Output *Port
	Input  *Port
}

// Node is one logical vertex of the graph: an instance (x N) of a
// descriptor (spec.md §3).
type Node struct {
	Name       string
	Descriptor *descriptor.Descriptor
	Config     string // verbatim config substring, opaque to the engine

	NHndl   int
	Handles []descriptor.Handle

	AudioIn    []*Port
	AudioOut   []*Port
	ControlIn  []*Port
	ControlOut []*Port

	// NDeps is the node's remaining incoming-link count, decremented
	// during the planner's topological walk (spec.md §4.3 step 4).
	NDeps int
	// Visited marks a node already appended to Graph.Hndl.
	Visited bool
}

// ExternalBinding is one entry of Graph.Input/Graph.Output: a concrete
// (node instance, port) pair bound to one external stream channel, or a
// zero value (Node == nil) for a "null" slot that is silently dropped.
type ExternalBinding struct {
	Node        *Node
	HandleIndex int
	PortIndex   int // full port index within Node.Descriptor.Ports
}

// HandleRef names one (node, instance) pair in topological order.
type HandleRef struct {
	Node        *Node
	HandleIndex int
}

// Graph owns every node and link plus the three planning artifacts
// spec.md §3 names: Input/Output external bindings and the topologically
// ordered Hndl execution list, plus the flattened ControlPort list the
// control plane iterates.
type Graph struct {
	Nodes []*Node
	Links []*Link

	// InputRefs/OutputRefs are the raw "inputs"/"outputs" port-reference
	// lists from the description, or nil if the description omitted
	// them (the planner then derives them from the first/last node).
	InputRefs  []string
	OutputRefs []string

	NHndl int

	Input       []ExternalBinding
	Output      []ExternalBinding
	Hndl        []HandleRef
	ControlPort []*Port
}

// FindNode returns the node named name, or nil.
func (g *Graph) FindNode(name string) *Node {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// portSet returns the dense port slice a (kind, direction) pair selects
// on node, matching the original source's find_port port-array switch.
func portSet(node *Node, kind descriptor.Kind, dir descriptor.Direction) []*Port {
	switch {
	case kind == descriptor.Audio && dir == descriptor.Input:
		return node.AudioIn
	case kind == descriptor.Audio && dir == descriptor.Output:
		return node.AudioOut
	case kind == descriptor.Control && dir == descriptor.Input:
		return node.ControlIn
	default:
		return node.ControlOut
	}
}
