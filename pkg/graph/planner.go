package graph

import (
	"github.com/charmbracelet/log"

	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/rtcheck"
)

// Plan runs the four-step planning pass of spec.md §4.3 over a built
// Graph: dimensioning, instantiation, external binding, and topological
// ordering with scratch-buffer allocation. It must run exactly once,
// after Build and before any Executor period.
func Plan(g *Graph, rate float64, captureChannels, playbackChannels int) error {
	rtcheck.AssertConfigThread("graph.Plan")

	first := g.Nodes[0]
	last := g.Nodes[len(g.Nodes)-1]

	nInput := len(g.InputRefs)
	if nInput == 0 {
		nInput = len(first.AudioIn)
	}
	nOutput := len(g.OutputRefs)
	if nOutput == 0 {
		nOutput = len(last.AudioOut)
	}
	if nInput == 0 || nOutput == 0 {
		return fcerr.New(fcerr.Invalid, "graph.Plan", "graph declares zero inputs or outputs")
	}

	if captureChannels%nInput != 0 || playbackChannels%nOutput != 0 ||
		captureChannels/nInput != playbackChannels/nOutput {
		return fcerr.Newf(fcerr.Invalid, "graph.Plan",
			"channel mismatch: capture=%d/n_input=%d vs playback=%d/n_output=%d",
			captureChannels, nInput, playbackChannels, nOutput)
	}

	nHndl := captureChannels / nInput
	if nHndl == 0 {
		log.Warn("n_hndl computed as 0, degrading to 1; some ports will be silently silence-fed")
		nHndl = 1
	}
	if nHndl > MaxHndl {
		log.Warn("clamping n_hndl to MaxHndl", "requested", nHndl, "max", MaxHndl)
		nHndl = MaxHndl
	}
	g.NHndl = nHndl

	if err := instantiate(g, rate); err != nil {
		return err
	}
	if err := bindExternal(g, first, last, nInput, nOutput); err != nil {
		return err
	}
	if err := topoOrderAndWire(g); err != nil {
		return err
	}
	return nil
}

// instantiate creates every node's n_hndl handles, pre-binds every audio
// port to the shared silence/discard buffers (or nil, if the descriptor
// supports null data), binds control ports to their shared ControlValue,
// and activates each handle (spec.md §4.3 step 2).
func instantiate(g *Graph, rate float64) error {
	for _, node := range g.Nodes {
		node.NHndl = g.NHndl
		node.Handles = make([]descriptor.Handle, g.NHndl)

		caps := node.Descriptor.Binding.Capabilities()
		for _, p := range node.AudioOut {
			p.AudioData = make([][]float32, g.NHndl)
		}

		for i := 0; i < g.NHndl; i++ {
			h, err := node.Descriptor.Binding.Instantiate(rate, i, node.Config)
			if err != nil {
				return fcerr.Wrap(fcerr.IO, "graph.instantiate", err)
			}
			node.Handles[i] = h

			for _, p := range node.AudioIn {
				if caps.Has(descriptor.SupportsNullData) {
					h.ConnectPort(p.PortIndex, nil)
				} else {
					h.ConnectPort(p.PortIndex, Silence(MaxFrames))
				}
			}
			for _, p := range node.AudioOut {
				if caps.Has(descriptor.SupportsNullData) {
					h.ConnectPort(p.PortIndex, nil)
				} else {
					h.ConnectPort(p.PortIndex, Discard(MaxFrames))
				}
			}
			for _, p := range node.ControlIn {
				h.ConnectPort(p.PortIndex, p.ControlData)
			}
			for _, p := range node.ControlOut {
				h.ConnectPort(p.PortIndex, p.ControlData)
			}
			h.Activate()
		}
	}
	return nil
}

// bindExternal resolves the inputs/outputs reference lists (or the
// first/last node's ports when omitted) into Graph.Input/Graph.Output,
// one entry per (instance, declared slot) pair (spec.md §4.3 step 3).
func bindExternal(g *Graph, first, last *Node, nInput, nOutput int) error {
	inPorts := make([]*Port, nInput)
	inNull := make([]bool, nInput)
	for j := 0; j < nInput; j++ {
		if len(g.InputRefs) == 0 {
			inPorts[j] = first.AudioIn[j]
			continue
		}
		ref := g.InputRefs[j]
		if ref == "null" {
			inNull[j] = true
			continue
		}
		port, err := findPort(g, first, ref, descriptor.Audio, descriptor.Input)
		if err != nil {
			return err
		}
		if port.External != -1 || len(port.Links) > 0 {
			return fcerr.Newf(fcerr.Busy, "graph.bindExternal", "input %q already bound, use a mixer", ref)
		}
		inPorts[j] = port
	}

	outPorts := make([]*Port, nOutput)
	outNull := make([]bool, nOutput)
	for j := 0; j < nOutput; j++ {
		if len(g.OutputRefs) == 0 {
			outPorts[j] = last.AudioOut[j]
			continue
		}
		ref := g.OutputRefs[j]
		if ref == "null" {
			outNull[j] = true
			continue
		}
		port, err := findPort(g, last, ref, descriptor.Audio, descriptor.Output)
		if err != nil {
			return err
		}
		if port.External != -1 {
			return fcerr.Newf(fcerr.Busy, "graph.bindExternal", "output %q already bound", ref)
		}
		outPorts[j] = port
	}

	for j, p := range inPorts {
		if p != nil {
			p.External = j
		}
	}
	for j, p := range outPorts {
		if p != nil {
			p.External = j
		}
	}

	g.Input = make([]ExternalBinding, g.NHndl*nInput)
	for i := 0; i < g.NHndl; i++ {
		for j := 0; j < nInput; j++ {
			if inNull[j] || inPorts[j] == nil {
				log.Info("ignore input port", "slot", j)
				continue
			}
			g.Input[i*nInput+j] = ExternalBinding{Node: inPorts[j].Node, HandleIndex: i, PortIndex: inPorts[j].PortIndex}
		}
	}

	g.Output = make([]ExternalBinding, g.NHndl*nOutput)
	for i := 0; i < g.NHndl; i++ {
		for j := 0; j < nOutput; j++ {
			if outNull[j] || outPorts[j] == nil {
				log.Info("silence output port", "slot", j)
				continue
			}
			g.Output[i*nOutput+j] = ExternalBinding{Node: outPorts[j].Node, HandleIndex: i, PortIndex: outPorts[j].PortIndex}
		}
	}
	return nil
}

// topoOrderAndWire performs spec.md §4.3 step 4: repeatedly pick a ready
// node (NDeps==0, unvisited) in original node-list order, wire its audio
// inputs to the peer output buffers already allocated, lazily allocate
// its own output scratch buffers, and append its handles/control ports
// to the execution plan.
func topoOrderAndWire(g *Graph) error {
	remaining := len(g.Nodes)
	for remaining > 0 {
		progressed := false
		for _, node := range g.Nodes {
			if node.Visited || node.NDeps > 0 {
				continue
			}
			node.Visited = true
			remaining--
			progressed = true

			for i := 0; i < g.NHndl; i++ {
				handle := node.Handles[i]
				for _, p := range node.AudioIn {
					for _, link := range p.Links {
						peer := link.Output
						handle.ConnectPort(p.PortIndex, peer.AudioData[i])
					}
				}
				for _, p := range node.AudioOut {
					if p.AudioData[i] == nil {
						p.AudioData[i] = make([]float32, MaxFrames)
					}
					handle.ConnectPort(p.PortIndex, p.AudioData[i])
				}
				g.Hndl = append(g.Hndl, HandleRef{Node: node, HandleIndex: i})
			}
			for _, p := range node.ControlIn {
				g.ControlPort = append(g.ControlPort, p)
			}

			for _, p := range node.AudioOut {
				for _, link := range p.Links {
					link.Input.Node.NDeps--
				}
			}
		}
		if !progressed {
			return fcerr.New(fcerr.Invalid, "graph.topoOrderAndWire", "graph has a cycle")
		}
	}
	return nil
}
