package graph

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/registry"
	"github.com/kosmolabs/filterchain/pkg/rtcheck"
	"github.com/kosmolabs/filterchain/pkg/spajson"
)

// Build parses a description tree (as returned by spajson.Parse) into a
// Graph of nodes and links (spec.md §4.2). It does not plan: external
// binding and topological ordering are Planner's job, since they need
// the surrounding stream's channel counts.
func Build(reg *registry.Registry, desc interface{}) (*Graph, error) {
	rtcheck.AssertConfigThread("graph.Build")

	top, ok := desc.(map[string]interface{})
	if !ok {
		return nil, fcerr.New(fcerr.Invalid, "graph.Build", "description root must be an object")
	}

	g := &Graph{}

	rawNodes, _ := top["nodes"].([]interface{})
	for i, rn := range rawNodes {
		entry, ok := rn.(map[string]interface{})
		if !ok {
			return nil, fcerr.Newf(fcerr.Invalid, "graph.Build", "nodes[%d] must be an object", i)
		}
		node, err := buildNode(reg, entry)
		if err != nil {
			return nil, err
		}
		if g.FindNode(node.Name) != nil {
			return nil, fcerr.Newf(fcerr.Invalid, "graph.Build", "duplicate node name %q", node.Name)
		}
		g.Nodes = append(g.Nodes, node)
	}

	if len(g.Nodes) == 0 {
		return nil, fcerr.New(fcerr.Invalid, "graph.Build", "description declares no nodes")
	}

	rawLinks, _ := top["links"].([]interface{})
	for i, rl := range rawLinks {
		entry, ok := rl.(map[string]interface{})
		if !ok {
			return nil, fcerr.Newf(fcerr.Invalid, "graph.Build", "links[%d] must be an object", i)
		}
		outRef, _ := entry["output"].(string)
		inRef, _ := entry["input"].(string)
		if err := addLink(g, outRef, inRef); err != nil {
			return nil, err
		}
	}

	g.InputRefs = stringList(top["inputs"])
	g.OutputRefs = stringList(top["outputs"])

	return g, nil
}

// stringList converts a parsed spajson array into a []string, accepting
// both the quoted literal "null" and an unquoted bare null (which
// spajson.Parse decodes as Go nil) as the same sentinel, since the
// original grammar treats that array position as a generic string
// regardless of how the token was spelled.
func stringList(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		if e == nil {
			out[i] = "null"
			continue
		}
		s, _ := e.(string)
		out[i] = s
	}
	return out
}

func buildNode(reg *registry.Registry, entry map[string]interface{}) (*Node, error) {
	family, _ := entry["type"].(string)
	if family == "" {
		return nil, fcerr.New(fcerr.Invalid, "graph.buildNode", "node missing \"type\"")
	}
	name, _ := entry["name"].(string)
	if name == "" {
		return nil, fcerr.New(fcerr.Invalid, "graph.buildNode", "node missing \"name\"")
	}
	path, _ := entry["plugin"].(string)
	label, _ := entry["label"].(string)

	desc, err := reg.Descriptor(family, path, label)
	if err != nil {
		return nil, err
	}

	node := &Node{Name: name, Descriptor: desc}
	allocatePorts(node, desc)

	if raw, ok := entry["config"]; ok {
		switch v := raw.(type) {
		case spajson.RawConfig:
			node.Config = string(v)
		case string:
			node.Config = v
		}
	}

	if ctrl, ok := entry["control"].(map[string]interface{}); ok {
		if err := applyControl(node, ctrl); err != nil {
			return nil, err
		}
	}

	log.Debug("built node", "name", name, "family", family, "label", label)
	return node, nil
}

func allocatePorts(node *Node, desc *descriptor.Descriptor) {
	for i, p := range desc.AudioIn {
		node.AudioIn = append(node.AudioIn, &Port{
			Node: node, PortIndex: p, DenseIdx: i,
			Kind: descriptor.Audio, Direction: descriptor.Input, External: -1,
		})
	}
	for i, p := range desc.AudioOut {
		node.AudioOut = append(node.AudioOut, &Port{
			Node: node, PortIndex: p, DenseIdx: i,
			Kind: descriptor.Audio, Direction: descriptor.Output, External: -1,
		})
	}
	for i, p := range desc.ControlIn {
		node.ControlIn = append(node.ControlIn, &Port{
			Node: node, PortIndex: p, DenseIdx: i,
			Kind: descriptor.Control, Direction: descriptor.Input, External: -1,
			ControlData: control.NewControlValue(desc.DefaultControl[p]),
		})
	}
	for i, p := range desc.ControlOut {
		node.ControlOut = append(node.ControlOut, &Port{
			Node: node, PortIndex: p, DenseIdx: i,
			Kind: descriptor.Control, Direction: descriptor.Output, External: -1,
			ControlData: control.NewControlValue(desc.DefaultControl[p]),
		})
	}
}

// applyControl sets initial control-port values from a node's "control"
// sub-object, matching by bare port name or dense numeric index (spec.md
// §4.2).
func applyControl(node *Node, ctrl map[string]interface{}) error {
	for key, v := range ctrl {
		port := findControlPort(node, key)
		if port == nil {
			return fcerr.Newf(fcerr.NotFound, "graph.applyControl", "node %q has no control port %q", node.Name, key)
		}
		port.ControlData.Store(coerceFloat(v))
	}
	return nil
}

func coerceFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return 0
}

func findControlPort(node *Node, name string) *Port {
	if idx, err := strconv.Atoi(name); err == nil {
		if idx >= 0 && idx < len(node.ControlIn) {
			return node.ControlIn[idx]
		}
		return nil
	}
	for _, p := range node.ControlIn {
		if node.Descriptor.Ports[p.PortIndex].Name == name {
			return p
		}
	}
	return nil
}

// findPort resolves a "<node>:<port>" or bare "<port>" reference against
// defaultNode when no node name is given, mirroring the original
// module's find_port: the port subset searched is selected by kind+dir,
// matched first by dense numeric index, then by descriptor port name.
func findPort(g *Graph, defaultNode *Node, ref string, kind descriptor.Kind, dir descriptor.Direction) (*Port, error) {
	node := defaultNode
	portName := ref
	if idx := strings.IndexByte(ref, ':'); idx >= 0 {
		nodeName := ref[:idx]
		portName = ref[idx+1:]
		node = g.FindNode(nodeName)
		if node == nil {
			return nil, fcerr.Newf(fcerr.NotFound, "graph.findPort", "unknown node %q", nodeName)
		}
	}
	if node == nil {
		return nil, fcerr.Newf(fcerr.NotFound, "graph.findPort", "no default node for port reference %q", ref)
	}

	set := portSet(node, kind, dir)
	if n, err := strconv.Atoi(portName); err == nil {
		if n >= 0 && n < len(set) {
			return set[n], nil
		}
		return nil, fcerr.Newf(fcerr.NotFound, "graph.findPort", "port index %d out of range on node %q", n, node.Name)
	}
	for _, p := range set {
		if node.Descriptor.Ports[p.PortIndex].Name == portName {
			return p, nil
		}
	}
	return nil, fcerr.Newf(fcerr.NotFound, "graph.findPort", "unknown port %q on node %q", portName, node.Name)
}

// addLink resolves and records one link (spec.md §4.2): the output
// reference defaults to the first node in the graph, the input reference
// to the last, matching the original source's find_port(def_node, ...)
// calls for link parsing.
func addLink(g *Graph, outRef, inRef string) error {
	first := g.Nodes[0]
	last := g.Nodes[len(g.Nodes)-1]

	outPort, err := findPort(g, first, outRef, descriptor.Audio, descriptor.Output)
	if err != nil {
		return err
	}
	inPort, err := findPort(g, last, inRef, descriptor.Audio, descriptor.Input)
	if err != nil {
		return err
	}
	if len(inPort.Links) > 0 {
		return fcerr.Newf(fcerr.Busy, "graph.addLink", "input port %q already linked, use a mixer", inRef)
	}

	link := &Link{Output: outPort, Input: inPort}
	outPort.Links = append(outPort.Links, link)
	inPort.Links = append(inPort.Links, link)
	inPort.Node.NDeps++
	g.Links = append(g.Links, link)
	return nil
}
