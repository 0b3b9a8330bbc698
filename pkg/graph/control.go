package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/rtcheck"
)

// ParamInfo describes one published control port (spec.md §4.5).
type ParamInfo struct {
	Name    string
	Type    string
	Default float64
	Min     float64
	Max     float64
}

// Plane is the config-thread control plane bound to one planned Graph: it
// publishes parameter metadata/snapshots and applies updates, all as a
// single writer of Port.ControlData (spec.md §4.5, §5).
type Plane struct {
	g        *Graph
	instance string
	pub      control.Publisher
}

// NewPlane binds a control plane to g. instance names this run for
// publication subjects ("filterchain.<instance>.params"); pub may be nil
// to disable publication entirely.
func NewPlane(g *Graph, instance string, pub control.Publisher) *Plane {
	return &Plane{g: g, instance: instance, pub: pub}
}

func paramName(p *Port) string {
	return fmt.Sprintf("%s:%s", p.Node.Name, p.Node.Descriptor.Ports[p.PortIndex].Name)
}

// Info enumerates parameter metadata for every control-in port, in
// graph.ControlPort order.
func (pl *Plane) Info() []ParamInfo {
	out := make([]ParamInfo, 0, len(pl.g.ControlPort))
	for _, p := range pl.g.ControlPort {
		descPort := p.Node.Descriptor.Ports[p.PortIndex]
		out = append(out, ParamInfo{
			Name:    paramName(p),
			Type:    control.TypeName(descPort.Hint),
			Default: descPort.Default,
			Min:     descPort.Min,
			Max:     descPort.Max,
		})
	}
	return out
}

// Snapshot returns the current value of every control-in port, keyed by
// canonical "<node>:<port>" name.
func (pl *Plane) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(pl.g.ControlPort))
	for _, p := range pl.g.ControlPort {
		out[paramName(p)] = p.ControlData.Load()
	}
	return out
}

// Update applies a set of (name, value) pairs, resolving each name
// against the qualified "<node>:<port>" form or the bare "<port>" form
// (defaulting to the first node that declares a matching control port,
// per SPEC_FULL.md §4 decision 2). Unknown names are silently ignored.
// If any change occurred, the snapshot is re-published.
func (pl *Plane) Update(values map[string]float64) (int, error) {
	rtcheck.AssertConfigThread("graph.Plane.Update")

	changed := 0
	for name, v := range values {
		p := pl.resolve(name)
		if p == nil {
			log.Warn("ignoring unknown control name", "name", name)
			continue
		}
		p.ControlData.Store(v)
		changed++
	}
	if changed > 0 {
		pl.publish()
	}
	return changed, nil
}

func (pl *Plane) resolve(name string) *Port {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		node := pl.g.FindNode(name[:idx])
		if node == nil {
			return nil
		}
		portName := name[idx+1:]
		for _, p := range node.ControlIn {
			if node.Descriptor.Ports[p.PortIndex].Name == portName {
				return p
			}
		}
		return nil
	}
	for _, node := range pl.g.Nodes {
		for _, p := range node.ControlIn {
			if node.Descriptor.Ports[p.PortIndex].Name == name {
				return p
			}
		}
	}
	return nil
}

func (pl *Plane) publish() {
	if pl.pub == nil {
		return
	}
	data, err := json.Marshal(pl.Snapshot())
	if err != nil {
		log.Warn("failed to marshal control snapshot", "err", err)
		return
	}
	subject := fmt.Sprintf("filterchain.%s.params", pl.instance)
	if err := pl.pub.Publish(subject, data); err != nil {
		log.Warn("failed to publish control snapshot", "subject", subject, "err", err)
	}
}

// Reset discharges plugin-internal state (spec.md §4.5): deactivate then
// activate every instance, in graph.Hndl order, without touching control
// values.
func (pl *Plane) Reset() {
	rtcheck.AssertConfigThread("graph.Plane.Reset")
	for _, ref := range pl.g.Hndl {
		h := ref.Node.Handles[ref.HandleIndex]
		h.Deactivate()
		h.Activate()
	}
}
