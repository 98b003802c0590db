package ops

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
)

// DecodeInput names a document by text.
type DecodeInput struct {
	Schematic string `json:"schematic"`
}

// Summary describes a decoded document.
type Summary struct {
	Title      string          `json:"title,omitempty"`
	Version    int             `json:"version"`
	Generator  string          `json:"generator,omitempty"`
	Paper      string          `json:"paper,omitempty"`
	UUID       string          `json:"uuid,omitempty"`
	Components []ComponentInfo `json:"components"`
	Nets       []NetInfo       `json:"nets"`
	Counts     Counts          `json:"counts"`
	// Opaque lists the heads of top-level nodes kept verbatim.
	Opaque []string `json:"opaque,omitempty"`
}

// ComponentInfo is the serialized form of a component.
type ComponentInfo struct {
	Ref       string  `json:"ref"`
	LibID     string  `json:"lib_id"`
	Value     string  `json:"value,omitempty"`
	Type      string  `json:"type,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  int     `json:"rotation,omitempty"`
	Power     bool    `json:"power,omitempty"`
	Pins      int     `json:"pins"`
	Footprint string  `json:"footprint,omitempty"`
}

// Counts tallies the items of a document.
type Counts struct {
	Components int `json:"components"`
	Power      int `json:"power"`
	Nets       int `json:"nets"`
	Wires      int `json:"wires"`
	Junctions  int `json:"junctions"`
	Labels     int `json:"labels"`
	LibSymbols int `json:"lib_symbols"`
	Opaque     int `json:"opaque"`
}

func componentInfo(c *circuit.Component) ComponentInfo {
	footprint, _ := c.Property("Footprint")
	return ComponentInfo{
		Ref:       c.Ref,
		LibID:     c.LibID,
		Value:     c.Value,
		Type:      c.Type,
		X:         c.Position.X,
		Y:         c.Position.Y,
		Rotation:  c.Position.Rotation,
		Power:     c.Power,
		Pins:      len(c.Pins),
		Footprint: footprint,
	}
}

func summarize(c *circuit.Circuit) *Summary {
	s := &Summary{
		Title:     c.Meta.Title,
		Version:   c.Meta.Version,
		Generator: c.Meta.Generator,
		Paper:     c.Meta.Paper,
		UUID:      c.Meta.UUID,
		Nets:      netInfos(c.Nets),
	}
	for _, comp := range c.Components() {
		s.Components = append(s.Components, componentInfo(comp))
		if comp.Power {
			s.Counts.Power++
		}
	}
	for _, node := range c.Opaque {
		s.Opaque = append(s.Opaque, nodeHead(node))
	}
	s.Counts.Components = len(s.Components)
	s.Counts.Nets = len(c.Nets)
	s.Counts.Wires = len(c.Wires)
	s.Counts.Junctions = len(c.Junctions)
	s.Counts.Labels = len(c.Labels)
	s.Counts.LibSymbols = len(c.LibSymbols)
	s.Counts.Opaque = len(c.Opaque)
	return s
}

func nodeHead(node kicadsexp.Sexp) string {
	if l, ok := node.(*kicadsexp.List); ok {
		return l.Name()
	}
	return node.String()
}

// Decode parses a document and summarizes it.
func (o *Ops) Decode(ctx context.Context, in DecodeInput) *Result {
	if err := cancelled(ctx); err != nil {
		return failure(nil, nil, err)
	}
	c, err := o.decodeShared(in.Schematic)
	if err != nil {
		return failure(nil, nil, err)
	}
	return success(summarize(c), c.Warnings)
}

// NetlistOutput is the connectivity of a document.
type NetlistOutput struct {
	Nets        []NetInfo `json:"nets"`
	Unconnected []string  `json:"unconnected"`
}

// ExtractNetlist rebuilds the nets of a document from its wiring and lists
// the pins left unconnected.
func (o *Ops) ExtractNetlist(ctx context.Context, in DecodeInput) *Result {
	if err := cancelled(ctx); err != nil {
		return failure(nil, nil, err)
	}
	c, err := o.decodeShared(in.Schematic)
	if err != nil {
		return failure(nil, nil, err)
	}

	nets, warnings := netlist.Extract(c)
	out := &NetlistOutput{Nets: netInfos(nets), Unconnected: []string{}}
	for _, ep := range unconnected(c, nets) {
		out.Unconnected = append(out.Unconnected, ep.String())
		warnings = append(warnings, fmt.Sprintf("pin %s is not connected", ep))
	}
	return success(out, warnings)
}

// unconnected lists pins that share a net with no other pin.
func unconnected(c *circuit.Circuit, nets []*circuit.Net) []circuit.Endpoint {
	connected := make(map[circuit.Endpoint]bool)
	for _, n := range nets {
		if len(n.Endpoints) < 2 {
			continue
		}
		for _, ep := range n.Endpoints {
			connected[ep] = true
		}
	}
	var out []circuit.Endpoint
	for _, comp := range c.Components() {
		for _, p := range comp.Pins {
			ep := circuit.Endpoint{Ref: comp.Ref, Pin: p.Number}
			if !connected[ep] && p.Type != circuit.PinUnconnected {
				out = append(out, ep)
			}
		}
	}
	return out
}
