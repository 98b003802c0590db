package netlist

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
)

// node is a union-find key for geometric extraction: either a pin or a
// point on the sheet.
type node struct {
	pin   circuit.Endpoint
	point circuit.Point
	isPin bool
}

func pinNode(ep circuit.Endpoint) node { return node{pin: ep, isPin: true} }
func pointNode(p circuit.Point) node   { return node{point: p.Round()} }

// Extract rebuilds the circuit's nets from its drawing: pins, wires,
// junctions and labels that share a point are joined, wire interiors join
// anything lying on them, and labels or power symbols name the result.
// Name clashes do not fail; the lexically smaller name is kept and a
// warning is returned.
func Extract(ckt *circuit.Circuit) ([]*circuit.Net, []string) {
	sets := joinDrawing(ckt)

	for _, l := range ckt.Labels {
		_ = sets.SetName(pointNode(l.At), l.Text)
	}
	for _, c := range ckt.Components() {
		if c.Power && len(c.Pins) > 0 && c.Value != "" {
			_ = sets.SetName(pinNode(circuit.Endpoint{Ref: c.Ref, Pin: c.Pins[0].Number}), c.Value)
		}
	}

	var nets []*circuit.Net
	used := make(map[string]bool)
	for _, group := range sets.Groups() {
		var eps []circuit.Endpoint
		for _, n := range group {
			if n.isPin {
				eps = append(eps, n.pin)
			}
		}
		name := sets.Name(group[0])
		if len(eps) == 0 || (len(eps) < 2 && name == "") {
			continue
		}
		sort.Slice(eps, func(i, j int) bool { return eps[i].Less(eps[j]) })
		nets = append(nets, &circuit.Net{Name: name, Endpoints: eps, Anonymous: name == ""})
		if name != "" {
			used[name] = true
		}
	}
	NameAnonymous(nets, used)

	var warnings []string
	for _, c := range sets.Conflicts {
		warnings = append(warnings, fmt.Sprintf("net is named both %s and %s", c[0], c[1]))
	}
	return nets, warnings
}

// joinDrawing unions pins, wire ends, junctions and labels that share a
// point, and everything lying on a wire's interior with that wire.
func joinDrawing(ckt *circuit.Circuit) *Sets[node] {
	sets := NewSets[node]()
	sets.Lenient = true

	var interesting []circuit.Point

	for _, c := range ckt.Components() {
		for _, p := range c.Pins {
			ep := circuit.Endpoint{Ref: c.Ref, Pin: p.Number}
			pt := c.PinPoint(p)
			sets.Add(pinNode(ep))
			_ = sets.Union(pinNode(ep), pointNode(pt))
			interesting = append(interesting, pt)
		}
	}

	for _, w := range ckt.Wires {
		_ = sets.Union(pointNode(w.Start), pointNode(w.End))
		interesting = append(interesting, w.Start, w.End)
	}
	for _, j := range ckt.Junctions {
		sets.Add(pointNode(j.At))
		interesting = append(interesting, j.At)
	}
	for _, l := range ckt.Labels {
		sets.Add(pointNode(l.At))
		interesting = append(interesting, l.At)
	}

	for _, w := range ckt.Wires {
		for _, pt := range interesting {
			if onSegment(pt, w.Start, w.End) {
				_ = sets.Union(pointNode(pt), pointNode(w.Start))
			}
		}
	}
	return sets
}

// onSegment reports whether p lies on the segment a-b, endpoints excluded.
func onSegment(p, a, b circuit.Point) bool {
	p, a, b = p.Round(), a.Round(), b.Round()
	if p == a || p == b {
		return false
	}
	const eps = 1e-6
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross > eps || cross < -eps {
		return false
	}
	return p.X >= min(a.X, b.X)-eps && p.X <= max(a.X, b.X)+eps &&
		p.Y >= min(a.Y, b.Y)-eps && p.Y <= max(a.Y, b.Y)+eps
}
