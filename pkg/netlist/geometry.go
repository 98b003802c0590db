package netlist

import (
	"math"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
)

// pinPoints returns every pin connection point on the sheet.
func pinPoints(ckt *circuit.Circuit) map[circuit.Point][]circuit.Endpoint {
	points := make(map[circuit.Point][]circuit.Endpoint)
	for _, c := range ckt.Components() {
		for _, p := range c.Pins {
			pt := c.PinPoint(p)
			points[pt] = append(points[pt], circuit.Endpoint{Ref: c.Ref, Pin: p.Number})
		}
	}
	return points
}

// pinDirection returns the sheet angle a pin points away from its body.
func pinDirection(c *circuit.Component, p circuit.Pin) float64 {
	// Library angles point toward the body in a Y-up frame.
	return math.Mod(p.Angle+180+float64(c.Position.Rotation), 360)
}

func horizontal(angle float64) bool {
	a := math.Mod(angle+360, 180)
	return a < 45 || a > 135
}

const (
	// routeStep is the offset between detour candidates.
	routeStep = 2.54
	// routeDetours is how many steps a detour may move away from the pins.
	routeDetours = 12
)

// RouteConnection draws Manhattan wires between the connection points of
// two pins. The L-shaped routes come first, the one whose first leg leaves
// the start pin along its own direction ahead; then Z-shaped routes through
// the middle and U-shaped detours stepping away from the pins. A route may
// not run through or end on anything drawn for another net. When no route
// is clear both pins get a label with the net name instead, and false is
// returned.
func RouteConnection(ckt *circuit.Circuit, a, b circuit.Endpoint) bool {
	ca, okA := ckt.Component(a.Ref)
	cb, okB := ckt.Component(b.Ref)
	if !okA || !okB {
		return false
	}
	pa, _ := ca.Pin(a.Pin)
	pb, _ := cb.Pin(b.Pin)
	start, end := ca.PinPoint(pa), cb.PinPoint(pb)
	if start == end {
		return true
	}

	obs := foreignDrawing(ckt, a, b)
	for _, path := range routes(start, end, horizontal(pinDirection(ca, pa))) {
		if obs.clear(path) {
			for i := 0; i+1 < len(path); i++ {
				addWire(ckt, path[i], path[i+1])
			}
			return true
		}
	}

	if n, ok := ckt.NetOf(a); ok {
		addLabel(ckt, n.Name, start)
		addLabel(ckt, n.Name, end)
	}
	return false
}

// obstacles is the drawing of every net other than the one being routed.
type obstacles struct {
	points map[circuit.Point]bool
	wires  [][2]circuit.Point
}

// foreignDrawing collects the pins, wires, junctions and labels that do not
// belong to the net of a and b. Drawing joined to no pin counts as foreign.
func foreignDrawing(ckt *circuit.Circuit, a, b circuit.Endpoint) *obstacles {
	key := func(ep circuit.Endpoint) string {
		if n, ok := ckt.NetOf(ep); ok {
			return "net " + n.Name
		}
		return "pin " + ep.String()
	}
	own := map[string]bool{key(a): true, key(b): true}

	sets := joinDrawing(ckt)
	owner := make(map[node]string)
	for _, c := range ckt.Components() {
		for _, p := range c.Pins {
			ep := circuit.Endpoint{Ref: c.Ref, Pin: p.Number}
			root := sets.Find(pinNode(ep))
			if _, ok := owner[root]; !ok {
				owner[root] = key(ep)
			}
		}
	}
	foreign := func(pt circuit.Point) bool {
		k, ok := owner[sets.Find(pointNode(pt))]
		return !ok || !own[k]
	}

	obs := &obstacles{points: make(map[circuit.Point]bool)}
	mark := func(pt circuit.Point) {
		if foreign(pt) {
			obs.points[pt.Round()] = true
		}
	}
	for pt := range pinPoints(ckt) {
		mark(pt)
	}
	for _, w := range ckt.Wires {
		if foreign(w.Start) {
			obs.wires = append(obs.wires, [2]circuit.Point{w.Start, w.End})
			obs.points[w.Start.Round()] = true
			obs.points[w.End.Round()] = true
		}
	}
	for _, j := range ckt.Junctions {
		mark(j.At)
	}
	for _, l := range ckt.Labels {
		mark(l.At)
	}
	return obs
}

// clear reports whether path can be drawn without joining another net:
// no foreign point on a leg, no corner on a foreign point or wire.
func (o *obstacles) clear(path []circuit.Point) bool {
	for i := 0; i+1 < len(path); i++ {
		for pt := range o.points {
			if onSegment(pt, path[i], path[i+1]) {
				return false
			}
		}
	}
	for _, v := range path[1 : len(path)-1] {
		if o.points[v.Round()] {
			return false
		}
		for _, w := range o.wires {
			if onSegment(v, w[0], w[1]) {
				return false
			}
		}
	}
	return true
}

// routes lists candidate paths from start to end in order of preference.
func routes(start, end circuit.Point, horizontalFirst bool) [][]circuit.Point {
	var out [][]circuit.Point
	add := func(pts ...circuit.Point) {
		if path := simplify(pts); path != nil {
			out = append(out, path)
		}
	}

	corner := func(hFirst bool) circuit.Point {
		if hFirst {
			return circuit.Point{X: end.X, Y: start.Y}
		}
		return circuit.Point{X: start.X, Y: end.Y}
	}
	add(start, corner(horizontalFirst), end)
	add(start, corner(!horizontalFirst), end)

	viaX := func(x float64) {
		add(start, circuit.Point{X: x, Y: start.Y}, circuit.Point{X: x, Y: end.Y}, end)
	}
	viaY := func(y float64) {
		add(start, circuit.Point{X: start.X, Y: y}, circuit.Point{X: end.X, Y: y}, end)
	}
	if horizontalFirst {
		viaX((start.X + end.X) / 2)
		viaY((start.Y + end.Y) / 2)
	} else {
		viaY((start.Y + end.Y) / 2)
		viaX((start.X + end.X) / 2)
	}

	for k := 1; k <= routeDetours; k++ {
		d := float64(k) * routeStep
		viaY(min(start.Y, end.Y) - d)
		viaY(max(start.Y, end.Y) + d)
		viaX(min(start.X, end.X) - d)
		viaX(max(start.X, end.X) + d)
	}
	return out
}

// simplify rounds the points of a path, drops repeated points and merges
// straight runs. Paths that double back on themselves are rejected.
func simplify(pts []circuit.Point) []circuit.Point {
	var path []circuit.Point
	for _, p := range pts {
		p = p.Round()
		if len(path) > 0 && path[len(path)-1] == p {
			continue
		}
		if n := len(path); n >= 2 {
			a, b := path[n-2], path[n-1]
			if (a.X == b.X && b.X == p.X) || (a.Y == b.Y && b.Y == p.Y) {
				if (b.X-a.X)*(p.X-b.X) < 0 || (b.Y-a.Y)*(p.Y-b.Y) < 0 {
					return nil
				}
				path[n-1] = p
				continue
			}
		}
		path = append(path, p)
	}
	if len(path) < 2 {
		return nil
	}
	return path
}

// addWire appends a wire unless the same segment already exists.
func addWire(ckt *circuit.Circuit, start, end circuit.Point) {
	for _, w := range ckt.Wires {
		if (w.Start == start && w.End == end) || (w.Start == end && w.End == start) {
			return
		}
	}
	ckt.Wires = append(ckt.Wires, circuit.Wire{Start: start, End: end, UUID: circuit.WireUUID(start, end)})
}

// addLabel places a label unless one with the same text is already at p.
func addLabel(ckt *circuit.Circuit, text string, p circuit.Point) {
	for _, l := range ckt.Labels {
		if l.Text == text && l.At.Round() == p.Round() {
			return
		}
	}
	ckt.Labels = append(ckt.Labels, circuit.Label{Text: text, At: p, UUID: circuit.LabelUUID(text, p)})
}

// AddJunctions places a junction wherever two or more wire endpoints meet
// at a point that is not a component pin. Existing junctions are kept and
// never duplicated.
func AddJunctions(ckt *circuit.Circuit) {
	pins := pinPoints(ckt)
	existing := make(map[circuit.Point]bool, len(ckt.Junctions))
	for _, j := range ckt.Junctions {
		existing[j.At.Round()] = true
	}

	ends := make(map[circuit.Point]int)
	for _, w := range ckt.Wires {
		ends[w.Start.Round()]++
		ends[w.End.Round()]++
	}

	var points []circuit.Point
	for pt, n := range ends {
		if n < 2 || existing[pt] {
			continue
		}
		if _, isPin := pins[pt]; isPin {
			continue
		}
		points = append(points, pt)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})

	for _, pt := range points {
		ckt.Junctions = append(ckt.Junctions, circuit.Junction{At: pt, UUID: circuit.JunctionUUID(pt)})
	}
}

// AddLabels places a label on the first pin of every named net that is not
// named by a power symbol and has no label yet.
func AddLabels(ckt *circuit.Circuit) {
	labelled := make(map[string]bool, len(ckt.Labels))
	for _, l := range ckt.Labels {
		labelled[l.Text] = true
	}

	for _, n := range ckt.Nets {
		if n.Anonymous || labelled[n.Name] || len(n.Endpoints) == 0 || poweredBy(ckt, n) {
			continue
		}
		ep := n.Endpoints[0]
		c, ok := ckt.Component(ep.Ref)
		if !ok {
			continue
		}
		p, ok := c.Pin(ep.Pin)
		if !ok {
			continue
		}
		addLabel(ckt, n.Name, c.PinPoint(p))
		labelled[n.Name] = true
	}
}

func poweredBy(ckt *circuit.Circuit, n *circuit.Net) bool {
	for _, ep := range n.Endpoints {
		if c, ok := ckt.Component(ep.Ref); ok && c.Power && c.Value == n.Name {
			return true
		}
	}
	return false
}
