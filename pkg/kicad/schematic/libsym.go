package schematic

import (
	"math"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Minimum drawn body size of generated symbols
const minBody = 2.032

// typeForLibID finds a table entry for a lib id, creating power ports for
// supply names the table does not list.
func (m *Mapper) typeForLibID(id string) (*symlib.Type, bool) {
	if typ, ok := m.Table.ByLibID(id); ok {
		return typ, true
	}
	lib, name, ok := strings.Cut(id, ":")
	if ok && lib == symlib.PowerLibrary {
		return m.Table.Power(name)
	}
	return nil, false
}

// libSymbol generates a library symbol definition for a table entry: a
// rectangle body (a bar for power ports) in unit 0 and the pins in unit 1.
func libSymbol(typ *symlib.Type) *kicadsexp.List {
	node := kicadsexp.Node("symbol", sexp.Str(typ.LibID()))
	if typ.Power {
		node.Append(
			kicadsexp.Node("power"),
			kicadsexp.Node("pin_names", kicadsexp.Node("offset", sexp.Num(0))),
		)
	}
	node.Append(
		sexp.Flag("exclude_from_sim", false),
		sexp.Flag("in_bom", !typ.Power),
		sexp.Flag("on_board", true),
	)

	props := []sexp.Property{
		{Key: "Reference", Value: typ.RefPrefix, Hidden: typ.Power},
		{Key: "Value", Value: typ.Symbol},
		{Key: "Footprint", Value: "", Hidden: true},
		{Key: "Datasheet", Value: "", Hidden: true},
	}
	props[0].Position.Y = typ.Height / 2
	props[1].Position.Y = -typ.Height / 2
	for _, p := range props {
		node.Append(sexp.PropertyNode(p))
	}

	body := kicadsexp.Node("symbol", sexp.Str(typ.Symbol+"_0_1"))
	if typ.Power {
		body.Append(powerGraphic(typ.Symbol))
	} else {
		body.Append(bodyRectangle(typ.Pins))
	}
	node.Append(body)

	pins := kicadsexp.Node("symbol", sexp.Str(typ.Symbol+"_1_1"))
	for _, p := range typ.Pins {
		pins.Append(pinNode(p, typ.Power))
	}
	node.Append(pins)
	return node
}

func pinNode(p symlib.PinDef, power bool) *kicadsexp.List {
	length := symlib.PinLength
	if power {
		length = 0
	}
	node := kicadsexp.Node("pin", sexp.Sym(pinToken(p.Type)), sexp.Sym("line"),
		sexp.At(p.Offset.X, p.Offset.Y, p.Angle),
		kicadsexp.Node("length", sexp.Num(length)),
	)
	if power {
		node.Append(sexp.Sym("hide"))
	}
	name := p.Name
	if name == "" {
		name = "~"
	}
	node.Append(
		kicadsexp.Node("name", sexp.Str(name), sexp.Effects(false)),
		kicadsexp.Node("number", sexp.Str(p.Number), sexp.Effects(false)),
	)
	return node
}

func pinToken(t circuit.PinType) string {
	if t == "" {
		return string(circuit.PinPassive)
	}
	return string(t)
}

// bodyRectangle spans the inner ends of the pins.
func bodyRectangle(pins []symlib.PinDef) *kicadsexp.List {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pins {
		rad := p.Angle * math.Pi / 180
		x := p.Offset.X + symlib.PinLength*math.Cos(rad)
		y := p.Offset.Y + symlib.PinLength*math.Sin(rad)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if len(pins) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	minX, maxX = widen(minX, maxX)
	minY, maxY = widen(minY, maxY)

	return kicadsexp.Node("rectangle",
		kicadsexp.Node("start", sexp.Num(round(minX)), sexp.Num(round(maxY))),
		kicadsexp.Node("end", sexp.Num(round(maxX)), sexp.Num(round(minY))),
		kicadsexp.Node("stroke", kicadsexp.Node("width", sexp.Num(0.254)), kicadsexp.Node("type", sexp.Sym("default"))),
		kicadsexp.Node("fill", kicadsexp.Node("type", sexp.Sym("background"))),
	)
}

func widen(lo, hi float64) (float64, float64) {
	if hi-lo >= minBody {
		return lo, hi
	}
	mid := (lo + hi) / 2
	return mid - minBody/2, mid + minBody/2
}

// powerGraphic draws a bar for supplies and an open triangle for grounds.
func powerGraphic(name string) *kicadsexp.List {
	upper := strings.ToUpper(name)
	pts := kicadsexp.Node("pts", sexp.XY(-0.762, 1.27), sexp.XY(0.762, 1.27))
	if strings.HasPrefix(upper, "GND") || strings.HasPrefix(upper, "VSS") || strings.HasPrefix(upper, "-") {
		pts = kicadsexp.Node("pts", sexp.XY(0, 0), sexp.XY(0, -1.27), sexp.XY(1.27, -1.27),
			sexp.XY(0, -2.54), sexp.XY(-1.27, -1.27), sexp.XY(0, -1.27))
	}
	return kicadsexp.Node("polyline", pts,
		kicadsexp.Node("stroke", kicadsexp.Node("width", sexp.Num(0)), kicadsexp.Node("type", sexp.Sym("default"))),
		kicadsexp.Node("fill", kicadsexp.Node("type", sexp.Sym("none"))),
	)
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
