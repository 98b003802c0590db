package sexp

import (
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
)

// Node construction helpers used when encoding documents.

// Num returns a number atom.
func Num(v float64) kicadsexp.Number {
	return kicadsexp.NewNumber(v)
}

// Str returns a quoted string atom.
func Str(s string) kicadsexp.String {
	return kicadsexp.String(s)
}

// Sym returns a symbol atom. It is written quoted when it would not read
// back as a bare symbol.
func Sym(s string) kicadsexp.Symbol {
	return kicadsexp.Symbol(s)
}

// YesNo returns the yes/no symbol for b.
func YesNo(b bool) kicadsexp.Symbol {
	if b {
		return "yes"
	}
	return "no"
}

// Flag builds (key yes|no).
func Flag(key string, b bool) *kicadsexp.List {
	return kicadsexp.Node(key, YesNo(b))
}

// At builds (at X Y angle).
func At(x, y, angle float64) *kicadsexp.List {
	return kicadsexp.Node("at", Num(x), Num(y), Num(angle))
}

// XY builds (xy X Y).
func XY(x, y float64) *kicadsexp.List {
	return kicadsexp.Node("xy", Num(x), Num(y))
}

// UUIDNode builds (uuid "...").
func UUIDNode(id string) *kicadsexp.List {
	return kicadsexp.Node("uuid", Str(id))
}

// Effects builds the default text effects node, optionally hidden.
func Effects(hidden bool) *kicadsexp.List {
	effects := kicadsexp.Node("effects",
		kicadsexp.Node("font", kicadsexp.Node("size", Num(1.27), Num(1.27))),
	)
	if hidden {
		effects.Append(Flag("hide", true))
	}
	return effects
}

// PropertyNode builds (property "key" "value" (at ...) (effects ...)).
func PropertyNode(p Property) *kicadsexp.List {
	return kicadsexp.Node("property",
		Str(p.Key),
		Str(p.Value),
		At(p.Position.X, p.Position.Y, float64(p.Position.Angle)),
		Effects(p.Hidden),
	)
}

// Stroke builds the default wire stroke node.
func Stroke() *kicadsexp.List {
	return kicadsexp.Node("stroke",
		kicadsexp.Node("width", Num(0)),
		kicadsexp.Node("type", Sym("default")),
	)
}
