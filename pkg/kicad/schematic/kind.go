// Package schematic maps KiCad schematic documents (.kicad_sch) to and from
// the circuit model.
package schematic

import (
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// Header values written for new documents (KiCad 8).
const (
	DefaultVersion          = 20231120
	DefaultGenerator        = "eeschema"
	DefaultGeneratorVersion = "8.0"
	DefaultPaper            = "A4"
)

// NodeKind classifies a top-level node of a schematic by its head token.
type NodeKind int

const (
	KindOpaque NodeKind = iota
	KindHeader
	KindLibSymbols
	KindSymbol
	KindWire
	KindJunction
	KindLabel
	KindSheetInstances
)

var kindNames = [...]string{
	KindOpaque:         "opaque",
	KindHeader:         "header",
	KindLibSymbols:     "lib_symbols",
	KindSymbol:         "symbol",
	KindWire:           "wire",
	KindJunction:       "junction",
	KindLabel:          "label",
	KindSheetInstances: "sheet_instances",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf returns the kind of a top-level node. Atoms and unrecognised heads
// are opaque.
func KindOf(node kicadsexp.Sexp) NodeKind {
	list, ok := node.(*kicadsexp.List)
	if !ok {
		return KindOpaque
	}
	switch list.Name() {
	case "version", "generator", "generator_version", "uuid", "paper", "title_block":
		return KindHeader
	case "lib_symbols":
		return KindLibSymbols
	case "symbol":
		return KindSymbol
	case "wire":
		return KindWire
	case "junction":
		return KindJunction
	case "label":
		return KindLabel
	case "sheet_instances":
		return KindSheetInstances
	}
	return KindOpaque
}
