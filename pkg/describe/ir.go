// Package describe parses human-authored circuit descriptions into a common
// intermediate form and materializes it as a draft circuit.
//
// Two syntaxes are accepted. The block syntax is YAML:
//
//	circuit "LED Blinker":
//	  components:
//	    - R1: resistor 220Ω at (60, 50)
//	    - D1: led red at (90, 50)
//	  power:
//	    - VCC: +5V at (40, 40)
//	  connections:
//	    - VCC → R1.1
//
// The line syntax uses section headers and one entry per line:
//
//	circuit: LED Blinker
//	components:
//	R1 resistor 220Ω (60, 50)
//	power:
//	VCC +5V (40, 40)
//	connections:
//	VCC -> R1.1
//
// Connections may use →, ->, — or --. A position may be omitted, in which
// case the layout engine places the component.
package describe

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Format selects a description syntax.
type Format int

const (
	FormatAuto Format = iota
	FormatBlock
	FormatLine
)

func (f Format) String() string {
	switch f {
	case FormatBlock:
		return "block"
	case FormatLine:
		return "line"
	default:
		return "auto"
	}
}

// ParseFormat maps a format name to a Format. The empty string is auto.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "block", "yaml":
		return FormatBlock, nil
	case "line", "text":
		return FormatLine, nil
	}
	return FormatAuto, errors.NewInvalidRequest(fmt.Sprintf("unknown description format %q", name))
}

// Description is the parsed form of a circuit description. Lines are
// 1-based positions in the source text.
type Description struct {
	Name        string           `json:"name,omitempty"`
	Components  []ComponentDecl  `json:"components"`
	Power       []PowerDecl      `json:"power"`
	Connections []ConnectionDecl `json:"connections"`
}

// ComponentDecl declares a part by type keyword.
type ComponentDecl struct {
	Ref   string `json:"ref"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	// Position is nil when the component is to be auto-placed.
	Position *circuit.Position `json:"position,omitempty"`
	Line     int               `json:"line"`
}

// PowerDecl declares a power port. Name is how connections refer to it and
// Symbol the supply it stands for (+5V, GND, ...).
type PowerDecl struct {
	Name     string            `json:"name"`
	Symbol   string            `json:"symbol"`
	Position *circuit.Position `json:"position,omitempty"`
	Line     int               `json:"line"`
}

// ConnectionDecl joins two pins, optionally naming the net.
type ConnectionDecl struct {
	From string `json:"from"`
	To   string `json:"to"`
	Net  string `json:"net,omitempty"`
	Line int    `json:"line"`
}
