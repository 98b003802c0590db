// Package symlib is the component type table: for every type keyword the
// library symbol it maps to, its pin layout and its footprint on the sheet.
// The table is immutable once built and safe to share between goroutines.
package symlib

import (
	"sort"
	"strings"
	"sync"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
)

const (
	// PinLength is the drawn length of generated pins.
	PinLength = 2.54
	// PowerLibrary is the library holding power port symbols.
	PowerLibrary = "power"
)

// PinDef describes one pin of a symbol type. Offset is the connection point
// in library coordinates (Y up); Angle points from the connection point
// toward the symbol body, as in KiCad pin definitions.
type PinDef struct {
	Number string
	Name   string
	Type   circuit.PinType
	Offset circuit.Point
	Angle  float64
}

// Type is one entry of the table.
type Type struct {
	Keyword   string
	Library   string
	Symbol    string
	RefPrefix string
	// Width and Height are the unrotated footprint in millimeters.
	Width  float64
	Height float64
	Pins   []PinDef
	// DefaultPin is used when a connection names only the component.
	DefaultPin string
	// Aliases maps alternative pin names (anode, cathode, ...) to numbers.
	Aliases map[string]string
	Power   bool
}

// LibID returns the library:symbol identifier.
func (t *Type) LibID() string {
	return t.Library + ":" + t.Symbol
}

// CircuitPins returns the pins in model form.
func (t *Type) CircuitPins() []circuit.Pin {
	pins := make([]circuit.Pin, len(t.Pins))
	for i, p := range t.Pins {
		pins[i] = circuit.Pin{
			Number: p.Number,
			Name:   p.Name,
			Type:   p.Type,
			Offset: p.Offset,
			Angle:  p.Angle,
		}
	}
	return pins
}

// Table maps type keywords and lib ids to types.
type Table struct {
	types    map[string]*Type
	byLibID  map[string]*Type
	keywords map[string]string
	power    map[string]bool
}

// Lookup returns the type for a keyword. Keywords are case-insensitive and
// may use a registered alias (res, cap, npn, ...).
func (t *Table) Lookup(keyword string) (*Type, bool) {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if canonical, ok := t.keywords[k]; ok {
		k = canonical
	}
	typ, ok := t.types[k]
	return typ, ok
}

// ByLibID returns the type whose library symbol is id.
func (t *Table) ByLibID(id string) (*Type, bool) {
	typ, ok := t.byLibID[id]
	return typ, ok
}

// Power returns a power port type for a power keyword such as +5V or GND.
// Unknown keywords that look like supply names (leading + or -, or V prefix)
// are accepted as well.
func (t *Table) Power(keyword string) (*Type, bool) {
	name := strings.TrimSpace(keyword)
	if name == "" {
		return nil, false
	}
	if !t.power[strings.ToUpper(name)] && !looksLikeSupply(name) {
		return nil, false
	}
	if typ, ok := t.byLibID[PowerLibrary+":"+name]; ok {
		return typ, true
	}
	return powerType(name), true
}

// Keywords returns the component type keywords in sorted order.
func (t *Table) Keywords() []string {
	out := make([]string, 0, len(t.types))
	for k, typ := range t.types {
		if !typ.Power {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// PowerKeywords returns the known power names in sorted order.
func (t *Table) PowerKeywords() []string {
	out := make([]string, 0, len(t.power))
	for k := range t.power {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func looksLikeSupply(name string) bool {
	if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
		return len(name) > 1
	}
	upper := strings.ToUpper(name)
	return strings.HasPrefix(upper, "V") || strings.HasPrefix(upper, "GND")
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in table. It is built on first use.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = build(builtinTypes(), keywordAliases, powerNames)
	})
	return defaultTable
}

// New builds a table from the given types and aliases. It is intended for
// tests and for extending the built-in set.
func New(types []*Type, aliases map[string]string) *Table {
	return build(types, aliases, powerNames)
}

func build(types []*Type, aliases map[string]string, power []string) *Table {
	t := &Table{
		types:    make(map[string]*Type, len(types)),
		byLibID:  make(map[string]*Type, len(types)+len(power)),
		keywords: make(map[string]string, len(aliases)),
		power:    make(map[string]bool, len(power)),
	}
	for _, typ := range types {
		t.types[typ.Keyword] = typ
		if _, dup := t.byLibID[typ.LibID()]; !dup {
			t.byLibID[typ.LibID()] = typ
		}
	}
	for alias, k := range aliases {
		t.keywords[alias] = k
	}
	for _, name := range power {
		t.power[strings.ToUpper(name)] = true
		pt := powerType(name)
		t.byLibID[pt.LibID()] = pt
	}
	return t
}

func powerType(name string) *Type {
	pinType := circuit.PinPowerIn
	return &Type{
		Keyword:    name,
		Library:    PowerLibrary,
		Symbol:     name,
		RefPrefix:  "#PWR",
		Width:      5,
		Height:     5,
		Pins:       []PinDef{{Number: "1", Name: "1", Type: pinType}},
		DefaultPin: "1",
		Power:      true,
	}
}
