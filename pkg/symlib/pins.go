package symlib

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
)

// typeOf finds the table entry for a placed component.
func (t *Table) typeOf(c *circuit.Component) (*Type, bool) {
	if c.Type != "" {
		if typ, ok := t.Lookup(c.Type); ok {
			return typ, true
		}
	}
	return t.ByLibID(c.LibID)
}

// ResolvePin maps a pin key to a pin number of c. The key is tried as a pin
// number, then as a pin name (case-insensitive), then as a type alias such
// as anode or cathode.
func (t *Table) ResolvePin(c *circuit.Component, key string) (string, bool) {
	if _, ok := c.Pin(key); ok {
		return key, true
	}
	for _, p := range c.Pins {
		if p.Name != "" && p.Name != "~" && strings.EqualFold(p.Name, key) {
			return p.Number, true
		}
	}
	if typ, ok := t.typeOf(c); ok {
		if num, ok := typ.Aliases[strings.ToLower(key)]; ok {
			if _, exists := c.Pin(num); exists {
				return num, true
			}
		}
	}
	return "", false
}

// DefaultPin returns the pin a bare reference stands for: the sole pin of
// the component, or the default pin of its type.
func (t *Table) DefaultPin(c *circuit.Component) (string, bool) {
	if len(c.Pins) == 1 {
		return c.Pins[0].Number, true
	}
	if typ, ok := t.typeOf(c); ok && typ.DefaultPin != "" {
		if _, exists := c.Pin(typ.DefaultPin); exists {
			return typ.DefaultPin, true
		}
	}
	return "", false
}

// Footprint returns the sheet footprint of c, swapped for quarter turns.
// Components of unknown type get the fallback size.
func (t *Table) Footprint(c *circuit.Component) (width, height float64) {
	width, height = FallbackWidth, FallbackHeight
	if typ, ok := t.typeOf(c); ok {
		width, height = typ.Width, typ.Height
	}
	if c.Position.Rotation == 90 || c.Position.Rotation == 270 {
		width, height = height, width
	}
	return width, height
}

// Fallback footprint for components not in the table.
const (
	FallbackWidth  = 10
	FallbackHeight = 8
)
