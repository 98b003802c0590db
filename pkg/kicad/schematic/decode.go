package schematic

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Mapper converts between documents and circuits. Table supplies pin
// layouts for symbols whose library definition is missing from a document,
// and library definitions for generated components.
type Mapper struct {
	Table *symlib.Table
}

// NewMapper returns a mapper over table, or the built-in table when nil.
func NewMapper(table *symlib.Table) *Mapper {
	if table == nil {
		table = symlib.Default()
	}
	return &Mapper{Table: table}
}

var defaultMapper = NewMapper(nil)

// ParseFile reads and decodes a KiCad schematic file
func ParseFile(filename string) (*circuit.Circuit, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and decodes a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*circuit.Circuit, error) {
	return defaultMapper.Parse(r)
}

// Decode maps parsed document nodes to a circuit using the built-in table.
func Decode(nodes []kicadsexp.Sexp) (*circuit.Circuit, error) {
	return defaultMapper.Decode(nodes)
}

// Parse reads and decodes a KiCad schematic from an io.Reader
func (m *Mapper) Parse(r io.Reader) (*circuit.Circuit, error) {
	nodes, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, err
	}
	return m.Decode(nodes)
}

// Decode maps parsed document nodes to a circuit. It either returns a
// complete circuit or fails without a partial result. Nets are rebuilt from
// the drawing.
func (m *Mapper) Decode(nodes []kicadsexp.Sexp) (*circuit.Circuit, error) {
	if len(nodes) == 0 {
		return nil, errors.NewSchema(0, 0, "empty document")
	}
	root, ok := nodes[0].(*kicadsexp.List)
	if !ok || root.Name() != "kicad_sch" {
		line, col := position(nodes[0])
		return nil, errors.NewSchema(line, col, "not a KiCad schematic: expected 'kicad_sch'")
	}
	if len(nodes) > 1 {
		line, col := position(nodes[1])
		return nil, errors.NewSchema(line, col, "unexpected content after kicad_sch")
	}

	c := circuit.New()
	if err := decodeHeader(root, &c.Meta); err != nil {
		return nil, err
	}

	// Library symbols first; instances need their pin definitions.
	for _, libNode := range sexp.FindAllNodes(root, "lib_symbols") {
		for _, symNode := range sexp.FindAllNodes(libNode, "symbol") {
			id, err := sexp.GetString(symNode, 1)
			if err != nil {
				return nil, errors.NewSchema(symNode.Line, symNode.Column, "library symbol without a name")
			}
			c.LibSymbols = append(c.LibSymbols, circuit.LibSymbol{ID: id, Node: symNode})
		}
	}

	for _, item := range root.Items()[1:] {
		switch KindOf(item) {
		case KindHeader, KindLibSymbols:
			// handled above
		case KindSymbol:
			node := item.(*kicadsexp.List)
			comp, err := m.decodeSymbol(c, node)
			if err != nil {
				return nil, err
			}
			if _, dup := c.Component(comp.Ref); dup {
				// Unannotated (R?) and multi-unit symbols share a reference;
				// they are carried through untouched.
				c.Opaque = append(c.Opaque, node)
				continue
			}
			if err := c.AddComponent(comp); err != nil {
				return nil, err
			}
		case KindWire:
			w, err := decodeWire(item.(*kicadsexp.List))
			if err != nil {
				return nil, err
			}
			c.Wires = append(c.Wires, w)
		case KindJunction:
			j, err := decodeJunction(item.(*kicadsexp.List))
			if err != nil {
				return nil, err
			}
			c.Junctions = append(c.Junctions, j)
		case KindLabel:
			l, err := decodeLabel(item.(*kicadsexp.List))
			if err != nil {
				return nil, err
			}
			c.Labels = append(c.Labels, l)
		case KindSheetInstances, KindOpaque:
			c.Opaque = append(c.Opaque, item)
		}
	}

	c.Nets, c.Warnings = netlist.Extract(c)
	c.SortNets()
	return c, nil
}

// decodeHeader extracts version, generator and title block information
func decodeHeader(root *kicadsexp.List, meta *circuit.Meta) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return errors.NewSchema(root.Line, root.Column, "missing required 'version' field")
	}
	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return errors.NewSchema(versionNode.Line, versionNode.Column, "invalid version: %v", err)
	}
	if ver < MinSupportedVersion {
		return errors.NewSchema(versionNode.Line, versionNode.Column,
			"unsupported schematic version %d (minimum %d, KiCad 6.0)", ver, MinSupportedVersion)
	}
	meta.Version = ver

	if genNode, found := sexp.FindNode(root, "generator"); found {
		meta.Generator, _ = sexp.GetString(genNode, 1)
	}
	if genVerNode, found := sexp.FindNode(root, "generator_version"); found {
		meta.GeneratorVersion, _ = sexp.GetString(genVerNode, 1)
	}
	if id, err := sexp.GetUUID(root); err == nil {
		meta.UUID = string(id)
	}

	if paperNode, found := sexp.FindNode(root, "paper"); found {
		meta.Paper, _ = sexp.GetString(paperNode, 1)
		// User-defined sheets carry their size
		if w, err := sexp.GetFloat(paperNode, 2); err == nil {
			meta.PaperWidth = w
		}
		if h, err := sexp.GetFloat(paperNode, 3); err == nil {
			meta.PaperHeight = h
		}
	}

	if tb, found := sexp.FindNode(root, "title_block"); found {
		for _, item := range sexp.GetListItems(tb) {
			entry, ok := item.(*kicadsexp.List)
			if !ok {
				meta.Extra = append(meta.Extra, item)
				continue
			}
			value, _ := sexp.GetString(entry, 1)
			switch entry.Name() {
			case "title":
				meta.Title = value
			case "date":
				meta.Date = value
			case "rev":
				meta.Revision = value
			default:
				meta.Extra = append(meta.Extra, item)
			}
		}
	}
	return nil
}

// decodeSymbol maps a placed symbol instance to a component
func (m *Mapper) decodeSymbol(c *circuit.Circuit, node *kicadsexp.List) (*circuit.Component, error) {
	libNode, found := sexp.FindNode(node, "lib_id")
	if !found {
		return nil, errors.NewSchema(node.Line, node.Column, "symbol without lib_id")
	}
	libID, err := sexp.GetString(libNode, 1)
	if err != nil {
		return nil, errors.NewSchema(libNode.Line, libNode.Column, "invalid lib_id: %v", err)
	}

	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return nil, errors.NewSchema(node.Line, node.Column, "symbol %s without position", libID)
	}
	at, err := sexp.GetPosition(atNode)
	if err != nil {
		return nil, errors.NewSchema(atNode.Line, atNode.Column, "invalid symbol position: %v", err)
	}

	var props []circuit.Property
	ref, value := "", ""
	hasRef := false
	for _, pn := range sexp.FindAllNodes(node, "property") {
		prop, err := sexp.GetProperty(pn)
		if err != nil {
			return nil, errors.NewSchema(pn.Line, pn.Column, "invalid property: %v", err)
		}
		switch prop.Key {
		case "Reference":
			ref, hasRef = prop.Value, true
		case "Value":
			value = prop.Value
		}
		props = append(props, circuit.Property{Name: prop.Key, Value: prop.Value, Raw: pn})
	}
	if !hasRef {
		return nil, errors.NewSchema(node.Line, node.Column, "symbol %s without Reference property", libID)
	}

	unit := 1
	if unitNode, found := sexp.FindNode(node, "unit"); found {
		if u, err := sexp.GetInt(unitNode, 1); err == nil {
			unit = u
		}
	}

	// lib_name selects a locally modified library symbol
	libKey := libID
	if nameNode, found := sexp.FindNode(node, "lib_name"); found {
		if name, err := sexp.GetString(nameNode, 1); err == nil {
			libKey = name
		}
	}

	pins, power := m.symbolPins(c, libKey, libID, unit)
	pos := circuit.Position{X: at.X, Y: at.Y, Rotation: circuit.NormalizeRotation(float64(at.Angle))}
	comp, err := circuit.NewComponent(ref, libID, value, pos, pins)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Line, e.Column = node.Line, node.Column
		}
		return nil, err
	}

	comp.Unit = unit
	comp.Power = power
	comp.Properties = props
	comp.InBOM = sexp.GetFlag(node, "in_bom", true)
	comp.OnBoard = sexp.GetFlag(node, "on_board", true)
	if id, err := sexp.GetUUID(node); err == nil {
		comp.UUID = string(id)
	}
	if typ, ok := m.Table.ByLibID(libID); ok && !typ.Power {
		comp.Type = typ.Keyword
	}

	for _, item := range node.Items()[1:] {
		if list, ok := item.(*kicadsexp.List); ok {
			switch list.Name() {
			case "lib_id", "at", "unit", "in_bom", "on_board", "uuid", "property":
				continue
			}
		}
		comp.Extra = append(comp.Extra, item)
	}
	return comp, nil
}

// symbolPins returns the pins of a library symbol for the given unit and
// whether the symbol is a power port. Symbols missing from the document fall
// back to the type table.
func (m *Mapper) symbolPins(c *circuit.Circuit, key, libID string, unit int) ([]circuit.Pin, bool) {
	libNode, ok := c.LibSymbol(key)
	if !ok && key != libID {
		libNode, ok = c.LibSymbol(libID)
	}
	if !ok {
		if typ, found := m.Table.ByLibID(libID); found {
			return typ.CircuitPins(), typ.Power
		}
		return nil, strings.HasPrefix(libID, symlib.PowerLibrary+":")
	}

	power := false
	if p, found := sexp.FindNode(libNode, "power"); found && p.Len() >= 1 {
		power = true
	}

	var pins []circuit.Pin
	seen := make(map[string]bool)
	collect := func(node kicadsexp.Sexp) {
		for _, pn := range sexp.FindAllNodes(node, "pin") {
			pin, ok := decodePin(pn)
			if !ok || seen[pin.Number] {
				continue
			}
			seen[pin.Number] = true
			pins = append(pins, pin)
		}
	}

	collect(libNode)
	for _, unitNode := range sexp.FindAllNodes(libNode, "symbol") {
		name, _ := sexp.GetString(unitNode, 1)
		if u, ok := unitNumber(name); ok && (u == 0 || u == unit) {
			collect(unitNode)
		}
	}
	return pins, power
}

// unitNumber extracts the unit from a sub-symbol name NAME_<unit>_<style>.
func unitNumber(name string) (int, bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, false
	}
	u, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, false
	}
	return u, true
}

// decodePin reads (pin TYPE STYLE (at X Y ANGLE) (length L) (name ..) (number ..))
func decodePin(node *kicadsexp.List) (circuit.Pin, bool) {
	numNode, found := sexp.FindNode(node, "number")
	if !found {
		return circuit.Pin{}, false
	}
	number, err := sexp.GetString(numNode, 1)
	if err != nil || number == "" {
		return circuit.Pin{}, false
	}

	pin := circuit.Pin{Number: number}
	kind, _ := sexp.GetString(node, 1)
	pin.Type = circuit.ParsePinType(kind)
	if nameNode, found := sexp.FindNode(node, "name"); found {
		pin.Name, _ = sexp.GetString(nameNode, 1)
	}
	if atNode, found := sexp.FindNode(node, "at"); found {
		if pos, err := sexp.GetPosition(atNode); err == nil {
			pin.Offset = circuit.Point{X: pos.X, Y: pos.Y}
			pin.Angle = float64(pos.Angle)
		}
	}
	return pin, true
}

// decodeWire reads (wire (pts (xy X Y) (xy X Y)) (stroke ..) (uuid ..))
func decodeWire(node *kicadsexp.List) (circuit.Wire, error) {
	ptsNode, found := sexp.FindNode(node, "pts")
	if !found {
		return circuit.Wire{}, errors.NewSchema(node.Line, node.Column, "wire without pts")
	}
	pts, err := sexp.GetPoints(ptsNode)
	if err != nil || len(pts) != 2 {
		return circuit.Wire{}, errors.NewSchema(ptsNode.Line, ptsNode.Column, "wire needs exactly two points")
	}

	w := circuit.Wire{
		Start: circuit.Point{X: pts[0].X, Y: pts[0].Y},
		End:   circuit.Point{X: pts[1].X, Y: pts[1].Y},
	}
	if id, err := sexp.GetUUID(node); err == nil {
		w.UUID = string(id)
	}
	w.Extra = extraChildren(node, 1, "pts", "uuid")
	return w, nil
}

// decodeJunction reads (junction (at X Y) (diameter D) (color ..) (uuid ..))
func decodeJunction(node *kicadsexp.List) (circuit.Junction, error) {
	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return circuit.Junction{}, errors.NewSchema(node.Line, node.Column, "junction without position")
	}
	pos, err := sexp.GetPositionXY(atNode)
	if err != nil {
		return circuit.Junction{}, errors.NewSchema(atNode.Line, atNode.Column, "invalid junction position: %v", err)
	}

	j := circuit.Junction{At: circuit.Point{X: pos.X, Y: pos.Y}}
	if id, err := sexp.GetUUID(node); err == nil {
		j.UUID = string(id)
	}
	j.Extra = extraChildren(node, 1, "at", "uuid")
	return j, nil
}

// decodeLabel reads (label "TEXT" (at X Y ANGLE) (effects ..) (uuid ..))
func decodeLabel(node *kicadsexp.List) (circuit.Label, error) {
	text, err := sexp.GetString(node, 1)
	if err != nil {
		return circuit.Label{}, errors.NewSchema(node.Line, node.Column, "label without text")
	}
	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return circuit.Label{}, errors.NewSchema(node.Line, node.Column, "label %q without position", text)
	}
	pos, err := sexp.GetPosition(atNode)
	if err != nil {
		return circuit.Label{}, errors.NewSchema(atNode.Line, atNode.Column, "invalid label position: %v", err)
	}

	l := circuit.Label{
		Text:  text,
		At:    circuit.Point{X: pos.X, Y: pos.Y},
		Angle: float64(pos.Angle),
	}
	if id, err := sexp.GetUUID(node); err == nil {
		l.UUID = string(id)
	}
	l.Extra = extraChildren(node, 2, "at", "uuid")
	return l, nil
}

// extraChildren returns the children of node from index start on whose
// head is not one of the modeled keys.
func extraChildren(node *kicadsexp.List, start int, modeled ...string) []kicadsexp.Sexp {
	var extra []kicadsexp.Sexp
	for _, item := range node.Items()[min(start, node.Len()):] {
		if list, ok := item.(*kicadsexp.List); ok {
			skip := false
			for _, key := range modeled {
				if list.Name() == key {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}
		extra = append(extra, item)
	}
	return extra
}

func position(node kicadsexp.Sexp) (int, int) {
	if list, ok := node.(*kicadsexp.List); ok {
		return list.Line, list.Column
	}
	return 0, 0
}
