package schematic

import (
	"bytes"
	"io"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
)

// RequiredProperties are written on every symbol, with an empty value when
// the component does not set them.
var RequiredProperties = []string{"Reference", "Value", "Footprint", "Datasheet"}

// Encode maps a circuit to a document tree using the built-in table.
func Encode(c *circuit.Circuit) *kicadsexp.List {
	return defaultMapper.Encode(c)
}

// Marshal encodes a circuit to document text using the built-in table.
func Marshal(c *circuit.Circuit) ([]byte, error) {
	return defaultMapper.Marshal(c)
}

// Marshal encodes a circuit to document text.
func (m *Mapper) Marshal(c *circuit.Circuit) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Write(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a circuit to w.
func (m *Mapper) Write(w io.Writer, c *circuit.Circuit) error {
	return kicadsexp.Encode(w, m.Encode(c))
}

// Encode maps a circuit to a document tree. The circuit is not modified and
// the output depends only on the circuit, so identifiers missing from the
// model are derived from its content.
func (m *Mapper) Encode(c *circuit.Circuit) *kicadsexp.List {
	root := kicadsexp.Node("kicad_sch")
	m.encodeHeader(root, c)
	root.Append(m.encodeLibSymbols(c))

	for _, j := range c.Junctions {
		root.Append(encodeJunction(j))
	}
	for _, w := range c.Wires {
		root.Append(encodeWire(w))
	}
	for _, l := range c.Labels {
		root.Append(encodeLabel(l))
	}
	for _, comp := range c.Components() {
		root.Append(m.encodeSymbol(c, comp))
	}

	hasInstances := false
	for _, node := range c.Opaque {
		if KindOf(node) == KindSheetInstances {
			hasInstances = true
		}
		root.Append(node)
	}
	if !hasInstances {
		root.Append(kicadsexp.Node("sheet_instances",
			kicadsexp.Node("path", sexp.Str("/"), kicadsexp.Node("page", sexp.Str("1"))),
		))
	}
	return root
}

func (m *Mapper) encodeHeader(root *kicadsexp.List, c *circuit.Circuit) {
	meta := c.Meta
	fresh := meta.Version == 0

	version := meta.Version
	if fresh {
		version = DefaultVersion
	}
	root.Append(kicadsexp.Node("version", kicadsexp.Int(version)))

	generator := meta.Generator
	if generator == "" {
		generator = DefaultGenerator
	}
	root.Append(kicadsexp.Node("generator", sexp.Str(generator)))

	genVer := meta.GeneratorVersion
	if genVer == "" && fresh {
		genVer = DefaultGeneratorVersion
	}
	if genVer != "" {
		root.Append(kicadsexp.Node("generator_version", sexp.Str(genVer)))
	}

	root.Append(sexp.UUIDNode(documentUUID(c)))

	paper := meta.Paper
	if paper == "" {
		paper = DefaultPaper
	}
	paperNode := kicadsexp.Node("paper", sexp.Str(paper))
	if meta.PaperWidth > 0 && meta.PaperHeight > 0 {
		paperNode.Append(sexp.Num(meta.PaperWidth), sexp.Num(meta.PaperHeight))
	}
	root.Append(paperNode)

	if meta.Title != "" || meta.Date != "" || meta.Revision != "" || len(meta.Extra) > 0 {
		tb := kicadsexp.Node("title_block")
		if meta.Title != "" {
			tb.Append(kicadsexp.Node("title", sexp.Str(meta.Title)))
		}
		if meta.Date != "" {
			tb.Append(kicadsexp.Node("date", sexp.Str(meta.Date)))
		}
		if meta.Revision != "" {
			tb.Append(kicadsexp.Node("rev", sexp.Str(meta.Revision)))
		}
		tb.Append(meta.Extra...)
		root.Append(tb)
	}
}

// encodeLibSymbols writes the stored library symbols followed by generated
// ones for components whose symbol the document does not define yet.
func (m *Mapper) encodeLibSymbols(c *circuit.Circuit) *kicadsexp.List {
	node := kicadsexp.Node("lib_symbols")
	have := make(map[string]bool)
	for _, ls := range c.LibSymbols {
		node.Append(ls.Node)
		have[ls.ID] = true
	}

	for _, comp := range c.Components() {
		key := libKey(comp)
		if have[key] {
			continue
		}
		typ, ok := m.typeForLibID(comp.LibID)
		if !ok {
			continue
		}
		node.Append(libSymbol(typ))
		have[key] = true
	}
	return node
}

func (m *Mapper) encodeSymbol(c *circuit.Circuit, comp *circuit.Component) *kicadsexp.List {
	node := kicadsexp.Node("symbol",
		kicadsexp.Node("lib_id", sexp.Str(comp.LibID)),
		sexp.At(comp.Position.X, comp.Position.Y, float64(comp.Position.Rotation)),
		kicadsexp.Node("unit", kicadsexp.Int(max(comp.Unit, 1))),
	)

	has := make(map[string]bool)
	for _, item := range comp.Extra {
		if list, ok := item.(*kicadsexp.List); ok {
			has[list.Name()] = true
		}
	}

	if !has["exclude_from_sim"] {
		node.Append(sexp.Flag("exclude_from_sim", false))
	}
	node.Append(sexp.Flag("in_bom", comp.InBOM), sexp.Flag("on_board", comp.OnBoard))
	if !has["dnp"] {
		node.Append(sexp.Flag("dnp", false))
	}

	id := comp.UUID
	if id == "" {
		id = circuit.SymbolUUID(comp.Ref)
	}
	node.Append(sexp.UUIDNode(id))

	for _, p := range symbolProperties(comp) {
		node.Append(encodeProperty(comp, p))
	}

	node.Append(comp.Extra...)

	if !has["pin"] {
		for _, p := range comp.Pins {
			node.Append(kicadsexp.Node("pin", sexp.Str(p.Number),
				sexp.UUIDNode(circuit.StableUUID("pin", comp.Ref, p.Number))))
		}
	}
	if !has["instances"] {
		node.Append(kicadsexp.Node("instances",
			kicadsexp.Node("project", sexp.Str(c.Meta.Title),
				kicadsexp.Node("path", sexp.Str("/"+documentUUID(c)),
					kicadsexp.Node("reference", sexp.Str(comp.Ref)),
					kicadsexp.Node("unit", kicadsexp.Int(max(comp.Unit, 1))),
				),
			),
		))
	}
	return node
}

// symbolProperties returns the component's properties with Reference and
// Value taken from the model, followed by any missing required property.
func symbolProperties(comp *circuit.Component) []circuit.Property {
	props := make([]circuit.Property, 0, len(comp.Properties)+len(RequiredProperties))
	seen := make(map[string]bool)
	for _, p := range comp.Properties {
		switch p.Name {
		case "Reference":
			p.Value = comp.Ref
		case "Value":
			p.Value = comp.Value
		}
		seen[p.Name] = true
		props = append(props, p)
	}

	for _, name := range RequiredProperties {
		if seen[name] {
			continue
		}
		p := circuit.Property{Name: name}
		switch name {
		case "Reference":
			p.Value = comp.Ref
		case "Value":
			p.Value = comp.Value
		}
		props = append(props, p)
	}
	return props
}

func encodeProperty(comp *circuit.Component, p circuit.Property) *kicadsexp.List {
	if p.Raw != nil {
		node := kicadsexp.Node("property", sexp.Str(p.Name), sexp.Str(p.Value))
		if p.Raw.Len() > 3 {
			node.Append(p.Raw.Items()[3:]...)
		}
		return node
	}

	prop := sexp.Property{Key: p.Name, Value: p.Value}
	prop.Position.X, prop.Position.Y = comp.Position.X, comp.Position.Y
	switch p.Name {
	case "Reference":
		prop.Position.Y -= 3.81
		prop.Hidden = comp.Power
	case "Value":
		prop.Position.Y += 3.81
	default:
		prop.Hidden = true
	}
	return sexp.PropertyNode(prop)
}

func encodeWire(w circuit.Wire) *kicadsexp.List {
	node := kicadsexp.Node("wire",
		kicadsexp.Node("pts", sexp.XY(w.Start.X, w.Start.Y), sexp.XY(w.End.X, w.End.Y)),
	)
	if len(w.Extra) > 0 {
		node.Append(w.Extra...)
	} else {
		node.Append(sexp.Stroke())
	}
	id := w.UUID
	if id == "" {
		id = circuit.WireUUID(w.Start, w.End)
	}
	node.Append(sexp.UUIDNode(id))
	return node
}

func encodeJunction(j circuit.Junction) *kicadsexp.List {
	node := kicadsexp.Node("junction",
		kicadsexp.Node("at", sexp.Num(j.At.X), sexp.Num(j.At.Y)),
	)
	if len(j.Extra) > 0 {
		node.Append(j.Extra...)
	} else {
		node.Append(
			kicadsexp.Node("diameter", sexp.Num(0)),
			kicadsexp.Node("color", sexp.Num(0), sexp.Num(0), sexp.Num(0), sexp.Num(0)),
		)
	}
	id := j.UUID
	if id == "" {
		id = circuit.JunctionUUID(j.At)
	}
	node.Append(sexp.UUIDNode(id))
	return node
}

func encodeLabel(l circuit.Label) *kicadsexp.List {
	node := kicadsexp.Node("label", sexp.Str(l.Text), sexp.At(l.At.X, l.At.Y, l.Angle))
	if len(l.Extra) > 0 {
		node.Append(l.Extra...)
	} else {
		effects := sexp.Effects(false)
		effects.Append(kicadsexp.Node("justify", sexp.Sym("left"), sexp.Sym("bottom")))
		node.Append(effects)
	}
	id := l.UUID
	if id == "" {
		id = circuit.LabelUUID(l.Text, l.At)
	}
	node.Append(sexp.UUIDNode(id))
	return node
}

// libKey returns the lib_symbols entry a component refers to.
func libKey(comp *circuit.Component) string {
	for _, item := range comp.Extra {
		if list, ok := item.(*kicadsexp.List); ok && list.Name() == "lib_name" {
			if name, err := sexp.GetString(list, 1); err == nil {
				return name
			}
		}
	}
	return comp.LibID
}

func documentUUID(c *circuit.Circuit) string {
	if c.Meta.UUID != "" {
		return c.Meta.UUID
	}
	return circuit.SheetUUID(c.Meta.Title)
}
