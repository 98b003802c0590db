package schematic

import (
	"context"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

const dividerDoc = `(kicad_sch
	(version 20231120)
	(generator "eeschema")
	(generator_version "8.0")
	(uuid "862335ee-c981-4fe1-9eb9-84db19301dd4")
	(paper "A4")
	(title_block
		(title "Divider")
		(rev "1")
		(company "OpenTraceLab")
	)
	(lib_symbols
		(symbol "Device:R"
			(pin_numbers hide)
			(exclude_from_sim no)
			(in_bom yes)
			(on_board yes)
			(property "Reference" "R" (at 2.032 0 90) (effects (font (size 1.27 1.27))))
			(property "Value" "R" (at 0 0 90) (effects (font (size 1.27 1.27))))
			(symbol "R_0_1"
				(rectangle (start -1.016 -2.54) (end 1.016 2.54)
					(stroke (width 0.254) (type default))
					(fill (type none))
				)
			)
			(symbol "R_1_1"
				(pin passive line (at 0 3.81 270) (length 1.27)
					(name "~" (effects (font (size 1.27 1.27))))
					(number "1" (effects (font (size 1.27 1.27))))
				)
				(pin passive line (at 0 -3.81 90) (length 1.27)
					(name "~" (effects (font (size 1.27 1.27))))
					(number "2" (effects (font (size 1.27 1.27))))
				)
			)
		)
	)
	(junction (at 100 60) (diameter 0) (color 0 0 0 0) (uuid "0b5c6a5e-4a4e-4b4c-9a51-2b8c5e1f7a10"))
	(no_connect (at 100 46.19) (uuid "5e3f1a2b-0c4d-4e5f-8a6b-7c8d9e0f1a2b"))
	(wire (pts (xy 100 53.81) (xy 100 66.19))
		(stroke (width 0) (type default))
		(uuid "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d")
	)
	(label "MID" (at 100 60 0)
		(effects (font (size 1.27 1.27)) (justify left bottom))
		(uuid "11111111-2222-4333-8444-555555555555")
	)
	(text "divider" (at 80 40 0) (effects (font (size 1.27 1.27))))
	(symbol (lib_id "Device:R") (at 100 50 0) (unit 1)
		(exclude_from_sim no) (in_bom yes) (on_board yes) (dnp no)
		(uuid "aaaaaaaa-0000-4000-8000-000000000001")
		(property "Reference" "R1" (at 102.54 48.26 0) (effects (font (size 1.27 1.27)) (justify left)))
		(property "Value" "10k" (at 102.54 50.8 0) (effects (font (size 1.27 1.27)) (justify left)))
		(property "Footprint" "Resistor_SMD:R_0603_1608Metric" (at 98.222 50 90) (effects (font (size 1.27 1.27)) (hide yes)))
		(pin "1" (uuid "aaaaaaaa-0000-4000-8000-000000000011"))
		(pin "2" (uuid "aaaaaaaa-0000-4000-8000-000000000012"))
	)
	(symbol (lib_id "Device:R") (at 100 70 0) (unit 1)
		(in_bom yes) (on_board yes)
		(uuid "aaaaaaaa-0000-4000-8000-000000000002")
		(property "Reference" "R2" (at 102.54 68.58 0) (effects (font (size 1.27 1.27))))
		(property "Value" "4k7" (at 102.54 71.12 0) (effects (font (size 1.27 1.27))))
	)
	(sheet_instances
		(path "/" (page "1"))
	)
)
`

func decodeString(t *testing.T, doc string) *circuit.Circuit {
	t.Helper()
	c, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Failed to decode schematic: %v", err)
	}
	return c
}

func TestDecodeDivider(t *testing.T) {
	c := decodeString(t, dividerDoc)

	if c.Meta.Version != 20231120 {
		t.Errorf("Expected version 20231120, got %d", c.Meta.Version)
	}
	if c.Meta.Title != "Divider" || c.Meta.Revision != "1" {
		t.Errorf("Unexpected title block: %+v", c.Meta)
	}
	if len(c.Meta.Extra) != 1 {
		t.Errorf("Expected company to be kept, got %v", c.Meta.Extra)
	}

	comps := c.Components()
	if len(comps) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(comps))
	}

	r1 := comps[0]
	if r1.Ref != "R1" || r1.Value != "10k" || r1.LibID != "Device:R" || r1.Type != "resistor" {
		t.Errorf("Unexpected R1: %+v", r1)
	}
	if len(r1.Pins) != 2 {
		t.Fatalf("Expected 2 pins on R1, got %d", len(r1.Pins))
	}
	if got := r1.PinPoint(r1.Pins[0]); got != (circuit.Point{X: 100, Y: 46.19}) {
		t.Errorf("R1.1 at %v, want (100, 46.19)", got)
	}
	if fp, _ := r1.Property("Footprint"); fp != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("Footprint = %q", fp)
	}

	if len(c.Wires) != 1 || len(c.Junctions) != 1 || len(c.Labels) != 1 {
		t.Errorf("Expected 1 wire, junction and label, got %d, %d, %d",
			len(c.Wires), len(c.Junctions), len(c.Labels))
	}

	if len(c.Nets) != 1 {
		t.Fatalf("Expected 1 net, got %+v", c.Nets)
	}
	mid := c.Nets[0]
	if mid.Name != "MID" || len(mid.Endpoints) != 2 {
		t.Errorf("Expected net MID with R1.2 and R2.1, got %+v", mid)
	}

	// no_connect, text and sheet_instances
	if len(c.Opaque) != 3 {
		t.Errorf("Expected 3 opaque nodes, got %d", len(c.Opaque))
	}
}

func TestOpaqueNodesSurvive(t *testing.T) {
	c := decodeString(t, dividerDoc)

	out, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	nodes, err := kicadsexp.Parse(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("Encoded document does not parse: %v\n%s", err, out)
	}
	root := nodes[0].(*kicadsexp.List)

	orig, _ := kicadsexp.ParseString(dividerDoc)
	for _, want := range []string{"no_connect", "text", "sheet_instances"} {
		var a, b kicadsexp.Sexp
		for _, item := range orig[0].(*kicadsexp.List).Items() {
			if l, ok := item.(*kicadsexp.List); ok && l.Name() == want {
				a = l
			}
		}
		for _, item := range root.Items() {
			if l, ok := item.(*kicadsexp.List); ok && l.Name() == want {
				b = l
			}
		}
		if !kicadsexp.Equal(a, b) {
			t.Errorf("%s node changed:\n got %v\nwant %v", want, b, a)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	c1 := decodeString(t, dividerDoc)

	out, err := Marshal(c1)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	c2 := decodeString(t, string(out))

	assertSameCircuit(t, c1, c2)
}

func TestEncodeIdempotent(t *testing.T) {
	c := decodeString(t, dividerDoc)
	first, _ := Marshal(c)
	second, _ := Marshal(c)
	if string(first) != string(second) {
		t.Error("Encoding the same circuit twice gave different text")
	}

	fresh := circuit.New()
	typ, _ := symlib.Default().Lookup("capacitor")
	comp, _ := circuit.NewComponent("C1", typ.LibID(), "100n", circuit.Position{X: 20, Y: 20}, typ.CircuitPins())
	_ = fresh.AddComponent(comp)
	fresh.Wires = append(fresh.Wires, circuit.Wire{Start: circuit.Point{X: 0, Y: 0}, End: circuit.Point{X: 10, Y: 0}})

	a, _ := Marshal(fresh)
	b, _ := Marshal(fresh)
	if string(a) != string(b) {
		t.Error("Encoding a generated circuit twice gave different text")
	}
}

func TestEncodeEmitsEmptyRequiredProperties(t *testing.T) {
	c := circuit.New()
	typ, _ := symlib.Default().Lookup("resistor")
	comp, _ := circuit.NewComponent("R1", typ.LibID(), "1k", circuit.Position{X: 50, Y: 50}, typ.CircuitPins())
	_ = c.AddComponent(comp)

	root := Encode(c)
	var sym *kicadsexp.List
	for _, item := range root.Items() {
		if l, ok := item.(*kicadsexp.List); ok && l.Name() == "symbol" {
			sym = l
		}
	}
	if sym == nil {
		t.Fatal("No symbol node written")
	}

	found := map[string]string{}
	for _, item := range sym.Items() {
		l, ok := item.(*kicadsexp.List)
		if !ok || l.Name() != "property" {
			continue
		}
		key := string(l.Get(1).(kicadsexp.String))
		found[key] = string(l.Get(2).(kicadsexp.String))
	}
	for _, name := range RequiredProperties {
		if _, ok := found[name]; !ok {
			t.Errorf("Property %s not written", name)
		}
	}
	if found["Footprint"] != "" || found["Reference"] != "R1" || found["Value"] != "1k" {
		t.Errorf("Unexpected property values: %v", found)
	}

	// The generated library symbol makes the document self-contained.
	c2 := decodeString(t, kicadsexp.Format(root))
	r1, _ := c2.Component("R1")
	if len(r1.Pins) != 2 {
		t.Errorf("Expected pins from generated library symbol, got %v", r1.Pins)
	}
}

func TestDecodeSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{
			name: "symbol without position",
			doc: `(kicad_sch (version 20231120)
(symbol (lib_id "Device:R") (property "Reference" "R1")))`,
			line: 2,
		},
		{
			name: "symbol without lib_id",
			doc: `(kicad_sch (version 20231120)
(symbol (at 0 0 0) (property "Reference" "R1")))`,
			line: 2,
		},
		{
			name: "symbol without reference",
			doc: `(kicad_sch (version 20231120)
(symbol (lib_id "Device:R") (at 0 0 0)))`,
			line: 2,
		},
		{
			name: "wire with one point",
			doc: `(kicad_sch (version 20231120)
(wire (pts (xy 0 0))))`,
			line: 2,
		},
		{
			name: "junction without position",
			doc: `(kicad_sch (version 20231120)

(junction (diameter 0)))`,
			line: 3,
		},
		{
			name: "old version",
			doc:  `(kicad_sch (version 20200310))`,
			line: 1,
		},
		{
			name: "not a schematic",
			doc:  `(kicad_pcb (version 20231120))`,
			line: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if !errors.Is(err, errors.ErrSchema) {
				t.Fatalf("Expected SCHEMA_ERROR, got %v", err)
			}
			if e := err.(*errors.Error); e.Line != tt.line {
				t.Errorf("Error at line %d, want %d (%v)", e.Line, tt.line, err)
			}
		})
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Parse(strings.NewReader(`(kicad_sch (version 20231120)`))
	if !errors.Is(err, errors.ErrSyntax) {
		t.Fatalf("Expected SYNTAX_ERROR, got %v", err)
	}
}

func TestDuplicateReferenceKeptVerbatim(t *testing.T) {
	doc := `(kicad_sch (version 20231120)
	(symbol (lib_id "Device:R") (at 10 10 0) (property "Reference" "R?"))
	(symbol (lib_id "Device:R") (at 30 10 0) (property "Reference" "R?"))
)`
	c := decodeString(t, doc)
	if len(c.Components()) != 1 || len(c.Opaque) != 1 {
		t.Fatalf("Expected one component and one opaque symbol, got %d and %d",
			len(c.Components()), len(c.Opaque))
	}
}

func TestDividerEndToEnd(t *testing.T) {
	table := symlib.Default()
	c := circuit.New()
	add := func(ref, value string, typ *symlib.Type, x, y float64, power bool) {
		comp, err := circuit.NewComponent(ref, typ.LibID(), value, circuit.Position{X: x, Y: y}, typ.CircuitPins())
		if err != nil {
			t.Fatalf("NewComponent failed: %v", err)
		}
		comp.Power = power
		if !power {
			comp.Type = typ.Keyword
		}
		if err := c.AddComponent(comp); err != nil {
			t.Fatalf("AddComponent failed: %v", err)
		}
	}
	res, _ := table.Lookup("resistor")
	vcc, _ := table.Power("VCC")
	gnd, _ := table.Power("GND")
	add("R1", "10k", res, 50, 50, false)
	add("R2", "10k", res, 80, 50, false)
	add("#PWR01", "VCC", vcc, 30, 40, true)
	add("#PWR02", "GND", gnd, 100, 60, true)

	_, err := netlist.Resolve(context.Background(), c, []netlist.Connection{
		{From: "VCC", To: "R1.1"},
		{From: "R1.2", To: "R2.1"},
		{From: "R2.2", To: "GND"},
	}, netlist.Options{Route: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	out, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back := decodeString(t, string(out))

	if len(back.Components()) != 4 {
		t.Fatalf("Expected 4 components after re-decode, got %d", len(back.Components()))
	}
	for _, name := range []string{"VCC", "NET_0", "GND"} {
		want, _ := c.Net(name)
		got, ok := back.Net(name)
		if !ok {
			t.Errorf("Net %s lost in round trip", name)
			continue
		}
		if !sameEndpoints(want.Endpoints, got.Endpoints) {
			t.Errorf("Net %s: got %v, want %v", name, got.Endpoints, want.Endpoints)
		}
	}
	if len(back.Nets) != 3 {
		t.Errorf("Expected 3 nets, got %d", len(back.Nets))
	}
	assertSameCircuit(t, c, back)
}

func sameEndpoints(a, b []circuit.Endpoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assertSameCircuit(t *testing.T, want, got *circuit.Circuit) {
	t.Helper()

	wc, gc := want.Components(), got.Components()
	if len(wc) != len(gc) {
		t.Fatalf("Component count %d, want %d", len(gc), len(wc))
	}
	for i := range wc {
		a, b := wc[i], gc[i]
		if a.Ref != b.Ref || a.LibID != b.LibID || a.Value != b.Value || a.Position != b.Position {
			t.Errorf("Component %d: got %s %s %q %v, want %s %s %q %v",
				i, b.Ref, b.LibID, b.Value, b.Position, a.Ref, a.LibID, a.Value, a.Position)
		}
		if a.UUID != "" && a.UUID != b.UUID {
			t.Errorf("%s: uuid %s, want %s", a.Ref, b.UUID, a.UUID)
		}
		if a.Power != b.Power {
			t.Errorf("%s: power %v, want %v", a.Ref, b.Power, a.Power)
		}
		if len(a.Pins) != len(b.Pins) {
			t.Errorf("%s: %d pins, want %d", a.Ref, len(b.Pins), len(a.Pins))
			continue
		}
		for j := range a.Pins {
			if a.PinPoint(a.Pins[j]) != b.PinPoint(b.Pins[j]) || a.Pins[j].Number != b.Pins[j].Number {
				t.Errorf("%s: pin %d differs: %+v vs %+v", a.Ref, j, b.Pins[j], a.Pins[j])
			}
		}
	}

	if len(want.Nets) != len(got.Nets) {
		t.Fatalf("Net count %d, want %d", len(got.Nets), len(want.Nets))
	}
	for i := range want.Nets {
		if want.Nets[i].Name != got.Nets[i].Name || !sameEndpoints(want.Nets[i].Endpoints, got.Nets[i].Endpoints) {
			t.Errorf("Net %d: got %+v, want %+v", i, got.Nets[i], want.Nets[i])
		}
	}

	if len(want.Wires) != len(got.Wires) {
		t.Fatalf("Wire count %d, want %d", len(got.Wires), len(want.Wires))
	}
	for i := range want.Wires {
		if want.Wires[i].Start != got.Wires[i].Start || want.Wires[i].End != got.Wires[i].End {
			t.Errorf("Wire %d: got %v-%v, want %v-%v", i,
				got.Wires[i].Start, got.Wires[i].End, want.Wires[i].Start, want.Wires[i].End)
		}
	}
	if len(want.Junctions) != len(got.Junctions) {
		t.Errorf("Junction count %d, want %d", len(got.Junctions), len(want.Junctions))
	}
	if len(want.Labels) != len(got.Labels) {
		t.Errorf("Label count %d, want %d", len(got.Labels), len(want.Labels))
	}
}
