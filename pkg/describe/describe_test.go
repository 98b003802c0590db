package describe

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
)

const dividerLines = `# two resistor divider
circuit: Divider
components:
R1 resistor 10k (50, 50)
R2 resistor 10k at (80, 50)
power:
VCC VCC (30, 40)
GND GND (100, 60)
connections:
VCC -> R1.1
R1.2 → R2.1
R2.2 -- GND
`

const dividerBlock = `circuit "Divider":
  components:
    - R1: resistor 10k at (50, 50)
    - R2: resistor 10k at (80, 50)
  power:
    - VCC: VCC at (30, 40)
    - GND: GND at (100, 60)
  connections:
    - VCC → R1.1
    - R1.2 -> R2.1
    - R2.2 — GND
`

func withoutLines(d *Description) *Description {
	out := *d
	out.Components = append([]ComponentDecl(nil), d.Components...)
	out.Power = append([]PowerDecl(nil), d.Power...)
	out.Connections = append([]ConnectionDecl(nil), d.Connections...)
	for i := range out.Components {
		out.Components[i].Line = 0
	}
	for i := range out.Power {
		out.Power[i].Line = 0
	}
	for i := range out.Connections {
		out.Connections[i].Line = 0
	}
	return &out
}

func TestParseLineSyntax(t *testing.T) {
	desc, err := Parse(dividerLines, FormatAuto)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if desc.Name != "Divider" {
		t.Errorf("Expected name Divider, got %q", desc.Name)
	}
	if len(desc.Components) != 2 || len(desc.Power) != 2 || len(desc.Connections) != 3 {
		t.Fatalf("Unexpected entry counts: %d components, %d power, %d connections",
			len(desc.Components), len(desc.Power), len(desc.Connections))
	}

	r1 := desc.Components[0]
	if r1.Ref != "R1" || r1.Type != "resistor" || r1.Value != "10k" || r1.Line != 4 {
		t.Errorf("Unexpected R1 declaration: %+v", r1)
	}
	if r1.Position == nil || *r1.Position != (circuit.Position{X: 50, Y: 50}) {
		t.Errorf("Unexpected R1 position: %v", r1.Position)
	}
	if desc.Components[1].Value != "10k" {
		t.Errorf("Trailing 'at' must not become part of the value, got %q", desc.Components[1].Value)
	}

	want := ConnectionDecl{From: "R2.2", To: "GND", Line: 12}
	if desc.Connections[2] != want {
		t.Errorf("Expected %+v, got %+v", want, desc.Connections[2])
	}
}

func TestBlockAndLineSyntaxAgree(t *testing.T) {
	if Detect(dividerBlock) != FormatBlock {
		t.Fatalf("Expected block syntax to be detected")
	}
	if Detect(dividerLines) != FormatLine {
		t.Fatalf("Expected line syntax to be detected")
	}

	block, err := Parse(dividerBlock, FormatAuto)
	if err != nil {
		t.Fatalf("Parse block failed: %v", err)
	}
	lines, err := Parse(dividerLines, FormatAuto)
	if err != nil {
		t.Fatalf("Parse lines failed: %v", err)
	}

	if !reflect.DeepEqual(withoutLines(block), withoutLines(lines)) {
		t.Errorf("Syntaxes disagree:\nblock: %+v\nlines: %+v", block, lines)
	}
	if block.Components[1].Line != 4 {
		t.Errorf("Expected block line 4 for R2, got %d", block.Components[1].Line)
	}
}

func TestArrowVariants(t *testing.T) {
	for _, arrow := range []string{"→", "->", "—", "--"} {
		desc, err := Parse("connections:\nR1.2 "+arrow+" R2.1\n", FormatLine)
		if err != nil {
			t.Fatalf("Arrow %s: %v", arrow, err)
		}
		if len(desc.Connections) != 1 || desc.Connections[0].From != "R1.2" || desc.Connections[0].To != "R2.1" {
			t.Errorf("Arrow %s parsed as %+v", arrow, desc.Connections)
		}
	}

	desc, err := Parse("R1.2->R2.1", FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(desc.Connections) != 1 {
		t.Errorf("Expected an unspaced arrow to split, got %+v", desc)
	}
}

func TestNamedConnection(t *testing.T) {
	desc, err := Parse("connections:\n- R1.2 -> R2.1: MID\n", FormatBlock)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if desc.Connections[0].Net != "MID" {
		t.Errorf("Expected net MID, got %+v", desc.Connections[0])
	}
}

func TestNegativeCoordinatesAndRotation(t *testing.T) {
	desc, err := Parse("U1 ic ESP32-WROOM-32 (60.5, -20, 90)\nVEE -5V (10, 10)", FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	u1 := desc.Components[0]
	if u1.Value != "ESP32-WROOM-32" {
		t.Errorf("Expected dashed value to survive, got %q", u1.Value)
	}
	if *u1.Position != (circuit.Position{X: 60.5, Y: -20, Rotation: 90}) {
		t.Errorf("Unexpected position %+v", *u1.Position)
	}
	if desc.Components[1].Type != "-5V" {
		t.Errorf("Expected -5V as a word, got %+v", desc.Components[1])
	}
}

func TestPowerDeclarations(t *testing.T) {
	desc, err := Parse("power:\nVCC +5V (10, 10)\nGND (20, 20)\n", FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if desc.Power[0].Name != "VCC" || desc.Power[0].Symbol != "+5V" {
		t.Errorf("Unexpected VCC declaration %+v", desc.Power[0])
	}
	if desc.Power[1].Name != "GND" || desc.Power[1].Symbol != "GND" {
		t.Errorf("A bare power name must be its own symbol, got %+v", desc.Power[1])
	}
}

func TestMalformedCoordinate(t *testing.T) {
	_, err := Parse("components:\nR1 resistor 1k (5O, 20)\n", FormatLine)
	if !errors.Is(err, errors.ErrParse) {
		t.Fatalf("Expected PARSE_ERROR, got %v", err)
	}
	e := err.(*errors.Error)
	if e.Line != 2 {
		t.Errorf("Expected line 2, got %d", e.Line)
	}
	if e.Details["token"] != "5O" {
		t.Errorf("Expected token 5O, got %v", e.Details["token"])
	}
	if !strings.Contains(e.Error(), "5O") {
		t.Errorf("Message should name the token: %s", e.Error())
	}
}

func TestMissingCoordinate(t *testing.T) {
	_, err := Parse("R1 resistor 1k (10)\n", FormatLine)
	if !errors.Is(err, errors.ErrParse) {
		t.Fatalf("Expected PARSE_ERROR, got %v", err)
	}
	if err.(*errors.Error).Line != 1 {
		t.Errorf("Expected line 1, got %v", err)
	}
}

func TestParseAllReportsEveryLine(t *testing.T) {
	src := "components:\nR1 resistor 1k (x, 1)\nR2 resistor 1k (1, 1)\nR3\n"
	_, errs := ParseAll(src, FormatLine)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].(*errors.Error).Line != 2 || errs[1].(*errors.Error).Line != 4 {
		t.Errorf("Unexpected lines: %v", errs)
	}
}

func TestBlockSyntaxErrors(t *testing.T) {
	_, err := Parse("circuit \"X\":\n  gadgets:\n    - R1: resistor\n", FormatBlock)
	if !errors.Is(err, errors.ErrParse) || err.(*errors.Error).Line != 2 {
		t.Errorf("Expected PARSE_ERROR on line 2 for unknown section, got %v", err)
	}

	_, err = Parse("components: [\n", FormatBlock)
	if !errors.Is(err, errors.ErrParse) {
		t.Errorf("Expected PARSE_ERROR for broken YAML, got %v", err)
	}
}

func TestUnknownComponentType(t *testing.T) {
	src := "components:\nR1 resistor 1k (50, 50)\nX1 flux_capacitor 1.21GW (80, 50)\n"
	desc, err := Parse(src, FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	_, err = Build(desc, nil)
	if !errors.Is(err, errors.ErrUnknownType) {
		t.Fatalf("Expected UNKNOWN_COMPONENT_TYPE, got %v", err)
	}
	e := err.(*errors.Error)
	if e.Line != 3 {
		t.Errorf("Expected line 3, got %d", e.Line)
	}
	if e.Details["keyword"] != "flux_capacitor" {
		t.Errorf("Expected keyword flux_capacitor, got %v", e.Details["keyword"])
	}
}

func TestBuildDraft(t *testing.T) {
	desc, err := Parse("R1 resistor (50, 50)\nC1 cap 100nF\npower:\nVCC +5V (30, 30)\nGND\n", FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	draft, err := Build(desc, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r1, _ := draft.Circuit.Component("R1")
	if r1.Value != "R" || r1.Type != "resistor" || !r1.Placed {
		t.Errorf("Unexpected R1: value %q type %q placed %v", r1.Value, r1.Type, r1.Placed)
	}
	c1, _ := draft.Circuit.Component("C1")
	if c1.Type != "capacitor" || c1.Placed {
		t.Errorf("C1 should be an unplaced capacitor, got type %q placed %v", c1.Type, c1.Placed)
	}

	if draft.Aliases["VCC"] != "#PWR01" || draft.Aliases["GND"] != "#PWR02" {
		t.Errorf("Unexpected aliases %v", draft.Aliases)
	}
	pwr, _ := draft.Circuit.Component("#PWR01")
	if !pwr.Power || pwr.Value != "+5V" || pwr.LibID != "power:+5V" || pwr.InBOM {
		t.Errorf("Unexpected power port %+v", pwr)
	}
}

func TestBuildAllCollects(t *testing.T) {
	src := "components:\nX1 flux_capacitor\nR1 resistor\nR1 resistor\npower:\nP1 banana\n"
	desc, err := Parse(src, FormatLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, errs := BuildAll(desc, nil)
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors, got %d: %v", len(errs), errs)
	}
	kinds := []errors.Kind{errors.ErrUnknownType, errors.ErrValidation, errors.ErrUnknownType}
	lines := []int{2, 4, 6}
	for i, err := range errs {
		if errors.KindOf(err) != kinds[i] || err.(*errors.Error).Line != lines[i] {
			t.Errorf("Error %d: got %v (line %d), want %s on line %d",
				i, err, err.(*errors.Error).Line, kinds[i], lines[i])
		}
	}
}

func TestValidateAccumulates(t *testing.T) {
	src := `components:
R1 resistor 1k (50, 50)
R2 resistor 1k (50, 50)
connections:
R1.9 -> R2.1
R1.2 -> R3.1
`
	diag, err := Validate(context.Background(), src, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if diag.OK() {
		t.Fatalf("Expected diagnostics")
	}
	if len(diag.Errors) != 3 {
		t.Fatalf("Expected 3 errors, got %d: %v", len(diag.Errors), diag.Errors)
	}
	if !errors.Is(diag.Errors[0], errors.ErrOverlap) {
		t.Errorf("Expected overlap first, got %v", diag.Errors[0])
	}
	if diag.Errors[1].(*errors.Error).Line != 5 || diag.Errors[2].(*errors.Error).Line != 6 {
		t.Errorf("Expected connection errors on lines 5 and 6, got %v", diag.Errors[1:])
	}
	if len(diag.Warnings) == 0 {
		t.Errorf("Expected unconnected pin warnings")
	}
}

func TestValidateClean(t *testing.T) {
	diag, err := Validate(context.Background(), dividerBlock, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !diag.OK() {
		t.Errorf("Expected a clean divider, got %v", diag.Errors)
	}
	if diag.Description.Name != "Divider" {
		t.Errorf("Expected the parsed description in the diagnostics")
	}
}

func TestValidateStopsAtParseErrors(t *testing.T) {
	diag, err := Validate(context.Background(), "R1 resistor (1,", ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(diag.Errors) != 1 || !errors.Is(diag.Errors[0], errors.ErrParse) {
		t.Errorf("Expected a single PARSE_ERROR, got %v", diag.Errors)
	}
}

func TestDividerEndToEnd(t *testing.T) {
	desc, err := Parse(dividerLines, FormatAuto)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	draft, err := Build(desc, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ctx := context.Background()
	if _, err := layout.Place(ctx, draft.Circuit, layout.DefaultOptions()); err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if _, err := netlist.Resolve(ctx, draft.Circuit, draft.Connections, netlist.Options{
		Aliases: draft.Aliases,
		Route:   true,
	}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := map[string][]circuit.Endpoint{
		"VCC":   {{Ref: "#PWR01", Pin: "1"}, {Ref: "R1", Pin: "1"}},
		"NET_0": {{Ref: "R1", Pin: "2"}, {Ref: "R2", Pin: "1"}},
		"GND":   {{Ref: "#PWR02", Pin: "1"}, {Ref: "R2", Pin: "2"}},
	}
	for name, eps := range want {
		n, ok := draft.Circuit.Net(name)
		if !ok || !reflect.DeepEqual(n.Endpoints, eps) {
			t.Fatalf("Net %s: got %+v, want %v", name, n, eps)
		}
	}

	out, err := schematic.Marshal(draft.Circuit)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := schematic.Parse(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("Re-decode failed: %v", err)
	}
	if back.Meta.Title != "Divider" {
		t.Errorf("Expected title Divider, got %q", back.Meta.Title)
	}
	for name, eps := range want {
		n, ok := back.Net(name)
		if !ok || !reflect.DeepEqual(n.Endpoints, eps) {
			t.Errorf("Net %s after re-decode: got %+v, want %v", name, n, eps)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": FormatAuto, "YAML": FormatBlock, "line": FormatLine} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ParseFormat(xml) err = %v, want INVALID_REQUEST", err)
	}
}
