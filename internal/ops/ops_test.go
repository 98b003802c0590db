package ops

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/internal/store"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/schematic"
)

const divider = `circuit: Divider
components:
R1 resistor 10k (50, 50)
R2 resistor 10k (80, 50)
power:
VCC VCC (30, 40)
GND GND (100, 60)
connections:
VCC -> R1.1
R1.2 -> R2.1
R2.2 -> GND
`

func newOps(t *testing.T, st store.Store) *Ops {
	t.Helper()
	o, err := New(config.DefaultConfig(), st)
	require.NoError(t, err)
	return o
}

func generated(t *testing.T, o *Ops, src string) *GenerateOutput {
	t.Helper()
	res := o.Generate(context.Background(), GenerateInput{Description: src})
	require.True(t, res.Success, "generate failed: %+v", res.Errors)
	out, ok := res.Payload.(*GenerateOutput)
	require.True(t, ok)
	return out
}

func netNamed(nets []NetInfo, name string) (NetInfo, bool) {
	for _, n := range nets {
		if n.Name == name {
			return n, true
		}
	}
	return NetInfo{}, false
}

func TestGenerateDivider(t *testing.T) {
	o := newOps(t, nil)
	out := generated(t, o, divider)

	require.Equal(t, "Divider", out.Title)
	require.Equal(t, 4, out.Components)
	require.True(t, strings.HasPrefix(out.Schematic, "(kicad_sch"))
	require.Len(t, out.Placements, 4)
	require.Greater(t, out.SheetUsage, 0.0)

	want := map[string][]string{
		"VCC":   {"#PWR01.1", "R1.1"},
		"NET_0": {"R1.2", "R2.1"},
		"GND":   {"#PWR02.1", "R2.2"},
	}
	require.Len(t, out.Nets, len(want))
	for name, eps := range want {
		n, ok := netNamed(out.Nets, name)
		require.True(t, ok, "missing net %s", name)
		require.Equal(t, eps, n.Endpoints)
	}
}

func TestGeneratePowerAliasNamesNetBySymbol(t *testing.T) {
	o := newOps(t, nil)
	out := generated(t, o, `components:
R1 resistor 10k (50, 50)
power:
VCC +5V (30, 40)
connections:
VCC -> R1.1
`)
	net, ok := netNamed(out.Nets, "+5V")
	require.True(t, ok, "nets: %+v", out.Nets)
	require.Equal(t, []string{"#PWR01.1", "R1.1"}, net.Endpoints)
	_, ok = netNamed(out.Nets, "VCC")
	require.False(t, ok)
}

func TestGenerateStopsAtFirstError(t *testing.T) {
	o := newOps(t, nil)
	res := o.Generate(context.Background(), GenerateInput{Description: `components:
R1 resistor (50, 50)
X1 flux_capacitor (80, 50)
`})
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	require.Equal(t, errors.ErrUnknownType, res.Errors[0].Kind)
	require.Equal(t, 3, res.Errors[0].Line)
	require.Equal(t, "flux_capacitor", res.Errors[0].Details["keyword"])
	require.Nil(t, res.Payload)
}

func TestGenerateOverlap(t *testing.T) {
	o := newOps(t, nil)
	res := o.Generate(context.Background(), GenerateInput{Description: `R1 resistor (50, 50)
R2 resistor (52, 51)
`})
	require.False(t, res.Success)
	require.Equal(t, errors.ErrOverlap, res.Errors[0].Kind)
	require.Equal(t, []string{"R1", "R2"}, res.Errors[0].Refs)
}

func TestTemplatesGenerate(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()

	listed := o.ListTemplates(ctx)
	require.True(t, listed.Success)
	list := listed.Payload.([]Template)
	require.Len(t, list, 6)
	require.Equal(t, "esp32_basic", list[0].Name)

	named := map[string]string{
		"voltage_divider": "VOUT",
		"rc_filter":       "OUT",
		"esp32_basic":     "EN",
		"motor_driver":    "MOTOR_N",
		"sensor_i2c":      "SDA",
	}
	for _, tmpl := range list {
		t.Run(tmpl.Name, func(t *testing.T) {
			require.Empty(t, tmpl.Text)

			got := o.GetTemplate(ctx, TemplateInput{Name: tmpl.Name})
			require.True(t, got.Success)
			require.NotEmpty(t, got.Payload.(*Template).Text)

			res := o.GenerateTemplate(ctx, TemplateInput{Name: tmpl.Name})
			require.True(t, res.Success, "template %s: %+v", tmpl.Name, res.Errors)
			out := res.Payload.(*GenerateOutput)
			if net, ok := named[tmpl.Name]; ok {
				_, found := netNamed(out.Nets, net)
				require.True(t, found, "template %s has no net %s", tmpl.Name, net)
			}
		})
	}

	missing := o.GetTemplate(ctx, TemplateInput{Name: "theremin"})
	require.False(t, missing.Success)
	require.Equal(t, errors.ErrNotFound, missing.Errors[0].Kind)
}

// netMap keys endpoint lists by net name.
func netMap(nets []NetInfo) map[string][]string {
	m := make(map[string][]string, len(nets))
	for _, n := range nets {
		m[n.Name] = n.Endpoints
	}
	return m
}

func TestTemplatesRoundTripNets(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()

	for _, tmpl := range o.ListTemplates(ctx).Payload.([]Template) {
		t.Run(tmpl.Name, func(t *testing.T) {
			res := o.GenerateTemplate(ctx, TemplateInput{Name: tmpl.Name})
			require.True(t, res.Success, "%+v", res.Errors)
			out := res.Payload.(*GenerateOutput)

			c, err := schematic.Parse(strings.NewReader(out.Schematic))
			require.NoError(t, err)
			require.Empty(t, c.Warnings)
			require.Equal(t, netMap(out.Nets), netMap(netInfos(c.Nets)))

			again := o.GenerateTemplate(ctx, TemplateInput{Name: tmpl.Name})
			require.True(t, again.Success)
			require.Equal(t, out.Schematic, again.Payload.(*GenerateOutput).Schematic)
		})
	}
}

func TestValidateCollectsEverything(t *testing.T) {
	o := newOps(t, nil)
	res := o.Validate(context.Background(), ValidateInput{Description: `components:
R1 resistor (50, 50)
R2 resistor (52, 51)
X1 flux_capacitor (150, 50)
connections:
R1.1 -> R9.1
`})
	require.False(t, res.Success)
	kinds := make([]errors.Kind, 0, len(res.Errors))
	for _, e := range res.Errors {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, errors.ErrUnknownType)
	require.Contains(t, kinds, errors.ErrOverlap)

	out := res.Payload.(*ValidateOutput)
	require.False(t, out.Valid)
	require.Equal(t, 3, out.Components)
	require.Equal(t, 1, out.Connections)
}

func TestValidateClean(t *testing.T) {
	o := newOps(t, nil)
	res := o.Validate(context.Background(), ValidateInput{Description: divider})
	require.True(t, res.Success, "%+v", res.Errors)
	out := res.Payload.(*ValidateOutput)
	require.True(t, out.Valid)
	require.Equal(t, "Divider", out.Name)
	require.Equal(t, 2, out.Power)
}

func TestDecodeSummary(t *testing.T) {
	o := newOps(t, nil)
	doc := generated(t, o, divider).Schematic

	res := o.Decode(context.Background(), DecodeInput{Schematic: doc})
	require.True(t, res.Success, "%+v", res.Errors)
	sum := res.Payload.(*Summary)
	require.Equal(t, "Divider", sum.Title)
	require.Equal(t, "A4", sum.Paper)
	require.Equal(t, 4, sum.Counts.Components)
	require.Equal(t, 2, sum.Counts.Power)
	require.Equal(t, 3, sum.Counts.Nets)
	require.Positive(t, sum.Counts.Wires)

	bad := o.Decode(context.Background(), DecodeInput{Schematic: "(kicad_sch (version"})
	require.False(t, bad.Success)
	require.Equal(t, errors.ErrSyntax, bad.Errors[0].Kind)

	empty := o.Decode(context.Background(), DecodeInput{})
	require.Equal(t, errors.ErrInvalidRequest, empty.Errors[0].Kind)
}

func TestDecodeSharesCachedCircuit(t *testing.T) {
	o := newOps(t, nil)
	doc := generated(t, o, divider).Schematic

	first, err := o.decodeShared(doc)
	require.NoError(t, err)
	second, err := o.decodeShared(doc)
	require.NoError(t, err)
	require.Same(t, first, second)

	private, err := o.decode(doc)
	require.NoError(t, err)
	require.NotSame(t, first, private)
}

func TestDecodeReportsNameConflicts(t *testing.T) {
	o := newOps(t, store.NewMemoryStore())
	ctx := context.Background()

	c, err := o.decode(generated(t, o, divider).Schematic)
	require.NoError(t, err)
	r1, ok := c.Component("R1")
	require.True(t, ok)
	pin, ok := r1.Pin("1")
	require.True(t, ok)
	c.Labels = append(c.Labels, circuit.Label{Text: "AAA", At: r1.PinPoint(pin)})
	text, err := schematic.Marshal(c)
	require.NoError(t, err)

	res := o.Decode(ctx, DecodeInput{Schematic: string(text)})
	require.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "net is named both")
	_, ok = netNamed(res.Payload.(*Summary).Nets, "AAA")
	require.True(t, ok)

	require.True(t, o.SaveSchematic(ctx, SaveInput{Name: "clash", Schematic: string(text)}).Success)
	loaded := o.LoadSchematic(ctx, LoadInput{Name: "clash"})
	require.True(t, loaded.Success)
	require.Equal(t, res.Warnings, loaded.Warnings)
}

func TestExtractNetlist(t *testing.T) {
	o := newOps(t, nil)
	doc := generated(t, o, divider).Schematic

	res := o.ExtractNetlist(context.Background(), DecodeInput{Schematic: doc})
	require.True(t, res.Success)
	out := res.Payload.(*NetlistOutput)
	require.Empty(t, out.Unconnected)

	gnd, ok := netNamed(out.Nets, "GND")
	require.True(t, ok)
	require.Equal(t, []string{"#PWR02.1", "R2.2"}, gnd.Endpoints)
}

func TestAddComponentAutoPlacesAndNumbers(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()
	doc := generated(t, o, divider).Schematic

	res := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "res", Value: "1k", Footprint: "R_0603"})
	require.True(t, res.Success, "%+v", res.Errors)
	out := res.Payload.(*EditOutput)
	require.Equal(t, "R3", out.Ref)
	require.NotNil(t, out.Position)
	require.GreaterOrEqual(t, out.Position.X, 20.0)
	require.GreaterOrEqual(t, out.Position.Y, 20.0)

	power := o.AddComponent(ctx, AddComponentInput{Schematic: out.Schematic, Type: "+5V"})
	require.True(t, power.Success, "%+v", power.Errors)
	require.Equal(t, "#PWR03", power.Payload.(*EditOutput).Ref)

	sum := o.Decode(ctx, DecodeInput{Schematic: power.Payload.(*EditOutput).Schematic}).Payload.(*Summary)
	require.Equal(t, 6, sum.Counts.Components)
	i := slices.IndexFunc(sum.Components, func(c ComponentInfo) bool { return c.Ref == "R3" })
	require.GreaterOrEqual(t, i, 0)
	require.Equal(t, "1k", sum.Components[i].Value)
	require.Equal(t, "R_0603", sum.Components[i].Footprint)
}

func TestAddComponentRejects(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()
	doc := generated(t, o, divider).Schematic
	x, y := 51.0, 50.0

	overlap := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "capacitor", X: &x, Y: &y})
	require.False(t, overlap.Success)
	require.Equal(t, errors.ErrOverlap, overlap.Errors[0].Kind)

	dup := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "resistor", Ref: "R1"})
	require.False(t, dup.Success)

	unknown := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "flux_capacitor"})
	require.Equal(t, errors.ErrUnknownType, unknown.Errors[0].Kind)

	half := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "resistor", X: &x})
	require.Equal(t, errors.ErrInvalidRequest, half.Errors[0].Kind)
}

func TestConnectPins(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()
	doc := generated(t, o, divider).Schematic

	added := o.AddComponent(ctx, AddComponentInput{Schematic: doc, Type: "resistor"})
	require.True(t, added.Success, "%+v", added.Errors)

	res := o.ConnectPins(ctx, ConnectInput{Schematic: added.Payload.(*EditOutput).Schematic, From: "R3.1", To: "GND"})
	require.True(t, res.Success, "%+v", res.Errors)
	out := res.Payload.(*EditOutput)
	gnd, ok := netNamed(out.Nets, "GND")
	require.True(t, ok)
	require.Equal(t, []string{"#PWR02.1", "R2.2", "R3.1"}, gnd.Endpoints)
	require.Contains(t, res.Warnings, "pin R3.2 is not connected")

	conflict := o.ConnectPins(ctx, ConnectInput{Schematic: out.Schematic, From: "R1.1", To: "R2.2"})
	require.False(t, conflict.Success)
	require.Equal(t, errors.ErrNetConflict, conflict.Errors[0].Kind)

	badPin := o.ConnectPins(ctx, ConnectInput{Schematic: out.Schematic, From: "R1.7", To: "R3.2"})
	require.Equal(t, errors.ErrValidation, badPin.Errors[0].Kind)
}

func TestReport(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()

	res := o.Report(ctx, ReportInput{Description: divider, HTML: true})
	require.True(t, res.Success, "%+v", res.Errors)
	out := res.Payload.(*ReportOutput)
	require.True(t, out.Valid)
	require.Equal(t, 3, out.Nets)
	require.Contains(t, out.Markdown, "# Validation report: Divider")
	require.Contains(t, out.Markdown, "## ERRORS\n\nNone.")
	require.Contains(t, out.HTML, "<h2>ERRORS</h2>")
	require.Contains(t, out.HTML, "<strong>PASS</strong>")

	failing := o.Report(ctx, ReportInput{Description: "R1 resistor (50, 50)\nR2 resistor (52, 51)\n"})
	require.True(t, failing.Success)
	failed := failing.Payload.(*ReportOutput)
	require.False(t, failed.Valid)
	require.Contains(t, failed.Markdown, "`OVERLAP_ERROR`")
	require.Empty(t, failed.HTML)

	doc := generated(t, o, divider).Schematic
	fromDoc := o.Report(ctx, ReportInput{Schematic: doc})
	require.True(t, fromDoc.Success)
	require.True(t, fromDoc.Payload.(*ReportOutput).Valid)
	require.Equal(t, 4, fromDoc.Payload.(*ReportOutput).Components)

	none := o.Report(ctx, ReportInput{})
	require.Equal(t, errors.ErrInvalidRequest, none.Errors[0].Kind)
}

func TestGenerateBatch(t *testing.T) {
	o := newOps(t, nil)
	results, err := o.GenerateBatch(context.Background(), []GenerateInput{
		{Description: divider},
		{Description: "X1 flux_capacitor\n"},
		{Description: templates["led_blinker"].Text},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.Equal(t, errors.ErrUnknownType, results[1].Errors[0].Kind)
	require.True(t, results[2].Success)
	require.Equal(t, "LED Blinker", results[2].Payload.(*GenerateOutput).Title)
}

func TestGenerateBatchCancelled(t *testing.T) {
	o := newOps(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := o.GenerateBatch(ctx, []GenerateInput{{Description: divider}})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, results[0].Success)
}

func TestDocumentStore(t *testing.T) {
	o := newOps(t, store.NewMemoryStore())
	ctx := context.Background()

	res := o.Generate(ctx, GenerateInput{Description: divider, SaveAs: "divider"})
	require.True(t, res.Success, "%+v", res.Errors)
	require.Equal(t, "divider", res.Payload.(*GenerateOutput).SavedAs)

	saved := o.SaveSchematic(ctx, SaveInput{Name: "copy", Schematic: res.Payload.(*GenerateOutput).Schematic})
	require.True(t, saved.Success)

	listed := o.ListSchematics(ctx)
	require.True(t, listed.Success)
	infos := listed.Payload.(*ListOutput).Schematics
	require.Len(t, infos, 2)
	require.Equal(t, "copy", infos[0].Name)
	require.Equal(t, "divider", infos[1].Name)

	loaded := o.LoadSchematic(ctx, LoadInput{Name: "divider"})
	require.True(t, loaded.Success)
	require.Empty(t, loaded.Warnings)

	missing := o.LoadSchematic(ctx, LoadInput{Name: "nope"})
	require.Equal(t, errors.ErrNotFound, missing.Errors[0].Kind)

	garbage := o.SaveSchematic(ctx, SaveInput{Name: "bad", Schematic: "(kicad_sch"})
	require.False(t, garbage.Success)
	require.Equal(t, errors.ErrSyntax, garbage.Errors[0].Kind)
}

func TestDocumentStoreMissing(t *testing.T) {
	o := newOps(t, nil)
	ctx := context.Background()

	for _, res := range []*Result{
		o.ListSchematics(ctx),
		o.LoadSchematic(ctx, LoadInput{Name: "divider"}),
		o.SaveSchematic(ctx, SaveInput{Name: "divider", Schematic: "(kicad_sch)"}),
		o.Generate(ctx, GenerateInput{Description: divider, SaveAs: "divider"}),
	} {
		require.False(t, res.Success)
		require.Equal(t, errors.ErrInvalidRequest, res.Errors[0].Kind)
	}
}
