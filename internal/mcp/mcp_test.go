package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/internal/store"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
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

// testSetup creates handlers backed by an in-memory document store.
func testSetup(t *testing.T) (*Handlers, *ops.Ops, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	o, err := ops.New(cfg, store.NewMemoryStore())
	if err != nil {
		t.Fatalf("ops.New failed: %v", err)
	}
	return NewHandlers(o), o, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

type body struct {
	Success  bool            `json:"success"`
	Payload  json.RawMessage `json:"payload"`
	Errors   []ops.ErrorInfo `json:"errors"`
	Warnings []string        `json:"warnings"`
}

func parse(t *testing.T, result *mcp.CallToolResult) body {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	var b body
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &b); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result.IsError == b.Success {
		t.Errorf("IsError = %v but success = %v", result.IsError, b.Success)
	}
	return b
}

func payload[T any](t *testing.T, b body) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b.Payload, &out); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	return out
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) body {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return parse(t, result)
}

func TestHandleGenerate(t *testing.T) {
	h, _, _ := testSetup(t)

	tests := []struct {
		name     string
		args     map[string]any
		wantKind errors.Kind
	}{
		{name: "line description", args: map[string]any{"description": divider}},
		{name: "explicit format", args: map[string]any{"description": divider, "format": "line"}},
		{name: "template", args: map[string]any{"template": "rc_filter"}},
		{name: "nothing", args: map[string]any{}, wantKind: errors.ErrInvalidRequest},
		{name: "bad format", args: map[string]any{"description": divider, "format": "xml"}, wantKind: errors.ErrInvalidRequest},
		{name: "unknown template", args: map[string]any{"template": "theremin"}, wantKind: errors.ErrNotFound},
		{name: "unknown type", args: map[string]any{"description": "X1 flux_capacitor (50, 50)"}, wantKind: errors.ErrUnknownType},
		{name: "wrong argument type", args: map[string]any{"description": 42}, wantKind: errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := call(t, h.HandleGenerate, tt.args)
			if tt.wantKind == "" {
				if !b.Success {
					t.Fatalf("unexpected failure: %+v", b.Errors)
				}
				out := payload[ops.GenerateOutput](t, b)
				if !strings.HasPrefix(out.Schematic, "(kicad_sch") {
					t.Errorf("schematic does not start with (kicad_sch: %.40q", out.Schematic)
				}
				return
			}
			if b.Success || len(b.Errors) == 0 {
				t.Fatalf("expected %s, got success", tt.wantKind)
			}
			if b.Errors[0].Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", b.Errors[0].Kind, tt.wantKind)
			}
		})
	}
}

func TestHandleValidate(t *testing.T) {
	h, _, _ := testSetup(t)

	b := call(t, h.HandleValidate, map[string]any{"description": "R1 resistor (50, 50)\nR2 resistor (52, 51)\nX1 flux_capacitor\n"})
	if b.Success {
		t.Fatal("expected validation failure")
	}
	if len(b.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %+v", len(b.Errors), b.Errors)
	}
	if b.Errors[0].Kind != errors.ErrUnknownType || b.Errors[0].Line != 3 {
		t.Errorf("first error = %+v, want UNKNOWN_COMPONENT_TYPE on line 3", b.Errors[0])
	}

	clean := call(t, h.HandleValidate, map[string]any{"description": divider})
	if !clean.Success || !payload[ops.ValidateOutput](t, clean).Valid {
		t.Errorf("divider should validate: %+v", clean.Errors)
	}
}

func TestMistypedArgument(t *testing.T) {
	h, _, _ := testSetup(t)

	b := call(t, h.HandleDecode, map[string]any{"schematic": 42})
	if b.Success || len(b.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", b)
	}
	e := b.Errors[0]
	if e.Kind != errors.ErrInvalidRequest {
		t.Errorf("kind = %s, want INVALID_REQUEST", e.Kind)
	}
	if !strings.Contains(e.Message, "argument schematic") || e.Details["argument"] != "schematic" {
		t.Errorf("error does not name the argument: %+v", e)
	}
}

func TestEditingWorkflow(t *testing.T) {
	h, _, _ := testSetup(t)

	gen := call(t, h.HandleGenerate, map[string]any{"description": divider})
	doc := payload[ops.GenerateOutput](t, gen).Schematic

	added := call(t, h.HandleAddComponent, map[string]any{
		"schematic": doc,
		"type":      "capacitor",
		"value":     "100nF",
		"x":         120.0,
		"y":         100.0,
		"rotation":  90,
	})
	if !added.Success {
		t.Fatalf("add_component failed: %+v", added.Errors)
	}
	edit := payload[ops.EditOutput](t, added)
	if edit.Ref != "C1" || edit.Position == nil || edit.Position.Rotation != 90 {
		t.Errorf("unexpected edit output %+v", edit)
	}

	connected := call(t, h.HandleConnect, map[string]any{
		"schematic": edit.Schematic,
		"from":      "C1.1",
		"to":        "R1.2",
		"net":       "MID",
	})
	if !connected.Success {
		t.Fatalf("connect_pins failed: %+v", connected.Errors)
	}
	doc = payload[ops.EditOutput](t, connected).Schematic

	nets := call(t, h.HandleNetlist, map[string]any{"schematic": doc})
	found := false
	for _, n := range payload[ops.NetlistOutput](t, nets).Nets {
		if n.Name == "MID" {
			found = len(n.Endpoints) == 3
		}
	}
	if !found {
		t.Errorf("net MID with three pins missing: %s", nets.Payload)
	}

	summary := call(t, h.HandleDecode, map[string]any{"schematic": doc})
	if got := payload[ops.Summary](t, summary).Counts.Components; got != 5 {
		t.Errorf("components = %d, want 5", got)
	}
}

func TestHandleReport(t *testing.T) {
	h, _, _ := testSetup(t)

	b := call(t, h.HandleReport, map[string]any{"description": divider, "html": true})
	if !b.Success {
		t.Fatalf("validation_report failed: %+v", b.Errors)
	}
	out := payload[ops.ReportOutput](t, b)
	if !out.Valid || !strings.Contains(out.HTML, "<h2>WARNINGS</h2>") {
		t.Errorf("unexpected report %+v", out)
	}
}

func TestTemplateTools(t *testing.T) {
	h, _, _ := testSetup(t)

	list := payload[[]ops.Template](t, call(t, h.HandleListTemplates, nil))
	if len(list) != 6 {
		t.Fatalf("got %d templates, want 6", len(list))
	}

	got := call(t, h.HandleGetTemplate, map[string]any{"name": "led_blinker"})
	if tmpl := payload[ops.Template](t, got); !strings.Contains(tmpl.Text, "D1.cathode -> GND") {
		t.Errorf("unexpected template text %q", tmpl.Text)
	}
}

func TestStoreTools(t *testing.T) {
	h, _, _ := testSetup(t)

	gen := call(t, h.HandleGenerate, map[string]any{"template": "voltage_divider", "save_as": "vd"})
	if !gen.Success {
		t.Fatalf("generate failed: %+v", gen.Errors)
	}
	doc := payload[ops.GenerateOutput](t, gen).Schematic

	if b := call(t, h.HandleSave, map[string]any{"name": "vd-copy", "schematic": doc}); !b.Success {
		t.Fatalf("save failed: %+v", b.Errors)
	}

	list := payload[ops.ListOutput](t, call(t, h.HandleListSchematics, nil))
	if len(list.Schematics) != 2 || list.Schematics[0].Name != "vd" {
		t.Errorf("unexpected list %+v", list.Schematics)
	}

	loaded := call(t, h.HandleLoad, map[string]any{"name": "vd"})
	var doc2 struct {
		Text    string       `json:"text"`
		Summary *ops.Summary `json:"summary"`
	}
	if err := json.Unmarshal(loaded.Payload, &doc2); err != nil {
		t.Fatalf("failed to unmarshal load payload: %v", err)
	}
	if doc2.Text != doc || doc2.Summary == nil || doc2.Summary.Title != "Voltage Divider" {
		t.Errorf("loaded document does not match the saved one")
	}

	missing := call(t, h.HandleLoad, map[string]any{"name": "nope"})
	if missing.Success || missing.Errors[0].Kind != errors.ErrNotFound {
		t.Errorf("expected NOT_FOUND, got %+v", missing.Errors)
	}
}

func TestServerRegistration(t *testing.T) {
	_, o, cfg := testSetup(t)

	s := NewServer(o, cfg, "test")
	tools := s.ListTools()
	names := AllToolNames()
	if len(tools) != len(names) || len(names) != 12 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(names))
	}
	for _, name := range names {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	_, o, cfg := testSetup(t)
	cfg.DisabledTools = []string{"save_schematic", "load_schematic", "list_schematics"}

	tools := NewServer(o, cfg, "test").ListTools()
	if len(tools) != 9 {
		t.Errorf("registered tool count = %d, want 9", len(tools))
	}
	if _, ok := tools["save_schematic"]; ok {
		t.Error("save_schematic should be disabled")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"generate_schematic", "capsule_store"})
	if len(unknown) != 1 || unknown[0] != "capsule_store" {
		t.Errorf("unknown = %v, want [capsule_store]", unknown)
	}
}
