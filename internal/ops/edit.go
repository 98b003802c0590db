package ops

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// AddComponentInput contains parameters for the AddComponent operation.
type AddComponentInput struct {
	Schematic string `json:"schematic"`
	Type      string `json:"type"`
	// Ref defaults to the next free reference for the type's prefix.
	Ref   string `json:"ref,omitempty"`
	Value string `json:"value,omitempty"`
	// X and Y are both set or both omitted; omitted means auto-placed.
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Rotation  int      `json:"rotation,omitempty"`
	Footprint string   `json:"footprint,omitempty"`
}

// ConnectInput contains parameters for the ConnectPins operation.
type ConnectInput struct {
	Schematic string `json:"schematic"`
	From      string `json:"from"`
	To        string `json:"to"`
	Net       string `json:"net,omitempty"`
}

// EditOutput is an updated document.
type EditOutput struct {
	Schematic string            `json:"schematic"`
	Ref       string            `json:"ref,omitempty"`
	Position  *circuit.Position `json:"position,omitempty"`
	Nets      []NetInfo         `json:"nets,omitempty"`
}

// AddComponent adds a component to a document. Without a position the
// component is placed in the first free spot.
func (o *Ops) AddComponent(ctx context.Context, in AddComponentInput) *Result {
	if strings.TrimSpace(in.Type) == "" {
		return failure(nil, nil, errors.NewInvalidRequest("type is required"))
	}
	if (in.X == nil) != (in.Y == nil) {
		return failure(nil, nil, errors.NewInvalidRequest("x and y must be given together"))
	}
	c, err := o.decode(in.Schematic)
	if err != nil {
		return failure(nil, nil, err)
	}

	typ, power := o.lookupType(in.Type)
	if typ == nil {
		return failure(nil, nil, errors.NewUnknownComponentType(in.Type, 0))
	}

	ref := strings.TrimSpace(in.Ref)
	if ref == "" {
		ref = nextRef(c, typ.RefPrefix, power)
	}
	value := in.Value
	if value == "" {
		value = typ.Symbol
	}
	var pos circuit.Position
	if in.X != nil {
		pos = circuit.Position{X: *in.X, Y: *in.Y, Rotation: in.Rotation}
	} else {
		pos.Rotation = in.Rotation
	}

	comp, err := circuit.NewComponent(ref, typ.LibID(), value, pos, typ.CircuitPins())
	if err != nil {
		return failure(nil, nil, err)
	}
	comp.Type = typ.Keyword
	comp.Placed = in.X != nil
	comp.UUID = circuit.SymbolUUID(comp.Ref)
	if power {
		comp.Power = true
		comp.InBOM, comp.OnBoard = false, false
	}
	if in.Footprint != "" {
		comp.SetProperty("Footprint", in.Footprint)
	}
	if err := c.AddComponent(comp); err != nil {
		return failure(nil, nil, err)
	}

	opts := o.layoutOptions(c)
	opts.Collect = true
	placed, err := layout.Place(ctx, c, opts)
	if err != nil {
		return failure(nil, nil, err)
	}
	var warnings []string
	for _, perr := range placed.Errors {
		if mentions(perr, ref) {
			return failure(nil, warnings, perr)
		}
		warnings = append(warnings, "existing layout: "+perr.Error())
	}

	text, err := o.mapper.Marshal(c)
	if err != nil {
		return failure(nil, warnings, err)
	}
	return success(&EditOutput{Schematic: string(text), Ref: ref, Position: &comp.Position}, warnings)
}

// ConnectPins joins two pins of a document, drawing the wire and updating
// the nets.
func (o *Ops) ConnectPins(ctx context.Context, in ConnectInput) *Result {
	if strings.TrimSpace(in.From) == "" || strings.TrimSpace(in.To) == "" {
		return failure(nil, nil, errors.NewInvalidRequest("from and to are required"))
	}
	c, err := o.decode(in.Schematic)
	if err != nil {
		return failure(nil, nil, err)
	}

	report, err := netlist.Resolve(ctx, c, []netlist.Connection{{From: in.From, To: in.To, Net: in.Net}}, netlist.Options{
		Table:   o.table,
		Route:   true,
		Partial: true,
	})
	if err != nil {
		return failure(nil, report.Warnings, err)
	}

	text, err := o.mapper.Marshal(c)
	if err != nil {
		return failure(nil, report.Warnings, err)
	}
	return success(&EditOutput{Schematic: string(text), Nets: netInfos(c.Nets)}, report.Warnings)
}

// lookupType finds a component type, falling back to power ports.
func (o *Ops) lookupType(keyword string) (*symlib.Type, bool) {
	if typ, ok := o.table.Lookup(keyword); ok && !typ.Power {
		return typ, false
	}
	if typ, ok := o.table.Power(keyword); ok {
		return typ, true
	}
	return nil, false
}

// nextRef returns the first unused reference after the highest numbered one
// with the given prefix.
func nextRef(c *circuit.Circuit, prefix string, power bool) string {
	highest := 0
	for _, comp := range c.Components() {
		rest, ok := strings.CutPrefix(comp.Ref, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	if power {
		return fmt.Sprintf("%s%02d", prefix, highest+1)
	}
	return fmt.Sprintf("%s%d", prefix, highest+1)
}

func mentions(err error, ref string) bool {
	e, ok := err.(*errors.Error)
	return ok && slices.Contains(e.Refs, ref)
}
