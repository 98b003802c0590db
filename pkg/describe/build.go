package describe

import (
	stderrors "errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Draft is a circuit built from a description, before layout and
// connectivity resolution.
type Draft struct {
	Circuit *circuit.Circuit
	// Aliases maps power port names used in connections to #PWR references.
	Aliases     map[string]string
	Connections []netlist.Connection
}

// Build materializes a description, stopping at the first error.
func Build(desc *Description, table *symlib.Table) (*Draft, error) {
	draft, errs := build(desc, table, false)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return draft, nil
}

// BuildAll materializes a description and returns every error. Entries that
// fail are left out of the draft.
func BuildAll(desc *Description, table *symlib.Table) (*Draft, []error) {
	return build(desc, table, true)
}

func build(desc *Description, table *symlib.Table, collect bool) (*Draft, []error) {
	if table == nil {
		table = symlib.Default()
	}
	ckt := circuit.New()
	ckt.Meta.Title = desc.Name
	ckt.Meta.UUID = circuit.SheetUUID(desc.Name)

	draft := &Draft{Circuit: ckt, Aliases: make(map[string]string)}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return !collect
	}

	for _, decl := range desc.Components {
		if err := addComponent(ckt, table, decl); err != nil && fail(err) {
			return nil, errs
		}
	}

	for i, decl := range desc.Power {
		ref := fmt.Sprintf("#PWR%02d", i+1)
		if err := addPower(ckt, table, ref, decl); err != nil {
			if fail(err) {
				return nil, errs
			}
			continue
		}
		if decl.Name != decl.Symbol {
			if _, taken := ckt.Component(decl.Name); taken {
				err := atLine(errors.NewValidation(
					fmt.Sprintf("power port %s clashes with component %s", decl.Name, decl.Name), decl.Name), decl.Line)
				if fail(err) {
					return nil, errs
				}
				continue
			}
		}
		draft.Aliases[decl.Name] = ref
	}

	for _, decl := range desc.Connections {
		draft.Connections = append(draft.Connections, netlist.Connection{
			From: decl.From,
			To:   decl.To,
			Net:  decl.Net,
			Line: decl.Line,
		})
	}
	return draft, errs
}

func addComponent(ckt *circuit.Circuit, table *symlib.Table, decl ComponentDecl) error {
	typ, ok := table.Lookup(decl.Type)
	if !ok || typ.Power {
		return errors.NewUnknownComponentType(decl.Type, decl.Line)
	}
	value := decl.Value
	if value == "" {
		value = typ.Symbol
	}

	var pos circuit.Position
	if decl.Position != nil {
		pos = *decl.Position
	}
	comp, err := circuit.NewComponent(decl.Ref, typ.LibID(), value, pos, typ.CircuitPins())
	if err != nil {
		return atLine(err, decl.Line)
	}
	comp.Type = typ.Keyword
	comp.Placed = decl.Position != nil
	comp.UUID = circuit.SymbolUUID(comp.Ref)
	return atLine(ckt.AddComponent(comp), decl.Line)
}

func addPower(ckt *circuit.Circuit, table *symlib.Table, ref string, decl PowerDecl) error {
	typ, ok := table.Power(decl.Symbol)
	if !ok {
		return errors.NewUnknownComponentType(decl.Symbol, decl.Line)
	}

	var pos circuit.Position
	if decl.Position != nil {
		pos = *decl.Position
	}
	comp, err := circuit.NewComponent(ref, typ.LibID(), typ.Symbol, pos, typ.CircuitPins())
	if err != nil {
		return atLine(err, decl.Line)
	}
	comp.Type = typ.Keyword
	comp.Power = true
	comp.InBOM, comp.OnBoard = false, false
	comp.Placed = decl.Position != nil
	comp.UUID = circuit.SymbolUUID(comp.Ref)
	return atLine(ckt.AddComponent(comp), decl.Line)
}

// atLine attaches a source line to a structured error that has none.
func atLine(err error, line int) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Line == 0 {
		e.Line = line
	}
	return err
}
