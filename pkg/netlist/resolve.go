package netlist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Connection asks for two pins to be joined. Each side is written as
// REF.PIN or as a bare REF standing for the component's sole or default
// pin. Net optionally names the resulting net.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
	Net  string `json:"net,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (c Connection) String() string {
	return c.From + " -> " + c.To
}

// Options controls a resolution run.
type Options struct {
	// Table resolves pin names, aliases and default pins. Defaults to
	// symlib.Default().
	Table *symlib.Table
	// Aliases maps names used in connections to component references,
	// e.g. a description's power node name to its #PWR reference.
	Aliases map[string]string
	// ValidateOnly collects every diagnostic instead of stopping at the
	// first error and leaves the circuit untouched.
	ValidateOnly bool
	// Route adds wires, junctions and labels for the new connections.
	Route bool
	// Partial reports unconnected power inputs as warnings, for documents
	// that are still being wired.
	Partial bool
}

// Report is the outcome of a resolution run.
type Report struct {
	Errors      []error
	Warnings    []string
	Unconnected []circuit.Endpoint
}

// Err returns the first error, if any.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

type resolver struct {
	ckt    *circuit.Circuit
	opts   Options
	sets   *Sets[circuit.Endpoint]
	report *Report
}

// Resolve joins the given connections into the circuit's nets. Existing nets
// seed the structure and power symbols name the nets they sit on. The
// context is checked between connections; the circuit is only modified once
// every connection has been integrated.
func Resolve(ctx context.Context, ckt *circuit.Circuit, conns []Connection, opts Options) (*Report, error) {
	if opts.Table == nil {
		opts.Table = symlib.Default()
	}
	r := &resolver{
		ckt:    ckt,
		opts:   opts,
		sets:   NewSets[circuit.Endpoint](),
		report: &Report{},
	}

	if err := r.seed(); err != nil {
		if !opts.ValidateOnly {
			return r.report, err
		}
		r.report.Errors = append(r.report.Errors, err)
	}

	type joined struct{ a, b circuit.Endpoint }
	var routed []joined

	for _, conn := range conns {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}

		a, b, err := r.apply(conn)
		if err != nil {
			if !opts.ValidateOnly {
				return r.report, err
			}
			r.report.Errors = append(r.report.Errors, err)
			continue
		}
		routed = append(routed, joined{a, b})
	}

	nets := r.collect()
	r.check(nets)

	if opts.ValidateOnly {
		return r.report, nil
	}
	if err := r.report.Err(); err != nil {
		return r.report, err
	}

	ckt.Nets = nets
	ckt.SortNets()

	if opts.Route {
		for _, j := range routed {
			if !RouteConnection(ckt, j.a, j.b) {
				r.report.Warnings = append(r.report.Warnings,
					fmt.Sprintf("no clear wire path from %s to %s; joined by labels", j.a, j.b))
			}
		}
		AddJunctions(ckt)
		AddLabels(ckt)
	}
	return r.report, nil
}

// seed loads existing nets and power symbol names.
func (r *resolver) seed() error {
	for _, c := range r.ckt.Components() {
		for _, p := range c.Pins {
			r.sets.Add(circuit.Endpoint{Ref: c.Ref, Pin: p.Number})
		}
	}

	for _, n := range r.ckt.Nets {
		for i, ep := range n.Endpoints {
			if i > 0 {
				if err := r.sets.Union(n.Endpoints[0], ep); err != nil {
					return withRefs(err, n.Endpoints[0], ep)
				}
			}
		}
		if !n.Anonymous && len(n.Endpoints) > 0 {
			if err := r.sets.SetName(n.Endpoints[0], n.Name); err != nil {
				return withRefs(err, n.Endpoints[0])
			}
		}
	}

	for _, c := range r.ckt.Components() {
		if !c.Power || len(c.Pins) == 0 || c.Value == "" {
			continue
		}
		ep := circuit.Endpoint{Ref: c.Ref, Pin: c.Pins[0].Number}
		if err := r.sets.SetName(ep, c.Value); err != nil {
			return withRefs(err, ep)
		}
	}
	return nil
}

// apply integrates one connection or leaves the sets unchanged.
func (r *resolver) apply(conn Connection) (circuit.Endpoint, circuit.Endpoint, error) {
	a, err := r.endpoint(conn.From, conn.Line)
	if err != nil {
		return a, a, err
	}
	b, err := r.endpoint(conn.To, conn.Line)
	if err != nil {
		return a, b, err
	}

	if conn.Net != "" {
		if name := r.sets.Name(a); name != "" && name != conn.Net {
			return a, b, lineErr(withRefs(errors.NewNetConflict(name, conn.Net), a), conn.Line)
		}
		if name := r.sets.Name(b); name != "" && name != conn.Net {
			return a, b, lineErr(withRefs(errors.NewNetConflict(name, conn.Net), b), conn.Line)
		}
	}

	if err := r.sets.Union(a, b); err != nil {
		return a, b, lineErr(withRefs(err, a, b), conn.Line)
	}
	if conn.Net != "" {
		if err := r.sets.SetName(a, conn.Net); err != nil {
			return a, b, lineErr(withRefs(err, a, b), conn.Line)
		}
	}
	return a, b, nil
}

// endpoint resolves REF.PIN or REF to an existing pin.
func (r *resolver) endpoint(raw string, line int) (circuit.Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if c, ok := r.component(raw); ok {
		pin, ok := r.opts.Table.DefaultPin(c)
		if !ok {
			return circuit.Endpoint{}, lineErr(errors.NewValidation(
				fmt.Sprintf("%s has %d pins; name one as %s.<pin>", raw, len(c.Pins), raw), c.Ref), line)
		}
		return circuit.Endpoint{Ref: c.Ref, Pin: pin}, nil
	}

	dot := strings.LastIndex(raw, ".")
	if dot <= 0 || dot == len(raw)-1 {
		return circuit.Endpoint{}, lineErr(errors.NewValidation(
			fmt.Sprintf("unknown component %s", raw), raw), line)
	}
	ref, key := raw[:dot], raw[dot+1:]

	c, ok := r.component(ref)
	if !ok {
		return circuit.Endpoint{}, lineErr(errors.NewValidation(
			fmt.Sprintf("unknown component %s in %s", ref, raw), ref), line)
	}
	pin, ok := r.opts.Table.ResolvePin(c, key)
	if !ok {
		return circuit.Endpoint{}, lineErr(errors.NewValidation(
			fmt.Sprintf("component %s has no pin %s", ref, key), ref), line)
	}
	return circuit.Endpoint{Ref: c.Ref, Pin: pin}, nil
}

// component finds a component by reference, alias, or power symbol value.
func (r *resolver) component(name string) (*circuit.Component, bool) {
	if ref, ok := r.opts.Aliases[name]; ok {
		name = ref
	}
	if c, ok := r.ckt.Component(name); ok {
		return c, true
	}
	for _, c := range r.ckt.Components() {
		if c.Power && c.Value == name {
			return c, true
		}
	}
	return nil, false
}

// collect turns the sets into nets, naming anonymous ones NET_<n> in
// canonical endpoint order.
func (r *resolver) collect() []*circuit.Net {
	var nets []*circuit.Net
	used := make(map[string]bool)

	for _, group := range r.sets.Groups() {
		name := r.sets.Name(group[0])
		if len(group) < 2 && name == "" {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Less(group[j]) })
		nets = append(nets, &circuit.Net{Name: name, Endpoints: group, Anonymous: name == ""})
		if name != "" {
			used[name] = true
		}
	}

	NameAnonymous(nets, used)
	return nets
}

// NameAnonymous assigns NET_<n> to nets without a name, numbering them in
// order of their first endpoint and skipping names already in use.
func NameAnonymous(nets []*circuit.Net, used map[string]bool) {
	var anon []*circuit.Net
	for _, n := range nets {
		if n.Name == "" {
			anon = append(anon, n)
		}
	}
	sort.Slice(anon, func(i, j int) bool {
		return anon[i].Endpoints[0].Less(anon[j].Endpoints[0])
	})

	next := 0
	for _, n := range anon {
		for used[fmt.Sprintf("NET_%d", next)] {
			next++
		}
		n.Name = fmt.Sprintf("NET_%d", next)
		n.Anonymous = true
		used[n.Name] = true
		next++
	}
}

// check reports unconnected pins and nets driven by several outputs.
func (r *resolver) check(nets []*circuit.Net) {
	connected := make(map[circuit.Endpoint]bool)
	for _, n := range nets {
		if len(n.Endpoints) < 2 {
			continue
		}
		for _, ep := range n.Endpoints {
			connected[ep] = true
		}
	}

	for _, c := range r.ckt.Components() {
		for _, p := range c.Pins {
			ep := circuit.Endpoint{Ref: c.Ref, Pin: p.Number}
			if connected[ep] || p.Type == circuit.PinUnconnected {
				continue
			}
			r.report.Unconnected = append(r.report.Unconnected, ep)
			if p.Type == circuit.PinPowerIn && !r.opts.Partial {
				r.report.Errors = append(r.report.Errors, errors.NewValidation(
					fmt.Sprintf("power input pin %s is not connected", ep), c.Ref))
				continue
			}
			r.report.Warnings = append(r.report.Warnings, fmt.Sprintf("pin %s is not connected", ep))
		}
	}

	for _, n := range nets {
		var drivers []string
		for _, ep := range n.Endpoints {
			c, _ := r.ckt.Component(ep.Ref)
			if c == nil {
				continue
			}
			if p, ok := c.Pin(ep.Pin); ok && (p.Type == circuit.PinOutput || p.Type == circuit.PinPowerOut) {
				drivers = append(drivers, ep.String())
			}
		}
		if len(drivers) > 1 {
			r.report.Warnings = append(r.report.Warnings,
				fmt.Sprintf("net %s is driven by %s", n.Name, strings.Join(drivers, ", ")))
		}
	}
}

func withRefs(err error, eps ...circuit.Endpoint) error {
	if e, ok := err.(*errors.Error); ok {
		for _, ep := range eps {
			e.Refs = append(e.Refs, ep.String())
		}
	}
	return err
}

func lineErr(err error, line int) error {
	if e, ok := err.(*errors.Error); ok && line > 0 && e.Line == 0 {
		e.Line = line
	}
	return err
}
