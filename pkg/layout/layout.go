// Package layout places components on the sheet. Explicit positions are
// checked against the sheet boundary and against every previously accepted
// component; components without a position are packed into rows.
package layout

import (
	"context"
	"math"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Default layout parameters in millimeters.
const (
	DefaultMargin    = 20.0
	DefaultRowHeight = 20.32
	DefaultGap       = 10.16
	DefaultGrid      = 1.27
)

// Options controls placement.
type Options struct {
	// Table supplies footprints. Defaults to symlib.Default().
	Table *symlib.Table
	// Sheet is the usable area. A zero box means the circuit's paper less
	// DefaultMargin.
	Sheet     circuit.BoundingBox
	RowHeight float64
	Gap       float64
	// Grid snaps auto-placed positions; zero disables snapping.
	Grid float64
	// Collect records every placement error instead of stopping at the
	// first one.
	Collect bool
}

// DefaultOptions returns the default parameters with the sheet taken from
// the circuit.
func DefaultOptions() Options {
	return Options{
		RowHeight: DefaultRowHeight,
		Gap:       DefaultGap,
		Grid:      DefaultGrid,
	}
}

// Placement is an accepted component box.
type Placement struct {
	Ref string
	Box circuit.BoundingBox
}

// Report lists accepted boxes in placement order and, in collect mode, the
// placement errors.
type Report struct {
	Placements []Placement
	Errors     []error
}

// Err returns the first placement error, if any.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Usage returns the share of the sheet area covered by placed boxes.
func (r *Report) Usage(sheet circuit.BoundingBox) float64 {
	area := sheet.Width() * sheet.Height()
	if area <= 0 {
		return 0
	}
	var used float64
	for _, p := range r.Placements {
		used += p.Box.Width() * p.Box.Height()
	}
	return used / area
}

type engine struct {
	opts   Options
	report *Report
}

// Place validates explicit positions in declaration order, then assigns
// positions to unplaced components. The context is checked between
// components; a component is either fully placed or left untouched.
func Place(ctx context.Context, c *circuit.Circuit, opts Options) (*Report, error) {
	if opts.Table == nil {
		opts.Table = symlib.Default()
	}
	if opts.Sheet == (circuit.BoundingBox{}) {
		opts.Sheet = SheetOf(c, DefaultMargin)
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = DefaultRowHeight
	}
	if opts.Gap < 0 {
		opts.Gap = 0
	}

	e := &engine{opts: opts, report: &Report{}}

	for _, comp := range c.Components() {
		if !comp.Placed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.report, err
		}
		if err := e.check(comp); err != nil {
			if !opts.Collect {
				return e.report, err
			}
			e.report.Errors = append(e.report.Errors, err)
		}
	}

	cursor := opts.Sheet.Min
	for _, comp := range c.Components() {
		if comp.Placed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.report, err
		}
		next, err := e.autoPlace(comp, cursor)
		if err != nil {
			if !opts.Collect {
				return e.report, err
			}
			e.report.Errors = append(e.report.Errors, err)
			continue
		}
		cursor = next
	}

	return e.report, nil
}

// Footprint returns the sheet box of c at its current position.
func Footprint(table *symlib.Table, c *circuit.Component) circuit.BoundingBox {
	w, h := table.Footprint(c)
	return circuit.BoxAround(c.Position.Point(), w, h)
}

// check validates an explicitly positioned component.
func (e *engine) check(c *circuit.Component) error {
	box := Footprint(e.opts.Table, c)
	if !e.opts.Sheet.ContainsBox(box) {
		return errors.NewBoundary(c.Ref, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y)
	}
	for _, p := range e.report.Placements {
		if region, ok := p.Box.Overlap(box); ok {
			return errors.NewOverlap(p.Ref, c.Ref, region.Min.X, region.Min.Y, region.Max.X, region.Max.Y)
		}
	}
	e.accept(c.Ref, box)
	return nil
}

func (e *engine) accept(ref string, box circuit.BoundingBox) {
	e.report.Placements = append(e.report.Placements, Placement{Ref: ref, Box: box})
}

// autoPlace scans rows left to right from cursor for the first free spot,
// returning the cursor for the next component.
func (e *engine) autoPlace(c *circuit.Component, cursor circuit.Point) (circuit.Point, error) {
	sheet := e.opts.Sheet
	w, h := e.opts.Table.Footprint(c)
	rowHeight := math.Max(e.opts.RowHeight, h)

	x, top := cursor.X, cursor.Y
	for top+h <= sheet.Max.Y {
		if x+w > sheet.Max.X {
			x, top = sheet.Min.X, top+rowHeight
			continue
		}

		center := e.snap(circuit.Point{X: x + w/2, Y: top + rowHeight/2})
		box := circuit.BoxAround(center, w, h)
		if !sheet.ContainsBox(box) {
			x += e.step()
			continue
		}
		if blocker, ok := e.blocking(box); ok {
			x = math.Max(x+e.step(), blocker.Max.X+e.opts.Gap)
			continue
		}

		c.Position.X, c.Position.Y = center.X, center.Y
		c.Placed = true
		e.accept(c.Ref, box)
		return circuit.Point{X: box.Max.X + e.opts.Gap, Y: top}, nil
	}

	box := circuit.BoxAround(sheet.Max, w, h)
	return cursor, errors.NewBoundary(c.Ref, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y)
}

// blocking returns the first accepted box overlapping box.
func (e *engine) blocking(box circuit.BoundingBox) (circuit.BoundingBox, bool) {
	for _, p := range e.report.Placements {
		if p.Box.Intersects(box) {
			return p.Box, true
		}
	}
	return circuit.BoundingBox{}, false
}

func (e *engine) step() float64 {
	if e.opts.Grid > 0 {
		return e.opts.Grid
	}
	return 1
}

func (e *engine) snap(p circuit.Point) circuit.Point {
	g := e.opts.Grid
	if g <= 0 {
		return p
	}
	return circuit.Point{X: math.Round(p.X/g) * g, Y: math.Round(p.Y/g) * g}.Round()
}
