package describe

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// ValidateOptions controls a validation run.
type ValidateOptions struct {
	Format Format
	Table  *symlib.Table
	// Layout overrides the placement parameters. A zero value means
	// layout.DefaultOptions().
	Layout *layout.Options
}

// Diagnostics is the outcome of a validation run.
type Diagnostics struct {
	Description *Description
	Errors      []error
	Warnings    []string
}

// OK reports whether no errors were found.
func (d *Diagnostics) OK() bool {
	return len(d.Errors) == 0
}

// Validate checks a description without producing a document: it parses,
// builds, lays out and resolves connectivity, collecting every diagnostic
// along the way. Parse errors end the run since nothing can be built from
// them; connectivity is only checked when every component was built. The
// returned error is non-nil only when ctx is done.
func Validate(ctx context.Context, src string, opts ValidateOptions) (*Diagnostics, error) {
	diag := &Diagnostics{}
	desc, errs := ParseAll(src, opts.Format)
	diag.Description = desc
	if len(errs) > 0 {
		diag.Errors = errs
		return diag, nil
	}

	draft, errs := BuildAll(desc, opts.Table)
	diag.Errors = append(diag.Errors, errs...)

	lo := layout.DefaultOptions()
	if opts.Layout != nil {
		lo = *opts.Layout
	}
	lo.Table = opts.Table
	lo.Collect = true
	placed, err := layout.Place(ctx, draft.Circuit, lo)
	if err != nil {
		return diag, err
	}
	diag.Errors = append(diag.Errors, placed.Errors...)

	if len(errs) > 0 {
		return diag, nil
	}

	report, err := netlist.Resolve(ctx, draft.Circuit, draft.Connections, netlist.Options{
		Table:        opts.Table,
		Aliases:      draft.Aliases,
		ValidateOnly: true,
	})
	if err != nil {
		return diag, err
	}
	diag.Errors = append(diag.Errors, report.Errors...)
	diag.Warnings = append(diag.Warnings, report.Warnings...)
	return diag, nil
}
