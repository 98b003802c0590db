package ops

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
)

// ValidateInput contains parameters for the Validate operation.
type ValidateInput struct {
	Description string          `json:"description"`
	Format      describe.Format `json:"-"`
}

// ValidateOutput summarizes a validated description.
type ValidateOutput struct {
	Valid       bool   `json:"valid"`
	Name        string `json:"name,omitempty"`
	Components  int    `json:"components"`
	Power       int    `json:"power"`
	Connections int    `json:"connections"`
}

// Validate checks a description without generating a document and reports
// every diagnostic it finds.
func (o *Ops) Validate(ctx context.Context, in ValidateInput) *Result {
	opts := layout.DefaultOptions()
	opts.Sheet = layout.Sheet(o.cfg.Paper, 0, 0, o.cfg.Margin)
	if o.cfg.RowHeight > 0 {
		opts.RowHeight = o.cfg.RowHeight
	}
	if o.cfg.Gap > 0 {
		opts.Gap = o.cfg.Gap
	}
	if o.cfg.Grid > 0 {
		opts.Grid = o.cfg.Grid
	}

	diag, err := describe.Validate(ctx, in.Description, describe.ValidateOptions{
		Format: in.Format,
		Table:  o.table,
		Layout: &opts,
	})
	if err != nil {
		return failure(nil, nil, err)
	}

	out := &ValidateOutput{Valid: diag.OK()}
	if d := diag.Description; d != nil {
		out.Name = d.Name
		out.Components = len(d.Components)
		out.Power = len(d.Power)
		out.Connections = len(d.Connections)
	}
	if !diag.OK() {
		return failure(out, diag.Warnings, diag.Errors...)
	}
	return success(out, diag.Warnings)
}
