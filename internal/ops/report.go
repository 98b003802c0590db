package ops

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
)

// ReportInput selects what to report on: a description or a document.
type ReportInput struct {
	Description string          `json:"description,omitempty"`
	Format      describe.Format `json:"-"`
	Schematic   string          `json:"schematic,omitempty"`
	HTML        bool            `json:"html,omitempty"`
}

// ReportOutput is a rendered validation report.
type ReportOutput struct {
	Title      string  `json:"title,omitempty"`
	Valid      bool    `json:"valid"`
	Components int     `json:"components"`
	Nets       int     `json:"nets"`
	SheetUsage float64 `json:"sheet_usage"`
	Markdown   string  `json:"markdown"`
	HTML       string  `json:"html,omitempty"`
}

type reportData struct {
	ReportOutput
	errors   []ErrorInfo
	warnings []string
}

// Report validates a description or a document and renders the findings
// as Markdown, and optionally HTML. The report itself succeeds even when
// it lists errors.
func (o *Ops) Report(ctx context.Context, in ReportInput) *Result {
	var data *reportData
	var err error
	switch {
	case strings.TrimSpace(in.Schematic) != "":
		data, err = o.documentReport(ctx, in.Schematic)
	case strings.TrimSpace(in.Description) != "":
		data, err = o.descriptionReport(ctx, in.Description, in.Format)
	default:
		err = errors.NewInvalidRequest("description or schematic is required")
	}
	if err != nil {
		return failure(nil, nil, err)
	}

	data.Valid = len(data.errors) == 0
	data.Markdown = renderMarkdown(data)
	if in.HTML {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(data.Markdown), &buf); err != nil {
			return failure(nil, nil, errors.NewInternal(err))
		}
		data.HTML = buf.String()
	}
	return success(&data.ReportOutput, data.warnings)
}

func (o *Ops) descriptionReport(ctx context.Context, src string, format describe.Format) (*reportData, error) {
	validated := o.Validate(ctx, ValidateInput{Description: src, Format: format})
	out, _ := validated.Payload.(*ValidateOutput)
	if out == nil {
		return nil, validated.Err()
	}
	data := &reportData{errors: validated.Errors, warnings: validated.Warnings}
	data.Title = out.Name
	data.Components = out.Components + out.Power

	if validated.Success {
		generated := o.Generate(ctx, GenerateInput{Description: src, Format: format})
		if g, ok := generated.Payload.(*GenerateOutput); ok {
			data.Nets = len(g.Nets)
			data.SheetUsage = g.SheetUsage
		}
		data.errors = append(data.errors, generated.Errors...)
	}
	return data, nil
}

func (o *Ops) documentReport(ctx context.Context, text string) (*reportData, error) {
	c, err := o.decodeShared(text)
	if err != nil {
		return nil, err
	}
	data := &reportData{}
	data.Title = c.Meta.Title
	data.Components = len(c.Components())
	data.Nets = len(c.Nets)

	opts := o.layoutOptions(c)
	opts.Collect = true
	// Place only checks here: every decoded component has a position.
	placed, err := layout.Place(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	for _, perr := range placed.Errors {
		data.errors = append(data.errors, ErrorInfoOf(perr))
	}
	data.SheetUsage = placed.Usage(opts.Sheet)

	nets, warnings := netlist.Extract(c)
	data.warnings = append(data.warnings, warnings...)
	for _, ep := range unconnected(c, nets) {
		comp, _ := c.Component(ep.Ref)
		pin, _ := comp.Pin(ep.Pin)
		msg := fmt.Sprintf("pin %s is not connected", ep)
		if pin.Type == circuit.PinPowerIn {
			data.errors = append(data.errors, ErrorInfoOf(errors.NewValidation("power input "+msg, ep.Ref)))
			continue
		}
		data.warnings = append(data.warnings, msg)
	}
	return data, nil
}

func renderMarkdown(d *reportData) string {
	var b strings.Builder
	title := d.Title
	if title == "" {
		title = "untitled"
	}
	fmt.Fprintf(&b, "# Validation report: %s\n\n", title)
	status := "PASS"
	if !d.Valid {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "- Status: **%s**\n", status)
	fmt.Fprintf(&b, "- Components: %d\n", d.Components)
	fmt.Fprintf(&b, "- Nets: %d\n", d.Nets)
	fmt.Fprintf(&b, "- Sheet usage: %.1f%%\n\n", d.SheetUsage*100)

	b.WriteString("## ERRORS\n\n")
	if len(d.errors) == 0 {
		b.WriteString("None.\n")
	}
	for _, e := range d.errors {
		where := ""
		if e.Line > 0 {
			where = fmt.Sprintf(" (line %d)", e.Line)
		}
		fmt.Fprintf(&b, "- `%s`%s: %s\n", e.Kind, where, e.Message)
	}

	b.WriteString("\n## WARNINGS\n\n")
	if len(d.warnings) == 0 {
		b.WriteString("None.\n")
	}
	for _, w := range d.warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	return b.String()
}
