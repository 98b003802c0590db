package ops

import (
	"context"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/netlist"
)

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	Description string          `json:"description"`
	Format      describe.Format `json:"-"`
	// SaveAs stores the generated document under this name when set.
	SaveAs string `json:"save_as,omitempty"`
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	Title      string          `json:"title,omitempty"`
	Schematic  string          `json:"schematic"`
	Components int             `json:"components"`
	Nets       []NetInfo       `json:"nets"`
	Placements []PlacementInfo `json:"placements"`
	SheetUsage float64         `json:"sheet_usage"`
	SavedAs    string          `json:"saved_as,omitempty"`
}

// NetInfo is the serialized form of a net.
type NetInfo struct {
	Name      string   `json:"name"`
	Endpoints []string `json:"endpoints"`
	Anonymous bool     `json:"anonymous,omitempty"`
}

// PlacementInfo is the serialized form of an accepted component box.
type PlacementInfo struct {
	Ref string     `json:"ref"`
	Box [4]float64 `json:"box"`
}

func netInfos(nets []*circuit.Net) []NetInfo {
	out := make([]NetInfo, 0, len(nets))
	for _, n := range nets {
		info := NetInfo{Name: n.Name, Anonymous: n.Anonymous}
		for _, ep := range n.Endpoints {
			info.Endpoints = append(info.Endpoints, ep.String())
		}
		out = append(out, info)
	}
	return out
}

func placementInfos(ps []layout.Placement) []PlacementInfo {
	out := make([]PlacementInfo, 0, len(ps))
	for _, p := range ps {
		out = append(out, PlacementInfo{
			Ref: p.Ref,
			Box: [4]float64{p.Box.Min.X, p.Box.Min.Y, p.Box.Max.X, p.Box.Max.Y},
		})
	}
	return out
}

// Generate turns a description into a schematic document. It stops at the
// first fatal error; warnings never abort.
func (o *Ops) Generate(ctx context.Context, in GenerateInput) *Result {
	desc, err := describe.Parse(in.Description, in.Format)
	if err != nil {
		return failure(nil, nil, err)
	}
	draft, err := describe.Build(desc, o.table)
	if err != nil {
		return failure(nil, nil, err)
	}
	ckt := draft.Circuit
	ckt.Meta.Paper = o.cfg.Paper
	ckt.Meta.Generator = o.cfg.Generator

	opts := o.layoutOptions(ckt)
	placed, err := layout.Place(ctx, ckt, opts)
	if err != nil {
		return failure(nil, nil, err)
	}

	resolved, err := netlist.Resolve(ctx, ckt, draft.Connections, netlist.Options{
		Table:   o.table,
		Aliases: draft.Aliases,
		Route:   true,
	})
	if err != nil {
		var warnings []string
		if resolved != nil {
			warnings = resolved.Warnings
		}
		return failure(nil, warnings, err)
	}

	text, err := o.mapper.Marshal(ckt)
	if err != nil {
		return failure(nil, resolved.Warnings, err)
	}

	out := &GenerateOutput{
		Title:      ckt.Meta.Title,
		Schematic:  string(text),
		Components: len(ckt.Components()),
		Nets:       netInfos(ckt.Nets),
		Placements: placementInfos(placed.Placements),
		SheetUsage: placed.Usage(opts.Sheet),
	}
	if in.SaveAs != "" {
		if o.store == nil {
			return failure(out, resolved.Warnings, errNoStore())
		}
		info, err := o.store.Save(ctx, in.SaveAs, out.Schematic)
		if err != nil {
			return failure(out, resolved.Warnings, err)
		}
		out.SavedAs = info.Name
	}
	return success(out, resolved.Warnings)
}

// GenerateBatch generates independent descriptions in parallel. Results are
// in input order; one failing description does not affect the others.
func (o *Ops) GenerateBatch(ctx context.Context, inputs []GenerateInput) ([]*Result, error) {
	results := make([]*Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		g.Go(func() error {
			if err := cancelled(ctx); err != nil {
				results[i] = failure(nil, nil, err)
				return nil
			}
			results[i] = o.Generate(ctx, in)
			if !results[i].Success {
				log.Printf("[ops] batch item %d failed: %s", i, results[i].Errors[0].Message)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
