package ops

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceSch/internal/store"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// SaveInput contains parameters for the SaveSchematic operation.
type SaveInput struct {
	Name      string `json:"name"`
	Schematic string `json:"schematic"`
}

// LoadInput contains parameters for the LoadSchematic operation.
type LoadInput struct {
	Name string `json:"name"`
}

// ListOutput lists the stored documents.
type ListOutput struct {
	Schematics []store.Info `json:"schematics"`
}

func errNoStore() error {
	return errors.NewInvalidRequest("no document store configured")
}

// SaveSchematic stores a document under a name. The text must decode; it
// is stored as given.
func (o *Ops) SaveSchematic(ctx context.Context, in SaveInput) *Result {
	if o.store == nil {
		return failure(nil, nil, errNoStore())
	}
	if _, err := o.decodeShared(in.Schematic); err != nil {
		return failure(nil, nil, err)
	}
	info, err := o.store.Save(ctx, in.Name, in.Schematic)
	if err != nil {
		return failure(nil, nil, err)
	}
	return success(info, nil)
}

// LoadSchematic returns a stored document with its summary.
func (o *Ops) LoadSchematic(ctx context.Context, in LoadInput) *Result {
	if o.store == nil {
		return failure(nil, nil, errNoStore())
	}
	doc, err := o.store.Load(ctx, in.Name)
	if err != nil {
		return failure(nil, nil, err)
	}
	out := struct {
		*store.Document
		Summary *Summary `json:"summary,omitempty"`
	}{Document: doc}

	var warnings []string
	if c, err := o.decodeShared(doc.Text); err != nil {
		warnings = append(warnings, "stored document does not decode: "+err.Error())
	} else {
		out.Summary = summarize(c)
		warnings = append(warnings, c.Warnings...)
	}
	return success(&out, warnings)
}

// ListSchematics lists the stored documents by name.
func (o *Ops) ListSchematics(ctx context.Context) *Result {
	if o.store == nil {
		return failure(nil, nil, errNoStore())
	}
	infos, err := o.store.List(ctx)
	if err != nil {
		return failure(nil, nil, err)
	}
	if infos == nil {
		infos = []store.Info{}
	}
	return success(&ListOutput{Schematics: infos}, nil)
}
