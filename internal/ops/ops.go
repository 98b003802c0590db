// Package ops implements the operations behind the CLI and the tool server.
// Every operation returns a Result carrying its payload together with the
// structured errors and warnings it produced.
package ops

import (
	"context"
	"crypto/sha256"
	stderrors "errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/internal/store"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/symlib"
)

// Result is the outcome of an operation.
type Result struct {
	Success  bool        `json:"success"`
	Payload  any         `json:"payload,omitempty"`
	Errors   []ErrorInfo `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// ErrorInfo is the serialized form of an error.
type ErrorInfo struct {
	Kind    errors.Kind    `json:"kind"`
	Message string         `json:"message"`
	Line    int            `json:"line,omitempty"`
	Column  int            `json:"column,omitempty"`
	Refs    []string       `json:"refs,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Err returns the first error as a Go error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	e := r.Errors[0]
	return &errors.Error{Kind: e.Kind, Message: e.Message, Line: e.Line, Column: e.Column, Refs: e.Refs, Details: e.Details}
}

func success(payload any, warnings []string) *Result {
	return &Result{Success: true, Payload: payload, Warnings: warnings}
}

func failure(payload any, warnings []string, errs ...error) *Result {
	r := &Result{Payload: payload, Warnings: warnings}
	for _, err := range errs {
		r.Errors = append(r.Errors, ErrorInfoOf(err))
	}
	return r
}

// ErrorInfoOf converts an error to its serialized form. Details of
// internal errors are left out.
func ErrorInfoOf(err error) ErrorInfo {
	var e *errors.Error
	if stderrors.As(err, &e) {
		info := ErrorInfo{Kind: e.Kind, Message: e.Message, Line: e.Line, Column: e.Column, Refs: e.Refs}
		if e.Kind != errors.ErrInternal {
			info.Details = e.Details
		}
		return info
	}
	return ErrorInfo{Kind: errors.ErrInternal, Message: err.Error()}
}

// Ops carries the dependencies shared by the operations. It is safe for
// concurrent use.
type Ops struct {
	cfg    *config.Config
	table  *symlib.Table
	mapper *schematic.Mapper
	store  store.Store
	cache  *lru.Cache[[sha256.Size]byte, *circuit.Circuit]
}

// New creates an Ops. st may be nil, in which case the document store
// operations fail with INVALID_REQUEST.
func New(cfg *config.Config, st store.Store) (*Ops, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = config.DefaultConfig().CacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, *circuit.Circuit](size)
	if err != nil {
		return nil, err
	}
	table := symlib.Default()
	return &Ops{
		cfg:    cfg,
		table:  table,
		mapper: schematic.NewMapper(table),
		store:  st,
		cache:  cache,
	}, nil
}

// decodeShared returns a decoded document from the cache. The circuit is
// shared and must not be modified.
func (o *Ops) decodeShared(text string) (*circuit.Circuit, error) {
	key := sha256.Sum256([]byte(text))
	if c, ok := o.cache.Get(key); ok {
		return c, nil
	}
	c, err := o.decode(text)
	if err != nil {
		return nil, err
	}
	o.cache.Add(key, c)
	return c, nil
}

// decode returns a private copy of a decoded document.
func (o *Ops) decode(text string) (*circuit.Circuit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInvalidRequest("schematic text is required")
	}
	return o.mapper.Parse(strings.NewReader(text))
}

// layoutOptions returns the configured placement parameters for c's sheet.
func (o *Ops) layoutOptions(c *circuit.Circuit) layout.Options {
	opts := layout.DefaultOptions()
	opts.Table = o.table
	opts.Sheet = layout.SheetOf(c, o.cfg.Margin)
	if o.cfg.RowHeight > 0 {
		opts.RowHeight = o.cfg.RowHeight
	}
	if o.cfg.Gap > 0 {
		opts.Gap = o.cfg.Gap
	}
	if o.cfg.Grid > 0 {
		opts.Grid = o.cfg.Grid
	}
	return opts
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
