// Package errors defines the structured error taxonomy shared by the codec,
// schema mapper, description parser, layout engine and connectivity resolver.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	ErrSyntax         Kind = "SYNTAX_ERROR"           // malformed tree text
	ErrSchema         Kind = "SCHEMA_ERROR"           // tree violates the document node contract
	ErrValidation     Kind = "VALIDATION_ERROR"       // circuit model invariant violated
	ErrUnknownType    Kind = "UNKNOWN_COMPONENT_TYPE" // type keyword missing from the symbol table
	ErrParse          Kind = "PARSE_ERROR"            // description text malformed
	ErrOverlap        Kind = "OVERLAP_ERROR"
	ErrBoundary       Kind = "BOUNDARY_ERROR"
	ErrNetConflict    Kind = "NET_CONFLICT"
	ErrInvalidRequest Kind = "INVALID_REQUEST"
	ErrNotFound       Kind = "NOT_FOUND"
	ErrInternal       Kind = "INTERNAL"
)

// Error is a structured error carrying enough context to be shown verbatim.
// Line and Column are 1-based and zero when not applicable.
type Error struct {
	Kind    Kind
	Message string
	Line    int
	Column  int
	Refs    []string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	switch {
	case e.Line > 0 && e.Column > 0:
		fmt.Fprintf(&b, "line %d:%d: ", e.Line, e.Column)
	case e.Line > 0:
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewSyntax creates an error for malformed S-expression text.
func NewSyntax(line, col int, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrSyntax,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}
}

// NewSchema creates an error for a node that breaks the document contract.
func NewSchema(line, col int, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrSchema,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}
}

// NewValidation creates an error for a violated model invariant.
func NewValidation(msg string, refs ...string) *Error {
	return &Error{
		Kind:    ErrValidation,
		Message: msg,
		Refs:    refs,
	}
}

// NewUnknownComponentType creates an error for a type keyword that is not in
// the symbol table.
func NewUnknownComponentType(keyword string, line int) *Error {
	return &Error{
		Kind:    ErrUnknownType,
		Message: fmt.Sprintf("unknown component type %q", keyword),
		Line:    line,
		Details: map[string]any{"keyword": keyword},
	}
}

// NewParse creates an error for malformed description text.
func NewParse(token string, line int, msg string) *Error {
	return &Error{
		Kind:    ErrParse,
		Message: fmt.Sprintf("%s: %q", msg, token),
		Line:    line,
		Details: map[string]any{"token": token},
	}
}

// NewOverlap creates an error for two components whose boxes intersect.
// The region is given as min x, min y, max x, max y.
func NewOverlap(a, b string, minX, minY, maxX, maxY float64) *Error {
	return &Error{
		Kind: ErrOverlap,
		Message: fmt.Sprintf("%s overlaps %s in region (%g, %g)-(%g, %g)",
			b, a, minX, minY, maxX, maxY),
		Refs: []string{a, b},
		Details: map[string]any{
			"region": []float64{minX, minY, maxX, maxY},
		},
	}
}

// NewBoundary creates an error for a component outside the sheet.
func NewBoundary(ref string, minX, minY, maxX, maxY float64) *Error {
	return &Error{
		Kind: ErrBoundary,
		Message: fmt.Sprintf("%s at (%g, %g)-(%g, %g) is outside the sheet",
			ref, minX, minY, maxX, maxY),
		Refs: []string{ref},
		Details: map[string]any{
			"box": []float64{minX, minY, maxX, maxY},
		},
	}
}

// NewNetConflict creates an error for a connection joining two distinctly
// named nets.
func NewNetConflict(first, second string, endpoints ...string) *Error {
	return &Error{
		Kind:    ErrNetConflict,
		Message: fmt.Sprintf("connection would merge net %q with net %q", first, second),
		Refs:    endpoints,
		Details: map[string]any{"nets": []string{first, second}},
	}
}

// NewInvalidRequest creates an error for bad caller input.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Kind:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing stored document or template.
func NewNotFound(what, name string) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
		Details: map[string]any{"name": name},
	}
}

// NewInternal wraps an unexpected error.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Kind:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is reports whether err, or any error it wraps, is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or ErrInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}
