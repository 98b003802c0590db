// Package kicadsexp reads and writes the S-expression trees used by KiCad
// documents. It knows nothing about schematics: nodes are bare symbols,
// quoted strings, numbers and lists.
package kicadsexp

import (
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Sexp

	// String returns the encoded form of the node on a single line
	String() string
}

// Symbol is a bare token such as a head token or a keyword (yes, passive, ...).
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp     { return s }
func (s Symbol) Tail() Sexp     { return nil }

// String writes the symbol bare when it reads back as the same symbol and
// quoted otherwise.
func (s Symbol) String() string {
	if !bare(string(s)) {
		return quote(string(s))
	}
	return string(s)
}

// bare reports whether s lexes as a single symbol token.
func bare(s string) bool {
	if s == "" || s[0] == '#' || looksNumeric(s) {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"'
	})
}

// String is a quoted string atom. The value is stored unescaped.
type String string

func (s String) IsLeaf() bool   { return true }
func (s String) LeafCount() int { return 1 }
func (s String) Head() Sexp     { return s }
func (s String) Tail() Sexp     { return nil }
func (s String) String() string { return quote(string(s)) }

// Number is a numeric atom. Raw keeps the source spelling so that decoded
// documents re-encode with their original formatting.
type Number struct {
	Value float64
	Raw   string
}

// NewNumber returns a number without source spelling.
func NewNumber(v float64) Number {
	return Number{Value: v}
}

// Int returns an integer number.
func Int(v int) Number {
	return Number{Value: float64(v), Raw: strconv.Itoa(v)}
}

func (n Number) IsLeaf() bool   { return true }
func (n Number) LeafCount() int { return 1 }
func (n Number) Head() Sexp     { return n }
func (n Number) Tail() Sexp     { return nil }

func (n Number) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return FormatNumber(n.Value)
}

// FormatNumber returns the shortest decimal spelling of v that parses back
// to the same value.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// List represents a list of S-expressions. Lists decoded from text record
// the position of their opening parenthesis.
type List struct {
	elements []Sexp
	Line     int
	Column   int
}

// NewList creates a list from the given elements.
func NewList(elements ...Sexp) *List {
	return &List{elements: elements}
}

// Node builds a list headed by the given symbol.
func Node(head string, elements ...Sexp) *List {
	l := &List{elements: make([]Sexp, 0, len(elements)+1)}
	l.elements = append(l.elements, Symbol(head))
	l.elements = append(l.elements, elements...)
	return l
}

func (l *List) IsLeaf() bool { return false }

func (l *List) LeafCount() int {
	return len(l.elements)
}

func (l *List) Head() Sexp {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Sexp {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:], Line: l.Line, Column: l.Column}
}

func (l *List) String() string {
	var b strings.Builder
	writeFlat(&b, l)
	return b.String()
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.elements)
}

// Items returns the list elements. The slice must not be modified.
func (l *List) Items() []Sexp {
	return l.elements
}

// Append adds elements to the end of the list.
func (l *List) Append(elements ...Sexp) {
	l.elements = append(l.elements, elements...)
}

// Name returns the head symbol of the list, or "" if the list does not
// start with a symbol.
func (l *List) Name() string {
	if len(l.elements) == 0 {
		return ""
	}
	if sym, ok := l.elements[0].(Symbol); ok {
		return string(sym)
	}
	return ""
}

// Equal reports whether two trees have the same structure and values.
// Numbers compare by value, not spelling.
func Equal(a, b Sexp) bool {
	switch x := a.(type) {
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x.Value == y.Value
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.elements) != len(y.elements) {
			return false
		}
		for i := range x.elements {
			if !Equal(x.elements[i], y.elements[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

// Parse parses S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	parser := NewParser(r)
	return parser.ParseAll()
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
