package kicadsexp

import (
	"bufio"
	"io"
	"strings"
)

// maxInline is the widest list written on a single line.
const maxInline = 96

// Encode writes the given trees to w, one per top-level expression, using
// tab indentation. Output depends only on the input trees.
func Encode(w io.Writer, nodes ...Sexp) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		writeIndented(bw, n, 0)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Format returns the indented encoding of the given trees.
func Format(nodes ...Sexp) string {
	var b strings.Builder
	_ = Encode(&b, nodes...)
	return b.String()
}

type byteWriter interface {
	io.Writer
	io.StringWriter
	io.ByteWriter
}

func writeIndented(w byteWriter, n Sexp, depth int) {
	list, ok := n.(*List)
	if !ok || inline(list) {
		writeFlat(w, n)
		return
	}

	w.WriteByte('(')
	nested := false
	for i, elem := range list.elements {
		_, isList := elem.(*List)
		if isList {
			nested = true
		}
		if nested {
			w.WriteByte('\n')
			writeTabs(w, depth+1)
		} else if i > 0 {
			w.WriteByte(' ')
		}
		writeIndented(w, elem, depth+1)
	}
	if nested {
		w.WriteByte('\n')
		writeTabs(w, depth)
	}
	w.WriteByte(')')
}

// inline reports whether a list is short and shallow enough for one line.
func inline(l *List) bool {
	if depth(l) > 2 {
		return false
	}
	return len(l.String()) <= maxInline
}

func depth(n Sexp) int {
	l, ok := n.(*List)
	if !ok {
		return 0
	}
	d := 0
	for _, e := range l.elements {
		if c := depth(e); c > d {
			d = c
		}
	}
	return d + 1
}

func writeTabs(w byteWriter, n int) {
	for i := 0; i < n; i++ {
		w.WriteByte('\t')
	}
}

func writeFlat(w byteWriter, n Sexp) {
	switch v := n.(type) {
	case *List:
		w.WriteByte('(')
		for i, elem := range v.elements {
			if i > 0 {
				w.WriteByte(' ')
			}
			writeFlat(w, elem)
		}
		w.WriteByte(')')
	case nil:
		w.WriteString("()")
	default:
		w.WriteString(v.String())
	}
}

// quote returns s as a quoted string atom with KiCad escapes.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
