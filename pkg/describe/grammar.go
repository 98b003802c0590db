package describe

import (
	stderrors "errors"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// entryLexer tokenizes a single description entry. Words may contain dashes
// (ESP32-WROOM-32, -5V) but never the start of an arrow.
var entryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Arrow", Pattern: `→|->|—|--`},
	{Name: "Punct", Pattern: `[(),:]`},
	{Name: "Word", Pattern: `(?:[^\s(),:→—-]|-[^\s(),:>→—-])+`},
})

var entryParser = participle.MustBuild[entry](
	participle.Lexer(entryLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// entry is one component, power or connection line.
type entry struct {
	Connection *connEntry `  @@`
	Decl       *declEntry `| @@`
}

type connEntry struct {
	From string `@Word Arrow`
	To   string `@Word`
	Net  string `( ":" @Word )?`
}

type declEntry struct {
	Ref      string     `@Word ":"?`
	Words    []string   `@Word*`
	Position *coordList `@@?`
}

type coordList struct {
	Pos      lexer.Position
	X        string `"(" @Word ","`
	Y        string `@Word`
	Rotation string `( "," @Word )? ")"`
}

func parseEntry(text string, line int) (*entry, error) {
	e, err := entryParser.ParseString("", text)
	if err != nil {
		return nil, entryError(err, text, line)
	}
	return e, nil
}

// entryError turns a participle error into a PARSE_ERROR naming the
// offending token.
func entryError(err error, text string, line int) error {
	var unexpected *participle.UnexpectedTokenError
	if stderrors.As(err, &unexpected) {
		token := unexpected.Unexpected.Value
		if unexpected.Unexpected.EOF() {
			token = strings.TrimSpace(text)
		}
		e := errors.NewParse(token, line, "unexpected token")
		e.Column = unexpected.Unexpected.Pos.Column
		return e
	}
	var perr participle.Error
	if stderrors.As(err, &perr) {
		e := errors.NewParse(strings.TrimSpace(text), line, perr.Message())
		e.Column = perr.Position().Column
		return e
	}
	return errors.NewParse(strings.TrimSpace(text), line, err.Error())
}

// words drops a trailing "at" before a position.
func (d *declEntry) words() []string {
	w := d.Words
	if d.Position != nil && len(w) > 0 && strings.EqualFold(w[len(w)-1], "at") {
		w = w[:len(w)-1]
	}
	return w
}

func (d *declEntry) position(line int) (*circuit.Position, error) {
	if d.Position == nil {
		return nil, nil
	}
	x, err := coordinate(d.Position.X, line)
	if err != nil {
		return nil, err
	}
	y, err := coordinate(d.Position.Y, line)
	if err != nil {
		return nil, err
	}
	pos := &circuit.Position{X: x, Y: y}
	if d.Position.Rotation != "" {
		r, err := coordinate(d.Position.Rotation, line)
		if err != nil {
			return nil, err
		}
		if r != math.Trunc(r) {
			return nil, errors.NewParse(d.Position.Rotation, line, "rotation must be a whole number of degrees")
		}
		pos.Rotation = int(r)
	}
	return pos, nil
}

func coordinate(token string, line int) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewParse(token, line, "malformed coordinate")
	}
	return v, nil
}

func (d *declEntry) component(line int) (ComponentDecl, error) {
	words := d.words()
	if len(words) == 0 {
		return ComponentDecl{}, errors.NewParse(d.Ref, line, "component has no type")
	}
	pos, err := d.position(line)
	if err != nil {
		return ComponentDecl{}, err
	}
	return ComponentDecl{
		Ref:      d.Ref,
		Type:     words[0],
		Value:    strings.Join(words[1:], " "),
		Position: pos,
		Line:     line,
	}, nil
}

func (d *declEntry) power(line int) (PowerDecl, error) {
	words := d.words()
	if len(words) > 1 {
		return PowerDecl{}, errors.NewParse(words[1], line, "power port takes a single symbol")
	}
	pos, err := d.position(line)
	if err != nil {
		return PowerDecl{}, err
	}
	symbol := d.Ref
	if len(words) == 1 {
		symbol = words[0]
	}
	return PowerDecl{Name: d.Ref, Symbol: symbol, Position: pos, Line: line}, nil
}

func (c *connEntry) connection(line int) ConnectionDecl {
	return ConnectionDecl{From: c.From, To: c.To, Net: c.Net, Line: line}
}
