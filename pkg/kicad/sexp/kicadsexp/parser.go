package kicadsexp

import (
	"io"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Parser parses S-expressions from a lexer
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// ParseAll parses all top-level S-expressions from the input. Either every
// expression is returned or none is.
func (p *Parser) ParseAll() ([]Sexp, error) {
	var result []Sexp

	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// parseExpr parses a single S-expression
func (p *Parser) parseExpr() (Sexp, error) {
	tok := p.current
	switch tok.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenString:
		return String(tok.Value), nil

	case TokenSymbol:
		return atom(tok)

	case TokenRightParen:
		return nil, errors.NewSyntax(tok.Line, tok.Column, "unexpected ')'")

	default:
		return nil, errors.NewSyntax(tok.Line, tok.Column, "unexpected %s", tok.Type)
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (Sexp, error) {
	open := p.current
	list := &List{Line: open.Line, Column: open.Column}

	for {
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.current.Type == TokenRightParen {
			break
		}

		if p.current.Type == TokenEOF {
			return nil, errors.NewSyntax(open.Line, open.Column, "unbalanced '(': missing ')'")
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.elements = append(list.elements, elem)
	}

	return list, nil
}

// atom classifies a bare token. Tokens spelled only with digits, signs,
// dots and exponent markers must be valid numbers.
func atom(tok Token) (Sexp, error) {
	if !looksNumeric(tok.Value) {
		return Symbol(tok.Value), nil
	}
	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, errors.NewSyntax(tok.Line, tok.Column, "invalid number %q", tok.Value)
	}
	return Number{Value: v, Raw: tok.Value}, nil
}

func looksNumeric(s string) bool {
	if s == "" || !strings.ContainsAny(s[:1], "0123456789+-.") {
		return false
	}
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '+' || r == '-' || r == '.' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return digits
}
