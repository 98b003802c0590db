package kicadsexp

import (
	"bufio"
	"io"
	"unicode"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	case TokenString:
		return "string"
	}
	return "unknown"
}

// Token represents a lexical token and where it starts.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// Lexer tokenizes S-expressions from an io.Reader
type Lexer struct {
	reader *bufio.Reader
	peeked *rune
	line   int
	col    int
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(r),
		line:   1,
		col:    1,
	}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	// Skip whitespace and comments
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return Token{Type: TokenEOF, Line: l.line, Column: l.col}, nil
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			continue
		}

		// Comments run from # to end of line
		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	ch, _ := l.peek()
	line, col := l.line, l.col

	switch ch {
	case '(':
		l.read()
		return Token{Type: TokenLeftParen, Value: "(", Line: line, Column: col}, nil

	case ')':
		l.read()
		return Token{Type: TokenRightParen, Value: ")", Line: line, Column: col}, nil

	case '"':
		tok, err := l.readString()
		tok.Line, tok.Column = line, col
		return tok, err

	default:
		tok, err := l.readSymbol()
		tok.Line, tok.Column = line, col
		return tok, err
	}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune, advancing the position
func (l *Lexer) read() (rune, error) {
	var ch rune
	if l.peeked != nil {
		ch = *l.peeked
		l.peeked = nil
	} else {
		var err error
		ch, _, err = l.reader.ReadRune()
		if err != nil {
			return 0, err
		}
	}

	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch, nil
}

// readString reads a quoted string
func (l *Lexer) readString() (Token, error) {
	startLine, startCol := l.line, l.col
	l.read()

	var result []rune
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, errors.NewSyntax(startLine, startCol, "unterminated string")
			}
			return Token{}, err
		}

		if ch == '"' {
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return Token{}, errors.NewSyntax(startLine, startCol, "unterminated string")
			}
			switch next {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			default:
				// \\, \" and unknown escapes keep the escaped rune
				result = append(result, next)
			}
			continue
		}

		result = append(result, ch)
	}

	return Token{Type: TokenString, Value: string(result)}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol() (Token, error) {
	var result []rune

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		result = append(result, ch)
	}

	return Token{Type: TokenSymbol, Value: string(result)}, nil
}
