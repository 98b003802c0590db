package describe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

type section int

const (
	sectionNone section = iota
	sectionComponents
	sectionPower
	sectionConnections
)

var sectionNames = map[string]section{
	"components":  sectionComponents,
	"parts":       sectionComponents,
	"power":       sectionPower,
	"connections": sectionConnections,
	"wires":       sectionConnections,
}

// Parse parses a description, detecting its syntax. It stops at the first
// error.
func Parse(src string, format Format) (*Description, error) {
	desc, errs := ParseAll(src, format)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return desc, nil
}

// ParseReader reads and parses a description.
func ParseReader(r io.Reader, format Format) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}
	return Parse(string(data), format)
}

// ParseFile parses a description file. Files ending in .yaml or .yml use the
// block syntax.
func ParseFile(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	format := FormatAuto
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		format = FormatBlock
	}
	return Parse(string(data), format)
}

// ParseAll parses a description and returns every error found. The line
// syntax reports one error per bad line; the block syntax stops at YAML
// structure errors.
func ParseAll(src string, format Format) (*Description, []error) {
	if format == FormatAuto {
		format = Detect(src)
	}
	if format == FormatBlock {
		return parseBlock(src)
	}
	return parseLines(src)
}

// Detect guesses the syntax of src: YAML list items mark the block syntax.
func Detect(src string) Format {
	scanner := bufio.NewScanner(strings.NewReader(src))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}
		if strings.HasPrefix(line, "- ") || line == "-" {
			return FormatBlock
		}
	}
	return FormatLine
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}

// circuitName recognizes `circuit: Name` and `circuit "Name":`.
func circuitName(line string) (string, bool) {
	lower := strings.ToLower(line)
	if !strings.HasPrefix(lower, "circuit") {
		return "", false
	}
	rest := strings.TrimSpace(line[len("circuit"):])
	switch {
	case strings.HasPrefix(rest, ":"):
		return strings.Trim(strings.TrimSpace(rest[1:]), `"'`), true
	case strings.HasPrefix(rest, `"`):
		rest = strings.TrimSuffix(rest, ":")
		return strings.Trim(strings.TrimSpace(rest), `"`), true
	}
	return "", false
}

func parseLines(src string) (*Description, []error) {
	desc := &Description{}
	var errs []error
	current := sectionNone

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}
		if name, ok := circuitName(line); ok {
			desc.Name = name
			continue
		}
		if strings.HasSuffix(line, ":") {
			if s, ok := sectionNames[strings.ToLower(strings.TrimSpace(strings.TrimSuffix(line, ":")))]; ok {
				current = s
				continue
			}
		}
		if err := desc.addEntry(line, lineNo, current); err != nil {
			errs = append(errs, err)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, errors.NewParse("", lineNo, err.Error()))
	}
	return desc, errs
}

// addEntry parses one entry in the context of a section. Connections are
// recognized anywhere; outside a section declarations are components.
func (d *Description) addEntry(text string, line int, s section) error {
	e, err := parseEntry(text, line)
	if err != nil {
		return err
	}
	if e.Connection != nil {
		if s != sectionNone && s != sectionConnections {
			return errors.NewParse(text, line, "connection outside the connections section")
		}
		d.Connections = append(d.Connections, e.Connection.connection(line))
		return nil
	}

	switch s {
	case sectionConnections:
		return errors.NewParse(text, line, "expected a connection such as R1.1 -> R2.1")
	case sectionPower:
		p, err := e.Decl.power(line)
		if err != nil {
			return err
		}
		d.Power = append(d.Power, p)
	default:
		c, err := e.Decl.component(line)
		if err != nil {
			return err
		}
		d.Components = append(d.Components, c)
	}
	return nil
}
