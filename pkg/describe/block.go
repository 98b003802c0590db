package describe

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// parseBlock reads the YAML syntax. Entries are re-assembled into single
// lines and go through the same grammar as the line syntax.
func parseBlock(src string) (*Description, []error) {
	desc := &Description{}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return desc, []error{yamlError(err)}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return desc, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return desc, []error{errors.NewParse(root.Value, root.Line, "description must be a mapping")}
	}

	body := root
	if len(root.Content) == 2 && root.Content[1].Kind != yaml.ScalarNode {
		if name, ok := circuitName(root.Content[0].Value + ":"); ok {
			desc.Name = name
			body = root.Content[1]
		}
	}
	if body.Kind != yaml.MappingNode {
		return desc, []error{errors.NewParse(body.Value, body.Line, "circuit body must be a mapping")}
	}

	var errs []error
	for i := 0; i+1 < len(body.Content); i += 2 {
		key, value := body.Content[i], body.Content[i+1]
		name := strings.ToLower(key.Value)
		if name == "name" || name == "circuit" {
			desc.Name = value.Value
			continue
		}
		s, ok := sectionNames[name]
		if !ok {
			errs = append(errs, errors.NewParse(key.Value, key.Line, "unknown section"))
			continue
		}
		if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
			continue
		}
		if value.Kind != yaml.SequenceNode {
			errs = append(errs, errors.NewParse(key.Value, key.Line, "section must be a list"))
			continue
		}
		for _, item := range value.Content {
			text, err := itemText(item)
			if err == nil {
				err = desc.addEntry(text, item.Line, s)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	return desc, errs
}

// itemText flattens `- R1: resistor 220Ω` and `- VCC → R1.1` items.
func itemText(item *yaml.Node) (string, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		return item.Value, nil
	case yaml.MappingNode:
		if len(item.Content) != 2 {
			return "", errors.NewParse(item.Value, item.Line, "list item must hold a single entry")
		}
		key, value := item.Content[0], item.Content[1]
		if value.Kind != yaml.ScalarNode {
			return "", errors.NewParse(key.Value, key.Line, "entry value must be text")
		}
		if value.Tag == "!!null" {
			return key.Value, nil
		}
		return key.Value + ": " + value.Value, nil
	default:
		return "", errors.NewParse(item.Value, item.Line, "unsupported list item")
	}
}

// yamlError extracts the line from a yaml.v3 error message.
func yamlError(err error) error {
	msg := err.Error()
	var line int
	if _, scanErr := fmt.Sscanf(msg, "yaml: line %d:", &line); scanErr != nil {
		line = 0
	}
	return errors.NewParse(strings.TrimPrefix(msg, "yaml: "), line, "invalid YAML")
}
