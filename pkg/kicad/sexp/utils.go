package sexp

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// FindNode searches for a child list with the given head symbol.
// Example: FindNode(sexp, "at") finds (at 100 50) in a list
func FindNode(s kicadsexp.Sexp, key string) (*kicadsexp.List, bool) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return nil, false
	}

	for _, item := range list.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Name() == key {
			return sub, true
		}
	}

	return nil, false
}

// FindAllNodes finds all child lists with the given head symbol
func FindAllNodes(s kicadsexp.Sexp, key string) []*kicadsexp.List {
	var results []*kicadsexp.List

	list, ok := s.(*kicadsexp.List)
	if !ok {
		return results
	}

	for _, item := range list.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Name() == key {
			results = append(results, sub)
		}
	}

	return results
}

// GetListItems returns all items in a list (excluding the head)
// Example: GetListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	list, ok := s.(*kicadsexp.List)
	if !ok || list.Len() <= 1 {
		return []kicadsexp.Sexp{}
	}
	return list.Items()[1:]
}

// Text returns the textual value of an atom: the unquoted content of a
// string, the name of a symbol or the spelling of a number.
func Text(s kicadsexp.Sexp) (string, bool) {
	switch v := s.(type) {
	case kicadsexp.Symbol:
		return string(v), true
	case kicadsexp.String:
		return string(v), true
	case kicadsexp.Number:
		return v.String(), true
	}
	return "", false
}

// Typed value extraction helpers

// GetString extracts the textual atom at the given index in a list.
// Index 0 is the key, 1 is first value, etc.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}

	if index < 0 || index >= list.Len() {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, list.Len())
	}

	if str, ok := Text(list.Get(index)); ok {
		return str, nil
	}

	return "", fmt.Errorf("expected atom at index %d, got list", index)
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return 0, fmt.Errorf("expected list, got leaf")
	}

	if num, ok := list.Get(index).(kicadsexp.Number); ok {
		return num.Value, nil
	}

	return 0, fmt.Errorf("expected number at index %d in (%s ...)", index, list.Name())
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	val, err := GetFloat(s, index)
	if err != nil {
		return 0, err
	}
	if val != math.Trunc(val) {
		return 0, fmt.Errorf("expected integer at index %d, got %v", index, val)
	}
	return int(val), nil
}

// Domain-specific extraction helpers

// GetPosition extracts a position from an (at X Y [angle]) node
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	key, err := GetString(s, 0)
	if err != nil {
		return PositionAngle{}, err
	}
	if key != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", key)
	}

	pos, err := GetPositionXY(s)
	if err != nil {
		return PositionAngle{}, err
	}

	result := PositionAngle{Position: pos}

	// Angle is optional
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}

	return result, nil
}

// GetPositionXY extracts just X,Y coordinates (no angle)
// Used for (xy X Y), (start X Y), (end X Y), etc.
func GetPositionXY(s kicadsexp.Sexp) (Position, error) {
	x, err := GetFloat(s, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}

	return Position{X: x, Y: y}, nil
}

// GetPoints extracts the (xy X Y) children of a (pts ...) node
func GetPoints(s kicadsexp.Sexp) ([]Position, error) {
	var points []Position
	for _, xy := range FindAllNodes(s, "xy") {
		pos, err := GetPositionXY(xy)
		if err != nil {
			return nil, err
		}
		points = append(points, pos)
	}
	return points, nil
}

// HasSymbol checks if a list contains a specific bare symbol
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return false
	}

	for _, item := range list.Items() {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}

	return false
}

// GetFlag reads a (key yes|no) child, returning def when absent.
// A bare (key) counts as yes.
func GetFlag(s kicadsexp.Sexp, key string, def bool) bool {
	node, ok := FindNode(s, key)
	if !ok {
		return def
	}
	if node.Len() < 2 {
		return true
	}
	val, _ := GetString(node, 1)
	return val == "yes"
}

// GetUUID extracts a UUID from a (uuid "...") child of s
func GetUUID(s kicadsexp.Sexp) (UUID, error) {
	node, ok := FindNode(s, "uuid")
	if !ok {
		return "", fmt.Errorf("no uuid node")
	}

	str, err := GetString(node, 1)
	if err != nil {
		return "", err
	}

	return UUID(str), nil
}

// GetProperty extracts a property from a (property ...) node
func GetProperty(s kicadsexp.Sexp) (Property, error) {
	prop := Property{}

	// Format: (property "key" "value" (at X Y angle) (effects ...))
	key, err := GetString(s, 1)
	if err != nil {
		return prop, fmt.Errorf("failed to parse property key: %w", err)
	}
	prop.Key = key

	if value, err := GetString(s, 2); err == nil {
		prop.Value = value
	}

	if atNode, ok := FindNode(s, "at"); ok {
		if pos, err := GetPosition(atNode); err == nil {
			prop.Position = pos
		}
	}

	if effects, ok := FindNode(s, "effects"); ok {
		prop.Hidden = HasSymbol(effects, "hide") || GetFlag(effects, "hide", false)
	}
	if !prop.Hidden {
		prop.Hidden = GetFlag(s, "hide", false)
	}

	return prop, nil
}
