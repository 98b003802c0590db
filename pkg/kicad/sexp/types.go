// Package sexp provides S-expression navigation and construction helpers
// shared by the KiCad document mappers.
package sexp

// Position represents a 2D coordinate in millimeters.
type Position struct {
	X float64
	Y float64
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// UUID is the opaque identifier token attached to most document nodes.
type UUID string

// Property is a (property "key" "value" ...) node.
type Property struct {
	Key      string
	Value    string
	Position PositionAngle
	Hidden   bool
}
