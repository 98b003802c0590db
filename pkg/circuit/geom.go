package circuit

import "math"

// Point is a 2D coordinate in millimeters. Y grows downward on the sheet.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Round snaps p to 1e-4 mm so that points computed through rotation compare
// equal to points read from a document.
func (p Point) Round() Point {
	return Point{X: round4(p.X), Y: round4(p.Y)}
}

func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0 // avoid -0
	}
	return r
}

// Rotate rotates p about the origin by deg degrees (counter-clockwise in a
// Y-up frame).
func (p Point) Rotate(deg float64) Point {
	switch math.Mod(deg+360, 360) {
	case 0:
		return p
	case 90:
		return Point{X: -p.Y, Y: p.X}
	case 180:
		return Point{X: -p.X, Y: -p.Y}
	case 270:
		return Point{X: p.Y, Y: -p.X}
	}
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// BoundingBox represents a rectangular boundary
type BoundingBox struct {
	Min Point // Minimum (top-left) corner
	Max Point // Maximum (bottom-right) corner
}

// BoxAround returns the box of the given size centred on c.
func BoxAround(c Point, width, height float64) BoundingBox {
	return BoundingBox{
		Min: Point{X: c.X - width/2, Y: c.Y - height/2},
		Max: Point{X: c.X + width/2, Y: c.Y + height/2},
	}
}

// Intersects reports whether the boxes share more than zero area.
// Boxes that only touch along an edge do not intersect.
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	_, ok := bb.Overlap(other)
	return ok
}

// Overlap returns the shared region of two boxes and whether its area is
// greater than zero.
func (bb BoundingBox) Overlap(other BoundingBox) (BoundingBox, bool) {
	region := BoundingBox{
		Min: Point{X: math.Max(bb.Min.X, other.Min.X), Y: math.Max(bb.Min.Y, other.Min.Y)},
		Max: Point{X: math.Min(bb.Max.X, other.Max.X), Y: math.Min(bb.Max.Y, other.Max.Y)},
	}
	if region.Width() <= 0 || region.Height() <= 0 {
		return BoundingBox{}, false
	}
	return region, true
}

// Contains checks if a position is within the bounding box
func (bb BoundingBox) Contains(pos Point) bool {
	return pos.X >= bb.Min.X && pos.X <= bb.Max.X &&
		pos.Y >= bb.Min.Y && pos.Y <= bb.Max.Y
}

// ContainsBox checks if other lies entirely within the bounding box
func (bb BoundingBox) ContainsBox(other BoundingBox) bool {
	return bb.Contains(other.Min) && bb.Contains(other.Max)
}

// Width returns the width of the bounding box
func (bb BoundingBox) Width() float64 {
	return bb.Max.X - bb.Min.X
}

// Height returns the height of the bounding box
func (bb BoundingBox) Height() float64 {
	return bb.Max.Y - bb.Min.Y
}

// Center returns the center of the bounding box
func (bb BoundingBox) Center() Point {
	return Point{
		X: (bb.Min.X + bb.Max.X) / 2,
		Y: (bb.Min.Y + bb.Max.Y) / 2,
	}
}
