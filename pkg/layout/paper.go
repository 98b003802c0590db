package layout

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"
)

// paperSizes holds KiCad sheet sizes in millimeters, landscape.
var paperSizes = map[string][2]float64{
	"A5":       {210, 148},
	"A4":       {297, 210},
	"A3":       {420, 297},
	"A2":       {594, 420},
	"A1":       {841, 594},
	"A0":       {1189, 841},
	"A":        {279.4, 215.9},
	"B":        {431.8, 279.4},
	"C":        {558.8, 431.8},
	"D":        {863.6, 558.8},
	"E":        {1117.6, 863.6},
	"USLETTER": {279.4, 215.9},
	"USLEGAL":  {355.6, 215.9},
	"USLEDGER": {431.8, 279.4},
}

// PaperSize returns the size of a named sheet. User sheets take the given
// width and height. Unknown names fall back to A4.
func PaperSize(name string, width, height float64) (float64, float64) {
	if strings.EqualFold(name, "User") && width > 0 && height > 0 {
		return width, height
	}
	if size, ok := paperSizes[strings.ToUpper(name)]; ok {
		return size[0], size[1]
	}
	size := paperSizes["A4"]
	return size[0], size[1]
}

// Sheet returns the usable area of a sheet: the paper rectangle shrunk by
// margin on every side.
func Sheet(paper string, width, height, margin float64) circuit.BoundingBox {
	w, h := PaperSize(paper, width, height)
	return circuit.BoundingBox{
		Min: circuit.Point{X: margin, Y: margin},
		Max: circuit.Point{X: w - margin, Y: h - margin},
	}
}

// SheetOf returns the usable area of the circuit's own sheet.
func SheetOf(c *circuit.Circuit, margin float64) circuit.BoundingBox {
	return Sheet(c.Meta.Paper, c.Meta.PaperWidth, c.Meta.PaperHeight, margin)
}
