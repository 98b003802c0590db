package circuit

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var uuidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kicad_sch"))

// StableUUID derives an identifier from content, so that generating or
// encoding the same circuit twice yields the same text.
func StableUUID(parts ...string) string {
	return uuid.NewSHA1(uuidSpace, []byte(strings.Join(parts, "\x00"))).String()
}

// Key returns the rounded coordinates of p as text, for use in ids.
func (p Point) Key() string {
	p = p.Round()
	return strconv.FormatFloat(p.X, 'f', -1, 64) + " " + strconv.FormatFloat(p.Y, 'f', -1, 64)
}

// WireUUID is the derived id of a wire drawn from start to end.
func WireUUID(start, end Point) string {
	return StableUUID("wire", start.Key(), end.Key())
}

// JunctionUUID is the derived id of a junction at p.
func JunctionUUID(p Point) string {
	return StableUUID("junction", p.Key())
}

// LabelUUID is the derived id of a label with the given text at p.
func LabelUUID(text string, p Point) string {
	return StableUUID("label", text, p.Key())
}

// SymbolUUID is the derived id of the symbol instance ref.
func SymbolUUID(ref string) string {
	return StableUUID("symbol", ref)
}

// SheetUUID is the derived id of a document titled title.
func SheetUUID(title string) string {
	return StableUUID("sheet", title)
}
