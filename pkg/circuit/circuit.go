// Package circuit holds the in-memory schematic model: components with
// their pins, nets, wires, junctions and labels, independent of any file
// format. Constructors check the model invariants.
package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/kicad/sexp/kicadsexp"
)

// PinType is the electrical type of a pin.
type PinType string

const (
	PinInput         PinType = "input"
	PinOutput        PinType = "output"
	PinBidirectional PinType = "bidirectional"
	PinPassive       PinType = "passive"
	PinPowerIn       PinType = "power_in"
	PinPowerOut      PinType = "power_out"
	PinUnconnected   PinType = "no_connect"
)

// ParsePinType maps a KiCad electrical type token onto the model's types.
func ParsePinType(s string) PinType {
	switch strings.ReplaceAll(s, "-", "_") {
	case "input":
		return PinInput
	case "output", "open_collector", "open_emitter":
		return PinOutput
	case "bidirectional", "tri_state":
		return PinBidirectional
	case "power_in":
		return PinPowerIn
	case "power_out":
		return PinPowerOut
	case "no_connect", "unconnected":
		return PinUnconnected
	}
	return PinPassive
}

// Pin is one connection point of a component.
type Pin struct {
	Number string
	Name   string
	Type   PinType
	// Offset is the connection point relative to the symbol origin in
	// library coordinates (Y up, unrotated).
	Offset Point
	// Angle is the direction the pin points away from its connection point.
	Angle float64
}

// Position is a component placement. Rotation is one of 0, 90, 180, 270.
type Position struct {
	X        float64
	Y        float64
	Rotation int
}

// Point returns the placement without rotation.
func (p Position) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// Property is a named component attribute (Reference, Value, Footprint, ...).
type Property struct {
	Name  string
	Value string
	// Raw is the decoded property node. Its placement and text effects are
	// written back unchanged.
	Raw *kicadsexp.List
}

// Component is a placed symbol instance.
type Component struct {
	Ref        string
	LibID      string
	Value      string
	Type       string // type keyword from the symbol table, empty when unknown
	Position   Position
	Pins       []Pin
	Properties []Property
	UUID       string
	Unit       int
	Power      bool
	InBOM      bool
	OnBoard    bool
	// Placed is false until the layout engine has assigned a position.
	Placed bool
	// Extra holds child nodes the mapper does not model.
	Extra []kicadsexp.Sexp
}

// NewComponent creates a component, checking that the reference is set,
// the rotation is a right angle and pin numbers are unique.
func NewComponent(ref, libID, value string, pos Position, pins []Pin) (*Component, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.NewValidation("component reference is empty")
	}
	if !validRotation(pos.Rotation) {
		return nil, errors.NewValidation(
			fmt.Sprintf("component %s: rotation %d is not one of 0, 90, 180, 270", ref, pos.Rotation), ref)
	}

	seen := make(map[string]bool, len(pins))
	for _, p := range pins {
		if p.Number == "" {
			return nil, errors.NewValidation(fmt.Sprintf("component %s: pin with empty number", ref), ref)
		}
		if seen[p.Number] {
			return nil, errors.NewValidation(
				fmt.Sprintf("component %s: pin number %s declared twice", ref, p.Number), ref)
		}
		seen[p.Number] = true
	}

	return &Component{
		Ref:      ref,
		LibID:    libID,
		Value:    value,
		Position: pos,
		Pins:     append([]Pin(nil), pins...),
		Unit:     1,
		InBOM:    true,
		OnBoard:  true,
		Placed:   true,
	}, nil
}

func validRotation(r int) bool {
	return r == 0 || r == 90 || r == 180 || r == 270
}

// NormalizeRotation folds an angle in degrees onto 0, 90, 180 or 270.
func NormalizeRotation(deg float64) int {
	r := int(deg) % 360
	if r < 0 {
		r += 360
	}
	return (r + 45) / 90 * 90 % 360
}

// Pin looks up a pin by number.
func (c *Component) Pin(number string) (Pin, bool) {
	for _, p := range c.Pins {
		if p.Number == number {
			return p, true
		}
	}
	return Pin{}, false
}

// Property returns a property value by name.
func (c *Component) Property(name string) (string, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty sets a property, keeping its position if it already exists.
func (c *Component) SetProperty(name, value string) {
	for i := range c.Properties {
		if c.Properties[i].Name == name {
			c.Properties[i].Value = value
			return
		}
	}
	c.Properties = append(c.Properties, Property{Name: name, Value: value})
}

// PinPoint returns the sheet coordinate of a pin's connection point. Library
// Y is up and sheet Y is down, so the offset is flipped after rotation.
func (c *Component) PinPoint(p Pin) Point {
	off := p.Offset.Rotate(float64(c.Position.Rotation))
	return Point{X: c.Position.X + off.X, Y: c.Position.Y - off.Y}.Round()
}

// Endpoint identifies one pin of one component.
type Endpoint struct {
	Ref string `json:"ref"`
	Pin string `json:"pin"`
}

func (e Endpoint) String() string {
	return e.Ref + "." + e.Pin
}

// Less orders endpoints by reference, then pin number.
func (e Endpoint) Less(o Endpoint) bool {
	if e.Ref != o.Ref {
		return naturalLess(e.Ref, o.Ref)
	}
	return naturalLess(e.Pin, o.Pin)
}

// Net is a set of electrically joined pins.
type Net struct {
	Name      string
	Endpoints []Endpoint
	// Anonymous marks names generated as NET_<n> rather than given by a user,
	// a label or a power symbol.
	Anonymous bool
}

// NewNet creates a named net, rejecting duplicate or incomplete endpoints.
func NewNet(name string, endpoints []Endpoint) (*Net, error) {
	if name == "" {
		return nil, errors.NewValidation("net name is empty")
	}
	seen := make(map[Endpoint]bool, len(endpoints))
	for _, ep := range endpoints {
		if ep.Ref == "" || ep.Pin == "" {
			return nil, errors.NewValidation(fmt.Sprintf("net %s: incomplete endpoint %q", name, ep.String()))
		}
		if seen[ep] {
			return nil, errors.NewValidation(
				fmt.Sprintf("net %s: endpoint %s listed twice", name, ep), ep.Ref)
		}
		seen[ep] = true
	}
	return &Net{Name: name, Endpoints: append([]Endpoint(nil), endpoints...)}, nil
}

// Contains reports whether the net includes ep.
func (n *Net) Contains(ep Endpoint) bool {
	for _, e := range n.Endpoints {
		if e == ep {
			return true
		}
	}
	return false
}

// Wire is a straight segment drawn between two points.
type Wire struct {
	Start Point
	End   Point
	UUID  string
	Extra []kicadsexp.Sexp
}

// Junction marks meeting wires as joined.
type Junction struct {
	At    Point
	UUID  string
	Extra []kicadsexp.Sexp
}

// Label names the net at a point.
type Label struct {
	Text  string
	At    Point
	Angle float64
	UUID  string
	Extra []kicadsexp.Sexp
}

// Meta is the document header.
type Meta struct {
	Version          int
	Generator        string
	GeneratorVersion string
	UUID             string
	Paper            string
	// PaperWidth and PaperHeight are set for user-defined sheet sizes.
	PaperWidth  float64
	PaperHeight float64
	Title       string
	Date        string
	Revision    string
	// Extra holds title block entries other than title, date and revision.
	Extra []kicadsexp.Sexp
}

// Circuit is the aggregate root of a schematic.
type Circuit struct {
	Meta       Meta
	components []*Component
	byRef      map[string]*Component
	Nets       []*Net
	Wires      []Wire
	Junctions  []Junction
	Labels     []Label
	// LibSymbols holds the library symbol definitions keyed by lib id, in
	// document order.
	LibSymbols []LibSymbol
	// Opaque holds top-level nodes the mapper does not model.
	Opaque []kicadsexp.Sexp
	// Warnings holds the naming conflicts found when nets were rebuilt
	// from a decoded drawing.
	Warnings []string
}

// LibSymbol is a stored library symbol definition.
type LibSymbol struct {
	ID   string
	Node *kicadsexp.List
}

// New creates an empty circuit.
func New() *Circuit {
	return &Circuit{byRef: make(map[string]*Component)}
}

// AddComponent adds c, rejecting a duplicate reference.
func (ckt *Circuit) AddComponent(c *Component) error {
	if ckt.byRef == nil {
		ckt.byRef = make(map[string]*Component)
	}
	if _, exists := ckt.byRef[c.Ref]; exists {
		return errors.NewValidation(fmt.Sprintf("duplicate component reference %s", c.Ref), c.Ref)
	}
	ckt.components = append(ckt.components, c)
	ckt.byRef[c.Ref] = c
	return nil
}

// Component looks up a component by reference.
func (ckt *Circuit) Component(ref string) (*Component, bool) {
	c, ok := ckt.byRef[ref]
	return c, ok
}

// Components returns the components in declaration order.
func (ckt *Circuit) Components() []*Component {
	return ckt.components
}

// Net looks up a net by name.
func (ckt *Circuit) Net(name string) (*Net, bool) {
	for _, n := range ckt.Nets {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// NetOf returns the net containing ep.
func (ckt *Circuit) NetOf(ep Endpoint) (*Net, bool) {
	for _, n := range ckt.Nets {
		if n.Contains(ep) {
			return n, true
		}
	}
	return nil, false
}

// LibSymbol returns the stored definition for a lib id.
func (ckt *Circuit) LibSymbol(id string) (*kicadsexp.List, bool) {
	for _, ls := range ckt.LibSymbols {
		if ls.ID == id {
			return ls.Node, true
		}
	}
	return nil, false
}

// SortNets orders nets by name and their endpoints canonically.
func (ckt *Circuit) SortNets() {
	for _, n := range ckt.Nets {
		sort.Slice(n.Endpoints, func(i, j int) bool {
			return n.Endpoints[i].Less(n.Endpoints[j])
		})
	}
	sort.Slice(ckt.Nets, func(i, j int) bool {
		return naturalLess(ckt.Nets[i].Name, ckt.Nets[j].Name)
	})
}

// Validate checks every model invariant and returns all violations.
func (ckt *Circuit) Validate() []error {
	var problems []error

	names := make(map[string]bool)
	owner := make(map[Endpoint]string)
	for _, n := range ckt.Nets {
		if names[n.Name] {
			problems = append(problems, errors.NewValidation(fmt.Sprintf("net name %s used twice", n.Name)))
		}
		names[n.Name] = true

		for _, ep := range n.Endpoints {
			c, ok := ckt.byRef[ep.Ref]
			if !ok {
				problems = append(problems, errors.NewValidation(
					fmt.Sprintf("net %s references unknown component %s", n.Name, ep.Ref), ep.Ref))
				continue
			}
			if _, ok := c.Pin(ep.Pin); !ok {
				problems = append(problems, errors.NewValidation(
					fmt.Sprintf("net %s references unknown pin %s", n.Name, ep), ep.Ref))
			}
			if prev, dup := owner[ep]; dup && prev != n.Name {
				problems = append(problems, errors.NewValidation(
					fmt.Sprintf("pin %s is in nets %s and %s", ep, prev, n.Name), ep.Ref))
			}
			owner[ep] = n.Name
		}
	}
	return problems
}
