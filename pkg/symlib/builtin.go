package symlib

import "github.com/OpenTraceLab/OpenTraceSch/pkg/circuit"

var powerNames = []string{
	"VCC", "VDD", "VEE", "VSS", "GND", "GNDA", "GNDD", "VBUS", "VIN",
	"+1V8", "+3V3", "+3.3V", "+5V", "+9V", "+12V", "+15V", "+24V", "-5V", "-12V", "-15V",
}

var keywordAliases = map[string]string{
	"r":      "resistor",
	"res":    "resistor",
	"c":      "capacitor",
	"cap":    "capacitor",
	"l":      "inductor",
	"d":      "diode",
	"npn":    "transistor_npn",
	"pnp":    "transistor_pnp",
	"u":      "ic",
	"chip":   "ic",
	"sw":     "switch",
	"button": "switch",
	"j":      "connector",
	"conn":   "connector",
	"header": "connector",
}

func twoTerminal(numbers, names [2]string) []PinDef {
	return []PinDef{
		{Number: numbers[0], Name: names[0], Type: circuit.PinPassive, Offset: circuit.Point{X: -3.81}, Angle: 0},
		{Number: numbers[1], Name: names[1], Type: circuit.PinPassive, Offset: circuit.Point{X: 3.81}, Angle: 180},
	}
}

func transistorPins() []PinDef {
	return []PinDef{
		{Number: "1", Name: "B", Type: circuit.PinInput, Offset: circuit.Point{X: -5.08}, Angle: 0},
		{Number: "2", Name: "C", Type: circuit.PinPassive, Offset: circuit.Point{Y: 5.08}, Angle: 270},
		{Number: "3", Name: "E", Type: circuit.PinPassive, Offset: circuit.Point{Y: -5.08}, Angle: 90},
	}
}

func builtinTypes() []*Type {
	return []*Type{
		{
			Keyword: "resistor", Library: "Device", Symbol: "R", RefPrefix: "R",
			Width: 10, Height: 5,
			Pins: twoTerminal([2]string{"1", "2"}, [2]string{"~", "~"}),
		},
		{
			Keyword: "capacitor", Library: "Device", Symbol: "C", RefPrefix: "C",
			Width: 8, Height: 6,
			Pins: twoTerminal([2]string{"1", "2"}, [2]string{"~", "~"}),
		},
		{
			Keyword: "inductor", Library: "Device", Symbol: "L", RefPrefix: "L",
			Width: 12, Height: 8,
			Pins: twoTerminal([2]string{"1", "2"}, [2]string{"1", "2"}),
		},
		{
			Keyword: "led", Library: "Device", Symbol: "LED", RefPrefix: "D",
			Width: 6, Height: 8,
			Pins:    twoTerminal([2]string{"1", "2"}, [2]string{"K", "A"}),
			Aliases: map[string]string{"cathode": "1", "anode": "2", "k": "1", "a": "2"},
		},
		{
			Keyword: "diode", Library: "Device", Symbol: "D", RefPrefix: "D",
			Width: 8, Height: 6,
			Pins:    twoTerminal([2]string{"1", "2"}, [2]string{"K", "A"}),
			Aliases: map[string]string{"cathode": "1", "anode": "2", "k": "1", "a": "2"},
		},
		{
			Keyword: "transistor_npn", Library: "Device", Symbol: "Q_NPN_CBE", RefPrefix: "Q",
			Width: 10, Height: 12,
			Pins:    transistorPins(),
			Aliases: map[string]string{"base": "1", "collector": "2", "emitter": "3"},
		},
		{
			Keyword: "transistor_pnp", Library: "Device", Symbol: "Q_PNP_CBE", RefPrefix: "Q",
			Width: 10, Height: 12,
			Pins:    transistorPins(),
			Aliases: map[string]string{"base": "1", "collector": "2", "emitter": "3"},
		},
		{
			Keyword: "ic", Library: "Device", Symbol: "U", RefPrefix: "U",
			Width: 20, Height: 15,
			Pins: []PinDef{
				{Number: "1", Name: "Pin1", Type: circuit.PinBidirectional, Offset: circuit.Point{X: -7.62, Y: 2.54}, Angle: 0},
				{Number: "2", Name: "Pin2", Type: circuit.PinBidirectional, Offset: circuit.Point{X: -7.62, Y: -2.54}, Angle: 0},
				{Number: "3", Name: "VCC", Type: circuit.PinPowerIn, Offset: circuit.Point{X: 7.62, Y: 2.54}, Angle: 180},
				{Number: "4", Name: "GND", Type: circuit.PinPowerIn, Offset: circuit.Point{X: 7.62, Y: -2.54}, Angle: 180},
			},
			Aliases: map[string]string{"vdd": "3", "vss": "4", "in": "1", "out": "2"},
		},
		{
			Keyword: "switch", Library: "Switch", Symbol: "SW_Push", RefPrefix: "SW",
			Width: 12, Height: 8,
			Pins: []PinDef{
				{Number: "1", Name: "1", Type: circuit.PinPassive, Offset: circuit.Point{X: -5.08}, Angle: 0},
				{Number: "2", Name: "2", Type: circuit.PinPassive, Offset: circuit.Point{X: 5.08}, Angle: 180},
			},
		},
		{
			Keyword: "connector", Library: "Connector", Symbol: "Conn_01x02", RefPrefix: "J",
			Width: 15, Height: 10,
			Pins: []PinDef{
				{Number: "1", Name: "Pin_1", Type: circuit.PinPassive, Offset: circuit.Point{X: -5.08, Y: 1.27}, Angle: 0},
				{Number: "2", Name: "Pin_2", Type: circuit.PinPassive, Offset: circuit.Point{X: -5.08, Y: -1.27}, Angle: 0},
			},
		},
	}
}
