package ops

import (
	"context"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Template is a ready-made circuit description.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Text        string `json:"text,omitempty"`
}

var templates = map[string]Template{
	"led_blinker": {
		Name:        "led_blinker",
		Description: "LED with a current limiting resistor on a 5V supply",
		Text: `circuit: LED Blinker
components:
R1 resistor 220 (60, 50)
D1 led red (90, 50)
power:
VCC +5V (40, 40)
GND GND (110, 60)
connections:
VCC -> R1.1
R1.2 -> D1.anode
D1.cathode -> GND
`,
	},
	"voltage_divider": {
		Name:        "voltage_divider",
		Description: "Two resistor voltage divider with a named output",
		Text: `circuit: Voltage Divider
components:
R1 resistor 10k (60, 50)
R2 resistor 10k (90, 50)
power:
VCC +5V (40, 40)
GND GND (110, 60)
connections:
VCC -> R1.1
R1.2 -> R2.1 : VOUT
R2.2 -> GND
`,
	},
	"rc_filter": {
		Name:        "rc_filter",
		Description: "First order RC low-pass filter fed from a connector",
		Text: `circuit: RC Filter
components:
J1 connector Input (40, 60)
R1 resistor 1k (70, 50)
C1 capacitor 100nF (100, 50)
power:
GND GND (120, 70)
connections:
J1.1 -> R1.1 : IN
R1.2 -> C1.1 : OUT
C1.2 -> GND
J1.2 -> GND
`,
	},
	"esp32_basic": {
		Name:        "esp32_basic",
		Description: "ESP32 module with decoupling, enable pull-up and reset button",
		Text: `circuit: ESP32 Basic
components:
U1 ic ESP32-WROOM-32 (100, 60)
R1 resistor 10k (60, 60)
C1 capacitor 100nF (140, 60)
SW1 switch RESET (60, 90)
power:
VCC +3V3 (130, 35)
GND GND (130, 90)
connections:
VCC -> U1.VCC
U1.GND -> GND
VCC -> C1.1
C1.2 -> GND
VCC -> R1.1
R1.2 -> U1.1 : EN
SW1.1 -> U1.1
SW1.2 -> GND
`,
	},
	"motor_driver": {
		Name:        "motor_driver",
		Description: "Low-side NPN motor switch with flyback diode",
		Text: `circuit: Motor Driver
components:
J2 connector Control (40, 60)
R1 resistor 1k (70, 60)
Q1 transistor_npn TIP120 (100, 60)
D1 diode 1N4007 (130, 40)
J1 connector Motor (140, 70)
power:
VBAT +12V (160, 30)
GND GND (100, 100)
connections:
J2.1 -> R1.1 : CTRL
R1.2 -> Q1.base
Q1.emitter -> GND
J2.2 -> GND
VBAT -> J1.1
VBAT -> D1.cathode
D1.anode -> Q1.collector : MOTOR_N
J1.2 -> Q1.collector
`,
	},
	"sensor_i2c": {
		Name:        "sensor_i2c",
		Description: "I2C sensor with bus pull-ups, decoupling and a header",
		Text: `circuit: I2C Sensor
components:
U1 ic BME280 (100, 60)
R1 resistor 4.7k (60, 40)
R2 resistor 4.7k (60, 80)
C1 capacitor 100nF (140, 60)
J1 connector I2C (40, 60)
power:
VCC +3V3 (130, 35)
GND GND (130, 90)
connections:
VCC -> U1.VCC
U1.GND -> GND
VCC -> C1.1
C1.2 -> GND
J1.1 -> U1.1 : SDA
J1.2 -> U1.2 : SCL
VCC -> R1.1
R1.2 -> U1.1
VCC -> R2.1
R2.2 -> U1.2
`,
	},
}

// TemplateInput names a template.
type TemplateInput struct {
	Name string `json:"name"`
	// SaveAs stores the generated document under this name when set.
	SaveAs string `json:"save_as,omitempty"`
}

// ListTemplates lists the available templates without their text.
func (o *Ops) ListTemplates(context.Context) *Result {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Template, 0, len(names))
	for _, name := range names {
		t := templates[name]
		t.Text = ""
		out = append(out, t)
	}
	return success(out, nil)
}

// GetTemplate returns a template with its description text.
func (o *Ops) GetTemplate(_ context.Context, in TemplateInput) *Result {
	t, ok := templates[in.Name]
	if !ok {
		return failure(nil, nil, errors.NewNotFound("template", in.Name))
	}
	return success(&t, nil)
}

// GenerateTemplate generates the document for a template.
func (o *Ops) GenerateTemplate(ctx context.Context, in TemplateInput) *Result {
	t, ok := templates[in.Name]
	if !ok {
		return failure(nil, nil, errors.NewNotFound("template", in.Name))
	}
	return o.Generate(ctx, GenerateInput{Description: t.Text, Format: describe.FormatLine, SaveAs: in.SaveAs})
}
