package pindef

import (
	"fmt"
	"math"
	"strings"
)

// Function is the categorical tag classifying a pin's electrical role.
type Function string

const (
	DigIn  Function = "DIG_IN"
	DigOut Function = "DIG_OUT"
	ADC    Function = "ADC"
	DAC    Function = "DAC"
	PWR    Function = "PWR"
)

// DisplayType is the value type a GUI element uses to show a pin.
type DisplayType string

const (
	DisplayBool  DisplayType = "bool"
	DisplayFloat DisplayType = "float"
)

// Direction is the data direction from the operator panel's point of view.
// Inputs to the hardware are inputs on the panel (the operator sets them),
// readings from the hardware are panel outputs.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// DisplayTypeFor maps a pin function to the display type and direction of its GUI elements.
func DisplayTypeFor(fn Function) (DisplayType, Direction, error) {
	switch fn {
	case DigIn:
		return DisplayBool, DirectionOutput, nil
	case DigOut:
		return DisplayBool, DirectionInput, nil
	case ADC:
		return DisplayFloat, DirectionOutput, nil
	case DAC:
		return DisplayFloat, DirectionInput, nil
	}
	return "", "", &UnknownFunctionError{Function: string(fn)}
}

// PinDefinition describes one physical I/O channel of a hardware module.
// ID and Function are fixed at construction; every other sub-record may be
// edited afterwards.
type PinDefinition struct {
	id       string
	function Function

	// Name and Unit are free-text descriptive strings shown next to the value
	Name string
	Unit string

	// ConversionCoefficients scale raw hardware counts to engineering units
	ConversionCoefficients ConversionCoefficients

	// Value holds the allowed range and the initial value policy
	Value Value

	// MainGUI is the primary placement of the pin on the operator panel
	MainGUI Gui

	// ImportantGUI is the alternate placement on the panel of important values
	ImportantGUI Gui

	// ActiveLow inverts the boolean sense of digital channels
	ActiveLow bool

	// Exponential holds optional thermistor-style conversion parameters
	Exponential Exponential

	// Alarm holds optional threshold monitoring parameters
	Alarm Alarm

	// Miscellaneous holds per-channel hardware range settings
	Miscellaneous Miscellaneous
}

// NewPinDefinition creates a pin with both GUI descriptors derived from fn.
func NewPinDefinition(id string, fn Function) (PinDefinition, error) {
	displayType, direction, err := DisplayTypeFor(fn)
	if err != nil {
		return PinDefinition{}, err
	}
	return PinDefinition{
		id:           id,
		function:     fn,
		MainGUI:      Gui{displayType: displayType, direction: direction},
		ImportantGUI: Gui{displayType: displayType, direction: direction},
	}, nil
}

func (p *PinDefinition) ID() string         { return p.id }
func (p *PinDefinition) Function() Function { return p.function }

// ConversionCoefficients is the linear pair applied as engineering = K*raw + C.
type ConversionCoefficients struct {
	K float64 `yaml:"k"`
	C float64 `yaml:"C"`
}

// Engineering converts a raw hardware value to engineering units.
func (cc ConversionCoefficients) Engineering(raw float64) float64 {
	return cc.K*raw + cc.C
}

// Raw converts an engineering value back to a raw hardware value.
func (cc ConversionCoefficients) Raw(engineering float64) (float64, error) {
	if cc.K == 0 {
		return 0, fmt.Errorf("conversion coefficient k is zero, raw value is undefined")
	}
	return (engineering - cc.C) / cc.K, nil
}

// Value is the numeric range of a pin and its initial-value policy.
type Value struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Initial float64 `yaml:"initial"`

	// EnableInitial writes Initial to the hardware when the system starts
	EnableInitial bool `yaml:"enable_initial"`
}

// Validate checks min <= initial <= max.
func (v Value) Validate() error {
	// NaN in any field fails the check.
	if !(v.Min <= v.Max && v.Min <= v.Initial && v.Initial <= v.Max) {
		return &ValueRangeError{Min: v.Min, Max: v.Max, Initial: v.Initial}
	}
	return nil
}

// Gui is a display placement descriptor. The display type and direction come
// from the owning pin's function and cannot be set independently.
type Gui struct {
	Display bool
	Column  int
	Row     int

	displayType DisplayType
	direction   Direction
}

func (g Gui) DisplayType() DisplayType    { return g.displayType }
func (g Gui) DisplayDirection() Direction { return g.direction }

// Exponential holds beta-model thermistor parameters. Absent cells import as 0.0.
type Exponential struct {
	Enable bool    `yaml:"enable"`
	B      float64 `yaml:"B"`
	R0     float64 `yaml:"R0"`
	T0     float64 `yaml:"T0"`
}

// Temperature converts a resistance to a temperature using the beta equation
// 1/T = 1/T0 + ln(R/R0)/B. T0 and the result share the same absolute scale.
func (e Exponential) Temperature(resistance float64) (float64, error) {
	if !e.Enable {
		return 0, fmt.Errorf("exponential conversion is disabled")
	}
	if e.B == 0 || e.R0 <= 0 || e.T0 == 0 || resistance <= 0 {
		return 0, fmt.Errorf("invalid exponential parameters (B=%g, R0=%g, T0=%g, R=%g)", e.B, e.R0, e.T0, resistance)
	}
	return 1 / (1/e.T0 + math.Log(resistance/e.R0)/e.B), nil
}

// AlarmLevel is the outcome of evaluating a value against alarm thresholds.
type AlarmLevel int

const (
	AlarmNone AlarmLevel = iota
	AlarmWarning
	AlarmInterlock
)

func (l AlarmLevel) String() string {
	switch l {
	case AlarmWarning:
		return "warning"
	case AlarmInterlock:
		return "interlock"
	}
	return "none"
}

// Alarm describes threshold monitoring. Absent threshold cells import as 0.0.
type Alarm struct {
	Enable bool `yaml:"enable"`

	// Above triggers when the value rises above the thresholds; otherwise when it falls below them
	Above bool `yaml:"above"`

	WarningValue   float64 `yaml:"warning_value"`
	InterlockValue float64 `yaml:"interlock_value"`
}

// Evaluate returns the most severe alarm level reached by v.
func (a Alarm) Evaluate(v float64) AlarmLevel {
	if !a.Enable {
		return AlarmNone
	}
	crossed := func(threshold float64) bool {
		if a.Above {
			return v > threshold
		}
		return v < threshold
	}
	switch {
	case crossed(a.InterlockValue):
		return AlarmInterlock
	case crossed(a.WarningValue):
		return AlarmWarning
	}
	return AlarmNone
}

// Miscellaneous holds hardware range settings. Nil means the sheet left it unset.
type Miscellaneous struct {
	DACRange         *float64 `yaml:"dac_range,omitempty"`
	ADCRange         *float64 `yaml:"adc_range,omitempty"`
	DisablePowerdrop *bool    `yaml:"disable_powerdrop,omitempty"`
}

// Module is one import batch: the pins of a single hardware definition file.
// Pin ids are unique only within a module.
type Module struct {
	// Name is the source file name without its extension
	Name string `yaml:"name"`

	// Source is the path the module was imported from
	Source string `yaml:"source,omitempty"`

	// Pins are kept in source row order
	Pins []PinDefinition `yaml:"pins"`
}

// Lookup returns the pin with the given id, or nil if not found.
func (m *Module) Lookup(id string) *PinDefinition {
	for i := range m.Pins {
		if m.Pins[i].id == id {
			return &m.Pins[i]
		}
	}
	return nil
}

// Validate checks id uniqueness and every pin's value range.
func (m *Module) Validate() error {
	seen := make(map[string]bool)
	for i := range m.Pins {
		pin := &m.Pins[i]
		if seen[pin.id] {
			return &DuplicateIDError{Module: m.Name, ID: pin.id}
		}
		seen[pin.id] = true

		if err := pin.Value.Validate(); err != nil {
			return fmt.Errorf("invalid pin %s in module %s: %w", pin.id, m.Name, err)
		}
	}
	return nil
}

// CountByFunction returns how many pins the module has per function.
func (m *Module) CountByFunction() map[Function]int {
	counts := make(map[Function]int)
	for i := range m.Pins {
		counts[m.Pins[i].function]++
	}
	return counts
}

func (m *Module) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Module %s:\n", m.Name))
	sb.WriteString(fmt.Sprintf("  Pins: %d\n", len(m.Pins)))

	counts := m.CountByFunction()
	for _, fn := range []Function{DigIn, DigOut, ADC, DAC} {
		if counts[fn] > 0 {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", fn, counts[fn]))
		}
	}
	return sb.String()
}

func (p *PinDefinition) String() string {
	unit := p.Unit
	if unit == "" {
		unit = "-"
	}
	return fmt.Sprintf("Pin %s (%s, %s [%s], main: %s/%s)",
		p.id, p.function, p.Name, unit, p.MainGUI.displayType, p.MainGUI.direction)
}
