package pindef

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConversionCoefficients(t *testing.T) {
	cc := ConversionCoefficients{K: 0.01, C: -50}
	if got := cc.Engineering(7000); math.Abs(got-20) > 1e-9 {
		t.Errorf("Engineering(7000) = %g, want 20", got)
	}

	raw, err := cc.Raw(20)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if math.Abs(raw-7000) > 1e-6 {
		t.Errorf("Raw(20) = %g, want 7000", raw)
	}

	if _, err := (ConversionCoefficients{K: 0, C: 1}).Raw(1); err == nil {
		t.Error("expected an error for k == 0")
	}
}

func TestExponentialTemperature(t *testing.T) {
	exp := Exponential{Enable: true, B: 3950, R0: 10000, T0: 298.15}

	temp, err := exp.Temperature(10000)
	if err != nil {
		t.Fatalf("Temperature failed: %v", err)
	}
	if math.Abs(temp-298.15) > 1e-9 {
		t.Errorf("at R0 the temperature must be T0, got %g", temp)
	}

	hot, _ := exp.Temperature(5000)
	if hot <= temp {
		t.Errorf("lower NTC resistance must mean higher temperature, got %g <= %g", hot, temp)
	}

	if _, err := (Exponential{}).Temperature(1000); err == nil {
		t.Error("expected an error when disabled")
	}
	if _, err := (Exponential{Enable: true, B: 3950, R0: 10000}).Temperature(1000); err == nil {
		t.Error("expected an error for T0 == 0")
	}
}

func TestAlarmEvaluate(t *testing.T) {
	above := Alarm{Enable: true, Above: true, WarningValue: 80, InterlockValue: 95}
	below := Alarm{Enable: true, Above: false, WarningValue: 10, InterlockValue: 5}

	cases := []struct {
		alarm Alarm
		v     float64
		want  AlarmLevel
	}{
		{above, 50, AlarmNone},
		{above, 81, AlarmWarning},
		{above, 96, AlarmInterlock},
		{below, 50, AlarmNone},
		{below, 9, AlarmWarning},
		{below, 1, AlarmInterlock},
		{Alarm{Above: true, WarningValue: 1, InterlockValue: 2}, 100, AlarmNone},
	}
	for _, c := range cases {
		if got := c.alarm.Evaluate(c.v); got != c.want {
			t.Errorf("%+v.Evaluate(%g) = %s, want %s", c.alarm, c.v, got, c.want)
		}
	}
}

func TestValueValidate(t *testing.T) {
	valid := []Value{{Min: 0, Max: 10, Initial: 0}, {Min: 0, Max: 10, Initial: 10}, {Min: -5, Max: -5, Initial: -5}}
	for _, v := range valid {
		if err := v.Validate(); err != nil {
			t.Errorf("expected %+v to be valid, got %v", v, err)
		}
	}

	nan := math.NaN()
	invalid := []Value{
		{Min: 0, Max: 10, Initial: 11},
		{Min: 0, Max: 10, Initial: -1},
		{Min: 10, Max: 0, Initial: 5},
		{Min: 0, Max: 10, Initial: nan},
		{Min: nan, Max: 10, Initial: 5},
		{Min: 0, Max: nan, Initial: 5},
	}
	for _, v := range invalid {
		var vre *ValueRangeError
		if err := v.Validate(); !errors.As(err, &vre) {
			t.Errorf("expected ValueRangeError for %+v, got %v", v, err)
		}
	}
}

func TestModuleValidateDuplicateIDs(t *testing.T) {
	a, _ := NewPinDefinition("X1", ADC)
	b, _ := NewPinDefinition("X1", DAC)
	m := &Module{Name: "dup", Pins: []PinDefinition{a, b}}

	var dup *DuplicateIDError
	if err := m.Validate(); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if dup.ID != "X1" || dup.Module != "dup" {
		t.Errorf("unexpected error contents: %+v", dup)
	}
}

func TestModuleYAMLRecomputesDisplay(t *testing.T) {
	pin, err := NewPinDefinition("ADD4 2", DAC)
	if err != nil {
		t.Fatalf("NewPinDefinition failed: %v", err)
	}
	pin.Name = "Heater setpoint"
	pin.Value = Value{Min: 0, Max: 5, Initial: 1, EnableInitial: true}
	pin.MainGUI.Display = true
	pin.MainGUI.Column = 3

	out, err := yaml.Marshal(&Module{Name: "m", Pins: []PinDefinition{pin}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), "display_direction: input") {
		t.Errorf("expected derived display direction in output:\n%s", out)
	}

	// A document claiming a different display type must not override the function.
	tampered := strings.ReplaceAll(string(out), "display_type: float", "display_type: bool")

	var decoded Module
	if err := yaml.Unmarshal([]byte(tampered), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got := decoded.Lookup("ADD4 2")
	if got == nil {
		t.Fatal("pin lost in round trip")
	}
	if got.MainGUI.DisplayType() != DisplayFloat || got.ImportantGUI.DisplayType() != DisplayFloat {
		t.Errorf("display type must follow the DAC function, got %s/%s",
			got.MainGUI.DisplayType(), got.ImportantGUI.DisplayType())
	}
	if !got.MainGUI.Display || got.MainGUI.Column != 3 || !got.Value.EnableInitial || got.Name != "Heater setpoint" {
		t.Errorf("editable fields lost in round trip: %+v", got)
	}
}

func TestModuleYAMLUnknownFunction(t *testing.T) {
	doc := "name: m\npins:\n  - id: Q\n    function: RELAY\n"
	var m Module
	err := yaml.Unmarshal([]byte(doc), &m)
	var ufe *UnknownFunctionError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFunctionError, got %v", err)
	}
}
