package pindef

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// pinDocument is the serialized form of a PinDefinition.
type pinDocument struct {
	ID                     string                 `yaml:"id"`
	Function               Function               `yaml:"function"`
	Name                   string                 `yaml:"name"`
	Unit                   string                 `yaml:"unit"`
	ConversionCoefficients ConversionCoefficients `yaml:"conversion_coefficients"`
	MainGUI                guiDocument            `yaml:"main_gui"`
	Value                  Value                  `yaml:"value"`
	ImportantGUI           guiDocument            `yaml:"important_gui"`
	ActiveLow              bool                   `yaml:"active_low"`
	Miscellaneous          Miscellaneous          `yaml:"miscellaneous"`
	Exponential            Exponential            `yaml:"exponential"`
	Alarm                  Alarm                  `yaml:"alarm"`
}

// guiDocument carries the derived display fields on output only; they are
// recomputed from the function when decoding.
type guiDocument struct {
	Display          bool        `yaml:"display"`
	Column           int         `yaml:"column"`
	Row              int         `yaml:"row"`
	DisplayType      DisplayType `yaml:"display_type,omitempty"`
	DisplayDirection Direction   `yaml:"display_direction,omitempty"`
}

func newGuiDocument(g Gui) guiDocument {
	return guiDocument{
		Display:          g.Display,
		Column:           g.Column,
		Row:              g.Row,
		DisplayType:      g.displayType,
		DisplayDirection: g.direction,
	}
}

func (p PinDefinition) MarshalYAML() (interface{}, error) {
	return pinDocument{
		ID:                     p.id,
		Function:               p.function,
		Name:                   p.Name,
		Unit:                   p.Unit,
		ConversionCoefficients: p.ConversionCoefficients,
		MainGUI:                newGuiDocument(p.MainGUI),
		Value:                  p.Value,
		ImportantGUI:           newGuiDocument(p.ImportantGUI),
		ActiveLow:              p.ActiveLow,
		Miscellaneous:          p.Miscellaneous,
		Exponential:            p.Exponential,
		Alarm:                  p.Alarm,
	}, nil
}

func (p *PinDefinition) UnmarshalYAML(node *yaml.Node) error {
	var doc pinDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}

	pin, err := NewPinDefinition(doc.ID, doc.Function)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	pin.Name = doc.Name
	pin.Unit = doc.Unit
	pin.ConversionCoefficients = doc.ConversionCoefficients
	pin.Value = doc.Value
	pin.MainGUI.Display, pin.MainGUI.Column, pin.MainGUI.Row = doc.MainGUI.Display, doc.MainGUI.Column, doc.MainGUI.Row
	pin.ImportantGUI.Display, pin.ImportantGUI.Column, pin.ImportantGUI.Row = doc.ImportantGUI.Display, doc.ImportantGUI.Column, doc.ImportantGUI.Row
	pin.ActiveLow = doc.ActiveLow
	pin.Miscellaneous = doc.Miscellaneous
	pin.Exponential = doc.Exponential
	pin.Alarm = doc.Alarm

	*p = pin
	return nil
}
