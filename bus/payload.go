package bus

import (
	"github.com/example/pin-definition-importer/pindef"
	"github.com/example/pin-definition-importer/settings"
)

// Payload is the closed set of messages carried by the bus.
type Payload interface {
	Kind() string
	isPayload()
}

// PinWrite asks a controller to drive a pin of a module.
type PinWrite struct {
	Module   string
	PinID    string
	Function pindef.Function
	Value    float64
}

// Bool reads the value as a digital level.
func (p PinWrite) Bool() bool { return p.Value != 0 }

// Command is a controller lifecycle request.
type Command string

const (
	CommandConnect    Command = "connect"
	CommandDisconnect Command = "disconnect"
)

// ControllerCommand connects or disconnects a hardware controller.
type ControllerCommand struct {
	Command Command
}

// PowerState reports whether hardware is powered.
type PowerState struct {
	On bool
}

// SettingsChanged carries the accepted settings of a dialog-backed component.
type SettingsChanged struct {
	Owner    string
	Settings *settings.Set
}

func (PinWrite) Kind() string          { return "pin_write" }
func (ControllerCommand) Kind() string { return "controller_command" }
func (PowerState) Kind() string        { return "power_state" }
func (SettingsChanged) Kind() string   { return "settings_changed" }

func (PinWrite) isPayload()          {}
func (ControllerCommand) isPayload() {}
func (PowerState) isPayload()        {}
func (SettingsChanged) isPayload()   {}
