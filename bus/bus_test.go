// bus/bus_test.go
package bus

import (
	"errors"
	"sync"
	"testing"

	"github.com/example/pin-definition-importer/pindef"
	"github.com/example/pin-definition-importer/settings"
)

// fakeController mimics a hardware controller driving digital outputs.
type fakeController struct {
	conn      *Connection
	connected bool
	outputs   map[string]bool
}

func newFakeController(b *Bus, dest string) (*fakeController, error) {
	fc := &fakeController{conn: b.NewConnection("fpga"), outputs: make(map[string]bool)}
	if _, err := fc.conn.Register(dest, fc.handle); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *fakeController) handle(p Payload) error {
	switch m := p.(type) {
	case ControllerCommand:
		fc.connected = m.Command == CommandConnect
	case PinWrite:
		if !fc.connected {
			return errors.New("not connected")
		}
		if m.Function != pindef.DigOut {
			return errors.New("unsupported function " + string(m.Function))
		}
		fc.outputs[m.PinID] = m.Bool()
	default:
		return errors.New("unexpected payload " + p.Kind())
	}
	return nil
}

func TestDispatchTypedPayloads(t *testing.T) {
	b := New()
	dest := NewDestination()
	fc, err := newFakeController(b, dest)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	write := PinWrite{Module: "ADD_adapter", PinID: "ADD1 0", Function: pindef.DigOut, Value: 1}
	if err := b.Dispatch(dest, write); err == nil {
		t.Error("expected handler error before connect")
	}

	if err := b.Dispatch(dest, ControllerCommand{Command: CommandConnect}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := b.Dispatch(dest, write); err != nil {
		t.Fatalf("pin write failed: %v", err)
	}
	if !fc.outputs["ADD1 0"] {
		t.Error("expected ADD1 0 driven high")
	}

	if err := b.Dispatch(dest, PowerState{On: true}); err == nil {
		t.Error("expected handler to reject an unexpected payload")
	}
}

func TestDispatchErrors(t *testing.T) {
	b := New()

	if err := b.Dispatch("nobody", PowerState{}); !errors.Is(err, ErrUnknownDestination) {
		t.Errorf("expected ErrUnknownDestination, got %v", err)
	}
	if err := b.Dispatch("nobody", nil); !errors.Is(err, ErrNilPayload) {
		t.Errorf("expected ErrNilPayload, got %v", err)
	}
}

func TestLastRegistrationWins(t *testing.T) {
	b := New()
	var got []string

	first, _ := b.NewConnection("first").Register("panel", func(Payload) error {
		got = append(got, "first")
		return nil
	})
	second, _ := b.NewConnection("second").Register("panel", func(Payload) error {
		got = append(got, "second")
		return nil
	})

	if err := b.Dispatch("panel", PowerState{On: true}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the second handler, got %v", got)
	}
	if first.Active() || !second.Active() {
		t.Errorf("unexpected active state: first=%v second=%v", first.Active(), second.Active())
	}

	// Dropping the superseded registration must keep the newer one routed.
	first.Deregister()
	if !b.Registered("panel") {
		t.Fatal("superseded deregistration removed the active handler")
	}

	second.Deregister()
	if b.Registered("panel") {
		t.Error("expected panel to be unrouted after deregistration")
	}
}

func TestConnectionCloseDeregistersAll(t *testing.T) {
	b := New()
	conn := b.NewConnection("module-tab")
	for _, dest := range []string{"a", "b", "c"} {
		if _, err := conn.Register(dest, func(Payload) error { return nil }); err != nil {
			t.Fatalf("register %s failed: %v", dest, err)
		}
	}
	other := b.NewConnection("other")
	other.Register("d", func(Payload) error { return nil })

	if b.Destinations() != 4 {
		t.Fatalf("expected 4 destinations, got %d", b.Destinations())
	}

	conn.Close()
	if b.Destinations() != 1 || !b.Registered("d") {
		t.Errorf("expected only d to remain, got %d destinations", b.Destinations())
	}

	if _, err := conn.Register("e", func(Payload) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestSettingsChangedPayload(t *testing.T) {
	b := New()
	set := settings.NewSet()
	set.Add("description", &settings.String{Meta: settings.Meta{Display: true, Editable: true}, V: "bench"})

	var received *settings.Set
	b.NewConnection("system").Register("system", func(p Payload) error {
		if m, ok := p.(SettingsChanged); ok {
			received = m.Settings
		}
		return nil
	})

	if err := b.Dispatch("system", SettingsChanged{Owner: "dialog", Settings: set}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if received == nil {
		t.Fatal("settings not delivered")
	}
	if v, _ := received.Value("description"); v != "bench" {
		t.Errorf("unexpected description %v", v)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0
	b.NewConnection("counter").Register("count", func(Payload) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Dispatch("count", PowerState{On: true})
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("expected 50 dispatches, got %d", count)
	}
}

func TestNewDestinationUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		d := NewDestination()
		if seen[d] {
			t.Fatalf("duplicate destination %s", d)
		}
		seen[d] = true
	}
}
