// bus.go
package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/pin-definition-importer/internal/debuglog"
)

var logger = debuglog.New("bus")

var (
	ErrUnknownDestination = errors.New("unknown destination")
	ErrNilPayload         = errors.New("nil payload")
	ErrClosed             = errors.New("connection closed")
)

// Handler consumes a payload routed to its destination.
type Handler func(Payload) error

// NewDestination returns a fresh random destination id.
func NewDestination() string {
	return uuid.NewString()
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

// Bus routes payloads to at most one handler per destination. A later
// registration for the same destination replaces the earlier one.
type Bus struct {
	mu     sync.RWMutex
	routes map[string]*Registration
}

func New() *Bus {
	return &Bus{routes: make(map[string]*Registration)}
}

// Dispatch calls the destination's handler synchronously and returns its error.
func (b *Bus) Dispatch(dest string, p Payload) error {
	if p == nil {
		return ErrNilPayload
	}

	b.mu.RLock()
	reg, ok := b.routes[dest]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, dest)
	}

	logger.Tracef("dispatch %s -> %s (owner %s)", p.Kind(), dest, reg.conn.owner)
	return reg.handler(p)
}

// Registered reports whether dest currently has a handler.
func (b *Bus) Registered(dest string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.routes[dest]
	return ok
}

// Destinations returns the number of registered destinations.
func (b *Bus) Destinations() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.routes)
}

func (b *Bus) register(reg *Registration) {
	b.mu.Lock()
	prev, replaced := b.routes[reg.dest]
	b.routes[reg.dest] = reg
	b.mu.Unlock()

	if replaced {
		logger.Debugf("destination %s taken over by %s from %s", reg.dest, reg.conn.owner, prev.conn.owner)
	}
}

// deregister removes reg only if it is still the active handler.
func (b *Bus) deregister(reg *Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.routes[reg.dest]; ok && cur == reg {
		delete(b.routes, reg.dest)
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection ties registrations to the lifetime of the component owning it.
type Connection struct {
	bus    *Bus
	owner  string
	mu     sync.Mutex
	regs   []*Registration
	closed bool
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(owner string) *Connection {
	return &Connection{bus: b, owner: owner}
}

// Register routes dest to h until the registration or the connection is closed.
func (c *Connection) Register(dest string, h Handler) (*Registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	reg := &Registration{dest: dest, handler: h, conn: c}
	c.regs = append(c.regs, reg)
	c.bus.register(reg)
	return reg, nil
}

// Dispatch sends via the bus.
func (c *Connection) Dispatch(dest string, p Payload) error {
	return c.bus.Dispatch(dest, p)
}

// Close deregisters everything the connection registered.
func (c *Connection) Close() {
	c.mu.Lock()
	regs := c.regs
	c.regs = nil
	c.closed = true
	c.mu.Unlock()

	for _, reg := range regs {
		c.bus.deregister(reg)
	}
}

func (c *Connection) remove(reg *Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.regs {
		if r == reg {
			c.regs = append(c.regs[:i], c.regs[i+1:]...)
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

type Registration struct {
	dest    string
	handler Handler
	conn    *Connection
}

func (r *Registration) Destination() string { return r.dest }

// Active reports whether this registration still receives dispatches.
func (r *Registration) Active() bool {
	b := r.conn.bus
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.routes[r.dest] == r
}

// Deregister stops routing to this handler. A registration that was already
// superseded leaves the newer handler in place.
func (r *Registration) Deregister() {
	r.conn.bus.deregister(r)
	r.conn.remove(r)
}
