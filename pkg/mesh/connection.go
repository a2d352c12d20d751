package mesh

import (
	"sync"

	"github.com/archon-systems/archon-core/pkg/archerr"
)

// State is a connection's position in the mesh lifecycle:
// Dial -> Handshake -> Ready -> Draining -> Closed. Ping/Pong health
// checks happen while Ready and do not change state.
type State string

const (
	StateDial      State = "dial"
	StateHandshake State = "handshake"
	StateReady     State = "ready"
	StateDraining  State = "draining"
	StateClosed    State = "closed"
)

var validTransitions = map[State][]State{
	StateDial:      {StateHandshake, StateClosed},
	StateHandshake: {StateReady, StateClosed},
	StateReady:     {StateDraining, StateClosed},
	StateDraining:  {StateClosed},
	StateClosed:    {},
}

// Connection tracks one mesh link's lifecycle state and its outbound
// buffer toward a single target. Envelopes queued while the link is
// not Ready are dropped oldest-first once the buffer fills.
type Connection struct {
	mu     sync.Mutex
	target string
	state  State
	buffer []Envelope
	capacity int
}

// NewConnection builds a connection in the Dial state for target, with
// an outbound buffer bounded at capacity.
func NewConnection(target string, capacity int) *Connection {
	if capacity <= 0 {
		capacity = 256
	}
	return &Connection{target: target, state: StateDial, capacity: capacity}
}

func (c *Connection) Target() string { return c.target }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transition moves the connection to next, rejecting transitions the
// lifecycle does not allow.
func (c *Connection) Transition(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, allowed := range validTransitions[c.state] {
		if allowed == next {
			c.state = next
			return nil
		}
	}
	return archerr.New(archerr.Internal, "mesh.invalid_transition", "connection cannot move from "+string(c.state)+" to "+string(next))
}

// Enqueue buffers an envelope for delivery. If the connection is not
// Ready, or delivery otherwise cannot proceed immediately, the
// envelope is held in the bounded buffer, dropping the oldest entry
// first once capacity is reached.
func (c *Connection) Enqueue(e Envelope) (dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) >= c.capacity {
		c.buffer = c.buffer[1:]
		dropped = true
	}
	c.buffer = append(c.buffer, e)
	return dropped
}

// Drain removes and returns every buffered envelope, in FIFO order,
// for delivery once the connection reaches Ready.
func (c *Connection) Drain() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buffer
	c.buffer = nil
	return out
}

// Buffered reports how many envelopes are currently queued.
func (c *Connection) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}
