package mesh

import (
	"context"
	"sync"

	"github.com/archon-systems/archon-core/pkg/archerr"
)

// Transport delivers envelopes to a logical address. How a given link
// is actually backed (direct connection, a cache, a persistent queue)
// is an implementation choice the mesh model leaves open; Transport is
// the seam between the two.
type Transport interface {
	Send(ctx context.Context, e Envelope) error
	Subscribe(ctx context.Context, address string) (<-chan Envelope, error)
	Close() error
}

// InMemory is a Transport for components sharing one process: used in
// tests and for single-node deployments where every core component
// runs in the same binary.
type InMemory struct {
	mu    sync.RWMutex
	subs  map[string][]chan Envelope
	closed bool
}

// NewInMemory builds an empty in-memory transport.
func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[string][]chan Envelope)}
}

func (t *InMemory) Send(ctx context.Context, e Envelope) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return archerr.New(archerr.Transport, "mesh.transport_closed", "transport is closed")
	}
	for _, ch := range t.subs[e.Target] {
		select {
		case ch <- e:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Slow subscriber: drop rather than block the sender. The
			// per-target Connection buffer is where backpressure is
			// meant to be absorbed, not here.
		}
	}
	return nil
}

func (t *InMemory) Subscribe(ctx context.Context, address string) (<-chan Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, archerr.New(archerr.Transport, "mesh.transport_closed", "transport is closed")
	}
	ch := make(chan Envelope, 64)
	t.subs[address] = append(t.subs[address], ch)
	return ch, nil
}

func (t *InMemory) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, chans := range t.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	return nil
}
