package main

import (
	"context"

	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/outbox"
)

// outboxPublisher implements orchestrator.Publisher by enqueueing the
// envelope instead of sending it straight to the transport. A commit
// that reaches this point has already landed in the ledger; the
// drainOutbox loop owns getting it onto the mesh, retrying across
// transient transport failures instead of letting the first failed
// attempt drop the span.committed event on the floor.
type outboxPublisher struct {
	store outbox.Store
}

func (p *outboxPublisher) Publish(ctx context.Context, e mesh.Envelope) error {
	_, err := p.store.Enqueue(ctx, e)
	return err
}
