package main

import (
	"context"

	"github.com/archon-systems/archon-core/pkg/mesh"
)

// meshPublisher signs and fans a committed span out to a fixed
// well-known mesh address every interested component subscribes to.
// It implements orchestrator.Publisher.
type meshPublisher struct {
	transport  mesh.Transport
	signer     mesh.Signer
	sourceID   string
	targetAddr string
	nonce      uint64
}

func (p *meshPublisher) Publish(ctx context.Context, e mesh.Envelope) error {
	if e.SourceIdentity == "" {
		e.SourceIdentity = p.sourceID
	}
	if e.Target == "" {
		e.Target = p.targetAddr
	}
	p.nonce++
	e.Nonce = p.nonce

	signed, err := mesh.Sign(e, p.signer)
	if err != nil {
		return err
	}
	return p.transport.Send(ctx, signed)
}
