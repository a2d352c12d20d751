package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/federation"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
)

// decodePayload round-trips an envelope payload through JSON into dst.
// InMemory delivers a payload as the concrete Go value it was given,
// RedisTransport delivers it as whatever encoding/json decoded into an
// interface{}; this normalizes both into the caller's target type.
func decodePayload(payload interface{}, dst interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// meshPuller implements federation.Puller over the Service Mesh: it
// asks a peer for everything past sinceCursor and waits for the
// matching sync.response, addressed back to this node's own identity.
type meshPuller struct {
	transport mesh.Transport
	signer    mesh.Signer
	sourceID  string
	timeout   time.Duration
}

func (p *meshPuller) Pull(ctx context.Context, peer federation.Peer, sinceCursor string) (federation.SyncResponse, error) {
	replyCh, err := p.transport.Subscribe(ctx, p.sourceID)
	if err != nil {
		return federation.SyncResponse{}, archerr.Wrap(archerr.Transport, "federation.subscribe_failed", "failed to subscribe for sync reply", err)
	}

	req := mesh.Envelope{
		Kind:           mesh.KindSyncRequest,
		SourceIdentity: p.sourceID,
		Target:         peer.ID,
		Payload:        federation.SyncRequest{TenantID: peer.TenantID, SinceCursor: sinceCursor},
		Timestamp:      time.Now(),
	}
	signed, err := mesh.Sign(req, p.signer)
	if err != nil {
		return federation.SyncResponse{}, err
	}
	if err := p.transport.Send(ctx, signed); err != nil {
		return federation.SyncResponse{}, archerr.Wrap(archerr.Transport, "federation.send_failed", "failed to send sync request", err)
	}

	deadline := time.After(p.timeout)
	for {
		select {
		case env := <-replyCh:
			if env.Kind != mesh.KindSyncResponse || env.SourceIdentity != peer.ID {
				continue
			}
			var resp federation.SyncResponse
			if err := decodePayload(env.Payload, &resp); err != nil {
				return federation.SyncResponse{}, archerr.Wrap(archerr.Internal, "federation.decode_failed", "failed to decode sync response", err)
			}
			return resp, nil
		case <-deadline:
			return federation.SyncResponse{}, archerr.New(archerr.Transport, "federation.pull_timeout", fmt.Sprintf("no sync.response from peer %q within %s", peer.ID, p.timeout))
		case <-ctx.Done():
			return federation.SyncResponse{}, ctx.Err()
		}
	}
}

type replayableLedger interface {
	Replay(requester tenant.AuthToken, fromID string) ([]span.Span, error)
}

// serveFederationRequests answers inbound sync.request envelopes from
// federation peers using the local ledger's commit-order replay.
// Both the in-memory ledger and the SQL-backed sqlLedgerAdapter expose
// Replay; a ledger backend without it logs and skips, since cross-node
// pull is an additive capability, not required for a single-node
// append path to work.
func serveFederationRequests(ctx context.Context, n *Node, logger *slog.Logger) {
	replayable, ok := n.ledger.(replayableLedger)
	if !ok {
		logger.Info("federation: ledger backend does not support replay, inbound sync.request will go unanswered")
		return
	}

	inbox, err := n.transport.Subscribe(ctx, n.nodeIdentity.ID)
	if err != nil {
		logger.Error("federation: failed to subscribe for sync requests", "error", err)
		return
	}

	signer := nodeMeshSigner{identities: n.identities, identityID: n.nodeIdentity.ID}

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-inbox:
			if !ok {
				return
			}
			if env.Kind != mesh.KindSyncRequest {
				continue
			}
			if err := n.validator.Validate(env); err != nil {
				logger.Warn("federation: rejected sync.request", "peer", env.SourceIdentity, "error", err)
				continue
			}
			handleSyncRequest(ctx, n, replayable, signer, env, logger)
		}
	}
}

func handleSyncRequest(ctx context.Context, n *Node, replayable replayableLedger, signer mesh.Signer, env mesh.Envelope, logger *slog.Logger) {
	var req federation.SyncRequest
	if err := decodePayload(env.Payload, &req); err != nil {
		logger.Warn("federation: malformed sync.request payload", "peer", env.SourceIdentity, "error", err)
		return
	}

	spans, err := replayable.Replay(tenant.AuthToken{TenantID: req.TenantID}, req.SinceCursor)
	if err != nil && !archerr.Is(err, archerr.NotFound) {
		logger.Warn("federation: replay failed answering sync.request", "peer", env.SourceIdentity, "error", err)
		return
	}
	if req.SinceCursor != "" && len(spans) > 0 && spans[0].ID == req.SinceCursor {
		spans = spans[1:]
	}

	resp := federation.SyncResponse{Spans: spans}
	if len(spans) > 0 {
		resp.NextCursor = spans[len(spans)-1].ID
	}

	reply := mesh.Envelope{
		Kind:           mesh.KindSyncResponse,
		SourceIdentity: n.nodeIdentity.ID,
		Target:         env.SourceIdentity,
		Payload:        resp,
		Timestamp:      time.Now(),
	}
	signed, err := mesh.Sign(reply, signer)
	if err != nil {
		logger.Warn("federation: failed to sign sync.response", "error", err)
		return
	}
	if err := n.transport.Send(ctx, signed); err != nil {
		logger.Warn("federation: failed to send sync.response", "peer", env.SourceIdentity, "error", err)
	}
}
