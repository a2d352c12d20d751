package federation

import (
	"context"

	"github.com/archon-systems/archon-core/pkg/archerr"
)

// Puller fetches the next page of a peer's spans. A concrete
// implementation sends a SyncRequest envelope over the mesh and
// decodes the peer's SyncResponse.
type Puller interface {
	Pull(ctx context.Context, peer Peer, sinceCursor string) (SyncResponse, error)
}

// CursorStore persists the last cursor successfully applied per peer
// so a sync loop can resume after a restart.
type CursorStore interface {
	Load(peerID string) (string, error)
	Save(peerID string, cursor string) error
}

// MemoryCursorStore is a CursorStore backed by a map, for single-node
// deployments and tests.
type MemoryCursorStore struct {
	cursors map[string]string
}

// NewMemoryCursorStore builds an empty cursor store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

func (c *MemoryCursorStore) Load(peerID string) (string, error) {
	return c.cursors[peerID], nil
}

func (c *MemoryCursorStore) Save(peerID string, cursor string) error {
	c.cursors[peerID] = cursor
	return nil
}

// SyncOutcome summarizes one sync_now pass against a single peer.
type SyncOutcome struct {
	PeerID      string
	Applied     int
	Quarantined []Quarantined
	NextCursor  string
}

// SyncNow pulls and applies exactly one page from peerID, advancing
// its cursor on success. Failures are isolated to this peer: the
// caller is expected to call SyncNow per peer and continue past any
// one peer's error.
func SyncNow(ctx context.Context, engine *Engine, registry *Registry, cursors CursorStore, puller Puller, peerID string) (SyncOutcome, error) {
	peer, err := registry.Get(peerID)
	if err != nil {
		return SyncOutcome{}, err
	}
	if peer.Trust == TrustNone {
		return SyncOutcome{}, archerr.New(archerr.NotAuthorized, "federation.trust_none", "peer "+peerID+" has no exchange trust")
	}

	since, err := cursors.Load(peerID)
	if err != nil {
		return SyncOutcome{}, archerr.Wrap(archerr.Backend, "federation.cursor_load_failed", "failed to load cursor for peer "+peerID, err)
	}

	resp, err := puller.Pull(ctx, peer, since)
	if err != nil {
		return SyncOutcome{}, archerr.Wrap(archerr.Transport, "federation.pull_failed", "failed to pull from peer "+peerID, err)
	}

	applied, quarantined, err := engine.ApplyResponse(peerID, resp)
	if err != nil {
		return SyncOutcome{}, err
	}

	if resp.NextCursor != "" {
		if err := cursors.Save(peerID, resp.NextCursor); err != nil {
			return SyncOutcome{}, archerr.Wrap(archerr.Backend, "federation.cursor_save_failed", "failed to save cursor for peer "+peerID, err)
		}
	}

	return SyncOutcome{PeerID: peerID, Applied: len(applied), Quarantined: quarantined, NextCursor: resp.NextCursor}, nil
}
