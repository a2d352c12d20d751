package federation_test

import (
	"context"
	"testing"
	"time"

	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/archon-systems/archon-core/pkg/federation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePuller struct {
	resp federation.SyncResponse
	err  error
}

func (f fakePuller) Pull(ctx context.Context, peer federation.Peer, sinceCursor string) (federation.SyncResponse, error) {
	return f.resp, f.err
}

func TestSyncNowAppliesPageAndAdvancesCursor(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("peer-node")
	require.NoError(t, err)

	reg := federation.NewRegistry(3)
	reg.Add(federation.Peer{ID: "peer-1", TenantID: "tenant-a", Trust: federation.TrustWrite})
	verifier := signAdapter{signer}
	sink := federation.NewMemorySink()
	eng := federation.NewEngine(reg, verifier, sink, time.Minute, func() time.Time { return time.Unix(5000, 0) })

	spans := chain(t, signer, "tenant-a", "peer-node", 2)
	puller := fakePuller{resp: federation.SyncResponse{Spans: spans, NextCursor: "cursor-2"}}
	cursors := federation.NewMemoryCursorStore()

	outcome, err := federation.SyncNow(context.Background(), eng, reg, cursors, puller, "peer-1")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Applied)
	assert.Equal(t, "cursor-2", outcome.NextCursor)

	stored, err := cursors.Load("peer-1")
	require.NoError(t, err)
	assert.Equal(t, "cursor-2", stored)
}

func TestSyncNowRejectsUntrustedPeer(t *testing.T) {
	reg := federation.NewRegistry(3)
	reg.Add(federation.Peer{ID: "peer-1", TenantID: "tenant-a", Trust: federation.TrustNone})
	sink := federation.NewMemorySink()
	signer, err := archcrypto.GenerateEd25519Signer("peer-node")
	require.NoError(t, err)
	eng := federation.NewEngine(reg, signAdapter{signer}, sink, time.Minute, nil)

	_, err = federation.SyncNow(context.Background(), eng, reg, federation.NewMemoryCursorStore(), fakePuller{}, "peer-1")
	assert.Error(t, err)
}
