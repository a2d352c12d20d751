package mesh_test

import (
	"context"
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTransportDeliversToSubscriber(t *testing.T) {
	tr := mesh.NewInMemory()
	ctx := context.Background()

	ch, err := tr.Subscribe(ctx, "node-2")
	require.NoError(t, err)

	require.NoError(t, tr.Send(ctx, mesh.Envelope{Target: "node-2", Nonce: 7}))

	select {
	case e := <-ch:
		assert.Equal(t, uint64(7), e.Nonce)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestInMemoryTransportRejectsOperationsAfterClose(t *testing.T) {
	tr := mesh.NewInMemory()
	ctx := context.Background()

	require.NoError(t, tr.Close())
	assert.Error(t, tr.Send(ctx, mesh.Envelope{Target: "node-2"}))
	_, err := tr.Subscribe(ctx, "node-2")
	assert.Error(t, err)
}

func TestInMemoryTransportSendWithoutSubscriberIsNoop(t *testing.T) {
	tr := mesh.NewInMemory()
	ctx := context.Background()
	assert.NoError(t, tr.Send(ctx, mesh.Envelope{Target: "nobody"}))
}
