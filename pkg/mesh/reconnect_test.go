package mesh_test

import (
	"context"
	"errors"
	"testing"

	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconnectWithBackoffSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context) (*mesh.Connection, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("dial refused")
		}
		return mesh.NewConnection("node-2", 4), nil
	}

	conn, err := mesh.ReconnectWithBackoff(context.Background(), dial)
	require.NoError(t, err)
	assert.Equal(t, "node-2", conn.Target())
	assert.Equal(t, 3, attempts)
}

func TestReconnectWithBackoffStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dial := func(ctx context.Context) (*mesh.Connection, error) {
		return nil, errors.New("dial refused")
	}

	_, err := mesh.ReconnectWithBackoff(ctx, dial)
	assert.Error(t, err)
}
