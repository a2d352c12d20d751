package main

import (
	"context"
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/config"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/archon-systems/archon-core/pkg/orchestrator"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		LedgerBackendDSN: "memory",
		LogLevel:         "ERROR",
	}
}

func TestBuildNodeWiresAnEndToEndSubmission(t *testing.T) {
	ctx := context.Background()
	node, code, err := buildNode(ctx, testConfig())
	require.NoError(t, err)
	require.Equal(t, exitOK, code)

	tn, err := node.tenants.Create("owner-1", "Acme")
	require.NoError(t, err)

	author, err := node.identities.Issue(identity.KindPerson, "alice", tn.ID)
	require.NoError(t, err)
	require.NoError(t, node.tenants.AssignIdentity(tn.ID, author.ID))

	token, err := node.tokens.Issue(author.ID, tn.ID, []string{"span.submit"}, time.Hour, time.Now())
	require.NoError(t, err)

	result, err := node.orchestrator.Submit(ctx, orchestrator.SubmitRequest{
		Token: token,
		Title: "incident opened",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Receipt.EntryHash)
}

func TestBuildNodeFailsFastOnBadSigningSeed(t *testing.T) {
	cfg := testConfig()
	cfg.NodeSigningSeed = "not-hex"
	_, code, err := buildNode(context.Background(), cfg)
	require.Error(t, err)
	require.Equal(t, exitFatalCrypto, code)
}
