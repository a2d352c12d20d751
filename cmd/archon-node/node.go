package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/archon-systems/archon-core/pkg/config"
	"github.com/archon-systems/archon-core/pkg/contract"
	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/archon-systems/archon-core/pkg/federation"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/archon-systems/archon-core/pkg/ledger"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/observability"
	"github.com/archon-systems/archon-core/pkg/orchestrator"
	"github.com/archon-systems/archon-core/pkg/outbox"
	"github.com/archon-systems/archon-core/pkg/tenant"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Exit codes the node reports on fatal startup failure. Clean shutdown
// and runtime command failures use their own smaller codes; these four
// classify *why* a node could not come up at all.
const (
	exitOK                = 0
	exitFatalConfig       = 1
	exitFatalStorage      = 2
	exitFatalCrypto       = 3
	exitFatalRuntimePanic = 4
)

// Node holds every wired subsystem a running archon-node needs, built
// once at startup and shared by the HTTP server, the federation sync
// loop, and the mesh listener goroutine.
type Node struct {
	cfg *config.Config
	obs *observability.Provider

	nodeSigner   *archcrypto.Ed25519Signer
	nodeIdentity identity.Identity

	tenants    *tenant.Store
	identities *identity.Store
	tokens     *identity.TokenIssuer
	contracts  *contract.Engine

	ledgerDB *sql.DB
	ledger   orchestrator.LedgerAppender

	transport mesh.Transport
	validator *mesh.Validator

	meshPublisher *meshPublisher
	outboxStore   outbox.Store

	orchestrator *orchestrator.Orchestrator

	fedRegistry *federation.Registry
	fedEngine   *federation.Engine
	fedCursors  *federation.MemoryCursorStore
}

// buildNode wires every C1-C6 subsystem from cfg. On failure it
// returns the exit code the caller should report: callers never need
// to re-derive which class of startup failure occurred.
func buildNode(ctx context.Context, cfg *config.Config) (*Node, int, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	nodeSigner, err := loadOrGenerateNodeSigner(cfg.NodeSigningSeed, logger)
	if err != nil {
		return nil, exitFatalCrypto, fmt.Errorf("node signing key: %w", err)
	}

	obsConfig := observability.DefaultConfig()
	if cfg.OTLPEndpoint != "" {
		obsConfig.OTLPEndpoint = cfg.OTLPEndpoint
		obsConfig.Enabled = true
	}
	obs, err := observability.New(ctx, obsConfig)
	if err != nil {
		return nil, exitFatalConfig, fmt.Errorf("observability: %w", err)
	}

	tenants := tenant.NewStore(time.Now)
	identities := identity.NewStore(tenants, 4096, time.Now)
	tokens := identity.NewTokenIssuer(nodeSigner, "archon-node")

	nodeIdentity, err := identities.Issue(identity.KindNode, "node-main", "")
	if err != nil {
		return nil, exitFatalCrypto, fmt.Errorf("node identity: %w", err)
	}

	contracts, err := contract.NewEngine(time.Now)
	if err != nil {
		return nil, exitFatalConfig, fmt.Errorf("contract engine: %w", err)
	}

	var ledgerDB *sql.DB
	var appender orchestrator.LedgerAppender
	switch {
	case cfg.LedgerBackendDSN == "" || cfg.LedgerBackendDSN == "memory":
		appender = ledger.NewMemory(identities)
	case strings.HasPrefix(cfg.LedgerBackendDSN, "postgres://") || strings.HasPrefix(cfg.LedgerBackendDSN, "postgresql://"):
		ledgerDB, err = sql.Open("postgres", cfg.LedgerBackendDSN)
		if err != nil {
			return nil, exitFatalStorage, fmt.Errorf("open postgres: %w", err)
		}
		if err := ledgerDB.PingContext(ctx); err != nil {
			return nil, exitFatalStorage, fmt.Errorf("ping postgres: %w", err)
		}
		store, err := ledger.NewPostgresStore(ctx, ledgerDB)
		if err != nil {
			return nil, exitFatalStorage, fmt.Errorf("init postgres ledger: %w", err)
		}
		appender = sqlLedgerAdapter{store: store, ctx: ctx}
	default:
		ledgerDB, err = sql.Open("sqlite", cfg.LedgerBackendDSN)
		if err != nil {
			return nil, exitFatalStorage, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := ledger.NewSQLiteStore(ctx, ledgerDB)
		if err != nil {
			return nil, exitFatalStorage, fmt.Errorf("init sqlite ledger: %w", err)
		}
		appender = sqlLedgerAdapter{store: store, ctx: ctx}
	}

	var transport mesh.Transport
	if cfg.MeshRedisAddress != "" {
		transport = mesh.NewRedisTransport(cfg.MeshRedisAddress, "", 0, "archon")
	} else {
		transport = mesh.NewInMemory()
	}
	validator := mesh.NewValidator(identities, 30*time.Second, time.Now)

	publisher := &meshPublisher{
		transport:  transport,
		signer:     nodeMeshSigner{identities: identities, identityID: nodeIdentity.ID},
		sourceID:   nodeIdentity.ID,
		targetAddr: "mesh.fanout",
	}
	outboxStore := outbox.NewMemoryStore(time.Now)

	orch := orchestrator.New(tokens, identities, contracts, appender, &outboxPublisher{store: outboxStore}, orchestrator.Config{})

	fedRegistry := federation.NewRegistry(3)
	fedEngine := federation.NewEngine(fedRegistry, identities, federation.NewMemorySink(), 5*time.Minute, time.Now)
	fedCursors := federation.NewMemoryCursorStore()

	return &Node{
		cfg: cfg, obs: obs,
		nodeSigner: nodeSigner, nodeIdentity: nodeIdentity,
		tenants: tenants, identities: identities, tokens: tokens, contracts: contracts,
		ledgerDB: ledgerDB, ledger: appender,
		transport: transport, validator: validator,
		meshPublisher: publisher,
		outboxStore:   outboxStore,
		orchestrator:  orch,
		fedRegistry:   fedRegistry,
		fedEngine:     fedEngine,
		fedCursors:    fedCursors,
	}, exitOK, nil
}

// Close releases the node's owned resources: the ledger database
// handle and the observability providers. It does not close the mesh
// transport.
func (n *Node) Close(ctx context.Context) error {
	if n.ledgerDB != nil {
		if err := n.ledgerDB.Close(); err != nil {
			return err
		}
	}
	if n.obs != nil {
		return n.obs.Shutdown(ctx)
	}
	return nil
}
