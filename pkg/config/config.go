// Package config loads node configuration from environment variables:
// node signing seed, ledger backend connection string, mesh bind
// address, federation network key, and related runtime knobs.
package config

import (
	"os"
	"strconv"
)

// Config holds process-wide node configuration.
type Config struct {
	// NodeSigningSeed seeds the node's own identity-issuing key. Hex
	// encoded 32-byte Ed25519 seed. If empty, a fresh seed is generated
	// at boot (dev-mode only; never durable across restarts).
	NodeSigningSeed string

	// LedgerBackendDSN selects and configures the Timeline Ledger
	// backend. "memory" for an in-process ledger, otherwise a
	// postgres:// or sqlite file DSN.
	LedgerBackendDSN string

	// MeshBindAddress is the local address the Service Mesh listens on
	// for inbound component/peer connections.
	MeshBindAddress string

	// FederationNetworkKey is read from ARCHON_FEDERATION_NETWORK_KEY.
	// No component reads it: federation traffic is authenticated only by
	// per-identity envelope and span signatures.
	FederationNetworkKey string

	// MeshRedisAddress, if set, backs mesh links with Redis pub/sub
	// instead of the in-process transport.
	MeshRedisAddress string

	LogLevel     string
	OTLPEndpoint string

	MeshBufferCapacity int

	// RateLimitRPS and RateLimitBurst size the per-client-IP token
	// bucket in front of the HTTP API.
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		NodeSigningSeed:       os.Getenv("ARCHON_NODE_SIGNING_SEED"),
		LedgerBackendDSN:      getenvDefault("ARCHON_LEDGER_DSN", "memory"),
		MeshBindAddress:       getenvDefault("ARCHON_MESH_BIND", "127.0.0.1:7420"),
		FederationNetworkKey:  os.Getenv("ARCHON_FEDERATION_NETWORK_KEY"),
		MeshRedisAddress:      os.Getenv("ARCHON_MESH_REDIS_ADDR"),
		LogLevel:              getenvDefault("ARCHON_LOG_LEVEL", "INFO"),
		OTLPEndpoint:          os.Getenv("ARCHON_OTLP_ENDPOINT"),
		MeshBufferCapacity:    getenvIntDefault("ARCHON_MESH_BUFFER", 256),
		RateLimitRPS:          getenvFloatDefault("ARCHON_API_RATE_LIMIT_RPS", 50),
		RateLimitBurst:        getenvIntDefault("ARCHON_API_RATE_LIMIT_BURST", 100),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
