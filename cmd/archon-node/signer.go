package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
)

// loadOrGenerateNodeSigner derives the node's bearer-token signing key
// from a hex-encoded seed, or mints a fresh one for development when
// none is configured. A generated key is never durable: restarting
// without ARCHON_NODE_SIGNING_SEED invalidates every token the
// previous process issued.
func loadOrGenerateNodeSigner(seedHex string, logger *slog.Logger) (*archcrypto.Ed25519Signer, error) {
	if seedHex == "" {
		logger.Warn("ARCHON_NODE_SIGNING_SEED not set, generating an ephemeral node key")
		return archcrypto.GenerateEd25519Signer("node-main")
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("ARCHON_NODE_SIGNING_SEED is not valid hex: %w", err)
	}
	return archcrypto.NewEd25519SignerFromSeed(seed, "node-main")
}

// nodeMeshSigner binds mesh.Sign to a single identity already
// custodied by the Identity Store, rather than holding a second copy
// of key material outside the store's custody.
type nodeMeshSigner struct {
	identities interface {
		Sign(id string, data []byte) (string, error)
	}
	identityID string
}

func (s nodeMeshSigner) Sign(data []byte) (string, error) {
	return s.identities.Sign(s.identityID, data)
}
