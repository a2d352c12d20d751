package mesh_test

import (
	"testing"
	"time"

	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signerAdapter struct{ s *archcrypto.Ed25519Signer }

func (a signerAdapter) Sign(data []byte) (string, error) { return a.s.Sign(data) }

type verifierAdapter struct{ s *archcrypto.Ed25519Signer }

func (a verifierAdapter) Verify(identityID string, data []byte, sigHex string) (bool, error) {
	return a.s.Verify(data, sigHex)
}

func TestValidateAcceptsWellFormedEnvelope(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	e := mesh.Envelope{Kind: mesh.KindPing, SourceIdentity: "node-1", Target: "node-2", Nonce: 1, Timestamp: now}
	signed, err := mesh.Sign(e, signerAdapter{signer})
	require.NoError(t, err)

	v := mesh.NewValidator(verifierAdapter{signer}, time.Minute, func() time.Time { return now })
	assert.NoError(t, v.Validate(signed))
}

func TestValidateRejectsDuplicateNonce(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)
	now := time.Unix(1000, 0)

	e := mesh.Envelope{Kind: mesh.KindPing, SourceIdentity: "node-1", Target: "node-2", Nonce: 5, Timestamp: now}
	signed, err := mesh.Sign(e, signerAdapter{signer})
	require.NoError(t, err)

	v := mesh.NewValidator(verifierAdapter{signer}, time.Minute, func() time.Time { return now })
	require.NoError(t, v.Validate(signed))
	assert.Error(t, v.Validate(signed))
}

func TestValidateRejectsExcessiveSkew(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)
	sentAt := time.Unix(1000, 0)

	e := mesh.Envelope{Kind: mesh.KindPing, SourceIdentity: "node-1", Target: "node-2", Nonce: 1, Timestamp: sentAt}
	signed, err := mesh.Sign(e, signerAdapter{signer})
	require.NoError(t, err)

	v := mesh.NewValidator(verifierAdapter{signer}, time.Second, func() time.Time { return sentAt.Add(time.Hour) })
	assert.Error(t, v.Validate(signed))
}

func TestValidateRejectsBadSignature(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)
	now := time.Unix(1000, 0)

	e := mesh.Envelope{Kind: mesh.KindPing, SourceIdentity: "node-1", Target: "node-2", Nonce: 1, Timestamp: now, Signature: "deadbeef"}

	v := mesh.NewValidator(verifierAdapter{signer}, time.Minute, func() time.Time { return now })
	assert.Error(t, v.Validate(e))
}
