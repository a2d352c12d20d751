package identity_test

import (
	"testing"
	"time"

	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndValidateRoundTrip(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)

	issuer := identity.NewTokenIssuer(signer, "archon-node://node-1")
	now := time.Unix(1000, 0)

	tok, err := issuer.Issue("identity-1", "t1", []string{"span:submit"}, time.Hour, now)
	require.NoError(t, err)

	claims, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "identity-1", claims.Subject)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Contains(t, claims.Scopes, "span:submit")
}

func TestTokenValidateRejectsTampering(t *testing.T) {
	signer, err := archcrypto.GenerateEd25519Signer("node-1")
	require.NoError(t, err)
	issuer := identity.NewTokenIssuer(signer, "archon-node://node-1")

	tok, err := issuer.Issue("identity-1", "t1", nil, time.Hour, time.Unix(1000, 0))
	require.NoError(t, err)

	_, err = issuer.Validate(tok + "tampered")
	assert.Error(t, err)
}

func TestTokenValidateRejectsWrongSigner(t *testing.T) {
	signerA, err := archcrypto.GenerateEd25519Signer("node-a")
	require.NoError(t, err)
	signerB, err := archcrypto.GenerateEd25519Signer("node-b")
	require.NoError(t, err)

	issuerA := identity.NewTokenIssuer(signerA, "archon-node://a")
	issuerB := identity.NewTokenIssuer(signerB, "archon-node://b")

	tok, err := issuerA.Issue("identity-1", "t1", nil, time.Hour, time.Unix(1000, 0))
	require.NoError(t, err)

	_, err = issuerB.Validate(tok)
	assert.Error(t, err)
}
