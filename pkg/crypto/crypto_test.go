package crypto_test

import (
	"testing"

	"github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := crypto.GenerateEd25519Signer("k1")
	require.NoError(t, err)

	msg := []byte("hello span")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	ok, err := signer.Verify(msg, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	signer, err := crypto.GenerateEd25519Signer("k1")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	ok, err := signer.Verify([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeedDerivationIsDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	s1, err := crypto.NewEd25519SignerFromSeed(seed, "node")
	require.NoError(t, err)
	s2, err := crypto.NewEd25519SignerFromSeed(seed, "node")
	require.NoError(t, err)

	assert.Equal(t, s1.PublicKeyHex(), s2.PublicKeyHex())
}

func TestKeyRingRotationKeepsOldKeyVerifiable(t *testing.T) {
	ring := crypto.NewKeyRing()
	k1, err := crypto.GenerateEd25519Signer("k1")
	require.NoError(t, err)
	ring.AddKey(k1)

	sig1, keyID1, err := ring.Sign([]byte("msg1"))
	require.NoError(t, err)
	assert.Equal(t, "k1", keyID1)

	k2, err := crypto.GenerateEd25519Signer("k2")
	require.NoError(t, err)
	ring.AddKey(k2)

	sig2, keyID2, err := ring.Sign([]byte("msg2"))
	require.NoError(t, err)
	assert.Equal(t, "k2", keyID2)

	ok, err := ring.VerifyWithKey("k1", []byte("msg1"), sig1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ring.VerifyWithKey("k2", []byte("msg2"), sig2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevokedKeyCannotVerify(t *testing.T) {
	ring := crypto.NewKeyRing()
	k1, err := crypto.GenerateEd25519Signer("k1")
	require.NoError(t, err)
	ring.AddKey(k1)

	sig, _, err := ring.Sign([]byte("msg"))
	require.NoError(t, err)

	ring.RevokeKey("k1")

	_, err = ring.VerifyWithKey("k1", []byte("msg"), sig)
	assert.Error(t, err)
}
