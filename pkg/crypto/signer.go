// Package crypto provides Ed25519 signing and verification with key
// rotation, the cryptographic substrate the Identity Store is built on.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Signer produces detached signatures over arbitrary bytes.
type Signer interface {
	Sign(data []byte) (string, error)
	PublicKeyHex() string
	PublicKeyBytes() ed25519.PublicKey
	KeyID() string
}

// Verifier verifies detached signatures.
type Verifier interface {
	Verify(data []byte, sigHex string) (bool, error)
}

// Ed25519Signer is a single Ed25519 keypair bound to a key ID.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	keyID   string
}

// GenerateEd25519Signer generates a fresh random keypair.
func GenerateEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub, keyID: keyID}, nil
}

// NewEd25519SignerFromSeed derives a keypair from a 32-byte seed, used
// to make a node's signing identity reproducible from an operator-
// provided secret.
func NewEd25519SignerFromSeed(seed []byte, keyID string) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
		keyID:   keyID,
	}, nil
}

func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	sig := ed25519.Sign(s.privKey, data)
	return hex.EncodeToString(sig), nil
}

func (s *Ed25519Signer) PublicKeyHex() string              { return hex.EncodeToString(s.pubKey) }
func (s *Ed25519Signer) PublicKeyBytes() ed25519.PublicKey { return s.pubKey }
func (s *Ed25519Signer) KeyID() string                     { return s.keyID }

// PrivateKeyForJWT exposes the raw private key for libraries (such as
// jwt.SigningMethodEdDSA) that sign via crypto.Signer rather than this
// package's detached-signature Sign method.
func (s *Ed25519Signer) PrivateKeyForJWT() ed25519.PrivateKey { return s.privKey }

// Verify checks a hex-encoded signature against this signer's own
// public key.
func (s *Ed25519Signer) Verify(data []byte, sigHex string) (bool, error) {
	return VerifyHex(s.PublicKeyHex(), sigHex, data)
}

// VerifyHex verifies a hex signature against a hex public key.
func VerifyHex(pubKeyHex, sigHex string, data []byte) (bool, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size %d", len(pubKey))
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("crypto: invalid signature size %d", len(sig))
	}
	return ed25519.Verify(pubKey, data, sig), nil
}
