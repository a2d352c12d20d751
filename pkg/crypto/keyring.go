package crypto

import (
	"fmt"
	"sync"
)

// KeyRing holds a set of keys for one identity, supporting rotation:
// the newest key signs, but verification against any still-present key
// succeeds.
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]*Ed25519Signer
	order   []string // insertion order, newest last
}

// NewKeyRing creates an empty keyring.
func NewKeyRing() *KeyRing {
	return &KeyRing{signers: make(map[string]*Ed25519Signer)}
}

// AddKey adds a signer as the new active (signing) key.
func (k *KeyRing) AddKey(s *Ed25519Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.signers[s.KeyID()]; !exists {
		k.order = append(k.order, s.KeyID())
	}
	k.signers[s.KeyID()] = s
}

// RevokeKey removes a key from the ring entirely. Signatures produced
// before revocation can no longer be verified through this ring; callers
// needing to verify historical signatures after revocation must retain
// the signer's public key separately, e.g. recorded on the identity
// itself at sign time.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.signers, keyID)
	for i, id := range k.order {
		if id == keyID {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
}

// ActiveKeyID returns the most recently added key's ID.
func (k *KeyRing) ActiveKeyID() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.order) == 0 {
		return "", fmt.Errorf("crypto: keyring has no active keys")
	}
	return k.order[len(k.order)-1], nil
}

// Sign signs with the active key, returning (signature, keyID).
func (k *KeyRing) Sign(data []byte) (sig string, keyID string, err error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.order) == 0 {
		return "", "", fmt.Errorf("crypto: no active signing key")
	}
	keyID = k.order[len(k.order)-1]
	sig, err = k.signers[keyID].Sign(data)
	return sig, keyID, err
}

// VerifyWithKey verifies a signature against a specific key ID still
// present in the ring.
func (k *KeyRing) VerifyWithKey(keyID string, data []byte, sigHex string) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[keyID]
	if !ok {
		return false, fmt.Errorf("crypto: unknown or revoked key %q", keyID)
	}
	return s.Verify(data, sigHex)
}

// VerifyAny checks a signature against every key still present in the
// ring, newest first, succeeding if any of them verifies. This is what
// lets a signature produced before a rotation keep verifying as long
// as the key that produced it has not been explicitly revoked.
func (k *KeyRing) VerifyAny(data []byte, sigHex string) (bool, error) {
	k.mu.RLock()
	ids := make([]string, len(k.order))
	copy(ids, k.order)
	signers := make(map[string]*Ed25519Signer, len(k.signers))
	for id, s := range k.signers {
		signers[id] = s
	}
	k.mu.RUnlock()

	for i := len(ids) - 1; i >= 0; i-- {
		s, ok := signers[ids[i]]
		if !ok {
			continue
		}
		ok, err := s.Verify(data, sigHex)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// KeyIDs returns all currently-present key IDs, oldest first.
func (k *KeyRing) KeyIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}
