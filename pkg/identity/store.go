package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/google/uuid"
)

// TenantResolver answers whether a tenant ID is known, so issue() can
// fail with Validation/NotFound instead of silently accepting a
// dangling tenant binding. The Identity Store does not own tenants.
type TenantResolver interface {
	TenantExists(tenantID string) bool
}

// Store issues, resolves, signs, verifies, and revokes identities. It
// is the sole custodian of private key material: callers never see a
// private key, only the signatures the store produces. Each identity's
// keys live in a KeyRing rather than a single keypair, so Rotate can
// introduce a new active signing key while old keys remain verifiable
// until explicitly revoked.
type Store struct {
	mu       sync.RWMutex
	records  map[string]*Identity             // id -> identity
	byHandle map[string]string                 // "kind/handle" -> id
	keys     map[string]*archcrypto.KeyRing    // id -> key ring
	tenants  TenantResolver

	cacheMu sync.Mutex
	cache   *lruCache // id -> cached public key hex, invalidated on revoke

	now func() time.Time
}

// NewStore builds an empty Identity Store. cacheSize bounds the
// resolved-public-key LRU; nowFn defaults to time.Now when nil.
func NewStore(tenants TenantResolver, cacheSize int, nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &Store{
		records:  make(map[string]*Identity),
		byHandle: make(map[string]string),
		keys:     make(map[string]*archcrypto.KeyRing),
		tenants:  tenants,
		cache:    newLRUCache(cacheSize),
		now:      nowFn,
	}
}

// Issue generates a fresh Ed25519 keypair, stores the private half
// under the store's custody, and returns the public identity record.
func (s *Store) Issue(kind Kind, handle string, tenantID string) (Identity, error) {
	if !kind.valid() {
		return Identity{}, archerr.New(archerr.Validation, "identity.invalid_kind", fmt.Sprintf("unknown identity kind %q", kind))
	}
	if handle == "" {
		return Identity{}, archerr.New(archerr.Validation, "identity.empty_handle", "handle must not be empty")
	}
	if tenantID != "" && s.tenants != nil && !s.tenants.TenantExists(tenantID) {
		return Identity{}, archerr.New(archerr.NotFound, "identity.tenant_unknown", fmt.Sprintf("tenant %q not known", tenantID))
	}

	handleKey := string(kind) + "/" + handle

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byHandle[handleKey]; taken {
		return Identity{}, archerr.New(archerr.Conflict, "identity.handle_taken", fmt.Sprintf("handle %q already in use for kind %q", handle, kind))
	}

	id := uuid.NewString()
	signer, err := archcrypto.GenerateEd25519Signer(uuid.NewString())
	if err != nil {
		return Identity{}, archerr.Wrap(archerr.Cryptographic, "identity.keygen_failed", "could not generate signing key", err)
	}
	ring := archcrypto.NewKeyRing()
	ring.AddKey(signer)

	rec := &Identity{
		ID:        id,
		Kind:      kind,
		Handle:    handle,
		PublicKey: signer.PublicKeyHex(),
		TenantID:  tenantID,
		CreatedAt: s.now(),
		Status:    StatusActive,
	}

	s.records[id] = rec
	s.byHandle[handleKey] = id
	s.keys[id] = ring

	return *rec, nil
}

// Rotate adds a freshly generated key as an identity's new active
// signing key. Prior keys stay in the ring, so a signature produced
// before rotation still verifies; revoking a specific prior key is not
// exposed, only revoking the identity wholesale via Revoke.
func (s *Store) Rotate(id string) (Identity, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return Identity{}, archerr.New(archerr.NotFound, "identity.not_found", fmt.Sprintf("identity %q not found", id))
	}
	if rec.Status == StatusRevoked {
		s.mu.Unlock()
		return Identity{}, archerr.New(archerr.NotAuthorized, "identity.revoked", fmt.Sprintf("identity %q is revoked", id))
	}
	ring, ok := s.keys[id]
	if !ok {
		s.mu.Unlock()
		return Identity{}, archerr.New(archerr.NotAuthorized, "identity.no_custody", fmt.Sprintf("store does not hold signing material for %q", id))
	}

	signer, err := archcrypto.GenerateEd25519Signer(uuid.NewString())
	if err != nil {
		s.mu.Unlock()
		return Identity{}, archerr.Wrap(archerr.Cryptographic, "identity.keygen_failed", "could not generate signing key", err)
	}
	ring.AddKey(signer)
	rec.PublicKey = signer.PublicKeyHex()
	updated := *rec
	s.mu.Unlock()

	s.cacheMu.Lock()
	s.cache.remove(id)
	s.cacheMu.Unlock()
	return updated, nil
}

// Resolve returns the public record for an identity.
func (s *Store) Resolve(id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Identity{}, archerr.New(archerr.NotFound, "identity.not_found", fmt.Sprintf("identity %q not found", id))
	}
	return *rec, nil
}

// Sign produces a detached signature over data using the identity's
// custodied key. Fails NotFound for an unknown identity, and
// NotAuthorized if it is revoked or has no custody entry (never issued
// here).
func (s *Store) Sign(id string, data []byte) (string, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.RUnlock()
		return "", archerr.New(archerr.NotFound, "identity.not_found", fmt.Sprintf("identity %q not found", id))
	}
	if rec.Status == StatusRevoked {
		s.mu.RUnlock()
		return "", archerr.New(archerr.NotAuthorized, "identity.revoked", fmt.Sprintf("identity %q is revoked", id))
	}
	ring, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return "", archerr.New(archerr.NotAuthorized, "identity.no_custody", fmt.Sprintf("store does not hold signing material for %q", id))
	}
	sig, _, err := ring.Sign(data)
	if err != nil {
		return "", archerr.Wrap(archerr.Cryptographic, "identity.sign_failed", "signing operation failed", err)
	}
	return sig, nil
}

// Verify checks a signature against the identity's active public key
// first (the common case, served from the resolved-key cache), falling
// back to every other key still present in the identity's ring. That
// fallback is what keeps a signature made before a Rotate verifiable:
// the active public key alone would no longer match it. Revocation
// does not affect verification: a signature produced before
// revocation, checked against the timestamp it carries, remains
// verifiable against whichever key produced it.
func (s *Store) Verify(id string, data []byte, sigHex string) (bool, error) {
	pubHex, err := s.resolvePublicKeyCached(id)
	if err != nil {
		return false, err
	}
	if ok, err := archcrypto.VerifyHex(pubHex, sigHex, data); err != nil || ok {
		return ok, err
	}

	s.mu.RLock()
	ring, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return ring.VerifyAny(data, sigHex)
}

// VerifyAsOf is Verify plus an explicit check that the identity was
// active at the given instant, the shape callers use to implement
// "signatures prior to revocation remain meaningful" policies that
// need to distinguish pre- and post-revocation provenance explicitly
// rather than trusting the signature alone.
func (s *Store) VerifyAsOf(id string, data []byte, sigHex string, at time.Time) (bool, error) {
	ok, err := s.Verify(id, data, sigHex)
	if err != nil || !ok {
		return ok, err
	}
	rec, err := s.Resolve(id)
	if err != nil {
		return false, err
	}
	return rec.activeAt(at), nil
}

func (s *Store) resolvePublicKeyCached(id string) (string, error) {
	s.cacheMu.Lock()
	if v, ok := s.cache.get(id); ok {
		s.cacheMu.Unlock()
		return v, nil
	}
	s.cacheMu.Unlock()

	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return "", archerr.New(archerr.NotFound, "identity.not_found", fmt.Sprintf("identity %q not found", id))
	}

	s.cacheMu.Lock()
	s.cache.put(id, rec.PublicKey)
	s.cacheMu.Unlock()
	return rec.PublicKey, nil
}

// Revoke marks an identity revoked. by must be the identity's own ID
// or a tenant-owning identity; callers enforce that authorization
// upstream (the store records who performed the revocation). After
// revocation, Sign fails for this identity; Verify keeps working
// against the unchanged public key.
func (s *Store) Revoke(id string, by string) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return archerr.New(archerr.NotFound, "identity.not_found", fmt.Sprintf("identity %q not found", id))
	}
	if rec.Status == StatusRevoked {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	rec.Status = StatusRevoked
	rec.RevokedAt = &now
	rec.RevokedBy = by
	s.mu.Unlock()

	// Invalidate the resolved-key cache; a subsequent Verify still
	// succeeds (the key is unchanged) but re-fetches the current record.
	s.cacheMu.Lock()
	s.cache.remove(id)
	s.cacheMu.Unlock()
	return nil
}
