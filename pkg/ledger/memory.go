package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
)

// IdentityVerifier lets the ledger re-check a span's signature at
// append time without taking a hard dependency on the Identity Store's
// concrete type.
type IdentityVerifier interface {
	Verify(identityID string, data []byte, sigHex string) (bool, error)
}

// tenantChain is the per-tenant serialized write path: a mutex guards
// the (read head, compute prev_hash, append) sequence the spec
// requires to execute atomically.
type tenantChain struct {
	mu    sync.Mutex
	spans []span.Span
	head  string // current head entry_hash, or the genesis sentinel
}

// Memory is an in-memory Timeline Ledger backend: writes are
// serialized per tenant. Get takes only the store-wide read lock;
// Query, Replay and Integrity take the same per-tenant mutex writers
// hold, so they wait for an in-flight append on that tenant.
type Memory struct {
	mu       sync.RWMutex
	chains   map[string]*tenantChain // tenantID -> chain
	byID     map[string]span.Span    // "tenant/id" -> span, for O(1) Get
	verifier IdentityVerifier
}

// NewMemory builds an empty in-memory ledger. verifier is used to
// re-check signatures at append time; pass nil to skip that check
// (e.g. when the caller has already verified upstream).
func NewMemory(verifier IdentityVerifier) *Memory {
	return &Memory{
		chains:   make(map[string]*tenantChain),
		byID:     make(map[string]span.Span),
		verifier: verifier,
	}
}

func (m *Memory) chainFor(tenantID string) *tenantChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[tenantID]
	if !ok {
		c = &tenantChain{head: span.GenesisSentinel(tenantID)}
		m.chains[tenantID] = c
	}
	return c
}

func byIDKey(tenantID, id string) string { return tenantID + "/" + id }

// Append commits a fully-formed span. See package ledger's Filter and
// the spec this implements for the precondition set: signature
// verifies, prev_hash matches the current head, timestamp does not
// regress, and caused_by (if set) resolves within the same tenant.
func (m *Memory) Append(requester tenant.AuthToken, s span.Span) (Receipt, error) {
	if requester.TenantID != s.TenantID {
		return Receipt{}, archerr.New(archerr.NotAuthorized, "ledger.tenant_mismatch", "caller token does not name this span's tenant")
	}

	chain := m.chainFor(s.TenantID)
	chain.mu.Lock()
	defer chain.mu.Unlock()

	if s.PrevHash != chain.head {
		return Receipt{}, archerr.New(archerr.Conflict, "ledger.chain_divergence", "prev_hash does not match current tenant head")
	}
	if len(chain.spans) > 0 {
		lastTs := chain.spans[len(chain.spans)-1].Timestamp
		if s.Timestamp.Before(lastTs) {
			return Receipt{}, archerr.New(archerr.Validation, "ledger.timestamp_regression", "span timestamp precedes the current head")
		}
	}
	if s.CausedBy != "" {
		if _, ok := m.byID[byIDKey(s.TenantID, s.CausedBy)]; !ok {
			return Receipt{}, archerr.New(archerr.Validation, "ledger.unknown_cause", fmt.Sprintf("caused_by %q does not resolve in this tenant", s.CausedBy))
		}
	}

	signableBytes, err := s.SignableBytes()
	if err != nil {
		return Receipt{}, archerr.Wrap(archerr.Internal, "ledger.encode_failed", "failed to encode span for signature check", err)
	}
	expectedHash, err := span.EntryHash(s.PrevHash, signableBytes)
	if err != nil {
		return Receipt{}, archerr.Wrap(archerr.Internal, "ledger.hash_failed", "failed to compute entry hash", err)
	}
	if expectedHash != s.EntryHash {
		return Receipt{}, archerr.New(archerr.Cryptographic, "ledger.entry_hash_mismatch", "entry hash does not match recomputed value")
	}
	if m.verifier != nil {
		ok, err := m.verifier.Verify(s.AuthorID, signableBytes, s.Signature)
		if err != nil {
			return Receipt{}, archerr.Wrap(archerr.Cryptographic, "ledger.verify_failed", "signature verification failed", err)
		}
		if !ok {
			return Receipt{}, archerr.New(archerr.Cryptographic, "ledger.signature_invalid", "signature does not verify against author's key")
		}
	}

	chain.spans = append(chain.spans, s)
	chain.head = s.EntryHash

	m.mu.Lock()
	m.byID[byIDKey(s.TenantID, s.ID)] = s
	m.mu.Unlock()

	return Receipt{EntryHash: s.EntryHash, Position: uint64(len(chain.spans))}, nil
}

// Head returns the current head hash for a tenant, the genesis
// sentinel if nothing has been committed yet.
func (m *Memory) Head(tenantID string) string {
	c := m.chainFor(tenantID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// Get returns a single span by ID, scoped to the requester's tenant.
func (m *Memory) Get(requester tenant.AuthToken, id string) (span.Span, error) {
	m.mu.RLock()
	s, ok := m.byID[byIDKey(requester.TenantID, id)]
	m.mu.RUnlock()
	if !ok {
		return span.Span{}, archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", id))
	}
	return s, nil
}

// Query returns spans matching filter, ordered by timestamp descending
// by default, with a stable opaque cursor. Cross-tenant access is
// refused here, at the ledger boundary, regardless of what the caller
// asks for.
func (m *Memory) Query(requester tenant.AuthToken, f Filter, cursor string, limit int) (Page, error) {
	chain := m.chainFor(requester.TenantID)
	chain.mu.Lock()
	all := make([]span.Span, len(chain.spans))
	copy(all, chain.spans)
	chain.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	matched := make([]span.Span, 0, len(all))
	for _, s := range all {
		if f.matches(s) {
			matched = append(matched, s)
		}
	}

	offset, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, archerr.Wrap(archerr.Validation, "ledger.bad_cursor", "cursor is not valid", err)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(matched) {
		return Page{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := Page{Spans: matched[offset:end]}
	if end < len(matched) {
		page.NextCursor = encodeCursor(end)
	}
	return page, nil
}

// Replay yields spans in commit order starting at fromID, inclusive.
func (m *Memory) Replay(requester tenant.AuthToken, fromID string) ([]span.Span, error) {
	chain := m.chainFor(requester.TenantID)
	chain.mu.Lock()
	defer chain.mu.Unlock()

	if fromID == "" {
		out := make([]span.Span, len(chain.spans))
		copy(out, chain.spans)
		return out, nil
	}
	for i, s := range chain.spans {
		if s.ID == fromID {
			out := make([]span.Span, len(chain.spans)-i)
			copy(out, chain.spans[i:])
			return out, nil
		}
	}
	return nil, archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", fromID))
}

// IncrementReplayCount advances a committed span's replay_count by one.
// replay_count sits outside the signed payload (see span.signable), so
// this never touches the span's signature or entry_hash and is safe to
// do in place.
func (m *Memory) IncrementReplayCount(tenantID, id string) error {
	chain := m.chainFor(tenantID)
	chain.mu.Lock()
	defer chain.mu.Unlock()

	for i := range chain.spans {
		if chain.spans[i].ID == id {
			chain.spans[i].ReplayCount++
			updated := chain.spans[i]

			m.mu.Lock()
			m.byID[byIDKey(tenantID, id)] = updated
			m.mu.Unlock()
			return nil
		}
	}
	return archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", id))
}

// Integrity recomputes the tenant's tail digest from scratch, walking
// the whole chain independent of the stored head pointer.
func (m *Memory) Integrity(tenantID string) (string, error) {
	chain := m.chainFor(tenantID)
	chain.mu.Lock()
	defer chain.mu.Unlock()

	prevHash := span.GenesisSentinel(tenantID)
	for _, s := range chain.spans {
		if s.PrevHash != prevHash {
			return "", archerr.New(archerr.Internal, "ledger.chain_broken", fmt.Sprintf("span %q does not chain from the expected predecessor", s.ID))
		}
		recomputed, err := span.Recompute(s)
		if err != nil {
			return "", archerr.Wrap(archerr.Internal, "ledger.recompute_failed", "failed to recompute entry hash", err)
		}
		if recomputed != s.EntryHash {
			return "", archerr.New(archerr.Internal, "ledger.tamper_detected", fmt.Sprintf("span %q entry_hash does not match recomputed value", s.ID))
		}
		prevHash = s.EntryHash
	}
	return prevHash, nil
}
