package federation

import "github.com/archon-systems/archon-core/pkg/span"

// Sink persists spans accepted from a peer. Federated chains are kept
// separate from the tenant's own write path (see Engine), so a Sink is
// a narrower surface than the Timeline Ledger's append operation: it
// answers whether an entry_hash is already known (hash collisions) and
// whether an ID is already known (a span disagreeing with itself
// across two origin chains), in addition to storing a span once.
type Sink interface {
	Put(tenantID string, s span.Span) error
	HasEntryHash(tenantID, entryHash string) (span.Span, bool)
	HasID(tenantID, id string) (span.Span, bool)
}

// MemorySink is a Sink backed by in-process maps, suitable for the
// shadow view a read-trust peer's spans live in and for tests.
type MemorySink struct {
	byHash map[string]span.Span // "tenant/entry_hash" -> span
	byID   map[string]span.Span // "tenant/id" -> span
}

// NewMemorySink builds an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byHash: make(map[string]span.Span), byID: make(map[string]span.Span)}
}

func sinkKey(tenantID, key string) string { return tenantID + "/" + key }

func (s *MemorySink) Put(tenantID string, sp span.Span) error {
	s.byHash[sinkKey(tenantID, sp.EntryHash)] = sp
	s.byID[sinkKey(tenantID, sp.ID)] = sp
	return nil
}

func (s *MemorySink) HasEntryHash(tenantID, entryHash string) (span.Span, bool) {
	sp, ok := s.byHash[sinkKey(tenantID, entryHash)]
	return sp, ok
}

func (s *MemorySink) HasID(tenantID, id string) (span.Span, bool) {
	sp, ok := s.byID[sinkKey(tenantID, id)]
	return sp, ok
}
