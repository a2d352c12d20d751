package federation

import (
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/span"
)

// Verifier re-checks a span's signature against its origin identity,
// the same shape the Identity Store exposes.
type Verifier interface {
	Verify(identityID string, data []byte, sigHex string) (bool, error)
}

// Engine runs the pull side of federation sync for one local node: it
// applies a peer's SyncResponse, verifying signatures, buffering spans
// whose predecessor has not arrived, quarantining conflicts, and
// committing according to the peer's declared trust.
type Engine struct {
	registry *Registry
	verifier Verifier
	sink     Sink
	gapBy    map[string]*GapBuffer // peer ID -> buffer
	gapWindow time.Duration
	now      func() time.Time
}

// NewEngine builds a sync engine. gapWindow bounds how long a span
// waits for its predecessor before it is quarantined.
func NewEngine(registry *Registry, verifier Verifier, sink Sink, gapWindow time.Duration, nowFn func() time.Time) *Engine {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{registry: registry, verifier: verifier, sink: sink, gapBy: make(map[string]*GapBuffer), gapWindow: gapWindow, now: nowFn}
}

func (e *Engine) gapBuffer(peerID string) *GapBuffer {
	b, ok := e.gapBy[peerID]
	if !ok {
		b = NewGapBuffer(e.gapWindow, e.now)
		e.gapBy[peerID] = b
	}
	return b
}

// ApplyResponse processes one SyncResponse from peerID: every span is
// re-verified, checked against local knowledge for hash conflicts, and
// either applied, buffered (prev_hash unknown), or quarantined. Spans
// from a read-trust peer are applied to the sink but never treated as
// authoritative by callers; write and mirror trust behave the same at
// this layer, the distinction matters to the caller that decides
// whether to also push back (mirror).
func (e *Engine) ApplyResponse(peerID string, resp SyncResponse) (applied []span.Span, quarantined []Quarantined, err error) {
	peer, err := e.registry.Get(peerID)
	if err != nil {
		return nil, nil, err
	}
	if peer.Trust == TrustNone {
		return nil, nil, archerr.New(archerr.NotAuthorized, "federation.trust_none", "peer "+peerID+" has no exchange trust")
	}

	buf := e.gapBuffer(peerID)
	queue := append([]span.Span{}, resp.Spans...)

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		if existing, ok := e.sink.HasEntryHash(s.TenantID, s.EntryHash); ok {
			if existing.ID != s.ID {
				quarantined = append(quarantined, Quarantined{Span: s, PeerID: peerID, Reason: ReasonHashConflict, Detail: "entry_hash already claimed by a different span", QueuedAt: e.now()})
			}
			continue
		}

		if existing, ok := e.sink.HasID(s.TenantID, s.ID); ok && existing.EntryHash != s.EntryHash {
			quarantined = append(quarantined, Quarantined{Span: s, PeerID: peerID, Reason: ReasonIDConflict, Detail: "span id already committed with a different entry_hash", QueuedAt: e.now()})
			continue
		}

		if s.PrevHash != span.GenesisSentinel(s.TenantID) {
			if _, known := e.sink.HasEntryHash(s.TenantID, s.PrevHash); !known {
				buf.Hold(peerID, s)
				continue
			}
		}

		signableBytes, err := s.SignableBytes()
		if err != nil {
			return applied, quarantined, archerr.Wrap(archerr.Internal, "federation.encode_failed", "failed to encode span for verification", err)
		}
		ok, verr := e.verifier.Verify(s.AuthorID, signableBytes, s.Signature)
		if verr != nil || !ok {
			if _, downErr := e.registry.RecordSignatureFailure(peerID); downErr != nil {
				return applied, quarantined, downErr
			}
			quarantined = append(quarantined, Quarantined{Span: s, PeerID: peerID, Reason: ReasonBadSignature, Detail: "signature did not verify against origin identity", QueuedAt: e.now()})
			continue
		}
		if recomputeErr := e.registry.RecordSignatureSuccess(peerID); recomputeErr != nil {
			return applied, quarantined, recomputeErr
		}

		if err := e.sink.Put(s.TenantID, s); err != nil {
			return applied, quarantined, archerr.Wrap(archerr.Backend, "federation.sink_write_failed", "failed to store federated span", err)
		}
		applied = append(applied, s)

		queue = append(queue, buf.Release(s.EntryHash)...)
	}

	quarantined = append(quarantined, buf.ExpireStale()...)
	return applied, quarantined, nil
}
