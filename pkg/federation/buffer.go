package federation

import (
	"time"

	"github.com/archon-systems/archon-core/pkg/span"
)

// pendingSpan is a span waiting on a predecessor that has not arrived
// yet.
type pendingSpan struct {
	span     span.Span
	peerID   string
	queuedAt time.Time
}

// GapBuffer holds spans whose prev_hash is not yet known locally,
// keyed by the prev_hash they are waiting on, until the predecessor
// arrives or a gap window expires.
type GapBuffer struct {
	window  time.Duration
	now     func() time.Time
	waiting map[string][]pendingSpan // prev_hash -> spans waiting on it
}

// NewGapBuffer builds a buffer that expires entries older than window.
func NewGapBuffer(window time.Duration, nowFn func() time.Time) *GapBuffer {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GapBuffer{window: window, now: nowFn, waiting: make(map[string][]pendingSpan)}
}

// Hold buffers s, which cannot be applied yet because its prev_hash is
// unknown locally.
func (b *GapBuffer) Hold(peerID string, s span.Span) {
	b.waiting[s.PrevHash] = append(b.waiting[s.PrevHash], pendingSpan{span: s, peerID: peerID, queuedAt: b.now()})
}

// Release returns, and forgets, every span that was waiting on
// entryHash arriving (i.e. whose prev_hash equals entryHash). Callers
// should attempt to apply the result and may need to call Release
// again recursively if applying one released span unblocks another.
func (b *GapBuffer) Release(entryHash string) []span.Span {
	pending, ok := b.waiting[entryHash]
	if !ok {
		return nil
	}
	delete(b.waiting, entryHash)
	out := make([]span.Span, 0, len(pending))
	for _, p := range pending {
		out = append(out, p.span)
	}
	return out
}

// ExpireStale removes and returns every span that has waited longer
// than the gap window, each paired with the peer it arrived from, for
// the caller to quarantine.
func (b *GapBuffer) ExpireStale() []Quarantined {
	var out []Quarantined
	now := b.now()
	for prevHash, pending := range b.waiting {
		var keep []pendingSpan
		for _, p := range pending {
			if now.Sub(p.queuedAt) > b.window {
				out = append(out, Quarantined{
					Span:     p.span,
					PeerID:   p.peerID,
					Reason:   ReasonProtocol,
					Detail:   "predecessor with entry_hash " + p.span.PrevHash + " did not arrive within the gap window",
					QueuedAt: p.queuedAt,
				})
				continue
			}
			keep = append(keep, p)
		}
		if len(keep) == 0 {
			delete(b.waiting, prevHash)
		} else {
			b.waiting[prevHash] = keep
		}
	}
	return out
}

// Pending reports how many spans are currently buffered.
func (b *GapBuffer) Pending() int {
	n := 0
	for _, pending := range b.waiting {
		n += len(pending)
	}
	return n
}
