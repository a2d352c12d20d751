// Package federation implements Federation Sync: pair-wise span
// exchange with peer nodes under a declared trust policy.
package federation

import (
	"time"

	"github.com/archon-systems/archon-core/pkg/span"
)

// Trust is the level a tenant grants a peer node.
type Trust string

const (
	// TrustNone exchanges nothing; set automatically on repeated
	// signature failure.
	TrustNone Trust = "none"
	// TrustRead pulls a peer's spans into a shadow view without
	// committing them locally.
	TrustRead Trust = "read"
	// TrustWrite is handled like TrustRead: the Engine re-verifies the
	// peer's spans and applies them to its Sink. Nothing in this package
	// commits them to the local ledger.
	TrustWrite Trust = "write"
	// TrustMirror is handled like TrustWrite. Nothing in this package
	// pushes local spans back to the peer.
	TrustMirror Trust = "mirror"
)

// Peer is one federation endpoint known to a tenant.
type Peer struct {
	ID              string
	TenantID        string
	Address         string
	Trust           Trust
	ConsecutiveSigFailures int
	AddedAt         time.Time
}

// downgraded reports whether p's trust should drop to none given the
// failure threshold.
func (p Peer) downgraded(threshold int) bool {
	return p.ConsecutiveSigFailures >= threshold
}

// SyncRequest asks a peer for everything committed after since_cursor.
type SyncRequest struct {
	TenantID    string
	SinceCursor string
}

// SyncResponse is a peer's answer to a SyncRequest. Spans are in
// commit order for the peer's own chain.
type SyncResponse struct {
	Spans      []span.Span
	NextCursor string
}

// QuarantineReason explains why a span was quarantined instead of
// applied.
type QuarantineReason string

const (
	// ReasonHashConflict fires when an incoming span's entry_hash is
	// already claimed by a span with a different ID: a hash collision.
	ReasonHashConflict QuarantineReason = "entry_hash_conflict"
	// ReasonIDConflict fires when an incoming span's ID is already
	// claimed by a span with a different entry_hash: the same logical
	// span disagreeing with itself across two origin chains.
	ReasonIDConflict   QuarantineReason = "id_conflict"
	ReasonBadSignature QuarantineReason = "signature_invalid"
	ReasonProtocol     QuarantineReason = "protocol_mismatch"
)

// Quarantined is a span the sync loop refused to apply, held for an
// operator to inspect; the core never silently picks a winner between
// conflicting entry hashes.
type Quarantined struct {
	Span     span.Span
	PeerID   string
	Reason   QuarantineReason
	Detail   string
	QueuedAt time.Time
}
